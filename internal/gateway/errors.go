package gateway

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when credentials are missing.
var ErrNotConfigured = errors.New("gateway: client id and secret are required")

// Generic messages used when the upstream body cannot be relayed.
const (
	MsgParseFailure   = "failed to parse payment gateway response"
	MsgRequestFailure = "payment gateway request failed"
)

// UpstreamError describes a failed gateway call. StatusCode is zero when the
// request never produced a response.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
	Code       string
	Type       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("gateway %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}
