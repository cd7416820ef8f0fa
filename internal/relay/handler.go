// Package relay implements the HTTP handlers that forward order and payment
// calls to the payment gateway and wrap the result in a uniform envelope.
package relay

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/payrelay/internal/common"
	"github.com/noah-isme/payrelay/internal/gateway"
	"github.com/noah-isme/payrelay/internal/ledger"
	"github.com/noah-isme/payrelay/internal/obs"
	"github.com/noah-isme/payrelay/internal/params"
)

// Gateway is the upstream surface the handlers call.
type Gateway interface {
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (gateway.Order, error)
	GetOrder(ctx context.Context, orderID string) (gateway.Order, error)
	GetPayments(ctx context.Context, orderID string) ([]gateway.Payment, error)
	GetPayment(ctx context.Context, orderID, paymentID string) (gateway.Payment, error)
}

// Ledger records the local lifecycle of relayed orders.
type Ledger interface {
	CreateOrder(ctx context.Context, o ledger.Order) error
	AddItems(ctx context.Context, orderID string, items []ledger.Item) error
	MarkCreated(ctx context.Context, orderID, gatewayOrderID, sessionID string) error
	MarkFailed(ctx context.Context, orderID, reason string) error
	SetStatus(ctx context.Context, orderID string, status ledger.Status) error
}

// Handler serves every relay route. Ledger may be nil for lookup-only deployments.
type Handler struct {
	Gateway  Gateway
	Ledger   Ledger
	Logger   zerolog.Logger
	Validate *validator.Validate

	// AllowedOrigins limits which origins get CORS headers on OPTIONS.
	// Empty or containing "*" answers every origin with "*".
	AllowedOrigins []string
	// NewOrderID and NewCustomerID override identifier generation in tests.
	NewOrderID    func() string
	NewCustomerID func() string
}

const (
	corsAllowHeaders = "authorization, x-client-info, apikey, content-type, x-request-id"
	corsAllowMethods = "GET, POST, OPTIONS"
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgInvalidBody      = "Invalid JSON body"
	msgNotConfigured    = "Payment gateway is not configured"
	msgInternal         = "Internal server error"
)

type upstreamDetails struct {
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
	Code           string `json:"code,omitempty"`
	Type           string `json:"type,omitempty"`
}

// allow answers OPTIONS and rejects methods outside allowed. It reports
// whether the handler should continue.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, route string, allowed ...string) bool {
	if r.Method == http.MethodOptions {
		h.preflight(w, r)
		return false
	}
	if slices.Contains(allowed, r.Method) {
		return true
	}
	w.Header().Set("Allow", strings.Join(append(slices.Clone(allowed), http.MethodOptions), ", "))
	h.fail(w, r, route, common.NewAppError("METHOD_NOT_ALLOWED", msgMethodNotAllowed, http.StatusMethodNotAllowed, nil))
	return false
}

func (h *Handler) preflight(w http.ResponseWriter, r *http.Request) {
	header := w.Header()
	if origin, ok := h.preflightOrigin(r); ok {
		if origin != "*" {
			header.Add("Vary", "Origin")
		}
		setIfAbsent(header, "Access-Control-Allow-Origin", origin)
		setIfAbsent(header, "Access-Control-Allow-Headers", corsAllowHeaders)
		setIfAbsent(header, "Access-Control-Allow-Methods", corsAllowMethods)
	}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// preflightOrigin returns the Access-Control-Allow-Origin value for r, or
// false when the request origin is outside the allowlist.
func (h *Handler) preflightOrigin(r *http.Request) (string, bool) {
	if len(h.AllowedOrigins) == 0 || slices.Contains(h.AllowedOrigins, "*") {
		return "*", true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return "", false
	}
	for _, allowed := range h.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin, true
		}
	}
	return "", false
}

func setIfAbsent(h http.Header, key, value string) {
	if h.Get(key) == "" {
		h.Set(key, value)
	}
}

func (h *Handler) succeed(w http.ResponseWriter, r *http.Request, route string, data any, message string) {
	obs.RequestFields(h.Logger.Info(), r).Str("route", route).Msg("relay_request_succeeded")
	countResponse(route, http.StatusOK)
	common.Success(w, data, message)
}

// fail maps err onto an envelope, logs it and records the outcome.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, route string, err error) {
	status, message, details := classify(err)
	evt := h.Logger.Warn()
	if status >= http.StatusInternalServerError {
		evt = h.Logger.Error()
	}
	obs.RequestFields(evt, r).
		Err(err).
		Str("route", route).
		Int("status", status).
		Msg("relay_request_failed")
	countResponse(route, status)
	common.Failure(w, status, message, details)
}

func classify(err error) (int, string, any) {
	var (
		missing  *params.MissingError
		appErr   *common.AppError
		upstream *gateway.UpstreamError
	)
	switch {
	case errors.As(err, &missing):
		return http.StatusBadRequest, "Missing required parameter: " + missing.Name, map[string]any{"checked": missing.Checked}
	case errors.Is(err, params.ErrInvalidBody):
		return http.StatusBadRequest, msgInvalidBody, nil
	case errors.As(err, &appErr):
		return common.Status(appErr), appErr.Message, appErr.Details
	case errors.Is(err, gateway.ErrNotConfigured):
		return http.StatusInternalServerError, msgNotConfigured, nil
	case errors.As(err, &upstream):
		return http.StatusInternalServerError, upstream.Message, upstreamDetails{
			UpstreamStatus: upstream.StatusCode,
			Code:           upstream.Code,
			Type:           upstream.Type,
		}
	default:
		return http.StatusInternalServerError, msgInternal, nil
	}
}

func countResponse(route string, status int) {
	if obs.RelayResponsesTotal == nil {
		return
	}
	outcome := "success"
	switch {
	case status >= http.StatusInternalServerError:
		outcome = "server_error"
	case status >= http.StatusBadRequest:
		outcome = "client_error"
	}
	obs.RelayResponsesTotal.WithLabelValues(route, outcome).Inc()
}

func (h *Handler) client() (Gateway, error) {
	if h.Gateway == nil {
		return nil, gateway.ErrNotConfigured
	}
	return h.Gateway, nil
}

func (h *Handler) orderID() string {
	if h.NewOrderID != nil {
		return h.NewOrderID()
	}
	return "order_" + hexID(32)
}

func (h *Handler) customerID() string {
	if h.NewCustomerID != nil {
		return h.NewCustomerID()
	}
	return "cust_" + hexID(16)
}

func hexID(n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n < len(id) {
		return id[:n]
	}
	return id
}
