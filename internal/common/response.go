package common

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform body returned by every relay endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success renders a 200 envelope carrying data and a human readable message.
func Success(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Message: message})
}

// Failure renders an error envelope with the given status.
func Failure(w http.ResponseWriter, status int, message string, details any) {
	JSON(w, status, Envelope{Success: false, Error: message, Details: details})
}

// JSONError renders an AppError-style failure. The code is folded into details
// so the envelope keeps a single error string.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	if code != "" && details == nil {
		details = map[string]string{"code": code}
	}
	Failure(w, status, message, details)
}
