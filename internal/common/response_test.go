package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payrelay/internal/common"
)

func TestSuccessEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	common.Success(rr, map[string]string{"orderId": "order_1"}, "Order fetched successfully")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"success":true,"data":{"orderId":"order_1"},"message":"Order fetched successfully"}`, rr.Body.String())
}

func TestFailureEnvelopeOmitsEmptyFields(t *testing.T) {
	rr := httptest.NewRecorder()
	common.Failure(rr, http.StatusMethodNotAllowed, "Method not allowed", nil)

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.JSONEq(t, `{"success":false,"error":"Method not allowed"}`, rr.Body.String())
}

func TestJSONErrorFoldsCode(t *testing.T) {
	rr := httptest.NewRecorder()
	common.JSONError(rr, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)

	var env common.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, map[string]any{"code": "RATE_LIMITED"}, env.Details)
}

func TestStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, common.Status(common.BadRequest("bad", nil)))
	require.Equal(t, http.StatusInternalServerError, common.Status(errors.New("boom")))

	wrapped := common.Internal("Failed to create order record", errors.New("connection refused"))
	var appErr *common.AppError
	require.ErrorAs(t, wrapped, &appErr)
	require.Equal(t, "INTERNAL", appErr.Code)
	require.EqualError(t, wrapped, "connection refused")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:4000"
	require.Equal(t, "10.1.1.1", common.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", common.ClientIP(req))
}
