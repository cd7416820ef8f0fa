package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payrelay/internal/common"
)

var testSecret = []byte("relay-test-secret")

func signToken(t *testing.T, key []byte, alg jwa.SignatureAlgorithm, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Issuer("issuer").
		Audience([]string{"relay"}).
		Subject("merchant-app").
		IssuedAt(time.Now()).
		Expiration(exp).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(alg, key))
	require.NoError(t, err)
	return string(signed)
}

func protected(t *testing.T, m Middleware) http.Handler {
	t.Helper()
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, _ := common.Subject(r.Context())
		_, _ = w.Write([]byte(sub))
	}))
}

func newMiddleware() Middleware {
	return Middleware{Verifier: Verifier{
		Secret:    testSecret,
		Validator: TokenValidator{Issuer: "issuer", Audience: "relay"},
	}}
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	handler := protected(t, newMiddleware())
	req := httptest.NewRequest(http.MethodGet, "/get-order/order_1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwa.HS256, time.Now().Add(time.Minute)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "merchant-app", rr.Body.String())
}

func TestRequireAuthRejectsMissingAndInvalid(t *testing.T) {
	handler := protected(t, newMiddleware())
	cases := map[string]string{
		"missing": "",
		"garbage": "Bearer not-a-token",
		"wrong":   "Bearer " + signToken(t, []byte("other-secret"), jwa.HS256, time.Now().Add(time.Minute)),
		"expired": "Bearer " + signToken(t, testSecret, jwa.HS256, time.Now().Add(-time.Minute)),
		"hs512":   "Bearer " + signToken(t, testSecret, jwa.HS512, time.Now().Add(time.Minute)),
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/get-order/order_1", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusUnauthorized, rr.Code, name)

		var env common.Envelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), name)
		require.False(t, env.Success)
		require.Equal(t, "missing or invalid token", env.Error)
	}
}

func TestRequireAuthSkipsPreflight(t *testing.T) {
	handler := protected(t, newMiddleware())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/create-order", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireAuthWithoutSecret(t *testing.T) {
	handler := protected(t, Middleware{})
	req := httptest.NewRequest(http.MethodGet, "/get-order/order_1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwa.HS256, time.Now().Add(time.Minute)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
