package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/payrelay/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware requires a valid bearer token on every request except preflights.
type Middleware struct {
	Verifier Verifier
	Now      func() time.Time
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		subject, err := m.authenticate(r)
		if err != nil {
			if errors.Is(err, ErrNotConfigured) {
				common.JSONError(w, http.StatusInternalServerError, "AUTH_NOT_CONFIGURED", "authentication is not configured", nil)
				return
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithSubject(r.Context(), subject)))
	})
}

func (m Middleware) authenticate(r *http.Request) (string, error) {
	token := extractToken(r)
	if token == "" {
		return "", errNoToken
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	tok, err := m.Verifier.Verify(token, now())
	if err != nil {
		return "", err
	}
	return tok.Subject(), nil
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
