// Package auth implements HTTP basic authentication for the exchange
// endpoint against the configured 1C accounts.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/sergey-gru/go-cml/internal/config"
	"github.com/sergey-gru/go-cml/pkg/exchange"
)

// Authenticator validates 1C account credentials.
type Authenticator struct {
	users  []config.UserConfig
	logger *slog.Logger
}

// New creates an authenticator over the configured accounts.
func New(cfg config.AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{users: cfg.Users, logger: logger}
}

// Check verifies a name and password pair. Comparison is constant time
// over every configured account regardless of where the match occurs.
func (a *Authenticator) Check(name, password string) bool {
	ok := false
	for _, u := range a.users {
		nameOK := subtle.ConstantTimeCompare([]byte(u.Name), []byte(name)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
		if nameOK && passOK {
			ok = true
		}
	}
	return ok
}

// Middleware guards next with basic auth and puts the account name on
// the request context for the exchange handler.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, pass, ok := r.BasicAuth()
		if !ok || !a.Check(name, pass) {
			a.logger.Debug("authentication failed",
				slog.String("user", name), slog.String("path", r.URL.Path))
			w.Header().Set("WWW-Authenticate", `Basic realm="1C exchange"`)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(exchange.WithUser(r.Context(), name)))
	})
}
