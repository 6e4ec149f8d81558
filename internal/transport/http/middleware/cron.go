package middleware

import (
	"crypto/subtle"
	"net/http"

	"leavedesk/internal/transport/http/api"
)

// CronSecret guards the external cron endpoint with a shared-secret query
// parameter instead of the bearer-token scheme; the caller is a dumb
// periodic trigger, not a user.
func CronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.URL.Query().Get("token")
			if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "invalid cron token", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
