package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/farhan/ranklab/internal/auth"
	"github.com/farhan/ranklab/internal/ratelimit"
)

// RateLimit returns a middleware that allows at most limit requests per
// window for each caller. Authenticated callers are keyed by user ID,
// anonymous callers by remote address, so one user cannot exhaust
// another's quota. The feature name keeps separately limited endpoints
// from sharing a bucket.
func RateLimit(limiter *ratelimit.Limiter, feature string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := feature + ":" + callerKey(r)
			res := limiter.Check(key, limit, window)

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				w.Header().Set("X-RateLimit-Reset", strconv.Itoa(res.ResetSeconds()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded, try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		return userID
	}
	return r.RemoteAddr
}
