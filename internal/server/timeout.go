package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds each request's context by timeout; zero or
// negative leaves requests unbounded. Handlers must watch ctx.Done(), nothing
// is killed. When the deadline passes before the provider answers, the
// submission ends with an uncached error and the provider's later result is
// either discarded or, for a coalesced call, cached for the next caller.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
