package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tjfontaine/tutorai/internal/session"
)

// SessionMiddleware attaches the caller's session id to the context.
// Requests without a usable X-Session-ID get a fresh id, echoed back in the
// response header so the presentation layer can reuse it.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := session.Normalize(r.Header.Get(session.HeaderName))
		if !ok {
			id = uuid.New().String()
		}
		w.Header().Set(session.HeaderName, id)
		next.ServeHTTP(w, r.WithContext(session.WithID(r.Context(), id)))
	})
}
