// Package frontdoor exposes the request mediator over JSON/HTTP so a
// presentation layer can drive it. It holds no presentation logic.
package frontdoor

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HandlerRegistration represents a registered HTTP handler.
type HandlerRegistration struct {
	Path    string
	Method  string
	Handler func(http.ResponseWriter, *http.Request)
}

// Mount registers every handler on r under basePath.
func Mount(r chi.Router, basePath string, regs []HandlerRegistration) {
	for _, reg := range regs {
		r.MethodFunc(reg.Method, basePath+reg.Path, reg.Handler)
	}
}
