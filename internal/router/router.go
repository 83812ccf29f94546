// Package router is a thin wrapper over http.ServeMux adding middleware
// chains. Patterns use the Go 1.22 mux syntax, so handlers read path
// segments with r.PathValue.
package router

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router registers method-qualified routes on a shared mux. Middleware
// passed to New runs on every route; per-route middleware runs inside it.
type Router struct {
	mux  *http.ServeMux
	base []Middleware
}

func New(middleware ...Middleware) *Router {
	return &Router{
		mux:  http.NewServeMux(),
		base: middleware,
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, handler, middleware...)
}

func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, handler, middleware...)
}

func (r *Router) Put(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPut, pattern, handler, middleware...)
}

func (r *Router) Patch(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPatch, pattern, handler, middleware...)
}

func (r *Router) Delete(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodDelete, pattern, handler, middleware...)
}

// Handle registers handler for "METHOD pattern", wrapped in the base chain
// plus any route-specific middleware.
func (r *Router) Handle(method, pattern string, handler http.Handler, middleware ...Middleware) {
	wrapped := chain(handler, middleware)
	wrapped = chain(wrapped, r.base)
	r.mux.Handle(method+" "+pattern, wrapped)
}

// Group returns a router sharing this router's mux whose routes carry the
// extra middleware inside the base chain.
func (r *Router) Group(middleware ...Middleware) *Router {
	combined := make([]Middleware, 0, len(r.base)+len(middleware))
	combined = append(combined, r.base...)
	combined = append(combined, middleware...)
	return &Router{mux: r.mux, base: combined}
}

// chain wraps handler so that middleware[0] ends up outermost.
func chain(handler http.Handler, middleware []Middleware) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}
