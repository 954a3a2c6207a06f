// Package router implements the exact (METHOD, path) route table the
// request dispatcher uses, generalized from a tree-based router into a
// flat map because the system this was learned from never needed path
// parameters: every route is a literal string.
package router

import (
	"sync"

	"github.com/s00inx/eventweb/internal/httpproto"
)

// Handler processes a matched request through a Context.
type Handler func(c *Context)

// Router is an exact-match (method, path) route table. The lock it holds
// protects only the map itself: it is released before any handler runs,
// so a slow handler never blocks route registration or other requests'
// lookups.
type Router struct {
	mu     sync.Mutex
	routes map[string]Handler

	// StaticExists reports whether a static file fallback can serve
	// path. It is consulted only when no handler matched.
	StaticExists func(path string) bool
}

// New builds an empty Router.
func New() *Router {
	return &Router{routes: make(map[string]Handler)}
}

func routeKey(method, path string) string {
	return method + ":" + path
}

// Handle registers h for method and path, overwriting any existing
// registration for the same pair.
func (r *Router) Handle(method, path string, h Handler) {
	r.mu.Lock()
	r.routes[routeKey(method, path)] = h
	r.mu.Unlock()
}

// Get registers a GET handler.
func (r *Router) Get(path string, h Handler) { r.Handle("GET", path, h) }

// Post registers a POST handler.
func (r *Router) Post(path string, h Handler) { r.Handle("POST", path, h) }

// Put registers a PUT handler.
func (r *Router) Put(path string, h Handler) { r.Handle("PUT", path, h) }

// Delete registers a DELETE handler.
func (r *Router) Delete(path string, h Handler) { r.Handle("DELETE", path, h) }

// lookup finds the handler for method/path without running it.
func (r *Router) lookup(method, path string) (Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.routes[routeKey(method, path)]
	return h, ok
}

// Dispatch resolves and runs the handler registered for req's method and
// path. If no handler matches, it falls back to rendering a static file
// at req.Path; if that file does not exist either, the Outcome carries
// the 404 status and body from httpproto.NotFound.
//
// The static fallback renders with 200, not the 202 the router-only
// variant used: the root-rewrite boundary case (GET / -> /judge.html)
// is required to come back as 200, and that request goes through this
// same fallback path, so 200 is used uniformly rather than special-cased
// per path. See DESIGN.md's Open Questions for the rationale.
func (r *Router) Dispatch(req *Request) Outcome {
	c := &Context{Req: req}
	if h, ok := r.lookup(req.Method, req.Path); ok {
		h(c)
		return c.out
	}
	if r.StaticExists != nil && r.StaticExists(req.Path) {
		c.Render(200, req.Path)
		return c.out
	}
	status, _, form := httpproto.NotFound()
	return Outcome{Code: status, Body: []byte(form), ContentType: "text/plain"}
}
