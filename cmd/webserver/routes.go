package main

import (
	"fmt"

	"github.com/s00inx/eventweb/internal/router"
)

// registerRoutes wires the handful of explicit routes this server knows
// about. Everything else falls through to the router's static-file
// fallback, including the login/register/picture/video/fans pages
// resolved by the digit-coded URL rewriting in the reactor package.
func registerRoutes(rt *router.Router) {
	rt.Get("/healthz", func(c *router.Context) {
		c.Send(200, []byte("ok"))
	})

	rt.Get("/echo", func(c *router.Context) {
		msg := c.Req.QueryGet("msg")
		c.Send(200, []byte(fmt.Sprintf("echo: %s", msg)))
	})
}
