package router

import "testing"

func BenchmarkDispatchStatic(b *testing.B) {
	r := New()
	r.Get("/hello", func(c *Context) { c.Send(200, []byte("ok")) })
	req := &Request{Method: "GET", Path: "/hello"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Dispatch(req)
	}
}

func TestDispatchMatchesRoute(t *testing.T) {
	r := New()
	r.Get("/hello", func(c *Context) {
		c.Send(200, []byte("hi "+c.Req.Path))
	})

	out := r.Dispatch(&Request{Method: "GET", Path: "/hello"})
	if out.Code != 200 || string(out.Body) != "hi /hello" {
		t.Fatalf("Dispatch() = %+v", out)
	}
}

func TestDispatchMethodMismatchFallsThrough(t *testing.T) {
	r := New()
	r.Get("/only-get", func(c *Context) { c.Send(200, []byte("ok")) })

	out := r.Dispatch(&Request{Method: "POST", Path: "/only-get"})
	if out.Code != 404 {
		t.Fatalf("Dispatch() = %+v, want 404", out)
	}
}

func TestDispatchStaticFallback(t *testing.T) {
	r := New()
	r.StaticExists = func(path string) bool { return path == "/picture.html" }

	out := r.Dispatch(&Request{Method: "GET", Path: "/picture.html"})
	if out.Code != 200 || out.StaticPath != "/picture.html" {
		t.Fatalf("Dispatch() = %+v, want static render of /picture.html", out)
	}
}

func TestDispatchNotFoundFallback(t *testing.T) {
	r := New()
	r.StaticExists = func(string) bool { return false }

	out := r.Dispatch(&Request{Method: "GET", Path: "/nope.html"})
	want := "The request file was not found on this server.\n"
	if out.Code != 404 || string(out.Body) != want {
		t.Fatalf("Dispatch() = %+v, want 404 with body %q", out, want)
	}
}

func TestQueryGet(t *testing.T) {
	req := &Request{RawQuery: "a=1&b=two&c="}
	if v := req.QueryGet("b"); v != "two" {
		t.Fatalf("QueryGet(b) = %q, want two", v)
	}
	if v := req.QueryGet("missing"); v != "" {
		t.Fatalf("QueryGet(missing) = %q, want empty", v)
	}
	if v := req.QueryGet("c"); v != "" {
		t.Fatalf("QueryGet(c) = %q, want empty", v)
	}
}

func TestHandleOverwritesExistingRoute(t *testing.T) {
	r := New()
	r.Get("/x", func(c *Context) { c.Send(200, []byte("first")) })
	r.Get("/x", func(c *Context) { c.Send(200, []byte("second")) })

	out := r.Dispatch(&Request{Method: "GET", Path: "/x"})
	if string(out.Body) != "second" {
		t.Fatalf("Dispatch() = %+v, want second handler to win", out)
	}
}
