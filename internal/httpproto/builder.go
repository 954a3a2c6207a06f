package httpproto

import (
	"fmt"
	"strings"
)

// statusTable is a flat lookup instead of a map since the set of codes is
// fixed and small; indexing is cheaper than hashing here.
var statusTable = [506]string{
	200: "200 OK",
	400: "400 Bad Request",
	403: "403 Forbidden",
	404: "404 Not Found",
	500: "500 Internal Server Error",
}

const (
	title400 = "Bad Request"
	form400  = "Your request has bad syntax or is inherently impossible to satisfy.\n"
	title403 = "Forbidden"
	form403  = "You do not have permission to get file from this server.\n"
	title404 = "Not Found"
	form404  = "The request file was not found on this server.\n"
	title500 = "Internal Error"
	form500  = "There was an unusual problem serving the requested file.\n"
)

// extToContentType maps a file extension to the Content-Type render()
// picked for it; anything not listed here falls back to text/html.
var extToContentType = map[string]string{
	"css":  "text/css",
	"js":   "application/javascript",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"ico":  "image/x-icon",
	"mp4":  "video/mp4",
}

// ContentTypeFor returns the Content-Type for a static file name based
// on its extension, defaulting to text/html for anything unrecognized.
func ContentTypeFor(name string) string {
	ext := name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		ext = name[i+1:]
	}
	if ct, ok := extToContentType[ext]; ok {
		return ct
	}
	return "text/html"
}

// Response is the set of bytes BuildHeader needs to produce a status
// line plus headers; the body, if any, is sent separately (either
// inline or via an mmap'd file) by the writev path in file.go.
type Response struct {
	Code        int
	ContentType string
	ContentLen  int
	Linger      bool
	ExtraBody   []byte // literal body bytes; BuildHeader does not read this field
}

// BuildHeader writes the status line and headers for resp into dst and
// returns the number of bytes written. dst must have enough room; callers
// size it from a fixed write buffer the way the original did.
func BuildHeader(dst []byte, resp Response) int {
	st := ""
	if resp.Code >= 0 && resp.Code < len(statusTable) {
		st = statusTable[resp.Code]
	}
	if st == "" {
		st = statusTable[500]
	}
	n := copy(dst, "HTTP/1.1 ")
	n += copy(dst[n:], st)
	n += copy(dst[n:], "\r\n")

	n += copy(dst[n:], "Content-Type: ")
	ct := resp.ContentType
	if ct == "" {
		ct = "text/html"
	}
	n += copy(dst[n:], ct)
	n += copy(dst[n:], "\r\n")

	n += copy(dst[n:], "Content-Length: ")
	n += copy(dst[n:], fmt.Sprintf("%d", resp.ContentLen))
	n += copy(dst[n:], "\r\n")

	if resp.Linger {
		n += copy(dst[n:], "Connection: keep-alive\r\n")
	} else {
		n += copy(dst[n:], "Connection: close\r\n")
	}
	n += copy(dst[n:], "\r\n")
	return n
}

// ErrorBody returns the HTTP status and plain-text body to send for one
// of the non-file terminal codes. NoResource has no case here at all:
// ok is false, and the caller must close the connection without writing
// anything, matching that behavior exactly.
func ErrorBody(code Code) (httpStatus int, title, form string, ok bool) {
	switch code {
	case InternalError:
		return 500, title500, form500, true
	case BadRequest:
		return 400, title400, form400, true
	case ForbiddenRequest:
		return 403, title403, form403, true
	default:
		return 0, "", "", false
	}
}

// NotFound returns the status and body for a request that matched
// neither a handler nor a static file -- the router's own fallback,
// distinct from the parser-level NoResource code (which closes the
// connection without a body at all).
func NotFound() (httpStatus int, title, form string) {
	return 404, title404, form404
}
