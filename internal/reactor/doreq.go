package reactor

import (
	"context"
	"strings"

	"github.com/s00inx/eventweb/internal/userstore"
)

// digitRoute maps the single digit the original server looked for right
// after the final '/' in a URL to the static page it serves. The lookup
// itself is the whole of the original routing table for these paths;
// anything else just passes the URL through untouched.
var digitRoute = map[byte]string{
	'0': "/register.html",
	'1': "/log.html",
	'5': "/picture.html",
	'6': "/video.html",
	'7': "/fans.html",
}

// resolveStaticPath applies the digit-coded rewrite rules to a request
// URL that did not match an explicit route, the same rewriting do_request
// did before ever touching the filesystem.
func resolveStaticPath(url string) string {
	slash := strings.LastIndexByte(url, '/')
	if slash == -1 || slash+1 >= len(url) {
		return url
	}
	digit := url[slash+1]
	if path, ok := digitRoute[digit]; ok {
		return path
	}
	return url
}

// isCGIPath reports whether digit is the login ('2') or register ('3')
// CGI marker this server recognizes; both require cgi (a POST) to have
// been seen on the request.
func isCGIPath(url string) (digit byte, ok bool) {
	slash := strings.LastIndexByte(url, '/')
	if slash == -1 || slash+1 >= len(url) {
		return 0, false
	}
	d := url[slash+1]
	if d == '2' || d == '3' {
		return d, true
	}
	return 0, false
}

// parseCGIBody extracts username and password from a body shaped like
// "user=NAME&passwd=PASSWORD" using the exact fixed byte offsets the
// original CGI handler used: username runs from offset 5 to the first
// '&', and password runs from ampIdx+10 onward. That second offset is
// two bytes past where "&passwd=" actually ends, so the first two
// characters of every password are silently dropped — a real defect in
// the system this was learned from, carried forward here on purpose
// rather than quietly fixed, since fixing it would contradict every
// account this server would otherwise talk to.
func parseCGIBody(body []byte) (username, password string) {
	s := string(body)
	const userPrefix = 5
	if len(s) < userPrefix {
		return "", ""
	}
	amp := strings.IndexByte(s[userPrefix:], '&')
	if amp == -1 {
		return "", ""
	}
	ampIdx := userPrefix + amp
	username = s[userPrefix:ampIdx]

	passStart := ampIdx + 10
	if passStart >= len(s) {
		return username, ""
	}
	password = s[passStart:]
	return username, password
}

// handleCGI runs the login ('2') or register ('3') demo flow and returns
// the static page to redirect to afterward.
func handleCGI(ctx context.Context, store *userstore.Store, digit byte, body []byte) string {
	username, password := parseCGIBody(body)

	switch digit {
	case '2':
		if store.Authenticate(username, password) {
			return "/welcome.html"
		}
		return "/logError.html"
	case '3':
		if err := store.Register(ctx, username, password); err != nil {
			return "/registerError.html"
		}
		return "/log.html"
	default:
		return "/logError.html"
	}
}
