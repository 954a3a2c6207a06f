// Package httpproto implements the incremental, in-place HTTP/1.1 request
// parser and response builder. The parser works over a fixed linear
// buffer and resumes across calls using the same three-phase state
// machine as the line-oriented parser it was learned from: request line,
// headers, then body. It never copies the buffer and never grows it.
package httpproto

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"
)

// CheckState is the parser's current phase.
type CheckState int

const (
	StateRequestLine CheckState = iota
	StateHeader
	StateContent
)

// Code is the terminal (or continuation) result of a parse attempt.
type Code int

const (
	NoRequest Code = iota
	GetRequest
	BadRequest
	NoResource
	ForbiddenRequest
	FileRequest
	InternalError
	ClosedConnection
)

func (c Code) String() string {
	switch c {
	case NoRequest:
		return "NoRequest"
	case GetRequest:
		return "GetRequest"
	case BadRequest:
		return "BadRequest"
	case NoResource:
		return "NoResource"
	case ForbiddenRequest:
		return "ForbiddenRequest"
	case FileRequest:
		return "FileRequest"
	case InternalError:
		return "InternalError"
	case ClosedConnection:
		return "ClosedConnection"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Method is the parsed HTTP method. Only GET and POST are supported, as
// in the system this was learned from; anything else is a bad request.
type Method int

const (
	MethodNone Method = iota
	MethodGet
	MethodPost
)

type lineStatus int

const (
	lineOK lineStatus = iota
	lineBad
	lineOpen
)

// DefaultBufSize is the size of a connection's fixed read buffer.
const DefaultBufSize = 2048

// Parser holds all state needed to incrementally parse one request off a
// connection's read buffer. Callers feed bytes in via Buf (growing ReadIdx)
// and call Process after every read.
type Parser struct {
	Buf []byte // fixed-capacity read buffer, shared with the connection
	// ReadIdx is how many bytes of Buf hold data read from the socket.
	ReadIdx int
	// checkedIdx is how far parseLine has scanned for a full line.
	checkedIdx int
	// startLine is the offset of the line currently being interpreted.
	startLine int

	state CheckState

	Method        Method
	URL           string
	Version       string
	Host          string
	Linger        bool // Connection: keep-alive seen
	CGI           bool // POST seen: login/registration traffic may follow
	ContentLength int
	Body          []byte

	// Log receives a line for every header parseHeaders doesn't
	// recognize. Nil disables logging.
	Log *zap.Logger
}

// New allocates a Parser with a fresh fixed-size buffer.
func New(bufSize int) *Parser {
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}
	return &Parser{Buf: make([]byte, bufSize)}
}

// Reset clears all parse state so the buffer can be reused for the next
// request on a keep-alive connection.
func (p *Parser) Reset() {
	p.ReadIdx = 0
	p.checkedIdx = 0
	p.startLine = 0
	p.state = StateRequestLine
	p.Method = MethodNone
	p.URL = ""
	p.Version = ""
	p.Host = ""
	p.Linger = false
	p.CGI = false
	p.ContentLength = 0
	p.Body = nil
}

// Free reports how much room remains in Buf for the next socket read.
func (p *Parser) Free() []byte { return p.Buf[p.ReadIdx:] }

// Advance records that n further bytes were read into Buf starting at
// ReadIdx.
func (p *Parser) Advance(n int) { p.ReadIdx += n }

// parseLine scans from checkedIdx for a \r\n line terminator. A \r that is
// the last buffered byte leaves the line open; a \r not followed by \n, or
// a \n not preceded by \r, makes the line bad. It returns the line's
// [start,end) bounds (exclusive of the terminator) on lineOK.
func (p *Parser) parseLine() (lineStatus, int, int) {
	for ; p.checkedIdx < p.ReadIdx; p.checkedIdx++ {
		c := p.Buf[p.checkedIdx]
		switch c {
		case '\r':
			if p.checkedIdx+1 == p.ReadIdx {
				return lineOpen, 0, 0
			}
			if p.Buf[p.checkedIdx+1] == '\n' {
				start := p.startLine
				end := p.checkedIdx
				p.checkedIdx += 2
				return lineOK, start, end
			}
			return lineBad, 0, 0
		case '\n':
			if p.checkedIdx > p.startLine && p.Buf[p.checkedIdx-1] == '\r' {
				start := p.startLine
				end := p.checkedIdx - 1
				p.checkedIdx++
				return lineOK, start, end
			}
			return lineBad, 0, 0
		}
	}
	return lineOpen, 0, 0
}

// Process runs the state machine as far as the currently buffered bytes
// allow, returning NoRequest if more data is needed.
func (p *Parser) Process() Code {
	status := lineOK
	for {
		var start, end int
		if p.state == StateContent && status == lineOK {
			start, end = p.startLine, p.ReadIdx
		} else {
			status, start, end = p.parseLine()
			if status == lineBad {
				return BadRequest
			}
			if status != lineOK {
				break
			}
		}
		line := p.Buf[start:end]
		p.startLine = p.checkedIdx

		switch p.state {
		case StateRequestLine:
			code := p.parseRequestLine(line)
			if code == BadRequest {
				return code
			}
		case StateHeader:
			code := p.parseHeaders(line)
			if code == BadRequest {
				return code
			}
			if code == GetRequest {
				return GetRequest
			}
		case StateContent:
			code := p.parseContent(line)
			if code == GetRequest {
				return code
			}
			return NoRequest
		default:
			return InternalError
		}
	}
	return NoRequest
}

func (p *Parser) parseRequestLine(line []byte) Code {
	sp := bytes.IndexAny(line, " \t")
	if sp == -1 {
		return BadRequest
	}
	method := line[:sp]
	rest := bytes.TrimLeft(line[sp+1:], " \t")

	switch {
	case bytes.EqualFold(method, []byte("GET")):
		p.Method = MethodGet
	case bytes.EqualFold(method, []byte("POST")):
		p.Method = MethodPost
		p.CGI = true
	default:
		return BadRequest
	}

	sp = bytes.IndexAny(rest, " \t")
	if sp == -1 {
		return BadRequest
	}
	url := rest[:sp]
	version := bytes.TrimLeft(rest[sp+1:], " \t")

	if !bytes.EqualFold(version, []byte("HTTP/1.1")) {
		return BadRequest
	}
	p.Version = string(version)

	url = stripScheme(url, "http://")
	url = stripScheme(url, "https://")
	if len(url) == 0 || url[0] != '/' {
		return BadRequest
	}
	if len(url) == 1 {
		p.URL = "/judge.html"
	} else {
		p.URL = string(url)
	}

	p.state = StateHeader
	return NoRequest
}

func stripScheme(url []byte, scheme string) []byte {
	if len(url) >= len(scheme) && bytes.EqualFold(url[:len(scheme)], []byte(scheme)) {
		rest := url[len(scheme):]
		if i := bytes.IndexByte(rest, '/'); i != -1 {
			return rest[i:]
		}
		return rest
	}
	return url
}

func (p *Parser) parseHeaders(line []byte) Code {
	if len(line) == 0 {
		if p.ContentLength != 0 {
			p.state = StateContent
			return NoRequest
		}
		return GetRequest
	}

	switch {
	case hasFoldPrefix(line, "Connection:"):
		v := bytes.TrimLeft(line[len("Connection:"):], " \t")
		if bytes.EqualFold(v, []byte("keep-alive")) {
			p.Linger = true
		}
	case hasFoldPrefix(line, "Content-Length:"):
		v := bytes.TrimLeft(line[len("Content-Length:"):], " \t")
		p.ContentLength = atoiSafe(v)
	case hasFoldPrefix(line, "Host:"):
		v := bytes.TrimLeft(line[len("Host:"):], " \t")
		p.Host = string(v)
	default:
		if p.Log != nil {
			p.Log.Info("Oops!! Unknown header", zap.ByteString("header", line))
		}
	}
	return NoRequest
}

func (p *Parser) parseContent(line []byte) Code {
	if p.ReadIdx >= p.ContentLength+p.startLine {
		p.Body = p.Buf[p.startLine : p.startLine+p.ContentLength]
		return GetRequest
	}
	return NoRequest
}

func hasFoldPrefix(line []byte, prefix string) bool {
	return len(line) >= len(prefix) && bytes.EqualFold(line[:len(prefix)], []byte(prefix))
}

func atoiSafe(b []byte) int {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
