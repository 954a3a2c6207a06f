package reactor

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/s00inx/eventweb/internal/httpproto"
	"github.com/s00inx/eventweb/internal/router"
	"github.com/s00inx/eventweb/internal/timerwheel"
)

// Connection holds everything needed to service one accepted socket. It
// implements workerpool.Job so the pool can drive its read/process/write
// turns without importing this package.
type Connection struct {
	fd   int
	r    *Reactor
	mode TriggerMode

	parser *httpproto.Parser
	writer httpproto.Writer
	mapped *httpproto.MappedFile

	timer     *timerwheel.Timer
	timerFlag atomic.Bool
	done      chan struct{}

	closeAfterWrite bool
}

func newConnection(r *Reactor, fd int, mode TriggerMode) *Connection {
	parser := httpproto.New(httpproto.DefaultBufSize)
	parser.Log = r.log
	return &Connection{
		fd:     fd,
		r:      r,
		mode:   mode,
		parser: parser,
		done:   make(chan struct{}, 1),
	}
}

// ReadOnce implements workerpool.Job.
func (c *Connection) ReadOnce() bool {
	if c.mode == LevelTriggered {
		buf := c.parser.Free()
		if len(buf) == 0 {
			return false
		}
		n, err := unix.Read(c.fd, buf)
		if n <= 0 || err != nil {
			return false
		}
		c.parser.Advance(n)
		return true
	}

	readAny := false
	for {
		buf := c.parser.Free()
		if len(buf) == 0 {
			return readAny
		}
		n, err := unix.Read(c.fd, buf)
		if n > 0 {
			c.parser.Advance(n)
			readAny = true
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return readAny
		}
		return false
	}
}

// Process implements workerpool.Job: it runs the parser as far as it can
// and, once a full request is available, dispatches and builds a
// response.
func (c *Connection) Process() {
	code := c.parser.Process()
	if code == httpproto.NoRequest {
		_ = modfd(c.r.epfd, c.fd, c.mode, unix.EPOLLIN)
		return
	}

	if c.r.db != nil {
		guard := c.r.db.Checkout()
		defer guard.Close()
	}

	reqID := uuid.NewString()
	if c.r.log != nil {
		c.r.log.Debug("handling request",
			zap.String("request_id", reqID),
			zap.Int("fd", c.fd),
			zap.String("url", c.parser.URL),
			zap.String("code", code.String()),
		)
	}

	c.buildResponse(code)
	_ = modfd(c.r.epfd, c.fd, c.mode, unix.EPOLLOUT)
}

func (c *Connection) buildResponse(code httpproto.Code) {
	if code != httpproto.GetRequest {
		c.writeErrorOrClose(code)
		return
	}

	req := &router.Request{
		Method:   "GET",
		Path:     c.parser.URL,
		Host:     c.parser.Host,
		Body:     c.parser.Body,
		Linger:   c.parser.Linger,
	}
	if c.parser.Method == httpproto.MethodPost {
		req.Method = "POST"
	}

	if digit, ok := isCGIPath(req.Path); ok && c.parser.CGI {
		req.Path = handleCGI(context.Background(), c.r.users, digit, req.Body)
	} else {
		req.Path = resolveStaticPath(req.Path)
	}

	out := c.r.router.Dispatch(req)
	c.sendOutcome(out, c.parser.Linger)
}

func (c *Connection) writeErrorOrClose(code httpproto.Code) {
	status, title, form, ok := httpproto.ErrorBody(code)
	if !ok {
		// NoResource: the dispatcher sends nothing at all and the
		// connection is torn down, matching process_write's missing
		// case for this code.
		c.closeAfterWrite = true
		c.writer.Prepare(nil, nil, false)
		return
	}
	_ = title
	body := []byte(form)
	header := make([]byte, 512)
	n := httpproto.BuildHeader(header, httpproto.Response{
		Code:       status,
		ContentLen: len(body),
		Linger:     false,
	})
	c.writer.Prepare(header[:n], body, false)
}

func (c *Connection) sendOutcome(out router.Outcome, linger bool) {
	if out.StaticPath != "" {
		c.serveStatic(out.Code, out.StaticPath, linger)
		return
	}

	header := make([]byte, 512)
	n := httpproto.BuildHeader(header, httpproto.Response{
		Code:        out.Code,
		ContentType: out.ContentType,
		ContentLen:  len(out.Body),
		Linger:      linger,
	})
	c.writer.Prepare(header[:n], out.Body, linger)
}

func (c *Connection) serveStatic(code int, urlPath string, linger bool) {
	full := c.r.docRoot + urlPath
	stat, info, err := httpproto.StatFile(full)
	if err != nil || stat == httpproto.StatMissing {
		c.writeErrorOrClose(httpproto.NoResource)
		return
	}
	if stat == httpproto.StatForbidden {
		c.writeErrorOrClose(httpproto.ForbiddenRequest)
		return
	}
	if stat == httpproto.StatIsDir {
		c.writeErrorOrClose(httpproto.BadRequest)
		return
	}

	mapped, err := httpproto.MapFile(full, info.Size())
	if err != nil {
		c.writeErrorOrClose(httpproto.InternalError)
		return
	}
	c.mapped = mapped

	header := make([]byte, 512)
	n := httpproto.BuildHeader(header, httpproto.Response{
		Code:        code,
		ContentType: httpproto.ContentTypeFor(urlPath),
		ContentLen:  int(info.Size()),
		Linger:      linger,
	})
	c.writer.Prepare(header[:n], mapped.Bytes(), linger)
}

// WriteOnce implements workerpool.Job. It mirrors the write loop it was
// learned from: keep calling writev until the response is fully sent or
// the socket reports EAGAIN.
func (c *Connection) WriteOnce() bool {
	if c.closeAfterWrite {
		c.cleanupMapped()
		return false
	}
	for {
		retry, err := c.writer.WriteOnce(c.fd)
		if err != nil {
			c.cleanupMapped()
			return false
		}
		if retry {
			_ = modfd(c.r.epfd, c.fd, c.mode, unix.EPOLLOUT)
			return true
		}
		if c.writer.Done() {
			c.cleanupMapped()
			_ = modfd(c.r.epfd, c.fd, c.mode, unix.EPOLLIN)
			if c.writer.Linger {
				c.parser.Reset()
				return true
			}
			return false
		}
	}
}

func (c *Connection) cleanupMapped() {
	if c.mapped != nil {
		_ = c.mapped.Close()
		c.mapped = nil
	}
}

// SetTimerFlag implements workerpool.Job.
func (c *Connection) SetTimerFlag() { c.timerFlag.Store(true) }

// MarkDone implements workerpool.Job.
func (c *Connection) MarkDone() {
	select {
	case c.done <- struct{}{}:
	default:
	}
}
