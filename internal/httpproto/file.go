package httpproto

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// StatResult classifies what Stat found at a resolved path, mirroring
// the do_request stat()/S_IROTH/S_ISDIR checks.
type StatResult int

const (
	StatOK StatResult = iota
	StatMissing
	StatForbidden
	StatIsDir
)

// StatFile stats path and classifies it the way the original request
// dispatcher did: StatMissing for a missing file, StatIsDir for a
// directory, StatForbidden for a file that is not world-readable. The
// caller maps these to NoResource, BadRequest and ForbiddenRequest.
func StatFile(path string) (StatResult, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return StatMissing, nil, nil
		}
		return StatMissing, nil, fmt.Errorf("httpproto: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return StatIsDir, info, nil
	}
	if info.Mode().Perm()&0o004 == 0 {
		return StatForbidden, info, nil
	}
	return StatOK, info, nil
}

// MappedFile is a read-only mmap of a static file's contents, served to
// the client via writev without an intervening copy into user space.
type MappedFile struct {
	data []byte
	f    *os.File
}

// MapFile opens and mmaps path for reading. The caller must call Close
// once the file has been fully written out.
func MapFile(path string, size int64) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("httpproto: open %s: %w", path, err)
	}
	if size == 0 {
		return &MappedFile{f: f}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("httpproto: mmap %s: %w", path, err)
	}
	return &MappedFile{data: data, f: f}, nil
}

// Bytes returns the mapped region, or nil for a zero-length file.
func (m *MappedFile) Bytes() []byte { return m.data }

// Close unmaps the file and closes its descriptor. Calling it again is a
// no-op that returns nil.
func (m *MappedFile) Close() error {
	var err error
	if m.data != nil {
		err = unix.Munmap(m.data)
		m.data = nil
	}
	if m.f != nil {
		if cerr := m.f.Close(); err == nil {
			err = cerr
		}
		m.f = nil
	}
	return err
}

// Writer drives the writev loop for one outgoing response: a header
// buffer followed by an optional mapped file body, resumable across
// EAGAIN the same way the original write() loop resumed across epoll
// wakeups.
type Writer struct {
	header  []byte
	body    []byte
	sent    int
	total   int
	Linger  bool
}

// Prepare loads header and body (body may be nil) and resets send state.
func (w *Writer) Prepare(header, body []byte, linger bool) {
	w.header = header
	w.body = body
	w.sent = 0
	w.total = len(header) + len(body)
	w.Linger = linger
}

// Done reports whether every byte of the prepared response has been
// written.
func (w *Writer) Done() bool { return w.sent >= w.total }

// WriteOnce issues a single writev. retryLater is true on EAGAIN, in
// which case the caller should rearm for EPOLLOUT and try again on the
// next wakeup instead of treating it as an error.
func (w *Writer) WriteOnce(fd int) (retryLater bool, err error) {
	if w.total == 0 {
		return false, nil
	}
	iov := w.iovecs()
	n, werr := unix.Writev(fd, iov)
	if werr != nil {
		if werr == unix.EAGAIN {
			return true, nil
		}
		return false, werr
	}
	w.sent += n
	return false, nil
}

func (w *Writer) iovecs() [][]byte {
	if w.sent >= len(w.header) {
		return [][]byte{w.body[w.sent-len(w.header):]}
	}
	if len(w.body) == 0 {
		return [][]byte{w.header[w.sent:]}
	}
	return [][]byte{w.header[w.sent:], w.body}
}
