// Package logging provides the process-wide request/error logger. It
// wraps zap with a custom WriteSyncer that rotates by calendar day or by
// line count, the same two rotation triggers the original logger used,
// and can run either synchronously or through a background queue.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/s00inx/eventweb/internal/queue"
)

// Mode selects how log lines reach disk.
type Mode int

const (
	// Sync writes every line on the calling goroutine.
	Sync Mode = iota
	// Async hands lines to a background writer through a bounded queue.
	Async
)

const (
	defaultSplitLines = 5_000_000
	defaultQueueSize  = 800000
)

// Logger is the server-wide structured logger. The zero value is not
// usable; build one with New.
type Logger struct {
	zl   *zap.Logger
	sync *rotatingWriter
	q    *queue.Queue[string]
	wg   sync.WaitGroup
}

// Config controls log file placement and rotation.
type Config struct {
	Dir         string // directory the log file lives in
	Mode        Mode
	SplitLines  int // rotate to a new file after this many lines; 0 uses the default
	QueueSize   int // async queue capacity; ignored in Sync mode
	Level       zapcore.Level
}

// New builds a Logger writing under cfg.Dir. Closing is the caller's
// responsibility via Close, which flushes and, for Async mode, drains the
// background writer goroutine.
func New(cfg Config) (*Logger, error) {
	if cfg.SplitLines <= 0 {
		cfg.SplitLines = defaultSplitLines
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: create dir: %w", err)
	}

	rw, err := newRotatingWriter(cfg.Dir, cfg.SplitLines)
	if err != nil {
		return nil, err
	}

	l := &Logger{sync: rw}

	encCfg := zapcore.EncoderConfig{
		TimeKey:    "ts",
		LevelKey:   "level",
		MessageKey: "msg",
		EncodeTime: zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000000"),
		EncodeLevel: func(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + lvl.String() + "]:")
		},
		ConsoleSeparator: " ",
		LineEnding:       "\n",
	}

	var ws zapcore.WriteSyncer
	if cfg.Mode == Async {
		l.q = queue.New[string](cfg.QueueSize)
		l.wg.Add(1)
		go l.drain()
		ws = zapcore.AddSync(asyncSink{l: l})
	} else {
		ws = zapcore.AddSync(rw)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, cfg.Level)
	l.zl = zap.New(core)
	return l, nil
}

// Zap exposes the underlying *zap.Logger for structured call sites.
func (l *Logger) Zap() *zap.Logger { return l.zl }

// Close flushes buffered output. In Async mode it also queues an end
// marker and waits for the drain goroutine to write the lines queued
// before it and exit; lines logged after Close are not drained.
func (l *Logger) Close() error {
	if l.q != nil {
		l.q.Push("")
		l.wg.Wait()
	}
	_ = l.zl.Sync()
	return l.sync.Close()
}

// asyncSink adapts the queue-backed async path to zapcore.WriteSyncer.
type asyncSink struct{ l *Logger }

func (s asyncSink) Write(p []byte) (int, error) {
	if !s.l.q.Push(string(p)) {
		// Queue saturated: fall back to a synchronous write rather than
		// drop the line, matching the original's full-queue fallback.
		return s.l.sync.Write(p)
	}
	return len(p), nil
}

func (s asyncSink) Sync() error { return nil }

func (l *Logger) drain() {
	defer l.wg.Done()
	for {
		line := l.q.Pop()
		if line == "" {
			return
		}
		_, _ = l.sync.Write([]byte(line))
	}
}

// rotatingWriter is an io.Writer that rolls over to a new file when the
// calendar day changes or the current file has accumulated splitLines
// lines, whichever comes first.
type rotatingWriter struct {
	mu         sync.Mutex
	dir        string
	splitLines int
	day        int
	count      int
	seq        int
	f          *os.File
}

func newRotatingWriter(dir string, splitLines int) (*rotatingWriter, error) {
	rw := &rotatingWriter{dir: dir, splitLines: splitLines}
	if err := rw.rotate(time.Now()); err != nil {
		return nil, err
	}
	return rw, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	day := now.YearDay() + now.Year()*1000
	if day != w.day || w.count >= w.splitLines {
		if err := w.rotate(now); err != nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.count += strings.Count(string(p), "\n")
	return n, err
}

func (w *rotatingWriter) rotate(now time.Time) error {
	if w.f != nil {
		_ = w.f.Close()
	}
	day := now.YearDay() + now.Year()*1000
	if day == w.day {
		w.seq++
	} else {
		w.seq = 0
	}
	w.day = day
	w.count = 0

	name := fmt.Sprintf("%s_%04d_%02d_%02d", "server", now.Year(), now.Month(), now.Day())
	if w.seq > 0 {
		name = fmt.Sprintf("%s_%04d", name, w.seq)
	}
	name += ".log"

	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open log file: %w", err)
	}
	w.f = f
	return nil
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	return w.f.Close()
}
