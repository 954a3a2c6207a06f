// Package reactor is the epoll-driven event loop: it accepts
// connections, multiplexes their readiness events, and drives each one
// through the parse/dispatch/write lifecycle, handing the read/process/
// write turns to a worker pool under either Reactor or Proactor dispatch.
package reactor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/s00inx/eventweb/internal/dbpool"
	"github.com/s00inx/eventweb/internal/router"
	"github.com/s00inx/eventweb/internal/timerwheel"
	"github.com/s00inx/eventweb/internal/userstore"
	"github.com/s00inx/eventweb/internal/workerpool"
)

const (
	// TickInterval is how often the timer list is swept for idle
	// connections, the TIMESLOT of the system this was learned from.
	TickInterval = 5 * time.Second
	// IdleTimeout is how long a connection may sit without activity
	// before it is reclaimed: three ticks, same multiple used there.
	IdleTimeout = 3 * TickInterval

	maxEpollEvents = 10000
)

// Config assembles everything a Reactor needs to run.
type Config struct {
	ListenFD      int
	ListenTrigger TriggerMode
	ConnTrigger   TriggerMode
	OptLinger     bool
	Mode          workerpool.Mode
	MaxConns      int
	Workers       int
	WorkerQueue   int
	DocRoot       string

	Router *router.Router
	DB     *dbpool.Pool
	Users  *userstore.Store
	Log    *zap.Logger
}

// Reactor is the single-goroutine event loop; all epoll_ctl/mmap/writev
// calls for a given connection that are not delegated to the worker pool
// happen on this goroutine.
type Reactor struct {
	cfg Config

	epfd int
	log  *zap.Logger

	router  *router.Router
	db      *dbpool.Pool
	users   *userstore.Store
	docRoot string

	pool *workerpool.Pool

	mu    sync.Mutex
	conns map[int]*Connection

	timers *timerwheel.List

	pipeR, pipeW *os.File
	sigCh        chan os.Signal

	stopRequested bool
}

// New builds a Reactor ready to Run. The caller retains ownership of
// cfg.ListenFD's lifetime.
func New(cfg Config) (*Reactor, error) {
	if cfg.Workers <= 0 || cfg.WorkerQueue <= 0 {
		return nil, fmt.Errorf("reactor: Workers and WorkerQueue must be positive")
	}
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("reactor: self-pipe: %w", err)
	}

	r := &Reactor{
		cfg:     cfg,
		epfd:    epfd,
		log:     cfg.Log,
		router:  cfg.Router,
		db:      cfg.DB,
		users:   cfg.Users,
		docRoot: cfg.DocRoot,
		conns:   make(map[int]*Connection),
		timers:  timerwheel.NewList(),
		pipeR:   pr,
		pipeW:   pw,
		sigCh:   make(chan os.Signal, 4),
	}
	r.pool = workerpool.New(cfg.Mode, cfg.Workers, cfg.WorkerQueue)

	if err := addfd(epfd, cfg.ListenFD, cfg.ListenTrigger, false, unix.EPOLLIN); err != nil {
		r.Close()
		return nil, fmt.Errorf("reactor: addfd listener: %w", err)
	}
	if err := unix.SetNonblock(int(pr.Fd()), true); err != nil {
		r.Close()
		return nil, fmt.Errorf("reactor: self-pipe nonblock: %w", err)
	}
	if err := addfd(epfd, int(pr.Fd()), LevelTriggered, false, unix.EPOLLIN); err != nil {
		r.Close()
		return nil, fmt.Errorf("reactor: addfd self-pipe: %w", err)
	}

	signal.Notify(r.sigCh, syscall.SIGTERM, syscall.SIGINT)
	go r.relaySignals()
	go r.tickLoop()

	return r, nil
}

// relaySignals turns SIGTERM/SIGINT into a byte on the self-pipe,
// exactly the trick the original server used to make POSIX signals
// visible to epoll_wait.
func (r *Reactor) relaySignals() {
	for range r.sigCh {
		_, _ = r.pipeW.Write([]byte{'T'})
	}
}

// tickLoop writes a byte to the self-pipe every TickInterval, standing
// in for the SIGALRM the original server scheduled with alarm().
func (r *Reactor) tickLoop() {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for range ticker.C {
		_, err := r.pipeW.Write([]byte{'A'})
		if err != nil {
			return
		}
	}
}

// Run drives the epoll loop until ctx is canceled or a termination
// signal arrives.
func (r *Reactor) Run(ctx context.Context) error {
	events := make([]unix.EpollEvent, maxEpollEvents)
	for {
		if r.stopRequested {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := unix.EpollWait(r.epfd, events, int(TickInterval/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("reactor: epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			switch {
			case fd == r.cfg.ListenFD:
				r.acceptLoop()
			case fd == int(r.pipeR.Fd()):
				r.drainSelfPipe()
			case events[i].Events&(unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0:
				r.closeConn(fd)
			case events[i].Events&unix.EPOLLIN != 0:
				r.dealWithRead(fd)
			case events[i].Events&unix.EPOLLOUT != 0:
				r.dealWithWrite(fd)
			}
		}

		r.timers.Tick(time.Now())
	}
}

func (r *Reactor) drainSelfPipe() {
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(int(r.pipeR.Fd()), buf)
		if n <= 0 {
			break
		}
		for _, b := range buf[:n] {
			if b == 'T' {
				r.stopRequested = true
			}
		}
		if err == unix.EAGAIN {
			break
		}
	}
}

func (r *Reactor) acceptLoop() {
	for {
		fd, _, err := unix.Accept(r.cfg.ListenFD)
		if err != nil {
			return
		}
		r.mu.Lock()
		tooMany := r.cfg.MaxConns > 0 && len(r.conns) >= r.cfg.MaxConns
		r.mu.Unlock()
		if tooMany {
			r.rejectBusy(fd)
			continue
		}

		if err := addfd(r.epfd, fd, r.cfg.ConnTrigger, true, unix.EPOLLIN); err != nil {
			unix.Close(fd)
			continue
		}

		conn := newConnection(r, fd, r.cfg.ConnTrigger)
		timer := &timerwheel.Timer{
			Expire: time.Now().Add(IdleTimeout),
			Data:   fd,
			CB:     func(data any) { r.closeConn(data.(int)) },
		}
		conn.timer = timer

		r.mu.Lock()
		r.conns[fd] = conn
		r.mu.Unlock()
		r.timers.Add(timer)

		if r.cfg.ListenTrigger == LevelTriggered {
			return
		}
	}
}

func (r *Reactor) lookupConn(fd int) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[fd]
}

func (r *Reactor) dealWithRead(fd int) {
	conn := r.lookupConn(fd)
	if conn == nil {
		return
	}
	conn.timer.Expire = time.Now().Add(IdleTimeout)
	r.timers.Adjust(conn.timer)

	if r.cfg.Mode == workerpool.Reactor {
		if !r.pool.Append(conn, workerpool.PhaseRead) {
			return
		}
		<-conn.done
		if conn.timerFlag.Load() {
			conn.timerFlag.Store(false)
			r.closeConn(fd)
		}
		return
	}

	if conn.ReadOnce() {
		if !r.pool.AppendP(conn) {
			r.closeConn(fd)
			return
		}
		r.timers.Adjust(conn.timer)
	} else {
		r.closeConn(fd)
	}
}

func (r *Reactor) dealWithWrite(fd int) {
	conn := r.lookupConn(fd)
	if conn == nil {
		return
	}
	conn.timer.Expire = time.Now().Add(IdleTimeout)
	r.timers.Adjust(conn.timer)

	if r.cfg.Mode == workerpool.Reactor {
		if !r.pool.Append(conn, workerpool.PhaseWrite) {
			return
		}
		<-conn.done
		if conn.timerFlag.Load() {
			conn.timerFlag.Store(false)
			r.closeConn(fd)
		}
		return
	}

	if !conn.WriteOnce() {
		r.closeConn(fd)
	}
}

// busyMessage is written raw, with no HTTP status line, to a connection
// refused for being over MaxConns -- the same bare send() the original
// used before close(), not an HTTP error response.
const busyMessage = "INTERNAL SERVER BUSY"

func (r *Reactor) rejectBusy(fd int) {
	_, _ = unix.Write(fd, []byte(busyMessage))
	_ = unix.Close(fd)
	if r.log != nil {
		r.log.Error(busyMessage, zap.Int("fd", fd))
	}
}

func (r *Reactor) closeConn(fd int) {
	r.mu.Lock()
	conn, ok := r.conns[fd]
	if ok {
		delete(r.conns, fd)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	r.timers.Remove(conn.timer)
	conn.cleanupMapped()
	_ = removefd(r.epfd, fd)
	if r.log != nil {
		r.log.Debug("closed connection", zap.Int("fd", fd))
	}
}

// Close tears down the reactor's own resources. It does not close
// already-accepted connections' file descriptors beyond what Run's loop
// has already reclaimed.
func (r *Reactor) Close() error {
	signal.Stop(r.sigCh)
	close(r.sigCh)
	r.pool.Close()
	_ = r.pipeR.Close()
	_ = r.pipeW.Close()
	return unix.Close(r.epfd)
}
