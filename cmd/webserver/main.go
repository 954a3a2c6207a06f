// Command webserver runs the event-driven HTTP server: parse flags,
// wire up logging, the database pool, the router, and the reactor, then
// run until a termination signal arrives.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"

	"github.com/s00inx/eventweb/internal/config"
	"github.com/s00inx/eventweb/internal/dbpool"
	"github.com/s00inx/eventweb/internal/logging"
	"github.com/s00inx/eventweb/internal/reactor"
	"github.com/s00inx/eventweb/internal/router"
	"github.com/s00inx/eventweb/internal/userstore"
	"github.com/s00inx/eventweb/internal/workerpool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "webserver:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	cfg.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logMode := logging.Sync
	if cfg.LogAsync {
		logMode = logging.Async
	}
	logLevel := zapcore.InfoLevel
	if cfg.CloseLog {
		logLevel = zapcore.FatalLevel + 1 // above Fatal: nothing logs
	}
	logger, err := logging.New(logging.Config{Dir: cfg.LogDir, Mode: logMode, Level: logLevel})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logger.Close()
	zl := logger.Zap()

	listenFD, err := listen(cfg.Port, cfg.OptLinger)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer unix.Close(listenFD)

	ctx := context.Background()

	db, err := dbpool.Open(ctx, dbpool.Config{
		Host: cfg.DBHost, Port: cfg.DBPort, User: cfg.DBUser,
		Password: cfg.DBPass, DBName: cfg.DBName, MaxConns: cfg.SQLConns,
	})
	if err != nil {
		zl.Warn("database unavailable, running with an in-memory user store", zap.Error(err))
	}

	var users *userstore.Store
	if db != nil {
		users, err = userstore.Load(ctx, db)
		if err != nil {
			zl.Warn("failed to load users, starting with an empty store", zap.Error(err))
			users = userstore.NewInMemory(nil)
		}
	} else {
		users = userstore.NewInMemory(nil)
	}

	rt := router.New()
	registerRoutes(rt)
	rt.StaticExists = func(path string) bool {
		_, err := os.Stat(cfg.DocRoot + path)
		return err == nil
	}

	mode := workerpool.Proactor
	if cfg.ActorModel == 1 {
		mode = workerpool.Reactor
	}
	listenTrig, connTrig := cfg.ListenConnTrigger()

	rec, err := reactor.New(reactor.Config{
		ListenFD:      listenFD,
		ListenTrigger: reactor.TriggerMode(listenTrig),
		ConnTrigger:   reactor.TriggerMode(connTrig),
		OptLinger:     cfg.OptLinger,
		Mode:          mode,
		MaxConns:      cfg.MaxConns,
		Workers:       cfg.Threads,
		WorkerQueue:   cfg.MaxConns,
		DocRoot:       cfg.DocRoot,
		Router:        rt,
		DB:            db,
		Users:         users,
		Log:           zl,
	})
	if err != nil {
		return fmt.Errorf("reactor: %w", err)
	}
	defer rec.Close()

	zl.Info("listening", zap.Int("port", cfg.Port))
	return rec.Run(ctx)
}

// listen creates, binds, and starts listening on the given port,
// applying the SO_LINGER policy the caller selected: fast close when
// optLinger is false, a one-second linger when it is true.
func listen(port int, optLinger bool) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}

	linger := unix.Linger{Onoff: 0, Linger: 1}
	if optLinger {
		linger = unix.Linger{Onoff: 1, Linger: 1}
	}
	if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &linger); err != nil {
		unix.Close(fd)
		return -1, err
	}

	addr := unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Listen(fd, 5); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}
