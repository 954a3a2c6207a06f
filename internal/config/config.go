// Package config defines the server's runtime configuration and its
// command-line surface, built on pflag the way flag precedence bugs in
// the system this was learned from (a bare getopt loop that silently
// misparsed its own return value) are sidestepped entirely by a real
// flag library.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Config holds every tunable the command line exposes.
type Config struct {
	Port int // -p

	// LogAsync selects asynchronous (queued) logging over synchronous,
	// direct-to-file writes. -l
	LogAsync bool

	// TriggerMode selects one of four listen/connection trigger-mode
	// pairs: 0=LT/LT 1=LT/ET 2=ET/LT 3=ET/ET. -m
	TriggerMode int

	// OptLinger, when true, lingers on close instead of closing fast.
	// -o
	OptLinger bool

	SQLConns   int // -s, size of the database connection pool
	Threads    int // -t, size of the worker pool
	CloseLog   bool // -c, disables logging entirely when true
	ActorModel int  // -a, 0=Proactor 1=Reactor

	DocRoot  string
	LogDir   string
	DBHost   string
	DBPort   int
	DBUser   string
	DBPass   string
	DBName   string
	MaxConns int
}

// Default returns the same baseline the original server started from.
func Default() Config {
	return Config{
		Port:        9906,
		LogAsync:    false,
		TriggerMode: 0,
		OptLinger:   false,
		SQLConns:    8,
		Threads:     8,
		CloseLog:    false,
		ActorModel:  0,
		DocRoot:     "./webroot",
		LogDir:      "./log",
		DBHost:      "127.0.0.1",
		DBPort:      3306,
		DBUser:      "root",
		DBName:      "webserver",
		MaxConns:    65536,
	}
}

// RegisterFlags binds cfg's fields to fs, using the same single-letter
// flags the original CLI used.
func (cfg *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "listening port")
	fs.BoolVarP(&cfg.LogAsync, "log-async", "l", cfg.LogAsync, "use asynchronous logging")
	fs.IntVarP(&cfg.TriggerMode, "trigger-mode", "m", cfg.TriggerMode, "0=LT/LT 1=LT/ET 2=ET/LT 3=ET/ET")
	fs.BoolVarP(&cfg.OptLinger, "linger", "o", cfg.OptLinger, "linger on close instead of closing fast")
	fs.IntVarP(&cfg.SQLConns, "sql-conns", "s", cfg.SQLConns, "database connection pool size")
	fs.IntVarP(&cfg.Threads, "threads", "t", cfg.Threads, "worker pool size")
	fs.BoolVarP(&cfg.CloseLog, "close-log", "c", cfg.CloseLog, "disable logging")
	fs.IntVarP(&cfg.ActorModel, "actor-model", "a", cfg.ActorModel, "0=Proactor 1=Reactor")
	fs.StringVar(&cfg.DocRoot, "doc-root", cfg.DocRoot, "static file document root")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "log file directory")
	fs.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "MySQL host")
	fs.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "MySQL port")
	fs.StringVar(&cfg.DBUser, "db-user", cfg.DBUser, "MySQL user")
	fs.StringVar(&cfg.DBPass, "db-pass", cfg.DBPass, "MySQL password")
	fs.StringVar(&cfg.DBName, "db-name", cfg.DBName, "MySQL database name")
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "maximum simultaneous connections")
}

// Validate rejects configurations the server cannot usefully run with.
func (cfg Config) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", cfg.Port)
	}
	if cfg.TriggerMode < 0 || cfg.TriggerMode > 3 {
		return fmt.Errorf("config: trigger-mode %d must be 0-3", cfg.TriggerMode)
	}
	if cfg.SQLConns <= 0 {
		return fmt.Errorf("config: sql-conns must be positive, got %d", cfg.SQLConns)
	}
	if cfg.Threads <= 0 {
		return fmt.Errorf("config: threads must be positive, got %d", cfg.Threads)
	}
	if cfg.ActorModel != 0 && cfg.ActorModel != 1 {
		return fmt.Errorf("config: actor-model must be 0 or 1, got %d", cfg.ActorModel)
	}
	return nil
}

// ListenConnTrigger decodes TriggerMode into the (listen, connection)
// pair it stands for.
func (cfg Config) ListenConnTrigger() (listen, conn int) {
	switch cfg.TriggerMode {
	case 0:
		return 0, 0
	case 1:
		return 0, 1
	case 2:
		return 1, 0
	default:
		return 1, 1
	}
}
