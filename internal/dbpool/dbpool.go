// Package dbpool implements a small, pre-opened MySQL connection pool.
// It deliberately bypasses database/sql's own pooling: every *sql.Conn it
// hands out was opened at startup and is returned to a free list rather
// than closed, the same fixed-size-pool-plus-semaphore discipline the
// original connection pool used.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"

	"github.com/s00inx/eventweb/internal/sync2"
)

// Config describes how to reach the database and how many connections to
// keep open.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxConns int
}

func (c Config) dsn() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Pool is a fixed-size set of open *sql.Conn, checked out one at a time.
type Pool struct {
	db   *sql.DB
	sem  *sync2.Sem
	mu   sync.Mutex
	free []*sql.Conn
}

// Open opens cfg.MaxConns connections up front and returns a Pool backed
// by them. It returns an error if any of those connections cannot be
// opened.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.MaxConns <= 0 {
		return nil, fmt.Errorf("dbpool: MaxConns must be positive, got %d", cfg.MaxConns)
	}
	db, err := sql.Open("mysql", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("dbpool: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)

	p := &Pool{db: db, sem: sync2.NewSem(cfg.MaxConns)}
	for i := 0; i < cfg.MaxConns; i++ {
		conn, err := db.Conn(ctx)
		if err != nil {
			p.closeAll()
			return nil, fmt.Errorf("dbpool: open connection %d: %w", i, err)
		}
		p.free = append(p.free, conn)
	}
	return p, nil
}

// Acquire blocks until a connection is available and removes it from the
// free list. Callers must Release it when done, normally via Guard.
func (p *Pool) Acquire() *sql.Conn {
	p.sem.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	conn := p.free[n-1]
	p.free = p.free[:n-1]
	return conn
}

// Release returns conn to the free list.
func (p *Pool) Release(conn *sql.Conn) {
	p.mu.Lock()
	p.free = append(p.free, conn)
	p.mu.Unlock()
	p.sem.Post()
}

// Guard is a scope-guarded checkout: Close returns the held connection.
// It mirrors the original's CONNECTION_POOL_RAII.
type Guard struct {
	pool *Pool
	conn *sql.Conn
}

// Checkout acquires a connection and wraps it in a Guard.
func (p *Pool) Checkout() *Guard {
	return &Guard{pool: p, conn: p.Acquire()}
}

// Conn returns the held connection.
func (g *Guard) Conn() *sql.Conn { return g.conn }

// Close returns the held connection to the pool. Calling it twice is a
// programming error and will double-release; callers should defer it
// exactly once.
func (g *Guard) Close() {
	g.pool.Release(g.conn)
}

func (p *Pool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.free {
		_ = c.Close()
	}
	p.free = nil
}

// Destroy closes every pooled connection and the underlying *sql.DB.
// Callers must not Acquire after calling Destroy.
func (p *Pool) Destroy() error {
	p.closeAll()
	return p.db.Close()
}
