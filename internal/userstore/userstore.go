// Package userstore is the demo login/registration credential store used
// by the CGI-style login and registration endpoints. Usernames are kept
// in memory for fast lookup, loaded once from the users table at
// startup, with writes mirrored through to the database.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/s00inx/eventweb/internal/dbpool"
)

// ErrUserExists is returned by Register when the username is already
// taken.
var ErrUserExists = errors.New("userstore: username already registered")

// Store is a cached view of the user table, guarded by a RWMutex since
// authentication checks vastly outnumber registrations.
type Store struct {
	pool *dbpool.Pool

	mu    sync.RWMutex
	users map[string]string
}

// Load reads every (username, passwd) pair into memory.
func Load(ctx context.Context, pool *dbpool.Pool) (*Store, error) {
	g := pool.Checkout()
	defer g.Close()

	rows, err := g.Conn().QueryContext(ctx, "SELECT username, passwd FROM user")
	if err != nil {
		return nil, fmt.Errorf("userstore: load: %w", err)
	}
	defer rows.Close()

	users := make(map[string]string)
	for rows.Next() {
		var u, p string
		if err := rows.Scan(&u, &p); err != nil {
			return nil, fmt.Errorf("userstore: scan: %w", err)
		}
		users[u] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userstore: load: %w", err)
	}
	return &Store{pool: pool, users: users}, nil
}

// NewInMemory builds a Store with no backing database, used in tests and
// when the database cannot be opened or its users cannot be loaded.
func NewInMemory(seed map[string]string) *Store {
	users := make(map[string]string, len(seed))
	for k, v := range seed {
		users[k] = v
	}
	return &Store{users: users}
}

// Authenticate reports whether username/password match a known account.
func (s *Store) Authenticate(username, password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	got, ok := s.users[username]
	return ok && got == password
}

// Register adds a new account if the username is not already taken,
// mirroring the write through to the backing table. If the Store has no
// pool (NewInMemory), it only updates the in-memory map.
func (s *Store) Register(ctx context.Context, username, password string) error {
	s.mu.Lock()
	if _, exists := s.users[username]; exists {
		s.mu.Unlock()
		return ErrUserExists
	}
	s.users[username] = password
	s.mu.Unlock()

	if s.pool == nil {
		return nil
	}

	g := s.pool.Checkout()
	defer g.Close()
	_, err := g.Conn().ExecContext(ctx, "INSERT INTO user(username, passwd) VALUES (?, ?)", username, password)
	if err != nil {
		s.mu.Lock()
		delete(s.users, username)
		s.mu.Unlock()
		return fmt.Errorf("userstore: insert: %w", err)
	}
	return nil
}
