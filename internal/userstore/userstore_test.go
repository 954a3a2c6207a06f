package userstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	s := NewInMemory(map[string]string{"alice": "secret"})
	assert.True(t, s.Authenticate("alice", "secret"))
	assert.False(t, s.Authenticate("alice", "wrong"))
	assert.False(t, s.Authenticate("bob", ""))
}

func TestRegisterNewUser(t *testing.T) {
	s := NewInMemory(nil)
	require.NoError(t, s.Register(context.Background(), "carol", "hunter2"))
	assert.True(t, s.Authenticate("carol", "hunter2"))
}

func TestRegisterDuplicateFails(t *testing.T) {
	s := NewInMemory(map[string]string{"dave": "x"})
	err := s.Register(context.Background(), "dave", "y")
	assert.ErrorIs(t, err, ErrUserExists)
	assert.True(t, s.Authenticate("dave", "x"), "existing password should be unchanged after failed re-register")
}
