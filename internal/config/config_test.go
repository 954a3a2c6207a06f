package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadTriggerMode(t *testing.T) {
	cfg := Default()
	cfg.TriggerMode = 4
	assert.Error(t, cfg.Validate())
}

func TestRegisterFlagsParsesShortForms(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(fs)

	require.NoError(t, fs.Parse([]string{"-p", "8080", "-m", "3", "-t", "16"}))
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 3, cfg.TriggerMode)
	assert.Equal(t, 16, cfg.Threads)
}

func TestListenConnTrigger(t *testing.T) {
	cases := []struct {
		mode         int
		listen, conn int
	}{
		{0, 0, 0},
		{1, 0, 1},
		{2, 1, 0},
		{3, 1, 1},
	}
	for _, c := range cases {
		cfg := Default()
		cfg.TriggerMode = c.mode
		listen, conn := cfg.ListenConnTrigger()
		assert.Equal(t, c.listen, listen, "mode %d listen", c.mode)
		assert.Equal(t, c.conn, conn, "mode %d conn", c.mode)
	}
}
