package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 2, cfg.MinPlayers)
	require.Equal(t, 10, cfg.MaxPlayers)
	require.Equal(t, 60*time.Second, cfg.TurnTimeoutD())
	require.Equal(t, 30*time.Second, cfg.PhaseTimeoutD())
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpoker.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr = "0.0.0.0:9000"
big_blind = 10
small_blind = 5
starting_stack = 1000
turn_timeout = "15s"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	require.Equal(t, uint64(10), cfg.BigBlind)
	require.Equal(t, 15*time.Second, cfg.TurnTimeoutD())
	// Untouched keys keep their defaults.
	require.Equal(t, 2, cfg.VerifyWorkers)
}

func TestLoadRejectsBadBlinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpoker.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
small_blind = 10
big_blind = 2
`), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
