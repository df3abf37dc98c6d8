// Package config loads the coordinator configuration from a TOML file and
// fills defaults for anything omitted.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddr string `toml:"listen_addr"`

	// Directory of Groth16 verification keys, one "<circuit>.vk" per circuit.
	VerificationKeyDir string `toml:"verification_key_dir"`
	// Directory of the hand-rank lookup artifacts (basic.json, flush.json).
	// Empty means generate in process.
	HandRankTableDir string `toml:"hand_rank_table_dir"`

	MinPlayers    int    `toml:"min_players"`
	MaxPlayers    int    `toml:"max_players"`
	SmallBlind    uint64 `toml:"small_blind"`
	BigBlind      uint64 `toml:"big_blind"`
	StartingStack uint64 `toml:"starting_stack"`

	TurnTimeout       Duration `toml:"turn_timeout"`
	PhaseTimeout      Duration `toml:"phase_timeout"`
	HeartbeatInterval Duration `toml:"heartbeat_interval"`

	VerifyWorkers int `toml:"verify_workers"`
	// Pending verifications allowed per player before submissions bounce
	// with BUSY.
	VerifyQueuePerPlayer int `toml:"verify_queue_per_player"`
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() Config {
	return Config{
		ListenAddr:           "127.0.0.1:8880",
		VerificationKeyDir:   "keys",
		MinPlayers:           2,
		MaxPlayers:           10,
		SmallBlind:           1,
		BigBlind:             2,
		StartingStack:        100,
		TurnTimeout:          Duration{60 * time.Second},
		PhaseTimeout:         Duration{30 * time.Second},
		HeartbeatInterval:    Duration{45 * time.Second},
		VerifyWorkers:        2,
		VerifyQueuePerPlayer: 1,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MinPlayers < 2 || c.MaxPlayers > 10 || c.MinPlayers > c.MaxPlayers {
		return fmt.Errorf("config: player bounds %d..%d invalid", c.MinPlayers, c.MaxPlayers)
	}
	if c.SmallBlind == 0 || c.BigBlind < c.SmallBlind {
		return fmt.Errorf("config: blinds %d/%d invalid", c.SmallBlind, c.BigBlind)
	}
	if c.StartingStack < c.BigBlind*2 {
		return fmt.Errorf("config: starting stack %d too small", c.StartingStack)
	}
	if c.VerifyWorkers <= 0 {
		return fmt.Errorf("config: verify_workers must be positive")
	}
	return nil
}

// TurnTimeoutD and friends expose plain durations to callers.
func (c Config) TurnTimeoutD() time.Duration      { return c.TurnTimeout.Duration }
func (c Config) PhaseTimeoutD() time.Duration     { return c.PhaseTimeout.Duration }
func (c Config) HeartbeatIntervalD() time.Duration { return c.HeartbeatInterval.Duration }
