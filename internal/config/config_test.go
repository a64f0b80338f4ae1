package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Listen: ListenConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			ReadTimeout:  10 * time.Minute,
			WriteTimeout: 30 * time.Second,
		},
		Game: GameConfig{
			CodeLength:   4,
			Colors:       "BGRPYO",
			MaxGuesses:   10,
			OutboxBuffer: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestListenAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:5000", cfg.Listen.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
listen:
  host: 127.0.0.1
  port: 5001
  read_timeout: 1m
  write_timeout: 10s
game:
  code_length: 5
  colors: BGRPYOW
  max_guesses: 8
logging:
  level: debug
  format: console
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Listen.Port)
	assert.Equal(t, 5, cfg.Game.CodeLength)
	assert.Equal(t, "BGRPYOW", cfg.Game.Colors)
	assert.Equal(t, 8, cfg.Game.MaxGuesses)
	assert.Equal(t, 64, cfg.Game.OutboxBuffer, "defaults must fill omitted keys")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidatePortRange(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		cfg := validConfig()
		cfg.Listen.Port = port
		assert.Error(t, cfg.Validate(), "port %d should be invalid", port)
	}
}

func TestValidateCodeLength(t *testing.T) {
	cfg := validConfig()
	cfg.Game.CodeLength = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Game.CodeLength = 17
	assert.Error(t, cfg.Validate())
}

func TestValidateColors(t *testing.T) {
	cfg := validConfig()
	cfg.Game.Colors = "B"
	assert.Error(t, cfg.Validate(), "single-symbol alphabet is invalid")

	cfg = validConfig()
	cfg.Game.Colors = "BGRB"
	assert.Error(t, cfg.Validate(), "repeated symbols are invalid")

	cfg = validConfig()
	cfg.Game.Colors = "bgrp"
	assert.Error(t, cfg.Validate(), "lowercase symbols are invalid")
}

func TestValidateMaxGuesses(t *testing.T) {
	cfg := validConfig()
	cfg.Game.MaxGuesses = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateLogging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

// TestValidate_CollectsAllViolations verifies that Validate reports every
// broken section rather than stopping at the first.
func TestValidate_CollectsAllViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Listen.Port = 0
	cfg.Game.MaxGuesses = 0
	cfg.Logging.Level = "bogus"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen.port")
	assert.Contains(t, err.Error(), "game.max_guesses")
	assert.Contains(t, err.Error(), "logging.level")
}

// TestValidateGame_Property checks that any alphabet of distinct uppercase
// letters with sane lengths validates.
func TestValidateGame_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 26).Draw(rt, "n")
		colors := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"[:n]

		cfg := validConfig()
		cfg.Game.Colors = colors
		cfg.Game.CodeLength = rapid.IntRange(1, 16).Draw(rt, "code_length")
		cfg.Game.MaxGuesses = rapid.IntRange(1, 100).Draw(rt, "max_guesses")

		assert.NoError(rt, cfg.Validate(), "alphabet %q must validate", colors)
	})
}
