// Package config reads client settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/hexsettlers/internal/client"
	"github.com/talgya/hexsettlers/internal/legality"
)

// Config holds everything the commands need to start.
type Config struct {
	URL         string
	Player      string
	Token       string
	JournalPath string // empty disables the journal
	Scale       float64
	Redial      time.Duration
	Source      legality.Source
	Setup       client.SetupMode
	LogLevel    slog.Level
}

// Load reads the HEX_* environment variables, applying defaults for unset
// ones. Unparseable numbers fall back to their default; unknown enum values
// are errors.
func Load() (Config, error) {
	cfg := Config{
		URL:         envOrDefault("HEX_WS_URL", "ws://127.0.0.1:8000/ws"),
		Player:      strings.TrimSpace(os.Getenv("HEX_PLAYER")),
		Token:       strings.TrimSpace(os.Getenv("HEX_TOKEN")),
		JournalPath: "data/journal.db",
		Scale:       envFloatOrDefault("HEX_SCALE", 20),
		Redial:      time.Duration(envIntOrDefault("HEX_REDIAL_SECONDS", 2)) * time.Second,
		Source:      legality.SourceServerPreferred,
	}
	if v, ok := os.LookupEnv("HEX_JOURNAL"); ok {
		cfg.JournalPath = strings.TrimSpace(v)
	}
	if cfg.Scale <= 0 {
		return Config{}, fmt.Errorf("HEX_SCALE must be positive, got %v", cfg.Scale)
	}
	if cfg.Redial <= 0 {
		cfg.Redial = 2 * time.Second
	}

	prefer, err := strconv.ParseBool(envOrDefault("HEX_PREFER_SERVER_LEGALITY", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("HEX_PREFER_SERVER_LEGALITY: %w", err)
	}
	if !prefer {
		cfg.Source = legality.SourceLocal
	}

	if cfg.Setup, err = client.ParseSetupMode(os.Getenv("HEX_SETUP_PHASE")); err != nil {
		return Config{}, fmt.Errorf("HEX_SETUP_PHASE: %w", err)
	}
	if cfg.LogLevel, err = ParseLevel(envOrDefault("HEX_LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("HEX_LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}

// Logger returns the text logger the commands install as default.
func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: c.LogLevel,
	}))
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloatOrDefault(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
