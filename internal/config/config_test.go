package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/talgya/hexsettlers/internal/client"
	"github.com/talgya/hexsettlers/internal/legality"
)

var keys = []string{
	"HEX_WS_URL", "HEX_PLAYER", "HEX_TOKEN", "HEX_JOURNAL", "HEX_SCALE",
	"HEX_REDIAL_SECONDS", "HEX_PREFER_SERVER_LEGALITY", "HEX_SETUP_PHASE", "HEX_LOG_LEVEL",
}

// clearEnv unsets every HEX_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("HEX_JOURNAL")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.URL != "ws://127.0.0.1:8000/ws" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.JournalPath != "data/journal.db" {
		t.Errorf("JournalPath = %q", cfg.JournalPath)
	}
	if cfg.Scale != 20 || cfg.Redial != 2*time.Second {
		t.Errorf("scale %v redial %v", cfg.Scale, cfg.Redial)
	}
	if cfg.Source != legality.SourceServerPreferred || cfg.Setup != client.SetupAuto || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("source %d setup %d level %v", cfg.Source, cfg.Setup, cfg.LogLevel)
	}
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HEX_WS_URL", "ws://game:9000/ws")
	t.Setenv("HEX_PLAYER", " red ")
	t.Setenv("HEX_JOURNAL", "/tmp/j.db")
	t.Setenv("HEX_SCALE", "32.5")
	t.Setenv("HEX_REDIAL_SECONDS", "5")
	t.Setenv("HEX_PREFER_SERVER_LEGALITY", "false")
	t.Setenv("HEX_SETUP_PHASE", "on")
	t.Setenv("HEX_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		URL:         "ws://game:9000/ws",
		Player:      "red",
		JournalPath: "/tmp/j.db",
		Scale:       32.5,
		Redial:      5 * time.Second,
		Source:      legality.SourceLocal,
		Setup:       client.SetupOn,
		LogLevel:    slog.LevelDebug,
	}
	if cfg != want {
		t.Errorf("got %+v\nwant %+v", cfg, want)
	}
}

func TestEmptyJournalDisables(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	// t.Setenv("", ...) leaves the variable set but empty.
	if cfg.JournalPath != "" {
		t.Errorf("JournalPath = %q, want disabled", cfg.JournalPath)
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"HEX_PREFER_SERVER_LEGALITY", "maybe"},
		{"HEX_SETUP_PHASE", "sometimes"},
		{"HEX_LOG_LEVEL", "loud"},
		{"HEX_SCALE", "-3"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s accepted", tt.key, tt.value)
			}
		})
	}
}
