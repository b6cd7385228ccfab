package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
redis:
  addr: localhost:6379
scheduler:
  interval: 2s
dispatcher:
  workers: 5
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Dispatcher.Workers != 5 {
		t.Fatalf("unexpected values %+v", cfg)
	}
	if cfg.Server.Port != "8080" || cfg.Dispatcher.Queue != "grading-queue" || cfg.Notifications.Channel != "notifications" || cfg.Scheduler.Concurrency != 4 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if got := Duration(cfg.Scheduler.Interval, 5*time.Second); got != 2*time.Second {
		t.Fatalf("expected 2s interval, got %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDuration(t *testing.T) {
	for raw, want := range map[string]time.Duration{
		"":      time.Minute,
		"bogus": time.Minute,
		"-1s":   time.Minute,
		"90s":   90 * time.Second,
	} {
		if got := Duration(raw, time.Minute); got != want {
			t.Fatalf("Duration(%q) = %s, want %s", raw, got, want)
		}
	}
}
