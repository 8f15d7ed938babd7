package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrWong99/woohoo/internal/config"
)

const watcherValidYAML = `
log_level: info
challenge:
  strategy: rms
claim:
  base_url: https://rewards.example.com/api
`

const watcherUpdatedYAML = `
log_level: debug
challenge:
  strategy: average
claim:
  base_url: https://rewards.example.com/api
`

// writeFile writes content and moves the file's mtime forward so every
// write is observable regardless of filesystem timestamp granularity.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
	touch(t, path)
}

func touch(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	next := info.ModTime().Add(time.Second)
	if err := os.Chtimes(path, next, next); err != nil {
		t.Fatalf("touch %q: %v", path, err)
	}
}

type change struct{ old, new *config.Config }

func newTestWatcher(t *testing.T, yaml string) (*config.Watcher, string, chan change) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "woohoo.yaml")
	writeFile(t, path, yaml)

	changes := make(chan change, 4)
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		changes <- change{old, new}
	}, config.WithWatchClock(clockwork.NewFakeClock()))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return w, path, changes
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestWatcher(t, watcherValidYAML)

	cfg := w.Current()
	if cfg.LogLevel != config.LogInfo || cfg.Challenge.Strategy != "rms" {
		t.Errorf("Current() = %+v", cfg)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher("/nonexistent/woohoo.yaml", nil); err == nil {
		t.Error("missing file: expected error")
	}

	path := filepath.Join(t.TempDir(), "woohoo.yaml")
	writeFile(t, path, "log_level: bananas\n")
	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Error("invalid file: expected error")
	}
}

func TestWatcher_PollsForChanges(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "woohoo.yaml")
	writeFile(t, path, watcherValidYAML)

	clock := clockwork.NewFakeClock()
	changes := make(chan change, 1)
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		changes <- change{old, new}
	}, config.WithWatchClock(clock), config.WithInterval(time.Second))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("poller never started: %v", err)
	}

	writeFile(t, path, watcherUpdatedYAML)
	clock.Advance(time.Second)

	var c change
	select {
	case c = <-changes:
	case <-ctx.Done():
		t.Fatal("onChange was not called")
	}
	if c.old.LogLevel != config.LogInfo || c.new.LogLevel != config.LogDebug {
		t.Errorf("change = %q -> %q, want info -> debug", c.old.LogLevel, c.new.LogLevel)
	}
	if d := config.Diff(c.old, c.new); !d.LogLevelChanged || !d.ChallengeChanged || d.ClaimChanged {
		t.Errorf("Diff = %+v, want log level and challenge changes only", d)
	}
	if w.Current() != c.new {
		t.Error("Current() is not the new configuration")
	}
}

func TestWatcher_Reload(t *testing.T) {
	t.Parallel()
	w, path, changes := newTestWatcher(t, watcherValidYAML)

	steps := []struct {
		name        string
		write       string
		touchOnly   bool
		wantChanged bool
		wantErr     bool
		wantLevel   config.LogLevel
	}{
		{name: "unchanged", wantLevel: config.LogInfo},
		{name: "touched", touchOnly: true, wantLevel: config.LogInfo},
		{name: "invalid", write: "log_level: bananas\n", wantErr: true, wantLevel: config.LogInfo},
		{name: "same invalid content", touchOnly: true, wantLevel: config.LogInfo},
		{name: "fixed", write: watcherUpdatedYAML, wantChanged: true, wantLevel: config.LogDebug},
	}
	for _, s := range steps {
		switch {
		case s.write != "":
			writeFile(t, path, s.write)
		case s.touchOnly:
			touch(t, path)
		}

		changed, err := w.Reload()
		if changed != s.wantChanged || (err != nil) != s.wantErr {
			t.Fatalf("%s: Reload() = %v, %v; want changed=%v err=%v", s.name, changed, err, s.wantChanged, s.wantErr)
		}
		if got := w.Current().LogLevel; got != s.wantLevel {
			t.Fatalf("%s: Current().LogLevel = %q, want %q", s.name, got, s.wantLevel)
		}
	}
	if len(changes) != 1 {
		t.Errorf("onChange called %d times, want 1", len(changes))
	}
}

func TestWatcher_DotEnv(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "woohoo.yaml")
	env := filepath.Join(dir, ".env")
	writeFile(t, env, "WOOHOO_TEST_WATCH_URL=https://a.example.com\n")
	writeFile(t, path, "claim:\n  base_url: ${WOOHOO_TEST_WATCH_URL}\n")

	w, err := config.NewWatcher(path, nil, config.WithWatchClock(clockwork.NewFakeClock()))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Claim.BaseURL; got != "https://a.example.com" {
		t.Errorf("claim.base_url = %q, want value from .env", got)
	}

	writeFile(t, env, "WOOHOO_TEST_WATCH_URL=https://b.example.com\n")
	if changed, err := w.Reload(); !changed || err != nil {
		t.Fatalf("Reload() after .env edit = %v, %v", changed, err)
	}
	if got := w.Current().Claim.BaseURL; got != "https://b.example.com" {
		t.Errorf("claim.base_url = %q after .env edit", got)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestWatcher(t, watcherValidYAML)
	w.Stop()
	w.Stop()
}
