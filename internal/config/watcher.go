package config

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultWatchInterval is how often a [Watcher] polls by default.
const DefaultWatchInterval = 5 * time.Second

// Watcher keeps a configuration file and its .env companion loaded. A
// background poller reloads whenever either file's content changes; invalid
// content is logged once and the last good configuration stays current.
type Watcher struct {
	path     string
	dotenv   string
	interval time.Duration
	clock    clockwork.Clock
	onChange func(old, new *Config)

	reloadMu sync.Mutex // serialises Reload

	mu      sync.Mutex
	current *Config
	seen    sources

	done     chan struct{}
	stopOnce sync.Once
}

// sources identifies the file contents a configuration was last read from.
type sources struct {
	cfgMod time.Time
	envMod time.Time
	hash   [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Default: [DefaultWatchInterval].
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithDotEnv sets the .env file consulted for ${VAR} references. The
// default is ".env" next to the config file.
func WithDotEnv(path string) WatcherOption {
	return func(w *Watcher) { w.dotenv = path }
}

// WithWatchClock replaces the real clock driving the poller.
func WithWatchClock(c clockwork.Clock) WatcherOption {
	return func(w *Watcher) { w.clock = c }
}

// NewWatcher loads path and starts polling it. onChange, if non-nil, is
// called after every successful reload that changed the content.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		dotenv:   filepath.Join(filepath.Dir(path), ".env"),
		interval: DefaultWatchInterval,
		clock:    clockwork.NewRealClock(),
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	src, data, env, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	cfg, err := decode(data, env)
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current, w.seen = cfg, src

	ticker := w.clock.NewTicker(w.interval)
	go w.poll(ticker)
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) poll(ticker clockwork.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.Chan():
			if !w.modified() {
				continue
			}
			if _, err := w.Reload(); err != nil {
				slog.Warn("config: reload failed; keeping previous configuration", "path", w.path, "err", err)
			}
		}
	}
}

// modified reports whether either file's modification time moved.
func (w *Watcher) modified() bool {
	cfgMod, err := modTime(w.path)
	if err != nil {
		slog.Warn("config: cannot stat file", "path", w.path, "err", err)
		return false
	}
	envMod, _ := modTime(w.dotenv)

	w.mu.Lock()
	defer w.mu.Unlock()
	return !cfgMod.Equal(w.seen.cfgMod) || !envMod.Equal(w.seen.envMod)
}

// Reload re-reads both files now. It reports whether a new configuration
// was installed. Content that is unchanged since the last attempt, valid or
// not, is skipped without error.
func (w *Watcher) Reload() (bool, error) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	src, data, env, err := w.read()
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	unchanged := src.hash == w.seen.hash
	w.seen = src
	w.mu.Unlock()
	if unchanged {
		return false, nil
	}

	cfg, err := decode(data, env)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	old := w.current
	w.current = cfg
	w.mu.Unlock()

	slog.Info("config: configuration reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
	return true, nil
}

// read loads both files and fingerprints their combined content.
func (w *Watcher) read() (sources, []byte, map[string]string, error) {
	var src sources

	data, err := os.ReadFile(w.path)
	if err != nil {
		return src, nil, nil, err
	}
	src.cfgMod, err = modTime(w.path)
	if err != nil {
		return src, nil, nil, err
	}

	envData, err := os.ReadFile(w.dotenv)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return src, nil, nil, fmt.Errorf("config: read %q: %w", w.dotenv, err)
	}
	src.envMod, _ = modTime(w.dotenv)
	env, err := readDotEnv(w.dotenv)
	if err != nil {
		return src, nil, nil, err
	}

	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write(envData)
	copy(src.hash[:], h.Sum(nil))
	return src, data, env, nil
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
