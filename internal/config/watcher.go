package config

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager loads a config file and watches it for changes. Subscribers get
// the new *Config after a successful reload; broken edits are logged and
// the previous config stays in effect.
type Manager struct {
	path string
	log  *slog.Logger

	mu       sync.Mutex
	cur      *Config
	lastHash uint64
	subs     []chan *Config
}

func NewManager(path string, log *slog.Logger) *Manager {
	return &Manager{path: path, log: log}
}

// Load parses the file and commits it as the current config.
func (m *Manager) Load() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cur = cfg
	m.lastHash = hashConfig(cfg)
	m.mu.Unlock()
	return cfg, nil
}

// Get returns the last committed config (nil before the first Load).
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Subscribe returns a channel receiving each successfully reloaded config.
// Delivery is non-blocking; a slow subscriber misses intermediate configs.
func (m *Manager) Subscribe(buffer int) <-chan *Config {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan *Config, buffer)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

func (m *Manager) publish(cfg *Config) {
	m.mu.Lock()
	subs := append([]chan *Config(nil), m.subs...)
	m.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- cfg:
		default:
		}
	}
}

// Watch blocks until ctx is done, reloading the file on filesystem events.
// The parent directory is watched (not the file itself) so editors that
// replace the file via rename keep working.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(m.path)

	// Debounce: editors tend to emit bursts of events per save.
	var pending *time.Timer
	reload := make(chan struct{}, 1)
	schedule := func() {
		if pending != nil {
			pending.Stop()
		}
		pending = time.AfterFunc(250*time.Millisecond, func() {
			select {
			case reload <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) != 0 {
				schedule()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watcher error", slog.Any("err", err))
		case <-reload:
			m.reload()
		}
	}
}

func (m *Manager) reload() {
	cfg, err := Load(m.path)
	if err != nil {
		m.log.Warn("config reload failed; keeping previous config", slog.Any("err", err))
		return
	}
	h := hashConfig(cfg)

	m.mu.Lock()
	if h == m.lastHash {
		m.mu.Unlock()
		return
	}
	m.cur = cfg
	m.lastHash = h
	m.mu.Unlock()

	m.log.Info("config reloaded", slog.String("path", m.path))
	m.publish(cfg)
}

// hashConfig fingerprints a config so no-op rewrites don't trigger
// subscriber churn.
func hashConfig(cfg *Config) uint64 {
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
