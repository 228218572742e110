// Package settings persists application configuration as YAML and
// exposes the gesture timing knobs to the engine.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"murmur/gesture"
)

// Settings holds all persisted configuration.
type Settings struct {
	HoldThresholdMs   int    `yaml:"hold_threshold_ms"`
	DoubleTapWindowMs int    `yaml:"double_tap_window_ms"`
	PollIntervalMs    int    `yaml:"poll_interval_ms"`
	Provider          string `yaml:"provider"`
	Language          string `yaml:"language"`
	Paste             bool   `yaml:"paste"`
}

// Store loads, serves and saves Settings. It implements gesture.Store.
type Store struct {
	mu   sync.Mutex
	path string
	s    Settings
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "murmur", "config.yaml")
}

// Default returns Settings with sensible default values.
func Default() Settings {
	return Settings{
		HoldThresholdMs:   350,
		DoubleTapWindowMs: 400,
		PollIntervalMs:    200,
		Provider:          "groq",
		Paste:             true,
	}
}

// Load reads path, filling absent fields with defaults. A missing file
// is not an error: defaults apply and the file is created on first
// Save.
func Load(path string) (*Store, error) {
	st := &Store{path: path, s: Default()}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &st.s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	st.s.fillDefaults()
	return st, nil
}

func (s *Settings) fillDefaults() {
	d := Default()
	if s.HoldThresholdMs <= 0 {
		s.HoldThresholdMs = d.HoldThresholdMs
	}
	if s.DoubleTapWindowMs <= 0 {
		s.DoubleTapWindowMs = d.DoubleTapWindowMs
	}
	if s.PollIntervalMs <= 0 {
		s.PollIntervalMs = d.PollIntervalMs
	}
	if s.Provider == "" {
		s.Provider = d.Provider
	}
}

// Get returns a copy of the current settings.
func (st *Store) Get() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// Timing implements gesture.Store.
func (st *Store) Timing() gesture.Config {
	st.mu.Lock()
	defer st.mu.Unlock()
	return gesture.Config{
		HoldThreshold:   time.Duration(st.s.HoldThresholdMs) * time.Millisecond,
		DoubleTapWindow: time.Duration(st.s.DoubleTapWindowMs) * time.Millisecond,
		PollInterval:    time.Duration(st.s.PollIntervalMs) * time.Millisecond,
	}
}

// SaveTiming implements gesture.Store: persists new thresholds.
func (st *Store) SaveTiming(hold, doubleTap time.Duration) error {
	st.mu.Lock()
	st.s.HoldThresholdMs = int(hold / time.Millisecond)
	st.s.DoubleTapWindowMs = int(doubleTap / time.Millisecond)
	st.mu.Unlock()
	return st.Save()
}

// Save writes the settings atomically (temp file + rename).
func (st *Store) Save() error {
	st.mu.Lock()
	data, err := yaml.Marshal(st.s)
	path := st.path
	st.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}
