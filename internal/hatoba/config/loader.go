package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Loader holds the live configuration and allows hot reloads. Every applied
// document has passed Parse, the environment overlay and Validate; a
// document that fails any of them leaves the live config untouched.
type Loader struct {
	mu     sync.RWMutex
	config *Config
	hash   string
	path   string
}

// NewLoader creates an empty Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile reads path and applies it. An empty path applies the defaults
// plus environment.
func (l *Loader) LoadFile(path string) error {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	if err := l.Apply(data); err != nil {
		return err
	}
	l.mu.Lock()
	l.path = path
	l.mu.Unlock()
	return nil
}

// Reload re-reads the file last passed to LoadFile.
func (l *Loader) Reload() error {
	l.mu.RLock()
	path := l.path
	l.mu.RUnlock()
	return l.LoadFile(path)
}

// Apply parses, overlays and validates data, then atomically replaces the
// current config.
func (l *Loader) Apply(data []byte) error {
	cfg, err := Parse(data)
	if err != nil {
		return err
	}
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, w := range Warnings(cfg) {
		slog.Warn("config warning", "detail", w)
	}

	h := sha256.Sum256(data)
	hash := hex.EncodeToString(h[:])

	l.mu.Lock()
	defer l.mu.Unlock()
	l.config = cfg
	l.hash = hash

	slog.Info("config applied", "source", cfg.Source, "hash", hash[:12])
	return nil
}

// Config returns the live config, or nil before the first Apply.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Hash returns the SHA-256 hex digest of the applied document.
func (l *Loader) Hash() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hash
}
