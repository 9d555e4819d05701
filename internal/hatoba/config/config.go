// Package config holds the Hatoba gateway configuration: the YAML document
// layout, its defaults, the environment overlay and the hot-reloadable
// Loader.
package config

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Hatoba/internal/hatoba/event"
)

const (
	DefaultSource         = "max"
	DefaultAddr           = ":8080"
	DefaultRateLimit      = 600
	DefaultForwardTimeout = 10 * time.Second
)

// Config is the complete gateway configuration.
type Config struct {
	// Source is the only {source} path segment the webhook accepts; it is
	// stamped on forwarded envelopes.
	Source  string   `yaml:"source" json:"source"`
	Events  []string `yaml:"events" json:"events"`
	Filters Filters  `yaml:"filters" json:"filters"`
	Server  Server   `yaml:"server" json:"server"`
	Sinks   Sinks    `yaml:"sinks" json:"sinks"`
	Log     Log      `yaml:"log" json:"log"`
}

// Filters are comma-separated id allow-lists.
type Filters struct {
	ChatIDs string `yaml:"chat_ids" json:"chat_ids"`
	UserIDs string `yaml:"user_ids" json:"user_ids"`
}

// Server configures the webhook listener.
type Server struct {
	Addr   string `yaml:"addr" json:"addr"`
	Secret string `yaml:"secret" json:"secret"`
	// RateLimit is the number of deliveries accepted per source per minute.
	// Zero disables limiting.
	RateLimit int `yaml:"rate_limit" json:"rate_limit"`
}

// Sinks selects where records go.
type Sinks struct {
	Stdout  bool    `yaml:"stdout" json:"stdout"`
	Forward Forward `yaml:"forward" json:"forward"`
	Matrix  Matrix  `yaml:"matrix" json:"matrix"`
}

// Forward posts each record, wrapped in an envelope, to an HTTP endpoint.
type Forward struct {
	URL     string        `yaml:"url" json:"url"`
	Token   string        `yaml:"token" json:"token"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Enabled reports whether a forward URL is configured.
func (f Forward) Enabled() bool { return f.URL != "" }

// Matrix posts a notice per record to an operator room.
type Matrix struct {
	Homeserver  string `yaml:"homeserver" json:"homeserver"`
	UserID      string `yaml:"user_id" json:"user_id"`
	AccessToken string `yaml:"access_token" json:"access_token"`
	RoomID      string `yaml:"room_id" json:"room_id"`
}

// Enabled reports whether any Matrix setting is present. Validate rejects a
// partially filled block.
func (m Matrix) Enabled() bool {
	return m.Homeserver != "" || m.UserID != "" || m.AccessToken != "" || m.RoomID != ""
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source: DefaultSource,
		Events: []string{},
		Server: Server{Addr: DefaultAddr, RateLimit: DefaultRateLimit},
		Sinks: Sinks{
			Stdout:  true,
			Forward: Forward{Timeout: DefaultForwardTimeout},
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Parse checks a YAML document against the schema and decodes it over the
// defaults. An empty document yields Default(). Parse does not apply the
// environment overlay or the semantic checks of Validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := checkSchema(data); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	return cfg, nil
}

// PipelineOptions maps the configuration onto event pipeline settings.
func (c *Config) PipelineOptions() event.Options {
	return event.Options{
		Events:  append([]string(nil), c.Events...),
		ChatIDs: c.Filters.ChatIDs,
		UserIDs: c.Filters.UserIDs,
	}
}

// Summary returns a loggable view of the configuration. Secrets are left in
// place; callers pass it through redact.Map.
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"source": c.Source,
		"events": c.Events,
		"filters": map[string]any{
			"chat_ids": c.Filters.ChatIDs,
			"user_ids": c.Filters.UserIDs,
		},
		"server": map[string]any{
			"addr":       c.Server.Addr,
			"secret":     c.Server.Secret,
			"rate_limit": c.Server.RateLimit,
		},
		"sinks": map[string]any{
			"stdout": c.Sinks.Stdout,
			"forward": map[string]any{
				"url":     c.Sinks.Forward.URL,
				"token":   c.Sinks.Forward.Token,
				"timeout": c.Sinks.Forward.Timeout.String(),
			},
			"matrix": map[string]any{
				"homeserver":   c.Sinks.Matrix.Homeserver,
				"user_id":      c.Sinks.Matrix.UserID,
				"access_token": c.Sinks.Matrix.AccessToken,
				"room_id":      c.Sinks.Matrix.RoomID,
			},
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
	}
}
