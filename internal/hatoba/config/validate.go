package config

import (
	"fmt"
	"net/url"
	"strings"

	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Hatoba/internal/hatoba/event"
)

// Validate checks a Config for semantic correctness. It returns the first
// problem found, or nil.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}

	if strings.TrimSpace(cfg.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}

	for i, e := range cfg.Events {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("events[%d]: must not be empty", i)
		}
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be >= 0, got %d", cfg.Server.RateLimit)
	}

	if err := validateForward(cfg.Sinks.Forward); err != nil {
		return fmt.Errorf("sinks.forward: %w", err)
	}
	if err := validateMatrix(cfg.Sinks.Matrix); err != nil {
		return fmt.Errorf("sinks.matrix: %w", err)
	}
	return nil
}

func validateForward(f Forward) error {
	if !f.Enabled() {
		return nil
	}
	u, err := url.Parse(f.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url must have a host")
	}
	if f.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", f.Timeout)
	}
	return nil
}

func validateMatrix(m Matrix) error {
	if !m.Enabled() {
		return nil
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"homeserver", m.Homeserver},
		{"user_id", m.UserID},
		{"access_token", m.AccessToken},
		{"room_id", m.RoomID},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete, missing %s", strings.Join(missing, ", "))
	}
	if _, _, err := id.UserID(m.UserID).Parse(); err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	if !strings.HasPrefix(m.RoomID, "!") {
		return fmt.Errorf("room_id must start with '!', got %q", m.RoomID)
	}
	return nil
}

// Warnings lists settings that are accepted but probably unintended.
func Warnings(cfg *Config) []string {
	var out []string
	for _, e := range cfg.Events {
		if !event.UpdateType(e).IsKnown() {
			out = append(out, fmt.Sprintf("events: %q is not a known update type and will be handled as unknown", e))
		}
	}
	if !cfg.Sinks.Stdout && !cfg.Sinks.Forward.Enabled() && !cfg.Sinks.Matrix.Enabled() {
		out = append(out, "sinks: no sink enabled, records are only returned to the caller")
	}
	return out
}
