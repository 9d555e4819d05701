package config

import (
	"strings"

	"github.com/bdobrica/Hatoba/common/environment"
)

// Env prefixes. Matrix and log settings are shared with the other services
// and carry no prefix.
var (
	hatobaEnv = environment.Prefixed("HATOBA")
	sharedEnv = environment.Prefixed("")
)

// ConfigFileEnv names the variable holding the config file path.
const ConfigFileEnv = "HATOBA_CONFIG_FILE"

// FileFromEnv returns the config file path from the environment, or "".
func FileFromEnv() string {
	return hatobaEnv.StringOr("CONFIG_FILE", "")
}

// ApplyEnv overlays environment variables on cfg. Unset variables leave the
// file values untouched.
func ApplyEnv(cfg *Config) {
	if v, ok := hatobaEnv.String("SOURCE"); ok {
		cfg.Source = strings.TrimSpace(v)
	}
	if v, ok := hatobaEnv.List("EVENTS"); ok {
		cfg.Events = v
	}
	if v, ok := hatobaEnv.String("CHAT_IDS"); ok {
		cfg.Filters.ChatIDs = v
	}
	if v, ok := hatobaEnv.String("USER_IDS"); ok {
		cfg.Filters.UserIDs = v
	}

	if v, ok := hatobaEnv.String("ADDR"); ok {
		cfg.Server.Addr = v
	}
	if v, ok := hatobaEnv.String("SECRET"); ok {
		cfg.Server.Secret = v
	}
	if v, ok := hatobaEnv.Int("RATE_LIMIT"); ok {
		cfg.Server.RateLimit = v
	}

	if v, ok := hatobaEnv.Bool("STDOUT"); ok {
		cfg.Sinks.Stdout = v
	}
	if v, ok := hatobaEnv.String("FORWARD_URL"); ok {
		cfg.Sinks.Forward.URL = v
	}
	if v, ok := hatobaEnv.String("FORWARD_TOKEN"); ok {
		cfg.Sinks.Forward.Token = v
	}
	if v, ok := hatobaEnv.Duration("FORWARD_TIMEOUT"); ok {
		cfg.Sinks.Forward.Timeout = v
	}

	if v, ok := sharedEnv.String("MATRIX_HOMESERVER"); ok {
		cfg.Sinks.Matrix.Homeserver = v
	}
	if v, ok := sharedEnv.String("MATRIX_USER_ID"); ok {
		cfg.Sinks.Matrix.UserID = v
	}
	if v, ok := sharedEnv.String("MATRIX_ACCESS_TOKEN"); ok {
		cfg.Sinks.Matrix.AccessToken = v
	}
	if v, ok := sharedEnv.String("MATRIX_ROOM_ID"); ok {
		cfg.Sinks.Matrix.RoomID = v
	}

	if v, ok := sharedEnv.String("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := sharedEnv.String("LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
}
