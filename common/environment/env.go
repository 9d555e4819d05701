// Package environment reads configuration overrides from environment
// variables.
//
// Lookups go through an Env value carrying a name prefix, so every Hatoba
// setting lives under HATOBA_* while shared settings (LOG_LEVEL, MATRIX_*)
// can be read with an empty prefix. Every helper reports whether the
// variable was set, which lets callers overlay environment values on top of
// a config file without clobbering file values with defaults.
package environment

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Env looks up variables under a fixed prefix.
type Env struct {
	Prefix string
}

// Prefixed returns an Env for prefix. A trailing underscore is added when
// missing.
func Prefixed(prefix string) Env {
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return Env{Prefix: prefix}
}

// Name returns the full variable name for key.
func (e Env) Name(key string) string {
	return e.Prefix + key
}

// String returns the value of key when it is set and non-empty.
func (e Env) String(key string) (string, bool) {
	v := os.Getenv(e.Name(key))
	return v, v != ""
}

// StringOr returns the value of key or defaultValue.
func (e Env) StringOr(key, defaultValue string) string {
	if v, ok := e.String(key); ok {
		return v
	}
	return defaultValue
}

// Required returns the value of key or an error naming the variable.
func (e Env) Required(key string) (string, error) {
	v, ok := e.String(key)
	if !ok {
		return "", fmt.Errorf("required environment variable %q is not set", e.Name(key))
	}
	return v, nil
}

// Bool parses key with strconv.ParseBool. ok is false when the variable is
// unset or unparsable.
func (e Env) Bool(key string) (value, ok bool) {
	v, set := e.String(key)
	if !set {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Int parses key as a decimal integer.
func (e Env) Int(key string) (int, bool) {
	v, set := e.String(key)
	if !set {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Duration parses key as a time.Duration ("30s", "5m").
func (e Env) Duration(key string) (time.Duration, bool) {
	v, set := e.String(key)
	if !set {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

// List parses key as a comma-separated list, trimming whitespace and
// dropping blank entries.
func (e Env) List(key string) ([]string, bool) {
	v, set := e.String(key)
	if !set {
		return nil, false
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out, len(out) > 0
}
