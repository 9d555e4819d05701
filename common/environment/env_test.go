package environment_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/bdobrica/Hatoba/common/environment"
)

func TestPrefixed_AddsUnderscore(t *testing.T) {
	if got := environment.Prefixed("HATOBA").Name("ADDR"); got != "HATOBA_ADDR" {
		t.Errorf("Name: got %q, want %q", got, "HATOBA_ADDR")
	}
	if got := environment.Prefixed("HATOBA_").Name("ADDR"); got != "HATOBA_ADDR" {
		t.Errorf("Name: got %q, want %q", got, "HATOBA_ADDR")
	}
	if got := environment.Prefixed("").Name("LOG_LEVEL"); got != "LOG_LEVEL" {
		t.Errorf("Name: got %q, want %q", got, "LOG_LEVEL")
	}
}

func TestStringOr(t *testing.T) {
	env := environment.Prefixed("TEST")
	t.Setenv("TEST_STRING", "hello")
	if got := env.StringOr("STRING", "default"); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
	if got := env.StringOr("STRING_MISSING", "default"); got != "default" {
		t.Errorf("expected %q, got %q", "default", got)
	}
}

func TestRequired(t *testing.T) {
	env := environment.Prefixed("TEST")
	t.Setenv("TEST_REQUIRED", "value")
	v, err := env.Required("REQUIRED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "value" {
		t.Errorf("expected %q, got %q", "value", v)
	}
	if _, err := env.Required("REQUIRED_MISSING"); err == nil {
		t.Error("expected error for missing variable, got nil")
	}
}

func TestBool(t *testing.T) {
	env := environment.Prefixed("TEST")
	t.Setenv("TEST_BOOL", "true")
	if v, ok := env.Bool("BOOL"); !ok || !v {
		t.Errorf("Bool: got (%v, %v), want (true, true)", v, ok)
	}
	t.Setenv("TEST_BOOL", "0")
	if v, ok := env.Bool("BOOL"); !ok || v {
		t.Errorf("Bool: got (%v, %v), want (false, true)", v, ok)
	}
	t.Setenv("TEST_BOOL", "maybe")
	if _, ok := env.Bool("BOOL"); ok {
		t.Error("expected unparsable value to report unset")
	}
}

func TestInt(t *testing.T) {
	env := environment.Prefixed("TEST")
	t.Setenv("TEST_INT", "42")
	if n, ok := env.Int("INT"); !ok || n != 42 {
		t.Errorf("Int: got (%d, %v), want (42, true)", n, ok)
	}
	t.Setenv("TEST_INT_BAD", "notanint")
	if _, ok := env.Int("INT_BAD"); ok {
		t.Error("expected bad value to report unset")
	}
}

func TestDuration(t *testing.T) {
	env := environment.Prefixed("TEST")
	t.Setenv("TEST_DUR", "5m")
	if d, ok := env.Duration("DUR"); !ok || d != 5*time.Minute {
		t.Errorf("Duration: got (%v, %v), want (5m, true)", d, ok)
	}
	if _, ok := env.Duration("DUR_MISSING"); ok {
		t.Error("expected missing duration to report unset")
	}
}

func TestList(t *testing.T) {
	env := environment.Prefixed("TEST")
	t.Setenv("TEST_LIST", " a, b ,, c ")
	got, ok := env.List("LIST")
	if !ok {
		t.Fatal("expected list to be set")
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List: got %v, want %v", got, want)
	}
	t.Setenv("TEST_LIST", " , ")
	if _, ok := env.List("LIST"); ok {
		t.Error("expected all-blank list to report unset")
	}
}
