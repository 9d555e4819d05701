package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bdobrica/Hatoba/internal/hatoba/webhook"
)

type fakeStatus struct {
	stats webhook.Stats
	hash  string
}

func (f *fakeStatus) Stats() webhook.Stats { return f.stats }
func (f *fakeStatus) ConfigHash() string   { return f.hash }

func get(t *testing.T, h http.Handler, path string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: got %d, want 200", path, w.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestServer_Health(t *testing.T) {
	s := NewServer("127.0.0.1:0", &fakeStatus{})
	if resp := get(t, s, "/health"); resp["status"] != "ok" {
		t.Errorf("status: got %v, want ok", resp["status"])
	}
}

func TestServer_Status(t *testing.T) {
	s := NewServer("127.0.0.1:0", &fakeStatus{stats: webhook.Stats{Deliveries: 4, Records: 3}, hash: "abc"})
	resp := get(t, s, "/status")
	if resp["config_hash"] != "abc" {
		t.Errorf("config_hash: got %v", resp["config_hash"])
	}
	wh, ok := resp["webhook"].(map[string]any)
	if !ok || wh["deliveries"] != float64(4) || wh["records"] != float64(3) {
		t.Errorf("webhook: got %v", resp["webhook"])
	}
}

func TestServer_Metrics(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("metrics output missing default collectors")
	}
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestApp_EndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hatoba.yaml")
	writeConfig(t, path, "events: [message_created]\nserver:\n  addr: \"127.0.0.1:0\"\n")

	var out bytes.Buffer
	a, err := New(Options{ConfigFile: path, Stdout: &out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	body := `{"update_type":"message_created","timestamp":1,"message":{"body":{"text":"hi"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/max", strings.NewReader(body))
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("POST: got %d", w.Code)
	}
	if !strings.Contains(out.String(), `"event_id":"evt_`) {
		t.Errorf("stdout sink: got %q", out.String())
	}

	// Reload narrows the allow-list; the same delivery is now dropped.
	writeConfig(t, path, "events: [bot_started]\nserver:\n  addr: \"127.0.0.1:0\"\n")
	a.Reload()
	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/max", strings.NewReader(body)))
	if got := strings.TrimSpace(w.Body.String()); got != "[[]]" {
		t.Errorf("after reload: got %s, want [[]]", got)
	}

	// An invalid document is rejected and the live config kept.
	before := a.ConfigHash()
	writeConfig(t, path, "server:\n  rate_limit: -5\n")
	a.Reload()
	if a.ConfigHash() != before {
		t.Error("rejected reload changed the config hash")
	}
}

func TestApp_ConfiguredSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hatoba.yaml")
	writeConfig(t, path, "source: tamtam\nserver:\n  addr: \"127.0.0.1:0\"\n")

	var out bytes.Buffer
	a, err := New(Options{ConfigFile: path, Stdout: &out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	body := `{"update_type":"bot_started","timestamp":1,"user":{"user_id":1}}`
	for path, want := range map[string]int{"/webhook/max": http.StatusNotFound, "/webhook/tamtam": http.StatusOK} {
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		if w.Code != want {
			t.Errorf("POST %s: got %d, want %d", path, w.Code, want)
		}
	}
	if n := strings.Count(out.String(), "\n"); n != 1 {
		t.Errorf("stdout sink: got %d lines, want 1", n)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hatoba.yaml")
	writeConfig(t, path, "unknown_key: 1\n")
	if _, err := New(Options{ConfigFile: path}); err == nil {
		t.Error("expected error, got nil")
	}
}
