package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bdobrica/Hatoba/common/trace"
	"github.com/bdobrica/Hatoba/internal/hatoba/event"
)

const createdPayload = `{"update_type":"message_created","timestamp":1640995200000,` +
	`"message":{"sender":{"user_id":456},"recipient":{"chat_id":123},"body":{"mid":"m1","text":"hi"}}}`

type recordingSink struct {
	mu      sync.Mutex
	sources []string
	records []event.Record
	err     error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, source string, rec event.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, source)
	s.records = append(s.records, rec)
	return s.err
}

func post(h http.Handler, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBatches(t *testing.T, rr *httptest.ResponseRecorder) [][]map[string]any {
	t.Helper()
	var out [][]map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not a batch of batches: %v (%s)", err, rr.Body.String())
	}
	return out
}

func TestHandler_Accepted(t *testing.T) {
	sk := &recordingSink{}
	h := New(Settings{Pipeline: event.New(event.Options{Events: []string{"message_created"}})}, sk)

	rr := post(h, "/webhook/max", createdPayload, map[string]string{trace.Header: "t_given"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if got := rr.Header().Get(trace.Header); got != "t_given" {
		t.Errorf("%s: got %q, want t_given", trace.Header, got)
	}
	batches := decodeBatches(t, rr)
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("batches: got %v", batches)
	}
	if batches[0][0]["event_id"] == "" {
		t.Error("event_id missing from response record")
	}
	if len(sk.records) != 1 || sk.sources[0] != "max" {
		t.Errorf("sink: got %d records, sources %v", len(sk.records), sk.sources)
	}
	if s := h.Stats(); s.Deliveries != 1 || s.Records != 1 || s.Rejected != 0 {
		t.Errorf("Stats: got %+v", s)
	}
}

func TestHandler_DroppedStillOK(t *testing.T) {
	sk := &recordingSink{}
	h := New(Settings{Pipeline: event.New(event.Options{Events: []string{"message_edited"}})}, sk)

	for _, body := range []string{createdPayload, `{}`, `not json`} {
		rr := post(h, "/webhook/max", body, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%q: status got %d, want 200", body, rr.Code)
			continue
		}
		if got := strings.TrimSpace(rr.Body.String()); got != "[[]]" {
			t.Errorf("%q: body got %s, want [[]]", body, got)
		}
	}
	if len(sk.records) != 0 {
		t.Errorf("sink received %d records, want 0", len(sk.records))
	}
}

func TestHandler_SinkErrorDoesNotChangeResponse(t *testing.T) {
	sk := &recordingSink{err: errors.New("down")}
	h := New(Settings{}, sk)
	rr := post(h, "/webhook/max", createdPayload, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
	if h.Stats().SinkFailures != 1 {
		t.Errorf("SinkFailures: got %d, want 1", h.Stats().SinkFailures)
	}
}

func TestHandler_MethodAndPath(t *testing.T) {
	h := New(Settings{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhook/max", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: got %d, want 405", rr.Code)
	}
	if rr.Header().Get("Allow") != http.MethodPost {
		t.Errorf("Allow: got %q", rr.Header().Get("Allow"))
	}

	for _, path := range []string{"/webhook/", "/webhook/a/b"} {
		if rr := post(h, path, createdPayload, nil); rr.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", path, rr.Code)
		}
	}
}

func TestHandler_UnknownSource(t *testing.T) {
	sk := &recordingSink{}
	h := New(Settings{Source: "max", RateLimit: 5}, sk)

	for i := 0; i < 1000; i++ {
		if rr := post(h, fmt.Sprintf("/webhook/junk%d", i), createdPayload, nil); rr.Code != http.StatusNotFound {
			t.Fatalf("junk%d: got %d, want 404", i, rr.Code)
		}
	}
	if n := h.state.Load().limiter.size(); n != 0 {
		t.Errorf("limiter buckets after unknown sources: got %d, want 0", n)
	}
	if len(sk.records) != 0 {
		t.Errorf("sink received %d records, want 0", len(sk.records))
	}
	if s := h.Stats(); s.Rejected != 1000 || s.Deliveries != 0 {
		t.Errorf("Stats: got %+v", s)
	}
}

func TestHandler_ConfiguredSourceReachesSink(t *testing.T) {
	sk := &recordingSink{}
	h := New(Settings{Source: "tamtam"}, sk)

	if rr := post(h, "/webhook/max", createdPayload, nil); rr.Code != http.StatusNotFound {
		t.Errorf("default source after override: got %d, want 404", rr.Code)
	}
	if rr := post(h, "/webhook/tamtam", createdPayload, nil); rr.Code != http.StatusOK {
		t.Fatalf("configured source: got %d, want 200", rr.Code)
	}
	if len(sk.sources) != 1 || sk.sources[0] != "tamtam" {
		t.Errorf("sink sources: got %v, want [tamtam]", sk.sources)
	}

	h.Update(Settings{Source: "max"})
	if rr := post(h, "/webhook/tamtam", createdPayload, nil); rr.Code != http.StatusNotFound {
		t.Errorf("old source after update: got %d, want 404", rr.Code)
	}
}

func TestHandler_Secret(t *testing.T) {
	sk := &recordingSink{}
	h := New(Settings{Secret: "s3cret"}, sk)

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write([]byte(createdPayload))
	goodSig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{SecretHeader: "nope"}, http.StatusUnauthorized},
		{"platform header", map[string]string{SecretHeader: "s3cret"}, http.StatusOK},
		{"alt header", map[string]string{AltSecretHeader: "s3cret"}, http.StatusOK},
		{"signature", map[string]string{SignatureHeader: goodSig}, http.StatusOK},
		{"bad signature", map[string]string{SignatureHeader: "sha256=00"}, http.StatusUnauthorized},
		{"signature without scheme", map[string]string{SignatureHeader: "abc"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := post(h, "/webhook/max", createdPayload, tt.header); rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
	if len(sk.records) != 3 {
		t.Errorf("sink: got %d records, want 3", len(sk.records))
	}
}

func TestHandler_BodyTooLarge(t *testing.T) {
	h := New(Settings{}, nil)
	big := `{"update_type":"message_created","pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	if rr := post(h, "/webhook/max", big, nil); rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status: got %d, want 413", rr.Code)
	}
}

func TestHandler_RateLimit(t *testing.T) {
	h := New(Settings{RateLimit: 2}, nil)
	for i := 0; i < 2; i++ {
		if rr := post(h, "/webhook/max", createdPayload, nil); rr.Code != http.StatusOK {
			t.Fatalf("delivery %d: got %d, want 200", i, rr.Code)
		}
	}
	if rr := post(h, "/webhook/max", createdPayload, nil); rr.Code != http.StatusTooManyRequests {
		t.Errorf("third delivery: got %d, want 429", rr.Code)
	}

	// Same limit keeps the window; a new limit resets it.
	h.Update(Settings{RateLimit: 2})
	if rr := post(h, "/webhook/max", createdPayload, nil); rr.Code != http.StatusTooManyRequests {
		t.Errorf("after same-limit update: got %d, want 429", rr.Code)
	}
	h.Update(Settings{RateLimit: 3})
	if rr := post(h, "/webhook/max", createdPayload, nil); rr.Code != http.StatusOK {
		t.Errorf("after new-limit update: got %d, want 200", rr.Code)
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("max") {
		t.Fatal("first call: got false")
	}
	if rl.Allow("max") {
		t.Fatal("second call in window: got true")
	}
	now = now.Add(time.Minute + time.Second)
	if !rl.Allow("max") {
		t.Error("after window: got false")
	}
}

func TestRateLimiter_EvictsExpiredWindows(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	for _, s := range []string{"a", "b", "c"} {
		rl.Allow(s)
	}
	if n := rl.size(); n != 3 {
		t.Fatalf("size: got %d, want 3", n)
	}
	now = now.Add(2 * time.Minute)
	if !rl.Allow("d") {
		t.Fatal("Allow(d): got false")
	}
	if n := rl.size(); n != 1 {
		t.Errorf("size after expiry: got %d, want 1", n)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := newRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !rl.Allow("max") {
			t.Fatalf("call %d: got false with limit 0", i)
		}
	}
}

func TestRegisterRoutes(t *testing.T) {
	mux := http.NewServeMux()
	New(Settings{}, nil).RegisterRoutes(mux)
	if rr := post(mux, "/webhook/max", createdPayload, nil); rr.Code != http.StatusOK {
		t.Errorf("status via mux: got %d, want 200", rr.Code)
	}
}
