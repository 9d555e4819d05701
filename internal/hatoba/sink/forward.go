package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bdobrica/Hatoba/common/redact"
	"github.com/bdobrica/Hatoba/common/spec/envelope"
	"github.com/bdobrica/Hatoba/common/trace"
	"github.com/bdobrica/Hatoba/common/version"
	"github.com/bdobrica/Hatoba/internal/hatoba/event"
)

// IdempotencyHeader carries the record's event_id on forwarded requests.
const IdempotencyHeader = "X-Idempotency-Key"

// maxResponseBytes caps how much of a consumer response is drained.
const maxResponseBytes = 64 * 1024

// ForwardSink POSTs each record, wrapped in an envelope.Event, to a
// consumer endpoint.
type ForwardSink struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewForwardSink creates a ForwardSink posting to url with an optional bearer
// token.
func NewForwardSink(url, token string, timeout time.Duration) *ForwardSink {
	return &ForwardSink{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Sink.
func (s *ForwardSink) Name() string { return "forward" }

// Deliver implements Sink. A non-2xx response is an error.
func (s *ForwardSink) Deliver(ctx context.Context, source string, rec event.Record) error {
	data, err := rec.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	ts := rec.Metadata.ReceivedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	evt := envelope.New(source, string(rec.UpdateType), rec.EventID, ts, rec.Context.Description, data)
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if rec.EventID != "" {
		req.Header.Set(IdempotencyHeader, rec.EventID)
	}
	if tid := trace.FromContext(ctx); tid != "" {
		req.Header.Set(trace.Header, tid)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("forward http: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("forward to %s: unexpected status %d", redact.URL(s.url), resp.StatusCode)
	}
	slog.Debug("forward sink: delivered",
		"url", redact.URL(s.url), "event_id", rec.EventID, "status", resp.StatusCode)
	return nil
}
