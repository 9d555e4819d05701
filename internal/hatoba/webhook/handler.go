// Package webhook hosts the event pipeline behind an HTTP endpoint.
//
// The messaging platform delivers updates to
//
//	POST /webhook/{source}
//
// Only the configured source is served; any other path segment is answered
// 404 before it can reach the rate limiter or the metrics. The handler
// rate-limits per source, caps the body, checks the optional
// shared secret and then runs the body through the event pipeline. Every
// delivery that reaches the pipeline is answered 200 with the
// batch-of-batches body, even when the update was dropped, so the platform
// never retries a delivery Hatoba has seen. Records are handed to the sink
// before the response is written; sink failures are logged only.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bdobrica/Hatoba/common/trace"
	"github.com/bdobrica/Hatoba/internal/hatoba/event"
	"github.com/bdobrica/Hatoba/internal/hatoba/metrics"
	"github.com/bdobrica/Hatoba/internal/hatoba/observability"
	"github.com/bdobrica/Hatoba/internal/hatoba/sink"
)

// maxBodyBytes caps inbound request bodies.
const maxBodyBytes = 1 * 1024 * 1024 // 1 MiB

// PathPrefix is the route the handler is mounted on.
const PathPrefix = "/webhook/"

// DefaultSource is served when Settings.Source is empty.
const DefaultSource = "max"

// Settings are the reloadable parts of the handler.
type Settings struct {
	// Source is the only {source} path segment accepted. It is also the
	// source handed to the sinks.
	Source   string
	Pipeline *event.Pipeline
	// Secret, when set, must be presented by every delivery.
	Secret string
	// RateLimit is the number of deliveries per source per minute. Zero
	// disables limiting.
	RateLimit int
}

type state struct {
	source   string
	pipeline *event.Pipeline
	secret   string
	limit    int
	limiter  *rateLimiter
}

// Stats are cumulative handler counters.
type Stats struct {
	Deliveries   int64 `json:"deliveries"`
	Records      int64 `json:"records"`
	Rejected     int64 `json:"rejected"`
	SinkFailures int64 `json:"sink_failures"`
}

// Handler serves POST /webhook/{source}.
type Handler struct {
	state atomic.Pointer[state]
	sink  sink.Sink

	deliveries   atomic.Int64
	records      atomic.Int64
	rejected     atomic.Int64
	sinkFailures atomic.Int64
}

// New creates a Handler. A nil sink discards records.
func New(s Settings, sk sink.Sink) *Handler {
	if sk == nil {
		sk = sink.Discard{}
	}
	h := &Handler{sink: sk}
	h.Update(s)
	return h
}

// Update swaps in new settings. The rate-limit windows survive an update
// that keeps the same limit.
func (h *Handler) Update(s Settings) {
	next := &state{source: s.Source, pipeline: s.Pipeline, secret: s.Secret, limit: s.RateLimit}
	if next.source == "" {
		next.source = DefaultSource
	}
	if next.pipeline == nil {
		next.pipeline = event.New(event.Options{})
	}
	if prev := h.state.Load(); prev != nil && prev.limit == s.RateLimit {
		next.limiter = prev.limiter
	} else {
		next.limiter = newRateLimiter(s.RateLimit, time.Minute)
	}
	h.state.Store(next)
}

// Stats returns a snapshot of the handler counters.
func (h *Handler) Stats() Stats {
	return Stats{
		Deliveries:   h.deliveries.Load(),
		Records:      h.records.Load(),
		Rejected:     h.rejected.Load(),
		SinkFailures: h.sinkFailures.Load(),
	}
}

// RouteRegistrar is satisfied by *http.ServeMux and by app.Server's Handle
// method.
type RouteRegistrar interface {
	Handle(pattern string, handler http.Handler)
}

// RegisterRoutes mounts the handler on r.
func (h *Handler) RegisterRoutes(r RouteRegistrar) {
	r.Handle(PathPrefix, h)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tid := trace.FromRequest(r)
	ctx := trace.WithTraceID(r.Context(), tid)
	w.Header().Set(trace.Header, tid)
	log := observability.WithTrace(ctx)

	source := strings.TrimPrefix(r.URL.Path, PathPrefix)
	status := h.serve(ctx, w, r, source)
	metrics.DeliveriesTotal.WithLabelValues(sourceLabel(source, status), http.StatusText(status)).Inc()
	if status != http.StatusOK {
		h.rejected.Add(1)
		log.Info("webhook: delivery rejected", "source", source, "status", status)
	}
}

func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request, source string) int {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return http.StatusMethodNotAllowed
	}
	if source == "" || strings.Contains(source, "/") {
		http.Error(w, "invalid path: expected /webhook/{source}", http.StatusNotFound)
		return http.StatusNotFound
	}

	st := h.state.Load()
	log := observability.WithTrace(ctx)

	if source != st.source {
		http.Error(w, "unknown source", http.StatusNotFound)
		return http.StatusNotFound
	}

	if !st.limiter.Allow(source) {
		metrics.RateLimitHits.WithLabelValues(source).Inc()
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return http.StatusTooManyRequests
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return http.StatusRequestEntityTooLarge
		}
		log.Warn("webhook: failed to read request body", "source", source, "err", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return http.StatusBadRequest
	}
	metrics.DeliveryBytesTotal.Add(float64(len(body)))

	if err := ValidateSecret(r, body, st.secret); err != nil {
		log.Info("webhook: secret check failed", "source", source, "err", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return http.StatusUnauthorized
	}

	h.deliveries.Add(1)
	start := time.Now()
	res := st.pipeline.Process(ctx, body)
	metrics.ObservePipeline(res, time.Since(start))

	deliverCtx := context.WithoutCancel(ctx)
	for _, rec := range res.Records {
		h.records.Add(1)
		if err := h.sink.Deliver(deliverCtx, source, rec); err != nil {
			h.sinkFailures.Add(1)
			metrics.SinkErrors.WithLabelValues(h.sink.Name()).Inc()
			log.Warn("webhook: sink delivery failed",
				"source", source, "sink", h.sink.Name(), "event_id", rec.EventID, "err", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(event.Batches(res.Records)); err != nil {
		log.Warn("webhook: failed to write response", "source", source, "err", err)
	}
	return http.StatusOK
}

// sourceLabel bounds metric cardinality for requests that never matched a
// valid route.
func sourceLabel(source string, status int) string {
	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		return "invalid"
	}
	return source
}
