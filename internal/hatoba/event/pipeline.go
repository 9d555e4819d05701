package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bdobrica/Hatoba/internal/hatoba/observability"
)

// Outcome summarises what the pipeline did with one delivery.
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomePassthrough  Outcome = "passthrough"
	OutcomeDroppedEmpty Outcome = "dropped_empty"
	OutcomeDroppedType  Outcome = "dropped_type"
	OutcomeFiltered     Outcome = "filtered"
	OutcomeRejected     Outcome = "rejected"
	OutcomeFailed       Outcome = "failed"
)

// Options are the caller-supplied settings of a Pipeline.
type Options struct {
	// Events lists the update types to accept. Empty accepts all.
	Events []string
	// ChatIDs and UserIDs are comma-separated allow-lists.
	ChatIDs string
	UserIDs string
}

// Result is returned by Process. Records holds zero or one record.
type Result struct {
	Outcome Outcome
	Type    UpdateType
	Records []Record
}

// Pipeline turns raw updates into records. It holds only immutable settings
// and is safe for concurrent use.
type Pipeline struct {
	allowed AllowList
	filter  Filter

	now     func() time.Time
	resolve func(Envelope) Identity
}

// New creates a Pipeline for opts.
func New(opts Options) *Pipeline {
	return &Pipeline{
		allowed: NewAllowList(opts.Events),
		filter:  NewFilter(opts.ChatIDs, opts.UserIDs),
		now:     time.Now,
		resolve: ResolveIdentity,
	}
}

// Process runs raw through the pipeline. It never panics and never returns
// an error; anything unexpected yields OutcomeFailed with no records. ctx is
// only used to correlate the diagnostic log line.
func (p *Pipeline) Process(ctx context.Context, raw []byte) (res Result) {
	start := p.now()
	defer func() {
		if r := recover(); r != nil {
			observability.WithTrace(ctx).Error("event pipeline panic", "type", res.Type, "panic", fmt.Sprint(r))
			res = Result{Outcome: OutcomeFailed, Type: res.Type}
		}
		logOutcome(ctx, res)
	}()

	env, ok := ParseEnvelope(raw)
	if !ok {
		return Result{Outcome: OutcomeRejected}
	}

	t, decision := Classify(env, p.allowed)
	res.Type = t
	switch decision {
	case DecisionDropEmpty:
		res.Outcome = OutcomeDroppedEmpty
		return res
	case DecisionDropType:
		res.Outcome = OutcomeDroppedType
		return res
	case DecisionPassthrough:
		res.Outcome = OutcomePassthrough
		res.Records = []Record{{original: copyBytes(raw), passthrough: true}}
		return res
	}

	report := Validate(t, env)

	identity, allowed := p.screen(ctx, env)
	if !allowed {
		res.Outcome = OutcomeFiltered
		return res
	}

	ectx := Enrich(t, env, identity)

	ts := start.UnixMilli()
	if v, ok := env.Timestamp(); ok {
		ts = v
	}
	eventID := GenerateID(Fingerprint(t, ts, identity, env))

	rec := Record{
		UpdateType: t,
		Timestamp:  ts,
		EventID:    eventID,
		Context:    ectx,
		Validation: report,
		Metadata: Metadata{
			ReceivedAt:  start.UTC(),
			Source:      SourceWebhook,
			UserContext: identity.User,
			ChatContext: identity.Chat,
		},
		original: copyBytes(raw),
	}
	rec.Metadata.ProcessingTimeMs = float64(p.now().Sub(start).Microseconds()) / 1000

	res.Outcome = OutcomeAccepted
	res.Records = []Record{rec}
	return res
}

// screen resolves the identity and applies the allow-list filter. A failure
// while resolving lets the event through with an empty identity.
func (p *Pipeline) screen(ctx context.Context, env Envelope) (id Identity, allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			observability.WithTrace(ctx).Warn("event filter failed, letting event through", "panic", fmt.Sprint(r))
			id, allowed = Identity{}, true
		}
	}()
	id = p.resolve(env)
	return id, p.filter.Allow(id)
}

func logOutcome(ctx context.Context, res Result) {
	attrs := []any{"outcome", string(res.Outcome), "type", string(res.Type)}
	level := slog.LevelDebug
	if len(res.Records) == 1 {
		rec := res.Records[0]
		if !rec.passthrough {
			attrs = append(attrs,
				"event_id", rec.EventID,
				"valid", rec.Validation.IsValid,
				"errors", len(rec.Validation.Errors),
				"warnings", len(rec.Validation.Warnings),
			)
		}
		level = slog.LevelInfo
	}
	if res.Outcome == OutcomeFailed {
		level = slog.LevelError
	}
	observability.WithTrace(ctx).Log(ctx, level, "event pipeline outcome", attrs...)
}

func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
