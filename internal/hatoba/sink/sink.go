// Package sink delivers normalised records to their consumers: a JSON-lines
// writer, an HTTP forwarder and a Matrix operator room.
//
// Sinks are best-effort. The webhook has already been acknowledged by the
// time a record reaches a sink, so errors are returned for logging and
// metrics only.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/bdobrica/Hatoba/internal/hatoba/event"
)

// Sink consumes records.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Deliver hands rec, received on source, to the consumer.
	Deliver(ctx context.Context, source string, rec event.Record) error
}

// Multi fans a record out to every sink. All sinks are tried; their errors
// are joined.
type Multi []Sink

// Name implements Sink.
func (m Multi) Name() string { return "multi" }

// Deliver implements Sink.
func (m Multi) Deliver(ctx context.Context, source string, rec event.Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, source, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Discard drops every record.
type Discard struct{}

// Name implements Sink.
func (Discard) Name() string { return "discard" }

// Deliver implements Sink.
func (Discard) Deliver(context.Context, string, event.Record) error { return nil }
