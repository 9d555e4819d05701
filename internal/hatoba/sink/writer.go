package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/bdobrica/Hatoba/internal/hatoba/event"
)

// WriterSink writes one JSON record per line. Records keep the delivered
// payload bytes, so they are compacted before writing.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a WriterSink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Name implements Sink.
func (s *WriterSink) Name() string { return "stdout" }

// Deliver implements Sink.
func (s *WriterSink) Deliver(_ context.Context, _ string, rec event.Record) error {
	data, err := rec.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	var line bytes.Buffer
	line.Grow(len(data) + 1)
	if err := json.Compact(&line, data); err != nil {
		return fmt.Errorf("compact record: %w", err)
	}
	line.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line.Bytes()); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
