package event

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
)

// Record is the validated, enriched and fingerprinted form of one update.
// It owns a private copy of the original payload.
type Record struct {
	UpdateType UpdateType
	Timestamp  int64
	EventID    string
	Context    Context
	Validation Report
	Metadata   Metadata

	original    []byte
	passthrough bool
}

// Original returns a copy of the payload the record was built from.
func (r Record) Original() []byte {
	return append([]byte(nil), r.original...)
}

// Passthrough reports whether the record is an untyped payload forwarded
// without validation or enrichment.
func (r Record) Passthrough() bool { return r.passthrough }

// MarshalJSON writes the original payload with the derived fields merged in.
// Original keys are kept; update_type and timestamp are normalised and the
// derived keys replace any same-named original key.
func (r Record) MarshalJSON() ([]byte, error) {
	out := r.Original()
	if r.passthrough {
		return out, nil
	}

	var err error
	if out, err = sjson.SetBytes(out, "update_type", string(r.UpdateType)); err != nil {
		return nil, fmt.Errorf("set update_type: %w", err)
	}
	if out, err = sjson.SetBytes(out, "timestamp", r.Timestamp); err != nil {
		return nil, fmt.Errorf("set timestamp: %w", err)
	}
	if out, err = sjson.SetBytes(out, "event_id", r.EventID); err != nil {
		return nil, fmt.Errorf("set event_id: %w", err)
	}

	derived := []struct {
		key string
		val any
	}{
		{"event_context", r.Context},
		{"validation_status", r.Validation},
		{"metadata", r.Metadata},
	}
	for _, d := range derived {
		raw, err := json.Marshal(d.val)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", d.key, err)
		}
		if out, err = sjson.SetRawBytes(out, d.key, raw); err != nil {
			return nil, fmt.Errorf("set %s: %w", d.key, err)
		}
	}
	return out, nil
}

// Batches wraps records in the host's batch-of-batches shape: a single item
// group holding zero or one record.
func Batches(records []Record) [][]Record {
	if records == nil {
		records = []Record{}
	}
	return [][]Record{records}
}
