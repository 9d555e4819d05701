package event

// Decision is the classifier's verdict for an envelope.
type Decision int

const (
	// DecisionProcess runs the envelope through validation and enrichment.
	DecisionProcess Decision = iota
	// DecisionPassthrough emits the envelope unmodified. Used for payloads
	// without a discriminator that still carry content.
	DecisionPassthrough
	// DecisionDropEmpty discards an envelope with nothing to inspect.
	DecisionDropEmpty
	// DecisionDropType discards an envelope whose type is not allowed.
	DecisionDropType
)

func (d Decision) String() string {
	switch d {
	case DecisionProcess:
		return "process"
	case DecisionPassthrough:
		return "passthrough"
	case DecisionDropEmpty:
		return "drop_empty"
	case DecisionDropType:
		return "drop_type"
	default:
		return "unknown"
	}
}

// discriminatorPaths lists the keys that may carry the update type. Some
// payload variants use event_type instead of update_type.
var discriminatorPaths = []string{"update_type", "event_type"}

// AllowList is the set of update types the caller wants to receive. An empty
// list allows every type.
type AllowList map[UpdateType]struct{}

// NewAllowList builds an AllowList from raw type names, ignoring blanks.
func NewAllowList(types []string) AllowList {
	al := make(AllowList, len(types))
	for _, t := range types {
		if t == "" {
			continue
		}
		al[UpdateType(t)] = struct{}{}
	}
	return al
}

// Allows reports whether t passes the list.
func (al AllowList) Allows(t UpdateType) bool {
	if len(al) == 0 {
		return true
	}
	_, ok := al[t]
	return ok
}

// Discriminator returns the update type declared by env, or "" when none.
func Discriminator(env Envelope) UpdateType {
	return UpdateType(env.FirstString(discriminatorPaths...))
}

// Classify decides what to do with env. An envelope without a discriminator
// passes through only when it holds a key other than the timestamp and the
// (empty) discriminator fields.
func Classify(env Envelope, allowed AllowList) (UpdateType, Decision) {
	t := Discriminator(env)
	if t != "" {
		if !allowed.Allows(t) {
			return t, DecisionDropType
		}
		return t, DecisionProcess
	}
	if hasSubstantiveContent(env) {
		return "", DecisionPassthrough
	}
	return "", DecisionDropEmpty
}

func hasSubstantiveContent(env Envelope) bool {
	for _, k := range env.Keys() {
		switch k {
		case "timestamp", "update_type", "event_type":
			continue
		}
		return true
	}
	return false
}
