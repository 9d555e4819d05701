package event

import (
	"regexp"
	"testing"
)

var eventIDPattern = regexp.MustCompile(`^evt_[0-9a-f]{16}$`)

func TestFingerprint(t *testing.T) {
	env := mustEnvelope(t, `{"message":{"body":{"mid":"m1"}},"callback":{"callback_id":"cb"}}`)
	id := Identity{User: &UserContext{UserID: NumericID(7)}}

	got := Fingerprint(TypeMessageCallback, 1000, id, env)
	const want = "message_callback|1000|unknown|7|m1|cb"
	if got != want {
		t.Errorf("Fingerprint: got %q, want %q", got, want)
	}

	got = Fingerprint(TypeBotStarted, 5, Identity{}, mustEnvelope(t, `{}`))
	if got != "bot_started|5|unknown|unknown||" {
		t.Errorf("Fingerprint (empty): got %q", got)
	}
}

func TestGenerateID_Deterministic(t *testing.T) {
	fp := "message_created|1640995200000|123|456|msg_123|"
	a, b := GenerateID(fp), GenerateID(fp)
	if a != b {
		t.Errorf("GenerateID: got %q and %q for the same input", a, b)
	}
	if !eventIDPattern.MatchString(a) {
		t.Errorf("GenerateID: %q does not match %s", a, eventIDPattern)
	}
}

func TestGenerateID_DistinguishesTuples(t *testing.T) {
	seen := map[string]string{}
	for _, fp := range []string{
		"message_created|1|1|1||",
		"message_created|1|1|2||",
		"message_created|2|1|1||",
		"message_edited|1|1|1||",
		"message_created|1|1|1|m|",
		"message_created|1|1|1||c",
	} {
		id := GenerateID(fp)
		if prev, dup := seen[id]; dup {
			t.Errorf("GenerateID collision: %q and %q -> %q", prev, fp, id)
		}
		seen[id] = fp
	}
}
