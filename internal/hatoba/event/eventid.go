package event

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	fingerprintSeparator = "|"
	unknownIdentity      = "unknown"
)

// Fingerprint joins the identifying tuple of an event: type, timestamp,
// chat, user, message and callback. Missing chat and user ids become
// "unknown", missing message and callback ids stay empty.
func Fingerprint(t UpdateType, timestamp int64, id Identity, env Envelope) string {
	chat := id.ChatID().String()
	if chat == "" {
		chat = unknownIdentity
	}
	user := id.UserID().String()
	if user == "" {
		user = unknownIdentity
	}
	return strings.Join([]string{
		string(t),
		strconv.FormatInt(timestamp, 10),
		chat,
		user,
		env.MessageID().String(),
		env.CallbackID().String(),
	}, fingerprintSeparator)
}

// GenerateID derives the opaque event id from a fingerprint. Equal
// fingerprints always give equal ids, which lets consumers drop replays.
func GenerateID(fingerprint string) string {
	return fmt.Sprintf("evt_%016x", xxhash.Sum64String(fingerprint))
}
