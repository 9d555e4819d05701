// Package event implements the inbound webhook normalisation pipeline.
//
// A raw update pushed by the messaging platform is classified by its
// update_type discriminator, validated against per-type structural rules,
// resolved to an acting user and a target chat, filtered against the
// configured allow-lists, enriched with a per-type event context, given a
// deterministic event_id and finally assembled into a Record.
//
// The pipeline is synchronous and stateless. Process never returns an error
// and never panics: a malformed or unexpected payload yields zero records so
// the platform is always acknowledged and never retries a delivery.
package event

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// UpdateType is the value of the envelope's update_type discriminator.
type UpdateType string

// Known update types. Anything else is handled by the unknown variant.
const (
	TypeMessageCreated     UpdateType = "message_created"
	TypeMessageChatCreated UpdateType = "message_chat_created"
	TypeMessageEdited      UpdateType = "message_edited"
	TypeMessageRemoved     UpdateType = "message_removed"
	TypeMessageCallback    UpdateType = "message_callback"
	TypeBotAdded           UpdateType = "bot_added"
	TypeBotRemoved         UpdateType = "bot_removed"
	TypeUserAdded          UpdateType = "user_added"
	TypeUserRemoved        UpdateType = "user_removed"
	TypeChatTitleChanged   UpdateType = "chat_title_changed"
	TypeBotStarted         UpdateType = "bot_started"
)

// KnownTypes lists every update type with a dedicated validator and enricher.
var KnownTypes = []UpdateType{
	TypeMessageCreated,
	TypeMessageChatCreated,
	TypeMessageEdited,
	TypeMessageRemoved,
	TypeMessageCallback,
	TypeBotAdded,
	TypeBotRemoved,
	TypeUserAdded,
	TypeUserRemoved,
	TypeChatTitleChanged,
	TypeBotStarted,
}

// IsKnown reports whether t has a dedicated variant.
func (t UpdateType) IsKnown() bool {
	_, ok := variants[t]
	return ok
}

// Severity distinguishes blocking validation errors from advisory warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding.
type Issue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Report is the outcome of validating an envelope against its declared type.
// IsValid is true iff Errors is empty; warnings never affect validity.
type Report struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// ID is a platform identifier. The platform sends numeric ids, but legacy
// payloads occasionally carry them as strings; both are preserved as sent.
type ID struct {
	value   string
	numeric bool
}

// NumericID returns an ID for a numeric platform identifier.
func NumericID(n int64) ID {
	return ID{value: strconv.FormatInt(n, 10), numeric: true}
}

// StringID returns an ID for a string identifier.
func StringID(s string) ID {
	if s == "" {
		return ID{}
	}
	return ID{value: s}
}

// IsZero reports whether the id was absent from the envelope.
func (i ID) IsZero() bool { return i.value == "" }

// String returns the id in its textual form ("" when absent).
func (i ID) String() string { return i.value }

// MarshalJSON encodes numeric ids as JSON numbers, string ids as strings and
// absent ids as null.
func (i ID) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	if i.numeric {
		return []byte(i.value), nil
	}
	return json.Marshal(i.value)
}

// UnmarshalJSON accepts a JSON number, string or null.
func (i *ID) UnmarshalJSON(data []byte) error {
	*i = idFromResult(gjson.ParseBytes(bytes.TrimSpace(data)))
	return nil
}

// UserContext is the resolved acting user.
type UserContext struct {
	UserID      ID     `json:"user_id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

// ChatContext is the resolved target chat.
type ChatContext struct {
	ChatID       ID     `json:"chat_id"`
	ChatType     string `json:"chat_type,omitempty"`
	ChatTitle    string `json:"chat_title,omitempty"`
	MembersCount int64  `json:"members_count,omitempty"`
}

// Identity holds whatever user and chat could be resolved from an envelope.
// Either side may be nil.
type Identity struct {
	User *UserContext
	Chat *ChatContext
}

// UserID returns the resolved user id, or the zero ID.
func (id Identity) UserID() ID {
	if id.User == nil {
		return ID{}
	}
	return id.User.UserID
}

// ChatID returns the resolved chat id, or the zero ID.
func (id Identity) ChatID() ID {
	if id.Chat == nil {
		return ID{}
	}
	return id.Chat.ChatID
}

// Metadata describes how and when a record was produced.
type Metadata struct {
	ReceivedAt       time.Time    `json:"received_at"`
	ProcessingTimeMs float64      `json:"processing_time_ms"`
	Source           string       `json:"source"`
	UserContext      *UserContext `json:"user_context,omitempty"`
	ChatContext      *ChatContext `json:"chat_context,omitempty"`
}

// SourceWebhook is the only ingestion path today.
const SourceWebhook = "webhook"
