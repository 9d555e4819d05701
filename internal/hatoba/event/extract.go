package event

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Envelope is a read-only view over a raw inbound payload. Every accessor
// tolerates absent or mistyped fields; nothing about the payload's shape is
// trusted to match its declared type.
type Envelope struct {
	raw  []byte
	root gjson.Result
}

// ParseEnvelope wraps raw. ok is false when raw is not a JSON object.
func ParseEnvelope(raw []byte) (env Envelope, ok bool) {
	if !gjson.ValidBytes(raw) {
		return Envelope{}, false
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return Envelope{}, false
	}
	return Envelope{raw: raw, root: root}, true
}

// Get returns the value at a gjson path.
func (e Envelope) Get(path string) gjson.Result {
	return e.root.Get(path)
}

// Has reports whether path holds a non-null value.
func (e Envelope) Has(path string) bool {
	return present(e.root.Get(path))
}

// HasObject reports whether path holds a JSON object.
func (e Envelope) HasObject(path string) bool {
	return e.root.Get(path).IsObject()
}

// Keys returns the top-level keys in document order.
func (e Envelope) Keys() []string {
	var keys []string
	e.root.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

// First returns the first path that holds a non-null value. Paths are tried
// in order, so the slice doubles as the precedence rule for that field.
func (e Envelope) First(paths ...string) gjson.Result {
	for _, p := range paths {
		if r := e.root.Get(p); present(r) {
			return r
		}
	}
	return gjson.Result{}
}

// FirstString is First restricted to non-empty strings.
func (e Envelope) FirstString(paths ...string) string {
	for _, p := range paths {
		if r := e.root.Get(p); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// FirstID is First converted to an ID.
func (e Envelope) FirstID(paths ...string) ID {
	for _, p := range paths {
		if id := idFromResult(e.root.Get(p)); !id.IsZero() {
			return id
		}
	}
	return ID{}
}

func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

func idFromResult(r gjson.Result) ID {
	switch r.Type {
	case gjson.Number:
		return ID{value: canonicalNumber(r), numeric: true}
	case gjson.String:
		return StringID(strings.TrimSpace(r.Str))
	default:
		return ID{}
	}
}

// canonicalNumber renders integral numbers such as 123.0 or 1.23e2 as plain
// integers so they compare equal to "123". Anything else keeps its raw text.
func canonicalNumber(r gjson.Result) string {
	if _, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
		return r.Raw
	}
	if r.Num == math.Trunc(r.Num) && math.Abs(r.Num) <= 1<<53 {
		return strconv.FormatInt(int64(r.Num), 10)
	}
	return r.Raw
}

// Timestamp returns the update's epoch-millisecond timestamp. ok is false
// when the field is absent or is neither a number nor a numeric string.
func (e Envelope) Timestamp() (ts int64, ok bool) {
	r := e.root.Get("timestamp")
	switch r.Type {
	case gjson.Number:
		return r.Int(), true
	case gjson.String:
		if n, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Field precedence lists shared by the validator, the enricher and the id
// generator.
var (
	messageIDPaths   = []string{"message_id", "message.message_id", "message.body.mid", "message.id"}
	callbackIDPaths  = []string{"callback.callback_id", "callback.id"}
	messageTextPaths = []string{"message.body.text", "message.text"}
	attachmentPaths  = []string{"message.body.attachments", "message.attachments"}
)

// MessageID resolves the message id from wherever it was placed.
func (e Envelope) MessageID() ID { return e.FirstID(messageIDPaths...) }

// CallbackID resolves the callback id.
func (e Envelope) CallbackID() ID { return e.FirstID(callbackIDPaths...) }

// chatStrategy resolves the target chat from one payload location.
type chatStrategy func(Envelope) *ChatContext

// userStrategy resolves the acting user from one payload location.
type userStrategy func(Envelope) *UserContext

// chatStrategies are tried in order; the first hit wins.
var chatStrategies = []chatStrategy{
	explicitChat,
	flatChatID,
	messageRecipient,
}

// userStrategies are tried in order; the first hit wins.
var userStrategies = []userStrategy{
	objectUser("user"),
	objectUser("message.sender"),
	objectUser("message.from"),
	objectUser("callback.user"),
	flatUserID,
}

// ResolveIdentity applies the chat and user precedence rules to env.
func ResolveIdentity(env Envelope) Identity {
	return Identity{User: ResolveUser(env), Chat: ResolveChat(env)}
}

// ResolveChat returns the target chat or nil.
func ResolveChat(env Envelope) *ChatContext {
	for _, s := range chatStrategies {
		if c := s(env); c != nil {
			return c
		}
	}
	return nil
}

// ResolveUser returns the acting user or nil. A top-level user_locale fills
// in the locale when the user object does not carry one.
func ResolveUser(env Envelope) *UserContext {
	for _, s := range userStrategies {
		if u := s(env); u != nil {
			if u.Locale == "" {
				u.Locale = env.FirstString("user_locale")
			}
			return u
		}
	}
	return nil
}

// explicitChat reads the top-level chat object. A chat object without its
// own id borrows the flat chat_id.
func explicitChat(env Envelope) *ChatContext {
	obj := env.Get("chat")
	if !obj.IsObject() {
		return nil
	}
	c := chatFromObject(obj)
	if c.ChatID.IsZero() {
		c.ChatID = env.FirstID("chat_id")
	}
	return c
}

// flatChatID synthesises a chat from chat_id, using is_channel to pick the
// chat type.
func flatChatID(env Envelope) *ChatContext {
	id := env.FirstID("chat_id")
	if id.IsZero() {
		return nil
	}
	c := &ChatContext{ChatID: id, ChatTitle: env.FirstString("title")}
	if ch := env.Get("is_channel"); ch.IsBool() {
		if ch.Bool() {
			c.ChatType = "channel"
		} else {
			c.ChatType = "chat"
		}
	}
	return c
}

// flatUserID synthesises a user from a top-level user_id.
func flatUserID(env Envelope) *UserContext {
	id := env.FirstID("user_id")
	if id.IsZero() {
		return nil
	}
	return &UserContext{UserID: id, Locale: env.FirstString("user_locale")}
}

func messageRecipient(env Envelope) *ChatContext {
	obj := env.Get("message.recipient")
	if !obj.IsObject() {
		return nil
	}
	return chatFromObject(obj)
}

func chatFromObject(obj gjson.Result) *ChatContext {
	c := &ChatContext{
		ChatID:    firstID(obj, "chat_id", "id"),
		ChatType:  firstString(obj, "chat_type", "type"),
		ChatTitle: firstString(obj, "title", "chat_title", "name"),
	}
	if n := firstOf(obj, "participants_count", "members_count"); n.Type == gjson.Number {
		c.MembersCount = n.Int()
	}
	return c
}

func objectUser(path string) userStrategy {
	return func(env Envelope) *UserContext {
		obj := env.Get(path)
		if !obj.IsObject() {
			return nil
		}
		return userFromObject(obj)
	}
}

func userFromObject(obj gjson.Result) *UserContext {
	return &UserContext{
		UserID:      firstID(obj, "user_id", "id"),
		Username:    firstString(obj, "username"),
		DisplayName: displayName(obj),
		Locale:      firstString(obj, "lang", "locale", "user_locale"),
	}
}

// displayName prefers an explicit name, then joins first and last names.
func displayName(obj gjson.Result) string {
	if n := firstString(obj, "name", "display_name"); n != "" {
		return n
	}
	parts := make([]string, 0, 2)
	for _, k := range []string{"first_name", "last_name"} {
		if v := firstString(obj, k); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func firstOf(obj gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := obj.Get(k); present(r) {
			return r
		}
	}
	return gjson.Result{}
}

func firstString(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		if r := obj.Get(k); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

func firstID(obj gjson.Result, keys ...string) ID {
	for _, k := range keys {
		if id := idFromResult(obj.Get(k)); !id.IsZero() {
			return id
		}
	}
	return ID{}
}
