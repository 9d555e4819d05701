package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/tidwall/gjson"
)

// Context is the per-type event_context attached to a record: the type, a
// human-readable description and type-specific derived fields.
type Context struct {
	Type        UpdateType
	Description string
	Fields      map[string]any
}

// MarshalJSON flattens Fields next to type and description.
func (c Context) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+2)
	for k, v := range c.Fields {
		out[k] = v
	}
	out["type"] = c.Type
	out["description"] = c.Description
	return json.Marshal(out)
}

// Field returns a derived field, or nil.
func (c Context) Field(name string) any {
	return c.Fields[name]
}

func (c *Context) set(name string, v any) {
	if c.Fields == nil {
		c.Fields = make(map[string]any)
	}
	c.Fields[name] = v
}

// setID stores id only when it was resolved.
func (c *Context) setID(name string, id ID) {
	if !id.IsZero() {
		c.set(name, id)
	}
}

// setString stores s only when non-empty.
func (c *Context) setString(name, s string) {
	if s != "" {
		c.set(name, s)
	}
}

// millisecondsThreshold is 2020-09-13 expressed in milliseconds. Timestamps
// above it are milliseconds, anything below is already seconds.
const millisecondsThreshold = 1_600_000_000_000

// NormalizeSeconds converts a mixed seconds/milliseconds timestamp to
// seconds.
func NormalizeSeconds(ts float64) float64 {
	if ts > millisecondsThreshold {
		return ts / 1000
	}
	return ts
}

var (
	newTitlePaths    = []string{"title", "chat.title"}
	titleChangePaths = []string{"title", "chat.title", "chat_changes.new_title"}
	oldTextPaths     = []string{"old_message.body.text", "old_message.text"}
	newTextPaths     = []string{"new_message.body.text", "new_message.text", "message.body.text", "message.text"}
	startPayloadPath = []string{"start_payload", "payload"}
)

// Enrich builds the event context for t.
func Enrich(t UpdateType, env Envelope, id Identity) Context {
	c := Context{Type: t}
	variantFor(t).enrich(env, id, &c)
	return c
}

func enrichMessageCreated(env Envelope, id Identity, c *Context) {
	c.Description = "New message received"
	if name := senderName(id); name != "" {
		c.Description = fmt.Sprintf("New message from %s", name)
	}
	addMessageFields(env, id, c)
}

func enrichMessageChatCreated(env Envelope, id Identity, c *Context) {
	c.Description = "Chat created from a message button"
	c.setID("chat_id", id.ChatID())
	if id.Chat != nil {
		c.setString("chat_title", id.Chat.ChatTitle)
	}
	c.setString("start_payload", env.FirstString(startPayloadPath...))
	if env.HasObject("message") {
		addMessageFields(env, id, c)
	} else {
		c.setID("message_id", env.MessageID())
	}
}

func addMessageFields(env Envelope, id Identity, c *Context) {
	c.setID("message_id", env.MessageID())
	text := env.FirstString(messageTextPaths...)
	c.set("has_text", text != "")
	c.setString("text", text)

	atts := firstArray(env, attachmentPaths...)
	c.set("has_attachments", len(atts) > 0)
	c.set("attachment_count", len(atts))
	if len(atts) > 0 {
		c.set("attachment_types", attachmentTypes(atts))
	}
	c.set("has_markup", env.Has("message.body.markup") || env.Has("message.markup"))
	c.setString("link_type", env.FirstString("message.link.type"))
	if id.Chat != nil {
		c.setString("chat_type", id.Chat.ChatType)
	}
}

func enrichMessageEdited(env Envelope, id Identity, c *Context) {
	c.Description = "Message edited"
	c.setID("message_id", env.MessageID())

	oldText := env.FirstString(oldTextPaths...)
	newText := env.FirstString(newTextPaths...)
	c.setString("old_text", oldText)
	c.setString("new_text", newText)
	c.set("text_changed", env.Has("old_message") && oldText != newText)

	oldAtts := firstArray(env, "old_message.body.attachments", "old_message.attachments")
	newAtts := firstArray(env, "new_message.body.attachments", "new_message.attachments")
	c.set("has_attachment_changes", !sameAttachments(oldAtts, newAtts))

	if ts := env.First("new_message.timestamp", "timestamp"); ts.Type == gjson.Number {
		c.set("edited_at", NormalizeSeconds(ts.Float()))
	}
	c.setID("edited_by", id.UserID())
}

func enrichMessageRemoved(env Envelope, id Identity, c *Context) {
	c.Description = "Message deleted"
	c.setID("message_id", env.MessageID())
	c.setID("chat_id", env.FirstID("chat_id", "chat.chat_id"))
	c.setID("deleted_by", env.FirstID("deletion_context.deleted_by", "user_id", "user.user_id"))
	if ts := env.First("deletion_context.deleted_at", "timestamp"); ts.Type == gjson.Number {
		c.set("deleted_at", NormalizeSeconds(ts.Float()))
	}
	c.setString("deletion_reason", env.FirstString("deletion_context.reason"))
}

func enrichMessageCallback(env Envelope, id Identity, c *Context) {
	c.Description = "Callback button pressed"
	if name := senderName(id); name != "" {
		c.Description = fmt.Sprintf("Callback button pressed by %s", name)
	}
	c.setID("callback_id", env.CallbackID())
	payload := env.FirstString("callback.payload")
	c.set("has_payload", payload != "")
	c.setString("payload", payload)
	c.setID("message_id", env.MessageID())
}

func enrichBotAdded(env Envelope, id Identity, c *Context) {
	c.Description = "Bot added to chat"
	addMembershipFields(env, id, c)
	c.setID("inviter_id", env.FirstID("inviter_id", "membership_context.inviter_id"))
}

func enrichBotRemoved(env Envelope, id Identity, c *Context) {
	c.Description = "Bot removed from chat"
	addMembershipFields(env, id, c)
	c.setID("admin_id", env.FirstID("admin_id", "membership_context.admin_id"))
}

func enrichUserAdded(env Envelope, id Identity, c *Context) {
	c.Description = "User added to chat"
	if name := senderName(id); name != "" {
		c.Description = fmt.Sprintf("%s joined the chat", name)
	}
	addMembershipFields(env, id, c)
	c.setID("user_id", id.UserID())
	c.setID("inviter_id", env.FirstID("inviter_id", "membership_context.inviter_id"))
}

func enrichUserRemoved(env Envelope, id Identity, c *Context) {
	c.Description = "User removed from chat"
	if name := senderName(id); name != "" {
		c.Description = fmt.Sprintf("%s left the chat", name)
	}
	addMembershipFields(env, id, c)
	c.setID("user_id", id.UserID())
	c.setID("admin_id", env.FirstID("admin_id", "membership_context.admin_id"))
}

func addMembershipFields(env Envelope, id Identity, c *Context) {
	c.setID("chat_id", id.ChatID())
	if id.Chat != nil {
		c.setString("chat_title", id.Chat.ChatTitle)
	}
	if ch := env.Get("is_channel"); ch.IsBool() {
		c.set("is_channel", ch.Bool())
	}
}

func enrichChatTitleChanged(env Envelope, id Identity, c *Context) {
	c.Description = "Chat title changed"
	newTitle := env.FirstString(titleChangePaths...)
	if newTitle != "" {
		c.Description = fmt.Sprintf("Chat title changed to %q", newTitle)
	}
	c.setID("chat_id", id.ChatID())
	c.setString("new_title", newTitle)
	c.setString("old_title", env.FirstString("chat_changes.old_title"))
	c.setID("changed_by", id.UserID())
}

func enrichBotStarted(env Envelope, id Identity, c *Context) {
	c.Description = "Bot started"
	if name := senderName(id); name != "" {
		c.Description = fmt.Sprintf("Bot started by %s", name)
	}
	c.setID("user_id", id.UserID())
	c.setID("chat_id", id.ChatID())
	c.setString("start_payload", env.FirstString(startPayloadPath...))
	locale := env.FirstString("user_locale")
	if locale == "" && id.User != nil {
		locale = id.User.Locale
	}
	c.setString("user_locale", locale)
}

func enrichUnknown(env Envelope, _ Identity, c *Context) {
	c.Description = fmt.Sprintf("Unrecognised event type %q", c.Type)
	keys := env.Keys()
	sort.Strings(keys)
	c.set("available_fields", keys)
}

func senderName(id Identity) string {
	if id.User == nil {
		return ""
	}
	if id.User.DisplayName != "" {
		return id.User.DisplayName
	}
	return id.User.Username
}

func firstArray(env Envelope, paths ...string) []gjson.Result {
	for _, p := range paths {
		if a := env.Get(p); a.IsArray() {
			return a.Array()
		}
	}
	return nil
}

func attachmentTypes(atts []gjson.Result) []string {
	types := make([]string, 0, len(atts))
	for _, a := range atts {
		t := a.Get("type").String()
		if t == "" {
			t = "unknown"
		}
		types = append(types, t)
	}
	return types
}

// sameAttachments compares two attachment lists by type and payload, in
// order.
func sameAttachments(a, b []gjson.Result) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Get("type").String() != b[i].Get("type").String() {
			return false
		}
		if !reflect.DeepEqual(a[i].Get("payload").Value(), b[i].Get("payload").Value()) {
			return false
		}
	}
	return true
}
