package event

// reportBuilder accumulates findings for one envelope.
type reportBuilder struct {
	errors   []Issue
	warnings []Issue
}

func (b *reportBuilder) fail(field, msg string) {
	b.errors = append(b.errors, Issue{Field: field, Message: msg, Severity: SeverityError})
}

func (b *reportBuilder) warn(field, msg string) {
	b.warnings = append(b.warnings, Issue{Field: field, Message: msg, Severity: SeverityWarning})
}

func (b *reportBuilder) report() Report {
	r := Report{Errors: b.errors, Warnings: b.warnings}
	if r.Errors == nil {
		r.Errors = []Issue{}
	}
	if r.Warnings == nil {
		r.Warnings = []Issue{}
	}
	r.IsValid = len(r.Errors) == 0
	return r
}

// Validate checks env against the rules for t. Unknown types only get the
// rules shared by every type. Validate never panics on malformed input;
// missing optional data yields warnings and errors are reserved for
// envelopes that cannot be processed as their declared type at all.
func Validate(t UpdateType, env Envelope) Report {
	var b reportBuilder
	variantFor(t).validate(env, &b)
	if _, ok := env.Timestamp(); !ok {
		if env.Has("timestamp") {
			b.warn("timestamp", "timestamp is not numeric, using current time")
		} else {
			b.warn("timestamp", "timestamp is missing, using current time")
		}
	}
	return b.report()
}

func validateMessageCreated(env Envelope, b *reportBuilder) {
	if !env.HasObject("message") {
		b.fail("message", "message object is required")
	} else if !hasMessageContent(env) {
		b.warn("message.body", "message has no text and no attachments")
	}
	if !env.HasObject("message.sender") && !env.HasObject("user") {
		b.warn("message.sender", "message sender is missing")
	}
}

// validateMessageChatCreated applies the message rules when the update
// carries a message, and the chat-creation rules otherwise.
func validateMessageChatCreated(env Envelope, b *reportBuilder) {
	if env.HasObject("message") {
		validateMessageCreated(env, b)
		return
	}
	if !env.HasObject("chat") {
		b.warn("chat", "chat object is missing")
	} else if !env.Has("chat.chat_id") {
		b.warn("chat.chat_id", "chat id is missing")
	}
	if !env.Has("message_id") {
		b.warn("message_id", "message id is missing")
	}
}

func validateMessageEdited(env Envelope, b *reportBuilder) {
	if !env.HasObject("message") {
		b.fail("message", "message object is required")
	}
	if !env.Has("old_message") && !env.Has("new_message") {
		b.warn("new_message", "neither old_message nor new_message is present, changes cannot be compared")
	}
}

func validateMessageRemoved(env Envelope, b *reportBuilder) {
	if env.MessageID().IsZero() {
		b.warn("message_id", "message id could not be found")
	}
	if !env.Has("chat_id") && !env.Has("chat.chat_id") {
		b.warn("chat_id", "chat id is missing")
	}
	if !env.Has("user_id") && !env.Has("user.user_id") {
		b.warn("user_id", "user id is missing")
	}
	if !env.Has("deletion_context") {
		b.warn("deletion_context", "deletion context is missing")
	}
}

func validateMessageCallback(env Envelope, b *reportBuilder) {
	if !env.HasObject("callback") {
		b.fail("callback", "callback object is required")
		return
	}
	if !env.Has("callback.payload") && env.CallbackID().IsZero() {
		b.warn("callback.payload", "callback has neither payload nor callback_id")
	}
}

// validateChatRef is shared by every update that targets a chat.
func validateChatRef(env Envelope, b *reportBuilder) {
	switch {
	case !env.HasObject("chat") && !env.Has("chat_id"):
		b.fail("chat", "chat or chat_id is required")
	case env.HasObject("chat") && !env.Has("chat.chat_id"):
		b.warn("chat.chat_id", "chat id is missing from chat object")
	}
}

func validateMembership(env Envelope, b *reportBuilder) {
	validateChatRef(env, b)
	if !env.HasObject("user") {
		b.warn("user", "user object is missing")
	}
	if !env.Has("is_channel") {
		b.warn("is_channel", "is_channel flag is missing")
	}
	if !env.Has("membership_context") {
		b.warn("membership_context", "membership context is missing")
	}
}

func validateChatTitleChanged(env Envelope, b *reportBuilder) {
	validateChatRef(env, b)
	if !env.HasObject("user") {
		b.warn("user", "user object is missing")
	}
	if env.FirstString(newTitlePaths...) == "" {
		b.warn("title", "new chat title is missing")
	}
	if !env.Has("chat_changes") {
		b.warn("chat_changes", "chat changes are missing")
	}
}

func validateBotStarted(env Envelope, b *reportBuilder) {
	if !env.HasObject("user") {
		b.warn("user", "user object is missing")
	}
}

func validateUnknown(Envelope, *reportBuilder) {}

func hasMessageContent(env Envelope) bool {
	if env.FirstString(messageTextPaths...) != "" {
		return true
	}
	for _, p := range attachmentPaths {
		if a := env.Get(p); a.IsArray() && len(a.Array()) > 0 {
			return true
		}
	}
	return false
}
