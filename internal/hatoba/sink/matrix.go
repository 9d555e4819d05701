package sink

import (
	"context"
	"fmt"
	"strings"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Hatoba/common/trace"
	"github.com/bdobrica/Hatoba/internal/hatoba/event"
)

// Sender is the subset of the Matrix client needed by MatrixSink.
type Sender interface {
	SendNotice(ctx context.Context, roomID, message string) error
}

// MatrixSink posts a one-line notice per record to an operator room.
type MatrixSink struct {
	sender Sender
	roomID string
}

// NewMatrixSink creates a MatrixSink posting to roomID via sender.
func NewMatrixSink(sender Sender, roomID string) *MatrixSink {
	return &MatrixSink{sender: sender, roomID: roomID}
}

// Name implements Sink.
func (s *MatrixSink) Name() string { return "matrix" }

// Deliver implements Sink.
func (s *MatrixSink) Deliver(ctx context.Context, source string, rec event.Record) error {
	if err := s.sender.SendNotice(ctx, s.roomID, FormatNotice(ctx, source, rec)); err != nil {
		return fmt.Errorf("send notice to %s: %w", s.roomID, err)
	}
	return nil
}

// FormatNotice renders rec as a short operator notice.
func FormatNotice(ctx context.Context, source string, rec event.Record) string {
	if rec.Passthrough() {
		msg := fmt.Sprintf("ℹ️ [%s] untyped payload passed through", source)
		if tid := trace.FromContext(ctx); tid != "" {
			msg += "\n  trace: " + tid
		}
		return msg
	}

	icon := "✅"
	if !rec.Validation.IsValid {
		icon = "⚠️"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s: %s", icon, source, rec.UpdateType, rec.Context.Description)
	if c := rec.Metadata.ChatContext; c != nil && !c.ChatID.IsZero() {
		fmt.Fprintf(&b, "\n  chat: %s", c.ChatID)
	}
	if u := rec.Metadata.UserContext; u != nil && !u.UserID.IsZero() {
		fmt.Fprintf(&b, "\n  user: %s", u.UserID)
	}
	if n := len(rec.Validation.Errors); n > 0 {
		fields := make([]string, 0, n)
		for _, e := range rec.Validation.Errors {
			fields = append(fields, e.Field)
		}
		fmt.Fprintf(&b, "\n  errors: %s", strings.Join(fields, ", "))
	}
	fmt.Fprintf(&b, "\n  event: %s", rec.EventID)
	if tid := trace.FromContext(ctx); tid != "" {
		fmt.Fprintf(&b, "\n  trace: %s", tid)
	}
	return b.String()
}

// MatrixClient sends notices through a mautrix client. It never syncs.
type MatrixClient struct {
	mxc *mautrix.Client
}

// NewMatrixClient creates a send-only Matrix client.
func NewMatrixClient(homeserver, userID, accessToken string) (*MatrixClient, error) {
	mxc, err := mautrix.NewClient(homeserver, id.UserID(userID), accessToken)
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}
	return &MatrixClient{mxc: mxc}, nil
}

// SendNotice implements Sender.
func (c *MatrixClient) SendNotice(ctx context.Context, roomID, message string) error {
	_, err := c.mxc.SendNotice(ctx, id.RoomID(roomID), message)
	return err
}
