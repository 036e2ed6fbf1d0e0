package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Notifier delivers notifications to an external channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// ChatNotifier delivers notifications to the authorized chat over a Transport.
// Unlike the dispatcher it may be used from any goroutine.
type ChatNotifier struct {
	transport Transport
	chatID    int64
	logger    *slog.Logger
}

// NewChatNotifier creates a notifier bound to chatID.
func NewChatNotifier(t Transport, chatID int64, logger *slog.Logger) *ChatNotifier {
	return &ChatNotifier{transport: t, chatID: chatID, logger: logger}
}

func (c *ChatNotifier) Name() string { return "chat" }

func (c *ChatNotifier) Send(ctx context.Context, n Notification) error {
	if err := c.transport.SendText(ctx, c.chatID, n.Text); err != nil {
		return fmt.Errorf("notify %s: %w", n.ID, err)
	}
	c.logger.Info("notification sent", "id", n.ID, "source", n.Source)
	return nil
}

// Notify wraps text in a Notification with a fresh id and sends it.
func (c *ChatNotifier) Notify(ctx context.Context, source, text string) error {
	return c.Send(ctx, Notification{
		ID:        uuid.New().String(),
		Text:      text,
		Source:    source,
		CreatedAt: time.Now(),
	})
}

// Func returns a send function with a fixed source, for components that only need text delivery.
func (c *ChatNotifier) Func(source string) func(context.Context, string) error {
	return func(ctx context.Context, text string) error {
		return c.Notify(ctx, source, text)
	}
}
