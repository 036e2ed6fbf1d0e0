package policy

import (
	"errors"
	"fmt"
)

// ErrUnauthorizedChat is returned for messages from any chat but the configured one.
var ErrUnauthorizedChat = errors.New("unauthorized chat")

// Policy authorizes inbound messages against a single chat identifier fixed at startup.
type Policy struct {
	chatID int64
}

// New creates a Policy that authorizes only chatID.
func New(chatID int64) *Policy {
	return &Policy{chatID: chatID}
}

// ChatID returns the authorized chat identifier.
func (p *Policy) ChatID() int64 {
	return p.chatID
}

// Authorize checks whether a message from chatID should be processed.
func (p *Policy) Authorize(chatID int64) error {
	if chatID != p.chatID {
		return fmt.Errorf("%w: %d", ErrUnauthorizedChat, chatID)
	}
	return nil
}
