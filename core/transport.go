package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jdelaire/backupbot/core/ops"
)

// Transport is the messaging backend the dispatcher polls and replies through.
type Transport interface {
	// Fetch returns messages with a sequence id >= since, holding the request
	// open for up to wait when none are available.
	Fetch(ctx context.Context, since int64, wait time.Duration) ([]Message, error)
	SendText(ctx context.Context, chatID int64, text string) error
}

// Pinger is implemented by transports that can check their own connectivity.
type Pinger = ops.Pinger

// TransportError reports a network, timeout or malformed-response failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// FetchOutcome classifies the result of a single fetch.
type FetchOutcome int

const (
	NoNewMessages FetchOutcome = iota
	MessagesReceived
	TransportFailure
)

func (o FetchOutcome) String() string {
	switch o {
	case NoNewMessages:
		return "empty"
	case MessagesReceived:
		return "messages"
	case TransportFailure:
		return "error"
	default:
		return "unknown"
	}
}

// FetchResult is the outcome of one fetch against the transport.
type FetchResult struct {
	Outcome FetchOutcome
	Batch   []Message
	Err     error
}
