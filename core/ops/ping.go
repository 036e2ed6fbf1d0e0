package ops

import (
	"context"
	"fmt"
	"time"
)

// Pinger checks connectivity to the messaging backend and returns the bot identity.
type Pinger interface {
	Ping(ctx context.Context) (string, error)
}

// PingOp measures a round trip to the messaging backend.
type PingOp struct {
	Pinger Pinger
}

func (o *PingOp) Name() string        { return "test" }
func (o *PingOp) Description() string { return "Test connectivity" }

func (o *PingOp) Execute(ctx context.Context, _ string, r Responder) error {
	start := time.Now()
	who, err := o.Pinger.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	latency := time.Since(start).Round(time.Millisecond)
	return r.Reply(ctx, fmt.Sprintf("🏓 Pong from %s (%s)", who, latency))
}
