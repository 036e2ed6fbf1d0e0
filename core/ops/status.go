package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/jdelaire/backupbot/internal/backup"
)

// StatusOp reports the backup service and listener state.
type StatusOp struct {
	Service *backup.Service
	// Listener describes the command listener. Optional.
	Listener func() string
	// Started is when the listener came up; zero omits the uptime line.
	Started time.Time
}

func (o *StatusOp) Name() string        { return "status" }
func (o *StatusOp) Description() string { return "Show backup status" }

func (o *StatusOp) Execute(ctx context.Context, _ string, r Responder) error {
	st, err := o.Service.Status()
	if err != nil {
		return err
	}
	text := backup.FormatStatus(st, time.Now())
	if !o.Started.IsZero() {
		text += fmt.Sprintf("\nListener uptime: %s", time.Since(o.Started).Truncate(time.Second))
	}
	if o.Listener != nil {
		text += "\n" + o.Listener()
	}
	return r.Reply(ctx, text)
}
