package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdelaire/backupbot/internal/backup"
)

// StartBackupOp enables automatic backups.
type StartBackupOp struct {
	Service *backup.Service
}

func (o *StartBackupOp) Name() string        { return "start" }
func (o *StartBackupOp) Description() string { return "Start automatic backups" }

func (o *StartBackupOp) Execute(ctx context.Context, _ string, r Responder) error {
	changed, err := o.Service.Start()
	if err != nil {
		return err
	}
	if !changed {
		return r.Reply(ctx, "✅ Automatic backups are already active.")
	}
	return r.Reply(ctx, fmt.Sprintf("🔄 Automatic backups started (every %s).", o.Service.Interval()))
}

// StopBackupOp disables automatic backups.
type StopBackupOp struct {
	Service *backup.Service
}

func (o *StopBackupOp) Name() string        { return "stop" }
func (o *StopBackupOp) Description() string { return "Stop automatic backups" }

func (o *StopBackupOp) Execute(ctx context.Context, _ string, r Responder) error {
	changed, err := o.Service.Stop()
	if err != nil {
		return err
	}
	if !changed {
		return r.Reply(ctx, "Automatic backups are already stopped.")
	}
	return r.Reply(ctx, "🛑 Automatic backups stopped.")
}

// ManualBackupOp starts a backup immediately. The backup runs in the
// background; its result is sent when it finishes.
type ManualBackupOp struct {
	Service *backup.Service
}

func (o *ManualBackupOp) Name() string        { return "manual" }
func (o *ManualBackupOp) Description() string { return "Run a backup now" }

func (o *ManualBackupOp) Execute(ctx context.Context, _ string, r Responder) error {
	id, err := o.Service.TriggerManual()
	if errors.Is(err, backup.ErrBackupRunning) {
		return r.Reply(ctx, "⏳ A backup is already running. Try again when it finishes.")
	}
	if err != nil {
		return err
	}
	return r.Reply(ctx, fmt.Sprintf("📤 Manual backup started (run %s).", shortID(id)))
}

// StatsOp reports run statistics.
type StatsOp struct {
	Service *backup.Service
	// Listener describes listener counters. Optional.
	Listener func() string
}

func (o *StatsOp) Name() string        { return "stats" }
func (o *StatsOp) Description() string { return "Show backup statistics" }

func (o *StatsOp) Execute(ctx context.Context, _ string, r Responder) error {
	st, err := o.Service.Stats(ctx)
	if err != nil {
		return err
	}
	text := backup.FormatStats(st)
	if o.Listener != nil {
		text += "\n" + o.Listener()
	}
	return r.Reply(ctx, text)
}

// ClearHistoryOp removes the recorded run history.
type ClearHistoryOp struct {
	Service *backup.Service
}

func (o *ClearHistoryOp) Name() string        { return "clear" }
func (o *ClearHistoryOp) Description() string { return "Clear the backup history" }

func (o *ClearHistoryOp) Execute(ctx context.Context, _ string, r Responder) error {
	n, err := o.Service.ClearHistory()
	if err != nil {
		return err
	}
	return r.Reply(ctx, fmt.Sprintf("🧹 Backup history cleared (%d runs removed).", n))
}

// RestartOp restarts the backup service.
type RestartOp struct {
	Service *backup.Service
}

func (o *RestartOp) Name() string        { return "restart" }
func (o *RestartOp) Description() string { return "Restart the backup service" }

func (o *RestartOp) Execute(ctx context.Context, _ string, r Responder) error {
	if err := o.Service.Restart(); err != nil {
		return err
	}
	return r.Reply(ctx, "🔄 Backup service restarted.")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
