package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// ValidSchedule reports whether expr is a usable cron expression.
func ValidSchedule(expr string) bool {
	return gronx.New().IsValid(expr)
}

// Reporter sends the backup status to the operator on a cron schedule.
type Reporter struct {
	schedule string
	service  *Service
	send     func(context.Context, string) error
	logger   *slog.Logger
	now      func() time.Time
}

func NewReporter(schedule string, service *Service, send func(context.Context, string) error, logger *slog.Logger) (*Reporter, error) {
	if !ValidSchedule(schedule) {
		return nil, fmt.Errorf("invalid report schedule %q", schedule)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		schedule: schedule,
		service:  service,
		send:     send,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run blocks until ctx is cancelled, sending one report per schedule tick.
func (r *Reporter) Run(ctx context.Context) error {
	for {
		next, err := nextTick(r.schedule, r.now())
		if err != nil {
			return fmt.Errorf("report schedule: %w", err)
		}
		timer := time.NewTimer(next.Sub(r.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := r.runTick(ctx); err != nil {
			r.logger.Error("status report tick failed", "error", err)
		}
	}
}

func (r *Reporter) runTick(ctx context.Context) error {
	st, err := r.service.Status()
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r.send(sendCtx, FormatStatus(st, r.now())); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}

func nextTick(schedule string, now time.Time) (time.Time, error) {
	return gronx.NextTickAfter(schedule, now, false)
}
