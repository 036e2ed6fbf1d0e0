package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jdelaire/backupbot/adapters/telegram_transport"
	"github.com/jdelaire/backupbot/core"
	"github.com/jdelaire/backupbot/core/ops"
	"github.com/jdelaire/backupbot/internal/backup"
	"github.com/jdelaire/backupbot/internal/config"
	"github.com/jdelaire/backupbot/internal/logging"
)

func newListenCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "listen",
		Aliases: []string{"run"},
		Short:   "Listen for chat commands until interrupted",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, closer, err := logging.New(cfg.Log.Level, cfg.Log.File)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return listen(ctx, cfg, logger)
		},
	}
}

// listen runs the command dispatcher, the backup scheduler and the optional
// status reporter until ctx is cancelled.
func listen(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tr, err := telegram_transport.New(cfg.Telegram.Token, telegram_transport.Options{
		Endpoint:       cfg.Telegram.APIEndpoint,
		RequestTimeout: cfg.Listener.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	notifier := core.NewChatNotifier(tr, cfg.Telegram.ChatID, logger)

	svc := backup.NewService(backup.NewStore(cfg.Backup.StateFile), backup.Options{
		Runner:   &backup.CommandRunner{Command: cfg.Backup.Command, WorkDir: cfg.Backup.WorkDir},
		Interval: cfg.Backup.Interval,
		Timeout:  cfg.Backup.Timeout,
		Target:   cfg.Backup.Target,
		Send:     notifier.Func("backup"),
		Logger:   logger.With("component", "backup"),
	})
	defer svc.Close()

	metrics := core.NewMetrics(prometheus.NewRegistry())
	reg := ops.NewRegistry()
	d := core.NewDispatcher(core.DispatcherConfig{
		AuthorizedChat: cfg.Telegram.ChatID,
		PollWait:       cfg.Listener.PollWait,
		RequestTimeout: cfg.Listener.RequestTimeout,
		RetryBackoff:   cfg.Listener.RetryBackoff,
		HandlerTimeout: cfg.Listener.HandlerTimeout,
	}, tr, reg, metrics, logger.With("component", "dispatcher"))

	if err := registerCommands(d, reg, cfg, svc, tr, metrics); err != nil {
		return err
	}

	var rep *backup.Reporter
	if cfg.Report.Schedule != "" {
		rep, err = backup.NewReporter(cfg.Report.Schedule, svc, notifier.Func("report"), logger.With("component", "report"))
		if err != nil {
			return fmt.Errorf("status report: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Run(gctx) })
	g.Go(func() error { return svc.Run(gctx) })
	if rep != nil {
		g.Go(func() error { return rep.Run(gctx) })
	}

	logger.Info("backupbot listening", "version", version, "chat_id", cfg.Telegram.ChatID, "commands", reg.Len())
	return g.Wait()
}
