package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdelaire/backupbot/adapters/telegram_transport"
	"github.com/jdelaire/backupbot/internal/config"
	"github.com/jdelaire/backupbot/internal/keychain"
)

func newCheckCommand(configPath *string) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and test the bot token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config %s is valid.\n%s\n", *configPath, cfg.Summary())
			if offline {
				return nil
			}

			tr, err := telegram_transport.New(cfg.Telegram.Token, telegram_transport.Options{
				Endpoint:       cfg.Telegram.APIEndpoint,
				RequestTimeout: cfg.Listener.RequestTimeout,
				Verify:         true,
				Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
			})
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			who, err := tr.Ping(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Connected as %s.\n", who)
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Only validate the config file")
	return cmd
}

// loadConfig loads, fills the token from the keychain and validates.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveToken(keychain.Token); err != nil {
		return nil, fmt.Errorf("%w: set telegram.token, BACKUPBOT_TELEGRAM_TOKEN or run set-token", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
