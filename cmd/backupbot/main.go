package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jdelaire/backupbot/internal/config"
)

var version = "dev"

func NewRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "backupbot",
		Short:         "Remote control for backups over Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Path to the config file")

	cmd.AddCommand(
		newListenCommand(&configPath),
		newCheckCommand(&configPath),
		newSetTokenCommand(),
		newVersionCommand(),
	)
	return cmd
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
