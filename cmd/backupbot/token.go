package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jdelaire/backupbot/internal/keychain"
)

func newSetTokenCommand() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:     "set-token [token]",
		Short:   "Store the bot token in the system keychain",
		Example: "echo \"$TOKEN\" | backupbot set-token",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remove {
				if err := keychain.DeleteToken(); err != nil {
					return fmt.Errorf("delete token: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Token removed from keychain.")
				return nil
			}

			token, err := readToken(cmd, args)
			if err != nil {
				return err
			}
			if err := keychain.SetToken(token); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token stored in keychain.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "Remove the stored token")
	return cmd
}

// readToken takes the token from the argument or the first line of stdin.
func readToken(cmd *cobra.Command, args []string) (string, error) {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", errors.New("no token given: pass it as an argument or on stdin")
		}
		token = line
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("token is empty")
	}
	return token, nil
}
