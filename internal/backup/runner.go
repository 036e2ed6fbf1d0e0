package backup

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxOutputLen = 2000
	// waitDelay bounds how long output pipes are drained after the command is killed.
	waitDelay = time.Second
)

// ErrNoCommand is returned when no backup command is configured.
var ErrNoCommand = errors.New("no backup command configured")

// Runner performs one backup and returns its combined output.
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// CommandRunner runs a shell command as the backup job.
type CommandRunner struct {
	Command string
	WorkDir string
}

func (c *CommandRunner) Run(ctx context.Context) (string, error) {
	if strings.TrimSpace(c.Command) == "" {
		return "", ErrNoCommand
	}
	cmd := exec.CommandContext(ctx, "bash", "-l", "-c", c.Command)
	cmd.WaitDelay = waitDelay
	if c.WorkDir != "" {
		cmd.Dir = c.WorkDir
	}
	out, err := cmd.CombinedOutput()
	output := truncateOutput(strings.TrimSpace(string(out)))
	if err != nil {
		if ctx.Err() != nil {
			return output, fmt.Errorf("backup command: %w", ctx.Err())
		}
		return output, fmt.Errorf("backup command: %w", err)
	}
	return output, nil
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context) (string, error)

func (f RunnerFunc) Run(ctx context.Context) (string, error) { return f(ctx) }

// truncateOutput keeps the tail of long output, where failures usually are.
func truncateOutput(s string) string {
	if len(s) <= maxOutputLen {
		return s
	}
	start := len(s) - maxOutputLen
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return "…" + s[start:]
}
