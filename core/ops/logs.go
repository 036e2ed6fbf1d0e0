package ops

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jdelaire/backupbot/internal/logging"
)

const (
	defaultLogLines = 20
	maxLogLines     = 200
)

// LogsOp replies with the tail of the listener's log file.
type LogsOp struct {
	Path string
}

func (o *LogsOp) Name() string        { return "logs" }
func (o *LogsOp) Description() string { return "Show recent log lines (/logs [n])" }

func (o *LogsOp) Execute(ctx context.Context, args string, r Responder) error {
	if o.Path == "" {
		return r.Reply(ctx, "No log file configured. Set log.file to enable /logs.")
	}
	n, ok := parseLineCount(args)
	if !ok {
		return r.Reply(ctx, fmt.Sprintf("Usage: /logs [n], with n between 1 and %d.", maxLogLines))
	}
	lines, err := logging.Tail(o.Path, n)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return r.Reply(ctx, "Log file is empty.")
	}
	return r.Reply(ctx, fmt.Sprintf("📜 Last %d log lines\n%s", len(lines), strings.Join(lines, "\n")))
}

// parseLineCount reads the optional line count, capped at maxLogLines.
func parseLineCount(args string) (int, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return defaultLogLines, true
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, maxLogLines), true
}
