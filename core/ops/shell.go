package ops

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// maxShellOutput caps the output echoed back to the chat; longer output keeps its tail.
const maxShellOutput = 3500

// ShellOp is a custom shell command declared in the config file.
type ShellOp struct {
	CmdName string
	Desc    string
	Command string
	WorkDir string
}

func (s *ShellOp) Name() string        { return s.CmdName }
func (s *ShellOp) Description() string { return s.Desc }

// Execute runs the command with bash -l -c and replies with its combined output.
// Args replace every "{}" in the command, or are appended when there is none.
// On a non-zero exit the output tail is sent first, then the error is returned
// so the dispatcher follows up with its failure notice.
func (s *ShellOp) Execute(ctx context.Context, args string, r Responder) error {
	out, err := s.run(ctx, args)
	if err != nil {
		if out != "" {
			if rerr := r.Reply(ctx, fmt.Sprintf("❌ %s failed:\n%s", s.CmdName, out)); rerr != nil {
				return errors.Join(err, rerr)
			}
		}
		return err
	}
	if out == "" {
		out = "(no output)"
	}
	return r.Reply(ctx, out)
}

func (s *ShellOp) run(ctx context.Context, args string) (string, error) {
	command := s.Command
	switch {
	case strings.Contains(command, "{}"):
		command = strings.ReplaceAll(command, "{}", args)
	case args != "":
		command += " " + args
	}
	cmd := exec.CommandContext(ctx, "bash", "-l", "-c", command)
	cmd.WaitDelay = time.Second
	if s.WorkDir != "" {
		cmd.Dir = s.WorkDir
	}
	out, err := cmd.CombinedOutput()
	text := tail(strings.TrimSpace(string(out)), maxShellOutput)
	if err != nil {
		return text, fmt.Errorf("%s: %w\n%s", s.CmdName, err, text)
	}
	return text, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	// drop a partial leading rune or line
	if i := strings.IndexByte(s, '\n'); i != -1 && i < len(s)-1 {
		s = s[i+1:]
	}
	return "…\n" + s
}
