package ops

import (
	"context"
	"fmt"
	"strings"
)

// HelpOp lists all registered commands in registration order.
type HelpOp struct {
	Registry *Registry
}

func (h *HelpOp) Name() string        { return "help" }
func (h *HelpOp) Description() string { return "List available commands" }

func (h *HelpOp) Execute(ctx context.Context, _ string, r Responder) error {
	return r.Reply(ctx, h.Text())
}

// Text renders the help message. Aliases of the same op share one line.
func (h *HelpOp) Text() string {
	entries := h.Registry.Entries()
	if len(entries) == 0 {
		return "No commands available."
	}

	var order []string
	tokens := make(map[string][]string)
	descs := make(map[string]string)
	for _, e := range entries {
		name := e.Op.Name()
		if _, seen := tokens[name]; !seen {
			order = append(order, name)
			descs[name] = e.Op.Description()
		}
		tokens[name] = append(tokens[name], e.Token)
	}

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, name := range order {
		t := tokens[name]
		line := t[0]
		if len(t) > 1 {
			line += " (" + strings.Join(t[1:], ", ") + ")"
		}
		fmt.Fprintf(&b, "  %s — %s\n", line, descs[name])
	}
	return b.String()
}
