package ops

import "context"

// ConfigOp shows the running configuration.
type ConfigOp struct {
	// Summary renders the configuration with secrets redacted.
	Summary func() string
}

func (o *ConfigOp) Name() string        { return "config" }
func (o *ConfigOp) Description() string { return "Show the current configuration" }

func (o *ConfigOp) Execute(ctx context.Context, _ string, r Responder) error {
	return r.Reply(ctx, "⚙️ Configuration\n"+o.Summary())
}
