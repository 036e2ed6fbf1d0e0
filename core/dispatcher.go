package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/jdelaire/backupbot/core/ops"
	"github.com/jdelaire/backupbot/core/policy"
)

const (
	// fetchGrace is added to the poll wait to bound a fetch on the caller side.
	fetchGrace   = 5 * time.Second
	replyTimeout = 10 * time.Second

	defaultRetryBackoff   = 5 * time.Second
	defaultHandlerTimeout = 30 * time.Second

	unknownCommandReply = "Unknown command. Send /help for available commands."
)

// DispatcherConfig holds the values the dispatcher is started with.
type DispatcherConfig struct {
	AuthorizedChat int64
	// PollWait is how long the backend may hold a fetch open.
	PollWait time.Duration
	// RequestTimeout bounds a fetch on the caller side and must exceed PollWait.
	// Zero means PollWait plus a small grace period.
	RequestTimeout time.Duration
	RetryBackoff   time.Duration
	HandlerTimeout time.Duration
}

// State is the dispatcher's position in its polling cycle.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateProcessing
	StateBackingOff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateProcessing:
		return "processing"
	case StateBackingOff:
		return "backing off"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Outcome is what Dispatch did with a single message.
type Outcome int

const (
	OutcomeDropped Outcome = iota
	OutcomeEmpty
	OutcomeHandled
	OutcomeUnrecognized
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDropped:
		return "dropped"
	case OutcomeEmpty:
		return "empty"
	case OutcomeHandled:
		return "handled"
	case OutcomeUnrecognized:
		return "unrecognized"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Dispatcher long-polls the transport, authorizes inbound messages and routes
// commands to ops. The cursor and registry are owned by the goroutine calling
// Run; only State and Position may be read from elsewhere.
type Dispatcher struct {
	cfg       DispatcherConfig
	transport Transport
	policy    *policy.Policy
	ops       *ops.Registry
	metrics   *Metrics
	logger    *slog.Logger

	cursor   Cursor
	state    atomic.Int32
	position atomic.Int64
	sleep    func(ctx context.Context, d time.Duration)
}

// NewDispatcher creates a Dispatcher. A nil registry or metrics value is replaced by an empty one.
func NewDispatcher(cfg DispatcherConfig, t Transport, reg *ops.Registry, m *Metrics, logger *slog.Logger) *Dispatcher {
	if reg == nil {
		reg = ops.NewRegistry()
	}
	if m == nil {
		m = NewMetrics(nil)
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = defaultHandlerTimeout
	}
	if cfg.RequestTimeout <= cfg.PollWait {
		cfg.RequestTimeout = cfg.PollWait + fetchGrace
	}
	return &Dispatcher{
		cfg:       cfg,
		transport: t,
		policy:    policy.New(cfg.AuthorizedChat),
		ops:       reg,
		metrics:   m,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Register adds a command token. A duplicate token is a configuration error.
func (d *Dispatcher) Register(token string, op ops.Op) error {
	return d.ops.Register(token, op)
}

// State returns the current loop state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Position returns the cursor position.
func (d *Dispatcher) Position() int64 {
	return d.position.Load()
}

// Run polls until ctx is cancelled. Cancellation is checked before each
// fetch; a fetch already in flight completes or times out on its own.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", "chat_id", d.cfg.AuthorizedChat, "commands", d.ops.Len())
	defer d.setState(StateStopped)

	for {
		if ctx.Err() != nil {
			d.logger.Info("dispatcher stopped", "position", d.cursor.Position())
			return nil
		}

		d.setState(StatePolling)
		res := d.fetch(ctx)
		d.metrics.observePoll(res.Outcome)

		switch res.Outcome {
		case TransportFailure:
			d.setState(StateBackingOff)
			d.logger.Warn("fetch failed, backing off",
				"since", d.cursor.Next(), "backoff", d.cfg.RetryBackoff, "error", res.Err)
			d.sleep(ctx, d.cfg.RetryBackoff)
		case NoNewMessages:
		case MessagesReceived:
			d.setState(StateProcessing)
			d.process(ctx, res.Batch)
		}
	}
}

func (d *Dispatcher) fetch(ctx context.Context) FetchResult {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.RequestTimeout)
	defer cancel()

	batch, err := d.transport.Fetch(fetchCtx, d.cursor.Next(), d.cfg.PollWait)
	if err != nil {
		if !IsTransportError(err) {
			err = &TransportError{Op: "fetch", Err: err}
		}
		return FetchResult{Outcome: TransportFailure, Err: err}
	}
	if len(batch) == 0 {
		return FetchResult{Outcome: NoNewMessages}
	}
	return FetchResult{Outcome: MessagesReceived, Batch: batch}
}

// process dispatches a batch in sequence order and advances the cursor past
// every message seen, authorized or not.
func (d *Dispatcher) process(ctx context.Context, batch []Message) {
	slices.SortStableFunc(batch, func(a, b Message) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})

	maxSeen := d.cursor.Position()
	for _, msg := range batch {
		if msg.Seq > maxSeen {
			maxSeen = msg.Seq
		}
		d.Dispatch(ctx, msg)
	}

	d.cursor.Advance(maxSeen)
	d.position.Store(d.cursor.Position())
	d.metrics.setCursor(d.cursor.Position())
}

// Dispatch authorizes and routes a single message.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) Outcome {
	out := d.dispatch(ctx, msg)
	d.metrics.observeMessage(out)
	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, msg Message) Outcome {
	if err := d.policy.Authorize(msg.ChatID); err != nil {
		d.logger.Debug("message rejected by policy", "chat_id", msg.ChatID, "seq", msg.Seq, "error", err)
		return OutcomeDropped
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return OutcomeEmpty
	}

	entry, args, ok := d.ops.Match(text)
	if !ok {
		d.logger.Info("unrecognized command", "seq", msg.Seq, "text", truncate(text, 64))
		d.respond(ctx, unknownCommandReply)
		return OutcomeUnrecognized
	}

	d.logger.Info("command received", "command", entry.Token, "seq", msg.Seq)
	if err := d.execute(ctx, entry, args); err != nil {
		d.logger.Error("op failed", "command", entry.Token, "op", entry.Op.Name(), "error", err)
		d.respond(ctx, fmt.Sprintf("Command %s failed. Check the listener logs for details.", entry.Token))
		return OutcomeFailed
	}
	return OutcomeHandled
}

// execute runs an op, converting a panic into an error.
func (d *Dispatcher) execute(ctx context.Context, entry ops.Entry, args string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			d.logger.Error("op panicked", "command", entry.Token, "stack", string(debug.Stack()))
		}
	}()

	opCtx, cancel := context.WithTimeout(ctx, d.cfg.HandlerTimeout)
	defer cancel()

	return entry.Op.Execute(opCtx, args, responder{d: d})
}

func (d *Dispatcher) respond(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	defer cancel()

	if err := d.transport.SendText(ctx, d.cfg.AuthorizedChat, text); err != nil {
		d.logger.Error("failed to send response", "chat_id", d.cfg.AuthorizedChat, "error", err)
	}
}

func (d *Dispatcher) setState(s State) {
	d.state.Store(int32(s))
}

// responder replies to the authorized chat on behalf of an op.
type responder struct {
	d *Dispatcher
}

func (r responder) Reply(ctx context.Context, text string) error {
	return r.d.transport.SendText(ctx, r.d.cfg.AuthorizedChat, text)
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
