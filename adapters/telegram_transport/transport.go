package telegram_transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jdelaire/backupbot/core"
)

const (
	// DefaultEndpoint is the public Bot API; the format takes the token and method.
	DefaultEndpoint = tgbotapi.APIEndpoint

	// maxMessageLen stays under Telegram's 4096 character limit.
	maxMessageLen = 4000

	defaultRequestTimeout = 35 * time.Second
)

// Options configures a Transport.
type Options struct {
	// Endpoint is a format string taking the token and the method name.
	Endpoint string
	// RequestTimeout bounds every HTTP request and must exceed the poll wait.
	RequestTimeout time.Duration
	// Verify calls getMe in New and fails on a rejected token or an
	// unreachable API. A long-running listener leaves it off and lets the
	// poll loop retry transport failures.
	Verify bool
	Logger *slog.Logger
}

// Transport implements core.Transport over the Telegram Bot API.
type Transport struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger

	mu       sync.Mutex
	userName string
}

// New builds a Bot API client. No request is made unless opts.Verify is set.
func New(token string, opts Options) (*Transport, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := &http.Client{Timeout: opts.RequestTimeout}
	if !opts.Verify {
		bot := &tgbotapi.BotAPI{Token: token, Client: client, Buffer: 100}
		bot.SetAPIEndpoint(opts.Endpoint)
		return &Transport{bot: bot, logger: logger}, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, opts.Endpoint, client)
	if err != nil {
		return nil, &core.TransportError{Op: "connect", Err: describe(err)}
	}
	logger.Info("telegram transport connected", "bot", bot.Self.UserName)
	return &Transport{bot: bot, logger: logger, userName: bot.Self.UserName}, nil
}

// UserName returns the bot's username from the last successful getMe, or ""
// before one has been made.
func (t *Transport) UserName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.userName
}

// Fetch calls getUpdates with offset since. The Bot API client has no context
// support, so a fetch in flight is bounded by the HTTP client timeout rather
// than ctx; ctx is only checked before the request is made.
func (t *Transport) Fetch(ctx context.Context, since int64, wait time.Duration) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.TransportError{Op: "fetch", Err: err}
	}

	cfg := tgbotapi.NewUpdate(int(since))
	cfg.Timeout = waitSeconds(wait)
	updates, err := t.bot.GetUpdates(cfg)
	if err != nil {
		return nil, &core.TransportError{Op: "fetch", Err: describe(err)}
	}

	out := make([]core.Message, 0, len(updates))
	for _, u := range updates {
		out = append(out, toMessage(u))
	}
	return out, nil
}

// waitSeconds converts the long-poll wait to Telegram's whole-second timeout,
// rounding up so a positive wait never becomes a short poll.
func waitSeconds(wait time.Duration) int {
	if wait <= 0 {
		return 0
	}
	return int((wait + time.Second - 1) / time.Second)
}

// toMessage maps an update. Updates without a message keep their sequence id
// so the cursor still moves past them.
func toMessage(u tgbotapi.Update) core.Message {
	msg := core.Message{Seq: int64(u.UpdateID)}
	m := u.Message
	if m == nil {
		return msg
	}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
	}
	msg.Text = m.Text
	msg.ReceivedAt = time.Unix(int64(m.Date), 0)
	return msg
}

// SendText sends text to chatID, split into chunks under the message size limit.
func (t *Transport) SendText(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range Split(text, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return &core.TransportError{Op: "send", Err: err}
		}
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return &core.TransportError{Op: "send", Err: describe(err)}
		}
	}
	return nil
}

// Ping calls getMe and returns the bot's @username.
func (t *Transport) Ping(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &core.TransportError{Op: "ping", Err: err}
	}
	me, err := t.bot.GetMe()
	if err != nil {
		return "", &core.TransportError{Op: "ping", Err: describe(err)}
	}
	t.mu.Lock()
	t.userName = me.UserName
	t.mu.Unlock()
	return "@" + me.UserName, nil
}

// describe adds the API error code and retry hint to Bot API errors.
func describe(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.RetryAfter > 0 {
		return fmt.Errorf("api error %d: %s (retry after %ds)", apiErr.Code, apiErr.Message, apiErr.RetryAfter)
	}
	return fmt.Errorf("api error %d: %s", apiErr.Code, apiErr.Message)
}

// Split breaks text into chunks of at most n runes, preferring line breaks.
func Split(text string, n int) []string {
	if utf8.RuneCountInString(text) <= n {
		return []string{text}
	}

	var chunks []string
	for utf8.RuneCountInString(text) > n {
		cut := byteOffset(text, n)
		if i := strings.LastIndexByte(text[:cut], '\n'); i > 0 {
			cut = i + 1
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], "\n"))
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// byteOffset returns the byte index of the n-th rune.
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
