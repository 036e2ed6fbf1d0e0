package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrMissingToken is returned when no bot token is configured or stored.
var ErrMissingToken = errors.New("telegram bot token not configured")

type Config struct {
	Telegram TelegramConfig  `yaml:"telegram"`
	Listener ListenerConfig  `yaml:"listener"`
	Backup   BackupConfig    `yaml:"backup"`
	Log      LogConfig       `yaml:"log"`
	Report   ReportConfig    `yaml:"report"`
	Commands []CommandConfig `yaml:"commands"`
}

type TelegramConfig struct {
	Token       string `env:"BACKUPBOT_TELEGRAM_TOKEN"        yaml:"token"`
	ChatID      int64  `env:"BACKUPBOT_TELEGRAM_CHAT_ID"      yaml:"chat_id"`
	APIEndpoint string `env:"BACKUPBOT_TELEGRAM_API_ENDPOINT" yaml:"api_endpoint"`
}

type ListenerConfig struct {
	PollWait       time.Duration `env:"BACKUPBOT_LISTENER_POLL_WAIT"       yaml:"poll_wait"`
	RequestTimeout time.Duration `env:"BACKUPBOT_LISTENER_REQUEST_TIMEOUT" yaml:"request_timeout"`
	RetryBackoff   time.Duration `env:"BACKUPBOT_LISTENER_RETRY_BACKOFF"   yaml:"retry_backoff"`
	HandlerTimeout time.Duration `env:"BACKUPBOT_LISTENER_HANDLER_TIMEOUT" yaml:"handler_timeout"`
}

type BackupConfig struct {
	Command   string        `env:"BACKUPBOT_BACKUP_COMMAND"    yaml:"command"`
	WorkDir   string        `env:"BACKUPBOT_BACKUP_WORKDIR"    yaml:"workdir"`
	Target    string        `env:"BACKUPBOT_BACKUP_TARGET"     yaml:"target"`
	Interval  time.Duration `env:"BACKUPBOT_BACKUP_INTERVAL"   yaml:"interval"`
	Timeout   time.Duration `env:"BACKUPBOT_BACKUP_TIMEOUT"    yaml:"timeout"`
	StateFile string        `env:"BACKUPBOT_BACKUP_STATE_FILE" yaml:"state_file"`
}

type LogConfig struct {
	Level string `env:"BACKUPBOT_LOG_LEVEL" yaml:"level"`
	File  string `env:"BACKUPBOT_LOG_FILE"  yaml:"file"`
}

type ReportConfig struct {
	// Schedule is a cron expression; empty disables the periodic report.
	Schedule string `env:"BACKUPBOT_REPORT_SCHEDULE" yaml:"schedule"`
}

// CommandConfig declares a custom shell command exposed in chat.
type CommandConfig struct {
	Token       string `yaml:"token"`
	Description string `yaml:"description"`
	Command     string `yaml:"command"`
	WorkDir     string `yaml:"workdir"`
}

// Dir returns the per-user config directory.
func Dir() string {
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, "backupbot")
	}
	return ".backupbot"
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func DefaultConfig() *Config {
	return &Config{
		Listener: ListenerConfig{
			PollWait:       30 * time.Second,
			RequestTimeout: 35 * time.Second,
			RetryBackoff:   5 * time.Second,
			HandlerTimeout: 30 * time.Second,
		},
		Backup: BackupConfig{
			Interval:  6 * time.Hour,
			Timeout:   2 * time.Hour,
			StateFile: filepath.Join(Dir(), "state.json"),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// ResolveToken fills the bot token from lookup when neither the file nor the
// environment provided one.
func (c *Config) ResolveToken(lookup func() (string, error)) error {
	if c.Telegram.Token != "" {
		return nil
	}
	if lookup != nil {
		if tok, err := lookup(); err == nil && tok != "" {
			c.Telegram.Token = tok
			return nil
		}
	}
	return ErrMissingToken
}

// Validate checks the values needed to start the listener.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, ErrMissingToken)
	}
	if c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id is required"))
	}
	l := c.Listener
	// Telegram takes the long-poll timeout in whole seconds; zero means a
	// short poll.
	if l.PollWait < time.Second {
		errs = append(errs, fmt.Errorf("listener.poll_wait (%s) must be at least 1s", l.PollWait))
	}
	if l.RequestTimeout <= l.PollWait {
		errs = append(errs, fmt.Errorf("listener.request_timeout (%s) must exceed listener.poll_wait (%s)",
			l.RequestTimeout, l.PollWait))
	}
	if l.RetryBackoff <= 0 {
		errs = append(errs, errors.New("listener.retry_backoff must be positive"))
	}
	if l.HandlerTimeout <= 0 {
		errs = append(errs, errors.New("listener.handler_timeout must be positive"))
	}
	if c.Backup.Interval <= 0 {
		errs = append(errs, errors.New("backup.interval must be positive"))
	}
	if c.Backup.StateFile == "" {
		errs = append(errs, errors.New("backup.state_file is required"))
	}
	if c.Report.Schedule != "" && !gronx.New().IsValid(c.Report.Schedule) {
		errs = append(errs, fmt.Errorf("report.schedule %q is not a valid cron expression", c.Report.Schedule))
	}
	seen := make(map[string]bool)
	for i, cmd := range c.Commands {
		tok := strings.ToLower(strings.TrimSpace(cmd.Token))
		switch {
		case tok == "":
			errs = append(errs, fmt.Errorf("commands[%d]: token is required", i))
		case cmd.Command == "":
			errs = append(errs, fmt.Errorf("commands[%d] %s: command is required", i, tok))
		case seen[tok]:
			errs = append(errs, fmt.Errorf("commands[%d]: duplicate token %s", i, tok))
		}
		seen[tok] = true
	}
	return errors.Join(errs...)
}

// Summary renders the configuration for chat with the token redacted.
func (c *Config) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chat: %d\n", c.Telegram.ChatID)
	fmt.Fprintf(&b, "Token: %s\n", redact(c.Telegram.Token))
	fmt.Fprintf(&b, "Poll wait: %s, request timeout: %s\n", c.Listener.PollWait, c.Listener.RequestTimeout)
	fmt.Fprintf(&b, "Retry backoff: %s, handler timeout: %s\n", c.Listener.RetryBackoff, c.Listener.HandlerTimeout)
	fmt.Fprintf(&b, "Backup command: %s\n", orNone(c.Backup.Command))
	fmt.Fprintf(&b, "Backup target: %s\n", orNone(c.Backup.Target))
	fmt.Fprintf(&b, "Backup interval: %s, timeout: %s\n", c.Backup.Interval, c.Backup.Timeout)
	fmt.Fprintf(&b, "Report schedule: %s\n", orNone(c.Report.Schedule))
	fmt.Fprintf(&b, "Log: %s (%s)\n", orNone(c.Log.File), c.Log.Level)
	fmt.Fprintf(&b, "Custom commands: %d", len(c.Commands))
	return b.String()
}

// redact keeps the bot id before the colon and hides the secret part.
func redact(token string) string {
	if token == "" {
		return "(none)"
	}
	if i := strings.IndexByte(token, ':'); i > 0 {
		return token[:i] + ":****"
	}
	return "****"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
