package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/jdelaire/backupbot/core"
	"github.com/jdelaire/backupbot/core/ops"
	"github.com/jdelaire/backupbot/internal/backup"
	"github.com/jdelaire/backupbot/internal/config"
	"github.com/jdelaire/backupbot/internal/keychain"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)

	assert.Equal(t, "backupbot", cmd.Use)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))

	for _, name := range []string{"listen", "check", "set-token", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.True(t, sub.RunE != nil || sub.Run != nil, name)
	}

	check, _, err := cmd.Find([]string{"check"})
	require.NoError(t, err)
	assert.NotNil(t, check.Flags().Lookup("offline"))
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "backupbot dev"))
}

func TestSetTokenFromStdin(t *testing.T) {
	keyring.MockInit()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("  42:secret\n"))
	cmd.SetArgs([]string{"set-token"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "stored")

	tok, err := keychain.Token()
	require.NoError(t, err)
	assert.Equal(t, "42:secret", tok)
}

func TestSetTokenEmpty(t *testing.T) {
	keyring.MockInit()

	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetIn(strings.NewReader("\n"))
	cmd.SetArgs([]string{"set-token"})
	assert.Error(t, cmd.Execute())
}

func TestCheckOffline(t *testing.T) {
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  token: \"7:abc\"\n  chat_id: 5\n"), 0o600))

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", "--offline", "--config", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "is valid")
	assert.Contains(t, out.String(), "7:****")
	assert.NotContains(t, out.String(), "abc")
}

func TestCheckMissingToken(t *testing.T) {
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  chat_id: 5\n"), 0o600))

	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"check", "--offline", "--config", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingToken)
}

type nopTransport struct{}

func (nopTransport) Fetch(context.Context, int64, time.Duration) ([]core.Message, error) {
	return nil, nil
}
func (nopTransport) SendText(context.Context, int64, string) error { return nil }
func (nopTransport) Ping(context.Context) (string, error)           { return "@bot", nil }

func TestRegisterCommandsOrder(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()
	cfg.Telegram.ChatID = 1
	cfg.Commands = []config.CommandConfig{{Token: "/disk", Description: "Disk usage", Command: "df -h"}}

	svc := backup.NewService(backup.NewStore(filepath.Join(t.TempDir(), "state.json")), backup.Options{Logger: logger})
	defer svc.Close()

	metrics := core.NewMetrics(nil)
	reg := ops.NewRegistry()
	d := core.NewDispatcher(core.DispatcherConfig{AuthorizedChat: 1}, nopTransport{}, reg, metrics, logger)
	require.NoError(t, registerCommands(d, reg, cfg, svc, nopTransport{}, metrics))

	var tokens []string
	for _, e := range reg.Entries() {
		tokens = append(tokens, e.Token)
	}
	assert.Equal(t, []string{
		"/help", "/ayuda",
		"/start_backup", "/iniciar_backup",
		"/stop_backup", "/detener_backup",
		"/status", "/estado",
		"/backup_now", "/backup_manual",
		"/stats", "/estadisticas",
		"/config", "/configuracion",
		"/clear_history", "/limpiar_historial",
		"/device", "/dispositivo",
		"/restart", "/reiniciar",
		"/logs",
		"/test", "/ping",
		"/disk",
	}, tokens)

	// a custom command reusing a built-in token is rejected
	cfg.Commands = []config.CommandConfig{{Token: "/status", Command: "true"}}
	reg2 := ops.NewRegistry()
	d2 := core.NewDispatcher(core.DispatcherConfig{AuthorizedChat: 1}, nopTransport{}, reg2, metrics, logger)
	err := registerCommands(d2, reg2, cfg, svc, nopTransport{}, metrics)
	assert.ErrorIs(t, err, ops.ErrDuplicateToken)

	// so is one that a built-in token would always match first
	cfg.Commands = []config.CommandConfig{{Token: "/status_disk", Command: "df -h"}}
	reg3 := ops.NewRegistry()
	d3 := core.NewDispatcher(core.DispatcherConfig{AuthorizedChat: 1}, nopTransport{}, reg3, metrics, logger)
	err = registerCommands(d3, reg3, cfg, svc, nopTransport{}, metrics)
	assert.ErrorIs(t, err, ops.ErrShadowedToken)
}

func TestListenSurvivesUnreachableAPIAtStartup(t *testing.T) {
	var mu sync.Mutex
	var meCalls, updateCalls int
	polled := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			meCalls++
			http.Error(w, "unavailable", http.StatusInternalServerError)
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			updateCalls++
			if updateCalls <= 2 {
				http.Error(w, "unavailable", http.StatusInternalServerError)
				return
			}
			if updateCalls == 3 {
				close(polled)
			}
			io.WriteString(w, `{"ok":true,"result":[]}`)
		default:
			io.WriteString(w, `{"ok":true,"result":{}}`)
		}
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Telegram.Token = "1:x"
	cfg.Telegram.ChatID = 7
	cfg.Telegram.APIEndpoint = srv.URL + "/bot%s/%s"
	cfg.Listener.PollWait = time.Second
	cfg.Listener.RequestTimeout = 2 * time.Second
	cfg.Listener.RetryBackoff = 10 * time.Millisecond
	cfg.Backup.StateFile = filepath.Join(t.TempDir(), "state.json")
	cfg.Report.Schedule = ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- listen(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	select {
	case <-polled:
	case err := <-done:
		t.Fatalf("listen exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not recover from failed polls")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, meCalls)
}
