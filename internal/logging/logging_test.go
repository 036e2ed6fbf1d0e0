package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "backupbot.log")
	logger, closer, err := New("info", path)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("dispatcher started", "chat_id", 7)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dispatcher started")
	assert.NotContains(t, string(data), "hidden")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var b strings.Builder
	for i := 1; i <= 50; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	lines, err := Tail(path, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"line 48", "line 49", "line 50"}, lines)

	lines, err = Tail(path, 100)
	require.NoError(t, err)
	assert.Len(t, lines, 50)

	_, err = Tail(filepath.Join(t.TempDir(), "missing.log"), 5)
	assert.Error(t, err)
}
