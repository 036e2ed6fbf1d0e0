package ops_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jdelaire/backupbot/core/ops"
)

type mockOp struct {
	name string
	desc string
}

func (m *mockOp) Name() string        { return m.name }
func (m *mockOp) Description() string { return m.desc }
func (m *mockOp) Execute(ctx context.Context, _ string, r ops.Responder) error {
	return r.Reply(ctx, "ok")
}

// spyResponder records replies.
type spyResponder struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (s *spyResponder) Reply(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, text)
	return s.err
}

func (s *spyResponder) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return ""
	}
	return s.replies[len(s.replies)-1]
}

func TestRegisterAndMatch(t *testing.T) {
	r := ops.NewRegistry()
	op := &mockOp{name: "status", desc: "a test op"}
	if err := r.Register("/status", op); err != nil {
		t.Fatalf("register: %v", err)
	}

	e, args, ok := r.Match("/status")
	if !ok {
		t.Fatal("expected a match")
	}
	if e.Op != op || e.Token != "/status" || args != "" {
		t.Errorf("Match = %+v, %q", e, args)
	}
}

func TestMatchNotFound(t *testing.T) {
	r := ops.NewRegistry()
	r.Register("/status", &mockOp{name: "status"})

	for _, text := range []string{"/missing", "status", "", "/stat"} {
		if _, _, ok := r.Match(text); ok {
			t.Errorf("Match(%q) matched, want no match", text)
		}
	}
}

func TestMatchFirstRegisteredWins(t *testing.T) {
	r := ops.NewRegistry()
	status := &mockOp{name: "status"}
	stat := &mockOp{name: "stat"}
	r.Register("/status", status)
	r.Register("/stat", stat)

	e, args, ok := r.Match("/status now")
	if !ok || e.Op != status {
		t.Fatalf("Match(/status now) = %+v, want /status", e)
	}
	if args != "now" {
		t.Errorf("args = %q, want %q", args, "now")
	}
}

func TestRegisterRejectsShadowedToken(t *testing.T) {
	r := ops.NewRegistry()
	if err := r.Register("/status", &mockOp{name: "status"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := r.Register("/status_disk", &mockOp{name: "/status_disk"})
	if !errors.Is(err, ops.ErrShadowedToken) {
		t.Fatalf("err = %v, want ErrShadowedToken", err)
	}
	if r.Len() != 1 {
		t.Errorf("len = %d, want 1", r.Len())
	}
	if e, _, _ := r.Match("/status_disk"); e.Token != "/status" {
		t.Errorf("Match(/status_disk) = %s, want /status", e.Token)
	}

	// a shorter token registered later is fine: the longer one is tried first
	if err := r.Register("/stat", &mockOp{name: "stat"}); err != nil {
		t.Errorf("register /stat: %v", err)
	}
}

func TestRegisterAllowsAliasPrefix(t *testing.T) {
	r := ops.NewRegistry()
	cfg := &mockOp{name: "config"}
	if err := r.Register("/config", cfg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("/configuracion", cfg); err != nil {
		t.Fatalf("alias of the same op rejected: %v", err)
	}
	if e, _, ok := r.Match("/configuracion"); !ok || e.Op != cfg {
		t.Errorf("Match(/configuracion) = %+v", e)
	}
}

func TestMatchCaseInsensitive(t *testing.T) {
	r := ops.NewRegistry()
	r.Register("/Help", &mockOp{name: "help"})

	e, _, ok := r.Match("  /HELP  ")
	if !ok {
		t.Fatal("expected a match")
	}
	if e.Token != "/help" {
		t.Errorf("token = %q, want normalized /help", e.Token)
	}
}

func TestMatchBotSuffix(t *testing.T) {
	r := ops.NewRegistry()
	r.Register("/logs", &mockOp{name: "logs"})

	_, args, ok := r.Match("/logs@backup_bot 50")
	if !ok || args != "50" {
		t.Errorf("Match = %v, %q; want match with args 50", ok, args)
	}
	_, args, ok = r.Match("/logs@backup_bot")
	if !ok || args != "" {
		t.Errorf("Match = %v, %q; want match with no args", ok, args)
	}
}

func TestDuplicateRegister(t *testing.T) {
	r := ops.NewRegistry()
	if err := r.Register("/dup", &mockOp{name: "dup"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.Register(" /DUP ", &mockOp{name: "dup2"})
	if !errors.Is(err, ops.ErrDuplicateToken) {
		t.Errorf("err = %v, want ErrDuplicateToken", err)
	}
	if r.Len() != 1 {
		t.Errorf("len = %d, want 1", r.Len())
	}
}

func TestRegisterEmptyToken(t *testing.T) {
	r := ops.NewRegistry()
	if err := r.Register("  ", &mockOp{name: "x"}); !errors.Is(err, ops.ErrEmptyToken) {
		t.Errorf("err = %v, want ErrEmptyToken", err)
	}
}

func TestEntriesRegistrationOrder(t *testing.T) {
	r := ops.NewRegistry()
	r.Register("/zebra", &mockOp{name: "zebra"})
	r.Register("/alpha", &mockOp{name: "alpha"})
	r.Register("/mid", &mockOp{name: "mid"})

	entries := r.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	want := []string{"/zebra", "/alpha", "/mid"}
	for i, e := range entries {
		if e.Token != want[i] {
			t.Errorf("entries[%d] = %q, want %q", i, e.Token, want[i])
		}
	}

	// the returned slice is a copy
	entries[0].Token = "/changed"
	if r.Entries()[0].Token != "/zebra" {
		t.Error("Entries exposed internal state")
	}
}
