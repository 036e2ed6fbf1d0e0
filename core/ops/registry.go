package ops

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateToken = errors.New("command token already registered")
	ErrShadowedToken  = errors.New("command token unreachable behind an earlier token")
	ErrEmptyToken     = errors.New("command token is empty")
)

// Responder sends a reply back to the chat a command came from.
type Responder interface {
	Reply(ctx context.Context, text string) error
}

// Op defines an executable operation triggered by an inbound command.
// An op owns its replies; a returned error is reported to the chat generically by the caller.
type Op interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args string, r Responder) error
}

// Entry binds a command token to an op.
type Entry struct {
	Token string
	Op    Op
}

// Registry is an ordered list of command tokens. Matching walks the list in
// registration order, so earlier tokens win over later ones sharing a prefix.
// It is built once at startup and is not safe for concurrent Register calls.
type Registry struct {
	entries []Entry
	tokens  map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]bool)}
}

// Register appends a token. Tokens are compared case-insensitively; registering
// the same token twice is an error. So is a token that an earlier token of a
// different op prefixes, since Match would never reach it. Aliases of the same
// op (compared by Name) may share a prefix.
func (r *Registry) Register(token string, op Op) error {
	token = normalizeToken(token)
	if token == "" {
		return ErrEmptyToken
	}
	if r.tokens[token] {
		return fmt.Errorf("%w: %s", ErrDuplicateToken, token)
	}
	for _, e := range r.entries {
		if strings.HasPrefix(token, e.Token) && e.Op.Name() != op.Name() {
			return fmt.Errorf("%w: %s matches %s first", ErrShadowedToken, token, e.Token)
		}
	}
	r.tokens[token] = true
	r.entries = append(r.entries, Entry{Token: token, Op: op})
	return nil
}

// Match returns the first entry whose token prefixes text (case-insensitive)
// together with the remaining arguments.
func (r *Registry) Match(text string) (Entry, string, bool) {
	text = strings.TrimSpace(text)
	for _, e := range r.entries {
		if len(text) < len(e.Token) || !strings.EqualFold(text[:len(e.Token)], e.Token) {
			continue
		}
		return e, commandArgs(text[len(e.Token):]), true
	}
	return Entry{}, "", false
}

// Entries returns the registered entries in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	return len(r.entries)
}

func normalizeToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// commandArgs trims the remainder after a token and drops a "@botname"
// suffix, so "/status@mybot now" yields "now".
func commandArgs(rest string) string {
	if strings.HasPrefix(rest, "@") {
		if i := strings.IndexAny(rest, " \t\n"); i != -1 {
			rest = rest[i:]
		} else {
			rest = ""
		}
	}
	return strings.TrimSpace(rest)
}
