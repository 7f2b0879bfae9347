// Package store defines the persistence contract for bot responses.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/small-frappuccino/botdash/pkg/message"
)

// ErrNotFound indicates no response matched the guild and key.
var ErrNotFound = errors.New("response not found")

// ErrStale indicates a push result for a revision that has since been replaced.
var ErrStale = errors.New("response changed since push")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]{1,100}$`)

// Entry is one stored response with its push bookkeeping.
type Entry struct {
	GuildID   string         `json:"guild_id"`
	Key       string         `json:"response_key"`
	Record    message.Record `json:"record"`
	Revision  int64          `json:"revision"`
	UpdatedAt time.Time      `json:"updated_at"`
	PushedAt  *time.Time     `json:"pushed_at,omitempty"`
	PushError string         `json:"push_error,omitempty"`
}

// NeedsPush reports whether the entry changed since its last successful push.
func (e Entry) NeedsPush() bool {
	return e.PushedAt == nil || e.PushError != "" || e.PushedAt.Before(e.UpdatedAt)
}

// Clone returns a deep copy.
func (e Entry) Clone() Entry {
	e.Record = e.Record.Clone()
	if e.PushedAt != nil {
		t := *e.PushedAt
		e.PushedAt = &t
	}
	return e
}

// ResponseStore persists bot responses keyed by (guild, response key).
// Writes are last-write-wins.
type ResponseStore interface {
	// GetResponse returns nil and no error when nothing is stored.
	GetResponse(ctx context.Context, guildID, key string) (*message.Record, error)
	// GetEntry returns the stored entry with its revision, or nil when absent.
	GetEntry(ctx context.Context, guildID, key string) (*Entry, error)
	// PutResponse creates or replaces a response, bumps its revision and
	// clears its push state.
	PutResponse(ctx context.Context, guildID, key string, rec message.Record) error
	// DeleteResponse returns ErrNotFound when nothing is stored.
	DeleteResponse(ctx context.Context, guildID, key string) error
	ListResponses(ctx context.Context, guildID string) ([]Entry, error)
	// MarkPushed records the outcome of pushing the given revision. A nil
	// pushErr marks success. It returns ErrStale and changes nothing when the
	// stored revision differs.
	MarkPushed(ctx context.Context, guildID, key string, revision int64, pushErr error) error
	// PendingPushes lists entries across all guilds that need a push.
	PendingPushes(ctx context.Context) ([]Entry, error)
	Close() error
}

// ValidateKey checks a guild id and response key before they reach a store.
func ValidateKey(guildID, key string) error {
	if g := strings.TrimSpace(guildID); g == "" || !keyPattern.MatchString(g) {
		return message.NewValidationError("guildId", guildID, "guild id is required and must be alphanumeric")
	}
	if !keyPattern.MatchString(key) {
		return message.NewValidationError("responseKey", key, "response key must be 1-100 characters of [A-Za-z0-9_.:-]")
	}
	return nil
}

// Stale wraps ErrStale with the addressed key and revisions.
func Stale(guildID, key string, pushed, stored int64) error {
	return fmt.Errorf("%w: guild_id=%s response_key=%s pushed_revision=%d stored_revision=%d", ErrStale, guildID, key, pushed, stored)
}

// NotFound wraps ErrNotFound with the addressed key.
func NotFound(guildID, key string) error {
	return fmt.Errorf("%w: guild_id=%s response_key=%s", ErrNotFound, guildID, key)
}
