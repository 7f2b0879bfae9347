package task

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/store"
)

// Pusher delivers stored records to the bot runtime.
type Pusher interface {
	Enabled() bool
	PushResponse(ctx context.Context, guildID, key string, rec message.Record) error
}

// Retry controls how a failed push is retried.
type Retry struct {
	// MaxAttempts counts the first try. Values below 1 mean a single attempt.
	MaxAttempts int

	// InitialBackoff is doubled after every failed attempt up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// NoRetry makes a single attempt.
var NoRetry = Retry{MaxAttempts: 1}

// DefaultRetry is used by the sweeper when no retry policy is configured.
func DefaultRetry() Retry {
	return Retry{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 30 * time.Second}
}

// Do calls fn until it succeeds, returns a permanent error, ctx ends or the
// attempts run out. The last error is returned.
func (r Retry) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(r.MaxAttempts, 1)
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= attempts || !retryable(err) {
			return err
		}
		delay := r.backoff(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// backoff returns initial * 2^(attempt-1) capped at MaxBackoff, with 10% jitter.
func (r Retry) backoff(attempt int) time.Duration {
	initial := r.InitialBackoff
	if initial <= 0 {
		return 0
	}
	limit := r.MaxBackoff
	if limit < initial {
		limit = initial
	}
	d := initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > limit {
			d = limit
			break
		}
	}
	return clampDuration(d+jitter(d, 0.1), initial, limit)
}

func jitter(d time.Duration, ratio float64) time.Duration {
	delta := int64(float64(d) * ratio)
	if delta <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(2*delta+1) - delta)
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	return min(max(v, lo), hi)
}

// retryable treats errors that declare themselves permanent, and context
// cancellation, as final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}

// PushEntry sends the entry's record to the bot runtime and records the
// outcome with MarkPushed against the entry's revision. A disabled pusher is
// a no-op and leaves the entry pending. When the entry was replaced while the
// push was in flight the result is dropped and the newer revision stays
// pending. The push error, if any, is returned after it has been recorded.
func PushEntry(ctx context.Context, st store.ResponseStore, p Pusher, e store.Entry, retry Retry) error {
	if p == nil || !p.Enabled() {
		return nil
	}
	pushErr := retry.Do(ctx, func(ctx context.Context) error {
		return p.PushResponse(ctx, e.GuildID, e.Key, e.Record)
	})
	if err := st.MarkPushed(ctx, e.GuildID, e.Key, e.Revision, pushErr); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Deleted while the push was in flight.
			return pushErr
		case errors.Is(err, store.ErrStale):
			log.ApplicationLogger().Debug("Push result superseded by a newer revision",
				"guildID", e.GuildID,
				"responseKey", e.Key,
				"revision", e.Revision,
			)
			return pushErr
		}
		return errors.Join(pushErr, fmt.Errorf("record push result: %w", err))
	}
	return pushErr
}
