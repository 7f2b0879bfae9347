package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/store"
)

type fakePusher struct {
	enabled bool

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newFakePusher() *fakePusher {
	return &fakePusher{enabled: true, calls: map[string]int{}, fail: map[string]error{}}
}

func (f *fakePusher) Enabled() bool { return f.enabled }

func (f *fakePusher) PushResponse(_ context.Context, guildID, key string, _ message.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[guildID+"/"+key]++
	return f.fail[guildID+"/"+key]
}

func (f *fakePusher) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type permanentErr struct{}

func (permanentErr) Error() string   { return "rejected" }
func (permanentErr) Temporary() bool { return false }

type metaMemory struct {
	*store.Memory
	mu   sync.Mutex
	meta map[string]time.Time
}

func (m *metaMemory) SetMeta(_ context.Context, key string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = t
	return nil
}

func seed(t *testing.T, st store.ResponseStore, guildID string, keys ...string) {
	t.Helper()
	for _, k := range keys {
		doc := message.NewDocument(message.ModeEmbed)
		doc.TextContent = k
		if err := st.PutResponse(context.Background(), guildID, k, message.RecordFromDocument(doc)); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
}

func fastRetry(attempts int) Retry {
	return Retry{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRunOncePushesPendingEntries(t *testing.T) {
	st := &metaMemory{Memory: store.NewMemory(), meta: map[string]time.Time{}}
	seed(t, st, "1", "a", "b", "c")
	p := newFakePusher()
	p.fail["1/b"] = permanentErr{}

	sw := NewSweeper(st, p, SweepConfig{Workers: 2, Retry: fastRetry(3)})
	res, err := sw.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if res.Pending != 3 || res.Pushed != 2 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := p.count("1/b"); got != 1 {
		t.Fatalf("permanent error retried %d times", got)
	}

	pending, err := st.PendingPushes(context.Background())
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Key != "b" || pending[0].PushError != "rejected" {
		t.Fatalf("unexpected pending entries: %+v", pending)
	}
	if _, ok := st.meta[SweepMetaKey]; !ok {
		t.Fatalf("sweep time not recorded")
	}
	if sw.Last().Pushed != 2 {
		t.Fatalf("last result not kept: %+v", sw.Last())
	}

	// Nothing left but the rejected entry.
	delete(p.fail, "1/b")
	res, err = sw.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Pending != 1 || res.Pushed != 1 {
		t.Fatalf("unexpected second result: %+v", res)
	}
	if p.count("1/a") != 1 {
		t.Fatalf("already pushed entry pushed again")
	}
}

func TestRunOnceDisabledPusher(t *testing.T) {
	st := store.NewMemory()
	seed(t, st, "1", "a")
	p := newFakePusher()
	p.enabled = false

	res, err := NewSweeper(st, p, SweepConfig{}).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if res.Pending != 0 || p.count("1/a") != 0 {
		t.Fatalf("disabled pusher was used: %+v", res)
	}
}

func TestRetryDoRetriesTemporaryErrors(t *testing.T) {
	var calls atomic.Int32
	err := fastRetry(3).Do(context.Background(), func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}

	calls.Store(0)
	err = fastRetry(5).Do(context.Background(), func(context.Context) error {
		calls.Add(1)
		return permanentErr{}
	})
	if err == nil || calls.Load() != 1 {
		t.Fatalf("permanent error should stop retries: err=%v calls=%d", err, calls.Load())
	}
}

func TestRetryStopsOnContextEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := Retry{MaxAttempts: 10, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, func(context.Context) error { return errors.New("down") })
	}()
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected last error")
		}
	case <-time.After(time.Second):
		t.Fatalf("retry did not observe cancellation")
	}
}

func TestBackoffBounds(t *testing.T) {
	r := Retry{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 40 * time.Millisecond}
	for attempt := 1; attempt <= 6; attempt++ {
		d := r.backoff(attempt)
		if d < r.InitialBackoff || d > r.MaxBackoff {
			t.Fatalf("attempt %d backoff %v out of bounds", attempt, d)
		}
	}
}

func TestPushEntryRecordsOutcome(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seed(t, st, "1", "a")
	p := newFakePusher()

	e, err := st.GetEntry(ctx, "1", "a")
	if err != nil || e == nil {
		t.Fatalf("get entry: %+v err=%v", e, err)
	}
	if err := PushEntry(ctx, st, p, *e, NoRetry); err != nil {
		t.Fatalf("push: %v", err)
	}
	pending, _ := st.PendingPushes(ctx)
	if len(pending) != 0 {
		t.Fatalf("entry still pending: %+v", pending)
	}

	// A deleted entry is not an error of its own.
	if err := PushEntry(ctx, st, p, store.Entry{GuildID: "1", Key: "gone", Revision: 9}, NoRetry); err != nil {
		t.Fatalf("push for deleted entry: %v", err)
	}
}

// gatedPusher holds its first push until released.
type gatedPusher struct {
	started chan struct{}
	release chan struct{}

	mu   sync.Mutex
	last string
	n    int
}

func (g *gatedPusher) Enabled() bool { return true }

func (g *gatedPusher) PushResponse(ctx context.Context, _, _ string, rec message.Record) error {
	g.mu.Lock()
	g.n++
	first := g.n == 1
	g.mu.Unlock()
	if first {
		close(g.started)
		select {
		case <-g.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = rec.Response.Content
	return nil
}

func TestSweepDoesNotMarkNewerRevisionPushed(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	put := func(text string) {
		doc := message.NewDocument(message.ModeEmbed)
		doc.TextContent = text
		if err := st.PutResponse(ctx, "1", "welcome", message.RecordFromDocument(doc)); err != nil {
			t.Fatalf("put %s: %v", text, err)
		}
	}
	put("v1")

	p := &gatedPusher{started: make(chan struct{}), release: make(chan struct{})}
	sw := NewSweeper(st, p, SweepConfig{Workers: 1, Timeout: 5 * time.Second, Retry: NoRetry})

	done := make(chan SweepResult, 1)
	go func() {
		res, _ := sw.RunOnce(ctx)
		done <- res
	}()

	<-p.started
	put("v2")
	close(p.release)
	<-done

	got, _ := st.GetResponse(ctx, "1", "welcome")
	if got == nil || got.Response.Content != "v2" {
		t.Fatalf("store lost v2: %+v", got)
	}
	pending, _ := st.PendingPushes(ctx)
	if len(pending) != 1 || pending[0].Record.Response.Content != "v2" {
		t.Fatalf("v2 must stay pending after a stale push of v1, pending=%+v", pending)
	}

	// The next sweep delivers v2.
	res, err := sw.RunOnce(ctx)
	if err != nil || res.Pushed != 1 {
		t.Fatalf("second sweep: %+v err=%v", res, err)
	}
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last != "v2" {
		t.Fatalf("bot holds %q, want v2", last)
	}
	pending, _ = st.PendingPushes(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %+v", pending)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	sw := NewSweeper(store.NewMemory(), newFakePusher(), SweepConfig{Schedule: "every now and then"})
	if err := sw.Start(); err == nil {
		t.Fatalf("expected schedule error")
	}

	sw = NewSweeper(store.NewMemory(), newFakePusher(), SweepConfig{Schedule: "@every 1h"})
	if err := sw.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sw.Stop(ctx)
}
