// Package task runs background delivery of saved responses to the bot
// runtime.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/robfig/cron/v3"
	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/store"
)

// SweepMetaKey is the runtime_meta key holding the start time of the last
// completed sweep.
const SweepMetaKey = "push_sweep"

// ErrSweepRunning is returned by RunOnce while another sweep is active.
var ErrSweepRunning = errors.New("push sweep already running")

// SweepConfig configures the push sweeper.
type SweepConfig struct {
	// Schedule is a cron expression; "@every 1m" when empty.
	Schedule string

	// Workers bounds concurrent pushes. 4 when <= 0.
	Workers int

	// Timeout bounds one entry's push including retries. 30s when <= 0.
	Timeout time.Duration

	Retry Retry
}

// Defaults returns a SweepConfig with sensible defaults.
func Defaults() SweepConfig {
	return SweepConfig{
		Schedule: "@every 1m",
		Workers:  4,
		Timeout:  30 * time.Second,
		Retry:    DefaultRetry(),
	}
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Pending   int           `json:"pending"`
	Pushed    int           `json:"pushed"`
	Failed    int           `json:"failed"`
}

// metaStore is implemented by stores that keep runtime metadata.
type metaStore interface {
	SetMeta(ctx context.Context, key string, t time.Time) error
}

// Sweeper periodically pushes every entry whose last push failed or never
// happened.
type Sweeper struct {
	store  store.ResponseStore
	pusher Pusher
	cfg    SweepConfig

	mu      sync.Mutex
	cron    *cron.Cron
	running atomic.Bool
	last    SweepResult
}

// NewSweeper returns a Sweeper; zero config fields take their defaults.
func NewSweeper(st store.ResponseStore, p Pusher, cfg SweepConfig) *Sweeper {
	def := Defaults()
	if cfg.Schedule == "" {
		cfg.Schedule = def.Schedule
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = def.Retry
	}
	return &Sweeper{store: st, pusher: p, cfg: cfg}
}

// Start registers the cron job. Starting a started sweeper is a no-op.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	if s.pusher == nil || !s.pusher.Enabled() {
		log.ApplicationLogger().Info("Push sweeper disabled; no bot endpoint configured")
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, s.runScheduled); err != nil {
		return fmt.Errorf("schedule push sweep %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.cron = c
	log.ApplicationLogger().Info("Push sweeper scheduled", "schedule", s.cfg.Schedule, "workers", s.cfg.Workers)
	return nil
}

// Stop removes the cron job and waits for a running sweep to finish or ctx
// to end.
func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		log.ApplicationLogger().Warn("Push sweeper stop timed out")
	}
}

// Last returns the result of the most recent sweep.
func (s *Sweeper) Last() SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Sweeper) runScheduled() {
	res, err := s.RunOnce(context.Background())
	switch {
	case errors.Is(err, ErrSweepRunning):
		log.ApplicationLogger().Debug("Push sweep skipped; previous sweep still running")
	case err != nil:
		log.ApplicationLogger().Error("Push sweep failed", "err", err)
	case res.Pending > 0:
		log.ApplicationLogger().Info("Push sweep finished",
			"pending", res.Pending,
			"pushed", res.Pushed,
			"failed", res.Failed,
			"duration", res.Duration.String(),
		)
	}
}

// RunOnce pushes all pending entries with bounded concurrency and returns
// when every push has been recorded.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return SweepResult{}, ErrSweepRunning
	}
	defer s.running.Store(false)

	res := SweepResult{StartedAt: time.Now().UTC()}
	if s.pusher == nil || !s.pusher.Enabled() {
		return res, nil
	}
	pending, err := s.store.PendingPushes(ctx)
	if err != nil {
		return res, fmt.Errorf("list pending pushes: %w", err)
	}
	res.Pending = len(pending)

	var pushed, failed atomic.Int64
	wp := workerpool.New(s.cfg.Workers)
	for _, entry := range pending {
		wp.Submit(func() {
			if ctx.Err() != nil {
				failed.Add(1)
				return
			}
			pctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
			err := PushEntry(pctx, s.store, s.pusher, entry, s.cfg.Retry)
			if err != nil {
				failed.Add(1)
				log.ApplicationLogger().Warn("Push to bot failed",
					"guildID", entry.GuildID,
					"responseKey", entry.Key,
					"err", err,
				)
				return
			}
			pushed.Add(1)
		})
	}
	wp.StopWait()

	res.Pushed = int(pushed.Load())
	res.Failed = int(failed.Load())
	res.Duration = time.Since(res.StartedAt)

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	if ms, ok := s.store.(metaStore); ok {
		if err := ms.SetMeta(ctx, SweepMetaKey, res.StartedAt); err != nil {
			log.DatabaseLogger().Warn("Failed to record push sweep", "err", err)
		}
	}
	return res, nil
}
