package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/small-frappuccino/botdash/pkg/message"
)

// Memory is an in-process ResponseStore. It backs the "memory" driver and tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]map[string]Entry
	seq     int64
	now     func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{entries: map[string]map[string]Entry{}, now: func() time.Time { return time.Now().UTC() }}
}

func (m *Memory) GetResponse(_ context.Context, guildID, key string) (*message.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[guildID][key]
	if !ok {
		return nil, nil
	}
	rec := e.Record.Clone()
	return &rec, nil
}

func (m *Memory) GetEntry(_ context.Context, guildID, key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[guildID][key]
	if !ok {
		return nil, nil
	}
	e = e.Clone()
	return &e, nil
}

func (m *Memory) PutResponse(_ context.Context, guildID, key string, rec message.Record) error {
	if err := ValidateKey(guildID, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[guildID] == nil {
		m.entries[guildID] = map[string]Entry{}
	}
	// Revisions come from one store-wide sequence so a re-created key never
	// reuses the revision of a deleted one.
	m.seq++
	m.entries[guildID][key] = Entry{GuildID: guildID, Key: key, Record: rec.Clone(), Revision: m.seq, UpdatedAt: m.now()}
	return nil
}

func (m *Memory) DeleteResponse(_ context.Context, guildID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[guildID][key]; !ok {
		return NotFound(guildID, key)
	}
	delete(m.entries[guildID], key)
	return nil
}

func (m *Memory) ListResponses(_ context.Context, guildID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries[guildID]))
	for _, e := range m.entries[guildID] {
		out = append(out, e.Clone())
	}
	sortEntries(out)
	return out, nil
}

func (m *Memory) MarkPushed(_ context.Context, guildID, key string, revision int64, pushErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[guildID][key]
	if !ok {
		return NotFound(guildID, key)
	}
	if e.Revision != revision {
		return Stale(guildID, key, revision, e.Revision)
	}
	now := m.now()
	e.PushedAt = &now
	e.PushError = ""
	if pushErr != nil {
		e.PushError = pushErr.Error()
	}
	m.entries[guildID][key] = e
	return nil
}

func (m *Memory) PendingPushes(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for _, byKey := range m.entries {
		for _, e := range byKey {
			if e.NeedsPush() {
				out = append(out, e.Clone())
			}
		}
	}
	sortEntries(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].GuildID != es[j].GuildID {
			return es[i].GuildID < es[j].GuildID
		}
		return es[i].Key < es[j].Key
	})
}

