// Package files keeps bot responses in a JSON settings file.
package files

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/small-frappuccino/botdash/pkg/errutil"
	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/store"
	"github.com/small-frappuccino/botdash/pkg/util"
)

// GuildResponses groups the responses of one guild in the settings file.
type GuildResponses struct {
	GuildID   string        `json:"guild_id"`
	Responses []store.Entry `json:"responses"`
}

// ResponsesDocument is the on-disk shape of the responses file.
type ResponsesDocument struct {
	// Seq is the last revision handed out; revisions are file-wide.
	Seq    int64            `json:"seq"`
	Guilds []GuildResponses `json:"guilds"`
}

// ResponseFile is a store.ResponseStore over a JSON file. Every mutation
// rewrites the whole file; a failed write leaves memory unchanged.
type ResponseFile struct {
	path    string
	jsonMgr *util.JSONManager
	mu      sync.RWMutex
	doc     ResponsesDocument
	now     func() time.Time
}

var _ store.ResponseStore = (*ResponseFile)(nil)

// NewResponseFile returns a store for path. Call Init before use.
func NewResponseFile(path string) *ResponseFile {
	return &ResponseFile{
		path:    path,
		jsonMgr: util.NewJSONManager(path),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewDefaultResponseFile stores responses.json in the config directory.
func NewDefaultResponseFile() *ResponseFile {
	return NewResponseFile(util.GetResponsesFilePath())
}

// Init reads the file. A missing file starts an empty document.
func (f *ResponseFile) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var doc ResponsesDocument
	if err := f.jsonMgr.Load(&doc); err != nil {
		return errutil.HandleConfigError("load", f.path, func() error { return err })
	}
	f.doc = doc
	log.DatabaseLogger().Info("Responses file loaded", "path", f.path, "guilds", len(doc.Guilds))
	return nil
}

// Path returns the backing file path.
func (f *ResponseFile) Path() string { return f.path }

func (f *ResponseFile) GetResponse(_ context.Context, guildID, key string) (*message.Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	g := f.guildLocked(guildID)
	if g == nil {
		return nil, nil
	}
	i := indexOf(g.Responses, key)
	if i < 0 {
		return nil, nil
	}
	rec := g.Responses[i].Record.Clone()
	return &rec, nil
}

func (f *ResponseFile) GetEntry(_ context.Context, guildID, key string) (*store.Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	g := f.guildLocked(guildID)
	if g == nil {
		return nil, nil
	}
	i := indexOf(g.Responses, key)
	if i < 0 {
		return nil, nil
	}
	e := g.Responses[i].Clone()
	return &e, nil
}

func (f *ResponseFile) PutResponse(_ context.Context, guildID, key string, rec message.Record) error {
	if err := store.ValidateKey(guildID, key); err != nil {
		return err
	}
	rec, err := copyRecord(rec)
	if err != nil {
		return err
	}
	guildID = strings.TrimSpace(guildID)
	return f.mutate(func(doc *ResponsesDocument) error {
		gi := slices.IndexFunc(doc.Guilds, func(g GuildResponses) bool { return g.GuildID == guildID })
		if gi < 0 {
			doc.Guilds = append(doc.Guilds, GuildResponses{GuildID: guildID})
			gi = len(doc.Guilds) - 1
		}
		g := &doc.Guilds[gi]
		doc.Seq++
		entry := store.Entry{GuildID: guildID, Key: key, Record: rec, Revision: doc.Seq, UpdatedAt: f.now()}
		if i := indexOf(g.Responses, key); i >= 0 {
			g.Responses[i] = entry
		} else {
			g.Responses = append(g.Responses, entry)
		}
		return nil
	})
}

func (f *ResponseFile) DeleteResponse(_ context.Context, guildID, key string) error {
	return f.mutate(func(doc *ResponsesDocument) error {
		for gi := range doc.Guilds {
			g := &doc.Guilds[gi]
			if g.GuildID != guildID {
				continue
			}
			i := indexOf(g.Responses, key)
			if i < 0 {
				break
			}
			g.Responses = slices.Delete(g.Responses, i, i+1)
			if len(g.Responses) == 0 {
				doc.Guilds = slices.Delete(doc.Guilds, gi, gi+1)
			}
			return nil
		}
		return store.NotFound(guildID, key)
	})
}

func (f *ResponseFile) ListResponses(_ context.Context, guildID string) ([]store.Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	g := f.guildLocked(guildID)
	if g == nil {
		return []store.Entry{}, nil
	}
	out := make([]store.Entry, 0, len(g.Responses))
	for _, e := range g.Responses {
		out = append(out, e.Clone())
	}
	slices.SortFunc(out, func(a, b store.Entry) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

func (f *ResponseFile) MarkPushed(_ context.Context, guildID, key string, revision int64, pushErr error) error {
	return f.mutate(func(doc *ResponsesDocument) error {
		for gi := range doc.Guilds {
			g := &doc.Guilds[gi]
			if g.GuildID != guildID {
				continue
			}
			i := indexOf(g.Responses, key)
			if i < 0 {
				break
			}
			if stored := g.Responses[i].Revision; stored != revision {
				return store.Stale(guildID, key, revision, stored)
			}
			now := f.now()
			g.Responses[i].PushedAt = &now
			g.Responses[i].PushError = ""
			if pushErr != nil {
				g.Responses[i].PushError = pushErr.Error()
			}
			return nil
		}
		return store.NotFound(guildID, key)
	})
}

func (f *ResponseFile) PendingPushes(_ context.Context) ([]store.Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []store.Entry
	for _, g := range f.doc.Guilds {
		for _, e := range g.Responses {
			if e.NeedsPush() {
				out = append(out, e.Clone())
			}
		}
	}
	return out, nil
}

// Close is a no-op; every mutation is already on disk.
func (f *ResponseFile) Close() error { return nil }

func (f *ResponseFile) guildLocked(guildID string) *GuildResponses {
	guildID = strings.TrimSpace(guildID)
	for i := range f.doc.Guilds {
		if f.doc.Guilds[i].GuildID == guildID {
			return &f.doc.Guilds[i]
		}
	}
	return nil
}

// mutate applies fn to a copy of the document and swaps it in once the file
// write succeeds.
func (f *ResponseFile) mutate(fn func(*ResponsesDocument) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := ResponsesDocument{Seq: f.doc.Seq, Guilds: make([]GuildResponses, len(f.doc.Guilds))}
	for i, g := range f.doc.Guilds {
		next.Guilds[i] = GuildResponses{GuildID: g.GuildID, Responses: slices.Clone(g.Responses)}
	}
	if err := fn(&next); err != nil {
		return err
	}
	if err := f.jsonMgr.Save(next); err != nil {
		return errutil.HandleConfigError("save", f.path, func() error { return err })
	}
	f.doc = next
	return nil
}

func indexOf(entries []store.Entry, key string) int {
	return slices.IndexFunc(entries, func(e store.Entry) bool { return e.Key == key })
}

// copyRecord detaches a record from caller-owned memory.
func copyRecord(r message.Record) (message.Record, error) {
	doc, err := r.Document()
	if err != nil {
		return message.Record{}, fmt.Errorf("copy record: %w", err)
	}
	return message.RecordFromDocument(doc), nil
}
