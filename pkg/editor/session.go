// Package editor holds the message editing session: mode selection, text
// content, both layout drafts, load and save.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/message"
)

// LoadFunc fetches the stored record. A nil record with a nil error means
// nothing is stored yet.
type LoadFunc func(ctx context.Context) (*message.Record, error)

// SaveFunc persists a document. Its error is surfaced to the Save caller.
type SaveFunc func(ctx context.Context, doc message.Document) error

type drafts struct {
	mode      message.Mode
	text      string
	embed     *message.Embed
	container *message.Container
}

func defaultDrafts() drafts {
	return drafts{
		mode:      message.ModeEmbed,
		embed:     message.NewEmbed(),
		container: message.NewContainer(),
	}
}

func draftsFrom(doc message.Document) drafts {
	d := defaultDrafts()
	d.mode = doc.Mode
	d.text = doc.TextContent
	switch doc.Mode {
	case message.ModeEmbed:
		d.embed = doc.Embed.Clone()
	case message.ModeContainer:
		d.container = doc.Container.Clone()
	}
	return d
}

func (d drafts) clone() drafts {
	return drafts{mode: d.mode, text: d.text, embed: d.embed.Clone(), container: d.container.Clone()}
}

// document assembles the persisted shape: only the active draft is included.
func (d drafts) document() message.Document {
	doc := message.Document{Mode: d.mode, TextContent: d.text}
	switch d.mode {
	case message.ModeEmbed:
		doc.Embed = d.embed.Clone()
	case message.ModeContainer:
		doc.Container = d.container.Clone()
	}
	return doc
}

// State is a snapshot of the session's pending flags.
type State struct {
	Mode      message.Mode `json:"mode"`
	Loaded    bool         `json:"loaded"`
	Saving    bool         `json:"saving"`
	Dirty     bool         `json:"dirty"`
	Revision  uint64       `json:"revision"`
	LoadError string       `json:"loadError,omitempty"`
	SavedAt   time.Time    `json:"savedAt,omitzero"`
}

// Session is one editing session over a single stored document. It is safe
// for concurrent use; edits apply in the order their calls acquire the lock.
type Session struct {
	load   LoadFunc
	save   SaveFunc
	logger *slog.Logger

	mu       sync.Mutex
	cur      drafts
	base     drafts
	loaded   bool
	loadErr  error
	loadGen  uint64
	saving   bool
	savedAt  time.Time

	// rev counts changes to cur and never goes back. baseRev is the rev at
	// which cur last matched base.
	rev     uint64
	baseRev uint64
}

// Option configures a Session.
type Option func(*Session)

// WithLogger overrides the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an unloaded session. Call Load before editing.
func New(load LoadFunc, save SaveFunc, opts ...Option) *Session {
	s := &Session{
		load:   load,
		save:   save,
		logger: log.ApplicationLogger(),
		cur:    defaultDrafts(),
		base:   defaultDrafts(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load populates the session from the stored record. A missing record yields
// empty defaults. A failed or malformed load also yields defaults and returns
// a *LoadError; the session is usable either way. When ctx ends before the
// loader returns, the result is ignored and ctx.Err() is returned.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	var (
		rec *message.Record
		err error
	)
	if s.load != nil {
		rec, err = s.load(ctx)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	next := defaultDrafts()
	var loadErr error
	switch {
	case err != nil:
		loadErr = &LoadError{Err: err}
	case rec != nil:
		doc, derr := rec.Document()
		if derr == nil {
			derr = doc.Validate()
		}
		if derr != nil {
			loadErr = &LoadError{Err: derr}
		} else {
			next = draftsFrom(doc)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.loadGen {
		// A newer Load superseded this one.
		return nil
	}
	s.cur = next
	s.base = next.clone()
	s.loaded = true
	s.loadErr = loadErr
	s.baseRev = s.rev

	if loadErr != nil {
		s.logger.Warn("Stored document unavailable; starting from defaults", "error", loadErr)
		return loadErr
	}
	return nil
}

// Loaded reports whether Load has completed.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// LoadErr returns the *LoadError of the last Load, if any.
func (s *Session) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Dirty reports whether edits were applied since the last load or save.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev != s.baseRev
}

// State returns a snapshot of the session flags.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Mode:     s.cur.mode,
		Loaded:   s.loaded,
		Saving:   s.saving,
		Dirty:    s.rev != s.baseRev,
		Revision: s.rev,
		SavedAt:  s.savedAt,
	}
	if s.loadErr != nil {
		st.LoadError = s.loadErr.Error()
	}
	return st
}

// Mode returns the active mode.
func (s *Session) Mode() message.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.mode
}

// Document returns the document Save would persist.
func (s *Session) Document() message.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.document()
}

// EmbedDraft returns a copy of the embed draft, active or not.
func (s *Session) EmbedDraft() *message.Embed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.embed.Clone()
}

// ContainerDraft returns a copy of the container draft, active or not.
func (s *Session) ContainerDraft() *message.Container {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.container.Clone()
}

// TextContent returns the plain text content.
func (s *Session) TextContent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.text
}

// Apply applies one edit.
func (s *Session) Apply(e Edit) (Result, error) {
	res, err := s.ApplyAll([]Edit{e})
	if err != nil {
		return Result{}, err
	}
	return res[0], nil
}

// ApplyAll applies edits in order. The batch is atomic: when any edit fails,
// none of them is kept.
func (s *Session) ApplyAll(edits []Edit) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, ErrNotLoaded
	}

	work := s.cur.clone()
	results := make([]Result, 0, len(edits))
	applied := 0
	for i, e := range edits {
		if e == nil {
			return nil, fmt.Errorf("edit %d: %w", i, message.NewValidationError("op", nil, "edit is empty"))
		}
		r, err := e.apply(&work)
		if err != nil {
			return nil, fmt.Errorf("edit %d (%s): %w", i, e.Op(), err)
		}
		if r.Applied {
			applied++
		}
		results = append(results, r)
	}
	if applied > 0 {
		s.cur = work
		s.rev += uint64(applied)
	}
	return results, nil
}

// SetMode switches the active mode. Both drafts are kept.
func (s *Session) SetMode(m message.Mode) error {
	_, err := s.Apply(SetMode{Mode: m})
	return err
}

// SetText replaces the plain text content.
func (s *Session) SetText(content string) error {
	_, err := s.Apply(SetText{Content: content})
	return err
}

// Reset discards unsaved edits and returns to the last loaded or saved document.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = s.base.clone()
	s.rev++
	s.baseRev = s.rev
}

// Save validates the current document and hands it to the save function.
// Overlapping calls fail with ErrSaveInFlight. A failing save function is
// reported as a *PersistenceError and local edits are kept.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	doc := s.cur.document()
	if err := doc.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := s.cur.clone()
	rev := s.rev
	s.saving = true
	s.mu.Unlock()

	var err error
	if s.save == nil {
		err = errors.New("no save function configured")
	} else {
		err = s.save(ctx, doc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		s.logger.Warn("Save failed; local edits kept", "error", err)
		return &PersistenceError{Op: "save", Err: err}
	}
	// Edits or a Reset made during the save moved rev past the snapshot, so
	// the session stays dirty.
	s.baseRev = rev
	s.base = snapshot
	s.savedAt = time.Now().UTC()
	return nil
}
