package control

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/small-frappuccino/botdash/pkg/editor"
	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/store"
	"github.com/small-frappuccino/botdash/pkg/task"
)

var errSessionNotFound = errors.New("edit session not found")

// editSession binds an editor session to the response it edits.
type editSession struct {
	id        string
	guildID   string
	key       string
	createdAt time.Time
	ed        *editor.Session
}

type sessionView struct {
	ID          string           `json:"id"`
	GuildID     string           `json:"guildId"`
	ResponseKey string           `json:"responseKey"`
	CreatedAt   time.Time        `json:"createdAt"`
	State       editor.State     `json:"state"`
	Document    message.Document `json:"document"`
	Results     []editor.Result  `json:"results,omitempty"`
}

func (es *editSession) view() sessionView {
	return sessionView{
		ID:          es.id,
		GuildID:     es.guildID,
		ResponseKey: es.key,
		CreatedAt:   es.createdAt,
		State:       es.ed.State(),
		Document:    es.ed.Document(),
	}
}

// openSession creates and loads an edit session for one stored response.
// A load failure leaves a usable session with defaults; its reason is in
// the session state.
func (s *Server) openSession(ctx context.Context, guildID, key string) (*editSession, error) {
	if err := store.ValidateKey(guildID, key); err != nil {
		return nil, err
	}
	es := &editSession{
		id:        "ses_" + strings.ToLower(ulid.Make().String()),
		guildID:   guildID,
		key:       key,
		createdAt: time.Now().UTC(),
	}
	es.ed = editor.New(s.loadFunc(guildID, key), s.saveFunc(guildID, key),
		editor.WithLogger(log.ApplicationLogger().With("sessionID", es.id, "guildID", guildID, "responseKey", key)))

	if err := es.ed.Load(ctx); err != nil {
		var le *editor.LoadError
		if !errors.As(err, &le) {
			return nil, fmt.Errorf("load response: %w", err)
		}
	}
	s.sessions.Set(es.id, es, 0)
	log.HTTPLogger().Info("Edit session opened", "sessionID", es.id, "guildID", guildID, "responseKey", key)
	return es, nil
}

func (s *Server) lookupSession(id string) (*editSession, error) {
	es, ok := s.sessions.Get(id)
	if !ok {
		return nil, &httpError{code: http.StatusNotFound, err: fmt.Errorf("%w: %s", errSessionNotFound, id)}
	}
	return es, nil
}

func (s *Server) loadFunc(guildID, key string) editor.LoadFunc {
	return func(ctx context.Context) (*message.Record, error) {
		return s.store.GetResponse(ctx, guildID, key)
	}
}

// saveFunc stores the document and then pushes it to the bot. A failed push
// does not fail the save; the entry stays pending for the sweeper.
func (s *Server) saveFunc(guildID, key string) editor.SaveFunc {
	return func(ctx context.Context, doc message.Document) error {
		rec := message.RecordFromDocument(doc)
		if err := s.store.PutResponse(ctx, guildID, key, rec); err != nil {
			return err
		}
		s.push(ctx, guildID, key)
		return nil
	}
}

// push sends the latest stored revision to the bot. Failures are logged and
// left pending for the sweeper.
func (s *Server) push(ctx context.Context, guildID, key string) {
	if s.pusher == nil || !s.pusher.Enabled() {
		return
	}
	e, err := s.store.GetEntry(ctx, guildID, key)
	if err != nil || e == nil {
		log.ApplicationLogger().Warn("Push skipped; stored response unavailable",
			"guildID", guildID,
			"responseKey", key,
			"err", err,
		)
		return
	}
	if err := task.PushEntry(ctx, s.store, s.pusher, *e, task.NoRetry); err != nil {
		log.ApplicationLogger().Warn("Push to bot failed; will retry in background",
			"guildID", guildID,
			"responseKey", key,
			"err", err,
		)
	}
}
