package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/small-frappuccino/botdash/pkg/discord/webhook"
	"github.com/small-frappuccino/botdash/pkg/editor"
	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/render"
	"github.com/small-frappuccino/botdash/pkg/store"
)

// botDeleter is implemented by pushers that can also remove a response from
// the bot runtime.
type botDeleter interface {
	DeleteResponse(ctx context.Context, guildID, key string) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Stats(),
	})
}

func (s *Server) handleListResponses(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildID"]
	if err := store.ValidateKey(guildID, "_"); err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.store.ListResponses(r.Context(), guildID)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"guildId":   guildID,
		"responses": entries,
	})
}

func (s *Server) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	guildID, key := responseVars(r)
	if err := store.ValidateKey(guildID, key); err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.store.GetResponse(r.Context(), guildID, key)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeError(w, store.NotFound(guildID, key))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handlePutResponse stores a complete record, bypassing the editor.
func (s *Server) handlePutResponse(w http.ResponseWriter, r *http.Request) {
	guildID, key := responseVars(r)
	if err := store.ValidateKey(guildID, key); err != nil {
		writeError(w, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := message.DecodeRecord(body)
	if err != nil {
		if !message.IsValidation(err) {
			err = badRequest(err)
		}
		writeError(w, err)
		return
	}
	if err := s.store.PutResponse(r.Context(), guildID, key, rec); err != nil {
		writeError(w, err)
		return
	}
	s.push(r.Context(), guildID, key)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"guildId":     guildID,
		"responseKey": key,
	})
}

func (s *Server) handleDeleteResponse(w http.ResponseWriter, r *http.Request) {
	guildID, key := responseVars(r)
	if err := store.ValidateKey(guildID, key); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeleteResponse(r.Context(), guildID, key); err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{"status": "deleted"}
	if d, ok := s.pusher.(botDeleter); ok && s.pusher.Enabled() {
		if err := d.DeleteResponse(r.Context(), guildID, key); err != nil {
			log.ApplicationLogger().Warn("Bot delete failed", "guildID", guildID, "responseKey", key, "err", err)
			resp["botError"] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	guildID, key := responseVars(r)
	es, err := s.openSession(r.Context(), guildID, key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, es.view())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	es, err := s.lookupSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, es.view())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.sessions.Delete(id); !ok {
		writeError(w, &httpError{code: http.StatusNotFound, err: fmt.Errorf("%w: %s", errSessionNotFound, id)})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleApplyEdits applies a JSON array of edits as one atomic batch.
func (s *Server) handleApplyEdits(w http.ResponseWriter, r *http.Request) {
	es, err := s.lookupSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	edits, err := editor.DecodeEdits(body)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := es.ed.ApplyAll(edits)
	if err != nil {
		writeError(w, err)
		return
	}
	view := es.view()
	view.Results = results
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	es, err := s.lookupSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	es.ed.Reset()
	writeJSON(w, http.StatusOK, es.view())
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	es, err := s.lookupSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if err := es.ed.Save(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	log.HTTPLogger().Info("Response saved", "sessionID", es.id, "guildID", es.guildID, "responseKey", es.key)
	writeJSON(w, http.StatusOK, es.view())
}

// handlePreview renders the session's current document as a Discord payload.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	es, err := s.lookupSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	msg, err := render.Document(es.ed.Document())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// handlePublish posts the stored response through a webhook, or edits the
// addressed webhook message.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeError(w, &httpError{code: http.StatusServiceUnavailable, err: errors.New("webhook publishing is not configured")})
		return
	}
	guildID, key := responseVars(r)
	if err := store.ValidateKey(guildID, key); err != nil {
		writeError(w, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	target, err := decodeTarget(body)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := s.store.GetResponse(r.Context(), guildID, key)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeError(w, store.NotFound(guildID, key))
		return
	}
	doc, err := rec.Document()
	if err != nil {
		writeError(w, err)
		return
	}
	messageID, err := s.publisher.Publish(r.Context(), target, doc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "published",
		"messageId": messageID,
	})
}

// handleValidateWebhook checks a webhook URL, and the message it would edit,
// against Discord before the dashboard stores it.
func (s *Server) handleValidateWebhook(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeError(w, &httpError{code: http.StatusServiceUnavailable, err: errors.New("webhook publishing is not configured")})
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	target, err := decodeTarget(body)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.publisher.Validate(r.Context(), target); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func decodeTarget(body []byte) (webhook.Target, error) {
	var target webhook.Target
	if err := json.Unmarshal(body, &target); err != nil {
		return target, badRequest(fmt.Errorf("invalid payload: %w", err))
	}
	if err := target.Validate(); err != nil {
		return target, err
	}
	return target, nil
}

func responseVars(r *http.Request) (string, string) {
	vars := mux.Vars(r)
	return vars["guildID"], vars["key"]
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxBodyBytes)
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, &httpError{code: http.StatusRequestEntityTooLarge, err: fmt.Errorf("body exceeds %d bytes", mbe.Limit)}
		}
		return nil, badRequest(fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

func badRequest(err error) error {
	return &httpError{
		code: http.StatusBadRequest,
		err:  err,
	}
}

type httpError struct {
	code int
	err  error
}

func (e *httpError) Error() string { return e.err.Error() }
func (e *httpError) Unwrap() error { return e.err }

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		he *httpError
		ve *message.ValidationError
		ce *message.CapacityError
		pe *editor.PersistenceError
		we *webhook.Error
	)
	switch {
	case errors.As(err, &he):
		return he.code
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ce), errors.Is(err, editor.ErrSaveInFlight):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &we):
		if webhook.IsTemporary(we) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case errors.As(err, &pe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	body := errorBody{Error: err.Error()}
	var ve *message.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if code >= http.StatusInternalServerError {
		log.ErrorLoggerRaw().Error("Control request failed", "status", code, "err", err)
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ApplicationLogger().Error("Failed to encode control response", "err", err)
	}
}
