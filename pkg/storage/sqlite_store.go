package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/store"
	_ "modernc.org/sqlite"
)

// Store wraps an embedded SQLite database holding bot responses and a small
// runtime metadata table. It uses modernc.org/sqlite for CGO-less builds.
type Store struct {
	dbPath string
	db     *sql.DB
	now    func() time.Time
}

var _ store.ResponseStore = (*Store)(nil)

var errNotInitialized = errors.New("store not initialized")

// NewStore creates a new Store pointing to dbPath. Call Init() before using it.
func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath, now: func() time.Time { return time.Now().UTC() }}
}

// Init opens the SQLite database, configures pragmas, and ensures the schema exists.
func (s *Store) Init() error {
	if s.db != nil {
		return nil
	}
	if s.dbPath == "" {
		return fmt.Errorf("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// Pragmas for durability and concurrency
	pragmas := []struct{ stmt, what string }{
		{`PRAGMA journal_mode=WAL;`, "set WAL"},
		{`PRAGMA foreign_keys=ON;`, "enable FKs"},
		{`PRAGMA busy_timeout=5000;`, "set busy_timeout"},
		{`PRAGMA synchronous=NORMAL;`, "set synchronous"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("%s: %w", p.what, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// GetResponse returns the stored record, or nil when absent.
func (s *Store) GetResponse(ctx context.Context, guildID, key string) (*message.Record, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT record FROM bot_responses WHERE guild_id=? AND response_key=?`,
		guildID, key,
	)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var rec message.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode stored record %s/%s: %w", guildID, key, err)
	}
	return &rec, nil
}

// PutResponse inserts or replaces a record, assigns it the next revision
// and resets its push state.
func (s *Store) PutResponse(ctx context.Context, guildID, key string, rec message.Record) error {
	if s.db == nil {
		return errNotInitialized
	}
	if err := store.ValidateKey(guildID, key); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rev int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO response_revisions (id, seq) VALUES (1, 1)
         ON CONFLICT(id) DO UPDATE SET seq=seq+1
         RETURNING seq`,
	).Scan(&rev); err != nil {
		return fmt.Errorf("next revision: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bot_responses (guild_id, response_key, response_type, record, revision, updated_at, pushed_at, push_error)
         VALUES (?, ?, ?, ?, ?, ?, NULL, '')
         ON CONFLICT(guild_id, response_key) DO UPDATE SET
           response_type=excluded.response_type,
           record=excluded.record,
           revision=excluded.revision,
           updated_at=excluded.updated_at,
           pushed_at=NULL,
           push_error=''`,
		guildID, key, string(rec.ResponseType), string(raw), rev, s.now(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteResponse removes a record. Returns store.ErrNotFound when absent.
func (s *Store) DeleteResponse(ctx context.Context, guildID, key string) error {
	if s.db == nil {
		return errNotInitialized
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM bot_responses WHERE guild_id=? AND response_key=?`, guildID, key)
	if err != nil {
		return err
	}
	return requireAffected(res, guildID, key)
}

// GetEntry returns the stored entry with its push state, or nil when absent.
func (s *Store) GetEntry(ctx context.Context, guildID, key string) (*store.Entry, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}
	entries, err := s.queryEntries(ctx,
		`SELECT guild_id, response_key, record, revision, updated_at, pushed_at, push_error
         FROM bot_responses WHERE guild_id=? AND response_key=?`,
		guildID, key,
	)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// ListResponses returns a guild's records ordered by key.
func (s *Store) ListResponses(ctx context.Context, guildID string) ([]store.Entry, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.queryEntries(ctx,
		`SELECT guild_id, response_key, record, revision, updated_at, pushed_at, push_error
         FROM bot_responses WHERE guild_id=? ORDER BY response_key`,
		guildID,
	)
}

// MarkPushed records a push attempt of one revision. A nil pushErr marks
// success. A newer stored revision leaves the row untouched and returns
// store.ErrStale.
func (s *Store) MarkPushed(ctx context.Context, guildID, key string, revision int64, pushErr error) error {
	if s.db == nil {
		return errNotInitialized
	}
	msg := ""
	if pushErr != nil {
		msg = pushErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE bot_responses SET pushed_at=?, push_error=?
         WHERE guild_id=? AND response_key=? AND revision=?`,
		s.now(), msg, guildID, key, revision,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var stored int64
	err = s.db.QueryRowContext(ctx,
		`SELECT revision FROM bot_responses WHERE guild_id=? AND response_key=?`,
		guildID, key,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return store.NotFound(guildID, key)
	}
	if err != nil {
		return err
	}
	return store.Stale(guildID, key, revision, stored)
}

// PendingPushes returns records never pushed, pushed with an error, or
// changed since their last push.
func (s *Store) PendingPushes(ctx context.Context) ([]store.Entry, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}
	all, err := s.queryEntries(ctx,
		`SELECT guild_id, response_key, record, revision, updated_at, pushed_at, push_error
         FROM bot_responses ORDER BY guild_id, response_key`,
	)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.NeedsPush() {
			out = append(out, e)
		}
	}
	return out, nil
}

// SetMeta records a named timestamp such as the last push sweep.
func (s *Store) SetMeta(ctx context.Context, key string, t time.Time) error {
	if s.db == nil {
		return errNotInitialized
	}
	if t.IsZero() {
		t = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runtime_meta (key, ts) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET ts=excluded.ts`,
		key, t.UTC(),
	)
	return err
}

// GetMeta returns a named timestamp, if any.
func (s *Store) GetMeta(ctx context.Context, key string) (time.Time, bool, error) {
	if s.db == nil {
		return time.Time{}, false, errNotInitialized
	}
	row := s.db.QueryRowContext(ctx, `SELECT ts FROM runtime_meta WHERE key=?`, key)
	var ts time.Time
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return ts, true, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]store.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []store.Entry{}
	for rows.Next() {
		var (
			e        store.Entry
			raw      string
			pushedAt sql.NullTime
		)
		if err := rows.Scan(&e.GuildID, &e.Key, &raw, &e.Revision, &e.UpdatedAt, &pushedAt, &e.PushError); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &e.Record); err != nil {
			return nil, fmt.Errorf("decode stored record %s/%s: %w", e.GuildID, e.Key, err)
		}
		if pushedAt.Valid {
			t := pushedAt.Time
			e.PushedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result, guildID, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.NotFound(guildID, key)
	}
	return nil
}

func ensureSchema(db *sql.DB) error {
	const createResponses = `
CREATE TABLE IF NOT EXISTS bot_responses (
  guild_id      TEXT NOT NULL,
  response_key  TEXT NOT NULL,
  response_type TEXT NOT NULL,
  record        TEXT NOT NULL,
  revision      INTEGER NOT NULL DEFAULT 0,
  updated_at    TIMESTAMP NOT NULL,
  pushed_at     TIMESTAMP,
  push_error    TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (guild_id, response_key)
);
CREATE INDEX IF NOT EXISTS idx_bot_responses_pushed ON bot_responses(pushed_at);`

	const createRevisions = `
CREATE TABLE IF NOT EXISTS response_revisions (
  id  INTEGER PRIMARY KEY CHECK (id = 1),
  seq INTEGER NOT NULL
);`

	const createRuntimeMeta = `
CREATE TABLE IF NOT EXISTS runtime_meta (
  key TEXT PRIMARY KEY,
  ts  TIMESTAMP NOT NULL
);`

	for _, stmt := range []string{createResponses, createRevisions, createRuntimeMeta} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return ensureRevisionColumn(db)
}

// ensureRevisionColumn upgrades databases created before revisions existed.
func ensureRevisionColumn(db *sql.DB) error {
	rows, err := db.Query(`PRAGMA table_info(bot_responses)`)
	if err != nil {
		return fmt.Errorf("inspect bot_responses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid          int
			name, typ    string
			notNull, pk  int
			defaultValue sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultValue, &pk); err != nil {
			return fmt.Errorf("inspect bot_responses: %w", err)
		}
		if name == "revision" {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect bot_responses: %w", err)
	}
	rows.Close()
	if _, err := db.Exec(`ALTER TABLE bot_responses ADD COLUMN revision INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("add revision column: %w", err)
	}
	return nil
}
