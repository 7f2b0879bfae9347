package control

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/small-frappuccino/botdash/internal/cache"
	"github.com/small-frappuccino/botdash/pkg/discord/webhook"
	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/store"
	"github.com/small-frappuccino/botdash/pkg/task"
)

const (
	defaultMaxBodyBytes = 256 * 1024
	defaultSessionTTL   = 30 * time.Minute
)

// Config configures the dashboard API server.
type Config struct {
	Addr string

	// Token is the bearer token required on /v1 routes. Empty disables auth.
	Token string

	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string

	// SessionTTL is the idle time after which an edit session is dropped.
	SessionTTL time.Duration
}

// Publisher posts a document through a Discord webhook.
type Publisher interface {
	Publish(ctx context.Context, target webhook.Target, doc message.Document) (string, error)
	Validate(ctx context.Context, target webhook.Target) error
}

// WebhookPublisher publishes with a Discord REST session.
type WebhookPublisher struct {
	Session *discordgo.Session
}

func (p WebhookPublisher) Publish(ctx context.Context, target webhook.Target, doc message.Document) (string, error) {
	return webhook.PublishMessage(ctx, p.Session, target, doc)
}

func (p WebhookPublisher) Validate(ctx context.Context, target webhook.Target) error {
	return webhook.ValidateTarget(ctx, p.Session, target)
}

// Deps are the collaborators the API serves. Pusher and Publisher are optional.
type Deps struct {
	Store     store.ResponseStore
	Pusher    task.Pusher
	Publisher Publisher
}

// Server exposes the message editor over HTTP.
type Server struct {
	addr       string
	token      string
	store      store.ResponseStore
	pusher     task.Pusher
	publisher  Publisher
	sessions   *cache.TTLMap[string, *editSession]
	sessionTTL time.Duration
	handler    http.Handler
	httpServer *http.Server
	listener   net.Listener
}

// NewServer returns nil if addr is empty or no store is given.
func NewServer(cfg Config, deps Deps) *Server {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" || deps.Store == nil {
		return nil
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	s := &Server{
		addr:       addr,
		token:      strings.TrimSpace(cfg.Token),
		store:      deps.Store,
		pusher:     deps.Pusher,
		publisher:  deps.Publisher,
		sessionTTL: ttl,
	}
	s.sessions = cache.NewTTLMap[string, *editSession](ttl, time.Minute).
		WithSliding().
		WithEvictHook(func(id string, es *editSession) {
			log.HTTPLogger().Info("Edit session expired", "sessionID", id, "guildID", es.guildID, "responseKey", es.key)
		})

	router := mux.NewRouter()
	router.Use(accessLog)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/v1/guilds/{guildID}/responses", s.withAuth(s.handleListResponses)).Methods(http.MethodGet)
	router.HandleFunc("/v1/guilds/{guildID}/responses/{key}", s.withAuth(s.handleGetResponse)).Methods(http.MethodGet)
	router.HandleFunc("/v1/guilds/{guildID}/responses/{key}", s.withAuth(s.handlePutResponse)).Methods(http.MethodPut)
	router.HandleFunc("/v1/guilds/{guildID}/responses/{key}", s.withAuth(s.handleDeleteResponse)).Methods(http.MethodDelete)
	router.HandleFunc("/v1/guilds/{guildID}/responses/{key}/sessions", s.withAuth(s.handleOpenSession)).Methods(http.MethodPost)
	router.HandleFunc("/v1/guilds/{guildID}/responses/{key}/publish", s.withAuth(s.handlePublish)).Methods(http.MethodPost)

	router.HandleFunc("/v1/webhooks/validate", s.withAuth(s.handleValidateWebhook)).Methods(http.MethodPost)

	router.HandleFunc("/v1/sessions/{id}", s.withAuth(s.handleGetSession)).Methods(http.MethodGet)
	router.HandleFunc("/v1/sessions/{id}", s.withAuth(s.handleCloseSession)).Methods(http.MethodDelete)
	router.HandleFunc("/v1/sessions/{id}/edits", s.withAuth(s.handleApplyEdits)).Methods(http.MethodPost)
	router.HandleFunc("/v1/sessions/{id}/reset", s.withAuth(s.handleResetSession)).Methods(http.MethodPost)
	router.HandleFunc("/v1/sessions/{id}/save", s.withAuth(s.handleSaveSession)).Methods(http.MethodPost)
	router.HandleFunc("/v1/sessions/{id}/preview", s.withAuth(s.handlePreview)).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	s.handler = c.Handler(router)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start opens the API listening socket.
func (s *Server) Start() error {
	if s == nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("bind control server: %w", err)
	}
	s.listener = ln

	if s.token == "" {
		log.ApplicationLogger().Warn("Control server running without authentication", "addr", s.httpServer.Addr)
	}
	log.ApplicationLogger().Info("Control server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ApplicationLogger().Error("Control server stopped unexpectedly", "err", err)
		}
	}()

	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts down the API server and drops open edit sessions.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	defer s.sessions.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown control server: %w", err)
	}

	log.ApplicationLogger().Info("Control server stopped", "addr", s.addr)
	return nil
}

// withAuth requires "Authorization: Bearer <token>" when a token is configured.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, &httpError{code: http.StatusUnauthorized, err: errors.New("missing bearer token")})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			log.HTTPLogger().Warn("Rejected request with invalid token", "remote", r.RemoteAddr, "path", r.URL.Path)
			writeError(w, &httpError{code: http.StatusUnauthorized, err: errors.New("invalid bearer token")})
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.HTTPLogger().Debug("Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}
