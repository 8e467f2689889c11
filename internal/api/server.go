// Package api exposes upload sessions and the metadata reader over JSON/HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"solana-token-studio/internal/metadata"
	"solana-token-studio/internal/notify"
	"solana-token-studio/internal/observability"
	"solana-token-studio/internal/upload"
)

// Defaults for Config zero values.
const (
	DefaultSessionTTL      = 2 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
	DefaultMaxImageBytes   = 10 << 20
	maxJSONBody            = 64 << 10
)

// Config tunes the server.
type Config struct {
	SessionTTL      time.Duration
	CleanupInterval time.Duration
	MaxImageBytes   int64
	InboxSize       int
	// MetricsHandler serves /metrics. Defaults to the default registry.
	MetricsHandler http.Handler
}

// ReaderSource resolves the metadata reader of a cluster. An empty name
// selects the default cluster.
type ReaderSource interface {
	For(cluster string) (*metadata.Reader, error)
}

// Server routes API requests to sessions.
type Server struct {
	cfg      Config
	opts     upload.Options
	readers  ReaderSource
	sessions *cache.Cache
	notifier notify.Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger
	mux      *http.ServeMux
}

type sessionEntry struct {
	session *upload.Session
	inbox   *notify.Inbox
}

// NewServer creates a server. opts is the template for new sessions; its
// Notifier also receives every session's notifications.
func NewServer(cfg Config, opts upload.Options, readers ReaderSource) *Server {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = observability.Handler()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}

	s := &Server{
		cfg:      cfg,
		opts:     opts,
		readers:  readers,
		sessions: cache.New(cfg.SessionTTL, cfg.CleanupInterval),
		notifier: notifier,
		metrics:  opts.Metrics,
		logger:   logger.Named("api"),
		mux:      http.NewServeMux(),
	}
	s.sessions.OnEvicted(func(id string, _ interface{}) {
		s.logger.Debug("session expired", zap.String("session", id))
		s.metrics.SetActiveSessions(s.sessions.ItemCount())
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", s.cfg.MetricsHandler)

	s.mux.HandleFunc("GET /api/networks", s.handleNetworks)
	s.mux.HandleFunc("GET /api/metadata/{address}", s.handleFetchMetadata)

	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.withSession(s.handleGetSession))
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("PUT /api/sessions/{id}/network", s.withSession(s.handleSelectNetwork))
	s.mux.HandleFunc("POST /api/sessions/{id}/connect", s.withSession(s.handleConnect))
	s.mux.HandleFunc("POST /api/sessions/{id}/fund", s.withSession(s.handleTopUp))
	s.mux.HandleFunc("POST /api/sessions/{id}/image", s.withSession(s.handleStageImage))
	s.mux.HandleFunc("POST /api/sessions/{id}/image/upload", s.withSession(s.handleUploadImage))
	s.mux.HandleFunc("PUT /api/sessions/{id}/fields", s.withSession(s.handleUpdateFields))
	s.mux.HandleFunc("POST /api/sessions/{id}/metadata/upload", s.withSession(s.handleUploadMetadata))
	s.mux.HandleFunc("GET /api/sessions/{id}/metadata/{address}", s.withSession(s.handleSessionMetadata))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// newSession registers a session with its own inbox.
func (s *Server) newSession() *sessionEntry {
	id := uuid.NewString()
	inbox := notify.NewInbox(s.cfg.InboxSize)

	opts := s.opts
	opts.Notifier = notify.Multi{inbox, s.notifier}

	e := &sessionEntry{session: upload.NewSession(id, opts), inbox: inbox}
	s.sessions.SetDefault(id, e)
	s.metrics.SetActiveSessions(s.sessions.ItemCount())
	return e
}

// lookup returns a live session and extends its lifetime.
func (s *Server) lookup(id string) (*sessionEntry, bool) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, false
	}
	e := v.(*sessionEntry)
	s.sessions.SetDefault(id, e)
	return e, true
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, e *sessionEntry)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.lookup(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, errSessionNotFound)
			return
		}
		h(w, r, e)
	}
}
