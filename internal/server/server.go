// Package server provides the HTTP API and realtime feed for live resume
// reviews.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-live/internal/config"
	"github.com/jonathan/resume-live/internal/db"
	"github.com/jonathan/resume-live/internal/extraction"
	"github.com/jonathan/resume-live/internal/feed"
	"github.com/jonathan/resume-live/internal/ingestion"
	"github.com/jonathan/resume-live/internal/live"
	"github.com/jonathan/resume-live/internal/logger"
	"github.com/jonathan/resume-live/internal/moderation"
	"github.com/jonathan/resume-live/internal/server/middleware"
	"github.com/jonathan/resume-live/internal/server/ratelimit"
	"github.com/jonathan/resume-live/internal/storage"
	"github.com/jonathan/resume-live/internal/types"
)

// Store is the row store behind the API.
type Store interface {
	ingestion.Store
	extraction.ResumeStore
	HostStore

	SetTarget(ctx context.Context, name string, expectedVersion *int64) (*types.Target, error)
	ClearTarget(ctx context.Context, expectedVersion *int64) (*types.Target, error)

	ListRatings(ctx context.Context, target string, limit int) ([]types.Rating, error)
	DeleteRatings(ctx context.Context, target string, kind types.ClearKind) ([]uuid.UUID, error)
	ListChat(ctx context.Context, target string, limit int) ([]types.ChatMessage, error)
	DeleteChat(ctx context.Context, target string) ([]uuid.UUID, error)
	ListQuestions(ctx context.Context, target string, includeAnswered bool) ([]types.Question, error)
	AnswerQuestion(ctx context.Context, id uuid.UUID) (*types.Question, error)
	DeleteQuestions(ctx context.Context, target string) ([]uuid.UUID, error)

	ListSettings(ctx context.Context) ([]types.SettingsRecord, error)
	PutSettings(ctx context.Context, key string, value json.RawMessage, expectedVersion *int64) (*types.SettingsRecord, error)

	InsertResume(ctx context.Context, r types.Resume) (types.Resume, error)
	ListResumes(ctx context.Context, limit int) ([]types.Resume, error)
	GetLatestAnalysis(ctx context.Context, resumeID uuid.UUID) (*types.ResumeAnalysis, error)
	ListPresenters(ctx context.Context) ([]types.Presenter, error)

	Ping(ctx context.Context) error
}

// Runner is a background component tied to the server's lifetime, such as a
// feed bridge.
type Runner interface {
	Run(ctx context.Context) error
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Store   Store
	Hub     *feed.Hub
	Objects storage.Store
	// Files serves uploaded objects when storage is local. Optional.
	Files http.Handler
	// Publisher receives changes the server originates. Nil publishes to Hub.
	// Use feed.Nop when database triggers feed the hub.
	Publisher feed.Publisher
	// Bridge feeds the hub from outside the process. Optional.
	Bridge    Runner
	Extractor extraction.TextExtractor
	Limiter   *ratelimit.Limiter
	JWT       *JWTService
	Hosts     *HostService
	Checker   *moderation.Checker
	Logger    *zap.Logger
	Now       func() time.Time
}

// Server is the HTTP API.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	store      Store
	hub        *feed.Hub
	publisher  feed.Publisher
	bridge     Runner
	objects    storage.Store
	bucket     string
	ingest     *ingestion.Service
	analyzer   *extraction.Analyzer
	session    *live.Session
	limiter    *ratelimit.Limiter
	jwtService *JWTService
	hosts      *HostService
	corsOrigin string
	logger     *zap.Logger
	now        func() time.Time
	closers    []func()
}

// New builds a Server from cfg and deps.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server requires a store")
	}
	if deps.JWT == nil || deps.Hosts == nil {
		return nil, errors.New("server requires host authentication")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Hub == nil {
		deps.Hub = feed.NewHub(cfg.Feed.Buffer, deps.Logger)
	}
	if deps.Publisher == nil {
		deps.Publisher = deps.Hub
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	log := logger.Named(deps.Logger, "server")
	s := &Server{
		store:      deps.Store,
		hub:        deps.Hub,
		publisher:  deps.Publisher,
		bridge:     deps.Bridge,
		objects:    deps.Objects,
		bucket:     cfg.Storage.Bucket,
		ingest:     ingestion.NewService(deps.Store, deps.Checker, deps.Publisher, logger.Named(deps.Logger, "ingestion")),
		limiter:    deps.Limiter,
		jwtService: deps.JWT,
		hosts:      deps.Hosts,
		corsOrigin: cfg.Server.CORSOrigin,
		logger:     log,
		now:        deps.Now,
	}
	if s.bucket == "" {
		s.bucket = storage.DefaultBucket
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if deps.Extractor != nil {
		s.analyzer = extraction.NewAnalyzer(deps.Store, deps.Extractor, logger.Named(deps.Logger, "analyzer"))
	}
	s.session = live.NewSession(
		live.WithClock(deps.Now),
		live.WithLogger(logger.Named(deps.Logger, "session")),
		live.WithTargetHook(s.reloadSession),
		live.WithResyncHook(func(string, bool) { s.syncSession(context.Background()) }),
	)

	mux := http.NewServeMux()
	s.routes(mux, deps.Files)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // Feed streams stay open
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux, files http.Handler) {
	host := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	hostFunc := func(h http.HandlerFunc) http.Handler { return host(h) }

	mux.HandleFunc("GET /health", s.handleHealth)

	// Audience
	mux.HandleFunc("GET /target", s.handleGetTarget)
	mux.HandleFunc("POST /ratings", s.handleSubmitRating)
	mux.HandleFunc("POST /reactions", s.handleSubmitReaction)
	mux.HandleFunc("POST /chat", s.handleSubmitChat)
	mux.HandleFunc("POST /questions", s.handleSubmitQuestion)
	mux.HandleFunc("POST /questions/{id}/upvote", s.handleUpvote)
	mux.HandleFunc("GET /ratings", s.handleListRatings)
	mux.HandleFunc("GET /chat", s.handleListChat)
	mux.HandleFunc("GET /questions", s.handleListQuestions)
	mux.HandleFunc("GET /display", s.handleDisplay)
	mux.HandleFunc("GET /settings/{key}", s.handleGetSettings)
	mux.HandleFunc("POST /presenters", s.handleRegisterPresenter)
	mux.HandleFunc("GET /resumes", s.handleListResumes)
	mux.HandleFunc("GET /resumes/{id}", s.handleGetResume)
	mux.HandleFunc("GET /resumes/{id}/analysis", s.handleGetAnalysis)
	if files != nil {
		mux.Handle("GET /files/", http.StripPrefix("/files", files))
	}

	// Realtime feed
	mux.HandleFunc("GET /feed/ws", s.handleFeedWS)
	mux.HandleFunc("GET /feed/sse", s.handleFeedSSE)

	// Auth
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/register", s.handleRegister)

	// Host controls
	mux.Handle("GET /host/me", hostFunc(s.handleMe))
	mux.Handle("PUT /host/target", hostFunc(s.handleSetTarget))
	mux.Handle("DELETE /host/target", hostFunc(s.handleClearTarget))
	mux.Handle("POST /host/clear/{kind}", hostFunc(s.handleClear))
	mux.Handle("POST /host/questions/{id}/answer", hostFunc(s.handleAnswerQuestion))
	mux.Handle("GET /host/settings", hostFunc(s.handleListSettings))
	mux.Handle("PUT /host/settings/{key}", hostFunc(s.handlePutSettings))
	mux.Handle("POST /host/timer/start", hostFunc(s.handleTimerStart))
	mux.Handle("POST /host/timer/stop", hostFunc(s.handleTimerStop))
	mux.Handle("GET /host/presenters", hostFunc(s.handleListPresenters))
	mux.Handle("POST /host/resumes", hostFunc(s.handleUploadResume))
	mux.Handle("POST /host/resumes/{id}/analyze", hostFunc(s.handleAnalyzeResume))
}

// Handler returns the server's full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Session returns the server-side display session.
func (s *Server) Session() *live.Session {
	return s.session
}

// OnClose registers fn to run after the server stops.
func (s *Server) OnClose(fn func()) {
	s.closers = append(s.closers, fn)
}

// Start serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM. The display session and the feed bridge share the server's
// lifetime.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer s.close()

	sub := s.hub.Subscribe(feed.Filter{})
	defer sub.Unsubscribe()
	s.syncSession(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.session.Run(ctx, sub.C())
	})
	if s.bridge != nil {
		g.Go(func() error {
			return s.bridge.Run(ctx)
		})
	}
	g.Go(func() error {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.logger.Info("server stopped")
	return err
}

func (s *Server) close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// syncSession points the display session at the stored target and reloads
// its rows. It runs at startup and whenever the feed may have missed changes.
func (s *Server) syncSession(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if record, err := s.store.GetSettings(ctx, types.SettingsDisplay); err != nil {
		s.logger.Warn("failed to load display settings", zap.Error(err))
	} else if record != nil {
		var display types.DisplaySettings
		if err := json.Unmarshal(record.Value, &display); err == nil {
			s.session.SetDisplay(display)
		}
	}

	target, err := s.store.GetTarget(ctx)
	if err != nil {
		s.logger.Warn("failed to load review target", zap.Error(err))
		return
	}
	name, ok := target.Current()
	if !s.session.SetTarget(name, ok) {
		s.reloadSession(name, ok)
	}
}

// reloadSession replaces the session's lists with the target's stored rows.
func (s *Server) reloadSession(target string, set bool) {
	if !set {
		s.session.Load(nil, nil, nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := s.logger.With(zap.String(logger.FieldTarget, target))
	ratings, err := s.store.ListRatings(ctx, target, maxListLimit)
	if err != nil {
		log.Warn("failed to reload ratings", zap.Error(err))
		return
	}
	chat, err := s.store.ListChat(ctx, target, live.DefaultChatLimit)
	if err != nil {
		log.Warn("failed to reload chat", zap.Error(err))
		return
	}
	questions, err := s.store.ListQuestions(ctx, target, true)
	if err != nil {
		log.Warn("failed to reload questions", zap.Error(err))
		return
	}
	if current, ok := s.session.Cell().Load(); !ok || current != target {
		return
	}
	s.session.Load(ratings, chat, questions)
	log.Debug("session reloaded",
		zap.Int("ratings", len(ratings)),
		zap.Int("chat", len(chat)),
		zap.Int("questions", len(questions)))
}

// publish sends a change the server originated, such as a target switch.
func (s *Server) publish(eventType feed.EventType, table, id, target string, row any) {
	change, err := feed.NewChange(eventType, table, id, target, row)
	if err != nil {
		s.logger.Error("failed to encode change", zap.String(logger.FieldTable, table), zap.Error(err))
		return
	}
	s.publisher.Publish(change)
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their allowance with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := extractClientID(r)
		allowed, info := s.limiter.Allow(clientID, r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for access logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Flush keeps SSE streaming working through the logging middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the websocket upgrade take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// withLogging logs one line per request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		rec.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("latency", s.now().Sub(start)),
			zap.String(logger.FieldRequestID, requestID),
			zap.String("remote", r.RemoteAddr))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": s.hub.Subscribers(),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes a JSON error with a plain message.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, errorBody{Error: message})
}

// writeError maps err to a status and writes it, echoing input back.
// Server-side failures are logged and hidden from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, input any) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	s.jsonResponse(w, status, newErrorBody(err, status, input))
}

// extractClientID identifies the client by remote IP.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := max(1, int(info.RetryAfter.Seconds()))
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Info("rate limit exceeded",
		zap.String("client", clientID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// Open connects every collaborator named by cfg and builds a Server.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	closers := []func(){database.Close}
	fail := func(err error) (*Server, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return nil, err
	}

	passwordConfig, err := cfg.Password()
	if err != nil {
		return fail(fmt.Errorf("failed to create password config: %w", err))
	}
	jwtConfig, err := cfg.JWT()
	if err != nil {
		return fail(fmt.Errorf("failed to create JWT config: %w", err))
	}

	deps := Deps{
		Store:   database,
		Hub:     feed.NewHub(cfg.Feed.Buffer, log),
		Limiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		JWT:     NewJWTService(jwtConfig),
		Hosts:   NewHostService(database, passwordConfig),
		Logger:  log,
	}

	switch cfg.Feed.Backend {
	case config.FeedPostgres:
		deps.Publisher = feed.Nop
		deps.Bridge = feed.NewPGListener(cfg.Database.URL, cfg.Feed.Channel, deps.Hub, log)
	case config.FeedNATS:
		bridge, err := feed.ConnectNATS(cfg.Feed.NATSURL, deps.Hub, log)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			if err := bridge.Close(); err != nil {
				log.Warn("failed to drain nats", zap.Error(err))
			}
		})
		deps.Publisher = bridge
		deps.Bridge = bridge
	}

	switch cfg.Storage.Backend {
	case config.StorageGCS:
		gcs, err := storage.NewGCSStore(ctx, cfg.Storage.CredentialsFile)
		if err != nil {
			return fail(err)
		}
		deps.Objects = gcs
	default:
		fsStore, err := storage.NewFSStore(cfg.Storage.Root, cfg.Storage.PublicURL)
		if err != nil {
			return fail(err)
		}
		deps.Objects = fsStore
		deps.Files = fsStore.Handler()
	}

	vision, err := OpenVision(ctx, cfg, log)
	if err != nil {
		return fail(err)
	}
	if vision != nil {
		closers = append(closers, func() { _ = vision.Close() })
	}
	deps.Extractor = extraction.NewExtractor(deps.Objects, cfg.Storage.Bucket, vision, log)

	s, err := New(cfg, deps)
	if err != nil {
		return fail(err)
	}
	for _, c := range closers {
		s.OnClose(c)
	}
	return s, nil
}
