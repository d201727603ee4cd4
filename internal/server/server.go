// Package server exposes typing-stress sessions over HTTP and a WebSocket
// event stream.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/verte-zerg/stresstype/internal/model"
	"github.com/verte-zerg/stresstype/internal/observe"
	"github.com/verte-zerg/stresstype/internal/store"
	"github.com/verte-zerg/stresstype/internal/stress"
)

// Defaults for Options.
const (
	DefaultRetention = 10 * time.Minute
	persistTimeout   = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	Store      store.Store
	Metrics    *observe.Metrics
	Logger     *slog.Logger
	Passages   stress.PassageSource
	Duration   time.Duration
	Hesitation time.Duration
	Retention  time.Duration
	// Clock replaces time.Now for every session.
	Clock func() time.Time
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// Server owns the API session registry and the event hub.
type Server struct {
	store          store.Store
	metrics        *observe.Metrics
	logger         *slog.Logger
	passages       stress.PassageSource
	duration       time.Duration
	hesitation     time.Duration
	retention      time.Duration
	now            func() time.Time
	metricsHandler http.Handler

	registry *Registry
	hub      *Hub
}

// New returns a Server. Store and Metrics are required.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if opts.Metrics == nil {
		return nil, errors.New("server: metrics are required")
	}
	s := &Server{
		store:          opts.Store,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		passages:       opts.Passages,
		duration:       opts.Duration,
		hesitation:     opts.Hesitation,
		retention:      opts.Retention,
		now:            opts.Clock,
		metricsHandler: opts.MetricsHandler,
		registry:       NewRegistry(),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.passages == nil {
		s.passages = stress.Fixed("")
	}
	if s.retention <= 0 {
		s.retention = DefaultRetention
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.hub = NewHub(s.logger)
	return s, nil
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Registry returns the live session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observe.Middleware(s.metrics, s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/passage", s.handlePassage)
		r.Get("/history", s.handleHistory)
		r.Post("/sessions", s.handleStart)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Delete("/", s.handleDiscard)
			r.Post("/input", s.handleInput)
			r.Post("/finish", s.handleFinish)
		})
	})
	return r
}

// Run evicts finished sessions every retention/4 until ctx is done, then
// stops the sessions still held.
func (s *Server) Run(ctx context.Context) error {
	interval := s.retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.registry.Close()
			return nil
		case <-ticker.C:
			if n := s.registry.Sweep(s.now(), s.retention); n > 0 {
				s.logger.Debug("evicted finished sessions", "count", n)
			}
		}
	}
}

// startSession creates, registers and starts a controller.
func (s *Server) startSession() (model.TypingSession, *stress.Controller) {
	ctrl := stress.NewController(s.passages,
		stress.WithDuration(s.duration),
		stress.WithHesitation(s.hesitation),
		stress.WithClock(s.now),
	)
	unsubscribe := ctrl.Subscribe(func(ev stress.Event) { s.onEvent(ctrl, ev) })
	session, _ := ctrl.Start()
	s.registry.Put(session.ID, ctrl, unsubscribe)
	return session, ctrl
}

func (s *Server) onEvent(ctrl *stress.Controller, ev stress.Event) {
	ctx := context.Background()
	switch ev.Kind {
	case stress.EventStarted:
		s.metrics.RecordStarted(ctx, store.SourceAPI)
		s.hub.BroadcastSessionStarted(ev.Session, ctrl.Deadline())
		s.logger.Info("session started", "session_id", ev.Session.ID)
	case stress.EventFinished:
		s.persist(ev.Session)
		s.metrics.RecordFinished(ctx, store.SourceAPI, string(ev.Session.Reason), *ev.Session.Score)
		s.hub.BroadcastSessionFinished(ev.Session)
		s.logger.Info("session finished",
			"session_id", ev.Session.ID,
			"reason", ev.Session.Reason,
			"score", *ev.Session.Score,
		)
	case stress.EventReset:
		if ev.Session.Phase == model.PhaseRunning {
			s.metrics.RecordDiscarded(ctx, store.SourceAPI)
		}
		s.hub.BroadcastSessionDiscarded(ev.Session.ID)
	}
}

func (s *Server) persist(session model.TypingSession) {
	rec, err := store.NewRecord(session, store.SourceAPI)
	if err != nil {
		s.logger.Error("build history record", "session_id", session.ID, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.InsertSession(ctx, rec, session.Events); err != nil {
		s.metrics.PersistErrors.Add(ctx, 1)
		s.logger.Error("persist session", "session_id", session.ID, "err", err)
	}
}
