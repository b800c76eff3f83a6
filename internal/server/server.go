// Package server exposes the directive endpoint, manual change reports and
// the event monitor over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"alexa-gateway/internal/alexa"
	"alexa-gateway/internal/skill"
)

const (
	readTimeout             = 15 * time.Second
	writeTimeout            = 30 * time.Second
	idleTimeout             = 60 * time.Second
	gracefulShutdownTimeout = 10 * time.Second
	maxBodySize             = 1 << 20
)

// Directives answers Alexa directives and builds change reports.
type Directives interface {
	Handle(ctx context.Context, d skill.Directive) (alexa.Document, error)
	ChangeReports(entityID string) ([]alexa.Document, error)
	ErrorResponse(d skill.Directive, err error) alexa.Document
}

// EventPoster delivers documents to the Alexa event gateway.
type EventPoster interface {
	PostEvent(ctx context.Context, doc alexa.Document) error
}

// Broker reports the state of the device bridge connection.
type Broker interface {
	IsConnected() bool
}

// Options configures a Server.
type Options struct {
	Addr       string
	Directives Directives
	Events     EventPoster
	Broker     Broker
	Logger     *zap.Logger
}

// Server routes directives to the skill handler and publishes the resulting
// documents.
type Server struct {
	addr       string
	directives Directives
	events     EventPoster
	broker     Broker
	hub        *Hub
	logger     *zap.Logger
}

// New creates a server. Call Run to start listening.
func New(opts Options) *Server {
	return &Server{
		addr:       opts.Addr,
		directives: opts.Directives,
		events:     opts.Events,
		broker:     opts.Broker,
		hub:        NewHub(opts.Logger),
		logger:     opts.Logger,
	}
}

// Hub returns the event monitor hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/events", s.hub.serveWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSize(maxBodySize))
		r.Post("/directive", s.handleDirective)
		r.Post("/entities/{entityID}/report", s.handleReport)
	})

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// Report sends the change reports for an entity to the event gateway and
// the event monitors.
func (s *Server) Report(ctx context.Context, entityID string) ([]alexa.Document, error) {
	docs, err := s.directives.ChangeReports(entityID)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if err := s.publish(ctx, doc); err != nil {
			return docs, err
		}
	}
	return docs, nil
}

func (s *Server) publish(ctx context.Context, doc alexa.Document) error {
	s.hub.Broadcast(doc)
	if !skill.ShouldPost(doc) {
		return nil
	}
	if err := s.events.PostEvent(ctx, doc); err != nil {
		return fmt.Errorf("post %s.%s: %w", doc.Event.Header.Namespace, doc.Event.Header.Name, err)
	}
	return nil
}

func (s *Server) handleDirective(w http.ResponseWriter, r *http.Request) {
	var req skill.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid directive body: "+err.Error())
		return
	}
	d := req.Directive
	if d.Header.Namespace == "" || d.Header.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "directive.header namespace and name are required")
		return
	}

	log := s.logger.With(
		zap.String("namespace", d.Header.Namespace),
		zap.String("name", d.Header.Name),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)

	doc, err := s.directives.Handle(r.Context(), d)
	if err != nil {
		status, _ := statusFor(err)
		log.Warn("directive failed", zap.Error(err))
		errDoc := s.directives.ErrorResponse(d, err)
		s.hub.Broadcast(errDoc)
		writeJSON(w, status, errDoc)
		return
	}

	if err := s.publish(r.Context(), doc); err != nil {
		status, code := statusFor(err)
		log.Error("failed to publish response", zap.Error(err))
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

// ReportResponse lists the documents sent for a manual change report.
type ReportResponse struct {
	Events []alexa.Document `json:"events"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	docs, err := s.Report(r.Context(), entityID)
	if err != nil {
		status, code := statusFor(err)
		s.logger.Warn("change report failed", zap.String("entityId", entityID), zap.Error(err))
		writeError(w, status, code, err.Error())
		return
	}

	if docs == nil {
		docs = []alexa.Document{}
	}
	writeJSON(w, http.StatusAccepted, ReportResponse{Events: docs})
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status          string `json:"status"`
	BrokerConnected bool   `json:"broker_connected"`
	Monitors        int    `json:"monitors"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:          "ok",
		BrokerConnected: s.broker == nil || s.broker.IsConnected(),
		Monitors:        s.hub.ClientCount(),
	}
	status := http.StatusOK
	if !resp.BrokerConnected {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
