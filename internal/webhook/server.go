package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/leeroy/internal/dispatch"
	"github.com/mattjoyce/leeroy/internal/slack"
)

// Server represents the Slack-facing HTTP server.
type Server struct {
	config     Config
	verifier   *Verifier
	gate       Authorizer
	dispatcher CommandDispatcher
	logger     *slog.Logger
	server     *http.Server

	now func() time.Time
}

// New creates a new server instance.
func New(config Config, verifier *Verifier, gate Authorizer, dispatcher CommandDispatcher, logger *slog.Logger) *Server {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}

	return &Server{
		config:     config,
		verifier:   verifier,
		gate:       gate,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the HTTP server (blocking). On cancellation it stops accepting
// requests, then waits for in-flight build triggers, both within
// ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if err := s.dispatcher.Wait(shutdownCtx); err != nil {
			s.logger.Warn("build triggers still running at shutdown", "error", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(postOnly)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	r.Post("/", s.handleList)
	r.Post("/deploy", s.handleDeploy)

	return r
}

// postOnly rejects every other method before the route is resolved,
// so unknown paths answer 405 rather than 404 for non-POST requests.
func postOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests (excludes payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// authenticate reads the body and checks replay window and signature.
// It writes the rejection itself and reports whether to continue.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodySize+1))
	if err != nil {
		s.respondText(w, http.StatusBadRequest, MsgBadRequest)
		return nil, false
	}
	if int64(len(body)) > s.config.MaxBodySize {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return nil, false
	}

	err = s.verifier.Verify(InboundRequest{
		Body:      body,
		Timestamp: r.Header.Get(HeaderTimestamp),
		Signature: r.Header.Get(HeaderSignature),
	}, s.now())
	switch {
	case errors.Is(err, ErrReplaySuspected):
		s.respondText(w, http.StatusBadRequest, MsgReplay)
		return nil, false
	case err != nil:
		s.respondText(w, http.StatusBadRequest, MsgBadSignature)
		return nil, false
	}
	return body, true
}

// authorize runs the channel gate, answering the refusal when it denies.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, conversationID string) bool {
	if err := s.gate.Authorize(r.Context(), conversationID); err != nil {
		s.logger.Warn("unauthorized command",
			"path", r.URL.Path,
			"conversation_id", conversationID,
			"request_id", middleware.GetReqID(r.Context()),
		)
		s.respondText(w, http.StatusOK, MsgUnauthorized)
		return false
	}
	return true
}

// handleList answers the slash command with the branch menu.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	body, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		s.respondText(w, http.StatusBadRequest, MsgBadRequest)
		return
	}
	if !s.authorize(w, r, form.Get("channel_id")) {
		return
	}

	s.respondReply(w, s.dispatcher.ListBranches(r.Context()))
}

// handleDeploy answers a branch selection by starting the build.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	body, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	cmd, conversationID, err := parseDeployPayload(body)
	if err != nil {
		s.logger.Warn("malformed deploy payload",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		s.respondText(w, http.StatusBadRequest, MsgBadRequest)
		return
	}
	if !s.authorize(w, r, conversationID) {
		return
	}

	s.respondReply(w, s.dispatcher.Deploy(cmd))
}

// parseDeployPayload extracts the deploy command and the conversation id
// from an interactive message callback body.
func parseDeployPayload(body []byte) (dispatch.DeployCommand, string, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return dispatch.DeployCommand{}, "", fmt.Errorf("parse form: %w", err)
	}
	raw := form.Get("payload")
	if raw == "" {
		return dispatch.DeployCommand{}, "", errors.New("payload field missing")
	}

	var payload slack.InteractionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return dispatch.DeployCommand{}, "", fmt.Errorf("decode payload: %w", err)
	}
	if payload.CallbackID != "" && payload.CallbackID != dispatch.BranchSelectionCallback {
		return dispatch.DeployCommand{}, "", fmt.Errorf("unexpected callback_id %q", payload.CallbackID)
	}

	branch, ok := payload.SelectedValue()
	if !ok || branch == "" {
		return dispatch.DeployCommand{}, "", errors.New("no branch selected")
	}
	if payload.User.ID == "" {
		return dispatch.DeployCommand{}, "", errors.New("user missing")
	}

	return dispatch.DeployCommand{
		Branch:   branch,
		UserID:   payload.User.ID,
		UserName: payload.User.Name,
	}, payload.Channel.ID, nil
}

// respondReply writes a dispatcher reply: JSON for messages, text otherwise.
func (s *Server) respondReply(w http.ResponseWriter, reply dispatch.Reply) {
	if reply.Message != nil {
		s.respondJSON(w, http.StatusOK, reply.Message)
		return
	}
	s.respondText(w, http.StatusOK, reply.Text)
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// respondText sends a plain-text response.
func (s *Server) respondText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}
