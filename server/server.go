// Package server exposes the workflow engine over HTTP.
//
// The pattern routes under /api/v1/patterns accept typed requests for the
// prebuilt workflows; /api/v1/workflows lists and invokes any registered
// workflow by name.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/internal/util"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/patterns"
)

const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Logger       logging.Logger
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Metrics serves MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	// ShutdownTimeout bounds the wait for in-flight requests on shutdown.
	ShutdownTimeout time.Duration
}

// Server serves the HTTP API.
type Server struct {
	eng       *engine.Engine
	opts      Options
	logger    logging.Logger
	startTime time.Time
	handler   http.Handler
}

// New creates a server in front of eng.
func New(eng *engine.Engine, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		Address:         ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		MetricsPath:     "/metrics",
		ShutdownTimeout: 10 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{
		eng:       eng,
		opts:      opts,
		logger:    opts.Logger,
		startTime: time.Now(),
	}
	s.handler = s.routes()

	return s
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/patterns/conditional-routing/route", handlePattern(s, patterns.ExpertRouter,
		func(req ExpertQueryRequest, res engine.Result) any {
			return ExpertQueryResponse{Response: outputText(res), Timestamp: time.Now()}
		}))

	mux.HandleFunc("POST /api/v1/patterns/sequential-flow/develop-recipe", handlePattern(s, patterns.Recipe,
		func(req RecipeRequest, res engine.Result) any {
			return RecipeResponse{Recipe: outputText(res)}
		}))

	mux.HandleFunc("POST /api/v1/patterns/loop/refine-content", handlePattern(s, patterns.ContentRefiner,
		func(req ContentRefinementRequest, res engine.Result) any {
			return ContentRefinementResponse{Content: outputText(res)}
		}))

	mux.HandleFunc("POST /api/v1/patterns/parallel-flow/build-pitch", handlePattern(s, patterns.StartupPitch,
		func(req ParallelFlowRequest, res engine.Result) any {
			return ParallelFlowResponse{Pitch: outputText(res)}
		}))

	mux.HandleFunc("POST /api/v1/patterns/human-in-loop/submit-interview", handlePattern(s, patterns.Interview,
		func(req HumanInLoopRequest, res engine.Result) any {
			return HumanInLoopResponse{
				CandidateName:    req.CandidateName,
				Position:         req.Position,
				CoachingFeedback: textOf(res, "coachFeedback"),
				HumanFeedback:    textOf(res, "humanFeedback"),
				FinalAssessment:  outputText(res),
			}
		}))

	mux.HandleFunc("GET /api/v1/workflows", s.handleListWorkflows)
	mux.HandleFunc("POST /api/v1/workflows/{name}/invoke", s.handleInvoke)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.opts.Metrics != nil && s.opts.MetricsPath != "" {
		mux.Handle("GET "+s.opts.MetricsPath, s.opts.Metrics)
	}

	return mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Address,
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server.start", "address", s.opts.Address)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start server: %w", err)
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server.shutdown", "address", s.opts.Address)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

type patternRequest interface {
	arguments() map[string]any
}

// handlePattern decodes and validates a Req, invokes workflow with its
// arguments and writes the response built by respond.
func handlePattern[Req patternRequest](s *Server, workflow string, respond func(req Req, res engine.Result) any) http.HandlerFunc {
	var zero Req

	schema := util.MustSchemaFor(&zero)

	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Unable to read request body", err)
			return
		}

		if err := schema.Validate(body); err != nil {
			s.writeError(w, http.StatusBadRequest, "Validation failed", err)
			return
		}

		var req Req
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Malformed request body", err)
			return
		}

		s.logger.Info("server.pattern.request", "workflow", workflow, "path", r.URL.Path)

		res, err := s.eng.Invoke(r.Context(), workflow, req.arguments())
		if err != nil {
			s.writeInvokeError(w, workflow, res, err)
			return
		}

		s.writeJSON(w, http.StatusOK, respond(req, res))
	}
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.eng.Workflows())
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req InvokeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Malformed request body", err)
		return
	}

	res, err := s.eng.Invoke(r.Context(), name, req.Arguments)
	if err != nil {
		s.writeInvokeError(w, name, res, err)
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Seconds(),
		"workflows": len(s.eng.Workflows()),
		"timestamp": time.Now().UnixMilli(),
	})
}

func (s *Server) writeInvokeError(w http.ResponseWriter, workflow string, res engine.Result, err error) {
	switch {
	case errors.Is(err, engine.ErrWorkflowNotFound):
		s.writeError(w, http.StatusNotFound, "Workflow not found", err)
	case errors.Is(err, core.ErrMissingInput):
		s.writeError(w, http.StatusBadRequest, "Missing workflow argument", err)
	default:
		s.logger.Error("server.invoke.failed",
			"workflow", workflow,
			"invocation_id", res.InvocationID,
			"agent", core.FailingAgent(err),
			"error", err,
		)
		s.writeError(w, http.StatusInternalServerError, "An error occurred while processing your request", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{
		Message:   message,
		Status:    status,
		Timestamp: time.Now(),
		Errors:    []string{},
	}

	var verr *util.ValidationError

	switch {
	case errors.As(err, &verr):
		resp.Errors = verr.Errors
	case err != nil:
		resp.Errors = append(resp.Errors, err.Error())

		if kind := core.KindOf(err); kind != "internal" || status >= http.StatusInternalServerError {
			resp.Kind = kind
		}
	}

	if status < http.StatusInternalServerError {
		s.logger.Warn("server.request.rejected", "status", status, "errors", resp.Errors)
	}

	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("server.response.encode_failed", "error", err)
	}
}
