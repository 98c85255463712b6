// Package http exposes shared workspaces over a small JSON API.
//
// Routes:
//
//	GET    /health
//	GET    /info
//	GET    /metrics
//	GET    /workspaces
//	PUT    /workspaces/{id}
//	GET    /workspaces/{id}            snapshot
//	DELETE /workspaces/{id}
//	POST   /workspaces/{id}/steps      YAML or JSON script, without geometry
//	POST   /workspaces/{id}/undo
//	POST   /workspaces/{id}/redo
//	GET    /workspaces/{id}/history
//	GET    /workspaces/{id}/graph      Mermaid, ?depth=1..5
//	GET    /workspaces/{id}/report     markdown
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/internal/logging"
	"github.com/aretw0/topoedit/internal/presentation/graph"
	"github.com/aretw0/topoedit/internal/presentation/tui"
	"github.com/aretw0/topoedit/internal/script"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/session"
	"github.com/aretw0/topoedit/pkg/topo"
)

// APIVersion is the version of the route set.
const APIVersion = "0.1.0"

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// Server serves the workspaces of a session Manager.
type Server struct {
	sessions *session.Manager
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		sessions: sessions,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/info", s.info)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/workspaces", func(r chi.Router) {
		r.Get("/", s.list)
		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", s.create)
			r.Get("/", s.snapshot)
			r.Delete("/", s.delete)
			r.Post("/steps", s.steps)
			r.Post("/undo", s.undo)
			r.Post("/redo", s.redo)
			r.Get("/history", s.history)
			r.Get("/graph", s.graph)
			r.Get("/report", s.report)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "topoedit-http",
		"version":     strings.TrimSpace(topoedit.Version),
		"api_version": APIVersion,
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	keys, err := s.sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Create(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// view runs fn on the workspace named in the URL.
func (s *Server) view(w http.ResponseWriter, r *http.Request, fn func(ws *topoedit.Workspace) error) {
	err := s.sessions.View(r.Context(), chi.URLParam(r, "id"), func(_ context.Context, ws *topoedit.Workspace) error {
		return fn(ws)
	})
	if err != nil {
		s.fail(w, r, err)
	}
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(ws *topoedit.Workspace) error {
		writeJSON(w, http.StatusOK, ws.Snapshot())
		return nil
	})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(ws *topoedit.Workspace) error {
		writeJSON(w, http.StatusOK, ws.History())
		return nil
	})
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	var opts graph.Options
	if d := r.URL.Query().Get("depth"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			s.fail(w, r, domain.Newf(domain.CodeInvalidArgument, "depth %q is not a number", d))
			return
		}
		opts.Depth = n
	}
	s.view(w, r, func(ws *topoedit.Workspace) error {
		var out string
		_ = ws.View(func(g *topo.Graph) error {
			out = graph.GenerateMermaid(g, opts)
			return nil
		})
		writeText(w, "text/plain; charset=utf-8", out)
		return nil
	})
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.view(w, r, func(ws *topoedit.Workspace) error {
		writeText(w, "text/markdown; charset=utf-8", tui.Report(ws, id))
		return nil
	})
}

// stepResult is the outcome of one posted step.
type stepResult struct {
	Op     string           `json:"op"`
	Result *topoedit.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (s *Server) steps(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.fail(w, r, domain.Wrap(domain.CodeInvalidArgument, "failed to read body", err))
		return
	}
	sc, err := script.Parse(body)
	if err != nil {
		s.fail(w, r, domain.Wrap(domain.CodeInvalidArgument, "invalid script", err))
		return
	}
	if len(sc.Geometry) > 0 {
		s.fail(w, r, domain.New(domain.CodeInvalidArgument, "geometry is configured on the server, not per request"))
		return
	}

	var results []stepResult
	err = s.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, ws *topoedit.Workspace) error {
		return sc.Run(ctx, ws, func(e script.Event) {
			res := stepResult{Op: e.Step.Op, Result: e.Result}
			if e.Err != nil {
				res.Error = e.Err.Error()
			}
			results = append(results, res)
		})
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) move(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, ws *topoedit.Workspace) (*topoedit.Result, error)) {
	var res *topoedit.Result
	err := s.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, ws *topoedit.Workspace) (err error) {
		res, err = fn(ctx, ws)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, func(ctx context.Context, ws *topoedit.Workspace) (*topoedit.Result, error) {
		return ws.Undo(ctx)
	})
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, func(ctx context.Context, ws *topoedit.Workspace) (*topoedit.Result, error) {
		return ws.Redo(ctx)
	})
}

// Status maps an error to its HTTP status.
func Status(err error) int {
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return http.StatusNotFound
	}
	code, ok := domain.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidArgument:
		return http.StatusBadRequest
	case domain.CodePrecondition, domain.CodeMismatch:
		return http.StatusUnprocessableEntity
	case domain.CodeState:
		return http.StatusConflict
	case domain.CodeExternal:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	body := map[string]string{"error": err.Error()}
	if code, ok := domain.CodeOf(err); ok {
		body["code"] = string(code)
	}
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	_, _ = io.WriteString(w, body)
}
