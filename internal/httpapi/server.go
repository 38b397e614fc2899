// Package httpapi exposes dependency status and the install and update
// operations over HTTP for `vdlaunch serve`.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/deps"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/logging"
)

// Service is the part of deps.Manager the HTTP layer drives.
type Service interface {
	Dependencies() []deps.Dependency
	CheckExisting() map[deps.Name]bool
	Versions() (map[deps.Name]string, error)
	Busy(name deps.Name) (string, bool)
	Install(name deps.Name) string
	CheckForUpdate(name deps.Name) string
}

// DependencyStatus is the JSON view of one dependency.
type DependencyStatus struct {
	Name      deps.Name `json:"name"`
	Project   string    `json:"project"`
	Installed bool      `json:"installed"`
	Version   string    `json:"version,omitempty"`
	Progress
}

// OperationResponse is returned when an operation was accepted.
type OperationResponse struct {
	OperationID string    `json:"operation_id"`
	Dependency  deps.Name `json:"dependency"`
	Mode        string    `json:"mode"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error       string `json:"error"`
	Code        int    `json:"code"`
	OperationID string `json:"operation_id,omitempty"`
}

// Options configures the router.
type Options struct {
	Logger   logging.Logger
	Metrics  *Metrics
	Gatherer prometheus.Gatherer // served on /metrics; nil means the default registry
}

type handler struct {
	svc    Service
	board  *StatusBoard
	logger logging.Logger
}

// NewRouter builds the chi router.
func NewRouter(svc Service, board *StatusBoard, opts Options) http.Handler {
	h := &handler{svc: svc, board: board, logger: logging.OrNoop(opts.Logger)}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(h.logRequests)

	r.Group(func(r chi.Router) {
		r.Use(metrics.track)
		r.Get("/api/dependencies", h.list)
		r.Get("/api/dependencies/{name}", h.get)
		r.Post("/api/dependencies/{name}/install", h.operate(deps.ModeForceInstall))
		r.Post("/api/dependencies/{name}/update", h.operate(deps.ModeCompareThenInstall))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	return r
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"dependencies": h.statuses()})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	name := deps.Name(chi.URLParam(r, "name"))

	for _, s := range h.statuses() {
		if s.Name == name {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown dependency %q", name), "")
}

func (h *handler) operate(mode deps.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := deps.Name(chi.URLParam(r, "name"))
		if !h.known(name) {
			writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown dependency %q", name), "")
			return
		}
		if running, busy := h.svc.Busy(name); busy {
			writeJSONError(w, http.StatusConflict, fmt.Sprintf("%s already has an operation running", name), running)
			return
		}

		var id string
		if mode == deps.ModeCompareThenInstall {
			id = h.svc.CheckForUpdate(name)
		} else {
			id = h.svc.Install(name)
		}
		if id == "" {
			writeJSONError(w, http.StatusServiceUnavailable, "shutting down", "")
			return
		}

		h.logger.Info("operation accepted", "dependency", name, "mode", mode, "operation", id,
			"request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusAccepted, OperationResponse{OperationID: id, Dependency: name, Mode: mode.String()})
	}
}

func (h *handler) known(name deps.Name) bool {
	for _, d := range h.svc.Dependencies() {
		if d.Name == name {
			return true
		}
	}
	return false
}

// statuses joins declarations, the filesystem check, the ledger and the board.
// An unreadable ledger only hides versions.
func (h *handler) statuses() []DependencyStatus {
	existing := h.svc.CheckExisting()
	versions, err := h.svc.Versions()
	if err != nil {
		h.logger.Warn("read installed versions", "error", err)
	}

	declared := h.svc.Dependencies()
	out := make([]DependencyStatus, 0, len(declared))
	for _, d := range declared {
		out = append(out, DependencyStatus{
			Name:      d.Name,
			Project:   d.Project,
			Installed: existing[d.Name],
			Version:   versions[d.Name],
			Progress:  h.board.Get(d.Name),
		})
	}
	return out
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg, operationID string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: status, OperationID: operationID})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger logging.Logger) error {
	logger = logging.OrNoop(logger)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
