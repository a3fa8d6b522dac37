// Package server hosts the interview engine over HTTP. One endpoint does
// the work: POST {root}/update exchanges a state token plus responses for
// the next state token plus content.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/parley-stack/parley/internal/config"
	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/interview"
	"github.com/parley-stack/parley/internal/state"
	"github.com/parley-stack/parley/internal/step"
	"github.com/parley-stack/parley/internal/stepper"
)

// Server is the HTTP host. Immutable after construction; safe for
// concurrent requests.
type Server struct {
	cfg      *config.Config
	registry *interview.Registry
	key      *state.Key
	hooks    step.HookDispatcher
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a server.
func New(cfg *config.Config, registry *interview.Registry, key *state.Key, hooks step.HookDispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		registry: registry,
		key:      key,
		hooks:    hooks,
		logger:   logger,
		now:      time.Now,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+s.path("/update"), s.handleUpdate)
	return cors(mux)
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: s.Handler(),
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", s.cfg.Server.ListenAddr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// path joins the configured root path with a route suffix.
func (s *Server) path(suffix string) string {
	root := strings.TrimSuffix(s.cfg.Server.RootPath, "/")
	return root + suffix
}

// updateRequest is the POST /update body.
type updateRequest struct {
	State     string         `json:"state"`
	Responses map[string]any `json:"responses"`
	Button    *int           `json:"button"`
}

// updateResponse is the 200 body: either the next content plus the URL to
// continue at, or the completion form with the target URL.
type updateResponse struct {
	State     string      `json:"state"`
	UpdateURL string      `json:"update_url,omitempty"`
	Content   step.Result `json:"content,omitempty"`
	TargetURL string      `json:"target_url,omitempty"`
	Complete  bool        `json:"complete,omitempty"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ValidationShape("invalid request body"))
		return
	}
	if req.State == "" {
		s.writeError(w, errors.ValidationShape("state is required"))
		return
	}

	st, err := state.Decrypt(req.State, s.key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	iv := s.registry.Get(st.InterviewID)
	if iv == nil {
		s.writeError(w, errors.InvalidState(errors.Newf(errors.CodeStateInvalid,
			"unknown interview %q", st.InterviewID)))
		return
	}
	if err := st.Validate(iv.Version, s.now()); err != nil {
		s.writeError(w, err)
		return
	}

	env := &step.Env{Bank: iv.Bank, Hooks: s.hooks, Logger: s.logger}
	next, result, err := stepper.Advance(r.Context(), iv.Flattened, env, st, req.Responses, req.Button)
	if err != nil {
		s.writeError(w, err)
		return
	}

	token, err := state.Encrypt(next, s.key)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := updateResponse{State: token}
	if next.Complete {
		resp.TargetURL = next.TargetURL
		resp.Complete = true
	} else {
		resp.UpdateURL = s.updateURL(r)
		resp.Content = result
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// updateURL builds the absolute URL of this endpoint from the inbound
// request, honoring forwarded headers set by a proxy.
func (s *Server) updateURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return scheme + "://" + host + s.path("/update")
}

// writeError maps the error taxonomy to status codes: invalid state 409,
// validation 422, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.HasCode(err, errors.CodeStateInvalid):
		status = http.StatusConflict
	case errors.IsValidation(err):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("update failed", "error", err)
	}

	var body any
	var coded *errors.Error
	if stderrors.As(err, &coded) {
		body = coded
	} else {
		body = map[string]any{"message": err.Error()}
	}
	s.writeJSON(w, status, map[string]any{"error": body})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}

// cors applies permissive CORS to the update endpoint; interviews are
// typically embedded in pages served elsewhere.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
