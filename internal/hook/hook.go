// Package hook dispatches hook steps over their three transports: in-process
// functions, local executables, and HTTP endpoints. All three share one
// return contract: an optionally updated state plus a result, where the
// result is a status string or a typed question/exit object.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"time"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/question"
	"github.com/parley-stack/parley/internal/state"
	"github.com/parley-stack/parley/internal/step"
)

// InlineFunc is an in-process hook, registered under a name referenced by
// inline hook configs.
type InlineFunc func(ctx context.Context, st *state.State) (*state.State, step.Result, error)

// Dispatcher implements step.HookDispatcher. It owns no concurrency and
// never retries; a hook failure fails the step.
type Dispatcher struct {
	inline  map[string]InlineFunc
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClient replaces the HTTP client used for http hooks.
func WithClient(client *http.Client) Option {
	return func(d *Dispatcher) { d.client = client }
}

// WithTimeout bounds each hook invocation. Zero means the request deadline
// alone applies.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithLogger replaces the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		inline: map[string]InlineFunc{},
		client: http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds an in-process hook under name. Registration happens at
// startup, before any dispatching.
func (d *Dispatcher) Register(name string, fn InlineFunc) {
	d.inline[name] = fn
}

// Dispatch invokes the configured hook with the current state. The context
// deadline cancels in-flight hooks; a cancelled hook leaves the state
// unadvanced.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg *step.HookConfig, st *state.State) (*state.State, step.Result, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	switch cfg.Kind() {
	case "inline":
		return d.dispatchInline(ctx, cfg, st)
	case "executable":
		return d.dispatchExecutable(ctx, cfg, st)
	case "http":
		return d.dispatchHTTP(ctx, cfg, st)
	}
	return nil, nil, errors.HookFailed("", fmt.Errorf("unconfigured hook"))
}

func (d *Dispatcher) dispatchInline(ctx context.Context, cfg *step.HookConfig, st *state.State) (*state.State, step.Result, error) {
	fn, ok := d.inline[cfg.Inline]
	if !ok {
		return nil, nil, errors.HookFailed("inline", fmt.Errorf("no hook registered as %q", cfg.Inline))
	}
	next, result, err := fn(ctx, st)
	if err != nil {
		return nil, nil, errors.HookFailed("inline", err)
	}
	if next == nil {
		next = st
	}
	if result == nil {
		result = step.StatusSkipped
	}
	return next, result, nil
}

func (d *Dispatcher) dispatchExecutable(ctx context.Context, cfg *step.HookConfig, st *state.State) (*state.State, step.Result, error) {
	input, err := json.Marshal(st)
	if err != nil {
		return nil, nil, errors.HookFailed("executable", err)
	}

	cmd := exec.CommandContext(ctx, cfg.Executable, cfg.Args...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	d.logger.Debug("running executable hook", "path", cfg.Executable)
	if err := cmd.Run(); err != nil {
		return nil, nil, errors.HookFailed("executable", err)
	}
	if stdout.Len() == 0 {
		return st, step.StatusSkipped, nil
	}
	return d.decodeResponse("executable", stdout.Bytes(), st)
}

func (d *Dispatcher) dispatchHTTP(ctx context.Context, cfg *step.HookConfig, st *state.State) (*state.State, step.Result, error) {
	body, err := json.Marshal(st)
	if err != nil {
		return nil, nil, errors.HookFailed("http", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, errors.HookFailed("http", err)
	}
	req.Header.Set("Content-Type", "application/json")

	d.logger.Debug("calling http hook", "url", cfg.URL)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, nil, errors.HookFailed("http", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return st, step.StatusSkipped, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, errors.HookFailed("http", fmt.Errorf("status %d", resp.StatusCode)).
			WithDetail("url", cfg.URL)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.HookFailed("http", err)
	}
	if len(payload) == 0 {
		return st, step.StatusSkipped, nil
	}
	return d.decodeResponse("http", payload, st)
}

// response is the hook return envelope. Both members are optional; an absent
// state keeps the caller's state, an absent result counts as skipped.
type response struct {
	State  *state.State    `json:"state"`
	Result json.RawMessage `json:"result"`
}

func (d *Dispatcher) decodeResponse(kind string, payload []byte, st *state.State) (*state.State, step.Result, error) {
	var resp response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, nil, errors.HookFailed(kind, err)
	}

	next := st
	if resp.State != nil {
		next = resp.State
	}
	result, err := decodeResult(resp.Result)
	if err != nil {
		return nil, nil, errors.HookFailed(kind, err)
	}
	return next, result, nil
}

// decodeResult parses a hook result: a status string, or an object tagged by
// its type member as a question or an exit.
func decodeResult(raw json.RawMessage) (step.Result, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return step.StatusSkipped, nil
	}

	var status string
	if err := json.Unmarshal(raw, &status); err == nil {
		switch step.Status(status) {
		case step.StatusSkipped, step.StatusChanged, step.StatusCompleted:
			return step.Status(status), nil
		}
		return nil, fmt.Errorf("unknown result status %q", status)
	}

	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("invalid result: %w", err)
	}
	switch tag.Type {
	case "question":
		var result question.AskResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, err
		}
		return &result, nil
	case "exit":
		var result step.ExitResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, err
		}
		return &result, nil
	}
	return nil, fmt.Errorf("unknown result type %q", tag.Type)
}
