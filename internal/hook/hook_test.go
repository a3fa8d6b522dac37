package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/logging"
	"github.com/parley-stack/parley/internal/state"
	"github.com/parley-stack/parley/internal/step"
)

func testState() *state.State {
	return state.New(state.Options{
		InterviewID: "t",
		Data:        map[string]any{"a": 1.0},
	})
}

func TestInlineHook(t *testing.T) {
	d := NewDispatcher(WithLogger(logging.NewForTest()))
	d.Register("mark", func(ctx context.Context, st *state.State) (*state.State, step.Result, error) {
		data := st.CloneData()
		data["marked"] = true
		return st.WithData(data), step.StatusChanged, nil
	})

	t.Run("registered", func(t *testing.T) {
		st := testState()
		next, result, err := d.Dispatch(context.Background(), &step.HookConfig{Inline: "mark"}, st)
		require.NoError(t, err)
		assert.Equal(t, step.StatusChanged, result)
		assert.Equal(t, true, next.Data["marked"])
		assert.NotContains(t, st.Data, "marked")
	})

	t.Run("unregistered", func(t *testing.T) {
		_, _, err := d.Dispatch(context.Background(), &step.HookConfig{Inline: "nope"}, testState())
		assert.True(t, errors.HasCode(err, errors.CodeHookFailed))
	})

	t.Run("nil returns keep state and skip", func(t *testing.T) {
		d.Register("noop", func(ctx context.Context, st *state.State) (*state.State, step.Result, error) {
			return nil, nil, nil
		})
		st := testState()
		next, result, err := d.Dispatch(context.Background(), &step.HookConfig{Inline: "noop"}, st)
		require.NoError(t, err)
		assert.Same(t, st, next)
		assert.Equal(t, step.StatusSkipped, result)
	})

	t.Run("error wrapped", func(t *testing.T) {
		d.Register("boom", func(ctx context.Context, st *state.State) (*state.State, step.Result, error) {
			return nil, nil, fmt.Errorf("boom")
		})
		_, _, err := d.Dispatch(context.Background(), &step.HookConfig{Inline: "boom"}, testState())
		assert.True(t, errors.HasCode(err, errors.CodeHookFailed))
	})
}

func TestHTTPHook(t *testing.T) {
	d := NewDispatcher(WithLogger(logging.NewForTest()))

	t.Run("204 keeps state", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var posted state.State
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			assert.Equal(t, "t", posted.InterviewID)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		st := testState()
		next, result, err := d.Dispatch(context.Background(), &step.HookConfig{URL: srv.URL}, st)
		require.NoError(t, err)
		assert.Same(t, st, next)
		assert.Equal(t, step.StatusSkipped, result)
	})

	t.Run("2xx with updated state", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var posted state.State
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			posted.Data["hooked"] = true
			json.NewEncoder(w).Encode(map[string]any{
				"state":  &posted,
				"result": "changed",
			})
		}))
		defer srv.Close()

		next, result, err := d.Dispatch(context.Background(), &step.HookConfig{URL: srv.URL}, testState())
		require.NoError(t, err)
		assert.Equal(t, step.StatusChanged, result)
		assert.Equal(t, true, next.Data["hooked"])
	})

	t.Run("typed exit result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"type": "exit", "title": "Stop"},
			})
		}))
		defer srv.Close()

		st := testState()
		next, result, err := d.Dispatch(context.Background(), &step.HookConfig{URL: srv.URL}, st)
		require.NoError(t, err)
		assert.Same(t, st, next)
		exit, ok := result.(*step.ExitResult)
		require.True(t, ok)
		assert.Equal(t, "Stop", exit.Title)
	})

	t.Run("non-2xx fails the step", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, _, err := d.Dispatch(context.Background(), &step.HookConfig{URL: srv.URL}, testState())
		assert.True(t, errors.HasCode(err, errors.CodeHookFailed))
	})

	t.Run("unknown status string", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"result": "exploded"})
		}))
		defer srv.Close()

		_, _, err := d.Dispatch(context.Background(), &step.HookConfig{URL: srv.URL}, testState())
		assert.True(t, errors.HasCode(err, errors.CodeHookFailed))
	})
}

func TestExecutableHook(t *testing.T) {
	d := NewDispatcher(WithLogger(logging.NewForTest()))

	t.Run("silent hook skips", func(t *testing.T) {
		st := testState()
		cfg := &step.HookConfig{Executable: "/bin/sh", Args: []string{"-c", "cat > /dev/null"}}
		next, result, err := d.Dispatch(context.Background(), cfg, st)
		require.NoError(t, err)
		assert.Same(t, st, next)
		assert.Equal(t, step.StatusSkipped, result)
	})

	t.Run("stdout parsed", func(t *testing.T) {
		cfg := &step.HookConfig{
			Executable: "/bin/sh",
			Args:       []string{"-c", `cat > /dev/null; echo '{"result":"changed"}'`},
		}
		st := testState()
		next, result, err := d.Dispatch(context.Background(), cfg, st)
		require.NoError(t, err)
		assert.Equal(t, step.StatusChanged, result)
		assert.Same(t, st, next)
	})

	t.Run("non-zero exit fails", func(t *testing.T) {
		cfg := &step.HookConfig{Executable: "/bin/sh", Args: []string{"-c", "exit 3"}}
		_, _, err := d.Dispatch(context.Background(), cfg, testState())
		assert.True(t, errors.HasCode(err, errors.CodeHookFailed))
	})
}
