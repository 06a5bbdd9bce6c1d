package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/engine"
)

func TestRunCommand(t *testing.T) {
	t.Run("text output", func(t *testing.T) {
		out, err := execute(t, "run", "expert-router", "--arg", "request=Paint a sunset")
		require.NoError(t, err)
		assert.Equal(t, "Mock response to: Paint a sunset\n", out)
	})

	t.Run("json output", func(t *testing.T) {
		out, err := execute(t, "run", "expert-router", "--arg", "request=Plan my week", "-o", "json")
		require.NoError(t, err)

		var res engine.Result
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, "expert-router", res.Workflow)
		assert.Equal(t, "Mock response to: Plan my week", res.Output)
		assert.Equal(t, "unknown", res.State["category"])
	})

	t.Run("missing argument", func(t *testing.T) {
		_, err := execute(t, "run", "recipe", "--arg", "cuisine=Thai")
		require.ErrorIs(t, err, core.ErrMissingInput)
	})

	t.Run("unknown workflow", func(t *testing.T) {
		_, err := execute(t, "run", "nope")
		require.ErrorIs(t, err, engine.ErrWorkflowNotFound)
	})

	t.Run("unknown output format", func(t *testing.T) {
		_, err := execute(t, "run", "recipe", "-o", "xml")
		require.ErrorContains(t, err, `unknown output format "xml"`)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agentweave.yaml")
		require.NoError(t, os.WriteFile(path, []byte("model:\n  max_calls_per_invocation: 1\n"), 0o600))

		_, err := execute(t, "--config", path, "run", "recipe",
			"--arg", "cuisine=Thai", "--arg", "dietary=none", "--arg", "mealType=lunch")
		require.ErrorIs(t, err, core.ErrModelCallLimit)
	})
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{"empty", nil, map[string]any{}, false},
		{"pairs", []string{"a=1", "b=x=y"}, map[string]any{"a": "1", "b": "x=y"}, false},
		{"empty value", []string{"a="}, map[string]any{"a": ""}, false},
		{"last wins", []string{"a=1", "a=2"}, map[string]any{"a": "2"}, false},
		{"no separator", []string{"a"}, nil, true},
		{"empty key", []string{" =1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.pairs)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
