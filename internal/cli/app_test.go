package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_DebugTrace(t *testing.T) {
	tests := []struct {
		level string
		trace bool
	}{
		{"debug", true},
		{"info", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Setenv("AGENTWEAVE_MODEL_PROVIDER", "mock")
			t.Setenv("AGENTWEAVE_HUMAN_MODE", "static")

			cfgFile, logLevel = "", tt.level
			t.Cleanup(func() { logLevel = "" })

			var logs bytes.Buffer

			a, err := newApp(t.Context(), &logs)
			require.NoError(t, err)

			defer func() { _ = a.Close(t.Context()) }()

			_, err = a.engine.Invoke(t.Context(), "expert-router", map[string]any{"request": "Paint a sunset"})
			require.NoError(t, err)

			if tt.trace {
				assert.Contains(t, logs.String(), "workflow.trace")
				assert.Contains(t, logs.String(), "Processing with Agent: ")
				assert.Contains(t, logs.String(), "[after_workflow] Workflow: expert-router")
			} else {
				assert.NotContains(t, logs.String(), "workflow.trace")
			}
		})
	}
}
