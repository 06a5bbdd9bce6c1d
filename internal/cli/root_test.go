package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args against the mock provider and
// returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Setenv("AGENTWEAVE_MODEL_PROVIDER", "mock")
	t.Setenv("AGENTWEAVE_HUMAN_MODE", "static")

	cfgFile, logLevel, serveAddr = "", "", ""
	runArgs, runOutput = nil, "text"

	output := &bytes.Buffer{}

	cmd := GetRootCmd()
	for _, c := range append([]*cobra.Command{cmd}, cmd.Commands()...) {
		for _, name := range []string{"help", "version"} {
			if f := c.Flags().Lookup(name); f != nil {
				_ = f.Value.Set("false")
			}
		}
	}

	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(t.Context())

	return output.String(), err
}

func TestRootCommand(t *testing.T) {
	t.Run("subcommands", func(t *testing.T) {
		var names []string
		for _, c := range GetRootCmd().Commands() {
			names = append(names, c.Name())
		}

		assert.Subset(t, names, []string{"serve", "run", "workflows", "config"})
	})

	t.Run("version", func(t *testing.T) {
		out, err := execute(t, "--version")
		require.NoError(t, err)
		assert.Equal(t, "agentweave version "+GetVersion()+"\n", out)
	})

	t.Run("help", func(t *testing.T) {
		out, err := execute(t, "serve", "--help")
		require.NoError(t, err)
		assert.Contains(t, out, "--addr")
		assert.Contains(t, out, "--config")
	})
}
