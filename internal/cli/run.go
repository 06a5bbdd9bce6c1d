package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	runArgs   []string
	runOutput string
)

var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Run one workflow and print its output",
	Long: `Run one registered workflow with the given arguments and print its
output. Use "agentweave workflows" to list the workflows and their arguments.`,
	Example: `  agentweave run recipe --arg cuisine=Thai --arg dietary=vegan --arg mealType=dinner
  agentweave run expert-router --arg request="How do I start investing?" --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVar(&runArgs, "arg", nil, "workflow argument as key=value (repeatable)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "text", "output format (text, json)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runOutput != "text" && runOutput != "json" {
		return fmt.Errorf("unknown output format %q", runOutput)
	}

	wfArgs, err := parseArgs(runArgs)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = a.Close(ctx)
	}()

	res, err := a.engine.Invoke(cmd.Context(), args[0], wfArgs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if runOutput == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(res)
	}

	_, err = fmt.Fprintln(out, res.Output)

	return err
}

// parseArgs turns key=value pairs into workflow arguments.
func parseArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q, expected key=value", pair)
		}

		args[key] = value
	}

	return args, nil
}
