package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentweave/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflows over HTTP",
	Long: `Serve the prebuilt workflows over HTTP until interrupted.
The pattern routes live under /api/v1/patterns, the generic workflow
routes under /api/v1/workflows.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.Close(shutdownCtx); err != nil {
			a.logger.Warn("telemetry.shutdown_failed", "error", err)
		}
	}()

	addr := a.cfg.Server.Address
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(a.engine, func(o *server.Options) {
		o.Logger = a.logger
		o.Address = addr
		o.ReadTimeout = a.cfg.Server.ReadTimeout
		o.WriteTimeout = a.cfg.Server.WriteTimeout
		o.Metrics = a.recorder.Handler()
		o.MetricsPath = a.cfg.Telemetry.MetricsPath
	})

	return srv.ListenAndServe(ctx)
}
