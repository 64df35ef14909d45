package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	corelog "instrumentor/internal/core/log"
	"instrumentor/internal/httpservice"
	"instrumentor/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the namespace's metrics for scraping",
	Long: `Serve the configured namespace's aggregated metrics on /metrics.

Example:
  instrumentord serve --config config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, st, err := setup(ctx)
	if err != nil {
		return err
	}

	reader := metrics.NewReader(st, cfg.Namespace, corelog.Default())
	server := httpservice.New(&cfg.HTTP, reader, st, corelog.Default())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
