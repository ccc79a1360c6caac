package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/api"
	"github.com/JakeFAU/activity-heatmap/internal/id/uuid"
)

// newServeCmd creates the 'serve' subcommand: a preview server for the docs
// directory that can also trigger rebuilds.
func newServeCmd() *cobra.Command {
	var port int
	var runTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the generated report with health and metrics endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if port == 0 {
				port = a.Config.Server.Port
			}
			logger := a.Logger
			server := api.NewServer(a.Pipeline, uuid.New(), a.Clock, api.Config{
				DocsDir:    a.Config.Output.DocsDir,
				RunTimeout: runTimeout,
			}, logger)

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server started", zap.Int("port", port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-cmd.Context().Done():
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown", zap.Error(err))
			}
			server.Wait()
			logger.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default server.port)")
	cmd.Flags().DurationVar(&runTimeout, "run-timeout", 30*time.Minute, "limit for one background rebuild")
	return cmd
}
