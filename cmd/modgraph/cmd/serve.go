package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/debughttp"
	"github.com/GoCodeAlone/modgraph/metrics"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *globalOptions) *cobra.Command {
	var (
		m    manifestOptions
		addr string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a manifest's lifecycle and serve its state over HTTP",
		Long: `Run the full lifecycle of a manifest's modules, then serve the module
graph, the phase history and Prometheus metrics until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, m, addr, opts.Logger())
		},
	}
	m.addFlags(cmd)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

// newServeHandler mounts the introspection router and the metrics endpoint.
func newServeHandler(app debughttp.Introspector, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Mount("/", debughttp.NewRouter(app))
	return r
}

func serve(ctx context.Context, m manifestOptions, addr string, logger modgraph.Logger) error {
	reg := prometheus.NewRegistry()
	app, err := newManifestApplication(m, logger, modgraph.WithObserver(metrics.NewObserver(reg)))
	if err != nil {
		return err
	}
	if err := app.RunLifecycle(ctx); err != nil {
		return errors.Join(err, app.Shutdown(context.WithoutCancel(ctx)))
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newServeHandler(app, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving module graph", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("failed to stop HTTP server: %w", err))
	}
	return errors.Join(serveErr, app.Shutdown(shutdownCtx))
}
