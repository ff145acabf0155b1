package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rshade/descartecerto/internal/api"
	"github.com/rshade/descartecerto/internal/logging"
	"github.com/rshade/descartecerto/internal/observability"
)

// NewServeCmd creates the serve command, which runs the HTTP API until
// interrupted.
func NewServeCmd(ver string) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Runs the impact HTTP API.

On start the schema is applied and the global aggregate is created if it is
missing. With impact.recompute_on_start the aggregate is rebuilt from the
disposal log instead. SIGINT and SIGTERM trigger a graceful shutdown.`,
		Example: `  descarte serve
  descarte serve --address 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, ver, address)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address (overrides server.address)")
	return cmd
}

func runServe(cmd *cobra.Command, ver, address string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logging.FromContext(ctx)

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	shutdownTracing, err := observability.InitTracing(ctx, a.cfg.Tracing, ver)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		if shutdownErr := shutdownTracing(context.WithoutCancel(ctx)); shutdownErr != nil {
			log.Warn().Ctx(ctx).Err(shutdownErr).Msg("flushing traces failed")
		}
	}()

	if err = bootstrapAggregate(ctx, a); err != nil {
		return err
	}

	serverCfg := a.cfg.Server
	if address != "" {
		serverCfg.Address = address
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Deps{
		Impact:  a.agg,
		DB:      a.store,
		Metrics: a.metrics,
		Logger:  logging.ComponentLogger(logging.Default(), "api"),
		Version: ver,
	})

	return api.ListenAndServe(ctx, serverCfg, router)
}

// bootstrapAggregate makes sure the global row exists before traffic arrives.
func bootstrapAggregate(ctx context.Context, a *app) error {
	log := logging.FromContext(ctx)

	if a.cfg.Impact.RecomputeOnStart {
		agg, err := a.agg.CalculateTotalImpact(ctx)
		if err != nil {
			return fmt.Errorf("recomputing aggregate: %w", err)
		}
		log.Info().
			Ctx(ctx).
			Str("component", "cli").
			Float64("co2_reduction", agg.CO2Reduction).
			Msg("aggregate recomputed on start")
		return nil
	}

	agg, created, err := a.agg.EnsureAggregate(ctx)
	if err != nil {
		return fmt.Errorf("initializing aggregate: %w", err)
	}
	a.metrics.ObserveAggregate(agg)
	log.Info().
		Ctx(ctx).
		Str("component", "cli").
		Bool("created", created).
		Int64("active_users", agg.ActiveUsers).
		Msg("aggregate ready")
	return nil
}
