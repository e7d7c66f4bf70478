package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/wikisum/pkg/api"
	"github.com/Sternrassler/wikisum/pkg/logging"
	"github.com/Sternrassler/wikisum/pkg/warmup"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, map[string]string{"listen": "listen"})
			if err != nil {
				return err
			}

			logger, closer := setupLogging(cfg, nil)
			defer closer.Close()

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			go a.runJanitor(ctx, janitorInterval)

			if len(cfg.WarmTopics) > 0 {
				warmer := warmup.New(a.orch, warmup.Config{
					MaxConcurrency: cfg.WarmConcurrency,
				}, logging.NewLogger("warmup"))
				go func() {
					_, _ = warmer.Run(ctx, cfg.WarmTopics)
				}()
			}

			server := api.New(a.orch, api.Config{
				Listen:           cfg.Listen,
				CORSOrigins:      cfg.CORSOrigins,
				Version:          version,
				APIKeyConfigured: cfg.APIKeyConfigured(),
				TrustedProxies:   cfg.TrustedProxies,
			}, logging.NewLogger("api"))

			logger.Info().
				Str("version", version).
				Str("listen", cfg.Listen).
				Str("model", cfg.ModelName).
				Str("rate_limit_backend", cfg.RateLimitBackend).
				Bool("cache_enabled", cfg.CacheEnabled).
				Msg("Starting wikisum")

			return server.Start(ctx)
		},
	}

	cmd.Flags().String("listen", "", "listen address (default :8000)")
	return cmd
}

// commandContext returns cmd's context, or Background when it has none.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
