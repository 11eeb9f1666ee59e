package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/dshills/codemate/internal/providers"
	"github.com/dshills/codemate/internal/telemetry"
	"github.com/dshills/codemate/internal/webhook"
)

const shutdownTimeout = 10 * time.Second

var (
	flagAddr        string
	flagTraceStdout bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Long:  "Serve POST /webhook for GitHub, GitLab and Bitbucket events, plus /healthz and /metrics.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := map[string]string{}
		if flagAddr != "" {
			overrides["addr"] = flagAddr
		}
		cfg, logger, err := loadConfig(cmd, overrides)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}

		if flagTraceStdout {
			shutdown, err := telemetry.InstallStdoutTracer(cmd.ErrOrStderr())
			if err != nil {
				return fail(cmd, ExitRuntimeError, err)
			}
			defer func() { _ = shutdown(context.Background()) }()
		}

		comps, err := buildComponents(cfg, logger)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}
		gw, err := comps.githubGateway()
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}

		dispatcher := webhook.NewDispatcher(webhook.Config{
			Secrets: map[string]string{
				providers.GitHub:    cfg.GitHub.WebhookSecret,
				providers.GitLab:    cfg.GitLab.WebhookSecret,
				providers.Bitbucket: cfg.Bitbucket.WebhookSecret,
			},
			RequireSecrets: cfg.RequireSecrets,
			RunTimeout:     cfg.RunTimeout,
		}, providers.NewRegistry(gw), comps.service,
			webhook.WithLogger(logger),
			webhook.WithObserver(comps.metrics),
		)

		if !cfg.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
		router := webhook.NewRouter(dispatcher, webhook.ServerOptions{
			MetricsHandler: telemetry.Handler(comps.registry),
			MaxBodyBytes:   cfg.MaxBodyBytes,
		})

		server := &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() { serveErr <- server.ListenAndServe() }()
		logger.Info("server listening", "addr", cfg.Addr, "analyzers", cfg.Analyzers)

		select {
		case err := <-serveErr:
			if !errors.Is(err, http.ErrServerClosed) {
				return fail(cmd, ExitRuntimeError, fmt.Errorf("server error: %w", err))
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fail(cmd, ExitRuntimeError, fmt.Errorf("shutdown error: %w", err))
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default :8000, or :$PORT)")
	serveCmd.Flags().BoolVar(&flagTraceStdout, "trace-stdout", false, "Export trace spans to stderr")
}
