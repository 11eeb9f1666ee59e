package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dshills/codemate/internal/analyzers"
	"github.com/dshills/codemate/internal/config"
	"github.com/dshills/codemate/internal/github"
	"github.com/dshills/codemate/internal/orchestrator"
	"github.com/dshills/codemate/internal/redact"
	"github.com/dshills/codemate/internal/review"
	"github.com/dshills/codemate/internal/telemetry"
)

// components holds what the serve, pr and local commands share.
type components struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	redactor *redact.Redactor
	service  *orchestrator.Service
}

// commandRunner overrides the analyzers' subprocess runner in tests.
var commandRunner analyzers.CommandRunner

func buildComponents(cfg config.Config, logger *slog.Logger) (*components, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	list, err := analyzers.FromNames(cfg.Analyzers, analyzers.Options{
		Runner:          commandRunner,
		ToolTimeout:     cfg.ToolTimeout,
		LintErrorPrefix: cfg.LintErrorPrefix,
	})
	if err != nil {
		return nil, err
	}
	runner := review.NewRunner(list,
		review.WithConcurrency(cfg.Concurrency),
		review.WithLogger(logger),
		review.WithObserver(metrics),
	)

	var redactor *redact.Redactor
	if cfg.Redact {
		redactor = redact.New(cfg.Secrets()...)
	} else {
		logger.Warn("secret redaction is disabled")
	}

	service := orchestrator.NewService(runner, orchestrator.Options{
		RepoRoot: cfg.RepoRoot,
		Logger:   logger,
		Observer: metrics,
	})

	return &components{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  metrics,
		redactor: redactor,
		service:  service,
	}, nil
}

func (c *components) githubGateway() (*github.Gateway, error) {
	if c.cfg.GitHub.Token == "" {
		c.logger.Warn("GITHUB_TOKEN not set; GitHub calls are unauthenticated")
	}
	gw, err := github.New(github.Options{
		Token:             c.cfg.GitHub.Token,
		APIURL:            c.cfg.GitHub.APIURL,
		RequestsPerSecond: c.cfg.GitHub.RequestsPerSecond,
		Redactor:          c.redactor,
		Observer:          c.metrics,
		Logger:            c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GitHub gateway: %w", err)
	}
	return gw, nil
}

// failOnThreshold resolves the --fail-on flag. CI mode defaults to error.
func failOnThreshold(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg.CIMode {
		return string(review.SeverityError)
	}
	return "none"
}

// breaches reports whether any issue meets the threshold.
func breaches(result review.Result, threshold string) bool {
	for _, issue := range result.Issues {
		if review.MeetsThreshold(issue.Severity, threshold) {
			return true
		}
	}
	return false
}
