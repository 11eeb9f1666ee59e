package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dshills/codemate/internal/github"
	"github.com/dshills/codemate/internal/orchestrator"
	"github.com/dshills/codemate/internal/providers"
)

var (
	flagPRRepo   string
	flagPRNumber int
	flagDryRun   bool
	flagFormat   string
	flagOut      string
	flagFailOn   string
)

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit 1 when an issue meets this severity (none, info, warning, error)")
}

func outputOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	return m
}

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Review a GitHub pull request",
	Long:  "Fetch a pull request's changed files, run the analyzers and post inline comments and a summary.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPRNumber <= 0 {
			return fail(cmd, ExitUsageError, errors.New("--pr must be a positive pull request number"))
		}

		cfg, logger, err := loadConfig(cmd, outputOverrides())
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}

		repo := flagPRRepo
		if repo == "" {
			repo, err = github.DetectRepo(cfg.RepoRoot)
			if err != nil {
				return fail(cmd, ExitUsageError, fmt.Errorf("%w; use --repo owner/name", err))
			}
		}
		if _, _, err := github.SplitRepo(repo); err != nil {
			return fail(cmd, ExitUsageError, err)
		}
		if !flagDryRun && cfg.GitHub.Token == "" {
			return fail(cmd, ExitAuthError, errors.New("GITHUB_TOKEN is required to post a review (or use --dry-run)"))
		}

		comps, err := buildComponents(cfg, logger)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}
		gw, err := comps.githubGateway()
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}

		ctx := cmd.Context()
		runID := orchestrator.NewRunID()
		changeID := strconv.Itoa(flagPRNumber)
		logger = logger.With("run_id", runID, "repo", repo, "change", changeID)

		files, err := comps.service.Fetch(ctx, gw, repo, changeID)
		if err != nil {
			return fail(cmd, providerExitCode(err), err)
		}
		result := comps.service.Analyze(ctx, runID, files)

		shown := result
		shown.Issues = comps.redactor.Issues(result.Issues)
		if err := writeResult(cmd, shown, cfg.Format); err != nil {
			return fail(cmd, ExitRuntimeError, fmt.Errorf("writing output: %w", err))
		}

		if flagDryRun {
			logger.Info("dry run; review not posted", "issues", len(result.Issues))
		} else {
			if err := comps.service.Report(ctx, gw, repo, changeID, files, result); err != nil {
				return fail(cmd, providerExitCode(err), err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "PR #%d analysis complete.\n", flagPRNumber)
		}

		if breaches(result, failOnThreshold(flagFailOn, cfg)) {
			exitCode = ExitFindings
		}
		return nil
	},
}

// providerExitCode maps gateway failures to an exit code.
func providerExitCode(err error) int {
	if errors.Is(err, providers.ErrProviderCall) {
		return ExitRuntimeError
	}
	return ExitUsageError
}

func init() {
	addOutputFlags(prCmd)
	prCmd.Flags().StringVar(&flagPRRepo, "repo", "", "GitHub repository as owner/name (auto-detected from origin if omitted)")
	prCmd.Flags().IntVar(&flagPRNumber, "pr", 0, "Pull request number")
	prCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Analyze and print without posting to GitHub")
}
