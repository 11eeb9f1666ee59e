package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codemate/internal/gitctx"
	"github.com/dshills/codemate/internal/orchestrator"
	"github.com/dshills/codemate/internal/output"
	"github.com/dshills/codemate/internal/review"
)

var (
	flagLocalDiff bool
	flagInclude   string
	flagExclude   string
)

var localCmd = &cobra.Command{
	Use:   "local <path>",
	Short: "Review files in a local checkout",
	Long: "Run the analyzers over the files of a local directory. With --diff only " +
		"uncommitted changes against HEAD are reviewed.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return fail(cmd, ExitUsageError, fmt.Errorf("%s is not a directory", root))
		}

		overrides := outputOverrides()
		overrides["repoRoot"] = root
		if flagInclude != "" {
			overrides["include"] = flagInclude
		}
		if flagExclude != "" {
			overrides["exclude"] = flagExclude
		}
		cfg, logger, err := loadConfig(cmd, overrides)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}

		comps, err := buildComponents(cfg, logger)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}

		ctx := cmd.Context()
		filter := gitctx.Filter{Include: cfg.Include, Exclude: cfg.Exclude}
		var files []review.ChangedFile
		if flagLocalDiff {
			files, err = gitctx.WorkingTree(ctx, root, filter)
			files = orchestrator.ParseFiles(files, logger)
		} else {
			files, err = gitctx.LocalFiles(ctx, root, filter)
		}
		if err != nil {
			return fail(cmd, ExitRuntimeError, err)
		}

		result := comps.service.Analyze(ctx, orchestrator.NewRunID(), files)
		result.Issues = comps.redactor.Issues(result.Issues)

		fmt.Fprintf(cmd.ErrOrStderr(), "Local analysis complete. Files: %d, total issues: %d\n",
			len(files), len(result.Issues))
		if err := writeResult(cmd, result, cfg.Format); err != nil {
			return fail(cmd, ExitRuntimeError, fmt.Errorf("writing output: %w", err))
		}

		if breaches(result, failOnThreshold(flagFailOn, cfg)) {
			exitCode = ExitFindings
		}
		return nil
	},
}

// writeResult writes to --out when set, else to the command's stdout.
func writeResult(cmd *cobra.Command, result review.Result, format string) error {
	if flagOut != "" {
		return output.WriteResult(result, format, version, flagOut)
	}
	w, err := output.NewWriter(format, version)
	if err != nil {
		return err
	}
	return w.Write(cmd.OutOrStdout(), result)
}

func init() {
	addOutputFlags(localCmd)
	localCmd.Flags().BoolVar(&flagLocalDiff, "diff", false, "Review only uncommitted changes against HEAD")
	localCmd.Flags().StringVar(&flagInclude, "include", "", "Include globs (comma-separated)")
	localCmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude globs (comma-separated)")
}
