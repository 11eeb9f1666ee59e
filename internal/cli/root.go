package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/codemate/internal/config"
)

const version = "0.3.0"

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var (
	flagConfig string
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "codemate",
	Short: "Pull request review agent",
	Long: "Codemate runs lint, security and AI analyzers over pull request changes " +
		"and posts the findings back as review comments and a summary.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(prCmd)
	rootCmd.AddCommand(localCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// fail reports err on the command's stderr and records code as the exit code.
func fail(cmd *cobra.Command, code int, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	exitCode = code
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print codemate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "codemate version %s\n", version)
	},
}

// newLogger returns a JSON logger, or a text logger at debug level.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// loadConfig merges configuration with the given flag overrides and installs
// the process logger.
func loadConfig(cmd *cobra.Command, overrides map[string]string) (config.Config, *slog.Logger, error) {
	if flagDebug {
		overrides["debug"] = "true"
	}
	cfg, err := config.Load(flagConfig, overrides)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: $XDG_CONFIG_HOME/codemate/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}
