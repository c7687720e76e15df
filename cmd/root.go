package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/appkeys/cli/pkg/config"
	"github.com/appkeys/cli/pkg/update"
	"github.com/charmbracelet/fang"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// Metadata is stamped into the binary at build time.
type Metadata struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
}

var metadata = Metadata{Version: "dev"}

// rootCmd is the base command for the CLI. Without a subcommand it opens the
// interactive menu.
var rootCmd = &cobra.Command{
	Use:   "appkeys",
	Short: "Provision OAuth app credentials on GitHub and Google Cloud",
	Long: `appkeys drives the GitHub and Google Cloud developer consoles in a real browser
window to create OAuth applications and save their client credentials to .env files.`,
	Args: cobra.NoArgs,
	RunE: runMenu,
}

var (
	logger *pterm.Logger
	cfg    *config.Config
)

func logLevelToPterm(level string) pterm.LogLevel {
	switch level {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "info":
		return pterm.LogLevelInfo
	case "warn":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "fatal":
		return pterm.LogLevelFatal
	case "print":
		return pterm.LogLevelPrint
	default:
		return pterm.LogLevelInfo
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	rootCmd.PersistentFlags().String("log-level", "info", "Set the log level (trace, debug, info, warn, error, fatal, print)")
	rootCmd.PersistentFlags().String("dotenv", ".env", "Load environment variables from this file")
	rootCmd.PersistentFlags().Bool("headless", false, "Run the browser without a window (login and step-up need a visible window)")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		logger = pterm.DefaultLogger.WithLevel(logLevelToPterm(level))
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			pterm.DisableStyling()
		}

		path, _ := cmd.Flags().GetString("dotenv")
		if err := config.LoadDotenv(path); err != nil {
			logger.Warn("could not load dotenv file", logger.Args("path", path, "error", err))
		}
		cfg = config.FromEnv()
		if headless, _ := cmd.Flags().GetBool("headless"); headless {
			cfg.Headless = true
		}
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if cfg != nil && cfg.NoUpdateCheck {
			return
		}
		update.MaybeShowMessage(cmd.Context(), metadata.Version)
	}

	rootCmd.AddCommand(githubCmd)
	rootCmd.AddCommand(googleCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(sessionCmd)
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM cancel the context, which closes any open browser.
func Execute(m Metadata) {
	metadata = m
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := fang.Execute(ctx, rootCmd, fang.WithVersion(versionString(m))); err != nil {
		cancel()
		os.Exit(1)
	}
}

func versionString(m Metadata) string {
	v := m.Version
	if m.Commit != "" && m.Commit != "none" {
		v += " (" + m.Commit + ")"
	}
	if m.GoVersion != "" {
		v += " " + m.GoVersion
	}
	if m.Date != "" && m.Date != "unknown" {
		v += " " + m.Date
	}
	return v
}

// loadedConfig returns the configuration read by the root pre-run, or reads
// it when a command is invoked directly in tests.
func loadedConfig() *config.Config {
	if cfg == nil {
		cfg = config.FromEnv()
	}
	return cfg
}

func cmdLogger() *pterm.Logger {
	if logger == nil {
		return &pterm.DefaultLogger
	}
	return logger
}
