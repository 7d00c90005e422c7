package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// Global flag values.
var (
	flagBaseDir  string
	flagConfig   string
	flagLogLevel string
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "runboard",
	Short: "runboard - forward experiment runs into TensorBoard logs",
	Long: `runboard observes experiment runs and writes their metrics and
artifacts as TensorBoard event files, one directory per run.

It replays runner event streams into run directories, lists and inspects
recorded runs, and exposes them to terminals and AI assistants.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd || Initializer == nil {
			return nil
		}
		cleanup, err := Initializer(Options{
			BaseDir:    flagBaseDir,
			ConfigFile: flagConfig,
			LogLevel:   flagLogLevel,
		})
		if err != nil {
			return fmt.Errorf("initializing runboard: %w", err)
		}
		appCleanup = cleanup
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return runCleanup()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "runboard %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseDir, "base-dir", "", "Directory holding run directories (overrides base_dir)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default .runboard.yaml in the base path)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. Resources acquired by the initializer are
// released even when the command fails.
func Execute() error {
	err := rootCmd.Execute()
	if cerr := runCleanup(); err == nil {
		err = cerr
	}
	return err
}

func runCleanup() error {
	if appCleanup == nil {
		return nil
	}
	cleanup := appCleanup
	appCleanup = nil
	return cleanup()
}
