package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/student/stackscript/internal/logger"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	verbose bool
	noColor bool

	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stackscript",
	Short: "stackscript compiler and VM",
	Long: `stackscript is a small statically-typed imperative scripting language:
a speculating recursive-descent parser, a Hindley-Milner-flavored type
inferencer, a stack bytecode emitter, and a stack-based VM with a
dynamic-library FFI bridge.`,
	Version:           Version,
	PersistentPreRunE: setupLogger,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose phase banners and debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable ANSI color in diagnostics")
}

func setupLogger(*cobra.Command, []string) error {
	log = logger.New(os.Stdout)
	log.Verbose = verbose
	if noColor {
		log.Color = false
	}
	return nil
}

func exitWithError(msg string, args ...any) {
	log.Log(logger.Error, msg, args...)
	os.Exit(1)
}
