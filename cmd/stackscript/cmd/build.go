package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/student/stackscript/internal/dump"
)

var (
	buildEval   string
	buildFormat string
)

var buildCmd = &cobra.Command{
	Use:   "build [file]",
	Short: "Compile a stackscript program to bytecode without running it",
	Long: `Run every phase through emission (tokenize, parse, infer, instantiate,
emit) and print the resulting Program, without executing it on the VM.

Examples:
  stackscript build script.ss
  stackscript build script.ss --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildEval, "eval", "e", "", "compile inline source instead of reading a file")
	buildCmd.Flags().StringVar(&buildFormat, "format", "human", "dump format: human or json")
}

func runBuild(_ *cobra.Command, args []string) error {
	source, filename, err := readSource(args, buildEval)
	if err != nil {
		return err
	}

	program, _, err := compile(source, filename, dumpFormat(buildFormat == "json"), showFlags{})
	if err != nil {
		return err
	}

	fmt.Fprintln(log.Out, dump.Program(program, dumpFormat(buildFormat == "json")))
	return nil
}
