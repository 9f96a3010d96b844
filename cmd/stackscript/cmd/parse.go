package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/student/stackscript/internal/dump"
)

var (
	parseEval   string
	parseFormat string
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a stackscript file or expression and print its AST",
	Long: `Tokenize and parse a stackscript program, printing the resulting AST.
Type inference does not run — this is the raw parser output.

Examples:
  stackscript parse script.ss
  stackscript parse -e "let x = 1 + 2;" --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseEval, "eval", "e", "", "parse inline source instead of reading a file")
	parseCmd.Flags().StringVar(&parseFormat, "format", "human", "dump format: human or json")
}

func runParse(_ *cobra.Command, args []string) error {
	source, _, err := readSource(args, parseEval)
	if err != nil {
		return err
	}

	tokens := tokenize(source)
	root, err := parseProgram(tokens, source)
	if err != nil {
		return err
	}

	fmt.Fprintln(log.Out, dump.AST(root, dumpFormat(parseFormat == "json")))
	return nil
}
