package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/student/stackscript/internal/dump"
)

var (
	lexEval   string
	lexFormat string
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a stackscript file or expression",
	Long: `Tokenize a stackscript program and print the resulting token stream.

Examples:
  stackscript lex script.ss
  stackscript lex -e "let x = 1;" --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().StringVarP(&lexEval, "eval", "e", "", "tokenize inline source instead of reading a file")
	lexCmd.Flags().StringVar(&lexFormat, "format", "human", "dump format: human or json")
}

func runLex(_ *cobra.Command, args []string) error {
	source, _, err := readSource(args, lexEval)
	if err != nil {
		return err
	}

	tokens := tokenize(source)
	fmt.Fprintln(log.Out, dump.Tokens(tokens, dumpFormat(lexFormat == "json")))
	return nil
}
