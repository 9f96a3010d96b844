package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/config"
	"github.com/student/stackscript/internal/dump"
	"github.com/student/stackscript/internal/types"
	"github.com/student/stackscript/internal/vm"
)

var (
	evalExpr string

	debug             bool
	showTokens        bool
	showFileContent   bool
	showResult        bool
	showASTFlag       bool
	showTypeInference bool
	showInferredTypes bool
	showFunctionsFlag bool
	showEmission      bool
	showExecution     bool

	budget   int
	libPaths []string
	format   string
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a stackscript file (default subcommand)",
	Long: `Tokenize, parse, infer, instantiate, emit and execute a stackscript
program.

Examples:
  stackscript run script.ss
  stackscript run -e "let x = 1 + 2; ret x;"
  stackscript run --debug script.ss`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline source instead of reading a file")
	runCmd.Flags().BoolVar(&debug, "debug", false, "enable every show-* flag and VM instruction tracing")
	runCmd.Flags().BoolVar(&showTokens, "show-tokens", false, "print the token stream")
	runCmd.Flags().BoolVar(&showFileContent, "show-file-content", false, "echo the source text")
	runCmd.Flags().BoolVar(&showResult, "show-result", false, "print the VM's final result explicitly")
	runCmd.Flags().BoolVar(&showASTFlag, "show-ast", false, "print the parsed AST")
	runCmd.Flags().BoolVar(&showTypeInference, "show-type-inference", false, "print type-inference diagnostics")
	runCmd.Flags().BoolVar(&showInferredTypes, "show-inferred-types", false, "print the resolved struct TypesMap")
	runCmd.Flags().BoolVar(&showFunctionsFlag, "show-functions", false, "print the instantiated function map")
	runCmd.Flags().BoolVar(&showEmission, "show-emission", false, "print the emitted Program")
	runCmd.Flags().BoolVar(&showExecution, "show-execution", false, "trace every VM instruction as it executes")
	runCmd.Flags().IntVar(&budget, "budget", 0, "max VM instructions to execute (0 = unbounded)")
	runCmd.Flags().StringSliceVar(&libPaths, "lib-path", nil, "extra FFI library search directory (repeatable)")
	runCmd.Flags().StringVar(&format, "format", "human", "dump format for show-* flags: human or json")
}

func runScript(_ *cobra.Command, args []string) error {
	source, filename, err := readSource(args, evalExpr)
	if err == errWrongArgCount {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err != nil {
		return err
	}

	cfg, err := config.Load(filename)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	effectiveLibPaths, effectiveBudget := cfg.Merge(libPaths, budget)

	show := collectShowFlags()
	if debug {
		show = allShown()
	}

	program, functions, err := compile(source, filename, dumpFormat(format == "json"), show)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	machine := vm.New(program, effectiveLibPaths...)
	if debug || showExecution {
		machine.Debug = true
		machine.Tracer = log.Trace
	}

	result, err := machine.Run(effectiveBudget)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if result.Status == vm.Paused {
		// This CLI invocation never resumes a paused VM, unlike an embedder
		// holding onto the VM value across multiple Run calls, so release
		// its FFI handles now instead of leaving them open until exit.
		machine.Close()
	}

	return reportResult(result, functions, showResult || debug)
}

func collectShowFlags() showFlags {
	return showFlags{
		tokens:        showTokens,
		fileContent:   showFileContent,
		result:        showResult,
		ast:           showASTFlag,
		typeInference: showTypeInference,
		inferredTypes: showInferredTypes,
		functions:     showFunctionsFlag,
		emission:      showEmission,
		execution:     showExecution,
	}
}

// reportResult implements §10.2's exit-code table: 0 for a successful Void
// result, the parsed integer for an Int result, 3 on Paused, and 0 with the
// value printed for any other resolved (non-integer, non-void) result.
func reportResult(result vm.Result, functions map[string]*ast.Function, explicit bool) error {
	if result.Status == vm.Paused {
		if explicit {
			fmt.Fprintln(log.Out, dump.Pretty(result))
		}
		os.Exit(3)
	}

	mainRet := mainReturnType(functions)

	if explicit {
		log.Banner("show-result")
		fmt.Fprintln(log.Out, formatResult(result, mainRet))
	}

	switch {
	case mainRet.Kind == types.KindSimple && mainRet.Primitive == types.Void:
		return nil
	case mainRet.Kind == types.KindSimple && mainRet.Primitive == types.Int:
		os.Exit(int(result.Value))
	default:
		if result.HasValue {
			fmt.Println(formatResult(result, mainRet))
		}
	}
	return nil
}

func mainReturnType(functions map[string]*ast.Function) types.DataType {
	fn, ok := functions["main"]
	if !ok {
		return types.Simple(types.Void)
	}
	decl, ok := fn.Head.(*ast.Declfn)
	if !ok || decl.Name.DataType().Ret == nil {
		return types.Simple(types.Void)
	}
	return *decl.Name.DataType().Ret
}

func formatResult(result vm.Result, t types.DataType) string {
	if !result.HasValue {
		return "<void>"
	}
	if t.Kind == types.KindSimple && t.Primitive == types.Bool {
		return fmt.Sprintf("%t", result.Value != 0)
	}
	return fmt.Sprintf("%d", result.Value)
}
