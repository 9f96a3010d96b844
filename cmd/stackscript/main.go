// Command stackscript is the compiler and VM entry point.
package main

import (
	"fmt"
	"os"

	"github.com/student/stackscript/cmd/stackscript/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
