package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// captureStdout redirects os.Stdout for the duration of fn and returns what
// was written to it, mirroring the teacher's os.Pipe capture pattern.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestVersionCommandPrintsVersionInfo(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"stackscript", "version"}

	output := captureStdout(t, func() {
		if err := Execute(); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	})

	if !strings.Contains(output, "stackscript version") {
		t.Fatalf("expected version banner, got %q", output)
	}
}

func TestRunCommandEvaluatesInlineVoidProgram(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"stackscript", "run", "-e", "let x = 1; let y = x + 1;"}

	if err := Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestParseCommandPrintsAST(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"stackscript", "parse", "-e", "ret 1 + 2;"}

	output := captureStdout(t, func() {
		if err := Execute(); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	})
	if !strings.Contains(output, "Call") {
		t.Fatalf("expected the AST dump to mention a Call node, got %q", output)
	}
}

func TestBuildCommandPrintsProgram(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"stackscript", "build", "-e", "ret 1;"}

	output := captureStdout(t, func() {
		if err := Execute(); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	})
	if !strings.Contains(output, "PUSH") {
		t.Fatalf("expected the program dump to mention a PUSH instruction, got %q", output)
	}
}

func TestLexCommandPrintsTokens(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"stackscript", "lex", "-e", "let x = 1;"}

	output := captureStdout(t, func() {
		if err := Execute(); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	})
	if !strings.Contains(output, "Let") {
		t.Fatalf("expected the token dump to mention Let, got %q", output)
	}
}
