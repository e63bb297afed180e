package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/windlx/sun/pkg/bytecode"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it, mirroring the teacher's integration tests'
// preference for driving real entry points over mocking them.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func writeSource(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestRunHandlerExecutesFileAndExitsZero(t *testing.T) {
	path := writeSource(t, "ok.sn", "x = 1 + 2; x")
	code := runHandler([]string{path}, map[string]string{})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestRunHandlerExitsOneOnMissingArg(t *testing.T) {
	out := captureStdout(t, func() {
		code := runHandler(nil, map[string]string{})
		if code != 1 {
			t.Fatalf("expected exit code 1, got %d", code)
		}
	})
	if !strings.Contains(out, "ERROR") {
		t.Fatalf("expected an ERROR message, got %q", out)
	}
}

func TestRunHandlerExitsOneOnUnreadableFile(t *testing.T) {
	code := runHandler([]string{filepath.Join(t.TempDir(), "missing.sn")}, map[string]string{})
	if code != 1 {
		t.Fatalf("expected exit code 1 for a missing file, got %d", code)
	}
}

func TestRunHandlerExitsOneOnRuntimeError(t *testing.T) {
	path := writeSource(t, "bad.sn", `1 + "x"`)
	code := runHandler([]string{path}, map[string]string{})
	if code != 1 {
		t.Fatalf("expected exit code 1 for a type-error program, got %d", code)
	}
}

func TestRunHandlerExitsOneOnParseError(t *testing.T) {
	path := writeSource(t, "syntax.sn", "x = = 1")
	code := runHandler([]string{path}, map[string]string{})
	if code != 1 {
		t.Fatalf("expected exit code 1 for a syntax error, got %d", code)
	}
}

func TestRunHandlerAcceptsEveryDumpFlag(t *testing.T) {
	path := writeSource(t, "dumps.sn", "x = {1, 2}; x.len()")
	opts := map[string]string{"debug": "", "ct": "", "cp": "", "cc": "", "cs": "", "cg": ""}
	code := runHandler([]string{path}, opts)
	if code != 0 {
		t.Fatalf("expected exit code 0 with every dump flag set, got %d", code)
	}
}

func TestCompileHandlerWritesABytecodeFile(t *testing.T) {
	dir := t.TempDir()
	input := writeSource(t, "prog.sn", "x = 41 + 1; x")
	output := filepath.Join(dir, "prog.sb")

	out := captureStdout(t, func() {
		code := compileHandler([]string{input, output}, map[string]string{})
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
	})
	if !strings.Contains(out, "compiled") {
		t.Fatalf("expected a confirmation message, got %q", out)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("opening compiled output: %v", err)
	}
	defer f.Close()
	if _, err := bytecode.Decode(f); err != nil {
		t.Fatalf("decoding compiled output: %v", err)
	}
}

func TestCompileHandlerDerivesOutputPathWhenOmitted(t *testing.T) {
	input := writeSource(t, "derived.sn", "42")
	code := compileHandler([]string{input}, map[string]string{})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if _, err := os.Stat(strings.TrimSuffix(input, ".sn") + ".sb"); err != nil {
		t.Fatalf("expected a derived .sb file next to the source: %v", err)
	}
}

func TestCompileHandlerExitsOneOnParseError(t *testing.T) {
	input := writeSource(t, "bad.sn", "x = = 1")
	code := compileHandler([]string{input, filepath.Join(t.TempDir(), "bad.sb")}, map[string]string{})
	if code != 1 {
		t.Fatalf("expected exit code 1 for a syntax error, got %d", code)
	}
}

func TestDisassembleHandlerPrintsInstructions(t *testing.T) {
	dir := t.TempDir()
	input := writeSource(t, "prog.sn", "x = 41 + 1; x")
	dump := filepath.Join(dir, "prog.sb")
	if code := compileHandler([]string{input, dump}, map[string]string{}); code != 0 {
		t.Fatalf("setup: compileHandler returned %d", code)
	}

	out := captureStdout(t, func() {
		code := disassembleHandler([]string{dump}, map[string]string{})
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
	})
	if !strings.Contains(out, "LOAD_CONST") {
		t.Fatalf("expected disassembly to mention a load-constant instruction, got %q", out)
	}
}

func TestDisassembleHandlerExitsOneOnBadMagicNumber(t *testing.T) {
	path := writeSource(t, "garbage.sb", "not a bytecode file")
	code := disassembleHandler([]string{path}, map[string]string{})
	if code != 1 {
		t.Fatalf("expected exit code 1 for a corrupt dump, got %d", code)
	}
}

// withStdin temporarily replaces os.Stdin with a reader over script's
// contents, restoring the original afterward.
func withStdin(t *testing.T, script string, fn func()) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = orig }()

	go func() {
		io.WriteString(w, script)
		w.Close()
	}()

	fn()
}

func TestReplHandlerEvaluatesLinesUntilQuit(t *testing.T) {
	var code int
	out := captureStdout(t, func() {
		withStdin(t, "x = 40 + 2\nx\n:quit\n", func() {
			code = replHandler(nil, map[string]string{})
		})
	})
	if code != 0 {
		t.Fatalf("expected exit code 0 after :quit, got %d", code)
	}
	if !strings.Contains(out, "=> 42") {
		t.Fatalf("expected the REPL to echo the evaluated result 42, got %q", out)
	}
}

func TestReplHandlerSurvivesARuntimeErrorAndKeepsGoing(t *testing.T) {
	var code int
	out := captureStdout(t, func() {
		withStdin(t, "1 + \"x\"\n99\n:quit\n", func() {
			code = replHandler(nil, map[string]string{})
		})
	})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out, "=> 99") {
		t.Fatalf("expected the REPL to recover and evaluate the next line, got %q", out)
	}
}
