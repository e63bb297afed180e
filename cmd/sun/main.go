// Command sun is Sun's CLI entry point: run a source file, start an
// interactive session, or compile/disassemble the debug bytecode dump
// format (spec §6). Built on github.com/teris-io/cli in place of the
// teacher's hand-rolled os.Args switch, following
// its-hmny-nand2tetris/code/cmd/jack_compiler/main.go's App/Command
// shape.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"

	"github.com/windlx/sun/pkg/bytecode"
	"github.com/windlx/sun/pkg/sun"
	"github.com/windlx/sun/pkg/sunlog"
)

const version = "0.1.0"

var description = strings.ReplaceAll(`
Sun is a small dynamically typed scripting language: a lexer, a
Pratt-style parser, an AST-to-bytecode lowering pass, and a stack-based
virtual machine dispatching through a metatable registry.
`, "\n", " ")

func dumpOptions() []cli.Option {
	return []cli.Option{
		cli.NewOption("debug", "accepted; no output depends on it").WithType(cli.TypeBool),
		cli.NewOption("ct", "dump the token stream before parsing").WithType(cli.TypeBool),
		cli.NewOption("cp", "dump the parsed AST before lowering").WithType(cli.TypeBool),
		cli.NewOption("cc", "dump the lowered bytecode before execution").WithType(cli.TypeBool),
		cli.NewOption("cs", "dump the operand stack before every instruction").WithType(cli.TypeBool),
		cli.NewOption("cg", "dump the global environment before every instruction").WithType(cli.TypeBool),
	}
}

func withDumpOptions(cmd cli.Command) cli.Command {
	for _, opt := range dumpOptions() {
		cmd = cmd.WithOption(opt)
	}
	return cmd
}

func optionsFrom(opts map[string]string) sun.Options {
	_, debug := opts["debug"]
	_, ct := opts["ct"]
	_, cp := opts["cp"]
	_, cc := opts["cc"]
	_, cs := opts["cs"]
	_, cg := opts["cg"]
	return sun.Options{
		Debug:         debug,
		DumpTokens:    ct,
		DumpParse:     cp,
		DumpConstants: cc,
		DumpStack:     cs,
		DumpGlobals:   cg,
	}
}

var app = cli.New(description).
	WithCommand(withDumpOptions(
		cli.NewCommand("run", "Run a .sn source file").
			WithArg(cli.NewArg("file", "path to a .sn source file").WithType(cli.TypeString)),
	).WithAction(runHandler)).
	WithCommand(withDumpOptions(
		cli.NewCommand("repl", "Start an interactive read-eval-print session"),
	).WithAction(replHandler)).
	WithCommand(cli.NewCommand("compile", "Lower a .sn source file to a .sb bytecode dump").
		WithArg(cli.NewArg("input", "path to a .sn source file").WithType(cli.TypeString)).
		WithArg(cli.NewArg("output", "path to write the .sb dump to").AsOptional().WithType(cli.TypeString)).
		WithAction(compileHandler)).
	WithCommand(cli.NewCommand("disassemble", "Print a human-readable view of a .sb bytecode dump").
		WithArg(cli.NewArg("input", "path to a .sb bytecode dump").WithType(cli.TypeString)).
		WithAction(disassembleHandler)).
	WithAction(replHandler)

func main() {
	os.Exit(app.Run(os.Args, os.Stdout))
}

func runHandler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Println("ERROR: no file specified, use --help")
		return 1
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		sunlog.Error(fmt.Errorf("reading %s: %w", args[0], err))
		return 1
	}

	opts := optionsFrom(options)
	if err := sun.Run(string(data), nil, opts); err != nil {
		sunlog.Error(err)
		return 1
	}
	return 0
}

func compileHandler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Println("ERROR: no input file specified, use --help")
		return 1
	}

	inputFile := args[0]
	outputFile := ""
	if len(args) >= 2 {
		outputFile = args[1]
	}
	if outputFile == "" {
		if ext := filepath.Ext(inputFile); ext != "" {
			outputFile = strings.TrimSuffix(inputFile, ext) + ".sb"
		} else {
			outputFile = inputFile + ".sb"
		}
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		sunlog.Error(fmt.Errorf("reading %s: %w", inputFile, err))
		return 1
	}

	program, err := sun.Compile(string(data))
	if err != nil {
		sunlog.Error(err)
		return 1
	}

	out, err := os.Create(outputFile)
	if err != nil {
		sunlog.Error(fmt.Errorf("creating %s: %w", outputFile, err))
		return 1
	}
	defer out.Close()

	if err := bytecode.Encode(program, out); err != nil {
		sunlog.Error(fmt.Errorf("encoding %s: %w", outputFile, err))
		return 1
	}

	fmt.Printf("compiled %s -> %s\n", inputFile, outputFile)
	return 0
}

func disassembleHandler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Println("ERROR: no file specified, use --help")
		return 1
	}

	f, err := os.Open(args[0])
	if err != nil {
		sunlog.Error(fmt.Errorf("opening %s: %w", args[0], err))
		return 1
	}
	defer f.Close()

	program, err := bytecode.Decode(f)
	if err != nil {
		sunlog.Error(fmt.Errorf("decoding %s: %w", args[0], err))
		return 1
	}

	fmt.Print(bytecode.Disassemble(program))
	return 0
}

// replHandler starts an interactive session. It also serves as the
// bare-invocation default action (spec §6: "bare invocation with no
// file also starts the REPL").
func replHandler(args []string, options map[string]string) int {
	fmt.Printf("sun %s — type :quit to exit\n", version)

	s := sun.NewSession(nil, optionsFrom(options))
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("sun> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case ":quit", ":exit":
			return 0
		}

		if _, err := s.Eval(line); err != nil {
			sunlog.Error(err)
			continue
		}
		if top := s.VM().StackTop(); top != nil {
			fmt.Printf("=> %v\n", top.Get())
		}
	}
	if err := scanner.Err(); err != nil {
		sunlog.Error(err)
		return 1
	}
	return 0
}
