// Package sun wires the lexer, parser, lowerer, and VM into the single
// pipeline every entry point (cmd/sun's run/repl/compile subcommands,
// and anyone embedding Sun) drives a program through.
package sun

import (
	"github.com/windlx/sun/pkg/bytecode"
	"github.com/windlx/sun/pkg/extension"
	"github.com/windlx/sun/pkg/lexer"
	"github.com/windlx/sun/pkg/lowerer"
	"github.com/windlx/sun/pkg/parser"
	"github.com/windlx/sun/pkg/sunlog"
	"github.com/windlx/sun/pkg/vm"
)

// Options controls the diagnostic dumps the `--ct --cp --cc --cs --cg`
// CLI flags expose (spec §6). Debug records the `--debug` flag; no dump
// or log output reads it.
type Options struct {
	Debug         bool
	DumpTokens    bool
	DumpParse     bool
	DumpConstants bool
	DumpStack     bool
	DumpGlobals   bool
}

// Session is a persistent pipeline: a single VM whose globals and
// metatable registry survive across repeated Eval calls, for the REPL
// and for embedding.
type Session struct {
	vm   *vm.VM
	opts Options
}

// NewSession creates a Session with a fresh VM, loading extension
// modules through loader (nil disables `import`).
func NewSession(loader extension.Loader, opts Options) *Session {
	return &Session{vm: vm.New(loader), opts: opts}
}

// VM exposes the underlying machine, e.g. for tests that need to
// inspect the operand stack or globals directly.
func (s *Session) VM() *vm.VM { return s.vm }

// Eval lexes, parses, lowers, and runs source against the Session's
// persistent VM, returning the lowered program (for --cc dumps) and any
// error encountered at any stage.
func (s *Session) Eval(source string) (*bytecode.Program, error) {
	if s.opts.DumpTokens {
		toks, err := lexer.New(source).Tokenize()
		if err != nil {
			return nil, err
		}
		sunlog.Debug(toks, true)
	}

	p := parser.New(source)
	program, err := p.Parse()
	if err != nil {
		return nil, err
	}
	if s.opts.DumpParse {
		sunlog.Debug(program, true)
	}

	lowered, err := lowerer.Lower(program)
	if err != nil {
		return nil, err
	}
	if s.opts.DumpConstants {
		sunlog.Debug(bytecode.Disassemble(lowered), true)
	}

	vmOpts := vm.Options{DumpStack: s.opts.DumpStack, DumpGlobals: s.opts.DumpGlobals}
	if err := s.vm.Run(lowered, vmOpts); err != nil {
		return lowered, err
	}
	return lowered, nil
}

// Run lexes, parses, lowers, and executes source against a single
// one-shot VM (spec §8's end-to-end scenarios), returning the first
// error from any stage; the VM and its operand stack are discarded.
func Run(source string, loader extension.Loader, opts Options) error {
	s := NewSession(loader, opts)
	_, err := s.Eval(source)
	return err
}

// Compile lexes, parses, and lowers source without executing it, for
// the `compile` CLI subcommand's .sn -> .sb dump (spec §6).
func Compile(source string) (*bytecode.Program, error) {
	p := parser.New(source)
	program, err := p.Parse()
	if err != nil {
		return nil, err
	}
	return lowerer.Lower(program)
}
