// Package driver runs source text through every stage of the interpreter:
// scan, parse, resolve, then execute.
package driver

import (
	"errors"
	"fmt"
	"io"
	"time"

	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/lexer"
	"lox-lang/internal/parser"
	"lox-lang/internal/resolver"
	"lox-lang/internal/runtime"
	"lox-lang/internal/token"
)

// Process exit codes used by the lox command.
const (
	ExitOK      = 0
	ExitUsage   = 64
	ExitCompile = 65
	ExitRuntime = 70
	ExitIO      = 74
)

// Result is everything one Run produced. Later fields are empty when an
// earlier stage failed.
type Result struct {
	Tokens      []token.Token
	Program     *ast.Program
	Diagnostics []diag.Diagnostic
	RuntimeErr  error
}

// Failed reports whether any stage reported an error.
func (r Result) Failed() bool {
	return diag.HasErrors(r.Diagnostics) || r.RuntimeErr != nil
}

// ExitCode maps the result to the process exit code.
func (r Result) ExitCode() int {
	switch {
	case diag.HasErrors(r.Diagnostics):
		return ExitCompile
	case r.RuntimeErr != nil:
		return ExitRuntime
	default:
		return ExitOK
	}
}

// Runner owns one interpreter and feeds it successive sources. Globals and
// resolved scopes persist between runs.
type Runner struct {
	interp     *runtime.Interpreter
	trace      io.Writer
	interpOpts []runtime.Option
}

// Option configures a Runner.
type Option func(*Runner)

// WithTrace writes one line per stage to w.
func WithTrace(w io.Writer) Option {
	return func(r *Runner) { r.trace = w }
}

// WithInterpreterOptions passes options through to the interpreter.
func WithInterpreterOptions(opts ...runtime.Option) Option {
	return func(r *Runner) { r.interpOpts = append(r.interpOpts, opts...) }
}

// New creates a runner whose programs print to out.
func New(out io.Writer, opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	r.interp = runtime.NewInterpreter(out, r.interpOpts...)
	return r
}

// Run scans, parses, resolves and executes source. The program is not
// resolved if scanning or parsing reported errors, and not executed if
// resolution did.
func (r *Runner) Run(source, filename string) Result {
	var res Result

	start := time.Now()
	tokens, lexDiags := lexer.New(source, filename).Tokenize()
	res.Tokens = tokens
	res.Diagnostics = append(res.Diagnostics, lexDiags...)
	r.tracef("scan: %d tokens, %d errors (%s)", len(tokens), len(lexDiags), time.Since(start))

	start = time.Now()
	prog, parseDiags := parser.New(tokens).ParseFile()
	res.Program = prog
	res.Diagnostics = append(res.Diagnostics, parseDiags...)
	r.tracef("parse: %d statements, %d errors (%s)", len(prog.Stmts), len(parseDiags), time.Since(start))

	if diag.HasErrors(res.Diagnostics) {
		return res
	}

	start = time.Now()
	locals, resolveDiags := resolver.New().Resolve(prog)
	res.Diagnostics = append(res.Diagnostics, resolveDiags...)
	r.tracef("resolve: %d locals, %d errors (%s)", len(locals), len(resolveDiags), time.Since(start))

	if diag.HasErrors(resolveDiags) {
		return res
	}

	start = time.Now()
	res.RuntimeErr = r.interp.Interpret(prog, locals)
	var rerr *runtime.RuntimeError
	if errors.As(res.RuntimeErr, &rerr) {
		d := rerr.Diagnostic()
		r.tracef("interpret: ok=false %s at %d:%d (%s)", d.Code, d.Span.Start.Line, d.Span.Start.Column, time.Since(start))
	} else {
		r.tracef("interpret: ok=%t (%s)", res.RuntimeErr == nil, time.Since(start))
	}
	return res
}

func (r *Runner) tracef(format string, args ...interface{}) {
	if r.trace == nil {
		return
	}
	fmt.Fprintf(r.trace, "[trace] "+format+"\n", args...)
}
