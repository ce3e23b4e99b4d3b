// Command lox runs Lox scripts and hosts an interactive prompt.
//
// Usage:
//
//	lox run    <file> [--config f] [--trace]   Run a source file
//	lox repl   [--config f]                    Start interactive REPL
//	lox tokens <file> [--json]                 Print tokens
//	lox parse  <file> [--sexpr]                Print AST as JSON or S-expressions
//	lox <file>                                 Same as run
//	lox                                        Same as repl
package main

import (
	"fmt"
	"os"
	"strings"

	"lox-lang/internal/ast"
	"lox-lang/internal/config"
	"lox-lang/internal/diag"
	"lox-lang/internal/driver"
	"lox-lang/internal/lexer"
	"lox-lang/internal/parser"
	"lox-lang/internal/runtime"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// options holds the flags shared by every command.
type options struct {
	args       []string
	configPath string
	json       bool
	sexpr      bool
	trace      bool
}

func parseArgs(args []string) (options, error) {
	var opts options
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--json":
			opts.json = true
		case arg == "--sexpr":
			opts.sexpr = true
		case arg == "--trace":
			opts.trace = true
		case arg == "--config":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--config requires a path")
			}
			i++
			opts.configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			opts.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-") && arg != "-":
			return opts, fmt.Errorf("unknown flag '%s'", arg)
		default:
			opts.args = append(opts.args, arg)
		}
	}
	return opts, nil
}

func run(argv []string) int {
	command := "repl"
	if len(argv) > 0 && !strings.HasPrefix(argv[0], "-") {
		command = argv[0]
		argv = argv[1:]
	}

	switch command {
	case "run", "repl", "tokens", "parse":
	case "help":
		usage()
		return driver.ExitOK
	default:
		// lox <file>
		argv = append([]string{command}, argv...)
		command = "run"
	}

	opts, err := parseArgs(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		usage()
		return driver.ExitUsage
	}

	if command == "repl" {
		if len(opts.args) > 0 {
			usage()
			return driver.ExitUsage
		}
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return driver.ExitUsage
		}
		return cmdRepl(cfg)
	}

	if len(opts.args) != 1 {
		fmt.Fprintln(os.Stderr, "error: expected exactly one file argument")
		usage()
		return driver.ExitUsage
	}
	filename := opts.args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot read file %s: %v\n", filename, err)
		return driver.ExitIO
	}

	switch command {
	case "tokens":
		return cmdTokens(string(source), filename, opts.json)
	case "parse":
		return cmdParse(string(source), filename, opts.sexpr)
	default:
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return driver.ExitUsage
		}
		return cmdRun(string(source), filename, cfg, opts.trace)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lox run    <file> [--config f] [--trace]   Run a source file")
	fmt.Fprintln(os.Stderr, "  lox repl   [--config f]                    Start interactive REPL")
	fmt.Fprintln(os.Stderr, "  lox tokens <file> [--json]                 Tokenize and print tokens")
	fmt.Fprintln(os.Stderr, "  lox parse  <file> [--sexpr]                Parse and print AST")
	fmt.Fprintln(os.Stderr, "  lox <file>                                 Same as run")
}

// ---- tokens command ----

func cmdTokens(source, filename string, jsonMode bool) int {
	l := lexer.New(source, filename)
	tokens, diags := l.Tokenize()

	if jsonMode {
		printTokensJSON(l.Filename(), tokens, diags)
	} else {
		printTokensText(tokens, diags)
	}

	if diag.HasErrors(diags) {
		return driver.ExitCompile
	}
	return driver.ExitOK
}

// ---- parse command ----

func cmdParse(source, filename string, sexpr bool) int {
	tokens, lexDiags := lexer.New(source, filename).Tokenize()
	prog, parseDiags := parser.New(tokens).ParseFile()
	allDiags := append(lexDiags, parseDiags...)

	if sexpr {
		if len(prog.Stmts) > 0 {
			fmt.Println(ast.Sprint(prog))
		}
		printDiagsText(os.Stderr, allDiags)
	} else {
		printJSON(map[string]interface{}{
			"ast":         ast.NodeToMap(prog),
			"diagnostics": diagsToSlice(allDiags),
		})
	}

	if diag.HasErrors(allDiags) {
		return driver.ExitCompile
	}
	return driver.ExitOK
}

// ---- run command ----

func cmdRun(source, filename string, cfg config.Config, trace bool) int {
	opts := []driver.Option{
		driver.WithInterpreterOptions(runtime.WithMaxCallDepth(cfg.MaxCallDepth)),
	}
	if trace || cfg.Trace {
		opts = append(opts, driver.WithTrace(os.Stderr))
	}

	res := driver.New(os.Stdout, opts...).Run(source, filename)
	printDiagsText(os.Stderr, res.Diagnostics)
	if res.RuntimeErr != nil {
		fmt.Fprintln(os.Stderr, res.RuntimeErr)
	}
	return res.ExitCode()
}
