package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"lox-lang/internal/config"
	"lox-lang/internal/driver"
	"lox-lang/internal/runtime"

	"github.com/chzyer/readline"
)

// palette applies ANSI colors, or nothing when color is disabled.
type palette bool

func (p palette) paint(color, s string) string {
	if !p {
		return s
	}
	return color + s + colorReset
}

// ---- repl command ----

func cmdRepl(cfg config.Config) int {
	colors := palette(cfg.Color)
	prompt := colors.paint(colorGreen, cfg.Prompt)
	continuation := colors.paint(colorGray, cfg.ContinuationPrompt)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       cfg.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		return driver.ExitIO
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s %s\n\n",
		colors.paint(colorBold+colorCyan, "lox REPL"),
		colors.paint(colorGray, "(type 'exit' or Ctrl+D to quit)"))

	opts := []driver.Option{
		driver.WithInterpreterOptions(runtime.WithMaxCallDepth(cfg.MaxCallDepth)),
	}
	if cfg.Trace {
		opts = append(opts, driver.WithTrace(rl.Stderr()))
	}
	runner := driver.New(rl.Stdout(), opts...)

	var accumulated strings.Builder
	braceDepth := 0

	for {
		if braceDepth > 0 {
			rl.SetPrompt(continuation)
		} else {
			rl.SetPrompt(prompt)
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if braceDepth > 0 || accumulated.Len() > 0 {
					// Cancel multi-line input
					accumulated.Reset()
					braceDepth = 0
					continue
				}
				fmt.Fprintf(rl.Stdout(), "%s\n", colors.paint(colorGray, "(use 'exit' or Ctrl+D to quit)"))
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(rl.Stdout())
			}
			return driver.ExitOK
		}

		if braceDepth == 0 && strings.TrimSpace(line) == "exit" {
			return driver.ExitOK
		}

		braceDepth += braceDelta(line)
		accumulated.WriteString(line)
		accumulated.WriteString("\n")

		// Keep reading until braces balance.
		if braceDepth > 0 {
			continue
		}
		braceDepth = 0

		source := accumulated.String()
		accumulated.Reset()
		if strings.TrimSpace(source) == "" {
			continue
		}

		res := runner.Run(source, "<repl>")
		printDiagsColored(rl.Stderr(), res.Diagnostics)
		if res.RuntimeErr != nil {
			fmt.Fprintln(rl.Stderr(), colors.paint(colorRed, res.RuntimeErr.Error()))
		}
	}
}

// braceDelta returns the number of '{' minus '}' on line, ignoring braces
// inside string literals and comments.
func braceDelta(line string) int {
	delta := 0
	inString := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case inString:
			if ch == '"' {
				inString = false
			}
		case ch == '"':
			inString = true
		case ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return delta
		case ch == '{':
			delta++
		case ch == '}':
			delta--
		}
	}
	return delta
}
