package driver

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lox-lang/internal/runtime"

	"gopkg.in/yaml.v3"
)

// render returns what the lox command would print for res: program output
// followed by diagnostics and the runtime error.
func render(out string, res Result) string {
	var b strings.Builder
	b.WriteString(out)
	for _, d := range res.Diagnostics {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	if res.RuntimeErr != nil {
		b.WriteString(res.RuntimeErr.Error())
		b.WriteByte('\n')
	}
	return b.String()
}

// goldenTest runs a .lox file and compares its output to a .expected file.
func goldenTest(t *testing.T, name string) {
	t.Helper()

	loxPath := filepath.Join("..", "..", "testdata", name+".lox")
	expectedPath := filepath.Join("..", "..", "testdata", name+".expected")

	source, err := os.ReadFile(loxPath)
	if err != nil {
		t.Fatalf("failed to read %s: %v", loxPath, err)
	}
	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("failed to read %s: %v", expectedPath, err)
	}

	var buf bytes.Buffer
	res := New(&buf).Run(string(source), loxPath)

	expectedStr := strings.TrimRight(string(expected), "\n")
	gotStr := strings.TrimRight(render(buf.String(), res), "\n")

	if gotStr != expectedStr {
		expectedLines := strings.Split(expectedStr, "\n")
		gotLines := strings.Split(gotStr, "\n")

		t.Errorf("output mismatch for %s", name)
		maxLines := max(len(expectedLines), len(gotLines))
		for i := 0; i < maxLines; i++ {
			exp, g := "<missing>", "<missing>"
			if i < len(expectedLines) {
				exp = expectedLines[i]
			}
			if i < len(gotLines) {
				g = gotLines[i]
			}
			prefix := "  "
			if exp != g {
				prefix = "! "
			}
			t.Logf("%sline %d: expected=%q got=%q", prefix, i+1, exp, g)
		}
	}
}

func TestGoldenClosures(t *testing.T) {
	goldenTest(t, "closures")
}

func TestGoldenClasses(t *testing.T) {
	goldenTest(t, "classes")
}

func TestGoldenInheritance(t *testing.T) {
	goldenTest(t, "inheritance")
}

func TestGoldenControlFlow(t *testing.T) {
	goldenTest(t, "control_flow")
}

func TestGoldenRuntimeError(t *testing.T) {
	goldenTest(t, "runtime_error")
}

func TestGoldenCompileError(t *testing.T) {
	goldenTest(t, "compile_error")
}

// ---- YAML case suite ----

type testCase struct {
	Name         string   `yaml:"name"`
	Source       string   `yaml:"source"`
	Output       string   `yaml:"output"`
	Errors       []string `yaml:"errors"`
	RuntimeError string   `yaml:"runtime_error"`
	ExitCode     int      `yaml:"exit_code"`
}

func loadCases(t *testing.T) []testCase {
	t.Helper()
	path := filepath.Join("..", "..", "testdata", "cases.yaml")
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	var cases []testCase
	if err := decoder.Decode(&cases); err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	if len(cases) == 0 {
		t.Fatalf("no cases in %s", path)
	}
	return cases
}

func TestCases(t *testing.T) {
	for _, tc := range loadCases(t) {
		t.Run(tc.Name, func(t *testing.T) {
			var buf bytes.Buffer
			res := New(&buf).Run(tc.Source, tc.Name)

			if got := buf.String(); got != tc.Output {
				t.Errorf("output:\n  expected %q\n  got      %q", tc.Output, got)
			}

			var gotErrs []string
			for _, d := range res.Diagnostics {
				gotErrs = append(gotErrs, d.String())
			}
			if strings.Join(gotErrs, "\n") != strings.Join(tc.Errors, "\n") {
				t.Errorf("diagnostics:\n  expected %q\n  got      %q", tc.Errors, gotErrs)
			}

			gotRuntime := ""
			if res.RuntimeErr != nil {
				gotRuntime = res.RuntimeErr.Error()
			}
			if gotRuntime != tc.RuntimeError {
				t.Errorf("runtime error:\n  expected %q\n  got      %q", tc.RuntimeError, gotRuntime)
			}

			if code := res.ExitCode(); code != tc.ExitCode {
				t.Errorf("exit code: expected %d, got %d", tc.ExitCode, code)
			}
		})
	}
}

// ---- pipeline behavior ----

func TestRunStopsBeforeResolveOnSyntaxError(t *testing.T) {
	var buf bytes.Buffer
	// The 'return' would be a resolution error, but it must not be reported
	// because parsing already failed.
	res := New(&buf).Run("return 1;\nvar = 2;", "test.lox")
	if len(res.Diagnostics) != 1 {
		t.Fatalf("expected only the syntax error, got %v", res.Diagnostics)
	}
	if !strings.Contains(res.Diagnostics[0].Message, "Expect variable name.") {
		t.Errorf("unexpected diagnostic %v", res.Diagnostics[0])
	}
	if !res.Failed() || res.ExitCode() != ExitCompile {
		t.Errorf("expected failure with exit %d, got %d", ExitCompile, res.ExitCode())
	}
}

func TestRunSuccess(t *testing.T) {
	var buf bytes.Buffer
	res := New(&buf).Run(`print "ok";`, "test.lox")
	if res.Failed() {
		t.Fatalf("unexpected failure: %v %v", res.Diagnostics, res.RuntimeErr)
	}
	if res.ExitCode() != ExitOK {
		t.Errorf("expected exit 0, got %d", res.ExitCode())
	}
	if len(res.Tokens) != 4 {
		t.Errorf("expected 4 tokens, got %d", len(res.Tokens))
	}
	if res.Program == nil || len(res.Program.Stmts) != 1 {
		t.Errorf("expected a program with 1 statement")
	}
	if buf.String() != "ok\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestRuntimeErrorIsTyped(t *testing.T) {
	res := New(&bytes.Buffer{}).Run(`print -"x";`, "test.lox")
	var rerr *runtime.RuntimeError
	if !errors.As(res.RuntimeErr, &rerr) {
		t.Fatalf("expected *runtime.RuntimeError, got %v", res.RuntimeErr)
	}
	if rerr.Token.Lexeme != "-" {
		t.Errorf("expected error at '-', got %q", rerr.Token.Lexeme)
	}
	if res.ExitCode() != ExitRuntime {
		t.Errorf("expected exit %d, got %d", ExitRuntime, res.ExitCode())
	}
}

func TestRunnerKeepsStateBetweenRuns(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	steps := []string{
		"var greeting = \"hi\";",
		"fun greet(name) { return greeting + \" \" + name; }",
		"class Box { init(v) { this.v = v; } get() { return this.v; } }",
		"print oops;",
		"var b = Box(greet(\"there\"));",
		"print b.get();",
	}
	for _, src := range steps {
		r.Run(src, "<repl>")
	}
	if got := buf.String(); got != "hi there\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestRunnerGlobalRedefinitionAcrossRuns(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Run("fun f() { return 1; }", "<repl>")
	r.Run("var g = f;", "<repl>")
	r.Run("fun f() { return 2; }", "<repl>")
	r.Run("print g() + f();", "<repl>")
	if got := buf.String(); got != "3\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestTrace(t *testing.T) {
	var out, trace bytes.Buffer
	New(&out, WithTrace(&trace)).Run("print 1;", "test.lox")

	lines := strings.Split(strings.TrimRight(trace.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 trace lines, got %d: %q", len(lines), trace.String())
	}
	for i, stage := range []string{"scan: 4 tokens", "parse: 1 statements", "resolve: 0 locals", "interpret: ok=true"} {
		if !strings.HasPrefix(lines[i], "[trace] "+stage) {
			t.Errorf("line %d: expected prefix %q, got %q", i, "[trace] "+stage, lines[i])
		}
	}
}

func TestTraceRuntimeError(t *testing.T) {
	var trace bytes.Buffer
	New(&bytes.Buffer{}, WithTrace(&trace)).Run("print 1;\nprint -nil;", "test.lox")
	if !strings.Contains(trace.String(), "[trace] interpret: ok=false E4001 at 2:7") {
		t.Errorf("unexpected trace %q", trace.String())
	}
}

func TestInterpreterOptionsPassThrough(t *testing.T) {
	r := New(&bytes.Buffer{}, WithInterpreterOptions(runtime.WithMaxCallDepth(5)))
	res := r.Run("fun f(n) { return f(n + 1); }\nf(0);", "test.lox")
	if res.RuntimeErr == nil || !strings.HasPrefix(res.RuntimeErr.Error(), "Stack overflow.") {
		t.Errorf("expected stack overflow, got %v", res.RuntimeErr)
	}
}
