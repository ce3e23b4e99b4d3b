// Package diag provides the diagnostic type shared by the
// scanner, parser and resolver.
package diag

import (
	"fmt"
	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// Severity indicates the severity of a diagnostic.
type Severity int

const (
	Error Severity = iota
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "unknown"
}

// Stable diagnostic codes. E1xxx are lexical, E2xxx syntax, E3xxx
// resolution and E4xxx runtime errors.
const (
	CodeUnterminatedString = "E1001"
	CodeUnexpectedChar     = "E1002"

	CodeExpectToken       = "E2001"
	CodeExpectExpression  = "E2002"
	CodeInvalidAssignment = "E2003"
	CodeTooManyArgs       = "E2004"

	CodeDuplicateLocal   = "E3001"
	CodeSelfInitializer  = "E3002"
	CodeTopLevelReturn   = "E3003"
	CodeInitializerValue = "E3004"
	CodeThisOutsideClass = "E3005"
	CodeSuperOutside     = "E3006"
	CodeSuperNoSuper     = "E3007"
	CodeSelfInheritance  = "E3008"

	CodeRuntime = "E4001"
)

// Diagnostic represents a single reported problem.
type Diagnostic struct {
	Code     string    `json:"code"`            // stable error code, e.g. "E2001"
	Severity Severity  `json:"severity"`        // currently always Error
	Message  string    `json:"message"`         // human-readable description
	Where    string    `json:"where,omitempty"` // "", " at end" or " at 'x'"
	Span     span.Span `json:"span"`            // source location
}

// String renders the diagnostic as `[line N] Error<where>: <message>`.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] Error%s: %s", d.Span.Start.Line, d.Where, d.Message)
}

// Error makes Diagnostic usable as an error value.
func (d Diagnostic) Error() string { return d.String() }

// Errorf creates an error diagnostic at the given span with no location suffix.
func Errorf(code string, s span.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		Span:     s,
	}
}

// AtToken creates an error diagnostic located at tok, rendering as
// " at end" for EOF and " at '<lexeme>'" otherwise.
func AtToken(code string, tok token.Token, message string) Diagnostic {
	d := Diagnostic{
		Code:     code,
		Severity: Error,
		Message:  message,
		Span:     tok.Span,
	}
	if tok.Kind == token.EOF {
		d.Where = " at end"
	} else {
		d.Where = " at '" + tok.Lexeme + "'"
	}
	return d
}

// HasErrors reports whether any diagnostic in the list is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
