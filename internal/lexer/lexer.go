// Package lexer implements the lexical analysis (tokenization) for Lox.
package lexer

import (
	"lox-lang/internal/diag"
	"lox-lang/internal/span"
	"lox-lang/internal/token"
	"strconv"
)

// Lexer tokenizes source code into a sequence of tokens.
type Lexer struct {
	source   string
	filename string

	pos  int // current read position in source
	line int // current line (1-based)
	col  int // current column (1-based)

	diags []diag.Diagnostic
}

// New creates a new Lexer for the given source text.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

// Filename returns the name the source was loaded from.
func (l *Lexer) Filename() string {
	return l.filename
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
// The token slice always ends with an EOF token. Characters that cannot start
// a token are reported and skipped; they never appear in the output.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok, ok := l.nextToken()
		if !ok {
			continue
		}
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return tokens, l.diags
}

// ---- internal helpers ----

// peek returns the current character without advancing, or 0 if at end.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

// peekNext returns the character after current, or 0 if at end.
func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

// advance consumes the current character and returns it.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// matchNext consumes the current character if it equals expected.
func (l *Lexer) matchNext(expected byte) bool {
	if l.pos >= len(l.source) || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

// curPos returns the current position as a span.Position.
func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// makeSpan returns a span from start to current position.
func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

// skipWhitespace skips blanks, newlines and // comments.
func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '/':
			if l.peekNext() != '/' {
				return
			}
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// addError records a lexical diagnostic.
func (l *Lexer) addError(code string, s span.Span, msg string) {
	l.diags = append(l.diags, diag.Errorf(code, s, "%s", msg))
}

func (l *Lexer) makeToken(kind token.Kind, start span.Position) token.Token {
	return token.Token{
		Kind:   kind,
		Lexeme: l.source[start.Offset:l.pos],
		Span:   l.makeSpan(start),
	}
}

// ---- token reading ----

// nextToken scans one token. ok is false when the scanned text produced no
// token (a reported lexical error).
func (l *Lexer) nextToken() (tok token.Token, ok bool) {
	l.skipWhitespace()

	start := l.curPos()
	if l.isAtEnd() {
		return token.Token{Kind: token.EOF, Lexeme: "", Span: l.makeSpan(start)}, true
	}

	ch := l.peek()
	switch {
	case ch == '"':
		return l.readString(start)
	case isDigit(ch):
		return l.readNumber(start), true
	case isIdentStart(ch):
		return l.readIdentifier(start), true
	}
	return l.readOperator(start)
}

// readString reads a double-quoted string. Strings have no escape sequences
// and may span lines.
func (l *Lexer) readString(start span.Position) (token.Token, bool) {
	l.advance() // skip opening "

	for !l.isAtEnd() && l.peek() != '"' {
		l.advance()
	}

	if l.isAtEnd() {
		l.addError(diag.CodeUnterminatedString, l.makeSpan(l.curPos()), "Unterminated string.")
		return token.Token{}, false
	}

	l.advance() // skip closing "
	tok := l.makeToken(token.STRING, start)
	tok.Literal = l.source[start.Offset+1 : l.pos-1]
	return tok, true
}

// readNumber reads a number literal: digits with an optional fraction.
func (l *Lexer) readNumber(start span.Position) token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}

	// A '.' is only part of the number when a digit follows it.
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance() // skip '.'
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	tok := l.makeToken(token.NUMBER, start)
	val, _ := strconv.ParseFloat(tok.Lexeme, 64)
	tok.Literal = val
	return tok
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(start span.Position) token.Token {
	for isIdentPart(l.peek()) {
		l.advance()
	}

	tok := l.makeToken(token.IDENT, start)
	tok.Kind = token.LookupIdent(tok.Lexeme)
	return tok
}

// readOperator reads an operator or delimiter token.
func (l *Lexer) readOperator(start span.Position) (token.Token, bool) {
	ch := l.advance()

	var kind token.Kind
	switch ch {
	case '(':
		kind = token.LPAREN
	case ')':
		kind = token.RPAREN
	case '{':
		kind = token.LBRACE
	case '}':
		kind = token.RBRACE
	case ',':
		kind = token.COMMA
	case '.':
		kind = token.DOT
	case '-':
		kind = token.MINUS
	case '+':
		kind = token.PLUS
	case ';':
		kind = token.SEMICOLON
	case '*':
		kind = token.STAR
	case '/':
		kind = token.SLASH
	case '!':
		kind = token.BANG
		if l.matchNext('=') {
			kind = token.NEQ
		}
	case '=':
		kind = token.ASSIGN
		if l.matchNext('=') {
			kind = token.EQ
		}
	case '<':
		kind = token.LT
		if l.matchNext('=') {
			kind = token.LTE
		}
	case '>':
		kind = token.GT
		if l.matchNext('=') {
			kind = token.GTE
		}
	default:
		// One report per character, not per byte of a multi-byte sequence.
		for ch >= 0x80 && l.peek()&0xC0 == 0x80 {
			l.advance()
		}
		l.addError(diag.CodeUnexpectedChar, l.makeSpan(start), "Unexpected character.")
		return token.Token{}, false
	}
	return l.makeToken(kind, start), true
}

// ---- character classification ----

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
