// Package lexer turns Ember source into tokens. It never stops on an error: bad
// input is reported through Options.Reporter and surfaces as token.Invalid.
package lexer

import (
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/token"
)

type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	look   *token.Token // 1 элементный буфер для токена
	// interp holds one brace depth per open "${" so the matching '}' resumes the string.
	interp []int
}

func New(file *source.File, opts Options) *Lexer {
	return &Lexer{
		file:   file,
		cursor: NewCursor(file),
		opts:   opts,
	}
}

// Next возвращает следующий значимый токен. После EOF всегда возвращает EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}

	lx.skipTrivia()

	if lx.cursor.EOF() {
		if len(lx.interp) > 0 {
			sp := lx.emptySpan()
			lx.errLex(diag.LexUnterminatedString, sp, "unterminated string interpolation")
			lx.interp = lx.interp[:0]
		}
		return token.Token{Kind: token.EOF, Span: lx.emptySpan()}
	}

	ch := lx.cursor.Peek()
	switch {
	case isIdentStartByte(ch) || ch >= utf8RuneSelf:
		return lx.scanIdentOrKeyword()
	case isDec(ch):
		return lx.scanNumber()
	case ch == '"':
		start := lx.cursor.Mark()
		lx.cursor.Bump()
		return lx.scanStringPart(start, false)
	case ch == '{' && len(lx.interp) > 0:
		lx.interp[len(lx.interp)-1]++
	case ch == '}' && len(lx.interp) > 0:
		top := len(lx.interp) - 1
		if lx.interp[top] == 0 {
			lx.interp = lx.interp[:top]
			start := lx.cursor.Mark()
			lx.cursor.Bump()
			return lx.scanStringPart(start, true)
		}
		lx.interp[top]--
	}
	return lx.scanOperatorOrPunct()
}

// Peek возвращает следующий токен, не потребляя его.
func (lx *Lexer) Peek() token.Token {
	if lx.look != nil {
		return *lx.look
	}
	t := lx.Next()
	lx.look = &t
	return t
}

// File returns the file being scanned.
func (lx *Lexer) File() *source.File { return lx.file }

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) text(sp source.Span) string {
	return string(lx.file.Content[sp.Start:sp.End])
}

// Tokenize scans the whole file, EOF included.
func Tokenize(file *source.File, opts Options) []token.Token {
	lx := New(file, opts)
	var out []token.Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}
