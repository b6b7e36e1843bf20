// Package compiler is Ember's single-pass front end: a precedence-climbing parser
// that resolves names and drives codegen.Emitter directly, without building a tree.
package compiler

import (
	"errors"
	"fmt"

	"ember/internal/bytecode"
	"ember/internal/codegen"
	"ember/internal/diag"
	"ember/internal/lexer"
	"ember/internal/object"
	"ember/internal/source"
	"ember/internal/token"
	"ember/internal/trace"
)

// ErrCompile is returned when the unit produced at least one error diagnostic.
var ErrCompile = errors.New("compilation failed")

// Session is the state shared by every unit compiled into one chunk: the heap,
// the chunk itself and the global name table.
type Session struct {
	Heap    *object.Heap
	Chunk   *bytecode.Chunk
	Globals *codegen.Globals
}

// NewSession creates a session with an empty chunk.
func NewSession(heap *object.Heap) *Session {
	c := bytecode.NewChunk()
	return &Session{Heap: heap, Chunk: c, Globals: codegen.NewGlobals(heap, c)}
}

// Options tune one compilation.
type Options struct {
	Reporter diag.Reporter
	// Tracer receives the relaxation span; nil disables it.
	Tracer trace.Tracer
	Span   *trace.Span
}

// Compile translates file into bytecode appended to the session chunk and returns
// the entry offset. On error nothing is appended and globals declared by the unit
// are forgotten.
func (s *Session) Compile(file *source.File, opts Options) (int, error) {
	mark := s.Globals.Mark()
	p := &parser{
		file: file,
		rep:  opts.Reporter,
		e:    codegen.New(s.Heap, s.Chunk, s.Globals),
	}
	if opts.Tracer != nil {
		p.e.Trace(opts.Tracer, opts.Span)
	}
	p.lx = lexer.New(file, lexer.Options{Reporter: diag.ReportFunc(p.lexError)})
	p.advance()
	for !p.check(token.EOF) {
		p.declaration()
	}
	if p.hadError {
		s.Globals.Rollback(mark)
		return 0, ErrCompile
	}
	entry, err := p.e.Finish()
	if err != nil {
		s.Globals.Rollback(mark)
		return 0, fmt.Errorf("codegen: %w", err)
	}
	return entry, nil
}

type loopState struct {
	continueTarget int
	depth          int
	breaks         []codegen.Jump
}

type parser struct {
	file *source.File
	lx   *lexer.Lexer
	e    *codegen.Emitter
	rep  diag.Reporter

	cur, prev token.Token

	hadError  bool
	panicMode bool

	// innermost last; reset while compiling a nested function body
	loops []*loopState
	// kind of the token just before the current infix operator
	leftKind token.Kind
}

func (p *parser) lineOf(tok token.Token) int {
	return int(p.file.Position(tok.Span.Start).Line)
}

func (p *parser) advance() {
	p.prev = p.cur
	for {
		p.cur = p.lx.Next()
		if p.cur.Kind != token.Invalid {
			break
		}
		// the lexer already reported it
		p.hadError = true
		p.panicMode = true
	}
	if p.prev.Kind != token.Invalid {
		p.e.SetLine(p.lineOf(p.prev))
	}
}

func (p *parser) check(k token.Kind) bool { return p.cur.Kind == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Kind, code diag.Code, msg string) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	p.errorAtCurrent(code, msg)
	return false
}

func (p *parser) consumeSemicolon() {
	if p.check(token.Semicolon) {
		p.advance()
		return
	}
	if p.panicMode {
		return
	}
	at := source.Span{File: p.prev.Span.File, Start: p.prev.Span.End, End: p.prev.Span.End}
	d := diag.NewError(diag.SynExpectSemicolon, at, "expected ';' after "+describe(p.prev)).
		WithFix("insert ';'", at, ";")
	p.report(d)
}

func (p *parser) lexError(d diag.Diagnostic) {
	// lexical errors always surface; they also start panic mode
	p.hadError = true
	p.panicMode = true
	if p.rep != nil {
		p.rep.Report(d)
	}
}

func (p *parser) errorAt(tok token.Token, code diag.Code, msg string) {
	if p.panicMode {
		return
	}
	p.report(diag.NewError(code, tok.Span, msg))
}

func (p *parser) report(d diag.Diagnostic) {
	p.panicMode = true
	p.hadError = true
	if p.rep != nil {
		p.rep.Report(d)
	}
}

func (p *parser) error(code diag.Code, msg string) { p.errorAt(p.prev, code, msg) }

func (p *parser) errorAtCurrent(code diag.Code, msg string) { p.errorAt(p.cur, code, msg) }

func describe(tok token.Token) string {
	switch tok.Kind {
	case token.EOF:
		return "end of input"
	case token.Ident:
		return fmt.Sprintf("identifier '%s'", tok.Text)
	}
	if tok.Text == "" {
		return tok.Kind.String()
	}
	return fmt.Sprintf("'%s'", tok.Text)
}

// synchronize skips to a likely statement boundary after an error.
func (p *parser) synchronize() {
	p.panicMode = false
	for !p.check(token.EOF) {
		if p.prev.Kind == token.Semicolon {
			return
		}
		switch p.cur.Kind {
		case token.KwClass, token.KwFunc, token.KwVar, token.KwConst, token.KwFor, token.KwIf,
			token.KwWhile, token.KwReturn, token.KwBreak, token.KwContinue,
			token.KwPublic, token.KwProtected, token.KwPrivate:
			return
		}
		p.advance()
	}
}
