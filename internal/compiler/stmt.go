package compiler

import (
	"errors"

	"ember/internal/bytecode"
	"ember/internal/codegen"
	"ember/internal/diag"
	"ember/internal/object"
	"ember/internal/token"
)

func (p *parser) declaration() {
	switch {
	case p.match(token.KwVar):
		p.varDeclaration(false)
	case p.match(token.KwConst):
		p.varDeclaration(true)
	case p.check(token.KwFunc) && p.lx.Peek().Kind == token.Ident:
		p.advance() // func
		p.advance() // имя функции
		p.funcDeclaration()
	case p.match(token.KwClass):
		p.classDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(token.KwIf):
		p.ifStatement()
	case p.match(token.KwWhile):
		p.whileStatement()
	case p.match(token.KwFor):
		p.forStatement()
	case p.match(token.KwBreak):
		p.breakStatement()
	case p.match(token.KwContinue):
		p.continueStatement()
	case p.match(token.KwReturn):
		p.returnStatement()
	case p.match(token.LBrace):
		p.e.BeginScope()
		p.block()
		p.e.EndScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	open := p.prev
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		p.declaration()
	}
	if !p.match(token.RBrace) {
		p.errorAt(open, diag.SynUnclosedBrace, "unclosed '{'")
	}
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consumeSemicolon()
	p.e.EmitOp(bytecode.OpPop)
}

// binding is a freshly declared name: a global slot or the newest local.
type binding struct {
	global bool
	slot   int
}

// declareName binds the identifier in p.prev in the current scope. Locals start
// uninitialized; defineName makes them visible.
func (p *parser) declareName(isConst bool) binding {
	tok := p.prev
	if p.e.ScopeDepth() == 0 && !p.e.InFunction() {
		idx, err := p.e.Globals().Declare(tok.Text, isConst)
		if err != nil {
			p.redefined(tok, err)
		}
		return binding{global: true, slot: idx}
	}
	slot, err := p.e.AddLocal(tok.Text, isConst)
	if err != nil {
		p.redefined(tok, err)
	}
	return binding{slot: slot}
}

func (p *parser) redefined(tok token.Token, err error) {
	if errors.Is(err, codegen.ErrRedefined) {
		p.errorAt(tok, diag.SemRedefined, "'"+tok.Text+"' is already defined in this scope")
		return
	}
	p.errorAt(tok, diag.SemRedefined, err.Error())
}

// defineName stores the value on top of the stack into b.
func (p *parser) defineName(b binding) {
	if b.global {
		p.e.EmitGlobal(bytecode.OpDefineGlobal, b.slot)
		return
	}
	p.e.MarkInitialized()
}

func (p *parser) varDeclaration(isConst bool) {
	if !p.consume(token.Ident, diag.SynExpectIdentifier, "expected variable name") {
		return
	}
	name := p.prev
	b := p.declareName(isConst)
	switch {
	case p.match(token.Assign):
		p.expression()
	case isConst:
		p.errorAt(name, diag.SemConstWithoutValue, "const '"+name.Text+"' needs a value")
	default:
		p.e.EmitOp(bytecode.OpNull)
	}
	p.consumeSemicolon()
	p.defineName(b)
}

func (p *parser) funcDeclaration() {
	name := p.prev
	b := p.declareName(false)
	// a function may refer to itself
	if !b.global {
		p.e.MarkInitialized()
	}
	p.function(name.Text, codegen.KindFunction)
	if b.global {
		p.e.EmitGlobal(bytecode.OpDefineGlobal, b.slot)
	}
}

// function compiles a parameter list and body and leaves the closure on the stack.
func (p *parser) function(name string, kind codegen.FuncKind) {
	p.consume(token.LParen, diag.SynUnexpectedToken, "expected '(' after function name")
	var params []token.Token
	if !p.check(token.RParen) {
		for {
			if !p.consume(token.Ident, diag.SynExpectIdentifier, "expected parameter name") {
				break
			}
			params = append(params, p.prev)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RParen, diag.SynUnclosedParen, "expected ')' after parameters")
	p.consume(token.LBrace, diag.SynUnexpectedToken, "expected '{' before function body")

	p.e.DeclareFunction(name, len(params), kind)
	saved := p.loops
	p.loops = nil
	for _, param := range params {
		if _, err := p.e.AddLocal(param.Text, false); err != nil {
			p.redefined(param, err)
		}
		p.e.MarkInitialized()
	}
	p.block()
	p.loops = saved
	p.e.EndFunction()
}

func (p *parser) classDeclaration() {
	if !p.consume(token.Ident, diag.SynExpectIdentifier, "expected class name") {
		return
	}
	name := p.prev
	b := p.declareName(false)
	p.e.EmitClass(name.Text)
	p.defineName(b)
	if b.global {
		p.e.EmitGlobal(bytecode.OpGetGlobal, b.slot)
	} else {
		p.e.EmitLocal(bytecode.OpGetLocal, b.slot)
	}

	open := p.cur
	p.consume(token.LBrace, diag.SynUnexpectedToken, "expected '{' before class body")
	seen := make(map[string]bool)
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		p.member(seen)
		if p.panicMode {
			p.synchronizeMember()
		}
	}
	if !p.match(token.RBrace) {
		p.errorAt(open, diag.SynUnclosedBrace, "unclosed class body")
	}
	p.e.EmitOp(bytecode.OpPop)
}

// member compiles one attribute: [visibility] (var|const|func) name ...
func (p *parser) member(seen map[string]bool) {
	vis := object.Public
	switch {
	case p.match(token.KwPublic):
	case p.match(token.KwProtected):
		vis = object.Protected
	case p.match(token.KwPrivate):
		vis = object.Private
	}

	switch {
	case p.match(token.KwVar), p.match(token.KwConst):
		isConst := p.prev.Kind == token.KwConst
		if !p.consume(token.Ident, diag.SynExpectIdentifier, "expected attribute name") {
			return
		}
		name := p.prev
		p.checkDuplicate(seen, name)
		switch {
		case p.match(token.Assign):
			p.expression()
		case isConst:
			p.errorAt(name, diag.SemConstWithoutValue, "const attribute '"+name.Text+"' needs a value")
		default:
			p.e.EmitOp(bytecode.OpNull)
		}
		p.consumeSemicolon()
		p.e.DeclareClassAttribute(name.Text, object.MakeTag(vis, isConst, false))
	case p.match(token.KwFunc):
		if !p.consume(token.Ident, diag.SynExpectIdentifier, "expected method name") {
			return
		}
		name := p.prev
		p.checkDuplicate(seen, name)
		kind := codegen.KindMethod
		if name.Text == initName {
			kind = codegen.KindInitializer
		}
		p.function(name.Text, kind)
		p.e.DeclareClassAttribute(name.Text, object.MakeTag(vis, true, true))
	default:
		p.errorAtCurrent(diag.SynUnexpectedToken, "expected 'var', 'const' or 'func' in class body, found "+describe(p.cur))
	}
}

// initName is the method run when a class is called.
const initName = "init"

func (p *parser) checkDuplicate(seen map[string]bool, name token.Token) {
	if seen[name.Text] {
		p.errorAt(name, diag.SemDuplicateAttribute, "attribute '"+name.Text+"' is declared twice")
		return
	}
	seen[name.Text] = true
}

func (p *parser) synchronizeMember() {
	p.panicMode = false
	for !p.check(token.EOF) && !p.check(token.RBrace) {
		if p.prev.Kind == token.Semicolon {
			return
		}
		switch p.cur.Kind {
		case token.KwPublic, token.KwProtected, token.KwPrivate, token.KwVar, token.KwConst, token.KwFunc:
			return
		}
		p.advance()
	}
}

func (p *parser) condition() {
	p.consume(token.LParen, diag.SynUnexpectedToken, "expected '(' before condition")
	p.expression()
	p.consume(token.RParen, diag.SynUnclosedParen, "expected ')' after condition")
}

func (p *parser) ifStatement() {
	p.condition()
	thenJump := p.e.ReserveJump(bytecode.OpJumpIfFalse)
	p.e.EmitOp(bytecode.OpPop)
	p.statement()
	elseJump := p.e.ReserveJump(bytecode.OpJump)
	p.e.PatchJump(thenJump)
	p.e.EmitOp(bytecode.OpPop)
	if p.match(token.KwElse) {
		p.statement()
	}
	p.e.PatchJump(elseJump)
}

func (p *parser) pushLoop(continueTarget int) *loopState {
	l := &loopState{continueTarget: continueTarget, depth: p.e.ScopeDepth()}
	p.loops = append(p.loops, l)
	return l
}

func (p *parser) popLoop() {
	l := p.loops[len(p.loops)-1]
	p.loops = p.loops[:len(p.loops)-1]
	for _, j := range l.breaks {
		p.e.PatchJump(j)
	}
}

func (p *parser) whileStatement() {
	start := p.e.Offset()
	p.condition()
	exit := p.e.ReserveJump(bytecode.OpJumpIfFalse)
	p.e.EmitOp(bytecode.OpPop)
	p.pushLoop(start)
	p.statement()
	p.e.EmitLoop(start)
	p.e.PatchJump(exit)
	p.e.EmitOp(bytecode.OpPop)
	p.popLoop()
}

func (p *parser) forStatement() {
	p.e.BeginScope()
	p.consume(token.LParen, diag.SynUnexpectedToken, "expected '(' after 'for'")
	switch {
	case p.match(token.Semicolon):
	case p.match(token.KwVar):
		p.varDeclaration(false)
	default:
		p.expressionStatement()
	}

	start := p.e.Offset()
	exit, hasExit := codegen.Jump(0), false
	if !p.match(token.Semicolon) {
		p.expression()
		p.consumeSemicolon()
		exit, hasExit = p.e.ReserveJump(bytecode.OpJumpIfFalse), true
		p.e.EmitOp(bytecode.OpPop)
	}
	if !p.match(token.RParen) {
		body := p.e.ReserveJump(bytecode.OpJump)
		incr := p.e.Offset()
		p.expression()
		p.e.EmitOp(bytecode.OpPop)
		p.consume(token.RParen, diag.SynUnclosedParen, "expected ')' after for clauses")
		p.e.EmitLoop(start)
		start = incr
		p.e.PatchJump(body)
	}

	p.pushLoop(start)
	p.statement()
	p.e.EmitLoop(start)
	if hasExit {
		p.e.PatchJump(exit)
		p.e.EmitOp(bytecode.OpPop)
	}
	p.popLoop()
	p.e.EndScope()
}

func (p *parser) innermostLoop(what string) *loopState {
	if len(p.loops) == 0 {
		p.error(diag.SemBreakOutsideLoop, "'"+what+"' outside of a loop")
		return nil
	}
	return p.loops[len(p.loops)-1]
}

func (p *parser) breakStatement() {
	l := p.innermostLoop("break")
	p.consumeSemicolon()
	if l == nil {
		return
	}
	p.e.EmitPopsTo(l.depth)
	l.breaks = append(l.breaks, p.e.ReserveJump(bytecode.OpJump))
}

func (p *parser) continueStatement() {
	l := p.innermostLoop("continue")
	p.consumeSemicolon()
	if l == nil {
		return
	}
	p.e.EmitPopsTo(l.depth)
	p.e.EmitLoop(l.continueTarget)
}

func (p *parser) returnStatement() {
	kw := p.prev
	if !p.e.InFunction() {
		p.errorAt(kw, diag.SemReturnOutsideFunc, "'return' outside of a function")
	}
	if p.match(token.Semicolon) {
		p.e.EmitReturn()
		return
	}
	if p.e.Kind() == codegen.KindInitializer {
		p.errorAt(kw, diag.SemReturnValueInInit, "an initializer cannot return a value")
	}
	p.expression()
	p.consumeSemicolon()
	p.e.EmitOp(bytecode.OpReturn)
}
