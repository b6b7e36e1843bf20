package compiler

import (
	"errors"

	"ember/internal/bytecode"
	"ember/internal/codegen"
	"ember/internal/diag"
	"ember/internal/object"
	"ember/internal/token"
)

type precedence uint8

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precComparison
	precShift
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type (
	prefixFn func(p *parser, canAssign bool)
	infixFn  func(p *parser, canAssign bool)
)

type rule struct {
	prefix prefixFn
	infix  infixFn
	prec   precedence
}

var rules [256]rule

func init() {
	set := func(k token.Kind, prefix prefixFn, infix infixFn, prec precedence) {
		rules[k] = rule{prefix: prefix, infix: infix, prec: prec}
	}
	set(token.LParen, (*parser).grouping, (*parser).call, precCall)
	set(token.LBracket, (*parser).arrayLiteral, (*parser).index, precCall)
	set(token.Dot, nil, (*parser).dot, precCall)
	set(token.Minus, (*parser).unary, (*parser).binary, precTerm)
	set(token.Plus, nil, (*parser).binary, precTerm)
	set(token.Star, nil, (*parser).binary, precFactor)
	set(token.Slash, nil, (*parser).binary, precFactor)
	set(token.Percent, nil, (*parser).binary, precFactor)
	set(token.Bang, (*parser).unary, nil, precNone)
	set(token.Tilde, (*parser).unary, nil, precNone)
	set(token.EqEq, nil, (*parser).binary, precEquality)
	set(token.BangEq, nil, (*parser).binary, precEquality)
	set(token.Lt, nil, (*parser).binary, precComparison)
	set(token.LtEq, nil, (*parser).binary, precComparison)
	set(token.Gt, nil, (*parser).binary, precComparison)
	set(token.GtEq, nil, (*parser).binary, precComparison)
	set(token.Shl, nil, (*parser).binary, precShift)
	set(token.Shr, nil, (*parser).binary, precShift)
	set(token.UShr, nil, (*parser).binary, precShift)
	set(token.Amp, nil, (*parser).binary, precBitAnd)
	set(token.Caret, nil, (*parser).binary, precBitXor)
	set(token.Pipe, nil, (*parser).binary, precBitOr)
	set(token.AndAnd, nil, (*parser).and, precAnd)
	set(token.OrOr, nil, (*parser).or, precOr)
	set(token.Ident, (*parser).variable, nil, precNone)
	set(token.IntLit, (*parser).intLiteral, nil, precNone)
	set(token.FloatLit, (*parser).floatLiteral, nil, precNone)
	set(token.StringLit, (*parser).stringLiteral, nil, precNone)
	set(token.StrHead, (*parser).interpolation, nil, precNone)
	set(token.KwTrue, (*parser).literal, nil, precNone)
	set(token.KwFalse, (*parser).literal, nil, precNone)
	set(token.KwNull, (*parser).literal, nil, precNone)
	set(token.KwThis, (*parser).this, nil, precNone)
	set(token.KwFunc, (*parser).funcExpr, nil, precNone)
	for _, k := range []token.Kind{token.KwBool, token.KwInt, token.KwFloat, token.KwStr} {
		set(k, (*parser).cast, nil, precNone)
	}
}

var binaryOps = map[token.Kind]bytecode.Op{
	token.Plus:    bytecode.OpAdd,
	token.Minus:   bytecode.OpSub,
	token.Star:    bytecode.OpMul,
	token.Slash:   bytecode.OpDiv,
	token.Percent: bytecode.OpMod,
	token.Amp:     bytecode.OpBitAnd,
	token.Pipe:    bytecode.OpBitOr,
	token.Caret:   bytecode.OpBitXor,
	token.Shl:     bytecode.OpShl,
	token.Shr:     bytecode.OpShr,
	token.UShr:    bytecode.OpUShr,
	token.EqEq:    bytecode.OpEqual,
	token.BangEq:  bytecode.OpNotEqual,
	token.Lt:      bytecode.OpLess,
	token.LtEq:    bytecode.OpLessEqual,
	token.Gt:      bytecode.OpGreater,
	token.GtEq:    bytecode.OpGreaterEqual,
}

var castTargets = map[token.Kind]bytecode.CastTarget{
	token.KwBool:  bytecode.CastBool,
	token.KwInt:   bytecode.CastInt,
	token.KwFloat: bytecode.CastFloat,
	token.KwStr:   bytecode.CastStr,
}

func (p *parser) expression() { p.parsePrecedence(precAssignment) }

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := rules[p.prev.Kind].prefix
	if prefix == nil {
		p.error(diag.SynExpectExpression, "expected expression, found "+describe(p.prev))
		return
	}
	canAssign := prec <= precAssignment
	prefix(p, canAssign)

	for prec <= rules[p.cur.Kind].prec {
		p.leftKind = p.prev.Kind
		p.advance()
		rules[p.prev.Kind].infix(p, canAssign)
	}

	if canAssign && isAssignOp(p.cur.Kind) {
		p.advance()
		p.error(diag.SynInvalidAssign, "invalid assignment target")
	}
}

func isAssignOp(k token.Kind) bool {
	if k == token.Assign {
		return true
	}
	_, ok := k.CompoundBase()
	return ok
}

// assignment consumes '=' or a compound operator if one follows. For a compound
// operator it returns the binary opcode to apply.
func (p *parser) assignment(canAssign bool) (op bytecode.Op, compound, ok bool) {
	if !canAssign || !isAssignOp(p.cur.Kind) {
		return 0, false, false
	}
	p.advance()
	if base, isCompound := p.prev.Kind.CompoundBase(); isCompound {
		return binaryOps[base], true, true
	}
	return 0, false, true
}

func (p *parser) binary(bool) {
	opTok := p.prev
	p.parsePrecedence(rules[opTok.Kind].prec + 1)
	p.e.EmitOp(binaryOps[opTok.Kind])
}

func (p *parser) unary(bool) {
	opTok := p.prev
	p.parsePrecedence(precUnary)
	switch opTok.Kind {
	case token.Minus:
		p.e.EmitOp(bytecode.OpNeg)
	case token.Bang:
		p.e.EmitOp(bytecode.OpNot)
	case token.Tilde:
		p.e.EmitOp(bytecode.OpBitNot)
	}
}

// and leaves the left operand when it is falsy; OpJumpIfFalse does not pop.
func (p *parser) and(bool) {
	end := p.e.ReserveJump(bytecode.OpJumpIfFalse)
	p.e.EmitOp(bytecode.OpPop)
	p.parsePrecedence(precAnd)
	p.e.PatchJump(end)
}

func (p *parser) or(bool) {
	elseJump := p.e.ReserveJump(bytecode.OpJumpIfFalse)
	end := p.e.ReserveJump(bytecode.OpJump)
	p.e.PatchJump(elseJump)
	p.e.EmitOp(bytecode.OpPop)
	p.parsePrecedence(precOr)
	p.e.PatchJump(end)
}

func (p *parser) grouping(bool) {
	open := p.prev
	p.expression()
	if !p.match(token.RParen) {
		p.errorAt(open, diag.SynUnclosedParen, "unclosed '('")
	}
}

func (p *parser) literal(bool) {
	switch p.prev.Kind {
	case token.KwTrue:
		p.e.EmitOp(bytecode.OpTrue)
	case token.KwFalse:
		p.e.EmitOp(bytecode.OpFalse)
	case token.KwNull:
		p.e.EmitOp(bytecode.OpNull)
	}
}

func (p *parser) intLiteral(bool) {
	tok := p.prev
	v, err := object.ParseInt(tok.Text)
	if err != nil {
		if errors.Is(err, object.ErrIntRange) {
			p.errorAt(tok, diag.LexIntOverflow, "integer literal "+tok.Text+" is out of range")
		} else {
			p.errorAt(tok, diag.LexBadNumber, "malformed integer literal "+tok.Text)
		}
		return
	}
	p.e.EmitConstant(object.Int(v))
}

func (p *parser) floatLiteral(bool) {
	tok := p.prev
	f, err := object.ParseFloat(tok.Text)
	if err != nil {
		p.errorAt(tok, diag.LexBadNumber, "malformed float literal "+tok.Text)
		return
	}
	p.e.EmitConstant(object.Float(f))
}

func (p *parser) emitString(s string) {
	p.e.EmitConstant(object.Obj(p.e.Heap().InternString(s)))
}

func (p *parser) stringLiteral(bool) { p.emitString(p.prev.Value) }

// interpolation compiles "a${x}b${y}c" as "a" + str(x) + "b" + str(y) + "c",
// leaving out empty text parts.
func (p *parser) interpolation(bool) {
	have := false
	part := func(s string) {
		if s == "" {
			return
		}
		p.emitString(s)
		if have {
			p.e.EmitOp(bytecode.OpAdd)
		}
		have = true
	}
	part(p.prev.Value)
	for {
		p.expression()
		p.e.EmitCast(bytecode.CastStr)
		if have {
			p.e.EmitOp(bytecode.OpAdd)
		}
		have = true
		switch {
		case p.match(token.StrMid):
			part(p.prev.Value)
			continue
		case p.match(token.StrTail):
			part(p.prev.Value)
		default:
			p.errorAtCurrent(diag.LexUnterminatedString, "expected '}' closing the interpolation")
		}
		return
	}
}

func (p *parser) arrayLiteral(bool) {
	open := p.prev
	n := 0
	for !p.check(token.RBracket) && !p.check(token.EOF) {
		p.expression()
		n++
		if !p.match(token.Comma) {
			break
		}
	}
	if !p.match(token.RBracket) {
		p.errorAt(open, diag.SynUnclosedBracket, "unclosed '['")
		return
	}
	p.e.EmitWide(bytecode.OpArray, uint64(n))
}

func (p *parser) cast(bool) {
	target := castTargets[p.prev.Kind]
	p.consume(token.LParen, diag.SynUnexpectedToken, "expected '(' after "+target.String())
	p.expression()
	p.consume(token.RParen, diag.SynUnclosedParen, "expected ')' after cast operand")
	p.e.EmitCast(target)
}

func (p *parser) funcExpr(bool) {
	p.function("anonymous", codegen.KindFunction)
}

func (p *parser) variable(canAssign bool) {
	p.namedVariable(p.prev, canAssign)
}

func (p *parser) this(bool) {
	if !p.e.InMethod() {
		p.error(diag.SemThisOutsideMethod, "'this' outside of a method")
		return
	}
	p.namedVariable(p.prev, false)
}

func (p *parser) namedVariable(tok token.Token, canAssign bool) {
	name := tok.Text
	var (
		get, set bytecode.Op
		arg      int
		isConst  bool
	)
	if slot, l, ok := p.e.ResolveLocal(name); ok {
		if !l.Initialized {
			p.errorAt(tok, diag.SemOwnInitializer, "cannot read '"+name+"' in its own initializer")
		}
		get, set, arg, isConst = bytecode.OpGetLocal, bytecode.OpSetLocal, slot, l.Const
	} else if idx, up, ok := p.e.ResolveUpvalue(name); ok {
		get, set, arg, isConst = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue, idx, up.Const
	} else {
		idx, c := p.e.Globals().Reference(name)
		get, set, arg, isConst = bytecode.OpGetGlobal, bytecode.OpSetGlobal, idx, c
	}

	op, compound, assign := p.assignment(canAssign)
	if !assign {
		p.e.EmitWide(get, uint64(arg))
		return
	}
	if isConst {
		p.errorAt(tok, diag.SemConstAssign, "cannot assign to const '"+name+"'")
	}
	if compound {
		p.e.EmitWide(get, uint64(arg))
		p.expression()
		p.e.EmitOp(op)
	} else {
		p.expression()
	}
	p.e.EmitWide(set, uint64(arg))
}

func (p *parser) call(bool) {
	open := p.prev
	argc := 0
	for !p.check(token.RParen) && !p.check(token.EOF) {
		p.expression()
		argc++
		if !p.match(token.Comma) {
			break
		}
	}
	if !p.match(token.RParen) {
		p.errorAt(open, diag.SynUnclosedParen, "expected ')' after arguments")
		return
	}
	p.e.EmitCall(argc)
}

// dot compiles attribute access. A receiver written as bare `this` uses the
// this-relative opcodes, which see non-public attributes.
func (p *parser) dot(canAssign bool) {
	onThis := p.leftKind == token.KwThis
	if !p.consume(token.Ident, diag.SynExpectIdentifier, "expected attribute name after '.'") {
		return
	}
	name := p.prev.Text
	get, set := bytecode.OpGetAttr, bytecode.OpSetAttr
	if onThis {
		get, set = bytecode.OpGetThisAttr, bytecode.OpSetThisAttr
	}

	op, compound, assign := p.assignment(canAssign)
	switch {
	case !assign:
		p.e.EmitAttrOp(get, name)
	case compound:
		p.e.EmitOp(bytecode.OpDup)
		p.e.EmitAttrOp(get, name)
		p.expression()
		p.e.EmitOp(op)
		p.e.EmitAttrOp(set, name)
	default:
		p.expression()
		p.e.EmitAttrOp(set, name)
	}
}

func (p *parser) index(canAssign bool) {
	open := p.prev
	p.expression()
	if !p.match(token.RBracket) {
		p.errorAt(open, diag.SynUnclosedBracket, "unclosed '['")
		return
	}
	op, compound, assign := p.assignment(canAssign)
	switch {
	case !assign:
		p.e.EmitOp(bytecode.OpGetIndex)
	case compound:
		p.e.EmitOp(bytecode.OpDup2)
		p.e.EmitOp(bytecode.OpGetIndex)
		p.expression()
		p.e.EmitOp(op)
		p.e.EmitOp(bytecode.OpSetIndex)
	default:
		p.expression()
		p.e.EmitOp(bytecode.OpSetIndex)
	}
}
