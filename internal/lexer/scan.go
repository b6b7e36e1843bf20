package lexer

import (
	"strings"
	"unicode/utf8"

	"ember/internal/diag"
	"ember/internal/object"
	"ember/internal/token"
)

const utf8RuneSelf = 0x80

// skipTrivia пропускает пробелы, переводы строк и комментарии (// и вложенные /* */).
func (lx *Lexer) skipTrivia() {
	for !lx.cursor.EOF() {
		switch b := lx.cursor.Peek(); {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			lx.cursor.Bump()
		case b == '/' && lx.cursor.PeekAt(1) == '/':
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Bump()
			}
		case b == '/' && lx.cursor.PeekAt(1) == '*':
			lx.skipBlockComment()
		default:
			return
		}
	}
}

func (lx *Lexer) skipBlockComment() {
	start := lx.cursor.Mark()
	lx.cursor.Bump()
	lx.cursor.Bump()
	depth := 1
	for !lx.cursor.EOF() && depth > 0 {
		b0, b1 := lx.cursor.Peek(), lx.cursor.PeekAt(1)
		switch {
		case b0 == '/' && b1 == '*':
			lx.cursor.Bump()
			lx.cursor.Bump()
			depth++
		case b0 == '*' && b1 == '/':
			lx.cursor.Bump()
			lx.cursor.Bump()
			depth--
		default:
			lx.cursor.Bump()
		}
	}
	if depth > 0 {
		lx.errLex(diag.LexUnterminatedBlock, lx.cursor.SpanFrom(start), "unterminated block comment")
	}
}

// scanIdentOrKeyword сканирует идентификатор (ASCII или Unicode) и проверяет ключевые слова.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()
	r, _ := lx.peekRune()
	if !isIdentStartRune(r) {
		return lx.scanOperatorOrPunct()
	}
	lx.bumpRune()
	for {
		b := lx.cursor.Peek()
		if b < utf8RuneSelf {
			if !isIdentContinueByte(b) {
				break
			}
			lx.cursor.Bump()
			continue
		}
		r, sz := lx.peekRune()
		if sz == 0 || !isIdentContinueRune(r) {
			break
		}
		lx.bumpRune()
	}
	sp := lx.cursor.SpanFrom(start)
	text := lx.text(sp)
	if k, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: k, Span: sp, Text: text}
	}
	return token.Token{Kind: token.Ident, Span: sp, Text: text}
}

// scanNumber: 123, 1_000, 0x1F, 0b101, 0o17 (а также 0х, 0б, 0о), 1.5, 2e10, 1.5e-3.
// Проверка диапазона выполняется компилятором.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit

	if lx.cursor.Peek() == '0' {
		r, sz := lx.runeAt(1)
		if base := object.RadixPrefix(r); base != 0 {
			lx.cursor.Bump()
			lx.cursor.Off += uint32(sz)
			digits := 0
			for {
				b := lx.cursor.Peek()
				if b == '_' {
					lx.cursor.Bump()
					continue
				}
				if digitValue(b) >= base {
					break
				}
				lx.cursor.Bump()
				digits++
			}
			sp := lx.cursor.SpanFrom(start)
			if digits == 0 || isIdentContinueByte(lx.cursor.Peek()) {
				lx.eatIdentTail()
				sp = lx.cursor.SpanFrom(start)
				lx.errLex(diag.LexBadNumber, sp, "malformed number literal")
				return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
			}
			return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
		}
	}

	lx.eatDecimal()
	if lx.cursor.Peek() == '.' && isDec(lx.cursor.PeekAt(1)) {
		kind = token.FloatLit
		lx.cursor.Bump()
		lx.eatDecimal()
	}
	if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
		mark := lx.cursor.Mark()
		lx.cursor.Bump()
		if b := lx.cursor.Peek(); b == '+' || b == '-' {
			lx.cursor.Bump()
		}
		if isDec(lx.cursor.Peek()) {
			kind = token.FloatLit
			lx.eatDecimal()
		} else {
			lx.cursor.Reset(mark)
		}
	}
	if isIdentContinueByte(lx.cursor.Peek()) {
		lx.eatIdentTail()
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexBadNumber, sp, "malformed number literal")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
}

func (lx *Lexer) eatDecimal() {
	for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
		lx.cursor.Bump()
	}
}

func (lx *Lexer) eatIdentTail() {
	for isIdentContinueByte(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
}

// scanStringPart reads string text after an opening quote (or after the '}' that
// closes an interpolation when resumed) up to the closing quote or the next "${".
func (lx *Lexer) scanStringPart(start Mark, resumed bool) token.Token {
	var sb strings.Builder
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		switch {
		case b == '"':
			lx.cursor.Bump()
			kind := token.StringLit
			if resumed {
				kind = token.StrTail
			}
			sp := lx.cursor.SpanFrom(start)
			return token.Token{Kind: kind, Span: sp, Text: lx.text(sp), Value: sb.String()}
		case b == '$' && lx.cursor.PeekAt(1) == '{':
			lx.cursor.Bump()
			lx.cursor.Bump()
			lx.interp = append(lx.interp, 0)
			kind := token.StrHead
			if resumed {
				kind = token.StrMid
			}
			sp := lx.cursor.SpanFrom(start)
			return token.Token{Kind: kind, Span: sp, Text: lx.text(sp), Value: sb.String()}
		case b == '\\':
			lx.scanEscape(&sb)
		default:
			r, sz := lx.peekRune()
			if sz == 0 {
				lx.cursor.Bump()
				continue
			}
			sb.WriteRune(r)
			lx.bumpRune()
		}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

func (lx *Lexer) scanEscape(sb *strings.Builder) {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '\'
	b := lx.cursor.Bump()
	switch b {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case '0':
		sb.WriteByte(0)
	case '"', '\\', '$':
		sb.WriteByte(b)
	case 'u':
		if r, ok := lx.scanUnicodeEscape(); ok {
			sb.WriteRune(r)
			return
		}
		lx.errLex(diag.LexBadEscape, lx.cursor.SpanFrom(start), "invalid unicode escape, expected \\u{XXXX}")
	default:
		lx.errLex(diag.LexBadEscape, lx.cursor.SpanFrom(start), "unknown escape sequence")
	}
}

// \u{1F600}
func (lx *Lexer) scanUnicodeEscape() (rune, bool) {
	if !lx.cursor.Eat('{') {
		return 0, false
	}
	var r rune
	n := 0
	for isHex(lx.cursor.Peek()) && n < 6 {
		r = r<<4 | rune(digitValue(lx.cursor.Bump()))
		n++
	}
	if n == 0 || !lx.cursor.Eat('}') || !utf8.ValidRune(r) {
		return 0, false
	}
	return r, true
}

// Жадность: сначала 4-символьные, затем 3, 2 и 1.
func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	emit := func(k token.Kind) token.Token {
		sp := lx.cursor.SpanFrom(start)
		return token.Token{Kind: k, Span: sp, Text: lx.text(sp)}
	}
	for _, op := range operators {
		if lx.tryLit(op.text) {
			return emit(op.kind)
		}
	}
	r, sz := lx.peekRune()
	lx.cursor.Off += uint32(max(sz, 1))
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnknownChar, sp, "unknown character "+quoteRune(r))
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

var operators = []struct {
	text string
	kind token.Kind
}{
	{">>>=", token.UShrAssign},
	{">>>", token.UShr},
	{"<<=", token.ShlAssign},
	{">>=", token.ShrAssign},
	{"&&", token.AndAnd},
	{"||", token.OrOr},
	{"==", token.EqEq},
	{"!=", token.BangEq},
	{"<=", token.LtEq},
	{">=", token.GtEq},
	{"<<", token.Shl},
	{">>", token.Shr},
	{"+=", token.PlusAssign},
	{"-=", token.MinusAssign},
	{"*=", token.StarAssign},
	{"/=", token.SlashAssign},
	{"%=", token.PercentAssign},
	{"&=", token.AmpAssign},
	{"|=", token.PipeAssign},
	{"^=", token.CaretAssign},
	{"+", token.Plus},
	{"-", token.Minus},
	{"*", token.Star},
	{"/", token.Slash},
	{"%", token.Percent},
	{"=", token.Assign},
	{"!", token.Bang},
	{"<", token.Lt},
	{">", token.Gt},
	{"&", token.Amp},
	{"|", token.Pipe},
	{"^", token.Caret},
	{"~", token.Tilde},
	{";", token.Semicolon},
	{",", token.Comma},
	{".", token.Dot},
	{"(", token.LParen},
	{")", token.RParen},
	{"{", token.LBrace},
	{"}", token.RBrace},
	{"[", token.LBracket},
	{"]", token.RBracket},
}
