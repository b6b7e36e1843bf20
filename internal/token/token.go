package token

import (
	"ember/internal/source"
)

// Token represents a single source token with its location.
type Token struct {
	Kind Kind
	Span source.Span
	// Text is the exact source slice.
	Text string
	// Value holds the decoded contents of string tokens (escapes resolved,
	// quotes and interpolation delimiters removed).
	Value string
}

// IsLiteral reports whether the token is a numeric, boolean, null or string literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, FloatLit, StringLit, StrHead, KwTrue, KwFalse, KwNull:
		return true
	default:
		return false
	}
}

// IsKeyword reports whether the token is a language keyword.
func (t Token) IsKeyword() bool {
	return t.Kind >= KwVar && t.Kind <= KwStr
}

// IsCast reports whether the token names a cast target.
func (t Token) IsCast() bool {
	return t.Kind >= KwBool && t.Kind <= KwStr
}

// IsPunctOrOp reports whether the token is a punctuation or operator.
func (t Token) IsPunctOrOp() bool {
	return t.Kind >= Plus && t.Kind < kindCount
}
