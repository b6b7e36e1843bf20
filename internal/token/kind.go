package token

import "fmt"

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	Ident

	IntLit
	FloatLit
	// StringLit is a string without interpolation.
	StringLit
	// StrHead is the part of an interpolated string up to the first "${".
	StrHead
	// StrMid is the text between two interpolations: "}...${".
	StrMid
	// StrTail is the text after the last interpolation: "}...\"".
	StrTail

	KwVar
	KwConst
	KwFunc
	KwClass
	KwThis
	KwPublic
	KwProtected
	KwPrivate
	KwIf
	KwElse
	KwWhile
	KwFor
	KwBreak
	KwContinue
	KwReturn
	KwTrue
	KwFalse
	KwNull
	// cast keywords: bool(x), int(x), float(x), str(x)
	KwBool
	KwInt
	KwFloat
	KwStr

	Plus          // +
	Minus         // -
	Star          // *
	Slash         // /
	Percent       // %
	Assign        // =
	PlusAssign    // +=
	MinusAssign   // -=
	StarAssign    // *=
	SlashAssign   // /=
	PercentAssign // %=
	AmpAssign     // &=
	PipeAssign    // |=
	CaretAssign   // ^=
	ShlAssign     // <<=
	ShrAssign     // >>=
	UShrAssign    // >>>=
	EqEq          // ==
	Bang          // !
	BangEq        // !=
	Lt            // <
	LtEq          // <=
	Gt            // >
	GtEq          // >=
	Shl           // <<
	Shr           // >>
	UShr          // >>>
	Amp           // &
	Pipe          // |
	Caret         // ^
	Tilde         // ~
	AndAnd        // &&
	OrOr          // ||
	Semicolon     // ;
	Comma         // ,
	Dot           // .
	LParen        // (
	RParen        // )
	LBrace        // {
	RBrace        // }
	LBracket      // [
	RBracket      // ]

	kindCount
)

var kindNames = [...]string{
	Invalid:       "Invalid",
	EOF:           "EOF",
	Ident:         "Ident",
	IntLit:        "IntLit",
	FloatLit:      "FloatLit",
	StringLit:     "StringLit",
	StrHead:       "StrHead",
	StrMid:        "StrMid",
	StrTail:       "StrTail",
	KwVar:         "KwVar",
	KwConst:       "KwConst",
	KwFunc:        "KwFunc",
	KwClass:       "KwClass",
	KwThis:        "KwThis",
	KwPublic:      "KwPublic",
	KwProtected:   "KwProtected",
	KwPrivate:     "KwPrivate",
	KwIf:          "KwIf",
	KwElse:        "KwElse",
	KwWhile:       "KwWhile",
	KwFor:         "KwFor",
	KwBreak:       "KwBreak",
	KwContinue:    "KwContinue",
	KwReturn:      "KwReturn",
	KwTrue:        "KwTrue",
	KwFalse:       "KwFalse",
	KwNull:        "KwNull",
	KwBool:        "KwBool",
	KwInt:         "KwInt",
	KwFloat:       "KwFloat",
	KwStr:         "KwStr",
	Plus:          "Plus",
	Minus:         "Minus",
	Star:          "Star",
	Slash:         "Slash",
	Percent:       "Percent",
	Assign:        "Assign",
	PlusAssign:    "PlusAssign",
	MinusAssign:   "MinusAssign",
	StarAssign:    "StarAssign",
	SlashAssign:   "SlashAssign",
	PercentAssign: "PercentAssign",
	AmpAssign:     "AmpAssign",
	PipeAssign:    "PipeAssign",
	CaretAssign:   "CaretAssign",
	ShlAssign:     "ShlAssign",
	ShrAssign:     "ShrAssign",
	UShrAssign:    "UShrAssign",
	EqEq:          "EqEq",
	Bang:          "Bang",
	BangEq:        "BangEq",
	Lt:            "Lt",
	LtEq:          "LtEq",
	Gt:            "Gt",
	GtEq:          "GtEq",
	Shl:           "Shl",
	Shr:           "Shr",
	UShr:          "UShr",
	Amp:           "Amp",
	Pipe:          "Pipe",
	Caret:         "Caret",
	Tilde:         "Tilde",
	AndAnd:        "AndAnd",
	OrOr:          "OrOr",
	Semicolon:     "Semicolon",
	Comma:         "Comma",
	Dot:           "Dot",
	LParen:        "LParen",
	RParen:        "RParen",
	LBrace:        "LBrace",
	RBrace:        "RBrace",
	LBracket:      "LBracket",
	RBracket:      "RBracket",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// CompoundBase maps a compound assignment to the binary operator it applies.
func (k Kind) CompoundBase() (Kind, bool) {
	switch k {
	case PlusAssign:
		return Plus, true
	case MinusAssign:
		return Minus, true
	case StarAssign:
		return Star, true
	case SlashAssign:
		return Slash, true
	case PercentAssign:
		return Percent, true
	case AmpAssign:
		return Amp, true
	case PipeAssign:
		return Pipe, true
	case CaretAssign:
		return Caret, true
	case ShlAssign:
		return Shl, true
	case ShrAssign:
		return Shr, true
	case UShrAssign:
		return UShr, true
	}
	return Invalid, false
}
