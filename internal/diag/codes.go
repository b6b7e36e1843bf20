package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Лексические
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexUnterminatedBlock  Code = 1003
	LexBadNumber          Code = 1004
	LexBadEscape          Code = 1005
	LexIntOverflow        Code = 1006

	// Синтаксические
	SynUnexpectedToken  Code = 2001
	SynExpectSemicolon  Code = 2002
	SynExpectExpression Code = 2003
	SynExpectIdentifier Code = 2004
	SynUnclosedParen    Code = 2005
	SynUnclosedBrace    Code = 2006
	SynUnclosedBracket  Code = 2007
	SynInvalidAssign    Code = 2008

	// Семантические (проверяются во время кодогенерации)
	SemRedefined          Code = 3001
	SemConstAssign        Code = 3002
	SemOwnInitializer     Code = 3003
	SemReturnOutsideFunc  Code = 3004
	SemThisOutsideMethod  Code = 3005
	SemBreakOutsideLoop   Code = 3006
	SemReturnValueInInit  Code = 3007
	SemConstWithoutValue  Code = 3008
	SemDuplicateAttribute Code = 3009

	// I/O
	IOLoadFileError Code = 4001
	IOImageError    Code = 4002
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	LexUnknownChar:        "Unknown character",
	LexUnterminatedString: "Unterminated string literal",
	LexUnterminatedBlock:  "Unterminated block comment",
	LexBadNumber:          "Malformed number literal",
	LexBadEscape:          "Invalid escape sequence",
	LexIntOverflow:        "Integer literal out of range",
	SynUnexpectedToken:    "Unexpected token",
	SynExpectSemicolon:    "Missing semicolon",
	SynExpectExpression:   "Expected expression",
	SynExpectIdentifier:   "Expected identifier",
	SynUnclosedParen:      "Unclosed parenthesis",
	SynUnclosedBrace:      "Unclosed brace",
	SynUnclosedBracket:    "Unclosed bracket",
	SynInvalidAssign:      "Invalid assignment target",
	SemRedefined:          "Name already defined",
	SemConstAssign:        "Assignment to const",
	SemOwnInitializer:     "Variable read in its own initializer",
	SemReturnOutsideFunc:  "Return outside function",
	SemThisOutsideMethod:  "'this' outside method",
	SemBreakOutsideLoop:   "Loop control outside loop",
	SemReturnValueInInit:  "Value returned from initializer",
	SemConstWithoutValue:  "Const without initializer",
	SemDuplicateAttribute: "Duplicate class attribute",
	IOLoadFileError:       "I/O load file error",
	IOImageError:          "Bad compiled image",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
