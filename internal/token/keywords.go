package token

var keywords = map[string]Kind{
	"var":       KwVar,
	"const":     KwConst,
	"func":      KwFunc,
	"class":     KwClass,
	"this":      KwThis,
	"public":    KwPublic,
	"protected": KwProtected,
	"private":   KwPrivate,
	"if":        KwIf,
	"else":      KwElse,
	"while":     KwWhile,
	"for":       KwFor,
	"break":     KwBreak,
	"continue":  KwContinue,
	"return":    KwReturn,
	"true":      KwTrue,
	"false":     KwFalse,
	"null":      KwNull,
	"bool":      KwBool,
	"int":       KwInt,
	"float":     KwFloat,
	"str":       KwStr,
}

// LookupKeyword возвращает тип и bool если это ключевое слово.
// Ключевые слова регистрозависимые.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}
