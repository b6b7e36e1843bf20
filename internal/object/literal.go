package object

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrIntSyntax = errors.New("invalid integer literal")
	ErrIntRange  = errors.New("integer literal out of range")
)

// radixPrefixes maps the letter after a leading zero to its base. The Cyrillic
// letters are accepted alongside their Latin look-alikes.
var radixPrefixes = map[rune]int{
	'x': 16, 'X': 16, 'х': 16, 'Х': 16,
	'b': 2, 'B': 2, 'б': 2, 'Б': 2,
	'o': 8, 'O': 8, 'о': 8, 'О': 8,
}

const maxDecimalDigits = 19

// RadixPrefix reports the base selected by r after a leading '0', or 0.
func RadixPrefix(r rune) int { return radixPrefixes[r] }

// ParseInt converts integer literal text. Decimal literals must fit int64 and
// have at most 19 digits; hexadecimal, binary and octal literals may use all 64
// bits and wrap into the negative range. A leading sign is accepted for runtime string casts.
func ParseInt(text string) (int64, error) {
	s := strings.ReplaceAll(text, "_", "")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return 0, ErrIntSyntax
	}
	base := 10
	if len(s) > 1 && s[0] == '0' {
		r, size := utf8.DecodeRuneInString(s[1:])
		if b := RadixPrefix(r); b != 0 {
			base = b
			s = s[1+size:]
			if s == "" {
				return 0, ErrIntSyntax
			}
		}
	}
	// десятичный литерал не длиннее 19 цифр, ведущие нули тоже считаются
	if base == 10 && len(s) > maxDecimalDigits {
		return 0, ErrIntRange
	}
	u, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, ErrIntRange
		}
		return 0, ErrIntSyntax
	}
	if base != 10 {
		v := int64(u) // two's complement wrap
		if neg {
			v = -v
		}
		return v, nil
	}
	if neg {
		if u > 1<<63 {
			return 0, ErrIntRange
		}
		return int64(-u), nil
	}
	if u > math.MaxInt64 {
		return 0, ErrIntRange
	}
	return int64(u), nil
}

// ParseFloat converts float literal or cast text.
func ParseFloat(text string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), "_", ""), 64)
}

// FloatToInt truncates toward zero; NaN and values outside int64 fail.
func FloatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || f >= 0x1p63 || f < -0x1p63 {
		return 0, false
	}
	return int64(f), true
}

// UShr shifts right treating v as unsigned, so the sign bit does not propagate.
func UShr(v int64, n uint) int64 {
	if n >= 64 {
		return 0
	}
	return int64(uint64(v) >> n)
}

// Shl shifts left with 64-bit wrap; counts of 64 or more yield zero.
func Shl(v int64, n uint) int64 {
	if n >= 64 {
		return 0
	}
	return int64(uint64(v) << n)
}

// Shr is an arithmetic right shift; counts of 64 or more saturate to the sign.
func Shr(v int64, n uint) int64 {
	if n >= 64 {
		n = 63
	}
	return v >> n
}
