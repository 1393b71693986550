package sdk

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
)

// Amounts are integers of base units with 3 implied decimals: "1.5" is 1500.

var (
	ErrAmountSyntax   = errors.New("invalid amount")
	ErrAmountOverflow = errors.New("amount overflow")
)

// ParseAmount parses a decimal string with up to 3 fractional digits into
// base units. The empty string is zero. No floats are involved.
func ParseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	var intPart, fracPart uint64
	var fracDigits, intDigits int
	dotSeen := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			if dotSeen {
				return 0, fmt.Errorf("%w %q: multiple dots", ErrAmountSyntax, s)
			}
			dotSeen = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w %q: unexpected character", ErrAmountSyntax, s)
		}
		d := uint64(c - '0')
		if !dotSeen {
			hi, lo := bits.Mul64(intPart, 10)
			if hi != 0 {
				return 0, ErrAmountOverflow
			}
			var carry uint64
			intPart, carry = bits.Add64(lo, d, 0)
			if carry != 0 {
				return 0, ErrAmountOverflow
			}
			intDigits++
			continue
		}
		if fracDigits == 3 {
			return 0, fmt.Errorf("%w %q: too many fractional digits", ErrAmountSyntax, s)
		}
		fracDigits++
		fracPart = fracPart*10 + d
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0, fmt.Errorf("%w %q", ErrAmountSyntax, s)
	}

	// scale fractional part to 3 digits
	for i := fracDigits; i < 3; i++ {
		fracPart *= 10
	}

	hi, scaled := bits.Mul64(intPart, 1000)
	if hi != 0 {
		return 0, ErrAmountOverflow
	}
	sum, carry := bits.Add64(scaled, fracPart, 0)
	if carry != 0 {
		return 0, ErrAmountOverflow
	}
	return sum, nil
}

// FormatAmount renders base units as "int.fff".
func FormatAmount(v uint64) string {
	frac := v % 1000
	out := strconv.FormatUint(v/1000, 10) + "."
	switch {
	case frac < 10:
		out += "00"
	case frac < 100:
		out += "0"
	}
	return out + strconv.FormatUint(frac, 10)
}
