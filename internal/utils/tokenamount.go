package utils

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseTokenAmount converts a decimal string in token units into smallest
// token units (wei-like), e.g. ("1.5", 6) -> 1500000. Fractional digits beyond
// the token's precision are rejected rather than silently truncated.
func ParseTokenAmount(amount string, decimals int) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("empty token amount")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d fractional digits", amount, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token amount %q", amount)
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}

// FormatTokenAmount converts smallest token units back into a decimal string
// in token units, trimming trailing zeros: (1500000, 6) -> "1.5".
func FormatTokenAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}

	v := new(big.Int).Set(amount)
	neg := v.Sign() < 0
	if neg {
		v.Neg(v)
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, divisor, new(big.Int))

	out := whole.String()
	if frac.Sign() != 0 {
		digits := fmt.Sprintf("%0*s", decimals, frac.String())
		digits = strings.TrimRight(digits, "0")
		out += "." + digits
	}
	if neg && (whole.Sign() != 0 || frac.Sign() != 0) {
		out = "-" + out
	}
	return out
}
