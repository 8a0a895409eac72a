// Package amount implements satoshi fixed-point monetary values.
//
// All wallet arithmetic is done on Amount (int64 satoshis). Conversions to and
// from BTC decimal representations reject values outside the money range
// instead of clamping them.
package amount

import (
	"fmt"
	"math"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
)

// Amount is a quantity of satoshis.
type Amount int64

const (
	// SatoshiPerBitcoin is the number of satoshis in one BTC.
	SatoshiPerBitcoin = 100_000_000

	// MaxMoney is the total supply cap: 21,000,000 BTC.
	MaxMoney Amount = 21_000_000 * SatoshiPerBitcoin

	// decimals is the number of fractional BTC digits.
	decimals = 8
)

// MoneyRange reports whether v lies in [0, MaxMoney].
func MoneyRange(v Amount) bool {
	return v >= 0 && v <= MaxMoney
}

// FromBTC converts a floating point BTC value to satoshis, rounding to the
// nearest satoshi. NaN, infinities and values outside the money range are
// rejected.
func FromBTC(btc float64) (Amount, error) {
	// Coarse bound first so the float to int conversion below cannot overflow.
	if btc < -1 || btc > 2*float64(MaxMoney/SatoshiPerBitcoin) {
		return 0, fmt.Errorf("%w: %v BTC", ErrOutOfRange, btc)
	}
	a, err := btcutil.NewAmount(btc)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	v := Amount(a)
	if !MoneyRange(v) {
		return 0, fmt.Errorf("%w: %v BTC", ErrOutOfRange, btc)
	}
	return v, nil
}

// ParseBTC parses a decimal BTC string such as "0.015" or "21000000".
// At most 8 fractional digits are accepted; exponents, whitespace and
// thousands separators are rejected.
func ParseBTC(s string) (Amount, error) {
	orig := s
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrMalformed)
	}

	negative := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		negative = true
		s = s[1:]
	}

	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" || (hasDot && fracPart == "") {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, orig)
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, orig)
	}
	if len(fracPart) > decimals {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrMalformed, orig, decimals)
	}

	intPart = strings.TrimLeft(intPart, "0")
	// 21,000,000 has 8 digits; anything longer is out of range and could overflow.
	if len(intPart) > 8 {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, orig)
	}

	var whole, frac int64
	for _, c := range intPart {
		whole = whole*10 + int64(c-'0')
	}
	for i := 0; i < decimals; i++ {
		frac *= 10
		if i < len(fracPart) {
			frac += int64(fracPart[i] - '0')
		}
	}

	v := Amount(whole*SatoshiPerBitcoin + frac)
	if negative && v != 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrOutOfRange, orig)
	}
	if !MoneyRange(v) {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, orig)
	}
	return v, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatBTC renders a as a BTC decimal with exactly 8 fractional digits.
func FormatBTC(a Amount) string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
	}
	// Work on the unsigned magnitude so MinInt64 does not overflow.
	mag := uint64(v)
	if v < 0 {
		mag = uint64(-(v + 1)) + 1
	}
	return fmt.Sprintf("%s%d.%08d", sign, mag/SatoshiPerBitcoin, mag%SatoshiPerBitcoin)
}

// ToBTC returns the value in BTC as a float64. Intended for display and RPC
// encoding only.
func (a Amount) ToBTC() float64 {
	return float64(a) / SatoshiPerBitcoin
}

// String implements fmt.Stringer.
func (a Amount) String() string {
	return FormatBTC(a) + " BTC"
}

// Add returns a+b, failing on overflow or when the result leaves the money range.
func Add(a, b Amount) (Amount, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrOverflow
	}
	sum := a + b
	if !MoneyRange(sum) {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, sum)
	}
	return sum, nil
}

// Sub returns a-b, failing when the result is negative or otherwise out of range.
func Sub(a, b Amount) (Amount, error) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, ErrOverflow
	}
	diff := a - b
	if !MoneyRange(diff) {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, diff)
	}
	return diff, nil
}

// Sum adds all values with range checking after every step.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		if !MoneyRange(v) {
			return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
		}
		var err error
		if total, err = Add(total, v); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// MulInt returns a*n with overflow and range checking.
func MulInt(a Amount, n int64) (Amount, error) {
	if a == 0 || n == 0 {
		return 0, nil
	}
	p := int64(a) * n
	if p/n != int64(a) {
		return 0, ErrOverflow
	}
	if !MoneyRange(Amount(p)) {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, p)
	}
	return Amount(p), nil
}
