package amount

import "errors"

var (
	// ErrOutOfRange indicates a value outside [0, MaxMoney].
	ErrOutOfRange = errors.New("amount: value out of money range")

	// ErrMalformed indicates an amount string that is not a plain decimal number.
	ErrMalformed = errors.New("amount: malformed amount")

	// ErrOverflow indicates an arithmetic result that does not fit in 64 bits.
	ErrOverflow = errors.New("amount: arithmetic overflow")
)
