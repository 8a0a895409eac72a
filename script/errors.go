package script

import "errors"

var (
	// ErrMalformedScript indicates a push that runs past the end of the script.
	ErrMalformedScript = errors.New("script: malformed script")

	// ErrInvalidHashLength indicates a template hash or program of the wrong size.
	ErrInvalidHashLength = errors.New("script: invalid hash length")

	// ErrInvalidMultiSig indicates an m-of-n combination outside 1 <= m <= n <= 16 or a bad key.
	ErrInvalidMultiSig = errors.New("script: invalid multisig parameters")

	// ErrInvalidSmallInt indicates a small integer outside [0, 16].
	ErrInvalidSmallInt = errors.New("script: small integer out of range")

	// ErrNoAddress indicates a script that has no address representation.
	ErrNoAddress = errors.New("script: script has no address form")

	// ErrUnsupportedAddress indicates an address type without a locking script template.
	ErrUnsupportedAddress = errors.New("script: unsupported address type")
)
