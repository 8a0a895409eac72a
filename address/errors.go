package address

import "errors"

var (
	// ErrInvalidAddress is the umbrella error for any address that fails to decode.
	ErrInvalidAddress = errors.New("address: invalid address")

	// ErrChecksumMismatch indicates a Base58Check or Bech32 checksum failure.
	ErrChecksumMismatch = errors.New("address: checksum mismatch")

	// ErrInvalidCharacter indicates a character outside the encoding alphabet.
	ErrInvalidCharacter = errors.New("address: invalid character")

	// ErrInvalidLength indicates an encoding or payload of the wrong size.
	ErrInvalidLength = errors.New("address: invalid length")

	// ErrMixedCase indicates a Bech32 string mixing upper and lower case.
	ErrMixedCase = errors.New("address: mixed case")

	// ErrInvalidPadding indicates non-zero or excess padding bits in a 5-bit group conversion.
	ErrInvalidPadding = errors.New("address: invalid padding")

	// ErrWrongNetwork indicates a well-formed address that belongs to another network.
	ErrWrongNetwork = errors.New("address: address is for a different network")

	// ErrInvalidWitnessVersion indicates a witness version outside [0, 16] or the wrong checksum variant for it.
	ErrInvalidWitnessVersion = errors.New("address: invalid witness version")

	// ErrInvalidProgramLength indicates a witness program outside the allowed sizes.
	ErrInvalidProgramLength = errors.New("address: invalid witness program length")

	// ErrUnsupportedType indicates an address type that cannot be produced on this network.
	ErrUnsupportedType = errors.New("address: unsupported address type")

	// ErrInvalidNetwork indicates an unknown network name with no custom config.
	ErrInvalidNetwork = errors.New("address: invalid network name")
)
