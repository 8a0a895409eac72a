package wallet

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("wallet: required parameter is nil")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("wallet: invalid parameters")

	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("wallet: entropy bits must be 128 or 256")

	// ErrInvalidSeed indicates the seed is empty or invalid.
	ErrInvalidSeed = errors.New("wallet: invalid seed")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")

	// ErrIndexOutOfRange indicates an address index beyond the non-hardened range.
	ErrIndexOutOfRange = errors.New("wallet: address index exceeds maximum (2^31-1)")

	// ErrDecryptionFailed indicates wrong password or corrupted data.
	ErrDecryptionFailed = errors.New("wallet: decryption failed (wrong password or corrupted data)")

	// ErrChecksumMismatch indicates the checksum failed after decryption.
	ErrChecksumMismatch = errors.New("wallet: checksum mismatch")

	// ErrUnknownAddress indicates an address the key store holds no key for.
	ErrUnknownAddress = errors.New("wallet: address not in key store")

	// ErrInvalidWIF indicates a malformed or wrong-network WIF private key.
	ErrInvalidWIF = errors.New("wallet: invalid WIF private key")

	// ErrNoPipeline indicates SendToAddress was called on a wallet built without a broadcast pipeline.
	ErrNoPipeline = errors.New("wallet: no broadcast pipeline configured")
)
