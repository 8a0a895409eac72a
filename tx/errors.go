package tx

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("tx: required parameter is nil")

	// ErrInsufficientFunds indicates the available UTXOs cannot cover the target plus fees.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrInvalidTransaction indicates a transaction that violates structural rules.
	ErrInvalidTransaction = errors.New("tx: invalid transaction")

	// ErrMalformedTx indicates serialized bytes that do not decode as a transaction.
	ErrMalformedTx = errors.New("tx: malformed transaction encoding")

	// ErrNonCanonicalVarInt indicates a CompactSize that is not minimally encoded.
	ErrNonCanonicalVarInt = errors.New("tx: non-canonical CompactSize")

	// ErrInvalidTxID indicates a transaction ID that is not 64 hex characters.
	ErrInvalidTxID = errors.New("tx: invalid transaction ID")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("tx: invalid parameters")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("tx: signing failed")
)
