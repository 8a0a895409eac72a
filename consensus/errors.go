package consensus

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("consensus: required parameter is nil")

	// ErrInvalidHeader indicates a header with malformed or out-of-range fields.
	ErrInvalidHeader = errors.New("consensus: invalid header")

	// ErrHashMismatch indicates the declared block hash differs from the computed one.
	ErrHashMismatch = errors.New("consensus: header hash mismatch")

	// ErrInsufficientPoW indicates the header hash does not meet its target.
	ErrInsufficientPoW = errors.New("consensus: insufficient proof of work")

	// ErrDifficultyTooLow indicates the target is easier than the network limit.
	ErrDifficultyTooLow = errors.New("consensus: difficulty below network minimum")

	// ErrTimestampTooNew indicates a header timestamp more than two hours in the future.
	ErrTimestampTooNew = errors.New("consensus: header timestamp too far in the future")

	// ErrTimestampNotIncreasing indicates a timestamp not after the previous header's.
	ErrTimestampNotIncreasing = errors.New("consensus: header timestamp not after previous")

	// ErrChainBroken indicates PrevHash does not reference the previous header.
	ErrChainBroken = errors.New("consensus: header chain broken")

	// ErrCheckpointMismatch indicates a header that contradicts a checkpoint.
	ErrCheckpointMismatch = errors.New("consensus: checkpoint mismatch")

	// ErrHeaderNotFound indicates the header was not found in the store.
	ErrHeaderNotFound = errors.New("consensus: header not found")

	// ErrDuplicateHeader indicates a header with this hash already exists.
	ErrDuplicateHeader = errors.New("consensus: duplicate header")

	// ErrTxTooLarge indicates a serialized transaction above MaxTxSize.
	ErrTxTooLarge = errors.New("consensus: transaction too large")
)
