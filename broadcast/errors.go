package broadcast

import (
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("broadcast: required parameter is nil")

	// ErrInvalidParams indicates a malformed option.
	ErrInvalidParams = errors.New("broadcast: invalid parameters")

	// ErrAlreadyKnown signals the transaction is already confirmed or pending.
	// It is a success signal rather than a failure.
	ErrAlreadyKnown = errors.New("broadcast: transaction already known")

	// ErrFeeExceeded indicates the fee rate is above the configured ceiling.
	ErrFeeExceeded = errors.New("broadcast: fee rate exceeds maximum")

	// ErrBurnExceeded indicates provably unspendable outputs carry more value
	// than allowed.
	ErrBurnExceeded = errors.New("broadcast: burn amount exceeds maximum")

	// ErrNetworkFailure indicates a chain, mempool or peer call failed.
	ErrNetworkFailure = errors.New("broadcast: network failure")

	// ErrNoPeers indicates there was nobody to relay to.
	ErrNoPeers = errors.New("broadcast: no connected peers")
)

// RejectError is returned for a transaction that ended in the rejected state.
// errors.Is matches both the reason sentinel and the underlying cause.
type RejectError struct {
	TxID   chainhash.Hash
	Reason error
	Cause  error
}

func (e *RejectError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("transaction %s rejected: %v", e.TxID, e.Reason)
	}
	return fmt.Sprintf("transaction %s rejected: %v: %v", e.TxID, e.Reason, e.Cause)
}

func (e *RejectError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}
