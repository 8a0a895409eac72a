package mempool

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("mempool: required parameter is nil")

	// ErrAlreadyExists indicates the transaction is already pending.
	ErrAlreadyExists = errors.New("mempool: transaction already in pool")

	// ErrConflict indicates an input already spent by another pending transaction.
	ErrConflict = errors.New("mempool: input spent by pending transaction")

	// ErrNotFound indicates the transaction is not in the pool.
	ErrNotFound = errors.New("mempool: transaction not found")

	// ErrPoolFull indicates the pool reached its entry limit.
	ErrPoolFull = errors.New("mempool: pool full")
)
