package store

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("store: required parameter is nil")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("store: invalid parameters")

	// ErrUTXONotFound indicates the outpoint is not tracked.
	ErrUTXONotFound = errors.New("store: utxo not found")

	// ErrDuplicateUTXO indicates a UTXO with this outpoint already exists.
	ErrDuplicateUTXO = errors.New("store: duplicate utxo")

	// ErrAlreadySpent indicates the UTXO was already marked spent.
	ErrAlreadySpent = errors.New("store: utxo already spent")

	// ErrTxNotFound indicates the transaction was not found.
	ErrTxNotFound = errors.New("store: transaction not found")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store: closed")
)
