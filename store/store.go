// Package store persists the wallet's UTXO set, its transactions and the
// addresses it watches.
//
// A UTXO's Spent flag moves from false to true exactly once. MarkSpent is
// all-or-nothing across the outpoints it is given, so a rejected call leaves
// every UTXO untouched. Stores do not serialize coin selection against each
// other: callers hold a Guard across select, build and MarkSpent.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/spvcore-go/tx"
)

// Store is the UTXO and transaction store consumed by the wallet.
type Store interface {
	// GetUnspent returns unspent UTXOs paying to addr, or all unspent UTXOs when addr is empty.
	GetUnspent(ctx context.Context, addr string) ([]tx.UTXO, error)

	// GetUTXO returns the UTXO at op, spent or not.
	GetUTXO(ctx context.Context, op tx.OutPoint) (*tx.UTXO, error)

	// AddUTXO records a new unspent output.
	AddUTXO(ctx context.Context, u tx.UTXO) error

	// MarkSpent flips every outpoint to spent, or none of them on error.
	MarkSpent(ctx context.Context, ops ...tx.OutPoint) error

	// StoreTransaction records t by txid. Storing the same txid again overwrites it.
	StoreTransaction(ctx context.Context, t *tx.Transaction) error

	// GetTransaction returns a stored transaction.
	GetTransaction(ctx context.Context, txid chainhash.Hash) (*tx.Transaction, error)

	// AddWatchAddress registers addr as belonging to the wallet.
	AddWatchAddress(ctx context.Context, addr string) error

	// WatchAddresses returns every watched address in sorted order.
	WatchAddresses(ctx context.Context) ([]string, error)
}

func sortUTXOs(utxos []tx.UTXO) {
	sort.Slice(utxos, func(i, j int) bool {
		if utxos[i].TxID != utxos[j].TxID {
			return utxos[i].TxID.String() < utxos[j].TxID.String()
		}
		return utxos[i].Vout < utxos[j].Vout
	})
}

func cloneUTXO(u tx.UTXO) tx.UTXO {
	u.ScriptPubKey = append([]byte(nil), u.ScriptPubKey...)
	if u.BlockHeight != nil {
		h := *u.BlockHeight
		u.BlockHeight = &h
	}
	return u
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu      sync.RWMutex
	utxos   map[tx.OutPoint]tx.UTXO
	txs     map[chainhash.Hash]*tx.Transaction
	watched map[string]struct{}
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		utxos:   make(map[tx.OutPoint]tx.UTXO),
		txs:     make(map[chainhash.Hash]*tx.Transaction),
		watched: make(map[string]struct{}),
	}
}

// GetUnspent returns unspent UTXOs, optionally filtered by address.
func (s *MemStore) GetUnspent(ctx context.Context, addr string) ([]tx.UTXO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []tx.UTXO
	for _, u := range s.utxos {
		if u.Spent || (addr != "" && u.Address != addr) {
			continue
		}
		out = append(out, cloneUTXO(u))
	}
	sortUTXOs(out)
	return out, nil
}

// GetUTXO returns the UTXO at op.
func (s *MemStore) GetUTXO(ctx context.Context, op tx.OutPoint) (*tx.UTXO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.utxos[op]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUTXONotFound, op)
	}
	c := cloneUTXO(u)
	return &c, nil
}

// AddUTXO records a new unspent output.
func (s *MemStore) AddUTXO(ctx context.Context, u tx.UTXO) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkNewUTXO(u); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	op := u.OutPoint()
	if _, exists := s.utxos[op]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUTXO, op)
	}
	s.utxos[op] = cloneUTXO(u)
	return nil
}

// MarkSpent flips every outpoint to spent, or none of them on error.
func (s *MemStore) MarkSpent(ctx context.Context, ops ...tx.OutPoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[tx.OutPoint]struct{}, len(ops))
	for _, op := range ops {
		u, ok := s.utxos[op]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUTXONotFound, op)
		}
		if _, dup := seen[op]; dup || u.Spent {
			return fmt.Errorf("%w: %s", ErrAlreadySpent, op)
		}
		seen[op] = struct{}{}
	}
	for _, op := range ops {
		u := s.utxos[op]
		u.Spent = true
		s.utxos[op] = u
	}
	return nil
}

// StoreTransaction records t by txid.
func (s *MemStore) StoreTransaction(ctx context.Context, t *tx.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("%w: transaction", ErrNilParam)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[t.TxID()] = t.Copy()
	return nil
}

// GetTransaction returns a stored transaction.
func (s *MemStore) GetTransaction(ctx context.Context, txid chainhash.Hash) (*tx.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.txs[txid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txid)
	}
	return t.Copy(), nil
}

// AddWatchAddress registers addr. Adding an address twice is a no-op.
func (s *MemStore) AddWatchAddress(ctx context.Context, addr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if addr == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidParams)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched[addr] = struct{}{}
	return nil
}

// WatchAddresses returns every watched address in sorted order.
func (s *MemStore) WatchAddresses(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.watched))
	for a := range s.watched {
		out = append(out, a)
	}
	sort.Strings(out)
	return out, nil
}

func checkNewUTXO(u tx.UTXO) error {
	if u.Spent {
		return fmt.Errorf("%w: new utxo %s is already spent", ErrInvalidParams, u.OutPoint())
	}
	if u.Amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalidParams, int64(u.Amount))
	}
	return nil
}
