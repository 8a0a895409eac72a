// Package mempool is an in-process pending transaction set with tracking of
// transactions that have not yet reached any peer.
package mempool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/spvcore-go/amount"
	"github.com/bitfsorg/spvcore-go/tx"
)

// DefaultMaxEntries bounds the pool when no limit is configured.
const DefaultMaxEntries = 10_000

// Entry is a pending transaction.
type Entry struct {
	Tx    *tx.Transaction
	TxID  chainhash.Hash
	Fee   amount.Amount
	VSize int
	Added time.Time
}

// Pool is safe for concurrent use.
type Pool struct {
	mu          sync.RWMutex
	entries     map[chainhash.Hash]*Entry
	spends      map[tx.OutPoint]chainhash.Hash
	unbroadcast map[chainhash.Hash]struct{}
	maxEntries  int
	now         func() time.Time
}

// New returns an empty pool holding at most maxEntries transactions.
// A non-positive maxEntries uses DefaultMaxEntries.
func New(maxEntries int) *Pool {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Pool{
		entries:     make(map[chainhash.Hash]*Entry),
		spends:      make(map[tx.OutPoint]chainhash.Hash),
		unbroadcast: make(map[chainhash.Hash]struct{}),
		maxEntries:  maxEntries,
		now:         time.Now,
	}
}

// Has reports whether txid is pending.
func (p *Pool) Has(ctx context.Context, txid chainhash.Hash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[txid]
	return ok, nil
}

// Add inserts t with its fee. The transaction is stored as a copy.
func (p *Pool) Add(ctx context.Context, t *tx.Transaction, fee amount.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("%w: transaction", ErrNilParam)
	}
	txid := t.TxID()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[txid]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, txid)
	}
	if len(p.entries) >= p.maxEntries {
		return fmt.Errorf("%w: %d entries", ErrPoolFull, len(p.entries))
	}
	for _, in := range t.Inputs {
		if other, ok := p.spends[in.PrevOut]; ok {
			return fmt.Errorf("%w: %s already spent by %s", ErrConflict, in.PrevOut, other)
		}
	}

	p.entries[txid] = &Entry{
		Tx:    t.Copy(),
		TxID:  txid,
		Fee:   fee,
		VSize: t.VirtualSize(),
		Added: p.now(),
	}
	for _, in := range t.Inputs {
		p.spends[in.PrevOut] = txid
	}
	return nil
}

// Get returns the pending entry for txid.
func (p *Pool) Get(txid chainhash.Hash) (*Entry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[txid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, txid)
	}
	c := *e
	c.Tx = e.Tx.Copy()
	return &c, nil
}

// Remove drops txid from the pool and from the unbroadcast set.
func (p *Pool) Remove(txid chainhash.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[txid]
	if !ok {
		return
	}
	for _, in := range e.Tx.Inputs {
		if p.spends[in.PrevOut] == txid {
			delete(p.spends, in.PrevOut)
		}
	}
	delete(p.entries, txid)
	delete(p.unbroadcast, txid)
}

// Len returns the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// MarkUnbroadcast records that txid has not yet been fetched by any peer.
func (p *Pool) MarkUnbroadcast(txid chainhash.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[txid]; ok {
		p.unbroadcast[txid] = struct{}{}
	}
}

// MarkBroadcast removes txid from the unbroadcast set.
func (p *Pool) MarkBroadcast(txid chainhash.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.unbroadcast, txid)
}

// IsUnbroadcast reports whether txid is awaiting its first successful relay.
func (p *Pool) IsUnbroadcast(txid chainhash.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.unbroadcast[txid]
	return ok
}

// Unbroadcast returns the pending transactions not yet relayed, oldest first.
func (p *Pool) Unbroadcast() []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]*Entry, 0, len(p.unbroadcast))
	for txid := range p.unbroadcast {
		entries = append(entries, p.entries[txid])
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Added.Equal(entries[j].Added) {
			return entries[i].Added.Before(entries[j].Added)
		}
		return entries[i].TxID.String() < entries[j].TxID.String()
	})

	out := make([]*tx.Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.Tx.Copy()
	}
	return out
}
