package network

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/rs/zerolog"

	"github.com/bitfsorg/spvcore-go/mempool"
	"github.com/bitfsorg/spvcore-go/tx"
)

// ChainView answers chain membership from the node's confirmed UTXO set.
type ChainView struct {
	node BlockchainService
}

// NewChainView returns a ChainView backed by node.
func NewChainView(node BlockchainService) *ChainView {
	return &ChainView{node: node}
}

// IsInChain reports whether any output of t is in the confirmed UTXO set.
// A transaction whose outputs were all spent again is not detected.
func (v *ChainView) IsInChain(ctx context.Context, t *tx.Transaction) (bool, error) {
	if t == nil {
		return false, fmt.Errorf("%w: transaction", ErrNilParam)
	}
	txid := t.TxID()
	for i := range t.Outputs {
		_, err := v.node.GetTxOut(ctx, tx.OutPoint{TxID: txid, Vout: uint32(i)}, false)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrTxNotFound) {
			return false, err
		}
	}
	return false, nil
}

// NodeMempool is the local pending set that also treats transactions the
// node already holds as pending.
type NodeMempool struct {
	*mempool.Pool
	node BlockchainService
}

// NewNodeMempool wraps pool with node lookups.
func NewNodeMempool(pool *mempool.Pool, node BlockchainService) *NodeMempool {
	return &NodeMempool{Pool: pool, node: node}
}

// Has consults the local pool first and the node second.
func (m *NodeMempool) Has(ctx context.Context, txid chainhash.Hash) (bool, error) {
	if ok, err := m.Pool.Has(ctx, txid); err != nil || ok {
		return ok, err
	}
	_, err := m.node.GetMempoolEntry(ctx, txid)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrTxNotFound):
		return false, nil
	default:
		return false, err
	}
}

// RPCPeer relays through a node's sendrawtransaction.
type RPCPeer struct {
	id     string
	node   BlockchainService
	logger zerolog.Logger
}

// NewRPCPeer returns a peer named id. A nil logger disables logging.
func NewRPCPeer(id string, node BlockchainService, logger *zerolog.Logger) *RPCPeer {
	p := &RPCPeer{id: id, node: node, logger: zerolog.Nop()}
	if logger != nil {
		p.logger = logger.With().Str("peer", id).Logger()
	}
	return p
}

// ID returns the peer name.
func (p *RPCPeer) ID() string { return p.id }

// Relay submits t. A node that already has t counts as a successful relay.
func (p *RPCPeer) Relay(ctx context.Context, t *tx.Transaction) error {
	_, err := p.node.SendRawTransaction(ctx, t)
	if err == nil {
		return nil
	}
	if alreadyKnown(err) {
		p.logger.Debug().Str("txid", t.TxID().String()).Msg("peer already has transaction")
		return nil
	}
	return err
}

func alreadyKnown(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.Code == RPCVerifyAlreadyInChain {
		return true
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "txn-already-in-mempool") ||
		strings.Contains(msg, "txn-already-known") ||
		strings.Contains(msg, "already in the mempool") ||
		strings.Contains(msg, "already in block chain")
}
