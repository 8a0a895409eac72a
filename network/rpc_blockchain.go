package network

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/spvcore-go/amount"
	"github.com/bitfsorg/spvcore-go/consensus"
	"github.com/bitfsorg/spvcore-go/tx"
)

// BlockchainService is the node surface the wallet core consumes.
type BlockchainService interface {
	// ListUnspent returns the node's unspent outputs for the given addresses,
	// including unconfirmed ones.
	ListUnspent(ctx context.Context, addresses ...string) ([]tx.UTXO, error)

	// GetTxOut returns an unspent output, or ErrTxNotFound when it is spent
	// or unknown. includeMempool also consults pending transactions.
	GetTxOut(ctx context.Context, op tx.OutPoint, includeMempool bool) (*TxOut, error)

	// SendRawTransaction submits t and returns the txid reported by the node.
	SendRawTransaction(ctx context.Context, t *tx.Transaction) (chainhash.Hash, error)

	// GetRawTransaction fetches and decodes a transaction.
	GetRawTransaction(ctx context.Context, txid chainhash.Hash) (*tx.Transaction, error)

	// GetBlockHeader fetches the header with the given hash, tagged with height.
	GetBlockHeader(ctx context.Context, blockHash string, height int64) (*consensus.BlockHeader, error)

	// GetBlockHash returns the hash of the active chain block at height.
	GetBlockHash(ctx context.Context, height int64) (string, error)

	// GetBlockCount returns the height of the chain tip.
	GetBlockCount(ctx context.Context) (int64, error)

	// GetMempoolEntry returns the node's view of a pending transaction, or
	// ErrTxNotFound.
	GetMempoolEntry(ctx context.Context, txid chainhash.Hash) (*MempoolEntry, error)

	// ImportAddress adds a watch-only address to the node wallet so that
	// ListUnspent reports its outputs.
	ImportAddress(ctx context.Context, address string, rescan bool) error
}

// TxOut is an unspent output as reported by gettxout.
type TxOut struct {
	Value         amount.Amount `json:"value"`
	Confirmations int64         `json:"confirmations"`
	ScriptPubKey  []byte        `json:"script_pubkey"`
	Address       string        `json:"address,omitempty"`
	Coinbase      bool          `json:"coinbase"`
}

// MempoolEntry is the subset of getmempoolentry the wallet uses.
type MempoolEntry struct {
	VSize int           `json:"vsize"`
	Fee   amount.Amount `json:"fee"`
	Time  int64         `json:"time"`
}

var _ BlockchainService = (*RPCClient)(nil)

// notFound maps the node's "no such transaction" error onto ErrTxNotFound.
func notFound(err error, what string) error {
	if code, ok := rpcCode(err); ok && code == RPCInvalidAddressOrKey {
		return fmt.Errorf("%w: %s: %w", ErrTxNotFound, what, err)
	}
	return err
}

type listUnspentResult struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Amount        float64 `json:"amount"`
	ScriptPubKey  string  `json:"scriptPubKey"`
	Address       string  `json:"address"`
	Confirmations int64   `json:"confirmations"`
}

// ListUnspent calls `listunspent 0 9999999 [addresses]`. Block heights are
// derived from confirmations against the current tip.
func (c *RPCClient) ListUnspent(ctx context.Context, addresses ...string) ([]tx.UTXO, error) {
	params := []any{0, 9999999}
	if len(addresses) > 0 {
		params = append(params, addresses)
	}
	var results []listUnspentResult
	if err := c.Call(ctx, "listunspent", params, &results); err != nil {
		return nil, err
	}

	var tip int64 = -1
	utxos := make([]tx.UTXO, 0, len(results))
	for _, r := range results {
		txid, err := tx.ParseTxID(r.TxID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
		value, err := amount.FromBTC(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: amount %v: %w", ErrInvalidResponse, r.Amount, err)
		}
		spk, err := hex.DecodeString(r.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("%w: scriptPubKey: %w", ErrInvalidResponse, err)
		}

		u := tx.UTXO{TxID: txid, Vout: r.Vout, Address: r.Address, Amount: value, ScriptPubKey: spk}
		if r.Confirmations > 0 {
			if tip < 0 {
				if tip, err = c.GetBlockCount(ctx); err != nil {
					return nil, err
				}
			}
			height := uint32(tip - r.Confirmations + 1)
			u.BlockHeight = &height
		}
		utxos = append(utxos, u)
	}
	return utxos, nil
}

type gettxoutResult struct {
	Value         float64 `json:"value"`
	Confirmations int64   `json:"confirmations"`
	Coinbase      bool    `json:"coinbase"`
	ScriptPubKey  struct {
		Hex       string   `json:"hex"`
		Address   string   `json:"address"`
		Addresses []string `json:"addresses"`
	} `json:"scriptPubKey"`
}

// GetTxOut calls `gettxout "txid" vout include_mempool`. A JSON null result
// means the output is spent or never existed.
func (c *RPCClient) GetTxOut(ctx context.Context, op tx.OutPoint, includeMempool bool) (*TxOut, error) {
	var result *gettxoutResult
	if err := c.Call(ctx, "gettxout", []any{op.TxID.String(), op.Vout, includeMempool}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: output %s is spent or unknown", ErrTxNotFound, op)
	}

	value, err := amount.FromBTC(result.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: value %v: %w", ErrInvalidResponse, result.Value, err)
	}
	spk, err := hex.DecodeString(result.ScriptPubKey.Hex)
	if err != nil {
		return nil, fmt.Errorf("%w: scriptPubKey: %w", ErrInvalidResponse, err)
	}
	out := &TxOut{
		Value:         value,
		Confirmations: result.Confirmations,
		ScriptPubKey:  spk,
		Address:       result.ScriptPubKey.Address,
		Coinbase:      result.Coinbase,
	}
	if out.Address == "" && len(result.ScriptPubKey.Addresses) > 0 {
		out.Address = result.ScriptPubKey.Addresses[0]
	}
	return out, nil
}

// SendRawTransaction calls `sendrawtransaction "hex"`. Node errors wrap
// ErrBroadcastRejected and keep the *RPCError.
func (c *RPCClient) SendRawTransaction(ctx context.Context, t *tx.Transaction) (chainhash.Hash, error) {
	if t == nil {
		return chainhash.Hash{}, fmt.Errorf("%w: transaction", ErrNilParam)
	}
	var txid string
	if err := c.Call(ctx, "sendrawtransaction", []any{t.Hex()}, &txid); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return chainhash.Hash{}, fmt.Errorf("%w: %w", ErrBroadcastRejected, err)
		}
		return chainhash.Hash{}, err
	}
	h, err := tx.ParseTxID(txid)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if h != t.TxID() {
		return chainhash.Hash{}, fmt.Errorf("%w: node reported txid %s for %s", ErrInvalidResponse, h, t.TxID())
	}
	return h, nil
}

// GetRawTransaction calls `getrawtransaction "txid" false` and decodes the hex.
func (c *RPCClient) GetRawTransaction(ctx context.Context, txid chainhash.Hash) (*tx.Transaction, error) {
	var rawHex string
	if err := c.Call(ctx, "getrawtransaction", []any{txid.String(), false}, &rawHex); err != nil {
		return nil, notFound(err, txid.String())
	}
	t, err := tx.FromHex(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if t.TxID() != txid {
		return nil, fmt.Errorf("%w: asked for %s, got %s", ErrInvalidResponse, txid, t.TxID())
	}
	return t, nil
}

// GetBlockHeader calls `getblockheader "hash" false`. The returned header
// carries the hash the node was asked for, so a mismatching body fails
// header validation rather than being silently re-keyed.
func (c *RPCClient) GetBlockHeader(ctx context.Context, blockHash string, height int64) (*consensus.BlockHeader, error) {
	var headerHex string
	if err := c.Call(ctx, "getblockheader", []any{blockHash, false}, &headerHex); err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(headerHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid header hex: %w", ErrInvalidResponse, err)
	}
	h, err := consensus.DeserializeHeader(data, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	h.Hash = blockHash
	return h, nil
}

// GetBlockHash calls `getblockhash height`.
func (c *RPCClient) GetBlockHash(ctx context.Context, height int64) (string, error) {
	var hash string
	if err := c.Call(ctx, "getblockhash", []any{height}, &hash); err != nil {
		return "", err
	}
	if len(hash) != consensus.HashHexLen {
		return "", fmt.Errorf("%w: block hash %q", ErrInvalidResponse, hash)
	}
	return hash, nil
}

// GetBlockCount calls `getblockcount`.
func (c *RPCClient) GetBlockCount(ctx context.Context) (int64, error) {
	var height int64
	if err := c.Call(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}
	if height < 0 {
		return 0, fmt.Errorf("%w: negative block count %d", ErrInvalidResponse, height)
	}
	return height, nil
}

type mempoolEntryResult struct {
	VSize int   `json:"vsize"`
	Time  int64 `json:"time"`
	Fees  struct {
		Base float64 `json:"base"`
	} `json:"fees"`
}

// GetMempoolEntry calls `getmempoolentry "txid"`.
func (c *RPCClient) GetMempoolEntry(ctx context.Context, txid chainhash.Hash) (*MempoolEntry, error) {
	var result mempoolEntryResult
	if err := c.Call(ctx, "getmempoolentry", []any{txid.String()}, &result); err != nil {
		return nil, notFound(err, txid.String())
	}
	fee, err := amount.FromBTC(result.Fees.Base)
	if err != nil {
		return nil, fmt.Errorf("%w: fee %v: %w", ErrInvalidResponse, result.Fees.Base, err)
	}
	return &MempoolEntry{VSize: result.VSize, Fee: fee, Time: result.Time}, nil
}

// ImportAddress calls `importaddress "address" "" rescan`. Importing an
// address twice is a no-op on the node.
func (c *RPCClient) ImportAddress(ctx context.Context, address string, rescan bool) error {
	return c.Call(ctx, "importaddress", []any{address, "", rescan}, nil)
}
