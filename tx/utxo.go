package tx

import (
	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/spvcore-go/amount"
)

// UTXO is an unspent output tracked by the wallet.
type UTXO struct {
	TxID         chainhash.Hash `json:"txid"`
	Vout         uint32         `json:"vout"`
	Address      string         `json:"address"`
	Amount       amount.Amount  `json:"amount"`        // satoshis
	ScriptPubKey []byte         `json:"script_pubkey"` // locking script bytes
	BlockHeight  *uint32        `json:"block_height,omitempty"`
	Spent        bool           `json:"spent"`
}

// OutPoint returns the outpoint this UTXO refers to.
func (u *UTXO) OutPoint() OutPoint {
	return OutPoint{TxID: u.TxID, Vout: u.Vout}
}

// Confirmed reports whether the UTXO has been mined.
func (u *UTXO) Confirmed() bool {
	return u.BlockHeight != nil
}

// Confirmations returns the number of confirmations at tip height.
func (u *UTXO) Confirmations(tip uint32) uint32 {
	if u.BlockHeight == nil || *u.BlockHeight > tip {
		return 0
	}
	return tip - *u.BlockHeight + 1
}
