package network

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/spvcore-go/consensus"
	"github.com/bitfsorg/spvcore-go/tx"
)

// MockBlockchainService is a test double for BlockchainService.
// Function fields must be set before the corresponding method is called.
type MockBlockchainService struct {
	ListUnspentFn        func(ctx context.Context, addresses ...string) ([]tx.UTXO, error)
	GetTxOutFn           func(ctx context.Context, op tx.OutPoint, includeMempool bool) (*TxOut, error)
	SendRawTransactionFn func(ctx context.Context, t *tx.Transaction) (chainhash.Hash, error)
	GetRawTransactionFn  func(ctx context.Context, txid chainhash.Hash) (*tx.Transaction, error)
	GetBlockHeaderFn     func(ctx context.Context, blockHash string, height int64) (*consensus.BlockHeader, error)
	GetBlockHashFn       func(ctx context.Context, height int64) (string, error)
	GetBlockCountFn      func(ctx context.Context) (int64, error)
	GetMempoolEntryFn    func(ctx context.Context, txid chainhash.Hash) (*MempoolEntry, error)
	ImportAddressFn      func(ctx context.Context, address string, rescan bool) error
}

var _ BlockchainService = (*MockBlockchainService)(nil)

func (m *MockBlockchainService) ListUnspent(ctx context.Context, addresses ...string) ([]tx.UTXO, error) {
	return m.ListUnspentFn(ctx, addresses...)
}
func (m *MockBlockchainService) GetTxOut(ctx context.Context, op tx.OutPoint, includeMempool bool) (*TxOut, error) {
	return m.GetTxOutFn(ctx, op, includeMempool)
}
func (m *MockBlockchainService) SendRawTransaction(ctx context.Context, t *tx.Transaction) (chainhash.Hash, error) {
	return m.SendRawTransactionFn(ctx, t)
}
func (m *MockBlockchainService) GetRawTransaction(ctx context.Context, txid chainhash.Hash) (*tx.Transaction, error) {
	return m.GetRawTransactionFn(ctx, txid)
}
func (m *MockBlockchainService) GetBlockHeader(ctx context.Context, blockHash string, height int64) (*consensus.BlockHeader, error) {
	return m.GetBlockHeaderFn(ctx, blockHash, height)
}
func (m *MockBlockchainService) GetBlockHash(ctx context.Context, height int64) (string, error) {
	return m.GetBlockHashFn(ctx, height)
}
func (m *MockBlockchainService) GetBlockCount(ctx context.Context) (int64, error) {
	return m.GetBlockCountFn(ctx)
}
func (m *MockBlockchainService) GetMempoolEntry(ctx context.Context, txid chainhash.Hash) (*MempoolEntry, error) {
	return m.GetMempoolEntryFn(ctx, txid)
}
func (m *MockBlockchainService) ImportAddress(ctx context.Context, address string, rescan bool) error {
	return m.ImportAddressFn(ctx, address, rescan)
}
