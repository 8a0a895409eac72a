package network

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/consensus"
)

const block1Hash = "00000000839a8e6886ab5951d76f411475428afc90947ee320161bbf18eb6048"

func mainnetHeaders(t *testing.T) map[string]string {
	t.Helper()
	block1 := &consensus.BlockHeader{
		Version:    1,
		Hash:       block1Hash,
		PrevHash:   genesisBlockHash,
		MerkleRoot: "0e3e2357e806b6cdb1f70b54c3a3a17b6714ee1f0e68bebb44a74b1efd512098",
		Height:     1,
		Timestamp:  1231469665,
		Bits:       0x1d00ffff,
		Nonce:      2573394689,
	}
	raw, err := block1.Serialize()
	require.NoError(t, err)
	return map[string]string{
		genesisBlockHash: genesisHeaderHex,
		block1Hash:       hex.EncodeToString(raw),
	}
}

func syncNode(t *testing.T, tip int64, hashes []string) *RPCClient {
	headers := mainnetHeaders(t)
	client, _ := mockNode(t, map[string]rpcHandler{
		"getblockcount": func([]any) (any, *RPCError) { return tip, nil },
		"getblockhash": func(params []any) (any, *RPCError) {
			return hashes[int(params[0].(float64))], nil
		},
		"getblockheader": func(params []any) (any, *RPCError) {
			return headers[params[0].(string)], nil
		},
	})
	return client
}

func mainnetValidator() *consensus.Validator {
	clock := func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return consensus.NewValidator(consensus.ParamsForNetwork(&address.MainNet), consensus.WithClock(clock))
}

func TestHeaderSyncerSync(t *testing.T) {
	store := consensus.NewMemHeaderStore()
	syncer := NewHeaderSyncer(syncNode(t, 1, []string{genesisBlockHash, block1Hash}), mainnetValidator(), store, nil)

	n, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tip, err := store.GetTip()
	require.NoError(t, err)
	assert.Equal(t, block1Hash, tip.Hash)
	assert.Equal(t, int64(1), tip.Height)

	n, err = syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "already at tip")
}

func TestHeaderSyncerResumesFromTip(t *testing.T) {
	store := consensus.NewMemHeaderStore()
	v := mainnetValidator()

	n, err := NewHeaderSyncer(syncNode(t, 0, []string{genesisBlockHash}), v, store, nil).Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = NewHeaderSyncer(syncNode(t, 1, []string{"unused", block1Hash}), v, store, nil).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHeaderSyncerRejectsDisconnectedHeader(t *testing.T) {
	store := consensus.NewMemHeaderStore()
	// The node claims block 1 sits at height 0; it fails the genesis checkpoint.
	syncer := NewHeaderSyncer(syncNode(t, 0, []string{block1Hash}), mainnetValidator(), store, nil)

	n, err := syncer.Sync(context.Background())
	assert.Zero(t, n)
	assert.ErrorIs(t, err, consensus.ErrCheckpointMismatch)

	count, err := store.GetHeaderCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHeaderSyncerRejectsMislabelledHeader(t *testing.T) {
	headers := mainnetHeaders(t)
	client, _ := mockNode(t, map[string]rpcHandler{
		"getblockcount": func([]any) (any, *RPCError) { return 0, nil },
		"getblockhash":  func([]any) (any, *RPCError) { return block1Hash, nil },
		"getblockheader": func([]any) (any, *RPCError) {
			return headers[genesisBlockHash], nil
		},
	})
	syncer := NewHeaderSyncer(client, mainnetValidator(), consensus.NewMemHeaderStore(), nil)

	_, err := syncer.Sync(context.Background())
	assert.ErrorIs(t, err, consensus.ErrHashMismatch)
}

func TestHeaderSyncerRequiresCollaborators(t *testing.T) {
	_, err := NewHeaderSyncer(nil, nil, nil, nil).Sync(context.Background())
	assert.ErrorIs(t, err, ErrNilParam)
}
