package mempool

import (
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/spvcore-go/amount"
	"github.com/bitfsorg/spvcore-go/tx"
)

func spend(seed byte, vouts ...uint32) *tx.Transaction {
	var h chainhash.Hash
	h[0] = seed
	t := &tx.Transaction{Version: 2}
	for _, v := range vouts {
		t.Inputs = append(t.Inputs, tx.TxInput{
			PrevOut:  tx.OutPoint{TxID: h, Vout: v},
			Sequence: tx.SequenceFinal,
		})
	}
	t.Outputs = []tx.TxOutput{{Value: amount.Amount(1_000 + int(seed)), ScriptPubKey: []byte{0x51}}}
	return t
}

func TestPoolAddHasGetRemove(t *testing.T) {
	ctx := context.Background()
	p := New(0)

	a := spend(1, 0)
	require.NoError(t, p.Add(ctx, a, 226))
	assert.Equal(t, 1, p.Len())

	ok, err := p.Has(ctx, a.TxID())
	require.NoError(t, err)
	assert.True(t, ok)

	e, err := p.Get(a.TxID())
	require.NoError(t, err)
	assert.Equal(t, a.TxID(), e.TxID)
	assert.EqualValues(t, 226, e.Fee)
	assert.Equal(t, a.VirtualSize(), e.VSize)

	e.Tx.Version = 9
	again, err := p.Get(a.TxID())
	require.NoError(t, err)
	assert.Equal(t, int32(2), again.Tx.Version)

	assert.ErrorIs(t, p.Add(ctx, a, 226), ErrAlreadyExists)

	p.Remove(a.TxID())
	assert.Equal(t, 0, p.Len())
	_, err = p.Get(a.TxID())
	assert.ErrorIs(t, err, ErrNotFound)

	p.Remove(a.TxID())
}

func TestPoolConflict(t *testing.T) {
	ctx := context.Background()
	p := New(0)

	first := spend(1, 0, 1)
	require.NoError(t, p.Add(ctx, first, 1))

	second := spend(2, 5)
	second.Inputs = append(second.Inputs, first.Inputs[1])
	assert.ErrorIs(t, p.Add(ctx, second, 1), ErrConflict)

	p.Remove(first.TxID())
	require.NoError(t, p.Add(ctx, second, 1))
}

func TestPoolLimitAndParams(t *testing.T) {
	ctx := context.Background()
	p := New(1)

	require.NoError(t, p.Add(ctx, spend(1, 0), 1))
	assert.ErrorIs(t, p.Add(ctx, spend(2, 0), 1), ErrPoolFull)
	assert.ErrorIs(t, p.Add(ctx, nil, 1), ErrNilParam)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := p.Has(cancelled, chainhash.Hash{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, p.Add(cancelled, spend(3, 0), 1), context.Canceled)
}

func TestPoolUnbroadcast(t *testing.T) {
	ctx := context.Background()
	p := New(0)

	clock := time.Unix(1_700_000_000, 0)
	p.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	older := spend(1, 0)
	newer := spend(2, 0)
	require.NoError(t, p.Add(ctx, older, 1))
	require.NoError(t, p.Add(ctx, newer, 1))

	p.MarkUnbroadcast(newer.TxID())
	p.MarkUnbroadcast(older.TxID())
	p.MarkUnbroadcast(spend(3, 0).TxID())

	pending := p.Unbroadcast()
	require.Len(t, pending, 2)
	assert.Equal(t, older.TxID(), pending[0].TxID())
	assert.Equal(t, newer.TxID(), pending[1].TxID())
	assert.True(t, p.IsUnbroadcast(older.TxID()))

	p.MarkBroadcast(older.TxID())
	assert.False(t, p.IsUnbroadcast(older.TxID()))

	p.Remove(newer.TxID())
	assert.Empty(t, p.Unbroadcast())
}
