package signer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/amount"
	"github.com/bitfsorg/spvcore-go/curve"
	"github.com/bitfsorg/spvcore-go/script"
	"github.com/bitfsorg/spvcore-go/tx"
)

var errNoKey = errors.New("no key")

type keyMap map[string][]byte

func (m keyMap) PrivateKeyFor(_ context.Context, addr string) ([]byte, error) {
	k, ok := m[addr]
	if !ok {
		return nil, errNoKey
	}
	return append([]byte(nil), k...), nil
}

func privKey(b byte) []byte {
	k := make([]byte, 32)
	k[31] = b
	k[0] = 0x11
	return k
}

type owned struct {
	addr string
	utxo tx.UTXO
}

func ownedOutput(t *testing.T, keys keyMap, kind string, seed byte, value amount.Amount) owned {
	t.Helper()
	net := &address.RegTest
	priv := privKey(seed)

	var (
		addr string
		err  error
	)
	switch kind {
	case "p2pkh":
		pub, perr := curve.CreatePublicKey(priv)
		require.NoError(t, perr)
		addr, err = address.P2PKH(pub, net)
	case "p2pkh-uncompressed":
		pub, perr := curve.CreatePublicKeyUncompressed(priv)
		require.NoError(t, perr)
		addr, err = address.P2PKH(pub, net)
	case "p2wpkh":
		pub, perr := curve.CreatePublicKey(priv)
		require.NoError(t, perr)
		addr, err = address.P2WPKH(pub, net)
	case "p2sh-p2wpkh":
		pub, perr := curve.CreatePublicKey(priv)
		require.NoError(t, perr)
		addr, err = address.P2SHP2WPKH(pub, net)
	default:
		t.Fatalf("unknown kind %s", kind)
	}
	require.NoError(t, err)
	keys[addr] = priv

	pk, err := script.ForAddress(addr, net)
	require.NoError(t, err)
	return owned{addr: addr, utxo: tx.UTXO{
		TxID:         chainhash.Hash{seed, 0xaa},
		Vout:         uint32(seed),
		Address:      addr,
		Amount:       value,
		ScriptPubKey: pk,
	}}
}

func spendAll(prevOuts []tx.UTXO) *tx.Transaction {
	t := &tx.Transaction{Version: tx.DefaultVersion}
	for _, u := range prevOuts {
		t.Inputs = append(t.Inputs, tx.TxInput{PrevOut: u.OutPoint(), Sequence: tx.SequenceReplaceable})
	}
	t.Outputs = []tx.TxOutput{{Value: 10_000, ScriptPubKey: []byte{0x00, 0x14, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}}}
	return t
}

// verify runs every input through the btcd script interpreter.
func verify(t *testing.T, signed *tx.Transaction, prevOuts []tx.UTXO) {
	t.Helper()
	msg, err := toWire(signed)
	require.NoError(t, err)

	fetched := make(map[wire.OutPoint]*wire.TxOut, len(prevOuts))
	for i, u := range prevOuts {
		fetched[msg.TxIn[i].PreviousOutPoint] = wire.NewTxOut(int64(u.Amount), u.ScriptPubKey)
	}
	fetcher := txscript.NewMultiPrevOutFetcher(fetched)
	sigHashes := txscript.NewTxSigHashes(msg, fetcher)

	for i, u := range prevOuts {
		vm, err := txscript.NewEngine(u.ScriptPubKey, msg, i, txscript.StandardVerifyFlags, nil, sigHashes, int64(u.Amount), fetcher)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d (%s)", i, script.Classify(u.ScriptPubKey))
	}
}

func TestSignEachTemplate(t *testing.T) {
	kinds := []string{"p2pkh", "p2pkh-uncompressed", "p2wpkh", "p2sh-p2wpkh"}
	for i, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			keys := keyMap{}
			o := ownedOutput(t, keys, kind, byte(i+1), 50_000)
			prevOuts := []tx.UTXO{o.utxo}
			spend := spendAll(prevOuts)

			require.NoError(t, New(keys, &address.RegTest, nil).Sign(context.Background(), spend, prevOuts))
			verify(t, spend, prevOuts)

			switch kind {
			case "p2wpkh":
				assert.Empty(t, spend.Inputs[0].ScriptSig)
				assert.Len(t, spend.Inputs[0].Witness, 2)
			case "p2sh-p2wpkh":
				assert.Len(t, spend.Inputs[0].ScriptSig, 23)
				assert.Len(t, spend.Inputs[0].Witness, 2)
			default:
				assert.NotEmpty(t, spend.Inputs[0].ScriptSig)
				assert.Empty(t, spend.Inputs[0].Witness)
			}
		})
	}
}

func TestSignMixedInputs(t *testing.T) {
	keys := keyMap{}
	prevOuts := []tx.UTXO{
		ownedOutput(t, keys, "p2wpkh", 1, 20_000).utxo,
		ownedOutput(t, keys, "p2pkh", 2, 30_000).utxo,
		ownedOutput(t, keys, "p2sh-p2wpkh", 3, 40_000).utxo,
	}
	spend := spendAll(prevOuts)
	txidBefore := spend.TxID()

	require.NoError(t, New(keys, &address.RegTest, nil).Sign(context.Background(), spend, prevOuts))
	verify(t, spend, prevOuts)
	assert.True(t, spend.HasWitness())
	assert.NotEqual(t, txidBefore, spend.TxID(), "legacy scriptSig changes the txid")
}

func TestSignNeverLogsKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	keys := keyMap{}
	o := ownedOutput(t, keys, "p2wpkh", 9, 10_000)
	prevOuts := []tx.UTXO{o.utxo}

	require.NoError(t, New(keys, &address.RegTest, &logger).Sign(context.Background(), spendAll(prevOuts), prevOuts))
	assert.Contains(t, buf.String(), "transaction signed")
	assert.NotContains(t, buf.String(), "1100000000000000000000000000000000000000000000000000000000000009")
}

func TestSignErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("nil transaction", func(t *testing.T) {
		err := New(keyMap{}, nil, nil).Sign(ctx, nil, nil)
		assert.ErrorIs(t, err, ErrNilParam)
	})

	t.Run("prevout count", func(t *testing.T) {
		keys := keyMap{}
		o := ownedOutput(t, keys, "p2wpkh", 1, 10_000)
		err := New(keys, &address.RegTest, nil).Sign(ctx, spendAll([]tx.UTXO{o.utxo}), nil)
		assert.ErrorIs(t, err, tx.ErrSigningFailed)
		assert.ErrorIs(t, err, ErrPrevOutMismatch)
	})

	t.Run("prevout outpoint", func(t *testing.T) {
		keys := keyMap{}
		o := ownedOutput(t, keys, "p2wpkh", 1, 10_000)
		spend := spendAll([]tx.UTXO{o.utxo})
		other := o.utxo
		other.Vout++
		err := New(keys, &address.RegTest, nil).Sign(ctx, spend, []tx.UTXO{other})
		assert.ErrorIs(t, err, ErrPrevOutMismatch)
	})

	t.Run("unknown key", func(t *testing.T) {
		keys := keyMap{}
		o := ownedOutput(t, keys, "p2pkh", 1, 10_000)
		delete(keys, o.addr)
		spend := spendAll([]tx.UTXO{o.utxo})
		err := New(keys, &address.RegTest, nil).Sign(ctx, spend, []tx.UTXO{o.utxo})
		assert.ErrorIs(t, err, errNoKey)
		assert.Empty(t, spend.Inputs[0].ScriptSig, "failed signing leaves the tx untouched")
	})

	t.Run("wrong key", func(t *testing.T) {
		keys := keyMap{}
		o := ownedOutput(t, keys, "p2wpkh", 1, 10_000)
		keys[o.addr] = privKey(2)
		err := New(keys, &address.RegTest, nil).Sign(ctx, spendAll([]tx.UTXO{o.utxo}), []tx.UTXO{o.utxo})
		assert.ErrorIs(t, err, ErrKeyMismatch)
	})

	t.Run("unsupported script", func(t *testing.T) {
		u := tx.UTXO{TxID: chainhash.Hash{1}, Amount: 10_000, ScriptPubKey: []byte{0x51}}
		err := New(keyMap{}, &address.RegTest, nil).Sign(ctx, spendAll([]tx.UTXO{u}), []tx.UTXO{u})
		assert.ErrorIs(t, err, ErrUnsupportedScript)
	})

	t.Run("cancelled", func(t *testing.T) {
		keys := keyMap{}
		o := ownedOutput(t, keys, "p2wpkh", 1, 10_000)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := New(keys, &address.RegTest, nil).Sign(cctx, spendAll([]tx.UTXO{o.utxo}), []tx.UTXO{o.utxo})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
