// Package signer fills in scriptSigs and witnesses for wallet-owned inputs.
package signer

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcchainhash "github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/rs/zerolog"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/script"
	"github.com/bitfsorg/spvcore-go/tx"
)

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("signer: required parameter is nil")

	// ErrUnsupportedScript indicates a prevout the signer cannot spend.
	ErrUnsupportedScript = errors.New("signer: unsupported script")

	// ErrKeyMismatch indicates the key found for an address does not hash to
	// the prevout's key or script hash.
	ErrKeyMismatch = errors.New("signer: key does not match output")

	// ErrPrevOutMismatch indicates prevouts not aligned with the inputs.
	ErrPrevOutMismatch = errors.New("signer: prevouts do not match inputs")
)

// KeyFinder resolves the private key controlling an address. The returned
// slice is owned by the caller.
type KeyFinder interface {
	PrivateKeyFor(ctx context.Context, address string) ([]byte, error)
}

// Signer signs P2PKH, P2WPKH and P2SH-P2WPKH inputs with SIGHASH_ALL.
type Signer struct {
	keys   KeyFinder
	net    *address.NetworkConfig
	logger zerolog.Logger
}

var _ tx.Signer = (*Signer)(nil)

// New returns a Signer. A nil logger disables logging.
func New(keys KeyFinder, net *address.NetworkConfig, logger *zerolog.Logger) *Signer {
	s := &Signer{keys: keys, net: net, logger: zerolog.Nop()}
	if s.net == nil {
		s.net = &address.MainNet
	}
	if logger != nil {
		s.logger = logger.With().Str("component", "signer").Logger()
	}
	return s
}

// Sign fills every input of t in place. prevOuts must be aligned with the
// inputs. On error t is left unchanged.
func (s *Signer) Sign(ctx context.Context, t *tx.Transaction, prevOuts []tx.UTXO) error {
	if t == nil || s.keys == nil {
		return fmt.Errorf("%w: transaction or key finder", ErrNilParam)
	}
	if len(prevOuts) != len(t.Inputs) {
		return fmt.Errorf("%w: %w: %d prevouts for %d inputs", tx.ErrSigningFailed, ErrPrevOutMismatch, len(prevOuts), len(t.Inputs))
	}

	msg, err := toWire(t)
	if err != nil {
		return fmt.Errorf("%w: %w", tx.ErrSigningFailed, err)
	}

	fetched := make(map[wire.OutPoint]*wire.TxOut, len(prevOuts))
	for i := range prevOuts {
		u := &prevOuts[i]
		if u.OutPoint() != t.Inputs[i].PrevOut {
			return fmt.Errorf("%w: %w: input %d", tx.ErrSigningFailed, ErrPrevOutMismatch, i)
		}
		fetched[msg.TxIn[i].PreviousOutPoint] = wire.NewTxOut(int64(u.Amount), u.ScriptPubKey)
	}
	fetcher := txscript.NewMultiPrevOutFetcher(fetched)
	sigHashes := txscript.NewTxSigHashes(msg, fetcher)

	for i := range msg.TxIn {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.signInput(ctx, msg, sigHashes, i, &prevOuts[i]); err != nil {
			return fmt.Errorf("%w: input %d: %w", tx.ErrSigningFailed, i, err)
		}
	}

	for i, in := range msg.TxIn {
		t.Inputs[i].ScriptSig = in.SignatureScript
		t.Inputs[i].Witness = nil
		if len(in.Witness) > 0 {
			t.Inputs[i].Witness = [][]byte(in.Witness)
		}
	}
	s.logger.Debug().Str("txid", t.TxID().String()).Int("inputs", len(t.Inputs)).Msg("transaction signed")
	return nil
}

func (s *Signer) signInput(ctx context.Context, msg *wire.MsgTx, sigHashes *txscript.TxSigHashes, idx int, u *tx.UTXO) error {
	class := script.Classify(u.ScriptPubKey)
	switch class {
	case script.ClassPubKeyHash, script.ClassWitnessPubKeyHash, script.ClassScriptHash:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedScript, class)
	}

	addr, err := script.ExtractAddress(u.ScriptPubKey, s.net)
	if err != nil {
		return err
	}
	raw, err := s.keys.PrivateKeyFor(ctx, addr)
	if err != nil {
		return fmt.Errorf("key for %s: %w", addr, err)
	}
	priv, pub := btcec.PrivKeyFromBytes(raw)
	clear(raw)
	defer priv.Zero()

	compressed := pub.SerializeCompressed()
	txIn := msg.TxIn[idx]

	switch class {
	case script.ClassPubKeyHash:
		keyHash := u.ScriptPubKey[3:23]
		compress := true
		if !bytes.Equal(address.Hash160(compressed), keyHash) {
			if !bytes.Equal(address.Hash160(pub.SerializeUncompressed()), keyHash) {
				return ErrKeyMismatch
			}
			compress = false
		}
		sigScript, err := txscript.SignatureScript(msg, idx, u.ScriptPubKey, txscript.SigHashAll, priv, compress)
		if err != nil {
			return err
		}
		txIn.SignatureScript = sigScript

	case script.ClassWitnessPubKeyHash:
		if !bytes.Equal(address.Hash160(compressed), u.ScriptPubKey[2:22]) {
			return ErrKeyMismatch
		}
		witness, err := txscript.WitnessSignature(msg, sigHashes, idx, int64(u.Amount), u.ScriptPubKey, txscript.SigHashAll, priv, true)
		if err != nil {
			return err
		}
		txIn.Witness = witness

	case script.ClassScriptHash:
		// Only nested P2WPKH is spendable with a single key.
		redeem := address.WitnessV0KeyHashRedeemScript(compressed)
		if !bytes.Equal(address.Hash160(redeem), u.ScriptPubKey[2:22]) {
			return fmt.Errorf("%w: script hash is not nested P2WPKH for this key", ErrKeyMismatch)
		}
		witness, err := txscript.WitnessSignature(msg, sigHashes, idx, int64(u.Amount), redeem, txscript.SigHashAll, priv, true)
		if err != nil {
			return err
		}
		txIn.Witness = witness
		txIn.SignatureScript = script.PushData(redeem)
	}
	return nil
}

// toWire converts t into a btcd message through its serialization.
func toWire(t *tx.Transaction) (*wire.MsgTx, error) {
	msg := wire.NewMsgTx(t.Version)
	if err := msg.Deserialize(bytes.NewReader(t.Serialize())); err != nil {
		return nil, err
	}
	if btcchainhash.Hash(t.TxID()) != msg.TxHash() {
		return nil, errors.New("wire round trip changed txid")
	}
	return msg, nil
}
