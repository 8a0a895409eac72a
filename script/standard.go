package script

import (
	"fmt"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/curve"
)

// Template sizes.
const (
	P2PKHSize  = 25
	P2SHSize   = 23
	P2WPKHSize = 22
	P2WSHSize  = 34

	maxMultiSigKeys = 16
)

// PayToPubKeyHash returns OP_DUP OP_HASH160 <20> OP_EQUALVERIFY OP_CHECKSIG.
func PayToPubKeyHash(hash []byte) ([]byte, error) {
	if len(hash) != address.Hash160Size {
		return nil, fmt.Errorf("%w: key hash is %d bytes", ErrInvalidHashLength, len(hash))
	}
	return NewBuilder().
		AddOp(OpDUP).
		AddOp(OpHASH160).
		AddData(hash).
		AddOp(OpEQUALVERIFY).
		AddOp(OpCHECKSIG).
		Script()
}

// PayToScriptHash returns OP_HASH160 <20> OP_EQUAL.
func PayToScriptHash(hash []byte) ([]byte, error) {
	if len(hash) != address.Hash160Size {
		return nil, fmt.Errorf("%w: script hash is %d bytes", ErrInvalidHashLength, len(hash))
	}
	return NewBuilder().AddOp(OpHASH160).AddData(hash).AddOp(OpEQUAL).Script()
}

// PayToWitnessPubKeyHash returns OP_0 <20>.
func PayToWitnessPubKeyHash(hash []byte) ([]byte, error) {
	if len(hash) != address.Hash160Size {
		return nil, fmt.Errorf("%w: witness key hash is %d bytes", ErrInvalidHashLength, len(hash))
	}
	return PayToWitness(0, hash)
}

// PayToWitnessScriptHash returns OP_0 <32>.
func PayToWitnessScriptHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("%w: witness script hash is %d bytes", ErrInvalidHashLength, len(hash))
	}
	return PayToWitness(0, hash)
}

// PayToWitness returns <version> <program> for any witness version 0..16.
func PayToWitness(version int, program []byte) ([]byte, error) {
	if len(program) < 2 || len(program) > 40 {
		return nil, fmt.Errorf("%w: witness program is %d bytes", ErrInvalidHashLength, len(program))
	}
	return NewBuilder().AddSmallInt(version).AddData(program).Script()
}

// NullData returns OP_RETURN followed by one push per element.
func NullData(data ...[]byte) ([]byte, error) {
	b := NewBuilder().AddOp(OpRETURN)
	for _, d := range data {
		b.AddData(d)
	}
	return b.Script()
}

// MultiSig returns <m> <pubkey>... <n> OP_CHECKMULTISIG.
func MultiSig(m int, pubkeys [][]byte) ([]byte, error) {
	n := len(pubkeys)
	if m < 1 || n < m || n > maxMultiSigKeys {
		return nil, fmt.Errorf("%w: %d-of-%d", ErrInvalidMultiSig, m, n)
	}

	b := NewBuilder().AddSmallInt(m)
	for i, pk := range pubkeys {
		if !curve.IsValidPublicKey(pk) {
			return nil, fmt.Errorf("%w: key %d is not a valid public key", ErrInvalidMultiSig, i)
		}
		b.AddData(pk)
	}
	return b.AddSmallInt(n).AddOp(OpCHECKMULTISIG).Script()
}

// ForAddress returns the locking script that pays to addr on net.
func ForAddress(addr string, net *address.NetworkConfig) ([]byte, error) {
	a, err := address.Decode(addr, net)
	if err != nil {
		return nil, err
	}
	return ForDecodedAddress(a)
}

// ForDecodedAddress returns the locking script for an already decoded address.
func ForDecodedAddress(a *address.Address) ([]byte, error) {
	switch a.Type {
	case address.TypeP2PKH:
		return PayToPubKeyHash(a.Hash)
	case address.TypeP2SH:
		return PayToScriptHash(a.Hash)
	case address.TypeP2WPKH:
		return PayToWitnessPubKeyHash(a.Hash)
	case address.TypeP2WSH:
		return PayToWitnessScriptHash(a.Hash)
	case address.TypeWitnessUnknown:
		return PayToWitness(int(a.WitnessVersion), a.Hash)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddress, a.Type)
	}
}
