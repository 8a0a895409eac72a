package script

import (
	"fmt"

	"github.com/bitfsorg/spvcore-go/address"
)

// Class is a standard script template.
type Class int

const (
	ClassNonStandard Class = iota
	ClassPubKeyHash
	ClassScriptHash
	ClassWitnessPubKeyHash
	ClassWitnessScriptHash
	ClassMultiSig
	ClassNullData
)

var classNames = map[Class]string{
	ClassNonStandard:       "nonstandard",
	ClassPubKeyHash:        "pubkeyhash",
	ClassScriptHash:        "scripthash",
	ClassWitnessPubKeyHash: "witness_v0_keyhash",
	ClassWitnessScriptHash: "witness_v0_scripthash",
	ClassMultiSig:          "multisig",
	ClassNullData:          "nulldata",
}

func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Classify matches s against the standard templates by exact byte pattern.
func Classify(s []byte) Class {
	switch {
	case isP2PKH(s):
		return ClassPubKeyHash
	case isP2SH(s):
		return ClassScriptHash
	case isP2WPKH(s):
		return ClassWitnessPubKeyHash
	case isP2WSH(s):
		return ClassWitnessScriptHash
	case isNullData(s):
		return ClassNullData
	case isMultiSig(s):
		return ClassMultiSig
	default:
		return ClassNonStandard
	}
}

func isP2PKH(s []byte) bool {
	return len(s) == P2PKHSize &&
		s[0] == OpDUP &&
		s[1] == OpHASH160 &&
		s[2] == OpDATA20 &&
		s[23] == OpEQUALVERIFY &&
		s[24] == OpCHECKSIG
}

func isP2SH(s []byte) bool {
	return len(s) == P2SHSize &&
		s[0] == OpHASH160 &&
		s[1] == OpDATA20 &&
		s[22] == OpEQUAL
}

func isP2WPKH(s []byte) bool {
	return len(s) == P2WPKHSize && s[0] == Op0 && s[1] == OpDATA20
}

func isP2WSH(s []byte) bool {
	return len(s) == P2WSHSize && s[0] == Op0 && s[1] == OpDATA32
}

func isNullData(s []byte) bool {
	if len(s) < 1 || s[0] != OpRETURN {
		return false
	}
	ops, err := Parse(s[1:])
	if err != nil {
		return false
	}
	for _, op := range ops {
		if !op.IsPush() {
			return false
		}
	}
	return true
}

func isMultiSig(s []byte) bool {
	ops, err := Parse(s)
	if err != nil || len(ops) < 4 {
		return false
	}
	if ops[len(ops)-1].Code != OpCHECKMULTISIG {
		return false
	}

	m, ok := SmallIntValue(ops[0].Code)
	if !ok || m < 1 {
		return false
	}
	n, ok := SmallIntValue(ops[len(ops)-2].Code)
	if !ok || n < m {
		return false
	}

	keys := ops[1 : len(ops)-2]
	if len(keys) != n {
		return false
	}
	for _, k := range keys {
		if len(k.Data) != 33 && len(k.Data) != 65 {
			return false
		}
	}
	return true
}

// IsUnspendable reports whether an output with this script can never be
// spent: it starts with OP_RETURN or exceeds the script size limit.
func IsUnspendable(s []byte) bool {
	return (len(s) > 0 && s[0] == OpRETURN) || len(s) > MaxScriptSize
}

// ExtractAddress returns the address a single-destination script pays to.
func ExtractAddress(s []byte, net *address.NetworkConfig) (string, error) {
	switch Classify(s) {
	case ClassPubKeyHash:
		return address.EncodeBase58Check(net.AddressVersion, s[3:23]), nil
	case ClassScriptHash:
		return address.EncodeBase58Check(net.P2SHVersion, s[2:22]), nil
	case ClassWitnessPubKeyHash, ClassWitnessScriptHash:
		if !net.SupportsSegWit() {
			return "", fmt.Errorf("%w: %s has no bech32 prefix", ErrNoAddress, net.Name)
		}
		return address.EncodeSegWitAddress(net.Bech32HRP, 0, s[2:])
	default:
		return "", ErrNoAddress
	}
}
