// Package address encodes and decodes Bitcoin addresses.
//
// Legacy addresses use Base58Check over a version byte and a 20-byte hash.
// Native SegWit addresses use Bech32 (version 0) or Bech32m (version 1+).
package address

import (
	"fmt"
	"strings"

	"github.com/bitfsorg/spvcore-go/curve"
)

// Type is the script template an address pays to.
type Type int

const (
	TypeUnknown Type = iota
	TypeP2PKH
	TypeP2SH
	TypeP2WPKH
	TypeP2WSH
	// TypeWitnessUnknown is a valid witness program of a version or size without a named template.
	TypeWitnessUnknown
)

func (t Type) String() string {
	switch t {
	case TypeP2PKH:
		return "p2pkh"
	case TypeP2SH:
		return "p2sh"
	case TypeP2WPKH:
		return "p2wpkh"
	case TypeP2WSH:
		return "p2wsh"
	case TypeWitnessUnknown:
		return "witness_unknown"
	default:
		return "unknown"
	}
}

// Kind selects how a new single-key address is derived from a public key.
type Kind int

const (
	// KindLegacy is P2PKH.
	KindLegacy Kind = iota
	// KindNestedSegWit is P2WPKH wrapped in P2SH.
	KindNestedSegWit
	// KindSegWit is native P2WPKH.
	KindSegWit
)

func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindNestedSegWit:
		return "p2sh-segwit"
	case KindSegWit:
		return "bech32"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts the names used by node RPC ("legacy", "p2sh-segwit",
// "bech32") and the template names ("p2pkh", "p2sh-p2wpkh", "p2wpkh").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "legacy", "p2pkh":
		return KindLegacy, nil
	case "p2sh-segwit", "p2sh-p2wpkh":
		return KindNestedSegWit, nil
	case "bech32", "p2wpkh", "segwit":
		return KindSegWit, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
}

// Address is a decoded address.
type Address struct {
	Type Type
	// Hash is the 20-byte key or script hash for Base58 addresses, or the witness program.
	Hash           []byte
	WitnessVersion byte
	Network        *NetworkConfig

	encoded string
}

// String returns the canonical encoding.
func (a *Address) String() string {
	return a.encoded
}

// IsWitness reports whether the address is a native SegWit address.
func (a *Address) IsWitness() bool {
	switch a.Type {
	case TypeP2WPKH, TypeP2WSH, TypeWitnessUnknown:
		return true
	}
	return false
}

// P2PKH returns Base58Check(AddressVersion, Hash160(pubkey)).
func P2PKH(pubkey []byte, net *NetworkConfig) (string, error) {
	if !curve.IsValidPublicKey(pubkey) {
		return "", curve.ErrInvalidPublicKey
	}
	return EncodeBase58Check(net.AddressVersion, Hash160(pubkey)), nil
}

// P2WPKH returns the version 0 witness address for Hash160(pubkey).
// Only compressed keys are standard in witness outputs.
func P2WPKH(pubkey []byte, net *NetworkConfig) (string, error) {
	if err := checkCompressed(pubkey); err != nil {
		return "", err
	}
	if !net.SupportsSegWit() {
		return "", fmt.Errorf("%w: %s has no bech32 prefix", ErrUnsupportedType, net.Name)
	}
	return encodeWitnessV0(net, Hash160(pubkey))
}

// P2SHP2WPKH returns Base58Check(P2SHVersion, Hash160(0x00 0x14 || Hash160(pubkey))).
func P2SHP2WPKH(pubkey []byte, net *NetworkConfig) (string, error) {
	if err := checkCompressed(pubkey); err != nil {
		return "", err
	}
	return EncodeBase58Check(net.P2SHVersion, Hash160(WitnessV0KeyHashRedeemScript(pubkey))), nil
}

// P2SH returns the script-hash address of a redeem script.
func P2SH(redeemScript []byte, net *NetworkConfig) string {
	return EncodeBase58Check(net.P2SHVersion, Hash160(redeemScript))
}

// P2WSH returns the version 0 witness address of SHA256(witnessScript).
func P2WSH(witnessScript []byte, net *NetworkConfig) (string, error) {
	if !net.SupportsSegWit() {
		return "", fmt.Errorf("%w: %s has no bech32 prefix", ErrUnsupportedType, net.Name)
	}
	return encodeWitnessV0(net, SHA256(witnessScript))
}

func encodeWitnessV0(net *NetworkConfig, program []byte) (string, error) {
	if err := checkV0Program(0, program); err != nil {
		return "", err
	}
	return EncodeSegWitAddress(net.Bech32HRP, 0, program)
}

// FromPubKey derives an address of the requested kind.
func FromPubKey(kind Kind, pubkey []byte, net *NetworkConfig) (string, error) {
	switch kind {
	case KindLegacy:
		return P2PKH(pubkey, net)
	case KindNestedSegWit:
		return P2SHP2WPKH(pubkey, net)
	case KindSegWit:
		return P2WPKH(pubkey, net)
	default:
		return "", fmt.Errorf("%w: %v", ErrUnsupportedType, kind)
	}
}

// WitnessV0KeyHashRedeemScript returns OP_0 PUSH20 Hash160(pubkey), the
// redeem script of a nested P2WPKH output.
func WitnessV0KeyHashRedeemScript(pubkey []byte) []byte {
	return append([]byte{0x00, Hash160Size}, Hash160(pubkey)...)
}

func checkCompressed(pubkey []byte) error {
	if len(pubkey) != curve.CompressedPubKeySize {
		return fmt.Errorf("%w: witness outputs require a compressed key", curve.ErrInvalidPublicKey)
	}
	if !curve.IsValidPublicKey(pubkey) {
		return curve.ErrInvalidPublicKey
	}
	return nil
}

// Decode parses addr for the given network.
func Decode(addr string, net *NetworkConfig) (*Address, error) {
	if net == nil {
		net = &MainNet
	}
	if addr == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	if hrp, _, _, err := decodeBech32(addr); err == nil {
		if !net.SupportsSegWit() || hrp != net.Bech32HRP {
			return nil, fmt.Errorf("%w: prefix %q on %s", ErrWrongNetwork, hrp, net.Name)
		}
		return decodeSegWit(addr, net)
	}

	version, payload, err := DecodeBase58Check(addr)
	if err != nil {
		return nil, err
	}
	if len(payload) != Hash160Size {
		return nil, fmt.Errorf("%w: %w: payload is %d bytes", ErrInvalidAddress, ErrInvalidLength, len(payload))
	}

	a := &Address{Hash: payload, Network: net, encoded: addr}
	switch version {
	case net.AddressVersion:
		a.Type = TypeP2PKH
	case net.P2SHVersion:
		a.Type = TypeP2SH
	default:
		return nil, fmt.Errorf("%w: version byte 0x%02x on %s", ErrWrongNetwork, version, net.Name)
	}
	return a, nil
}

func decodeSegWit(addr string, net *NetworkConfig) (*Address, error) {
	witver, program, err := DecodeSegWitAddress(net.Bech32HRP, addr)
	if err != nil {
		return nil, err
	}
	if err := checkV0Program(witver, program); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	a := &Address{
		Hash:           program,
		WitnessVersion: witver,
		Network:        net,
		encoded:        strings.ToLower(addr),
	}
	switch {
	case witver == 0 && len(program) == Hash160Size:
		a.Type = TypeP2WPKH
	case witver == 0 && len(program) == 32:
		a.Type = TypeP2WSH
	default:
		a.Type = TypeWitnessUnknown
	}
	return a, nil
}

// Validate reports whether addr decodes on net.
func Validate(addr string, net *NetworkConfig) error {
	_, err := Decode(addr, net)
	return err
}
