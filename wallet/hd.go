package wallet

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"

	"github.com/bitfsorg/spvcore-go/address"
)

const (
	// Purpose fields per address kind (BIP44, BIP49, BIP84).
	PurposeLegacy = 44
	PurposeNested = 49
	PurposeSegWit = 84

	// Chain indices.
	ExternalChain = 0 // receive addresses
	InternalChain = 1 // change addresses

	// MaxAddressIndex is the largest non-hardened child index.
	MaxAddressIndex = 1<<31 - 1

	// Hardened is the BIP32 hardened offset.
	Hardened = 0x80000000
)

// Purpose returns the BIP43 purpose used for addresses of kind.
func Purpose(kind address.Kind) (uint32, error) {
	switch kind {
	case address.KindLegacy:
		return PurposeLegacy, nil
	case address.KindNestedSegWit:
		return PurposeNested, nil
	case address.KindSegWit:
		return PurposeSegWit, nil
	default:
		return 0, fmt.Errorf("%w: %v", address.ErrUnsupportedType, kind)
	}
}

// HDKeySource derives account 0 keys from a BIP32 master key.
type HDKeySource struct {
	master *bip32.ExtendedKey
	coin   uint32
}

// NewHDKeySource creates a key source from a BIP39 seed. A nil network
// means mainnet.
func NewHDKeySource(seed []byte, net *address.NetworkConfig) (*HDKeySource, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	if net == nil {
		net = &address.MainNet
	}
	master, err := bip32.NewMaster(seed, bip32Params(net))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	return &HDKeySource{master: master, coin: coinType(net)}, nil
}

// Derive returns the private scalar at m/purpose'/coin'/0'/chain/index and
// the path in human-readable form.
func (h *HDKeySource) Derive(kind address.Kind, chain, index uint32) ([]byte, string, error) {
	purpose, err := Purpose(kind)
	if err != nil {
		return nil, "", err
	}
	if chain != ExternalChain && chain != InternalChain {
		return nil, "", fmt.Errorf("%w: chain %d", ErrInvalidParams, chain)
	}
	if index > MaxAddressIndex {
		return nil, "", ErrIndexOutOfRange
	}

	key := h.master
	for depth, child := range []uint32{purpose + Hardened, h.coin + Hardened, Hardened, chain, index} {
		key, err = key.Child(child)
		if err != nil {
			return nil, "", fmt.Errorf("%w: depth %d: %w", ErrDerivationFailed, depth+1, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}
	path := fmt.Sprintf("m/%d'/%d'/0'/%d/%d", purpose, h.coin, chain, index)
	return priv.Serialize(), path, nil
}
