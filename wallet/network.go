package wallet

import (
	btcchaincfg "github.com/btcsuite/btcd/chaincfg"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/bitfsorg/spvcore-go/address"
)

// BIP44 coin types.
const (
	CoinTypeBitcoin = 0
	CoinTypeTest    = 1
)

// coinType returns the BIP44 coin type: 0 on mainnet, 1 on every test network.
func coinType(net *address.NetworkConfig) uint32 {
	if net.Name == address.MainNet.Name {
		return CoinTypeBitcoin
	}
	return CoinTypeTest
}

// bip32Params maps a network to the extended key version bytes.
func bip32Params(net *address.NetworkConfig) *chaincfg.Params {
	if net.Name == address.MainNet.Name {
		return &chaincfg.MainNet
	}
	return &chaincfg.TestNet
}

// wifParams maps a network to the parameters whose private key ID is used for WIF.
func wifParams(net *address.NetworkConfig) *btcchaincfg.Params {
	switch net.Name {
	case address.MainNet.Name:
		return &btcchaincfg.MainNetParams
	case address.RegTest.Name:
		return &btcchaincfg.RegressionNetParams
	case address.SigNet.Name:
		return &btcchaincfg.SigNetParams
	default:
		return &btcchaincfg.TestNet3Params
	}
}
