package consensus

import (
	"time"

	"github.com/bitfsorg/spvcore-go/address"
)

const (
	// MaxTxSize is the largest serialized transaction accepted, in bytes.
	MaxTxSize = 100_000

	// MaxFutureBlockTime bounds how far ahead of the local clock a header may be.
	MaxFutureBlockTime = 2 * time.Hour
)

// Compact encodings of the easiest allowed target per network.
const (
	MainNetPowLimitBits uint32 = 0x1d00ffff
	TestNetPowLimitBits uint32 = 0x1d00ffff
	SigNetPowLimitBits  uint32 = 0x1e0377ae
	RegTestPowLimitBits uint32 = 0x207fffff
)

// Params holds the per-network inputs to header validation.
type Params struct {
	Name         string
	PowLimitBits uint32
	// Checkpoints maps a height to the block hash (display hex) required there.
	Checkpoints map[int64]string
}

// ParamsForNetwork derives validation parameters for net. The genesis hash is
// always installed as the height 0 checkpoint. A nil net means mainnet.
func ParamsForNetwork(net *address.NetworkConfig) Params {
	if net == nil {
		net = &address.MainNet
	}
	p := Params{
		Name:         net.Name,
		PowLimitBits: MainNetPowLimitBits,
		Checkpoints:  make(map[int64]string),
	}
	switch net.Name {
	case address.TestNet.Name:
		p.PowLimitBits = TestNetPowLimitBits
	case address.SigNet.Name:
		p.PowLimitBits = SigNetPowLimitBits
	case address.RegTest.Name:
		p.PowLimitBits = RegTestPowLimitBits
	case address.MainNet.Name:
		p.Checkpoints[11111] = "0000000069e244f73d78e8fd29ba2fd2ed618bd6fa2ee92559f542fdb26e7c1d"
	}
	if net.GenesisHash != "" {
		p.Checkpoints[0] = net.GenesisHash
	}
	return p
}
