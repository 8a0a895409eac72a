package consensus

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

const (
	// BlockHeaderSize is the size of a serialized block header in bytes.
	BlockHeaderSize = 80

	// HashHexLen is the length of a hash in display hex.
	HashHexLen = 2 * chainhash.HashSize
)

// BlockHeader is a block header with hashes in display (byte-reversed) hex.
// Height is not part of the wire header and is tracked alongside it.
type BlockHeader struct {
	Version    int32
	Hash       string
	PrevHash   string
	MerkleRoot string
	Height     int64
	Timestamp  int64
	Bits       uint32
	Nonce      uint32
}

// Serialize returns the 80-byte wire header.
//
// Layout: version(4) | prevHash(32) | merkleRoot(32) | timestamp(4) | bits(4) | nonce(4)
func (h *BlockHeader) Serialize() ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: header", ErrNilParam)
	}
	prev, err := decodeHash(h.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("%w: prev hash: %w", ErrInvalidHeader, err)
	}
	merkle, err := decodeHash(h.MerkleRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: merkle root: %w", ErrInvalidHeader, err)
	}
	if h.Timestamp < 0 || h.Timestamp > math.MaxUint32 {
		return nil, fmt.Errorf("%w: timestamp %d does not fit in 32 bits", ErrInvalidHeader, h.Timestamp)
	}

	buf := make([]byte, BlockHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:36], prev[:])
	copy(buf[36:68], merkle[:])
	binary.LittleEndian.PutUint32(buf[68:72], uint32(h.Timestamp))
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	return buf, nil
}

// ComputeHash returns the double-SHA256 of the serialized header in display hex.
func (h *BlockHeader) ComputeHash() (string, error) {
	raw, err := h.Serialize()
	if err != nil {
		return "", err
	}
	return chainhash.DoubleHashH(raw).String(), nil
}

// DeserializeHeader decodes an 80-byte wire header. Hash is computed from the data.
func DeserializeHeader(data []byte, height int64) (*BlockHeader, error) {
	if len(data) != BlockHeaderSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHeader, BlockHeaderSize, len(data))
	}

	var prev, merkle chainhash.Hash
	copy(prev[:], data[4:36])
	copy(merkle[:], data[36:68])

	return &BlockHeader{
		Version:    int32(binary.LittleEndian.Uint32(data[0:4])),
		Hash:       chainhash.DoubleHashH(data).String(),
		PrevHash:   prev.String(),
		MerkleRoot: merkle.String(),
		Height:     height,
		Timestamp:  int64(binary.LittleEndian.Uint32(data[68:72])),
		Bits:       binary.LittleEndian.Uint32(data[72:76]),
		Nonce:      binary.LittleEndian.Uint32(data[76:80]),
	}, nil
}

func decodeHash(s string) (chainhash.Hash, error) {
	var h chainhash.Hash
	if len(s) != HashHexLen {
		return h, fmt.Errorf("hash %q has %d characters", s, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	for i := range b {
		h[i] = b[len(b)-1-i]
	}
	return h, nil
}

func isHashHex(s string) bool {
	_, err := decodeHash(s)
	return err == nil
}

// HashToBig interprets a display-hex hash as a 256-bit unsigned integer.
func HashToBig(hash string) (*big.Int, error) {
	if !isHashHex(hash) {
		return nil, fmt.Errorf("%w: hash %q", ErrInvalidHeader, hash)
	}
	n, _ := new(big.Int).SetString(hash, 16)
	return n, nil
}

// CompactToBig converts a compact (nBits) target to a big.Int.
// Format: 0xEEMMMMMM where EE is the exponent and MMMMMM the mantissa.
// A set sign bit yields zero.
func CompactToBig(bits uint32) *big.Int {
	exponent := bits >> 24
	mantissa := int64(bits & 0x007fffff)
	if bits&0x00800000 != 0 {
		mantissa = 0
	}

	target := big.NewInt(mantissa)
	if exponent <= 3 {
		target.Rsh(target, uint(8*(3-exponent)))
	} else {
		target.Lsh(target, uint(8*(exponent-3)))
	}
	return target
}

// BigToCompact is the inverse of CompactToBig for non-negative targets.
func BigToCompact(n *big.Int) uint32 {
	if n == nil || n.Sign() <= 0 {
		return 0
	}

	exponent := uint32(len(n.Bytes()))
	var mantissa uint32
	if exponent <= 3 {
		mantissa = uint32(n.Uint64()) << (8 * (3 - exponent))
	} else {
		mantissa = uint32(new(big.Int).Rsh(n, uint(8*(exponent-3))).Uint64())
	}

	// Keep the sign bit clear by moving one byte into the exponent.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}
	return exponent<<24 | mantissa
}
