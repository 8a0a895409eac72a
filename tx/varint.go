package tx

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CompactSizeLen returns the encoded length of n.
func CompactSizeLen(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= math.MaxUint16:
		return 3
	case n <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}

// AppendCompactSize appends the CompactSize encoding of n to b.
//
//	< 0xfd        1 byte
//	<= 0xffff     0xfd + uint16 LE
//	<= 0xffffffff 0xfe + uint32 LE
//	otherwise     0xff + uint64 LE
func AppendCompactSize(b []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(b, byte(n))
	case n <= math.MaxUint16:
		return binary.LittleEndian.AppendUint16(append(b, 0xfd), uint16(n))
	case n <= math.MaxUint32:
		return binary.LittleEndian.AppendUint32(append(b, 0xfe), uint32(n))
	default:
		return binary.LittleEndian.AppendUint64(append(b, 0xff), n)
	}
}

// reader is a bounds-checked cursor over serialized transaction bytes.
type reader struct {
	b   []byte
	off int
}

func (r *reader) remaining() int { return len(r.b) - r.off }

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformedTx, n, r.off, r.remaining())
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// compactSize reads a CompactSize and rejects encodings that are not minimal.
func (r *reader) compactSize() (uint64, error) {
	prefix, err := r.byte()
	if err != nil {
		return 0, err
	}

	var n, min uint64
	switch prefix {
	case 0xfd:
		b, err := r.bytes(2)
		if err != nil {
			return 0, err
		}
		n, min = uint64(binary.LittleEndian.Uint16(b)), 0xfd
	case 0xfe:
		v, err := r.uint32()
		if err != nil {
			return 0, err
		}
		n, min = uint64(v), math.MaxUint16+1
	case 0xff:
		v, err := r.uint64()
		if err != nil {
			return 0, err
		}
		n, min = v, math.MaxUint32+1
	default:
		return uint64(prefix), nil
	}

	if n < min {
		return 0, fmt.Errorf("%w: value %d with prefix 0x%02x", ErrNonCanonicalVarInt, n, prefix)
	}
	return n, nil
}

// ReadCompactSize decodes a CompactSize at the start of b and returns the
// value and the number of bytes consumed.
func ReadCompactSize(b []byte) (uint64, int, error) {
	r := &reader{b: b}
	n, err := r.compactSize()
	if err != nil {
		return 0, 0, err
	}
	return n, r.off, nil
}

// varBytes reads a CompactSize length followed by that many bytes.
func (r *reader) varBytes() ([]byte, error) {
	n, err := r.compactSize()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: length %d exceeds remaining %d bytes", ErrMalformedTx, n, r.remaining())
	}
	if n == 0 {
		return nil, nil
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
