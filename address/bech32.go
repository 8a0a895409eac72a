package address

import (
	"fmt"
	"strings"
)

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// Encoding selects the checksum constant of a Bech32 string.
type Encoding int

const (
	// Bech32 is the BIP173 variant, used for witness version 0.
	Bech32 Encoding = iota + 1
	// Bech32m is the BIP350 variant, used for witness versions 1 through 16.
	Bech32m
)

const (
	bech32Const  = 1
	bech32mConst = 0x2bc830a3

	bech32MaxLen      = 90
	bech32ChecksumLen = 6
)

func (e Encoding) constant() uint32 {
	if e == Bech32m {
		return bech32mConst
	}
	return bech32Const
}

var bech32Generators = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

var bech32Index = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(bech32Charset); i++ {
		idx[bech32Charset[i]] = int8(i)
	}
	return idx
}()

// Polymod computes the BCH checksum polynomial over 5-bit values.
func Polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i, g := range bech32Generators {
			if (top>>uint(i))&1 == 1 {
				chk ^= g
			}
		}
	}
	return chk
}

// hrpExpand returns the high bits of each HRP character, a zero, then the low bits.
func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func bech32Checksum(hrp string, data []byte, enc Encoding) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, make([]byte, bech32ChecksumLen)...)
	mod := Polymod(values) ^ enc.constant()
	out := make([]byte, bech32ChecksumLen)
	for i := range out {
		out[i] = byte((mod >> uint(5*(5-i))) & 31)
	}
	return out
}

func verifyBech32Checksum(hrp string, data []byte) (Encoding, bool) {
	switch Polymod(append(hrpExpand(hrp), data...)) {
	case bech32Const:
		return Bech32, true
	case bech32mConst:
		return Bech32m, true
	default:
		return 0, false
	}
}

// EncodeBech32 encodes 5-bit data under hrp with the BIP173 checksum.
func EncodeBech32(hrp string, data []byte) (string, error) {
	return encodeBech32(hrp, data, Bech32)
}

// EncodeBech32m encodes 5-bit data under hrp with the BIP350 checksum.
func EncodeBech32m(hrp string, data []byte) (string, error) {
	return encodeBech32(hrp, data, Bech32m)
}

func encodeBech32(hrp string, data []byte, enc Encoding) (string, error) {
	if err := checkHRP(hrp); err != nil {
		return "", err
	}
	if len(hrp)+1+len(data)+bech32ChecksumLen > bech32MaxLen {
		return "", fmt.Errorf("%w: encoded string exceeds %d characters", ErrInvalidLength, bech32MaxLen)
	}
	hrp = strings.ToLower(hrp)

	var sb strings.Builder
	sb.Grow(len(hrp) + 1 + len(data) + bech32ChecksumLen)
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, v := range data {
		if v > 31 {
			return "", fmt.Errorf("%w: data value %d exceeds 5 bits", ErrInvalidCharacter, v)
		}
		sb.WriteByte(bech32Charset[v])
	}
	for _, v := range bech32Checksum(hrp, data, enc) {
		sb.WriteByte(bech32Charset[v])
	}
	return sb.String(), nil
}

func checkHRP(hrp string) error {
	if len(hrp) == 0 || len(hrp) > 83 {
		return fmt.Errorf("%w: human-readable part length %d", ErrInvalidLength, len(hrp))
	}
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return fmt.Errorf("%w: human-readable part byte 0x%02x", ErrInvalidCharacter, hrp[i])
		}
	}
	return nil
}

// DecodeBech32 decodes a BIP173 string into its lowercase HRP and 5-bit data,
// excluding the checksum. Bech32m strings are rejected.
func DecodeBech32(s string) (string, []byte, error) {
	hrp, data, enc, err := decodeBech32(s)
	if err != nil {
		return "", nil, err
	}
	if enc != Bech32 {
		return "", nil, fmt.Errorf("%w: %w: bech32m checksum", ErrInvalidAddress, ErrChecksumMismatch)
	}
	return hrp, data, nil
}

// decodeBech32 accepts either checksum variant and reports which one matched.
func decodeBech32(s string) (string, []byte, Encoding, error) {
	if len(s) > bech32MaxLen {
		return "", nil, 0, fmt.Errorf("%w: %w: %d characters", ErrInvalidAddress, ErrInvalidLength, len(s))
	}

	lower, upper := strings.ToLower(s), strings.ToUpper(s)
	if s != lower && s != upper {
		return "", nil, 0, fmt.Errorf("%w: %w", ErrInvalidAddress, ErrMixedCase)
	}
	s = lower

	pos := strings.LastIndexByte(s, '1')
	if pos < 1 || pos+bech32ChecksumLen+1 > len(s) {
		return "", nil, 0, fmt.Errorf("%w: %w: separator position", ErrInvalidAddress, ErrInvalidLength)
	}

	hrp := s[:pos]
	if err := checkHRP(hrp); err != nil {
		return "", nil, 0, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	data := make([]byte, 0, len(s)-pos-1)
	for i := pos + 1; i < len(s); i++ {
		v := bech32Index[s[i]]
		if v < 0 {
			return "", nil, 0, fmt.Errorf("%w: %w: %q", ErrInvalidAddress, ErrInvalidCharacter, s[i])
		}
		data = append(data, byte(v))
	}

	enc, ok := verifyBech32Checksum(hrp, data)
	if !ok {
		return "", nil, 0, fmt.Errorf("%w: %w", ErrInvalidAddress, ErrChecksumMismatch)
	}
	return hrp, data[:len(data)-bech32ChecksumLen], enc, nil
}

// ConvertBits regroups a byte slice from fromBits-wide to toBits-wide values,
// most significant bit first. With pad, a trailing partial group is
// zero-padded; without it, leftover bits must be fewer than fromBits and zero.
func ConvertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	if fromBits < 1 || fromBits > 8 || toBits < 1 || toBits > 8 {
		return nil, fmt.Errorf("%w: group sizes %d->%d", ErrInvalidLength, fromBits, toBits)
	}

	var acc uint32
	var bits uint
	maxv := uint32(1)<<toBits - 1
	maxAcc := uint32(1)<<(fromBits+toBits-1) - 1

	out := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	for _, v := range data {
		if uint32(v)>>fromBits != 0 {
			return nil, fmt.Errorf("%w: value 0x%02x exceeds %d bits", ErrInvalidCharacter, v, fromBits)
		}
		acc = (acc<<fromBits | uint32(v)) & maxAcc
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits&maxv))
		}
	}

	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits)&maxv))
		}
	} else if bits >= fromBits || acc<<(toBits-bits)&maxv != 0 {
		return nil, ErrInvalidPadding
	}
	return out, nil
}

// EncodeSegWitAddress encodes any witness version 0..16 with a 2..40 byte
// program. Version 0 uses Bech32, versions 1 through 16 use Bech32m. The BIP141
// version 0 length rule is enforced by the address builders and Decode, not here.
func EncodeSegWitAddress(hrp string, witver byte, program []byte) (string, error) {
	if err := checkWitnessProgram(witver, program); err != nil {
		return "", err
	}

	conv, err := ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	data := append([]byte{witver}, conv...)

	enc := Bech32
	if witver > 0 {
		enc = Bech32m
	}
	return encodeBech32(hrp, data, enc)
}

// DecodeSegWitAddress decodes a witness address that must carry the given HRP.
func DecodeSegWitAddress(hrp, addr string) (byte, []byte, error) {
	gotHRP, data, enc, err := decodeBech32(addr)
	if err != nil {
		return 0, nil, err
	}
	if gotHRP != strings.ToLower(hrp) {
		return 0, nil, fmt.Errorf("%w: prefix %q, expected %q", ErrWrongNetwork, gotHRP, hrp)
	}
	if len(data) < 1 {
		return 0, nil, fmt.Errorf("%w: %w: empty data", ErrInvalidAddress, ErrInvalidLength)
	}

	witver := data[0]
	if witver > 16 {
		return 0, nil, fmt.Errorf("%w: %w: %d", ErrInvalidAddress, ErrInvalidWitnessVersion, witver)
	}
	if (witver == 0 && enc != Bech32) || (witver > 0 && enc != Bech32m) {
		return 0, nil, fmt.Errorf("%w: %w: checksum variant does not match version %d",
			ErrInvalidAddress, ErrInvalidWitnessVersion, witver)
	}

	program, err := ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if err := checkWitnessProgram(witver, program); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return witver, program, nil
}

func checkWitnessProgram(witver byte, program []byte) error {
	if witver > 16 {
		return fmt.Errorf("%w: %d", ErrInvalidWitnessVersion, witver)
	}
	if len(program) < 2 || len(program) > 40 {
		return fmt.Errorf("%w: %d bytes", ErrInvalidProgramLength, len(program))
	}
	return nil
}

// checkV0Program applies the BIP141 rule that a version 0 program is a 20 byte
// key hash or a 32 byte script hash.
func checkV0Program(witver byte, program []byte) error {
	if witver == 0 && len(program) != 20 && len(program) != 32 {
		return fmt.Errorf("%w: version 0 program must be 20 or 32 bytes, got %d", ErrInvalidProgramLength, len(program))
	}
	return nil
}
