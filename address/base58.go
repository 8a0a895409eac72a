package address

import (
	"bytes"
	"fmt"
	"math/big"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// checksumLen is the number of double-SHA256 bytes appended by Base58Check.
const checksumLen = 4

var (
	bigRadix = big.NewInt(58)

	base58Index = func() [256]int {
		var idx [256]int
		for i := range idx {
			idx[i] = -1
		}
		for i := 0; i < len(base58Alphabet); i++ {
			idx[base58Alphabet[i]] = i
		}
		return idx
	}()
)

// EncodeBase58 encodes b with the Bitcoin alphabet. Each leading zero byte
// becomes a leading '1'.
func EncodeBase58(b []byte) string {
	zeros := 0
	for zeros < len(b) && b[zeros] == 0 {
		zeros++
	}

	x := new(big.Int).SetBytes(b)
	mod := new(big.Int)
	// log(256)/log(58) ≈ 1.37
	out := make([]byte, 0, len(b)*138/100+1)
	for x.Sign() > 0 {
		x.DivMod(x, bigRadix, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		out = append(out, base58Alphabet[0])
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// DecodeBase58 decodes a Base58 string. Each leading '1' becomes a zero byte.
func DecodeBase58(s string) ([]byte, error) {
	x := new(big.Int)
	for i := 0; i < len(s); i++ {
		v := base58Index[s[i]]
		if v < 0 {
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidCharacter, s[i], i)
		}
		x.Mul(x, bigRadix)
		x.Add(x, big.NewInt(int64(v)))
	}

	zeros := 0
	for zeros < len(s) && s[zeros] == base58Alphabet[0] {
		zeros++
	}

	body := x.Bytes()
	out := make([]byte, zeros+len(body))
	copy(out[zeros:], body)
	return out, nil
}

// EncodeBase58Check encodes version || payload || checksum, where checksum is
// the first four bytes of DoubleSHA256(version || payload).
func EncodeBase58Check(version byte, payload []byte) string {
	buf := make([]byte, 0, 1+len(payload)+checksumLen)
	buf = append(buf, version)
	buf = append(buf, payload...)
	buf = append(buf, DoubleSHA256(buf)[:checksumLen]...)
	return EncodeBase58(buf)
}

// DecodeBase58Check decodes and verifies a Base58Check string, returning the
// version byte and payload.
func DecodeBase58Check(s string) (byte, []byte, error) {
	raw, err := DecodeBase58(s)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(raw) < 1+checksumLen {
		return 0, nil, fmt.Errorf("%w: %w: %d bytes", ErrInvalidAddress, ErrInvalidLength, len(raw))
	}

	body := raw[:len(raw)-checksumLen]
	sum := raw[len(raw)-checksumLen:]
	if !bytes.Equal(DoubleSHA256(body)[:checksumLen], sum) {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidAddress, ErrChecksumMismatch)
	}
	return body[0], body[1:], nil
}
