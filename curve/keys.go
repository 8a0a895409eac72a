package curve

import (
	"fmt"
	"math/big"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

const (
	// PrivateKeySize is the length of a serialized private scalar.
	PrivateKeySize = 32

	// CompressedPubKeySize is the length of a 0x02/0x03 prefixed public key.
	CompressedPubKeySize = 33

	// UncompressedPubKeySize is the length of a 0x04 prefixed public key.
	UncompressedPubKeySize = 65
)

const (
	prefixEven         = 0x02
	prefixOdd          = 0x03
	prefixUncompressed = 0x04
)

// IsValidPrivateKey reports whether priv is a 32-byte scalar in [1, N).
func IsValidPrivateKey(priv []byte) bool {
	return checkPrivateKey(priv) == nil
}

func checkPrivateKey(priv []byte) error {
	if len(priv) != PrivateKeySize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, PrivateKeySize, len(priv))
	}
	k := new(big.Int).SetBytes(priv)
	if k.Sign() == 0 {
		return fmt.Errorf("%w: zero scalar", ErrInvalidPrivateKey)
	}
	if k.Cmp(N) >= 0 {
		return fmt.Errorf("%w: scalar not below group order", ErrInvalidPrivateKey)
	}
	return nil
}

// GeneratePrivateKey returns a fresh 32-byte private key from the system CSPRNG.
func GeneratePrivateKey() ([]byte, error) {
	k, err := ec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("curve: generate private key: %w", err)
	}
	return k.D.FillBytes(make([]byte, PrivateKeySize)), nil
}

// CreatePublicKey derives the compressed public key for priv.
func CreatePublicKey(priv []byte) ([]byte, error) {
	pub, err := derive(priv)
	if err != nil {
		return nil, err
	}
	return CompressPoint(pub)
}

// CreatePublicKeyUncompressed derives the 65-byte uncompressed public key for priv.
func CreatePublicKeyUncompressed(priv []byte) ([]byte, error) {
	pub, err := derive(priv)
	if err != nil {
		return nil, err
	}
	return SerializeUncompressed(pub)
}

// derive computes priv*G with the constant-time go-sdk implementation.
func derive(priv []byte) (Point, error) {
	if err := checkPrivateKey(priv); err != nil {
		return Point{}, err
	}
	_, pub := ec.PrivateKeyFromBytes(priv)
	if pub == nil || pub.X == nil {
		return Point{}, fmt.Errorf("%w: derivation failed", ErrInvalidPrivateKey)
	}
	return Point{X: new(big.Int).Set(pub.X), Y: new(big.Int).Set(pub.Y)}, nil
}

// CompressPoint encodes p as 33 bytes: parity prefix followed by big-endian x.
func CompressPoint(p Point) ([]byte, error) {
	if p.IsInfinity() {
		return nil, ErrPointAtInfinity
	}
	out := make([]byte, CompressedPubKeySize)
	out[0] = prefixEven
	if p.Y.Bit(0) == 1 {
		out[0] = prefixOdd
	}
	p.X.FillBytes(out[1:])
	return out, nil
}

// SerializeUncompressed encodes p as 0x04 || x || y.
func SerializeUncompressed(p Point) ([]byte, error) {
	if p.IsInfinity() {
		return nil, ErrPointAtInfinity
	}
	out := make([]byte, UncompressedPubKeySize)
	out[0] = prefixUncompressed
	p.X.FillBytes(out[1:33])
	p.Y.FillBytes(out[33:])
	return out, nil
}

// DecompressPoint recovers a point from its 33-byte compressed encoding.
func DecompressPoint(b []byte) (Point, error) {
	if len(b) != CompressedPubKeySize {
		return Point{}, fmt.Errorf("%w: compressed key must be %d bytes, got %d",
			ErrInvalidPublicKey, CompressedPubKeySize, len(b))
	}
	if b[0] != prefixEven && b[0] != prefixOdd {
		return Point{}, fmt.Errorf("%w: bad prefix 0x%02x", ErrInvalidPublicKey, b[0])
	}

	x := new(big.Int).SetBytes(b[1:])
	if x.Cmp(P) >= 0 {
		return Point{}, fmt.Errorf("%w: x not in field", ErrInvalidPublicKey)
	}

	y, ok := sqrtModP(curveRHS(x))
	if !ok {
		return Point{}, fmt.Errorf("%w: x is not on the curve", ErrInvalidPublicKey)
	}
	if y.Bit(0) != uint(b[0]&1) {
		y.Sub(P, y)
	}
	return Point{X: x, Y: y}, nil
}

// ParsePublicKey decodes a compressed or uncompressed public key and checks it is on the curve.
func ParsePublicKey(b []byte) (Point, error) {
	switch len(b) {
	case CompressedPubKeySize:
		return DecompressPoint(b)
	case UncompressedPubKeySize:
		if b[0] != prefixUncompressed {
			return Point{}, fmt.Errorf("%w: bad prefix 0x%02x", ErrInvalidPublicKey, b[0])
		}
		p := Point{X: new(big.Int).SetBytes(b[1:33]), Y: new(big.Int).SetBytes(b[33:])}
		if !IsOnCurve(p) {
			return Point{}, fmt.Errorf("%w: point not on curve", ErrInvalidPublicKey)
		}
		return p, nil
	default:
		return Point{}, fmt.Errorf("%w: unexpected length %d", ErrInvalidPublicKey, len(b))
	}
}

// IsValidPublicKey reports whether b is a well-formed public key on secp256k1.
func IsValidPublicKey(b []byte) bool {
	_, err := ParsePublicKey(b)
	return err == nil
}
