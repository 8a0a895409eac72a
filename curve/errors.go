package curve

import "errors"

var (
	// ErrInvalidPrivateKey indicates a scalar that is zero, not below the group order, or not 32 bytes.
	ErrInvalidPrivateKey = errors.New("curve: invalid private key")

	// ErrInvalidPublicKey indicates an encoding that does not describe a point on secp256k1.
	ErrInvalidPublicKey = errors.New("curve: invalid public key")

	// ErrPointAtInfinity indicates the point at infinity where a finite point is required.
	ErrPointAtInfinity = errors.New("curve: point at infinity")
)
