package address

import (
	"github.com/bsv-blockchain/go-sdk/chainhash"
	sha256 "github.com/minio/sha256-simd"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD160 is mandated by the address format.
)

// Hash160Size is the length of a RIPEMD160 digest.
const Hash160Size = 20

// Hash160 returns RIPEMD160(SHA256(data)).
func Hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	_, _ = h.Write(sum[:])
	return h.Sum(nil)
}

// SHA256 returns the single SHA256 digest of data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// DoubleSHA256 returns SHA256(SHA256(data)).
func DoubleSHA256(data []byte) []byte {
	h := chainhash.DoubleHashH(data)
	return h[:]
}
