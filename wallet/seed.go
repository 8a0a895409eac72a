// Package wallet is the exposed API of the SPV wallet core: address
// generation, transaction building and sending, UTXO listing, raw
// transaction construction and fee estimation.
//
// Keys come from a KeyStore, optionally backed by a BIP32 seed with paths
// m/{44,49,84}'/{coin}'/0'/{chain}/{index}. Key stores and seeds are sealed
// at rest with Argon2id + AES-256-GCM.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	"golang.org/x/crypto/argon2"
)

const (
	// Mnemonic entropy sizes.
	Mnemonic12Words = 128
	Mnemonic24Words = 256

	// Argon2id parameters for sealing.
	Argon2Time        = 3
	Argon2Memory      = 64 * 1024 // 64 MB
	Argon2Parallelism = 4
	Argon2KeyLen      = 32

	// Sealed format sizes.
	SaltLen     = 16
	NonceLen    = 12
	ChecksumLen = 4
)

// GenerateMnemonic creates a new BIP39 mnemonic with the specified entropy bits.
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != Mnemonic12Words && entropyBits != Mnemonic24Words {
		return "", ErrInvalidEntropy
	}
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic string is valid BIP39.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SeedFromMnemonic derives the 64-byte BIP39 seed from mnemonic and an
// optional passphrase.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to derive seed: %w", err)
	}
	return seed, nil
}

// Seal encrypts plaintext under password.
//
//	salt(16) || nonce(12) || AES-256-GCM(argon2id(password, salt), plaintext || SHA256(plaintext)[:4])
func Seal(plaintext []byte, password string) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrInvalidParams)
	}

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate salt: %w", err)
	}
	gcm, err := sealCipher(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate nonce: %w", err)
	}

	sum := sha256.Sum256(plaintext)
	body := make([]byte, 0, len(plaintext)+ChecksumLen)
	body = append(body, plaintext...)
	body = append(body, sum[:ChecksumLen]...)
	defer clear(body)

	out := make([]byte, 0, SaltLen+NonceLen+len(body)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, body, nil), nil
}

// Open reverses Seal.
func Open(sealed []byte, password string) ([]byte, error) {
	if len(sealed) < SaltLen+NonceLen+ChecksumLen {
		return nil, ErrDecryptionFailed
	}
	salt := sealed[:SaltLen]
	nonce := sealed[SaltLen : SaltLen+NonceLen]

	gcm, err := sealCipher(password, salt)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	body, err := gcm.Open(nil, nonce, sealed[SaltLen+NonceLen:], nil)
	if err != nil || len(body) < ChecksumLen {
		return nil, ErrDecryptionFailed
	}

	plaintext := body[:len(body)-ChecksumLen]
	sum := sha256.Sum256(plaintext)
	if subtle.ConstantTimeCompare(sum[:ChecksumLen], body[len(body)-ChecksumLen:]) != 1 {
		clear(body)
		return nil, ErrChecksumMismatch
	}
	return plaintext, nil
}

func sealCipher(password string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Parallelism, Argon2KeyLen)
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("wallet: AES cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wallet: GCM creation failed: %w", err)
	}
	return gcm, nil
}
