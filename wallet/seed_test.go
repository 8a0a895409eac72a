package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	for _, bits := range []int{Mnemonic12Words, Mnemonic24Words} {
		m, err := GenerateMnemonic(bits)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(m), bits/128*12)
		assert.True(t, ValidateMnemonic(m))
	}

	m1, _ := GenerateMnemonic(Mnemonic12Words)
	m2, _ := GenerateMnemonic(Mnemonic12Words)
	assert.NotEqual(t, m1, m2)

	_, err := GenerateMnemonic(192)
	assert.ErrorIs(t, err, ErrInvalidEntropy)
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		valid    bool
	}{
		{"valid 12-word", testMnemonic, true},
		{"invalid words", "foo bar baz qux quux corge grault garply waldo fred plugh xyzzy", false},
		{"bad checksum", strings.Repeat("abandon ", 11) + "abandon", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateMnemonic(tt.mnemonic))
		})
	}
}

func TestSeedFromMnemonic(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	assert.Len(t, seed, 64)

	again, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	assert.Equal(t, seed, again)

	salted, err := SeedFromMnemonic(testMnemonic, "TREZOR")
	require.NoError(t, err)
	assert.NotEqual(t, seed, salted)

	_, err = SeedFromMnemonic("not a mnemonic", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestSealOpen(t *testing.T) {
	plaintext := []byte("wallet secrets")

	sealed, err := Seal(plaintext, "hunter2")
	require.NoError(t, err)
	assert.Len(t, sealed, SaltLen+NonceLen+len(plaintext)+ChecksumLen+16)
	assert.NotContains(t, string(sealed), "wallet secrets")

	opened, err := Open(sealed, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)

	other, err := Seal(plaintext, "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, other, "fresh salt and nonce per seal")
}

func TestOpenFailures(t *testing.T) {
	sealed, err := Seal([]byte("payload"), "right")
	require.NoError(t, err)

	_, err = Open(sealed, "wrong")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0x01
	_, err = Open(tampered, "right")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = Open(sealed[:SaltLen+NonceLen], "right")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = Seal(nil, "right")
	assert.ErrorIs(t, err, ErrInvalidParams)
}
