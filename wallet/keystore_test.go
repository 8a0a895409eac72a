package wallet

import (
	"context"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/curve"
)

func regtestWIF(t *testing.T, seed byte, compress bool) (string, []byte) {
	t.Helper()
	raw := make([]byte, 32)
	raw[0], raw[31] = 0x42, seed
	priv, _ := btcec.PrivKeyFromBytes(raw)
	wif, err := btcutil.NewWIF(priv, &chaincfg.RegressionNetParams, compress)
	require.NoError(t, err)
	return wif.String(), raw
}

func TestKeyStoreNewKeyHD(t *testing.T) {
	ctx := context.Background()
	ks := NewKeyStore(&address.RegTest, testHD(t, &address.RegTest))

	first, err := ks.NewKey(ctx, address.KindSegWit, false)
	require.NoError(t, err)
	second, err := ks.NewKey(ctx, address.KindSegWit, false)
	require.NoError(t, err)
	change, err := ks.NewKey(ctx, address.KindSegWit, true)
	require.NoError(t, err)
	legacy, err := ks.NewKey(ctx, address.KindLegacy, false)
	require.NoError(t, err)

	assert.Equal(t, "m/84'/1'/0'/0/0", first.Path)
	assert.Equal(t, "m/84'/1'/0'/0/1", second.Path)
	assert.Equal(t, "m/84'/1'/0'/1/0", change.Path)
	assert.Equal(t, "m/44'/1'/0'/0/0", legacy.Path)
	assert.True(t, strings.HasPrefix(first.Address, "bcrt1q"))
	assert.Equal(t, 4, ks.Len())

	priv, err := ks.PrivateKeyFor(ctx, first.Address)
	require.NoError(t, err)
	pub, err := curve.CreatePublicKey(priv)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey, pub)

	clear(priv)
	again, err := ks.PrivateKeyFor(ctx, first.Address)
	require.NoError(t, err)
	assert.NotEqual(t, make([]byte, 32), again, "callers get a copy")
}

func TestKeyStoreNewKeyRandom(t *testing.T) {
	ks := NewKeyStore(&address.RegTest, nil)
	a, err := ks.NewKey(context.Background(), address.KindNestedSegWit, false)
	require.NoError(t, err)
	b, err := ks.NewKey(context.Background(), address.KindNestedSegWit, false)
	require.NoError(t, err)

	assert.NotEqual(t, a.Address, b.Address)
	assert.Empty(t, a.Path)
	assert.True(t, strings.HasPrefix(a.Address, "2"))

	info, ok := ks.Lookup(a.Address)
	require.True(t, ok)
	assert.Equal(t, address.KindNestedSegWit, info.Kind)

	_, err = ks.PrivateKeyFor(context.Background(), "bcrt1qunknown")
	assert.ErrorIs(t, err, ErrUnknownAddress)
}

func TestKeyStoreImportWIF(t *testing.T) {
	ks := NewKeyStore(&address.RegTest, nil)
	wif, raw := regtestWIF(t, 7, true)

	info, err := ks.ImportWIF(wif, address.KindSegWit)
	require.NoError(t, err)
	pub, err := curve.CreatePublicKey(raw)
	require.NoError(t, err)
	want, err := address.P2WPKH(pub, &address.RegTest)
	require.NoError(t, err)
	assert.Equal(t, want, info.Address)

	got, err := ks.PrivateKeyFor(context.Background(), info.Address)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	uncompressed, raw2 := regtestWIF(t, 8, false)
	info, err = ks.ImportWIF(uncompressed, address.KindLegacy)
	require.NoError(t, err)
	assert.False(t, info.Compressed)
	pub, err = curve.CreatePublicKeyUncompressed(raw2)
	require.NoError(t, err)
	want, err = address.P2PKH(pub, &address.RegTest)
	require.NoError(t, err)
	assert.Equal(t, want, info.Address)

	_, err = ks.ImportWIF(uncompressed, address.KindSegWit)
	assert.ErrorIs(t, err, ErrInvalidWIF)

	_, err = NewKeyStore(&address.MainNet, nil).ImportWIF(wif, address.KindLegacy)
	assert.ErrorIs(t, err, ErrInvalidWIF, "regtest key on mainnet")

	_, err = ks.ImportWIF("not-a-wif", address.KindLegacy)
	assert.ErrorIs(t, err, ErrInvalidWIF)
}

func TestKeyStoreExportImport(t *testing.T) {
	ctx := context.Background()
	hd := testHD(t, &address.RegTest)
	ks := NewKeyStore(&address.RegTest, hd)
	for i := 0; i < 2; i++ {
		_, err := ks.NewKey(ctx, address.KindSegWit, false)
		require.NoError(t, err)
	}
	wif, _ := regtestWIF(t, 9, true)
	_, err := ks.ImportWIF(wif, address.KindLegacy)
	require.NoError(t, err)

	sealed, err := ks.Export("correct horse")
	require.NoError(t, err)

	restored, err := ImportKeyStore(sealed, "correct horse", &address.RegTest, hd)
	require.NoError(t, err)
	assert.Equal(t, ks.Keys(), restored.Keys())

	next, err := restored.NewKey(ctx, address.KindSegWit, false)
	require.NoError(t, err)
	assert.Equal(t, "m/84'/1'/0'/0/2", next.Path, "derivation resumes after exported keys")

	_, err = ImportKeyStore(sealed, "wrong", &address.RegTest, nil)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = ImportKeyStore(sealed, "correct horse", &address.TestNet, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
