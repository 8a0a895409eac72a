package script

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/curve"
)

func pubKey(t *testing.T, k int64) []byte {
	t.Helper()
	pub, err := curve.CreatePublicKey(big.NewInt(k).FillBytes(make([]byte, 32)))
	require.NoError(t, err)
	return pub
}

// ---------------------------------------------------------------------------
// Push encoding
// ---------------------------------------------------------------------------

func TestPushDataBoundaries(t *testing.T) {
	tests := []struct {
		size   int
		prefix []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{75, []byte{0x4b}},
		{76, []byte{OpPUSHDATA1, 76}},
		{255, []byte{OpPUSHDATA1, 0xff}},
		{256, []byte{OpPUSHDATA2, 0x00, 0x01}},
		{65535, []byte{OpPUSHDATA2, 0xff, 0xff}},
		{65536, []byte{OpPUSHDATA4, 0x00, 0x00, 0x01, 0x00}},
	}

	for _, tc := range tests {
		data := bytes.Repeat([]byte{0xab}, tc.size)
		got := PushData(data)
		assert.Equal(t, tc.prefix, got[:len(tc.prefix)], "size %d", tc.size)
		assert.Len(t, got, len(tc.prefix)+tc.size)

		ops, err := Parse(got)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Len(t, ops[0].Data, tc.size)
	}
}

func TestPushDataMatchesTxscript(t *testing.T) {
	// txscript pushes single small values as OP_N, so compare multi-byte data only.
	for _, size := range []int{2, 20, 33, 75, 76, 200, 520} {
		data := bytes.Repeat([]byte{0x42}, size)
		want, err := txscript.NewScriptBuilder().AddData(data).Script()
		require.NoError(t, err)
		assert.Equal(t, want, PushData(data), "size %d", size)
	}
}

func TestParseRejectsTruncatedPush(t *testing.T) {
	for _, s := range [][]byte{
		{0x05, 0x01, 0x02},
		{OpPUSHDATA1},
		{OpPUSHDATA1, 0x03, 0x01},
		{OpPUSHDATA2, 0x01},
		{OpPUSHDATA4, 0x00, 0x00},
	} {
		_, err := Parse(s)
		assert.ErrorIs(t, err, ErrMalformedScript, hex.EncodeToString(s))
	}
}

func TestSmallInts(t *testing.T) {
	for n := 0; n <= 16; n++ {
		op, err := SmallIntOp(n)
		require.NoError(t, err)
		back, ok := SmallIntValue(op)
		require.True(t, ok)
		assert.Equal(t, n, back)
	}
	_, err := SmallIntOp(17)
	assert.ErrorIs(t, err, ErrInvalidSmallInt)

	_, err = NewBuilder().AddSmallInt(-1).AddOp(OpRETURN).Script()
	assert.ErrorIs(t, err, ErrInvalidSmallInt)
}

// ---------------------------------------------------------------------------
// Templates and classification
// ---------------------------------------------------------------------------

func TestTemplatesClassify(t *testing.T) {
	h20 := bytes.Repeat([]byte{0x11}, 20)
	h32 := bytes.Repeat([]byte{0x22}, 32)

	p2pkh, err := PayToPubKeyHash(h20)
	require.NoError(t, err)
	p2sh, err := PayToScriptHash(h20)
	require.NoError(t, err)
	p2wpkh, err := PayToWitnessPubKeyHash(h20)
	require.NoError(t, err)
	p2wsh, err := PayToWitnessScriptHash(h32)
	require.NoError(t, err)
	ms, err := MultiSig(2, [][]byte{pubKey(t, 1), pubKey(t, 2), pubKey(t, 3)})
	require.NoError(t, err)
	nd, err := NullData([]byte("hello"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		s     []byte
		class Class
		size  int
	}{
		{"p2pkh", p2pkh, ClassPubKeyHash, P2PKHSize},
		{"p2sh", p2sh, ClassScriptHash, P2SHSize},
		{"p2wpkh", p2wpkh, ClassWitnessPubKeyHash, P2WPKHSize},
		{"p2wsh", p2wsh, ClassWitnessScriptHash, P2WSHSize},
		{"multisig", ms, ClassMultiSig, 0},
		{"nulldata", nd, ClassNullData, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.class, Classify(tc.s))
			if tc.size > 0 {
				assert.Len(t, tc.s, tc.size)
			}
			assert.Equal(t, txscript.GetScriptClass(tc.s).String(), Classify(tc.s).String())
		})
	}
}

func TestP2PKHBytes(t *testing.T) {
	h := bytes.Repeat([]byte{0xaa}, 20)
	s, err := PayToPubKeyHash(h)
	require.NoError(t, err)
	assert.Equal(t, "76a914"+hex.EncodeToString(h)+"88ac", hex.EncodeToString(s))
}

func TestTemplatesRejectBadHashes(t *testing.T) {
	_, err := PayToPubKeyHash(make([]byte, 19))
	assert.ErrorIs(t, err, ErrInvalidHashLength)
	_, err = PayToScriptHash(make([]byte, 21))
	assert.ErrorIs(t, err, ErrInvalidHashLength)
	_, err = PayToWitnessPubKeyHash(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidHashLength)
	_, err = PayToWitnessScriptHash(make([]byte, 20))
	assert.ErrorIs(t, err, ErrInvalidHashLength)
	_, err = PayToWitness(17, make([]byte, 20))
	assert.ErrorIs(t, err, ErrInvalidSmallInt)
}

func TestMultiSigRejects(t *testing.T) {
	keys := [][]byte{pubKey(t, 1), pubKey(t, 2)}
	_, err := MultiSig(0, keys)
	assert.ErrorIs(t, err, ErrInvalidMultiSig)
	_, err = MultiSig(3, keys)
	assert.ErrorIs(t, err, ErrInvalidMultiSig)
	_, err = MultiSig(1, [][]byte{{0x02, 0x01}})
	assert.ErrorIs(t, err, ErrInvalidMultiSig)
}

func TestClassifyNearMisses(t *testing.T) {
	h20 := bytes.Repeat([]byte{0x11}, 20)
	p2pkh, err := PayToPubKeyHash(h20)
	require.NoError(t, err)

	tampered := append([]byte{}, p2pkh...)
	tampered[24] = OpEQUAL

	tests := []struct {
		name string
		s    []byte
	}{
		{"empty", nil},
		{"p2pkh wrong tail", tampered},
		{"p2pkh extra byte", append(append([]byte{}, p2pkh...), 0x00)},
		{"op_return then opcode", []byte{OpRETURN, OpDUP}},
		{"truncated push", []byte{0x05, 0x01}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, ClassNonStandard, Classify(tc.s))
		})
	}

	assert.Equal(t, ClassNullData, Classify([]byte{OpRETURN}))
}

func TestIsUnspendable(t *testing.T) {
	nd, err := NullData([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, IsUnspendable(nd))
	assert.True(t, IsUnspendable(bytes.Repeat([]byte{OpDUP}, MaxScriptSize+1)))

	p2wpkh, err := PayToWitnessPubKeyHash(make([]byte, 20))
	require.NoError(t, err)
	assert.False(t, IsUnspendable(p2wpkh))
	assert.False(t, IsUnspendable(nil))
}

// ---------------------------------------------------------------------------
// Address mapping
// ---------------------------------------------------------------------------

func TestForAddressRoundTrip(t *testing.T) {
	pub := pubKey(t, 42)
	net := &address.RegTest

	for _, kind := range []address.Kind{address.KindLegacy, address.KindNestedSegWit, address.KindSegWit} {
		t.Run(kind.String(), func(t *testing.T) {
			addr, err := address.FromPubKey(kind, pub, net)
			require.NoError(t, err)

			s, err := ForAddress(addr, net)
			require.NoError(t, err)

			back, err := ExtractAddress(s, net)
			require.NoError(t, err)
			assert.Equal(t, addr, back)
		})
	}
}

func TestForAddressScripts(t *testing.T) {
	s, err := ForAddress("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", &address.MainNet)
	require.NoError(t, err)
	assert.Equal(t, "0014751e76e8199196d454941c45d1b3a323f1433bd6", hex.EncodeToString(s))

	s, err = ForAddress("1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", &address.MainNet)
	require.NoError(t, err)
	assert.Equal(t, "76a914751e76e8199196d454941c45d1b3a323f1433bd688ac", hex.EncodeToString(s))

	s, err = ForAddress("bc1pw508d6qejxtdg4y5r3zarvary0c5xw7kw508d6qejxtdg4y5r3zarvary0c5xw7kt5nd6y", &address.MainNet)
	require.NoError(t, err)
	assert.Equal(t, "5128751e76e8199196d454941c45d1b3a323f1433bd6751e76e8199196d454941c45d1b3a323f1433bd6",
		hex.EncodeToString(s))

	_, err = ForAddress("garbage", &address.MainNet)
	assert.ErrorIs(t, err, address.ErrInvalidAddress)
}

func TestExtractAddressNoAddress(t *testing.T) {
	nd, err := NullData([]byte("x"))
	require.NoError(t, err)
	_, err = ExtractAddress(nd, &address.MainNet)
	assert.ErrorIs(t, err, ErrNoAddress)
}
