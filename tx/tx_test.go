package tx

import (
	"bytes"
	"encoding/hex"
	"math"
	"testing"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/amount"
)

const genesisCoinbaseHex = "01000000010000000000000000000000000000000000000000000000000000000000000000ffffffff4d04ffff001d0104455468652054696d65732030332f4a616e2f32303039204368616e63656c6c6f72206f6e206272696e6b206f66207365636f6e64206261696c6f757420666f722062616e6b73ffffffff0100f2052a01000000434104678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac00000000"

func testHash(seed byte) chainhash.Hash {
	var h chainhash.Hash
	for i := range h {
		h[i] = seed + byte(i)
	}
	return h
}

func testUTXO(seed byte, vout uint32, value amount.Amount) UTXO {
	return UTXO{TxID: testHash(seed), Vout: vout, Amount: value}
}

func segwitTx() *Transaction {
	return &Transaction{
		Version: 2,
		Inputs: []TxInput{
			{
				PrevOut:  OutPoint{TxID: testHash(1), Vout: 0},
				Sequence: SequenceReplaceable,
				Witness:  [][]byte{bytes.Repeat([]byte{0x30}, 71), bytes.Repeat([]byte{0x02}, 33)},
			},
			{
				PrevOut:   OutPoint{TxID: testHash(2), Vout: 3},
				ScriptSig: bytes.Repeat([]byte{0x47}, 106),
				Sequence:  SequenceFinal,
			},
		},
		Outputs: []TxOutput{
			{Value: 50_000, ScriptPubKey: append([]byte{0x00, 0x14}, bytes.Repeat([]byte{0x11}, 20)...)},
			{Value: 1_234, ScriptPubKey: bytes.Repeat([]byte{0x6a}, 300)},
		},
		LockTime: 800_000,
	}
}

func toWire(t *testing.T, raw []byte) *wire.MsgTx {
	t.Helper()
	msg := wire.NewMsgTx(1)
	require.NoError(t, msg.Deserialize(bytes.NewReader(raw)))
	return msg
}

// ---------------------------------------------------------------------------
// CompactSize
// ---------------------------------------------------------------------------

func TestCompactSize(t *testing.T) {
	tests := []struct {
		n   uint64
		enc string
	}{
		{0, "00"},
		{0xfc, "fc"},
		{0xfd, "fdfd00"},
		{0xffff, "fdffff"},
		{0x10000, "fe00000100"},
		{0xffffffff, "feffffffff"},
		{0x100000000, "ff0000000001000000"},
	}
	for _, tc := range tests {
		enc := AppendCompactSize(nil, tc.n)
		assert.Equal(t, tc.enc, hex.EncodeToString(enc))
		assert.Equal(t, len(enc), CompactSizeLen(tc.n))

		var buf bytes.Buffer
		require.NoError(t, wire.WriteVarInt(&buf, 0, tc.n))
		assert.Equal(t, buf.Bytes(), enc)

		n, used, err := ReadCompactSize(enc)
		require.NoError(t, err)
		assert.Equal(t, tc.n, n)
		assert.Equal(t, len(enc), used)
	}
}

func TestCompactSizeRejectsNonCanonical(t *testing.T) {
	for _, s := range []string{"fd0000", "fdfc00", "fe0000ffff", "ff00000000ffffffff"} {
		b, _ := hex.DecodeString(s)
		_, _, err := ReadCompactSize(b)
		assert.ErrorIs(t, err, ErrNonCanonicalVarInt, s)
	}

	_, _, err := ReadCompactSize([]byte{0xfe, 0x01})
	assert.ErrorIs(t, err, ErrMalformedTx)
}

// ---------------------------------------------------------------------------
// Wire format
// ---------------------------------------------------------------------------

func TestGenesisCoinbase(t *testing.T) {
	parsed, err := FromHex(genesisCoinbaseHex)
	require.NoError(t, err)

	assert.Equal(t, "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b", parsed.TxID().String())
	assert.Equal(t, parsed.TxID(), parsed.WTxID())
	assert.Equal(t, genesisCoinbaseHex, parsed.Hex())
	assert.False(t, parsed.HasWitness())
	require.Len(t, parsed.Outputs, 1)
	assert.Equal(t, amount.Amount(50*amount.SatoshiPerBitcoin), parsed.Outputs[0].Value)
	assert.Equal(t, parsed.BaseSize()*4, parsed.Weight())
}

func TestSerializeMatchesWire(t *testing.T) {
	tx := segwitTx()
	raw := tx.Serialize()
	msg := toWire(t, raw)

	assert.Equal(t, msg.TxHash().String(), tx.TxID().String())
	assert.Equal(t, msg.WitnessHash().String(), tx.WTxID().String())
	assert.Equal(t, msg.SerializeSize(), tx.TotalSize())
	assert.Equal(t, msg.SerializeSizeStripped(), tx.BaseSize())
	assert.Equal(t, int(blockchain.GetTransactionWeight(btcutil.NewTx(msg))), tx.Weight())

	var stripped bytes.Buffer
	require.NoError(t, msg.SerializeNoWitness(&stripped))
	assert.Equal(t, stripped.Bytes(), tx.SerializeNoWitness())

	assert.Equal(t, []byte{0x00, 0x01}, raw[4:6])
}

func TestDeserializeRoundTrip(t *testing.T) {
	tx := segwitTx()
	back, err := Deserialize(tx.Serialize())
	require.NoError(t, err)
	assert.Equal(t, tx, back)

	legacy := tx.Copy()
	legacy.Inputs[0].Witness = nil
	back, err = Deserialize(legacy.Serialize())
	require.NoError(t, err)
	assert.Equal(t, legacy, back)
	assert.Equal(t, legacy.TxID(), tx.TxID())
}

func TestDeserializeRejects(t *testing.T) {
	raw := segwitTx().Serialize()

	t.Run("trailing bytes", func(t *testing.T) {
		_, err := Deserialize(append(append([]byte{}, raw...), 0x00))
		assert.ErrorIs(t, err, ErrMalformedTx)
	})
	t.Run("truncated", func(t *testing.T) {
		for _, n := range []int{0, 3, 5, 40, len(raw) - 1} {
			_, err := Deserialize(raw[:n])
			assert.Error(t, err, "length %d", n)
		}
	})
	t.Run("empty witness with flag", func(t *testing.T) {
		tx := segwitTx()
		tx.Inputs[0].Witness = nil
		legacy := tx.SerializeNoWitness()
		// Re-insert marker and flag with two empty witness stacks before the locktime.
		b := append([]byte{}, legacy[:4]...)
		b = append(b, 0x00, 0x01)
		b = append(b, legacy[4:len(legacy)-4]...)
		b = append(b, 0x00, 0x00)
		b = append(b, legacy[len(legacy)-4:]...)
		_, err := Deserialize(b)
		assert.ErrorIs(t, err, ErrMalformedTx)
	})
	t.Run("huge input count", func(t *testing.T) {
		_, err := Deserialize([]byte{0x02, 0, 0, 0, 0xfe, 0xff, 0xff, 0xff, 0x00})
		assert.ErrorIs(t, err, ErrMalformedTx)
	})
	t.Run("bad hex", func(t *testing.T) {
		_, err := FromHex("zz")
		assert.ErrorIs(t, err, ErrMalformedTx)
	})
}

func TestWeightAndVirtualSize(t *testing.T) {
	tx := segwitTx()
	base, total := tx.BaseSize(), tx.TotalSize()
	assert.Greater(t, total, base)
	assert.Equal(t, 3*base+total, tx.Weight())
	assert.Equal(t, (tx.Weight()+3)/4, tx.VirtualSize())
	assert.Less(t, tx.VirtualSize(), total)
}

func TestParseTxID(t *testing.T) {
	h := testHash(9)
	back, err := ParseTxID(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, back)

	_, err = ParseTxID("abcd")
	assert.ErrorIs(t, err, ErrInvalidTxID)
	_, err = ParseTxID(string(bytes.Repeat([]byte{'g'}, 64)))
	assert.ErrorIs(t, err, ErrInvalidTxID)
}

func TestValidate(t *testing.T) {
	valid := segwitTx()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"no inputs", func(t *Transaction) { t.Inputs = nil }},
		{"no outputs", func(t *Transaction) { t.Outputs = nil }},
		{"negative output", func(t *Transaction) { t.Outputs[0].Value = -1 }},
		{"output above max money", func(t *Transaction) { t.Outputs[0].Value = amount.MaxMoney + 1 }},
		{"total above max money", func(t *Transaction) {
			t.Outputs[0].Value = amount.MaxMoney
			t.Outputs[1].Value = 1
		}},
		{"duplicate input", func(t *Transaction) { t.Inputs[1].PrevOut = t.Inputs[0].PrevOut }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := valid.Copy()
			tc.mutate(tx)
			assert.ErrorIs(t, tx.Validate(), ErrInvalidTransaction)
		})
	}
}

func TestCopyIsDeep(t *testing.T) {
	tx := segwitTx()
	c := tx.Copy()
	c.Inputs[0].Witness[0][0] = 0xff
	c.Outputs[0].ScriptPubKey[0] = 0xff
	assert.NotEqual(t, tx, c)
	assert.Equal(t, byte(0x30), tx.Inputs[0].Witness[0][0])
}

// ---------------------------------------------------------------------------
// Fees and selection
// ---------------------------------------------------------------------------

func TestEstimateFee(t *testing.T) {
	assert.Equal(t, 226, EstimateTransactionSize(1, 2))
	assert.Equal(t, 10, EstimateTransactionSize(0, 0))
	for _, tc := range []struct {
		in, out int
		rate    amount.Amount
		want    amount.Amount
	}{
		{1, 2, 10, 2260},
		{1, 2, 0, 226},
		{2, 2, 5, 374 * 5},
	} {
		fee, err := EstimateFee(tc.in, tc.out, tc.rate)
		require.NoError(t, err)
		assert.Equal(t, tc.want, fee)
	}
}

func TestEstimateFeeRejectsOverflow(t *testing.T) {
	_, err := EstimateFee(1, 2, amount.Amount(math.MaxInt64/100))
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorIs(t, err, amount.ErrOverflow)

	_, err = EstimateFee(1, 2, amount.MaxMoney)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorIs(t, err, amount.ErrOutOfRange)

	_, err = SelectUTXOs([]UTXO{testUTXO(1, 0, 10_000)}, 1_000, amount.Amount(math.MaxInt64/100))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSelectUTXOsLargestFirst(t *testing.T) {
	utxos := []UTXO{
		testUTXO(1, 0, 10_000),
		testUTXO(2, 0, 80_000),
		testUTXO(3, 0, 30_000),
	}

	sel, err := SelectUTXOs(utxos, 50_000, 1)
	require.NoError(t, err)
	require.Len(t, sel.Inputs, 1)
	assert.Equal(t, amount.Amount(80_000), sel.Inputs[0].Amount)
	assert.Equal(t, amount.Amount(226), sel.Fee)
	assert.Equal(t, amount.Amount(80_000-50_000-226), sel.Change)
	assert.Equal(t, sel.Total, 50_000+sel.Fee+sel.Change)

	// Input order untouched.
	assert.Equal(t, amount.Amount(10_000), utxos[0].Amount)
}

func TestSelectUTXOsAccumulates(t *testing.T) {
	utxos := []UTXO{
		testUTXO(1, 0, 40_000),
		testUTXO(2, 0, 40_000),
		testUTXO(3, 0, 40_000),
	}
	sel, err := SelectUTXOs(utxos, 79_700, 1)
	require.NoError(t, err)
	// 2 inputs need 79,700 + 374 = 80,074 > 80,000, so a third is added.
	assert.Len(t, sel.Inputs, 3)
	assert.Equal(t, amount.Amount(522), sel.Fee)
}

func TestSelectUTXOsSkipsSpent(t *testing.T) {
	spent := testUTXO(1, 0, 1_000_000)
	spent.Spent = true
	sel, err := SelectUTXOs([]UTXO{spent, testUTXO(2, 0, 20_000)}, 10_000, 1)
	require.NoError(t, err)
	require.Len(t, sel.Inputs, 1)
	assert.Equal(t, testHash(2), sel.Inputs[0].TxID)
}

func TestSelectUTXOsInsufficient(t *testing.T) {
	_, err := SelectUTXOs([]UTXO{testUTXO(1, 0, 10_000)}, 10_000, 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = SelectUTXOs(nil, 1, 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = SelectUTXOs([]UTXO{testUTXO(1, 0, 10_000)}, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

// ---------------------------------------------------------------------------
// Assembly
// ---------------------------------------------------------------------------

func TestBuildRawTransaction(t *testing.T) {
	net := &address.MainNet
	utxos := []UTXO{testUTXO(1, 0, 100_000), testUTXO(2, 5, 50_000)}
	recipients := []Recipient{
		{Address: "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", Amount: 120_000},
		{Address: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", Amount: 20_000},
	}

	tx, err := BuildRawTransaction(utxos, recipients, net)
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, tx.Version)
	assert.Zero(t, tx.LockTime)
	require.Len(t, tx.Inputs, 2)
	assert.Equal(t, utxos[1].OutPoint(), tx.Inputs[1].PrevOut)
	assert.Empty(t, tx.Inputs[0].ScriptSig)
	assert.Equal(t, SequenceFinal, tx.Inputs[0].Sequence)
	require.Len(t, tx.Outputs, 2)
	assert.Equal(t, "76a914751e76e8199196d454941c45d1b3a323f1433bd688ac", hex.EncodeToString(tx.Outputs[0].ScriptPubKey))
	assert.Equal(t, "0014751e76e8199196d454941c45d1b3a323f1433bd6", hex.EncodeToString(tx.Outputs[1].ScriptPubKey))

	_, err = BuildRawTransaction(utxos, []Recipient{{Address: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", Amount: 1}}, net)
	assert.ErrorIs(t, err, address.ErrWrongNetwork)
	_, err = BuildRawTransaction(utxos, []Recipient{{Address: recipients[0].Address, Amount: 0}}, net)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = BuildRawTransaction(nil, recipients, net)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = BuildRawTransaction(utxos, recipients, nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestCreateRawTransactionSequences(t *testing.T) {
	net := &address.MainNet
	explicit := uint32(7)
	inputs := []RawInput{
		{TxID: testHash(1).String(), Vout: 0},
		{TxID: testHash(2).String(), Vout: 1, Sequence: &explicit},
	}
	outputs := []RawOutput{{Address: "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", Amount: 5_000}}

	tests := []struct {
		name        string
		replaceable bool
		want        uint32
	}{
		{"final", false, SequenceFinal},
		{"replaceable", true, SequenceReplaceable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := CreateRawTransaction(inputs, outputs, 650_000, tc.replaceable, net)
			require.NoError(t, err)
			assert.Equal(t, tc.want, tx.Inputs[0].Sequence)
			assert.Equal(t, explicit, tx.Inputs[1].Sequence)
			assert.Equal(t, uint32(650_000), tx.LockTime)
			assert.Equal(t, testHash(1), tx.Inputs[0].PrevOut.TxID)
		})
	}
}

func TestCreateRawTransactionOutputs(t *testing.T) {
	net := &address.MainNet
	inputs := []RawInput{{TxID: testHash(1).String(), Vout: 0}}

	tx, err := CreateRawTransaction(inputs, []RawOutput{
		{Address: "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", Amount: 5_000},
		{Data: []byte("hello")},
	}, 0, false, net)
	require.NoError(t, err)
	require.Len(t, tx.Outputs, 2)
	assert.Zero(t, tx.Outputs[1].Value)
	assert.Equal(t, "6a0568656c6c6f", hex.EncodeToString(tx.Outputs[1].ScriptPubKey))

	_, err = CreateRawTransaction(inputs, []RawOutput{
		{Address: "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", Amount: 5_000},
		{Address: "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", Amount: 6_000},
	}, 0, false, net)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = CreateRawTransaction(inputs, []RawOutput{{Data: []byte{1}}, {Data: []byte{2}}}, 0, false, net)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = CreateRawTransaction([]RawInput{{TxID: "xyz"}}, []RawOutput{{Data: []byte{1}}}, 0, false, net)
	assert.ErrorIs(t, err, ErrInvalidTxID)

	_, err = CreateRawTransaction(append(inputs, inputs[0]), []RawOutput{{Data: []byte{1}}}, 0, false, net)
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}
