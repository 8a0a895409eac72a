package tx

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/spvcore-go/amount"
)

// Wire constants.
const (
	TxIDLen = chainhash.HashSize

	DefaultVersion int32 = 2

	// SequenceFinal disables both lock-time and replacement signalling.
	SequenceFinal uint32 = 0xffffffff
	// SequenceReplaceable is used when the caller asks for a replaceable transaction.
	SequenceReplaceable uint32 = 0xfffffffe

	WitnessScaleFactor = 4

	witnessMarker = 0x00
	witnessFlag   = 0x01

	minInputSize  = 32 + 4 + 1 + 4
	minOutputSize = 8 + 1
)

// OutPoint identifies a transaction output.
type OutPoint struct {
	TxID chainhash.Hash
	Vout uint32
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Vout)
}

// TxInput spends a previous output.
type TxInput struct {
	PrevOut   OutPoint
	ScriptSig []byte
	Sequence  uint32
	Witness   [][]byte
}

// TxOutput locks Value to ScriptPubKey.
type TxOutput struct {
	Value        amount.Amount
	ScriptPubKey []byte
}

// Transaction is a Bitcoin transaction in its decoded form.
type Transaction struct {
	Version  int32
	Inputs   []TxInput
	Outputs  []TxOutput
	LockTime uint32
}

// ParseTxID parses a transaction ID in display (byte-reversed) hex.
func ParseTxID(s string) (chainhash.Hash, error) {
	if len(s) != 2*TxIDLen {
		return chainhash.Hash{}, fmt.Errorf("%w: %q has %d characters", ErrInvalidTxID, s, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: %w", ErrInvalidTxID, err)
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	h, err := chainhash.NewHash(b)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: %w", ErrInvalidTxID, err)
	}
	return *h, nil
}

// HasWitness reports whether any input carries witness data.
func (t *Transaction) HasWitness() bool {
	for i := range t.Inputs {
		if len(t.Inputs[i].Witness) > 0 {
			return true
		}
	}
	return false
}

// Serialize returns the full serialization, in segwit format when any input has a witness.
func (t *Transaction) Serialize() []byte {
	return t.serialize(t.HasWitness())
}

// SerializeNoWitness returns the legacy serialization used for the txid.
func (t *Transaction) SerializeNoWitness() []byte {
	return t.serialize(false)
}

// Hex returns the hex encoding of Serialize.
func (t *Transaction) Hex() string {
	return hex.EncodeToString(t.Serialize())
}

func (t *Transaction) serialize(withWitness bool) []byte {
	b := make([]byte, 0, t.sizeHint())
	b = binary.LittleEndian.AppendUint32(b, uint32(t.Version))
	if withWitness {
		b = append(b, witnessMarker, witnessFlag)
	}

	b = AppendCompactSize(b, uint64(len(t.Inputs)))
	for i := range t.Inputs {
		in := &t.Inputs[i]
		b = append(b, in.PrevOut.TxID[:]...)
		b = binary.LittleEndian.AppendUint32(b, in.PrevOut.Vout)
		b = AppendCompactSize(b, uint64(len(in.ScriptSig)))
		b = append(b, in.ScriptSig...)
		b = binary.LittleEndian.AppendUint32(b, in.Sequence)
	}

	b = AppendCompactSize(b, uint64(len(t.Outputs)))
	for i := range t.Outputs {
		out := &t.Outputs[i]
		b = binary.LittleEndian.AppendUint64(b, uint64(out.Value))
		b = AppendCompactSize(b, uint64(len(out.ScriptPubKey)))
		b = append(b, out.ScriptPubKey...)
	}

	if withWitness {
		for i := range t.Inputs {
			w := t.Inputs[i].Witness
			b = AppendCompactSize(b, uint64(len(w)))
			for _, item := range w {
				b = AppendCompactSize(b, uint64(len(item)))
				b = append(b, item...)
			}
		}
	}

	return binary.LittleEndian.AppendUint32(b, t.LockTime)
}

func (t *Transaction) sizeHint() int {
	n := 4 + 2 + 9 + 9 + 4
	for i := range t.Inputs {
		n += minInputSize + 8 + len(t.Inputs[i].ScriptSig)
		for _, item := range t.Inputs[i].Witness {
			n += 9 + len(item)
		}
	}
	for i := range t.Outputs {
		n += minOutputSize + 8 + len(t.Outputs[i].ScriptPubKey)
	}
	return n
}

// TxID is the double-SHA256 of the witness-stripped serialization.
func (t *Transaction) TxID() chainhash.Hash {
	return chainhash.DoubleHashH(t.SerializeNoWitness())
}

// WTxID is the double-SHA256 of the full serialization.
func (t *Transaction) WTxID() chainhash.Hash {
	return chainhash.DoubleHashH(t.Serialize())
}

// BaseSize is the serialized size without witness data.
func (t *Transaction) BaseSize() int {
	return len(t.SerializeNoWitness())
}

// TotalSize is the serialized size including witness data.
func (t *Transaction) TotalSize() int {
	return len(t.Serialize())
}

// Weight is 3 * base size + total size.
func (t *Transaction) Weight() int {
	return t.BaseSize()*(WitnessScaleFactor-1) + t.TotalSize()
}

// VirtualSize is the weight divided by four, rounded up.
func (t *Transaction) VirtualSize() int {
	return (t.Weight() + WitnessScaleFactor - 1) / WitnessScaleFactor
}

// TotalOutput sums output values with overflow checking.
func (t *Transaction) TotalOutput() (amount.Amount, error) {
	var total amount.Amount
	for i := range t.Outputs {
		var err error
		if total, err = amount.Add(total, t.Outputs[i].Value); err != nil {
			return 0, fmt.Errorf("%w: output %d: %w", ErrInvalidTransaction, i, err)
		}
	}
	return total, nil
}

// Validate checks the context-free structure of the transaction: non-empty
// inputs and outputs, output values within range and no duplicate inputs.
func (t *Transaction) Validate() error {
	if len(t.Inputs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrInvalidTransaction)
	}
	if len(t.Outputs) == 0 {
		return fmt.Errorf("%w: no outputs", ErrInvalidTransaction)
	}
	for i := range t.Outputs {
		if !amount.MoneyRange(t.Outputs[i].Value) {
			return fmt.Errorf("%w: output %d value %d out of range", ErrInvalidTransaction, i, int64(t.Outputs[i].Value))
		}
	}
	total, err := t.TotalOutput()
	if err != nil {
		return err
	}
	if !amount.MoneyRange(total) {
		return fmt.Errorf("%w: total output out of range", ErrInvalidTransaction)
	}

	seen := make(map[OutPoint]struct{}, len(t.Inputs))
	for i := range t.Inputs {
		op := t.Inputs[i].PrevOut
		if _, dup := seen[op]; dup {
			return fmt.Errorf("%w: duplicate input %s", ErrInvalidTransaction, op)
		}
		seen[op] = struct{}{}
	}
	return nil
}

// Copy returns a deep copy of t.
func (t *Transaction) Copy() *Transaction {
	c := &Transaction{
		Version:  t.Version,
		LockTime: t.LockTime,
		Inputs:   make([]TxInput, len(t.Inputs)),
		Outputs:  make([]TxOutput, len(t.Outputs)),
	}
	for i, in := range t.Inputs {
		c.Inputs[i] = TxInput{
			PrevOut:   in.PrevOut,
			ScriptSig: cloneBytes(in.ScriptSig),
			Sequence:  in.Sequence,
		}
		if in.Witness != nil {
			c.Inputs[i].Witness = make([][]byte, len(in.Witness))
			for j, item := range in.Witness {
				c.Inputs[i].Witness[j] = cloneBytes(item)
			}
		}
	}
	for i, out := range t.Outputs {
		c.Outputs[i] = TxOutput{Value: out.Value, ScriptPubKey: cloneBytes(out.ScriptPubKey)}
	}
	return c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

// FromHex decodes a hex-encoded transaction.
func FromHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTx, err)
	}
	return Deserialize(b)
}

// Deserialize decodes a transaction in either legacy or segwit format. Trailing
// bytes are rejected.
func Deserialize(b []byte) (*Transaction, error) {
	r := &reader{b: b}
	t := &Transaction{}

	v, err := r.uint32()
	if err != nil {
		return nil, err
	}
	t.Version = int32(v)

	nIn, err := r.compactSize()
	if err != nil {
		return nil, err
	}

	segwit := false
	if nIn == 0 && r.remaining() > 0 && r.b[r.off] == witnessFlag {
		r.off++
		segwit = true
		if nIn, err = r.compactSize(); err != nil {
			return nil, err
		}
		if nIn == 0 {
			return nil, fmt.Errorf("%w: segwit transaction with no inputs", ErrMalformedTx)
		}
	}

	if nIn > uint64(r.remaining()/minInputSize) {
		return nil, fmt.Errorf("%w: input count %d exceeds data", ErrMalformedTx, nIn)
	}
	t.Inputs = make([]TxInput, nIn)
	for i := range t.Inputs {
		in := &t.Inputs[i]
		h, err := r.bytes(TxIDLen)
		if err != nil {
			return nil, err
		}
		copy(in.PrevOut.TxID[:], h)
		if in.PrevOut.Vout, err = r.uint32(); err != nil {
			return nil, err
		}
		if in.ScriptSig, err = r.varBytes(); err != nil {
			return nil, err
		}
		if in.Sequence, err = r.uint32(); err != nil {
			return nil, err
		}
	}

	nOut, err := r.compactSize()
	if err != nil {
		return nil, err
	}
	if nOut > uint64(r.remaining()/minOutputSize) {
		return nil, fmt.Errorf("%w: output count %d exceeds data", ErrMalformedTx, nOut)
	}
	t.Outputs = make([]TxOutput, nOut)
	for i := range t.Outputs {
		val, err := r.uint64()
		if err != nil {
			return nil, err
		}
		t.Outputs[i].Value = amount.Amount(int64(val))
		if t.Outputs[i].ScriptPubKey, err = r.varBytes(); err != nil {
			return nil, err
		}
	}

	if segwit {
		found := false
		for i := range t.Inputs {
			n, err := r.compactSize()
			if err != nil {
				return nil, err
			}
			if n > uint64(r.remaining()) {
				return nil, fmt.Errorf("%w: witness count %d exceeds data", ErrMalformedTx, n)
			}
			if n == 0 {
				continue
			}
			found = true
			t.Inputs[i].Witness = make([][]byte, n)
			for j := range t.Inputs[i].Witness {
				if t.Inputs[i].Witness[j], err = r.varBytes(); err != nil {
					return nil, err
				}
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: witness flag set with empty witnesses", ErrMalformedTx)
		}
	}

	if t.LockTime, err = r.uint32(); err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedTx, r.remaining())
	}
	return t, nil
}
