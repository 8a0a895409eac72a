package tx

import (
	"context"
	"fmt"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/amount"
	"github.com/bitfsorg/spvcore-go/script"
)

// Signer fills in scriptSig and witness data for every input of t.
// prevOuts[i] is the output spent by t.Inputs[i].
type Signer interface {
	Sign(ctx context.Context, t *Transaction, prevOuts []UTXO) error
}

// Recipient is a payment destination.
type Recipient struct {
	Address string
	Amount  amount.Amount
}

// RawInput references an outpoint by display txid. A nil Sequence lets
// CreateRawTransaction pick one.
type RawInput struct {
	TxID     string
	Vout     uint32
	Sequence *uint32
}

// RawOutput is either an address/amount pair or, when Data is non-nil, a
// zero-value null-data output.
type RawOutput struct {
	Address string
	Amount  amount.Amount
	Data    []byte
}

// BuildRawTransaction assembles an unsigned version 2 transaction with one
// input per UTXO and one output per recipient.
func BuildRawTransaction(utxos []UTXO, recipients []Recipient, net *address.NetworkConfig) (*Transaction, error) {
	if net == nil {
		return nil, fmt.Errorf("%w: network", ErrNilParam)
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("%w: no inputs", ErrInvalidParams)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrInvalidParams)
	}

	t := &Transaction{
		Version: DefaultVersion,
		Inputs:  make([]TxInput, 0, len(utxos)),
		Outputs: make([]TxOutput, 0, len(recipients)),
	}
	for _, u := range utxos {
		t.Inputs = append(t.Inputs, TxInput{PrevOut: u.OutPoint(), Sequence: SequenceFinal})
	}
	for i, r := range recipients {
		out, err := paymentOutput(r.Address, r.Amount, net)
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}
		t.Outputs = append(t.Outputs, out)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateRawTransaction builds an unsigned transaction from explicit inputs
// and outputs. Each input's sequence is its explicit value when given,
// otherwise SequenceReplaceable when replaceable is set, otherwise
// SequenceFinal.
func CreateRawTransaction(inputs []RawInput, outputs []RawOutput, lockTime uint32, replaceable bool, net *address.NetworkConfig) (*Transaction, error) {
	if net == nil {
		return nil, fmt.Errorf("%w: network", ErrNilParam)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", ErrInvalidParams)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: no outputs", ErrInvalidParams)
	}

	t := &Transaction{
		Version:  DefaultVersion,
		LockTime: lockTime,
		Inputs:   make([]TxInput, 0, len(inputs)),
		Outputs:  make([]TxOutput, 0, len(outputs)),
	}

	for i, in := range inputs {
		h, err := ParseTxID(in.TxID)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		seq := SequenceFinal
		switch {
		case in.Sequence != nil:
			seq = *in.Sequence
		case replaceable:
			seq = SequenceReplaceable
		}
		t.Inputs = append(t.Inputs, TxInput{
			PrevOut:  OutPoint{TxID: h, Vout: in.Vout},
			Sequence: seq,
		})
	}

	seenAddr := make(map[string]struct{})
	hasData := false
	for i, o := range outputs {
		if o.Data != nil {
			if hasData {
				return nil, fmt.Errorf("%w: output %d: more than one data output", ErrInvalidParams, i)
			}
			hasData = true
			s, err := script.NullData(o.Data)
			if err != nil {
				return nil, fmt.Errorf("output %d: %w", i, err)
			}
			t.Outputs = append(t.Outputs, TxOutput{Value: 0, ScriptPubKey: s})
			continue
		}

		if _, dup := seenAddr[o.Address]; dup {
			return nil, fmt.Errorf("%w: output %d: duplicate address %s", ErrInvalidParams, i, o.Address)
		}
		seenAddr[o.Address] = struct{}{}

		out, err := paymentOutput(o.Address, o.Amount, net)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		t.Outputs = append(t.Outputs, out)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func paymentOutput(addr string, value amount.Amount, net *address.NetworkConfig) (TxOutput, error) {
	if value <= 0 || !amount.MoneyRange(value) {
		return TxOutput{}, fmt.Errorf("%w: amount %d", ErrInvalidParams, int64(value))
	}
	s, err := script.ForAddress(addr, net)
	if err != nil {
		return TxOutput{}, err
	}
	return TxOutput{Value: value, ScriptPubKey: s}, nil
}
