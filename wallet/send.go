package wallet

import (
	"context"
	"fmt"
	"sort"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/amount"
	"github.com/bitfsorg/spvcore-go/tx"
)

// SendOptions adjusts SendToAddress.
type SendOptions struct {
	// Replaceable signals opt-in replace-by-fee on every input.
	Replaceable bool
	// SubtractFee pays the fee out of the sent amount instead of on top of it.
	SubtractFee bool
}

// draft is a signed transaction with the bookkeeping needed to commit it.
type draft struct {
	tx     *tx.Transaction
	inputs []tx.UTXO
	amount amount.Amount // paid to the recipient
	fee    amount.Amount
	change *tx.UTXO
}

// BuildTransaction selects coins, signs a payment of amt to addr and returns
// its hex. The UTXO set is left untouched; a change address, when needed, is
// created and watched.
func (w *Wallet) BuildTransaction(ctx context.Context, to string, amt, feeRate amount.Amount) (string, error) {
	d, err := w.assemble(ctx, to, amt, feeRate, SendOptions{})
	if err != nil {
		return "", err
	}
	return d.tx.Hex(), nil
}

// SendToAddress pays amt to addr and submits the transaction to the
// broadcast pipeline. Once the pipeline accepts it (or finds it already
// known) the inputs are marked spent, the transaction is stored and the
// change output becomes a new UTXO. A rejection returns the pipeline's
// *broadcast.RejectError. If bookkeeping fails after acceptance the txid is
// returned together with the error.
func (w *Wallet) SendToAddress(ctx context.Context, to string, amt, feeRate amount.Amount, opts SendOptions) (chainhash.Hash, error) {
	if w.pipeline == nil {
		return chainhash.Hash{}, ErrNoPipeline
	}
	release, err := w.guard.Lock(ctx)
	if err != nil {
		return chainhash.Hash{}, err
	}
	defer release()

	d, err := w.assemble(ctx, to, amt, feeRate, opts)
	if err != nil {
		return chainhash.Hash{}, err
	}

	res, err := w.pipeline.Submit(ctx, d.tx, d.inputs)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if err := res.Err(); err != nil {
		return chainhash.Hash{}, err
	}
	if !res.Admitted() && !res.Known() {
		return chainhash.Hash{}, fmt.Errorf("wallet: transaction %s stopped in state %s", res.TxID, res.State)
	}
	if res.Reason != nil && res.Admitted() {
		w.logger.Warn().Str("txid", res.TxID.String()).AnErr("reason", res.Reason).
			Msg("transaction accepted but not relayed")
	}

	if err := w.commit(ctx, d); err != nil {
		return res.TxID, err
	}
	w.logger.Info().
		Str("txid", res.TxID.String()).
		Str("to", to).
		Int64("amount", int64(d.amount)).
		Int64("fee", int64(d.fee)).
		Str("state", string(res.State)).
		Msg("transaction sent")
	return res.TxID, nil
}

func (w *Wallet) commit(ctx context.Context, d *draft) error {
	ops := make([]tx.OutPoint, len(d.inputs))
	for i := range d.inputs {
		ops[i] = d.inputs[i].OutPoint()
	}
	if err := w.store.MarkSpent(ctx, ops...); err != nil {
		return fmt.Errorf("wallet: mark inputs spent: %w", err)
	}
	if err := w.store.StoreTransaction(ctx, d.tx); err != nil {
		return fmt.Errorf("wallet: store transaction: %w", err)
	}
	if d.change != nil {
		if err := w.store.AddUTXO(ctx, *d.change); err != nil {
			return fmt.Errorf("wallet: record change: %w", err)
		}
	}
	return nil
}

// assemble selects inputs, builds the outputs and signs.
func (w *Wallet) assemble(ctx context.Context, to string, amt, feeRate amount.Amount, opts SendOptions) (*draft, error) {
	if err := address.Validate(to, w.net); err != nil {
		return nil, err
	}
	if amt <= 0 || !amount.MoneyRange(amt) {
		return nil, fmt.Errorf("%w: amount %d", ErrInvalidParams, int64(amt))
	}
	rate := w.rate(feeRate)

	utxos, err := w.store.GetUnspent(ctx, "")
	if err != nil {
		return nil, err
	}

	d := &draft{}
	var total, change amount.Amount
	if opts.SubtractFee {
		d.inputs, total, err = selectCovering(utxos, amt)
		if err != nil {
			return nil, err
		}
		d.fee, err = tx.EstimateFee(len(d.inputs), 2, rate)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		d.amount = amt - d.fee
		change = total - amt
	} else {
		sel, err := tx.SelectUTXOs(utxos, amt, rate)
		if err != nil {
			return nil, err
		}
		d.inputs, total, d.fee, change = sel.Inputs, sel.Total, sel.Fee, sel.Change
		d.amount = amt
	}
	if d.amount < tx.DustLimit {
		return nil, fmt.Errorf("%w: payment of %d sat after fee is below dust limit %d",
			ErrInvalidParams, int64(d.amount), int64(tx.DustLimit))
	}

	recipients := []tx.Recipient{{Address: to, Amount: d.amount}}
	var changeAddr string
	if change > tx.DustLimit {
		changeAddr, err = w.newAddress(ctx, w.changeKind(), true)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, tx.Recipient{Address: changeAddr, Amount: change})
	} else {
		d.fee += change
	}

	t, err := tx.BuildRawTransaction(d.inputs, recipients, w.net)
	if err != nil {
		return nil, err
	}
	if opts.Replaceable {
		for i := range t.Inputs {
			t.Inputs[i].Sequence = tx.SequenceReplaceable
		}
	}
	if err := w.signer.Sign(ctx, t, d.inputs); err != nil {
		return nil, err
	}
	d.tx = t

	if changeAddr != "" {
		out := t.Outputs[1]
		d.change = &tx.UTXO{
			TxID:         t.TxID(),
			Vout:         1,
			Address:      changeAddr,
			Amount:       out.Value,
			ScriptPubKey: out.ScriptPubKey,
		}
	}
	return d, nil
}

func (w *Wallet) changeKind() address.Kind {
	if w.net.SupportsSegWit() {
		return address.KindSegWit
	}
	return address.KindNestedSegWit
}

// selectCovering picks UTXOs largest-first until they cover amt alone, for
// payments whose fee comes out of the amount.
func selectCovering(utxos []tx.UTXO, amt amount.Amount) ([]tx.UTXO, amount.Amount, error) {
	candidates := make([]tx.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if !u.Spent && u.Amount > 0 {
			candidates = append(candidates, u)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Amount > candidates[j].Amount })

	var total amount.Amount
	for i, u := range candidates {
		sum, err := amount.Add(total, u.Amount)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		total = sum
		if total >= amt {
			return candidates[:i+1], total, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: need %d sat, have %d sat", tx.ErrInsufficientFunds, int64(amt), int64(total))
}
