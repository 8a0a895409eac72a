package tx

import (
	"fmt"
	"sort"

	"github.com/bitfsorg/spvcore-go/amount"
)

// Selection is the result of coin selection.
type Selection struct {
	Inputs []UTXO
	Total  amount.Amount
	Fee    amount.Amount
	Change amount.Amount
}

// SelectUTXOs picks UTXOs largest-first until their sum covers target plus
// the fee of a transaction spending them to two outputs (payment and change).
// Spent UTXOs are skipped. The input slice is not modified.
func SelectUTXOs(utxos []UTXO, target, feeRate amount.Amount) (*Selection, error) {
	if target <= 0 || !amount.MoneyRange(target) {
		return nil, fmt.Errorf("%w: target %d", ErrInvalidParams, int64(target))
	}

	candidates := make([]UTXO, 0, len(utxos))
	for _, u := range utxos {
		if !u.Spent && u.Amount > 0 {
			candidates = append(candidates, u)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Amount > candidates[j].Amount
	})

	sel := &Selection{}
	for _, u := range candidates {
		total, err := amount.Add(sel.Total, u.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		sel.Inputs = append(sel.Inputs, u)
		sel.Total = total

		fee, err := EstimateFee(len(sel.Inputs), 2, feeRate)
		if err != nil {
			return nil, err
		}
		if sel.Total >= target+fee {
			sel.Fee = fee
			sel.Change = sel.Total - target - fee
			return sel, nil
		}
	}

	fee, err := EstimateFee(len(candidates), 2, feeRate)
	if err != nil {
		return nil, err
	}
	need := target + fee
	return nil, fmt.Errorf("%w: need %d sat, have %d sat", ErrInsufficientFunds, int64(need), int64(sel.Total))
}
