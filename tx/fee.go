package tx

import (
	"fmt"

	"github.com/bitfsorg/spvcore-go/amount"
)

// Size heuristics for a legacy P2PKH spend.
//
//	input:  prevhash(32) + index(4) + scriptlen(1) + scriptSig(~107) + sequence(4) = 148
//	output: value(8) + scriptlen(1) + P2PKH script(25) = 34
//	base:   version(4) + locktime(4) + input count(1) + output count(1) = 10
const (
	EstimatedInputSize  = 148
	EstimatedOutputSize = 34
	EstimatedTxOverhead = 10

	// DefaultFeeRate is in satoshis per byte.
	DefaultFeeRate amount.Amount = 1

	// DustLimit is the smallest output value the wallet will create.
	DustLimit amount.Amount = 546
)

// EstimateTransactionSize returns the heuristic size in bytes of a
// transaction with the given input and output counts.
func EstimateTransactionSize(numInputs, numOutputs int) int {
	if numInputs < 0 {
		numInputs = 0
	}
	if numOutputs < 0 {
		numOutputs = 0
	}
	return numInputs*EstimatedInputSize + numOutputs*EstimatedOutputSize + EstimatedTxOverhead
}

// EstimateFee returns EstimateTransactionSize(numInputs, numOutputs) * feeRate,
// with feeRate in satoshis per byte. A non-positive rate uses DefaultFeeRate.
// A fee that overflows or exceeds MaxMoney is rejected with ErrInvalidParams.
func EstimateFee(numInputs, numOutputs int, feeRate amount.Amount) (amount.Amount, error) {
	if feeRate <= 0 {
		feeRate = DefaultFeeRate
	}
	fee, err := amount.MulInt(feeRate, int64(EstimateTransactionSize(numInputs, numOutputs)))
	if err != nil {
		return 0, fmt.Errorf("%w: fee rate %d sat/byte: %w", ErrInvalidParams, int64(feeRate), err)
	}
	return fee, nil
}
