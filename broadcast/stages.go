package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/spvcore-go/amount"
	"github.com/bitfsorg/spvcore-go/script"
	"github.com/bitfsorg/spvcore-go/tx"
)

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.ioTimeout)
}

// validate runs the structural checks and requires a prevout for each input.
func (p *Pipeline) validate(_ context.Context, s *submission) verdict {
	if err := p.validator.ValidateTransaction(s.tx); err != nil {
		if !errors.Is(err, tx.ErrInvalidTransaction) {
			err = fmt.Errorf("%w: %w", tx.ErrInvalidTransaction, err)
		}
		return reject(tx.ErrInvalidTransaction, err)
	}
	if len(s.prevOuts) != len(s.tx.Inputs) {
		return reject(tx.ErrInvalidTransaction,
			fmt.Errorf("%d prevouts for %d inputs", len(s.prevOuts), len(s.tx.Inputs)))
	}
	for i, in := range s.tx.Inputs {
		u := &s.prevOuts[i]
		if u.OutPoint() != in.PrevOut {
			return reject(tx.ErrInvalidTransaction,
				fmt.Errorf("input %d spends %s, prevout is %s", i, in.PrevOut, u.OutPoint()))
		}
		if !amount.MoneyRange(u.Amount) {
			return reject(tx.ErrInvalidTransaction, fmt.Errorf("input %d prevout value %d out of range", i, u.Amount))
		}
	}
	return verdict{event: eventValidate}
}

func (p *Pipeline) checkChain(ctx context.Context, s *submission) verdict {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	found, err := p.chain.IsInChain(ctx, s.tx)
	if err != nil {
		return reject(ErrNetworkFailure, fmt.Errorf("chain lookup: %w", err))
	}
	if found {
		return verdict{event: eventFoundInChain, reason: ErrAlreadyKnown}
	}
	return proceed
}

// checkMempool stops at an already pending transaction after announcing it
// again. A failed re-announcement does not change the outcome.
func (p *Pipeline) checkMempool(ctx context.Context, s *submission) verdict {
	lookupCtx, cancel := p.withTimeout(ctx)
	found, err := p.mempool.Has(lookupCtx, s.txid)
	cancel()
	if err != nil {
		return reject(ErrNetworkFailure, fmt.Errorf("mempool lookup: %w", err))
	}
	if !found {
		return proceed
	}
	if err := p.relayAll(ctx, s.tx); err != nil {
		p.logger.Warn().Str("txid", s.txid.String()).Err(err).Msg("re-announce failed")
	} else {
		p.mempool.MarkBroadcast(s.txid)
	}
	return verdict{event: eventFoundInMempool, reason: ErrAlreadyKnown}
}

// checkFee computes the fee from the prevouts and enforces the rate ceiling.
func (p *Pipeline) checkFee(_ context.Context, s *submission) verdict {
	in := amount.Amount(0)
	for _, u := range s.prevOuts {
		var err error
		if in, err = amount.Add(in, u.Amount); err != nil {
			return reject(tx.ErrInvalidTransaction, fmt.Errorf("input sum: %w", err))
		}
	}
	out, err := s.tx.TotalOutput()
	if err != nil {
		return reject(tx.ErrInvalidTransaction, err)
	}
	fee := in - out
	if fee < 0 {
		return reject(tx.ErrInvalidTransaction, fmt.Errorf("outputs %d exceed inputs %d", out, in))
	}

	rate := FeeRate(fee, s.tx.VirtualSize())
	s.result.Fee, s.result.FeeRate = fee, rate
	if rate > p.maxFeeRate {
		return reject(ErrFeeExceeded, fmt.Errorf("%d sat/kvB > %d sat/kvB", rate, p.maxFeeRate))
	}
	return proceed
}

// FeeRate returns fee per 1000 vbytes, rounded down.
func FeeRate(fee amount.Amount, vsize int) amount.Amount {
	if vsize <= 0 {
		return 0
	}
	return fee * 1000 / amount.Amount(vsize)
}

func (p *Pipeline) checkBurn(_ context.Context, s *submission) verdict {
	burned := BurnAmount(s.tx)
	if burned > p.maxBurnAmount {
		return reject(ErrBurnExceeded, fmt.Errorf("%d sat burned, allowance %d sat", burned, p.maxBurnAmount))
	}
	return proceed
}

// BurnAmount sums the value of provably unspendable outputs.
func BurnAmount(t *tx.Transaction) amount.Amount {
	var total amount.Amount
	for _, o := range t.Outputs {
		if script.IsUnspendable(o.ScriptPubKey) {
			total += o.Value
		}
	}
	return total
}

// accept inserts into the mempool and marks the transaction unbroadcast.
func (p *Pipeline) accept(ctx context.Context, s *submission) verdict {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	if err := p.mempool.Add(ctx, s.tx, s.result.Fee); err != nil {
		return reject(ErrNetworkFailure, fmt.Errorf("mempool add: %w", err))
	}
	p.mempool.MarkUnbroadcast(s.txid)
	return verdict{event: eventAccept}
}

// relay leaves the transaction accepted and unbroadcast when no peer took it.
func (p *Pipeline) relay(ctx context.Context, s *submission) verdict {
	if err := p.relayAll(ctx, s.tx); err != nil {
		return verdict{reason: ErrNetworkFailure, cause: err}
	}
	p.mempool.MarkBroadcast(s.txid)
	return verdict{event: eventRelay}
}

// relayAll announces t to every peer concurrently. It succeeds when at least
// one peer accepted the transaction.
func (p *Pipeline) relayAll(ctx context.Context, t *tx.Transaction) error {
	if len(p.peers) == 0 {
		return ErrNoPeers
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	for _, peer := range p.peers {
		g.Go(func() error {
			ctx, cancel := p.withTimeout(ctx)
			defer cancel()
			if err := peer.Relay(ctx, t); err != nil {
				p.metrics.relays.WithLabelValues("error").Inc()
				mu.Lock()
				errs = append(errs, fmt.Errorf("peer %s: %w", peer.ID(), err))
				mu.Unlock()
				return nil
			}
			p.metrics.relays.WithLabelValues("ok").Inc()
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == len(p.peers) {
		return errors.Join(errs...)
	}
	for _, err := range errs {
		p.logger.Debug().Str("txid", t.TxID().String()).Err(err).Msg("peer relay failed")
	}
	return nil
}
