// Package broadcast admits signed transactions the way a relaying node would:
// structural validation, deduplication against chain and mempool, fee and
// burn policy, mempool insertion and relay to peers.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/looplab/fsm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/bitfsorg/spvcore-go/amount"
	"github.com/bitfsorg/spvcore-go/consensus"
	"github.com/bitfsorg/spvcore-go/tx"
)

const (
	// DefaultMaxFeeRate is the fee rate ceiling in satoshis per 1000 vbytes.
	DefaultMaxFeeRate amount.Amount = 1_000_000

	// DefaultMaxBurnAmount is the allowance for value sent to unspendable outputs.
	DefaultMaxBurnAmount amount.Amount = 0

	// DefaultIOTimeout bounds every chain, mempool and peer call.
	DefaultIOTimeout = 30 * time.Second
)

// ChainView answers whether a transaction is already confirmed.
type ChainView interface {
	IsInChain(ctx context.Context, t *tx.Transaction) (bool, error)
}

// Mempool is the pending transaction set the pipeline admits into.
type Mempool interface {
	Has(ctx context.Context, txid chainhash.Hash) (bool, error)
	Add(ctx context.Context, t *tx.Transaction, fee amount.Amount) error
	MarkUnbroadcast(txid chainhash.Hash)
	MarkBroadcast(txid chainhash.Hash)
	Unbroadcast() []*tx.Transaction
}

// Peer receives relayed transactions.
type Peer interface {
	ID() string
	Relay(ctx context.Context, t *tx.Transaction) error
}

// TxValidator performs the structural transaction checks.
type TxValidator interface {
	ValidateTransaction(t *tx.Transaction) error
}

type checkFunc func(t *tx.Transaction) error

func (f checkFunc) ValidateTransaction(t *tx.Transaction) error { return f(t) }

// Options configures a Pipeline. Chain and Mempool are required.
type Options struct {
	Chain     ChainView
	Mempool   Mempool
	Peers     []Peer
	Validator TxValidator

	// MaxFeeRate in sat/kvB; zero uses DefaultMaxFeeRate.
	MaxFeeRate    amount.Amount
	MaxBurnAmount amount.Amount
	IOTimeout     time.Duration

	Registerer prometheus.Registerer
	Logger     *zerolog.Logger
}

// Pipeline is safe for concurrent use. It does not serialize submissions
// spending the same coins; callers hold store.Guard for that.
type Pipeline struct {
	chain         ChainView
	mempool       Mempool
	peers         []Peer
	validator     TxValidator
	maxFeeRate    amount.Amount
	maxBurnAmount amount.Amount
	ioTimeout     time.Duration
	metrics       *metrics
	logger        zerolog.Logger
	now           func() time.Time
}

// New returns a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Chain == nil || opts.Mempool == nil {
		return nil, fmt.Errorf("%w: chain view and mempool are required", ErrNilParam)
	}
	if opts.MaxFeeRate < 0 || opts.MaxBurnAmount < 0 || opts.IOTimeout < 0 {
		return nil, fmt.Errorf("%w: negative policy value", ErrInvalidParams)
	}

	p := &Pipeline{
		chain:         opts.Chain,
		mempool:       opts.Mempool,
		peers:         append([]Peer(nil), opts.Peers...),
		validator:     opts.Validator,
		maxFeeRate:    opts.MaxFeeRate,
		maxBurnAmount: opts.MaxBurnAmount,
		ioTimeout:     opts.IOTimeout,
		metrics:       newMetrics(opts.Registerer),
		logger:        zerolog.Nop(),
		now:           time.Now,
	}
	if p.validator == nil {
		p.validator = checkFunc(consensus.CheckTransaction)
	}
	if p.maxFeeRate == 0 {
		p.maxFeeRate = DefaultMaxFeeRate
	}
	if p.ioTimeout == 0 {
		p.ioTimeout = DefaultIOTimeout
	}
	if opts.Logger != nil {
		p.logger = opts.Logger.With().Str("component", "broadcast").Logger()
	}
	return p, nil
}

// Result is the outcome of Submit.
type Result struct {
	TxID  chainhash.Hash
	State State

	// Reason is one of the reason sentinels, tx.ErrInvalidTransaction, or nil.
	Reason error
	Cause  error

	Fee amount.Amount
	// FeeRate in sat/kvB.
	FeeRate amount.Amount
}

// Known reports whether the transaction was already confirmed or pending.
func (r *Result) Known() bool {
	return r.State == StateAlreadyInChain || r.State == StateAlreadyInMempool
}

// Admitted reports whether the transaction is now pending, whether or not a
// peer has received it yet.
func (r *Result) Admitted() bool {
	return r.State == StateAccepted || r.State == StateRelayed
}

// Err returns a *RejectError for rejected submissions and nil otherwise.
func (r *Result) Err() error {
	if r.State != StateRejected {
		return nil
	}
	return &RejectError{TxID: r.TxID, Reason: r.Reason, Cause: r.Cause}
}

// submission carries one transaction through the stages.
type submission struct {
	tx       *tx.Transaction
	prevOuts []tx.UTXO
	txid     chainhash.Hash
	machine  *fsm.FSM
	result   *Result
}

func (s *submission) state() State { return State(s.machine.Current()) }

// verdict is what a stage decides. An empty event with a nil reason
// continues to the next stage in the current state.
type verdict struct {
	event  string
	reason error
	cause  error
}

var proceed = verdict{}

func reject(reason, cause error) verdict {
	return verdict{event: eventReject, reason: reason, cause: cause}
}

type stage func(ctx context.Context, s *submission) verdict

func (p *Pipeline) stages() []stage {
	return []stage{
		p.validate,
		p.checkChain,
		p.checkMempool,
		p.checkFee,
		p.checkBurn,
		p.accept,
		p.relay,
	}
}

// Submit runs t through the pipeline. prevOuts lists the outputs spent by
// t, aligned with its inputs. The returned error is non-nil only for invalid
// arguments or an internal state machine fault; policy and network outcomes
// are reported through the Result.
func (p *Pipeline) Submit(ctx context.Context, t *tx.Transaction, prevOuts []tx.UTXO) (*Result, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: transaction", ErrNilParam)
	}
	start := p.now()
	defer func() { p.metrics.duration.Observe(p.now().Sub(start).Seconds()) }()

	txid := t.TxID()
	s := &submission{
		tx:       t,
		prevOuts: prevOuts,
		txid:     txid,
		machine:  newStateMachine(p.logger, txid.String()),
		result:   &Result{TxID: txid, State: StateBuilt},
	}

	for _, run := range p.stages() {
		v := run(ctx, s)
		if v.event != "" {
			if err := s.machine.Event(ctx, v.event); err != nil {
				return nil, fmt.Errorf("broadcast: %s from %s: %w", v.event, s.state(), err)
			}
		}
		if v.reason != nil {
			s.result.Reason, s.result.Cause = v.reason, v.cause
		}
		if s.state().Terminal() || v.reason != nil {
			break
		}
	}

	s.result.State = s.state()
	p.metrics.outcomes.WithLabelValues(string(s.result.State), reasonLabel(s.result.Reason)).Inc()
	p.logResult(s.result)
	return s.result, nil
}

func (p *Pipeline) logResult(r *Result) {
	ev := p.logger.Info()
	if r.State == StateRejected || (r.Reason != nil && !errors.Is(r.Reason, ErrAlreadyKnown)) {
		ev = p.logger.Warn()
	}
	ev = ev.Str("txid", r.TxID.String()).Str("state", string(r.State)).Int64("fee", int64(r.Fee))
	if r.Reason != nil {
		ev = ev.AnErr("reason", r.Reason)
	}
	if r.Cause != nil {
		ev = ev.AnErr("cause", r.Cause)
	}
	ev.Msg("transaction submitted")
}

// ReannounceUnbroadcast relays every pending transaction no peer has
// received yet. It returns how many were relayed successfully.
func (p *Pipeline) ReannounceUnbroadcast(ctx context.Context) (int, error) {
	var errs []error
	relayed := 0
	for _, t := range p.mempool.Unbroadcast() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := p.relayAll(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.TxID(), err))
			continue
		}
		p.mempool.MarkBroadcast(t.TxID())
		relayed++
	}
	return relayed, errors.Join(errs...)
}

// MarkBroadcast records that a peer fetched txid.
func (p *Pipeline) MarkBroadcast(txid chainhash.Hash) {
	p.mempool.MarkBroadcast(txid)
}
