package consensus

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/bitfsorg/spvcore-go/tx"
)

// result is a cached validation outcome. A nil err means valid.
type result struct {
	err error
}

// Validator performs simplified structural and proof-of-work validation of
// headers and transactions and caches outcomes by content hash. It is safe
// for concurrent use.
type Validator struct {
	params     Params
	now        func() time.Time
	cache      *ttlcache.Cache[string, result]
	generation atomic.Uint64
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source used for the future-timestamp check.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator returns a Validator for the given network parameters.
func NewValidator(params Params, opts ...Option) *Validator {
	v := &Validator{
		params: params,
		now:    time.Now,
		cache: ttlcache.New[string, result](
			ttlcache.WithDisableTouchOnHit[string, result](),
		),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Params returns the network parameters the validator was built with.
func (v *Validator) Params() Params { return v.params }

// ClearCache drops all cached results. Validations in flight while the cache
// is cleared do not write their results back.
func (v *Validator) ClearCache() {
	v.cache.DeleteAll()
	v.generation.Add(1)
}

// CacheLen returns the number of cached results.
func (v *Validator) CacheLen() int {
	return v.cache.Len()
}

func (v *Validator) cached(key string, validate func() error, cacheable func(error) bool) error {
	if item := v.cache.Get(key); item != nil {
		return item.Value().err
	}
	gen := v.generation.Load()
	err := validate()
	if cacheable(err) && gen == v.generation.Load() {
		v.cache.Set(key, result{err: err}, ttlcache.NoTTL)
	}
	return err
}

// ValidateBlockHeader checks header on its own and, when previous is not nil,
// as the successor of previous.
func (v *Validator) ValidateBlockHeader(header, previous *BlockHeader) error {
	if header == nil {
		return fmt.Errorf("%w: header", ErrNilParam)
	}

	key := "h:" + headerKey(header)
	if previous != nil {
		key += "|" + headerKey(previous)
	}
	// The future-time check depends on the clock, so that failure is never cached.
	return v.cached(key, func() error {
		return v.validateHeader(header, previous)
	}, func(err error) bool {
		return !errors.Is(err, ErrTimestampTooNew)
	})
}

// headerKey covers every field the verdict depends on, so a header that only
// claims another block's hash or height never shares its cache entry.
func headerKey(h *BlockHeader) string {
	return fmt.Sprintf("%d:%s:%s:%s:%d:%d:%d:%d",
		h.Version, strings.ToLower(h.Hash), strings.ToLower(h.PrevHash), strings.ToLower(h.MerkleRoot),
		h.Height, h.Timestamp, h.Bits, h.Nonce)
}

func (v *Validator) validateHeader(h, prev *BlockHeader) error {
	switch {
	case !isHashHex(h.Hash):
		return fmt.Errorf("%w: hash must be %d hex characters", ErrInvalidHeader, HashHexLen)
	case !isHashHex(h.PrevHash):
		return fmt.Errorf("%w: prev hash must be %d hex characters", ErrInvalidHeader, HashHexLen)
	case !isHashHex(h.MerkleRoot):
		return fmt.Errorf("%w: merkle root must be %d hex characters", ErrInvalidHeader, HashHexLen)
	case h.Height < 0:
		return fmt.Errorf("%w: negative height %d", ErrInvalidHeader, h.Height)
	case h.Timestamp <= 0:
		return fmt.Errorf("%w: timestamp %d", ErrInvalidHeader, h.Timestamp)
	case h.Bits == 0:
		return fmt.Errorf("%w: zero bits", ErrInvalidHeader)
	}

	computed, err := h.ComputeHash()
	if err != nil {
		return err
	}
	if !strings.EqualFold(computed, h.Hash) {
		return fmt.Errorf("%w: declared %s, computed %s", ErrHashMismatch, h.Hash, computed)
	}

	if err := v.checkProofOfWork(h); err != nil {
		return err
	}

	limit := v.now().Add(MaxFutureBlockTime).Unix()
	if h.Timestamp > limit {
		return fmt.Errorf("%w: %d > %d", ErrTimestampTooNew, h.Timestamp, limit)
	}

	if prev != nil {
		if h.Timestamp <= prev.Timestamp {
			return fmt.Errorf("%w: %d <= %d", ErrTimestampNotIncreasing, h.Timestamp, prev.Timestamp)
		}
		if !strings.EqualFold(h.PrevHash, prev.Hash) {
			return fmt.Errorf("%w: prev hash %s, previous header %s", ErrChainBroken, h.PrevHash, prev.Hash)
		}
		if h.Height != prev.Height+1 {
			return fmt.Errorf("%w: height %d follows %d", ErrChainBroken, h.Height, prev.Height)
		}
	}

	if cp, ok := v.params.Checkpoints[h.Height]; ok && !strings.EqualFold(cp, h.Hash) {
		return fmt.Errorf("%w: height %d expects %s", ErrCheckpointMismatch, h.Height, cp)
	}
	return nil
}

// checkProofOfWork requires 0 < target <= pow limit and hash <= target.
func (v *Validator) checkProofOfWork(h *BlockHeader) error {
	target := CompactToBig(h.Bits)
	if target.Sign() <= 0 {
		return fmt.Errorf("%w: bits 0x%08x decode to a non-positive target", ErrInvalidHeader, h.Bits)
	}
	if limit := v.params.PowLimitBits; limit != 0 && target.Cmp(CompactToBig(limit)) > 0 {
		return fmt.Errorf("%w: bits 0x%08x exceeds limit 0x%08x", ErrDifficultyTooLow, h.Bits, limit)
	}

	hashNum, err := HashToBig(h.Hash)
	if err != nil {
		return err
	}
	if hashNum.Cmp(target) > 0 {
		return fmt.Errorf("%w: hash exceeds target", ErrInsufficientPoW)
	}
	return nil
}

// ValidateHeaderChain validates headers in ascending order, each against its
// predecessor. The first header is validated on its own.
func (v *Validator) ValidateHeaderChain(headers []*BlockHeader) error {
	var prev *BlockHeader
	for i, h := range headers {
		if h == nil {
			return fmt.Errorf("%w: nil header at index %d", ErrNilParam, i)
		}
		if err := v.ValidateBlockHeader(h, prev); err != nil {
			return fmt.Errorf("header %d: %w", i, err)
		}
		prev = h
	}
	return nil
}

// ValidateTransaction runs the structural checks: at least one input and
// output, no duplicate outpoints, output values and their sum within the
// money range, and a serialized size of at most MaxTxSize.
func (v *Validator) ValidateTransaction(t *tx.Transaction) error {
	if t == nil {
		return fmt.Errorf("%w: transaction", ErrNilParam)
	}
	return v.cached("t:"+t.WTxID().String(), func() error {
		return CheckTransaction(t)
	}, func(error) bool { return true })
}

// CheckTransaction is the uncached form of ValidateTransaction.
func CheckTransaction(t *tx.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if size := t.TotalSize(); size > MaxTxSize {
		return fmt.Errorf("%w: %w: %d bytes", tx.ErrInvalidTransaction, ErrTxTooLarge, size)
	}
	return nil
}

// Connect validates h against its stored predecessor and persists it. A
// height 0 header is validated without a predecessor.
func (v *Validator) Connect(store HeaderStore, h *BlockHeader) error {
	if store == nil || h == nil {
		return fmt.Errorf("%w: store or header", ErrNilParam)
	}

	var prev *BlockHeader
	if h.Height > 0 {
		p, err := store.GetHeader(h.PrevHash)
		if err != nil {
			if errors.Is(err, ErrHeaderNotFound) {
				return fmt.Errorf("%w: predecessor %s of height %d not stored", ErrChainBroken, h.PrevHash, h.Height)
			}
			return err
		}
		prev = p
	}

	if err := v.ValidateBlockHeader(h, prev); err != nil {
		return err
	}
	return store.PutHeader(h)
}
