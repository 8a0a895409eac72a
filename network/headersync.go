package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/spvcore-go/consensus"
)

// HeaderSyncer downloads headers from a node, validates each against its
// stored predecessor and persists it.
type HeaderSyncer struct {
	node      BlockchainService
	validator *consensus.Validator
	headers   consensus.HeaderStore
	logger    zerolog.Logger
}

// NewHeaderSyncer returns a syncer. A nil logger disables logging.
func NewHeaderSyncer(node BlockchainService, validator *consensus.Validator, headers consensus.HeaderStore, logger *zerolog.Logger) *HeaderSyncer {
	s := &HeaderSyncer{node: node, validator: validator, headers: headers, logger: zerolog.Nop()}
	if logger != nil {
		s.logger = logger.With().Str("component", "headersync").Logger()
	}
	return s
}

// Sync fetches every header from the local tip + 1 up to the node's tip and
// returns how many were stored. It stops at the first invalid header; the
// headers stored before it remain.
func (s *HeaderSyncer) Sync(ctx context.Context) (int, error) {
	if s.node == nil || s.validator == nil || s.headers == nil {
		return 0, fmt.Errorf("%w: node, validator and header store are required", ErrNilParam)
	}

	best, err := s.node.GetBlockCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("network: get block count: %w", err)
	}

	var start int64
	tip, err := s.headers.GetTip()
	switch {
	case err == nil:
		start = tip.Height + 1
	case errors.Is(err, consensus.ErrHeaderNotFound):
	default:
		return 0, fmt.Errorf("network: read local tip: %w", err)
	}

	synced := 0
	for h := start; h <= best; h++ {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		hash, err := s.node.GetBlockHash(ctx, h)
		if err != nil {
			return synced, fmt.Errorf("network: get block hash at %d: %w", h, err)
		}
		header, err := s.node.GetBlockHeader(ctx, hash, h)
		if err != nil {
			return synced, fmt.Errorf("network: get header at %d: %w", h, err)
		}
		if err := s.validator.Connect(s.headers, header); err != nil {
			return synced, fmt.Errorf("network: header at %d: %w", h, err)
		}
		synced++
	}

	if synced > 0 {
		s.logger.Info().Int64("tip", best).Int("synced", synced).Msg("headers synced")
	}
	return synced, nil
}
