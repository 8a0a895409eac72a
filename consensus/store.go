package consensus

import (
	"fmt"
	"strings"
	"sync"
)

// HeaderStore persists validated block headers.
type HeaderStore interface {
	// PutHeader stores a block header.
	PutHeader(header *BlockHeader) error

	// GetHeader retrieves a header by block hash.
	GetHeader(hash string) (*BlockHeader, error)

	// GetHeaderByHeight retrieves a header by block height.
	GetHeaderByHeight(height int64) (*BlockHeader, error)

	// GetTip returns the header with the greatest height.
	GetTip() (*BlockHeader, error)

	// GetHeaderCount returns the total number of stored headers.
	GetHeaderCount() (uint64, error)
}

// MemHeaderStore is an in-memory HeaderStore.
type MemHeaderStore struct {
	mu        sync.RWMutex
	byHash    map[string]*BlockHeader
	byHeight  map[int64]*BlockHeader
	tipHeight int64
	hasTip    bool
}

var _ HeaderStore = (*MemHeaderStore)(nil)

// NewMemHeaderStore creates an empty in-memory header store.
func NewMemHeaderStore() *MemHeaderStore {
	return &MemHeaderStore{
		byHash:   make(map[string]*BlockHeader),
		byHeight: make(map[int64]*BlockHeader),
	}
}

// PutHeader stores a copy of header.
func (s *MemHeaderStore) PutHeader(header *BlockHeader) error {
	h, err := PrepareHeader(header)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[h.Hash]; exists {
		return ErrDuplicateHeader
	}
	s.byHash[h.Hash] = h
	s.byHeight[h.Height] = h
	if !s.hasTip || h.Height > s.tipHeight {
		s.tipHeight = h.Height
		s.hasTip = true
	}
	return nil
}

// GetHeader retrieves a header by block hash.
func (s *MemHeaderStore) GetHeader(hash string) (*BlockHeader, error) {
	if !isHashHex(hash) {
		return nil, fmt.Errorf("%w: block hash %q", ErrInvalidHeader, hash)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.byHash[strings.ToLower(hash)]
	if !ok {
		return nil, ErrHeaderNotFound
	}
	c := *h
	return &c, nil
}

// GetHeaderByHeight retrieves a header by block height.
func (s *MemHeaderStore) GetHeaderByHeight(height int64) (*BlockHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.byHeight[height]
	if !ok {
		return nil, ErrHeaderNotFound
	}
	c := *h
	return &c, nil
}

// GetTip returns the header with the greatest height.
func (s *MemHeaderStore) GetTip() (*BlockHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasTip {
		return nil, ErrHeaderNotFound
	}
	c := *s.byHeight[s.tipHeight]
	return &c, nil
}

// GetHeaderCount returns the total number of stored headers.
func (s *MemHeaderStore) GetHeaderCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.byHash)), nil
}

// PrepareHeader validates the fields a HeaderStore keys on and returns a
// normalized copy with a lower-case hash. The hash is computed when empty.
func PrepareHeader(header *BlockHeader) (*BlockHeader, error) {
	if header == nil {
		return nil, fmt.Errorf("%w: header", ErrNilParam)
	}
	h := *header
	if h.Hash == "" {
		hash, err := h.ComputeHash()
		if err != nil {
			return nil, err
		}
		h.Hash = hash
	}
	if !isHashHex(h.Hash) {
		return nil, fmt.Errorf("%w: header hash must be %d hex characters", ErrInvalidHeader, HashHexLen)
	}
	if h.Height < 0 {
		return nil, fmt.Errorf("%w: negative height %d", ErrInvalidHeader, h.Height)
	}
	h.Hash = strings.ToLower(h.Hash)
	return &h, nil
}
