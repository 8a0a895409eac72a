package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"go.etcd.io/bbolt"

	"github.com/bitfsorg/spvcore-go/consensus"
	"github.com/bitfsorg/spvcore-go/tx"
)

var (
	bucketUTXOs         = []byte("utxos")
	bucketTxs           = []byte("txs")
	bucketWatch         = []byte("watch")
	bucketHeaders       = []byte("headers")
	bucketHeadersHeight = []byte("headers_height")
)

// BoltStore is a Store backed by a bbolt database. It also carries the
// header chain through Headers.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(btx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUTXOs, bucketTxs, bucketWatch, bucketHeaders, bucketHeadersHeight} {
			if _, err := btx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Headers returns a consensus.HeaderStore backed by this database.
func (s *BoltStore) Headers() *BoltHeaderStore { return &BoltHeaderStore{db: s.db} }

// outPointKey is txid(32) | vout(4, big-endian) so a cursor walks outputs of a
// transaction in order.
func outPointKey(op tx.OutPoint) []byte {
	k := make([]byte, chainhash.HashSize+4)
	copy(k, op.TxID[:])
	binary.BigEndian.PutUint32(k[chainhash.HashSize:], op.Vout)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (s *BoltStore) view(ctx context.Context, fn func(*bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func (s *BoltStore) update(ctx context.Context, fn func(*bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

// GetUnspent returns unspent UTXOs, optionally filtered by address.
func (s *BoltStore) GetUnspent(ctx context.Context, addr string) ([]tx.UTXO, error) {
	var out []tx.UTXO
	err := s.view(ctx, func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketUTXOs).ForEach(func(_, v []byte) error {
			var u tx.UTXO
			if err := decodeGob(v, &u); err != nil {
				return fmt.Errorf("boltstore: decode utxo: %w", err)
			}
			if u.Spent || (addr != "" && u.Address != addr) {
				return nil
			}
			out = append(out, u)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortUTXOs(out)
	return out, nil
}

// GetUTXO returns the UTXO at op.
func (s *BoltStore) GetUTXO(ctx context.Context, op tx.OutPoint) (*tx.UTXO, error) {
	var u tx.UTXO
	err := s.view(ctx, func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketUTXOs).Get(outPointKey(op))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrUTXONotFound, op)
		}
		if err := decodeGob(data, &u); err != nil {
			return fmt.Errorf("boltstore: decode utxo: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AddUTXO records a new unspent output.
func (s *BoltStore) AddUTXO(ctx context.Context, u tx.UTXO) error {
	if err := checkNewUTXO(u); err != nil {
		return err
	}
	return s.update(ctx, func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketUTXOs)
		key := outPointKey(u.OutPoint())
		if b.Get(key) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateUTXO, u.OutPoint())
		}
		data, err := encodeGob(u)
		if err != nil {
			return fmt.Errorf("encode utxo: %w", err)
		}
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("boltstore: put utxo: %w", err)
		}
		return nil
	})
}

// MarkSpent flips every outpoint to spent inside one bbolt transaction.
func (s *BoltStore) MarkSpent(ctx context.Context, ops ...tx.OutPoint) error {
	return s.update(ctx, func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketUTXOs)
		seen := make(map[tx.OutPoint]struct{}, len(ops))
		for _, op := range ops {
			key := outPointKey(op)
			data := b.Get(key)
			if data == nil {
				return fmt.Errorf("%w: %s", ErrUTXONotFound, op)
			}
			var u tx.UTXO
			if err := decodeGob(data, &u); err != nil {
				return fmt.Errorf("boltstore: decode utxo: %w", err)
			}
			if _, dup := seen[op]; dup || u.Spent {
				return fmt.Errorf("%w: %s", ErrAlreadySpent, op)
			}
			seen[op] = struct{}{}

			u.Spent = true
			enc, err := encodeGob(u)
			if err != nil {
				return fmt.Errorf("encode utxo: %w", err)
			}
			// Returning an error later rolls this back.
			if err := b.Put(key, enc); err != nil {
				return fmt.Errorf("boltstore: mark spent: %w", err)
			}
		}
		return nil
	})
}

// StoreTransaction records t in wire format keyed by txid.
func (s *BoltStore) StoreTransaction(ctx context.Context, t *tx.Transaction) error {
	if t == nil {
		return fmt.Errorf("%w: transaction", ErrNilParam)
	}
	txid := t.TxID()
	raw := t.Serialize()
	return s.update(ctx, func(btx *bbolt.Tx) error {
		if err := btx.Bucket(bucketTxs).Put(txid[:], raw); err != nil {
			return fmt.Errorf("boltstore: put tx: %w", err)
		}
		return nil
	})
}

// GetTransaction returns a stored transaction.
func (s *BoltStore) GetTransaction(ctx context.Context, txid chainhash.Hash) (*tx.Transaction, error) {
	var raw []byte
	err := s.view(ctx, func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketTxs).Get(txid[:])
		if data == nil {
			return fmt.Errorf("%w: %s", ErrTxNotFound, txid)
		}
		raw = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	t, err := tx.Deserialize(raw)
	if err != nil {
		return nil, fmt.Errorf("boltstore: decode tx %s: %w", txid, err)
	}
	return t, nil
}

// AddWatchAddress registers addr. Adding an address twice is a no-op.
func (s *BoltStore) AddWatchAddress(ctx context.Context, addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidParams)
	}
	return s.update(ctx, func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketWatch).Put([]byte(addr), []byte{})
	})
}

// WatchAddresses returns every watched address; bbolt keeps keys sorted.
func (s *BoltStore) WatchAddresses(ctx context.Context) ([]string, error) {
	var out []string
	err := s.view(ctx, func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketWatch).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// BoltHeaderStore implements consensus.HeaderStore.
// ---------------------------------------------------------------------------

// BoltHeaderStore persists block headers in bbolt.
type BoltHeaderStore struct {
	db *bbolt.DB
}

var _ consensus.HeaderStore = (*BoltHeaderStore)(nil)

// heightKey encodes a block height as a big-endian key for sorted storage.
func heightKey(h int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(h))
	return k
}

// PutHeader stores a block header keyed by block hash and height.
func (s *BoltHeaderStore) PutHeader(header *consensus.BlockHeader) error {
	h, err := consensus.PrepareHeader(header)
	if err != nil {
		return err
	}

	return s.db.Update(func(btx *bbolt.Tx) error {
		hb := btx.Bucket(bucketHeaders)
		key := []byte(h.Hash)
		if hb.Get(key) != nil {
			return consensus.ErrDuplicateHeader
		}

		data, err := encodeGob(h)
		if err != nil {
			return fmt.Errorf("encode header: %w", err)
		}
		if err := hb.Put(key, data); err != nil {
			return fmt.Errorf("boltstore: put header by hash: %w", err)
		}
		if err := btx.Bucket(bucketHeadersHeight).Put(heightKey(h.Height), key); err != nil {
			return fmt.Errorf("boltstore: put header by height: %w", err)
		}
		return nil
	})
}

func (s *BoltHeaderStore) getByKey(btx *bbolt.Tx, key []byte, header *consensus.BlockHeader) error {
	data := btx.Bucket(bucketHeaders).Get(key)
	if data == nil {
		return consensus.ErrHeaderNotFound
	}
	if err := decodeGob(data, header); err != nil {
		return fmt.Errorf("boltstore: decode header: %w", err)
	}
	return nil
}

// GetHeader retrieves a header by block hash.
func (s *BoltHeaderStore) GetHeader(hash string) (*consensus.BlockHeader, error) {
	probe, err := consensus.PrepareHeader(&consensus.BlockHeader{Hash: hash})
	if err != nil {
		return nil, err
	}

	var header consensus.BlockHeader
	err = s.db.View(func(btx *bbolt.Tx) error {
		return s.getByKey(btx, []byte(probe.Hash), &header)
	})
	if err != nil {
		return nil, err
	}
	return &header, nil
}

// GetHeaderByHeight retrieves a header by block height.
func (s *BoltHeaderStore) GetHeaderByHeight(height int64) (*consensus.BlockHeader, error) {
	var header consensus.BlockHeader
	err := s.db.View(func(btx *bbolt.Tx) error {
		key := btx.Bucket(bucketHeadersHeight).Get(heightKey(height))
		if key == nil {
			return consensus.ErrHeaderNotFound
		}
		return s.getByKey(btx, key, &header)
	})
	if err != nil {
		return nil, err
	}
	return &header, nil
}

// GetTip returns the header with the greatest height.
func (s *BoltHeaderStore) GetTip() (*consensus.BlockHeader, error) {
	var header consensus.BlockHeader
	err := s.db.View(func(btx *bbolt.Tx) error {
		k, v := btx.Bucket(bucketHeadersHeight).Cursor().Last()
		if k == nil {
			return consensus.ErrHeaderNotFound
		}
		return s.getByKey(btx, v, &header)
	})
	if err != nil {
		return nil, err
	}
	return &header, nil
}

// GetHeaderCount returns the total number of stored headers.
func (s *BoltHeaderStore) GetHeaderCount() (uint64, error) {
	var count uint64
	err := s.db.View(func(btx *bbolt.Tx) error {
		count = uint64(btx.Bucket(bucketHeaders).Stats().KeyN)
		return nil
	})
	return count, err
}
