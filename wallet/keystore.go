package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/curve"
	"github.com/bitfsorg/spvcore-go/signer"
)

// KeyInfo describes a key held by a KeyStore. It carries no secret.
type KeyInfo struct {
	Address    string       `json:"address"`
	Kind       address.Kind `json:"kind"`
	PublicKey  []byte       `json:"public_key"`
	Path       string       `json:"path,omitempty"` // empty for random and imported keys
	Compressed bool         `json:"compressed"`
}

type keyRecord struct {
	KeyInfo
	Key []byte `json:"key"`
}

type chainKey struct {
	kind  address.Kind
	chain uint32
}

// KeyStore maps wallet addresses to private keys. With an HDKeySource new
// keys are derived in index order per kind and chain; without one they are
// drawn at random.
type KeyStore struct {
	mu   sync.RWMutex
	net  *address.NetworkConfig
	hd   *HDKeySource
	keys map[string]keyRecord
	next map[chainKey]uint32
}

var _ signer.KeyFinder = (*KeyStore)(nil)

// NewKeyStore returns an empty key store. hd may be nil.
func NewKeyStore(net *address.NetworkConfig, hd *HDKeySource) *KeyStore {
	if net == nil {
		net = &address.MainNet
	}
	return &KeyStore{
		net:  net,
		hd:   hd,
		keys: make(map[string]keyRecord),
		next: make(map[chainKey]uint32),
	}
}

// NewKey creates a key of the given kind on the receive or change chain.
func (k *KeyStore) NewKey(ctx context.Context, kind address.Kind, change bool) (KeyInfo, error) {
	if err := ctx.Err(); err != nil {
		return KeyInfo{}, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	var (
		priv []byte
		path string
		err  error
	)
	ck := chainKey{kind: kind, chain: ExternalChain}
	if change {
		ck.chain = InternalChain
	}
	if k.hd != nil {
		priv, path, err = k.hd.Derive(kind, ck.chain, k.next[ck])
	} else {
		priv, err = curve.GeneratePrivateKey()
	}
	if err != nil {
		return KeyInfo{}, err
	}

	rec, err := k.record(priv, kind, true, path)
	if err != nil {
		clear(priv)
		return KeyInfo{}, err
	}
	if k.hd != nil {
		k.next[ck]++
	}
	k.keys[rec.Address] = rec
	return rec.KeyInfo, nil
}

// ImportWIF adds a WIF-encoded private key and returns the address of the
// requested kind. Witness kinds require a compressed key.
func (k *KeyStore) ImportWIF(wif string, kind address.Kind) (KeyInfo, error) {
	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("%w: %w", ErrInvalidWIF, err)
	}
	if !decoded.IsForNet(wifParams(k.net)) {
		return KeyInfo{}, fmt.Errorf("%w: not for %s", ErrInvalidWIF, k.net.Name)
	}
	if !decoded.CompressPubKey && kind != address.KindLegacy {
		return KeyInfo{}, fmt.Errorf("%w: uncompressed key cannot back a %s address", ErrInvalidWIF, kind)
	}

	priv := decoded.PrivKey.Serialize()
	decoded.PrivKey.Zero()
	rec, err := k.record(priv, kind, decoded.CompressPubKey, "")
	if err != nil {
		clear(priv)
		return KeyInfo{}, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[rec.Address] = rec
	return rec.KeyInfo, nil
}

// record builds the entry for priv. The record takes ownership of priv.
func (k *KeyStore) record(priv []byte, kind address.Kind, compressed bool, path string) (keyRecord, error) {
	var (
		pub []byte
		err error
	)
	if compressed {
		pub, err = curve.CreatePublicKey(priv)
	} else {
		pub, err = curve.CreatePublicKeyUncompressed(priv)
	}
	if err != nil {
		return keyRecord{}, err
	}
	addr, err := address.FromPubKey(kind, pub, k.net)
	if err != nil {
		return keyRecord{}, err
	}
	return keyRecord{
		KeyInfo: KeyInfo{Address: addr, Kind: kind, PublicKey: pub, Path: path, Compressed: compressed},
		Key:     priv,
	}, nil
}

// PrivateKeyFor returns a copy of the key controlling addr.
func (k *KeyStore) PrivateKeyFor(ctx context.Context, addr string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	rec, ok := k.keys[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	return append([]byte(nil), rec.Key...), nil
}

// Lookup returns the public details of addr.
func (k *KeyStore) Lookup(addr string) (KeyInfo, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	rec, ok := k.keys[addr]
	return rec.KeyInfo, ok
}

// Keys returns every key's public details sorted by address.
func (k *KeyStore) Keys() []KeyInfo {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]KeyInfo, 0, len(k.keys))
	for _, rec := range k.keys {
		out = append(out, rec.KeyInfo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Len returns the number of keys held.
func (k *KeyStore) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

type exportedCounter struct {
	Kind  address.Kind `json:"kind"`
	Chain uint32       `json:"chain"`
	Next  uint32       `json:"next"`
}

type exportedStore struct {
	Network  string            `json:"network"`
	Keys     []keyRecord       `json:"keys"`
	Counters []exportedCounter `json:"counters,omitempty"`
}

// Export seals every key and the HD counters under password.
func (k *KeyStore) Export(password string) ([]byte, error) {
	k.mu.RLock()
	doc := exportedStore{Network: k.net.Name, Keys: make([]keyRecord, 0, len(k.keys))}
	for _, rec := range k.keys {
		doc.Keys = append(doc.Keys, rec)
	}
	for ck, n := range k.next {
		doc.Counters = append(doc.Counters, exportedCounter{Kind: ck.kind, Chain: ck.chain, Next: n})
	}
	k.mu.RUnlock()

	sort.Slice(doc.Keys, func(i, j int) bool { return doc.Keys[i].Address < doc.Keys[j].Address })
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("wallet: encode key store: %w", err)
	}
	defer clear(raw)
	return Seal(raw, password)
}

// ImportKeyStore opens a sealed export. hd may be nil; when given, derivation
// resumes from the exported counters.
func ImportKeyStore(sealed []byte, password string, net *address.NetworkConfig, hd *HDKeySource) (*KeyStore, error) {
	raw, err := Open(sealed, password)
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	var doc exportedStore
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	ks := NewKeyStore(net, hd)
	if doc.Network != ks.net.Name {
		return nil, fmt.Errorf("%w: key store is for %s, not %s", ErrInvalidParams, doc.Network, ks.net.Name)
	}
	for _, rec := range doc.Keys {
		check, err := ks.record(rec.Key, rec.Kind, rec.Compressed, rec.Path)
		if err != nil {
			return nil, fmt.Errorf("wallet: key for %s: %w", rec.Address, err)
		}
		if check.Address != rec.Address {
			return nil, fmt.Errorf("%w: key does not derive %s", ErrChecksumMismatch, rec.Address)
		}
		ks.keys[rec.Address] = check
	}
	for _, c := range doc.Counters {
		ks.next[chainKey{kind: c.Kind, chain: c.Chain}] = c.Next
	}
	return ks, nil
}
