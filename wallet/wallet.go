package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/amount"
	"github.com/bitfsorg/spvcore-go/broadcast"
	"github.com/bitfsorg/spvcore-go/script"
	"github.com/bitfsorg/spvcore-go/signer"
	"github.com/bitfsorg/spvcore-go/store"
	"github.com/bitfsorg/spvcore-go/tx"
)

// Submitter hands a signed transaction to the broadcast pipeline.
type Submitter interface {
	Submit(ctx context.Context, t *tx.Transaction, prevOuts []tx.UTXO) (*broadcast.Result, error)
}

// Options configures a Wallet. Store and Keys are required.
type Options struct {
	Network *address.NetworkConfig
	Store   store.Store
	Guard   *store.Guard
	Keys    *KeyStore

	// Signer defaults to a btcd script signer over Keys.
	Signer tx.Signer
	// Pipeline may be nil for a wallet that never sends.
	Pipeline Submitter

	Logger *zerolog.Logger

	// DefaultFeeRate in sat/byte applies when a call passes a non-positive rate.
	DefaultFeeRate amount.Amount
}

// Wallet is the SPV wallet service.
type Wallet struct {
	net      *address.NetworkConfig
	store    store.Store
	guard    *store.Guard
	keys     *KeyStore
	signer   tx.Signer
	pipeline Submitter
	feeRate  amount.Amount
	logger   zerolog.Logger
}

// New creates a Wallet.
func New(opts Options) (*Wallet, error) {
	if opts.Store == nil || opts.Keys == nil {
		return nil, fmt.Errorf("%w: store and key store are required", ErrNilParam)
	}
	if opts.DefaultFeeRate < 0 {
		return nil, fmt.Errorf("%w: default fee rate %d", ErrInvalidParams, int64(opts.DefaultFeeRate))
	}

	w := &Wallet{
		net:      opts.Network,
		store:    opts.Store,
		guard:    opts.Guard,
		keys:     opts.Keys,
		signer:   opts.Signer,
		pipeline: opts.Pipeline,
		feeRate:  opts.DefaultFeeRate,
		logger:   zerolog.Nop(),
	}
	if w.net == nil {
		w.net = &address.MainNet
	}
	if w.net.Name != opts.Keys.net.Name {
		return nil, fmt.Errorf("%w: key store is for %s, wallet for %s", ErrInvalidParams, opts.Keys.net.Name, w.net.Name)
	}
	if opts.Logger != nil {
		w.logger = opts.Logger.With().Str("component", "wallet").Str("network", w.net.Name).Logger()
	}
	if w.guard == nil {
		w.guard = store.NewGuard()
	}
	if w.signer == nil {
		w.signer = signer.New(opts.Keys, w.net, &w.logger)
	}
	if w.feeRate == 0 {
		w.feeRate = tx.DefaultFeeRate
	}
	return w, nil
}

// Network returns the wallet's network.
func (w *Wallet) Network() *address.NetworkConfig { return w.net }

// Keys returns the wallet's key store.
func (w *Wallet) Keys() *KeyStore { return w.keys }

// GetNewAddress creates a receive address of the requested kind and starts
// watching it. On a network without a bech32 prefix a native SegWit request
// falls back to P2SH-P2WPKH and logs the substitution.
func (w *Wallet) GetNewAddress(ctx context.Context, kind address.Kind) (string, error) {
	kind = w.resolveKind(kind)
	return w.newAddress(ctx, kind, false)
}

func (w *Wallet) resolveKind(kind address.Kind) address.Kind {
	if kind == address.KindSegWit && !w.net.SupportsSegWit() {
		w.logger.Warn().
			Str("requested", kind.String()).
			Str("using", address.KindNestedSegWit.String()).
			Msg("network has no bech32 prefix, falling back to nested segwit")
		return address.KindNestedSegWit
	}
	return kind
}

func (w *Wallet) newAddress(ctx context.Context, kind address.Kind, change bool) (string, error) {
	info, err := w.keys.NewKey(ctx, kind, change)
	if err != nil {
		return "", err
	}
	if err := w.store.AddWatchAddress(ctx, info.Address); err != nil {
		return "", fmt.Errorf("wallet: watch %s: %w", info.Address, err)
	}
	w.logger.Debug().Str("address", info.Address).Str("kind", kind.String()).Bool("change", change).
		Str("path", info.Path).Msg("new address")
	return info.Address, nil
}

// ImportPrivateKey adds a WIF key and watches its address of the given kind.
func (w *Wallet) ImportPrivateKey(ctx context.Context, wif string, kind address.Kind) (string, error) {
	info, err := w.keys.ImportWIF(wif, w.resolveKind(kind))
	if err != nil {
		return "", err
	}
	if err := w.store.AddWatchAddress(ctx, info.Address); err != nil {
		return "", fmt.Errorf("wallet: watch %s: %w", info.Address, err)
	}
	w.logger.Info().Str("address", info.Address).Msg("private key imported")
	return info.Address, nil
}

// Filter narrows ListUnspent. Zero values disable a bound.
type Filter struct {
	Addresses          []string
	MinAmount          amount.Amount
	MaxAmount          amount.Amount
	MinHeight          uint32
	IncludeUnconfirmed bool
}

func (f *Filter) match(u *tx.UTXO, addrs map[string]struct{}) bool {
	if len(addrs) > 0 {
		if _, ok := addrs[u.Address]; !ok {
			return false
		}
	}
	if u.Amount < f.MinAmount || (f.MaxAmount > 0 && u.Amount > f.MaxAmount) {
		return false
	}
	if u.BlockHeight == nil {
		return f.IncludeUnconfirmed
	}
	return *u.BlockHeight >= f.MinHeight
}

// ListUnspent returns unspent outputs matching f, largest first.
func (w *Wallet) ListUnspent(ctx context.Context, f Filter) ([]tx.UTXO, error) {
	if f.MaxAmount > 0 && f.MinAmount > f.MaxAmount {
		return nil, fmt.Errorf("%w: min amount above max amount", ErrInvalidParams)
	}
	addrs := make(map[string]struct{}, len(f.Addresses))
	for _, a := range f.Addresses {
		if err := address.Validate(a, w.net); err != nil {
			return nil, err
		}
		addrs[a] = struct{}{}
	}

	all, err := w.store.GetUnspent(ctx, "")
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for i := range all {
		if f.match(&all[i], addrs) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out, nil
}

// Balance returns the sum of unspent outputs, split by confirmation.
func (w *Wallet) Balance(ctx context.Context) (confirmed, unconfirmed amount.Amount, err error) {
	utxos, err := w.store.GetUnspent(ctx, "")
	if err != nil {
		return 0, 0, err
	}
	for _, u := range utxos {
		if u.Confirmed() {
			confirmed, err = amount.Add(confirmed, u.Amount)
		} else {
			unconfirmed, err = amount.Add(unconfirmed, u.Amount)
		}
		if err != nil {
			return 0, 0, err
		}
	}
	return confirmed, unconfirmed, nil
}

// CreateRawTransaction returns the hex of an unsigned transaction built from
// explicit inputs and outputs.
func (w *Wallet) CreateRawTransaction(inputs []tx.RawInput, outputs []tx.RawOutput, lockTime uint32, replaceable bool) (string, error) {
	t, err := tx.CreateRawTransaction(inputs, outputs, lockTime, replaceable, w.net)
	if err != nil {
		return "", err
	}
	return t.Hex(), nil
}

// EstimateFee returns the heuristic fee for a transaction of the given
// shape. A non-positive rate uses the wallet default.
func (w *Wallet) EstimateFee(numInputs, numOutputs int, feeRate amount.Amount) (amount.Amount, error) {
	if numInputs < 0 || numOutputs < 0 {
		return 0, fmt.Errorf("%w: negative input or output count", ErrInvalidParams)
	}
	fee, err := tx.EstimateFee(numInputs, numOutputs, w.rate(feeRate))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return fee, nil
}

func (w *Wallet) rate(feeRate amount.Amount) amount.Amount {
	if feeRate <= 0 {
		return w.feeRate
	}
	return feeRate
}

// ObserveTransaction records every output of t that pays a watched address
// as a new UTXO. height is nil for an unconfirmed transaction. Outputs
// already known are skipped. It returns the number of outputs added.
func (w *Wallet) ObserveTransaction(ctx context.Context, t *tx.Transaction, height *uint32) (int, error) {
	if t == nil {
		return 0, fmt.Errorf("%w: transaction", ErrNilParam)
	}
	watched, err := w.store.WatchAddresses(ctx)
	if err != nil {
		return 0, err
	}
	mine := make(map[string]struct{}, len(watched))
	for _, a := range watched {
		mine[a] = struct{}{}
	}

	txid := t.TxID()
	added := 0
	for i, out := range t.Outputs {
		addr, err := script.ExtractAddress(out.ScriptPubKey, w.net)
		if err != nil {
			continue
		}
		if _, ok := mine[addr]; !ok {
			continue
		}
		u := tx.UTXO{
			TxID:         txid,
			Vout:         uint32(i),
			Address:      addr,
			Amount:       out.Value,
			ScriptPubKey: out.ScriptPubKey,
			BlockHeight:  height,
		}
		if err := w.store.AddUTXO(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicateUTXO) {
				continue
			}
			return added, err
		}
		added++
	}
	if added > 0 {
		if err := w.store.StoreTransaction(ctx, t); err != nil {
			return added, err
		}
		w.logger.Info().Str("txid", txid.String()).Int("outputs", added).Msg("observed transaction")
	}
	return added, nil
}

// ImportUnspent adds node-reported outputs paying watched addresses to the
// store, skipping foreign and already known ones. It returns the number added.
func (w *Wallet) ImportUnspent(ctx context.Context, utxos []tx.UTXO) (int, error) {
	watched, err := w.store.WatchAddresses(ctx)
	if err != nil {
		return 0, err
	}
	mine := make(map[string]struct{}, len(watched))
	for _, a := range watched {
		mine[a] = struct{}{}
	}

	added := 0
	for _, u := range utxos {
		if _, ok := mine[u.Address]; !ok || u.Spent {
			continue
		}
		if err := w.store.AddUTXO(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicateUTXO) {
				continue
			}
			return added, err
		}
		added++
	}
	if added > 0 {
		w.logger.Info().Int("utxos", added).Msg("imported unspent outputs")
	}
	return added, nil
}
