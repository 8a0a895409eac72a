package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/amount"
	"github.com/bitfsorg/spvcore-go/config"
	"github.com/bitfsorg/spvcore-go/consensus"
	"github.com/bitfsorg/spvcore-go/curve"
	"github.com/bitfsorg/spvcore-go/network"
	"github.com/bitfsorg/spvcore-go/script"
	"github.com/bitfsorg/spvcore-go/store"
	"github.com/bitfsorg/spvcore-go/tx"
	"github.com/bitfsorg/spvcore-go/wallet"
)

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func needArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d (usage: %s %s)",
			c.Command.Name, n, c.NArg(), c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func kindFlag(name, value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  name,
		Usage: "address type: legacy, p2sh-segwit or bech32",
		Value: value,
	}
}

var initCmd = &cli.Command{
	Name:  "init",
	Usage: "create a wallet from a new or existing BIP39 mnemonic",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "mnemonic", Usage: "restore from this mnemonic instead of generating one"},
		&cli.StringFlag{Name: "passphrase", Usage: "optional BIP39 passphrase"},
		&cli.IntFlag{Name: "words", Usage: "mnemonic length when generating: 12 or 24", Value: 12},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		password := c.String("password")
		if password == "" {
			return errNoPassword
		}

		seedPath := filepath.Join(walletDir(cfg), seedFile)
		if _, err := os.Stat(seedPath); err == nil {
			return fmt.Errorf("spvcore: %s wallet already exists in %s", cfg.Network, cfg.DataDir)
		}

		mnemonic, generated := c.String("mnemonic"), false
		if mnemonic == "" {
			bits := wallet.Mnemonic12Words
			if c.Int("words") == 24 {
				bits = wallet.Mnemonic24Words
			} else if c.Int("words") != 12 {
				return errors.New("init: --words must be 12 or 24")
			}
			if mnemonic, err = wallet.GenerateMnemonic(bits); err != nil {
				return err
			}
			generated = true
		}

		seed, err := wallet.SeedFromMnemonic(mnemonic, c.String("passphrase"))
		if err != nil {
			return err
		}
		sealed, err := wallet.Seal(seed, password)
		clear(seed)
		if err != nil {
			return err
		}
		if err := writeAtomic(seedPath, sealed); err != nil {
			return err
		}

		cfgPath := config.ConfigPath(cfg.DataDir)
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			if err := config.SaveConfig(cfgPath, cfg); err != nil {
				return err
			}
		}

		out := map[string]string{"network": cfg.Network, "datadir": walletDir(cfg)}
		if generated {
			out["mnemonic"] = mnemonic
		}
		return printJSON(c, out)
	},
}

var getNewAddressCmd = &cli.Command{
	Name:  "getnewaddress",
	Usage: "derive a new receiving address",
	Flags: []cli.Flag{kindFlag("type", "bech32")},
	Action: func(c *cli.Context) error {
		kind, err := address.ParseKind(c.String("type"))
		if err != nil {
			return err
		}
		return withEnv(c, false, true, func(e *env) error {
			addr, err := e.wallet.GetNewAddress(c.Context, kind)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, addr)
			return err
		})
	},
}

var importPrivKeyCmd = &cli.Command{
	Name:      "importprivkey",
	Usage:     "import a WIF private key",
	ArgsUsage: "<wif>",
	Flags:     []cli.Flag{kindFlag("type", "bech32")},
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 1); err != nil {
			return err
		}
		kind, err := address.ParseKind(c.String("type"))
		if err != nil {
			return err
		}
		return withEnv(c, false, true, func(e *env) error {
			addr, err := e.wallet.ImportPrivateKey(c.Context, c.Args().First(), kind)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, addr)
			return err
		})
	},
}

type utxoView struct {
	TxID      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Satoshis  int64  `json:"satoshis"`
	Height    uint32 `json:"height,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

func parseOptionalBTC(s string) (amount.Amount, error) {
	if s == "" {
		return 0, nil
	}
	return amount.ParseBTC(s)
}

var listUnspentCmd = &cli.Command{
	Name:  "listunspent",
	Usage: "list unspent wallet outputs, largest first",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "address", Usage: "only outputs paying this address (repeatable)"},
		&cli.StringFlag{Name: "minamount", Usage: "minimum amount in BTC"},
		&cli.StringFlag{Name: "maxamount", Usage: "maximum amount in BTC"},
		&cli.UintFlag{Name: "minheight", Usage: "minimum confirmation height"},
		&cli.BoolFlag{Name: "unconfirmed", Usage: "include unconfirmed outputs"},
	},
	Action: func(c *cli.Context) error {
		minAmt, err := parseOptionalBTC(c.String("minamount"))
		if err != nil {
			return err
		}
		maxAmt, err := parseOptionalBTC(c.String("maxamount"))
		if err != nil {
			return err
		}
		filter := wallet.Filter{
			Addresses:          c.StringSlice("address"),
			MinAmount:          minAmt,
			MaxAmount:          maxAmt,
			MinHeight:          uint32(c.Uint("minheight")),
			IncludeUnconfirmed: c.Bool("unconfirmed"),
		}
		return withEnv(c, false, false, func(e *env) error {
			utxos, err := e.wallet.ListUnspent(c.Context, filter)
			if err != nil {
				return err
			}
			views := make([]utxoView, 0, len(utxos))
			for _, u := range utxos {
				v := utxoView{
					TxID:     u.TxID.String(),
					Vout:     u.Vout,
					Address:  u.Address,
					Amount:   amount.FormatBTC(u.Amount),
					Satoshis: int64(u.Amount),
				}
				if u.BlockHeight != nil {
					v.Height, v.Confirmed = *u.BlockHeight, true
				}
				views = append(views, v)
			}
			return printJSON(c, views)
		})
	},
}

var getBalanceCmd = &cli.Command{
	Name:  "getbalance",
	Usage: "show confirmed and unconfirmed balance",
	Action: func(c *cli.Context) error {
		return withEnv(c, false, false, func(e *env) error {
			confirmed, unconfirmed, err := e.wallet.Balance(c.Context)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]string{
				"confirmed":   amount.FormatBTC(confirmed),
				"unconfirmed": amount.FormatBTC(unconfirmed),
			})
		})
	},
}

// offlineWallet is a keyless in-memory wallet for commands that only build
// or price transactions.
func offlineWallet(c *cli.Context) (*wallet.Wallet, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	net, err := address.GetNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}
	return wallet.New(wallet.Options{
		Network:        net,
		Store:          store.NewMemStore(),
		Keys:           wallet.NewKeyStore(net, nil),
		DefaultFeeRate: cfg.FeeRate,
	})
}

var estimateFeeCmd = &cli.Command{
	Name:  "estimatefee",
	Usage: "estimate the fee for a transaction shape",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "inputs", Value: 1},
		&cli.IntFlag{Name: "outputs", Value: 2},
		&cli.Int64Flag{Name: "feerate", Usage: "satoshis per byte; 0 uses the configured rate"},
	},
	Action: func(c *cli.Context) error {
		w, err := offlineWallet(c)
		if err != nil {
			return err
		}
		fee, err := w.EstimateFee(c.Int("inputs"), c.Int("outputs"), amount.Amount(c.Int64("feerate")))
		if err != nil {
			return err
		}
		return printJSON(c, map[string]int64{"fee": int64(fee)})
	},
}

type rawInputArg struct {
	TxID     string  `json:"txid"`
	Vout     uint32  `json:"vout"`
	Sequence *uint32 `json:"sequence,omitempty"`
}

// rawOutputArg is an address output with a BTC amount, or a hex data output.
type rawOutputArg struct {
	Address string `json:"address,omitempty"`
	Amount  string `json:"amount,omitempty"`
	Data    string `json:"data,omitempty"`
}

func parseRawOutputs(s string) ([]tx.RawOutput, error) {
	var args []rawOutputArg
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return nil, fmt.Errorf("createrawtransaction: outputs: %w", err)
	}
	outs := make([]tx.RawOutput, 0, len(args))
	for i, a := range args {
		if a.Data != "" {
			data, err := hex.DecodeString(a.Data)
			if err != nil {
				return nil, fmt.Errorf("createrawtransaction: output %d data: %w", i, err)
			}
			outs = append(outs, tx.RawOutput{Data: data})
			continue
		}
		amt, err := amount.ParseBTC(a.Amount)
		if err != nil {
			return nil, fmt.Errorf("createrawtransaction: output %d: %w", i, err)
		}
		outs = append(outs, tx.RawOutput{Address: a.Address, Amount: amt})
	}
	return outs, nil
}

var createRawTransactionCmd = &cli.Command{
	Name:      "createrawtransaction",
	Usage:     "create an unsigned transaction",
	ArgsUsage: `'[{"txid":"..","vout":0}]' '[{"address":"..","amount":"0.01"},{"data":"cafe"}]'`,
	Flags: []cli.Flag{
		&cli.UintFlag{Name: "locktime"},
		&cli.BoolFlag{Name: "replaceable", Usage: "mark inputs replaceable (sequence 0xfffffffe)"},
	},
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 2); err != nil {
			return err
		}
		var inArgs []rawInputArg
		if err := json.Unmarshal([]byte(c.Args().Get(0)), &inArgs); err != nil {
			return fmt.Errorf("createrawtransaction: inputs: %w", err)
		}
		inputs := make([]tx.RawInput, len(inArgs))
		for i, a := range inArgs {
			inputs[i] = tx.RawInput{TxID: a.TxID, Vout: a.Vout, Sequence: a.Sequence}
		}
		outputs, err := parseRawOutputs(c.Args().Get(1))
		if err != nil {
			return err
		}

		w, err := offlineWallet(c)
		if err != nil {
			return err
		}
		raw, err := w.CreateRawTransaction(inputs, outputs, uint32(c.Uint("locktime")), c.Bool("replaceable"))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, raw)
		return err
	},
}

var sendToAddressCmd = &cli.Command{
	Name:      "sendtoaddress",
	Usage:     "sign and broadcast a payment",
	ArgsUsage: "<address> <amount in BTC>",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "feerate", Usage: "satoshis per byte; 0 uses the configured rate"},
		&cli.BoolFlag{Name: "replaceable", Usage: "mark inputs replaceable (sequence 0xfffffffe)"},
		&cli.BoolFlag{Name: "subtractfee", Usage: "deduct the fee from the amount sent"},
		&cli.BoolFlag{Name: "dry-run", Usage: "print the signed transaction instead of sending it"},
	},
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 2); err != nil {
			return err
		}
		to := c.Args().Get(0)
		amt, err := amount.ParseBTC(c.Args().Get(1))
		if err != nil {
			return err
		}
		rate := amount.Amount(c.Int64("feerate"))

		if c.Bool("dry-run") {
			return withEnv(c, false, true, func(e *env) error {
				raw, err := e.wallet.BuildTransaction(c.Context, to, amt, rate)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.App.Writer, raw)
				return err
			})
		}

		opts := wallet.SendOptions{Replaceable: c.Bool("replaceable"), SubtractFee: c.Bool("subtractfee")}
		return withEnv(c, true, true, func(e *env) error {
			txid, err := e.wallet.SendToAddress(c.Context, to, amt, rate, opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, txid)
			return err
		})
	},
}

var rescanCmd = &cli.Command{
	Name:  "rescan",
	Usage: "import unspent outputs of wallet addresses from the node",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "node-rescan", Usage: "ask the node to rescan the chain when importing addresses"},
	},
	Action: func(c *cli.Context) error {
		return withEnv(c, true, false, func(e *env) error {
			watched, err := e.db.WatchAddresses(c.Context)
			if err != nil {
				return err
			}
			if len(watched) == 0 {
				return printJSON(c, map[string]int{"imported": 0})
			}
			for _, a := range watched {
				if err := e.node.ImportAddress(c.Context, a, c.Bool("node-rescan")); err != nil {
					return fmt.Errorf("rescan: import %s: %w", a, err)
				}
			}
			utxos, err := e.node.ListUnspent(c.Context, watched...)
			if err != nil {
				return err
			}
			n, err := e.wallet.ImportUnspent(c.Context, utxos)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]int{"imported": n})
		})
	},
}

var syncHeadersCmd = &cli.Command{
	Name:  "syncheaders",
	Usage: "download and validate block headers from the node",
	Action: func(c *cli.Context) error {
		return withEnv(c, true, false, func(e *env) error {
			headers := e.db.Headers()
			validator := consensus.NewValidator(consensus.ParamsForNetwork(e.net))
			n, err := network.NewHeaderSyncer(e.node, validator, headers, &e.logger).Sync(c.Context)
			if err != nil {
				return err
			}
			out := map[string]int64{"synced": int64(n)}
			if tip, err := headers.GetTip(); err == nil {
				out["height"] = tip.Height
			}
			return printJSON(c, out)
		})
	},
}

type addressView struct {
	Address        string `json:"address"`
	Type           string `json:"type"`
	Network        string `json:"network"`
	Hash           string `json:"hash"`
	IsWitness      bool   `json:"is_witness"`
	WitnessVersion *byte  `json:"witness_version,omitempty"`
	ScriptPubKey   string `json:"script_pubkey"`
}

var decodeAddressCmd = &cli.Command{
	Name:      "decodeaddress",
	Usage:     "decode and validate an address for the configured network",
	ArgsUsage: "<address>",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 1); err != nil {
			return err
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		net, err := address.GetNetwork(cfg.Network)
		if err != nil {
			return err
		}
		a, err := address.Decode(c.Args().First(), net)
		if err != nil {
			return err
		}
		pk, err := script.ForDecodedAddress(a)
		if err != nil {
			return err
		}
		v := addressView{
			Address:      a.String(),
			Type:         a.Type.String(),
			Network:      net.Name,
			Hash:         hex.EncodeToString(a.Hash),
			IsWitness:    a.IsWitness(),
			ScriptPubKey: hex.EncodeToString(pk),
		}
		if a.IsWitness() {
			ver := a.WitnessVersion
			v.WitnessVersion = &ver
		}
		return printJSON(c, v)
	},
}

var pubKeyCmd = &cli.Command{
	Name:      "pubkey",
	Usage:     "derive public keys and addresses from a hex private key",
	ArgsUsage: "<private key hex>",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 1); err != nil {
			return err
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		net, err := address.GetNetwork(cfg.Network)
		if err != nil {
			return err
		}
		priv, err := hex.DecodeString(c.Args().First())
		if err != nil {
			return fmt.Errorf("pubkey: %w", curve.ErrInvalidPrivateKey)
		}
		defer clear(priv)

		compressed, err := curve.CreatePublicKey(priv)
		if err != nil {
			return err
		}
		uncompressed, err := curve.CreatePublicKeyUncompressed(priv)
		if err != nil {
			return err
		}

		out := map[string]string{
			"compressed":   hex.EncodeToString(compressed),
			"uncompressed": hex.EncodeToString(uncompressed),
		}
		for _, kind := range []address.Kind{address.KindLegacy, address.KindNestedSegWit, address.KindSegWit} {
			addr, err := address.FromPubKey(kind, compressed, net)
			if err != nil {
				if errors.Is(err, address.ErrUnsupportedType) {
					continue
				}
				return err
			}
			out[kind.String()] = addr
		}
		return printJSON(c, out)
	},
}
