package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/spvcore-go/address"
	"github.com/bitfsorg/spvcore-go/broadcast"
	"github.com/bitfsorg/spvcore-go/config"
	"github.com/bitfsorg/spvcore-go/logging"
	"github.com/bitfsorg/spvcore-go/mempool"
	"github.com/bitfsorg/spvcore-go/network"
	"github.com/bitfsorg/spvcore-go/store"
	"github.com/bitfsorg/spvcore-go/wallet"
)

// Files kept in the per-network wallet directory.
const (
	seedFile = "seed.sealed"
	keysFile = "keys.sealed"
	dbFile   = "wallet.db"
)

var errNoPassword = errors.New("spvcore: wallet password required (--password or " + EnvPassword + ")")

// loadConfig reads the config file in --datadir and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	dataDir := c.String("datadir")
	cfg, err := config.LoadConfig(config.ConfigPath(dataDir))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return cfg, err
	}
	cfg.DataDir = dataDir

	if v := c.String("network"); v != "" {
		cfg.Network = v
	}
	if v := c.String("loglevel"); v != "" {
		cfg.LogLevel = v
	}
	if v := c.String("rpc-url"); v != "" {
		cfg.RPCURL = v
	}
	if v := c.String("rpc-user"); v != "" {
		cfg.RPCUser = v
	}
	if v := c.String("rpc-password"); v != "" {
		cfg.RPCPassword = v
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// walletDir is where a network's seed, keys and database live.
func walletDir(cfg config.Config) string {
	return filepath.Join(cfg.DataDir, cfg.Network)
}

// env is the set of services one command invocation works with.
type env struct {
	cfg      config.Config
	net      *address.NetworkConfig
	logger   zerolog.Logger
	logFile  io.Closer
	password string

	db       *store.BoltStore
	keys     *wallet.KeyStore
	wallet   *wallet.Wallet
	node     *network.RPCClient
	pipeline *broadcast.Pipeline
}

// openEnv loads the config, logger, key store and database. The node client
// and broadcast pipeline are only created when withNode is set.
func openEnv(c *cli.Context, withNode bool) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, password: c.String("password")}
	if e.password == "" {
		return nil, errNoPassword
	}
	if e.net, err = address.GetNetwork(cfg.Network); err != nil {
		return nil, err
	}
	if err := e.openLogger(c); err != nil {
		return nil, err
	}

	ok := false
	defer func() {
		if !ok {
			e.close()
		}
	}()

	dir := walletDir(cfg)
	sealedSeed, err := os.ReadFile(filepath.Join(dir, seedFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("spvcore: no %s wallet in %s, run init first", cfg.Network, cfg.DataDir)
		}
		return nil, err
	}
	seed, err := wallet.Open(sealedSeed, e.password)
	if err != nil {
		return nil, err
	}
	hd, err := wallet.NewHDKeySource(seed, e.net)
	clear(seed)
	if err != nil {
		return nil, err
	}

	sealedKeys, err := os.ReadFile(filepath.Join(dir, keysFile))
	switch {
	case err == nil:
		if e.keys, err = wallet.ImportKeyStore(sealedKeys, e.password, e.net, hd); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		e.keys = wallet.NewKeyStore(e.net, hd)
	default:
		return nil, err
	}

	if e.db, err = store.OpenBoltStore(filepath.Join(dir, dbFile)); err != nil {
		return nil, err
	}

	if withNode {
		if err := e.openNode(); err != nil {
			return nil, err
		}
	}

	opts := wallet.Options{
		Network:        e.net,
		Store:          e.db,
		Keys:           e.keys,
		Logger:         &e.logger,
		DefaultFeeRate: cfg.FeeRate,
	}
	if e.pipeline != nil {
		opts.Pipeline = e.pipeline
	}
	if e.wallet, err = wallet.New(opts); err != nil {
		return nil, err
	}

	ok = true
	return e, nil
}

func (e *env) openLogger(c *cli.Context) error {
	var w io.Writer = c.App.ErrWriter
	if e.cfg.LogFile != "" {
		f, err := os.OpenFile(e.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("spvcore: open log file: %w", err)
		}
		w, e.logFile = f, f
	}
	logger, err := logging.New(logging.DefaultService, e.cfg.LogLevel, w, c.Bool("pretty"))
	if err != nil {
		return err
	}
	e.logger = logger
	return nil
}

func (e *env) openNode() error {
	rpcCfg, err := network.ResolveConfig(&network.RPCConfig{
		URL:      e.cfg.RPCURL,
		User:     e.cfg.RPCUser,
		Password: e.cfg.RPCPassword,
	}, nil, e.cfg.Network)
	if err != nil {
		return err
	}
	e.node = network.NewRPCClient(*rpcCfg)

	e.pipeline, err = broadcast.New(broadcast.Options{
		Chain:         network.NewChainView(e.node),
		Mempool:       network.NewNodeMempool(mempool.New(0), e.node),
		Peers:         []broadcast.Peer{network.NewRPCPeer(rpcCfg.URL, e.node, &e.logger)},
		MaxFeeRate:    e.cfg.MaxFeeRate,
		MaxBurnAmount: e.cfg.MaxBurnAmount,
		IOTimeout:     e.cfg.BroadcastTimeout,
		Registerer:    prometheus.NewRegistry(),
		Logger:        &e.logger,
	})
	return err
}

// save persists the key store, replacing the previous file atomically.
func (e *env) save() error {
	sealed, err := e.keys.Export(e.password)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(walletDir(e.cfg), keysFile), sealed)
}

func (e *env) close() {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("close wallet database")
		}
	}
	if e.logFile != nil {
		_ = e.logFile.Close()
	}
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// withEnv runs fn against a freshly opened env and closes it afterwards.
// When persist is set the key store is saved even if fn fails, since a
// rejected send may already have derived a change key.
func withEnv(c *cli.Context, withNode, persist bool, fn func(*env) error) error {
	e, err := openEnv(c, withNode)
	if err != nil {
		return err
	}
	defer e.close()

	err = fn(e)
	if persist {
		err = errors.Join(err, e.save())
	}
	return err
}
