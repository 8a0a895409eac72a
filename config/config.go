// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads, saves and validates the wallet's on-disk settings.
//
// The file format is one "key = value" pair per line. Lines starting with
// '#' and blank lines are ignored, as are unknown keys.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bitfsorg/spvcore-go/amount"
)

const (
	// DefaultDirName is the data directory created under the user's home.
	DefaultDirName = ".spvcore"

	// ConfigFileName is the name of the config file inside the data directory.
	ConfigFileName = "config"

	// DefaultBroadcastTimeout bounds each chain, mempool and peer call made
	// while broadcasting.
	DefaultBroadcastTimeout = 30 * time.Second
)

// Config holds the wallet settings.
type Config struct {
	DataDir  string
	Network  string
	LogLevel string
	LogFile  string

	RPCURL      string
	RPCUser     string
	RPCPassword string

	// FeeRate is the default wallet fee rate in satoshis per byte.
	FeeRate amount.Amount
	// MaxFeeRate is the broadcast ceiling in satoshis per 1000 vbytes; zero
	// leaves the pipeline default in place.
	MaxFeeRate       amount.Amount
	MaxBurnAmount    amount.Amount
	BroadcastTimeout time.Duration
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() Config {
	return Config{
		DataDir:          DefaultDataDir(),
		Network:          "mainnet",
		LogLevel:         "info",
		FeeRate:          1,
		BroadcastTimeout: DefaultBroadcastTimeout,
	}
}

// DefaultDataDir returns ~/.spvcore, or ./.spvcore when the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// LoadConfig reads path on top of DefaultConfig. The result is not validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return cfg, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) set(key, value string) error {
	switch key {
	case "datadir":
		c.DataDir = value
	case "network":
		c.Network = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "rpcurl":
		c.RPCURL = value
	case "rpcuser":
		c.RPCUser = value
	case "rpcpassword":
		c.RPCPassword = value
	case "feerate":
		return parseAmount(key, value, &c.FeeRate)
	case "maxfeerate":
		return parseAmount(key, value, &c.MaxFeeRate)
	case "maxburnamount":
		return parseAmount(key, value, &c.MaxBurnAmount)
	case "broadcasttimeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfigValue, key, err)
		}
		c.BroadcastTimeout = d
	}
	return nil
}

func parseAmount(key, value string, dst *amount.Amount) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfigValue, key, err)
	}
	*dst = amount.Amount(n)
	return nil
}

// SaveConfig writes cfg to path, creating parent directories. The file is
// readable only by its owner since it may carry the RPC password.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# spvcore configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&b, "rpcurl = %s\n", cfg.RPCURL)
	fmt.Fprintf(&b, "rpcuser = %s\n", cfg.RPCUser)
	fmt.Fprintf(&b, "rpcpassword = %s\n", cfg.RPCPassword)
	fmt.Fprintf(&b, "feerate = %d\n", int64(cfg.FeeRate))
	fmt.Fprintf(&b, "maxfeerate = %d\n", int64(cfg.MaxFeeRate))
	fmt.Fprintf(&b, "maxburnamount = %d\n", int64(cfg.MaxBurnAmount))
	fmt.Fprintf(&b, "broadcasttimeout = %s\n", cfg.BroadcastTimeout)

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
