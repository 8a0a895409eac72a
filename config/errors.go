// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", \"signet\", or \"regtest\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidRPCURL indicates the node RPC URL is not an absolute http(s) URL.
	ErrInvalidRPCURL = errors.New("config: invalid RPC URL")

	// ErrInvalidFeePolicy indicates a non-positive fee rate or a negative fee or burn cap.
	ErrInvalidFeePolicy = errors.New("config: invalid fee policy")

	// ErrInvalidTimeout indicates a non-positive broadcast timeout.
	ErrInvalidTimeout = errors.New("config: broadcast timeout must be positive")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")

	// ErrInvalidConfigValue indicates a numeric or duration value failed to parse.
	ErrInvalidConfigValue = errors.New("config: invalid configuration value")
)
