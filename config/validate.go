// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bitfsorg/spvcore-go/address"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if _, err := address.GetNetwork(cfg.Network); err != nil {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.RPCURL != "" {
		if err := validateURL(cfg.RPCURL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRPCURL, err)
		}
	}

	switch {
	case cfg.FeeRate <= 0:
		return fmt.Errorf("%w: feerate %d", ErrInvalidFeePolicy, int64(cfg.FeeRate))
	case cfg.MaxFeeRate < 0:
		return fmt.Errorf("%w: maxfeerate %d", ErrInvalidFeePolicy, int64(cfg.MaxFeeRate))
	case cfg.MaxBurnAmount < 0:
		return fmt.Errorf("%w: maxburnamount %d", ErrInvalidFeePolicy, int64(cfg.MaxBurnAmount))
	}

	if cfg.BroadcastTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// validateURL checks that raw is an absolute http or https URL with a host.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
