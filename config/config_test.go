// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bitfsorg/spvcore-go/amount"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// ---------------------------------------------------------------------------
// DefaultConfig tests
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Network", cfg.Network, "mainnet"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFile", cfg.LogFile, ""},
		{"RPCURL", cfg.RPCURL, ""},
		{"FeeRate", cfg.FeeRate, amount.Amount(1)},
		{"MaxFeeRate", cfg.MaxFeeRate, amount.Amount(0)},
		{"BroadcastTimeout", cfg.BroadcastTimeout, DefaultBroadcastTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	if !strings.HasSuffix(cfg.DataDir, DefaultDirName) {
		t.Errorf("DataDir = %q, want suffix %q", cfg.DataDir, DefaultDirName)
	}
}

// ---------------------------------------------------------------------------
// SaveConfig / LoadConfig
// ---------------------------------------------------------------------------

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")

	original := Config{
		DataDir:          "/tmp/test-spvcore",
		Network:          "regtest",
		LogLevel:         "debug",
		LogFile:          "/tmp/spvcore.log",
		RPCURL:           "http://127.0.0.1:18443",
		RPCUser:          "alice",
		RPCPassword:      "s3cret=with=equals",
		FeeRate:          5,
		MaxFeeRate:       250_000,
		MaxBurnAmount:    1_000,
		BroadcastTimeout: 12 * time.Second,
	}

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded != original {
		t.Errorf("round trip:\n got  %+v\n want %+v", loaded, original)
	}
}

func TestSaveConfigCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "config")

	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestSaveConfigOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "# spvcore configuration") {
		t.Errorf("missing header, got %q", content)
	}
	for _, key := range []string{
		"datadir", "network", "loglevel", "logfile", "rpcurl", "rpcuser",
		"rpcpassword", "feerate", "maxfeerate", "maxburnamount", "broadcasttimeout",
	} {
		if !strings.Contains(content, "\n"+key+" = ") {
			t.Errorf("output missing key %q", key)
		}
	}
}

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig nonexistent: got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfigParsing(t *testing.T) {
	path := writeFile(t, `# comment line

network = testnet
   loglevel=warn   
rpcpassword = a=b=c
logfile =
unknownkey = whatever
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Network", cfg.Network, "testnet"},
		{"LogLevel trimmed", cfg.LogLevel, "warn"},
		{"RPCPassword split on first =", cfg.RPCPassword, "a=b=c"},
		{"LogFile empty value", cfg.LogFile, ""},
		{"DataDir default kept", cfg.DataDir, DefaultDataDir()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}
	if cfg.FeeRate != 1 {
		t.Errorf("FeeRate default = %d, want 1", cfg.FeeRate)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"no equals", "network testnet\n", ErrInvalidConfigLine},
		{"bad fee rate", "feerate = fast\n", ErrInvalidConfigValue},
		{"bad max burn", "maxburnamount = 1.5\n", ErrInvalidConfigValue},
		{"bad timeout", "broadcasttimeout = 30\n", ErrInvalidConfigValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tc.content))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadConfigUnreadable(t *testing.T) {
	// A directory exists but cannot be read as a file.
	_, err := LoadConfig(t.TempDir())
	if err == nil {
		t.Fatal("expected error reading a directory")
	}
	if errors.Is(err, ErrConfigNotFound) {
		t.Error("existing path must not report ErrConfigNotFound")
	}
}

// ---------------------------------------------------------------------------
// ValidateConfig
// ---------------------------------------------------------------------------

func TestValidateConfigDefaults(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Errorf("ValidateConfig(DefaultConfig()) = %v, want nil", err)
	}
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"empty datadir", func(c *Config) { c.DataDir = "" }, ErrEmptyDataDir},
		{"unknown network", func(c *Config) { c.Network = "bsv" }, ErrInvalidNetwork},
		{"empty network", func(c *Config) { c.Network = "" }, ErrInvalidNetwork},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, ErrInvalidLogLevel},
		{"rpc url scheme", func(c *Config) { c.RPCURL = "ftp://node:21" }, ErrInvalidRPCURL},
		{"rpc url host", func(c *Config) { c.RPCURL = "http://" }, ErrInvalidRPCURL},
		{"zero fee rate", func(c *Config) { c.FeeRate = 0 }, ErrInvalidFeePolicy},
		{"negative max fee", func(c *Config) { c.MaxFeeRate = -1 }, ErrInvalidFeePolicy},
		{"negative burn", func(c *Config) { c.MaxBurnAmount = -1 }, ErrInvalidFeePolicy},
		{"zero timeout", func(c *Config) { c.BroadcastTimeout = 0 }, ErrInvalidTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			if err := ValidateConfig(cfg); !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateConfig: got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateConfigAccepts(t *testing.T) {
	for _, network := range []string{"mainnet", "testnet", "signet", "regtest"} {
		cfg := DefaultConfig()
		cfg.Network = network
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("network %q: %v", network, err)
		}
	}

	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "Warn"} {
		cfg := DefaultConfig()
		cfg.LogLevel = level
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("loglevel %q: %v", level, err)
		}
	}

	for _, u := range []string{"http://localhost:8332", "https://node.example.com/rpc"} {
		cfg := DefaultConfig()
		cfg.RPCURL = u
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("rpcurl %q: %v", u, err)
		}
	}
}

func TestConfigPath(t *testing.T) {
	if got, want := ConfigPath("/home/user/.spvcore"), filepath.Join("/home/user/.spvcore", "config"); got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
}
