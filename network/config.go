package network

import "fmt"

// Environment variables consulted by ResolveConfig.
const (
	EnvRPCURL  = "SPVCORE_RPC_URL"
	EnvRPCUser = "SPVCORE_RPC_USER"
	EnvRPCPass = "SPVCORE_RPC_PASS"
)

// RPCConfig holds the connection parameters for a node's JSON-RPC interface.
type RPCConfig struct {
	URL      string `json:"url"`
	User     string `json:"user"`
	Password string `json:"password"`
	Network  string `json:"network"`
}

// NetworkPresets contains local node defaults for the test networks.
// Mainnet has no preset and must be configured explicitly.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18443"},
	"testnet": {URL: "http://localhost:18332"},
	"signet":  {URL: "http://localhost:38332"},
}

// ResolveConfig merges RPC configuration from three sources with decreasing priority:
//  1. flags
//  2. environment (SPVCORE_RPC_URL, SPVCORE_RPC_USER, SPVCORE_RPC_PASS)
//  3. network presets
func ResolveConfig(flags *RPCConfig, env map[string]string, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}

	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	if v := env[EnvRPCURL]; v != "" {
		result.URL = v
	}
	if v := env[EnvRPCUser]; v != "" {
		result.User = v
	}
	if v := env[EnvRPCPass]; v != "" {
		result.Password = v
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.User != "" {
			result.User = flags.User
		}
		if flags.Password != "" {
			result.Password = flags.Password
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("network: %s requires explicit RPC configuration (set --rpc-url, %s, or config file)", network, EnvRPCURL)
	}
	return &result, nil
}
