package address

import (
	"encoding/json"
	"fmt"
	"os"
)

// NetworkConfig defines the address and port parameters of a Bitcoin network.
type NetworkConfig struct {
	Name           string `json:"name"`
	AddressVersion byte   `json:"address_version"`
	P2SHVersion    byte   `json:"p2sh_version"`
	Bech32HRP      string `json:"bech32_hrp"`
	DefaultPort    uint16 `json:"default_port"`
	RPCPort        uint16 `json:"rpc_port"`
	GenesisHash    string `json:"genesis_hash"`
}

// SupportsSegWit reports whether native witness addresses can be encoded on n.
func (n *NetworkConfig) SupportsSegWit() bool {
	return n != nil && n.Bech32HRP != ""
}

// Predefined network configurations.
var (
	MainNet = NetworkConfig{
		Name:           "mainnet",
		AddressVersion: 0x00,
		P2SHVersion:    0x05,
		Bech32HRP:      "bc",
		DefaultPort:    8333,
		RPCPort:        8332,
		GenesisHash:    "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
	}

	TestNet = NetworkConfig{
		Name:           "testnet",
		AddressVersion: 0x6f,
		P2SHVersion:    0xc4,
		Bech32HRP:      "tb",
		DefaultPort:    18333,
		RPCPort:        18332,
		GenesisHash:    "000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943",
	}

	SigNet = NetworkConfig{
		Name:           "signet",
		AddressVersion: 0x6f,
		P2SHVersion:    0xc4,
		Bech32HRP:      "tb",
		DefaultPort:    38333,
		RPCPort:        38332,
		GenesisHash:    "00000008819873e925422c1ff0f99f7cc9bbb232af63a077a480a3633bee1ef6",
	}

	RegTest = NetworkConfig{
		Name:           "regtest",
		AddressVersion: 0x6f,
		P2SHVersion:    0xc4,
		Bech32HRP:      "bcrt",
		DefaultPort:    18444,
		RPCPort:        18443,
		GenesisHash:    "0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206",
	}
)

// predefined maps network names to their configs.
var predefined = map[string]*NetworkConfig{
	"mainnet": &MainNet,
	"testnet": &TestNet,
	"signet":  &SigNet,
	"regtest": &RegTest,
}

// GetNetwork returns a predefined network by name.
// If the name is not predefined, it returns ErrInvalidNetwork.
func GetNetwork(name string) (*NetworkConfig, error) {
	if net, ok := predefined[name]; ok {
		return net, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}

// LoadCustomNetwork loads a NetworkConfig from a JSON file. Networks without
// a bech32_hrp are legacy-only.
func LoadCustomNetwork(path string) (*NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("address: failed to read network config: %w", err)
	}

	var config NetworkConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("address: failed to parse network config: %w", err)
	}

	if config.Name == "" {
		return nil, fmt.Errorf("address: network config must have a name")
	}
	if config.AddressVersion == config.P2SHVersion {
		return nil, fmt.Errorf("address: network %q uses the same version byte for P2PKH and P2SH", config.Name)
	}
	if config.Bech32HRP != "" {
		if err := checkHRP(config.Bech32HRP); err != nil {
			return nil, fmt.Errorf("address: network %q: %w", config.Name, err)
		}
	}

	return &config, nil
}
