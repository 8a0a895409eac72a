// Command spvcore is a command-line SPV wallet backed by a node's JSON-RPC
// interface.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/spvcore-go/config"
	"github.com/bitfsorg/spvcore-go/network"
)

// Environment variables read by the global flags.
const (
	EnvDataDir  = "SPVCORE_DATADIR"
	EnvPassword = "SPVCORE_PASSWORD"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "spvcore",
		Usage: "SPV wallet for Bitcoin networks",
		Commands: []*cli.Command{
			initCmd,
			getNewAddressCmd,
			importPrivKeyCmd,
			listUnspentCmd,
			getBalanceCmd,
			estimateFeeCmd,
			createRawTransactionCmd,
			sendToAddressCmd,
			rescanCmd,
			syncHeadersCmd,
			decodeAddressCmd,
			pubKeyCmd,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "datadir",
				Usage:   "wallet data directory",
				Value:   config.DefaultDataDir(),
				EnvVars: []string{EnvDataDir},
			},
			&cli.StringFlag{
				Name:  "network",
				Usage: "mainnet, testnet, signet or regtest (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "loglevel",
				Usage: "debug, info, warn or error (overrides the config file)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "human-readable log output",
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "wallet encryption password",
				EnvVars: []string{EnvPassword},
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "node JSON-RPC URL",
				EnvVars: []string{network.EnvRPCURL},
			},
			&cli.StringFlag{
				Name:    "rpc-user",
				Usage:   "node JSON-RPC user",
				EnvVars: []string{network.EnvRPCUser},
			},
			&cli.StringFlag{
				Name:    "rpc-password",
				Usage:   "node JSON-RPC password",
				EnvVars: []string{network.EnvRPCPass},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
