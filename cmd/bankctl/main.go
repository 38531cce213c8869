// Command bankctl manages Capped Bank ledger deployed to Neo blockchain.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const passwordEnv = "BANKCTL_WALLET_PASSWORD"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "bankctl"
	app.Usage = "Capped Bank ledger client"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "Path to the YAML configuration file",
			EnvVar: "BANKCTL_CONFIG",
		},
		cli.StringFlag{
			Name:  "rpc, r",
			Usage: "Network address of the Neo RPC server",
		},
		cli.StringFlag{
			Name:  "wallet, w",
			Usage: "Path to the NEP-6 wallet",
		},
		cli.StringFlag{
			Name:  "address, a",
			Usage: "Wallet account to sign transactions with",
		},
		cli.StringFlag{
			Name:  "contract",
			Usage: "Address or LE script hash of the ledger contract",
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "Enable debug logging",
		},
	}

	amountFlag := cli.StringFlag{
		Name:  "amount",
		Usage: "Amount of GAS, e.g. 1.5",
	}

	app.Commands = []cli.Command{
		{
			Name:   "deploy",
			Usage:  "Deploy ledger contract compiled into the build directory",
			Action: deployAction,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "build-dir", Usage: "Directory with compiled contracts"},
				cli.StringFlag{Name: "bank-cap", Usage: "Capacity of the ledger in GAS"},
				cli.StringFlag{Name: "withdrawal-limit", Usage: "Initial withdrawal limit in GAS"},
			},
		},
		{
			Name:   "deposit",
			Usage:  "Transfer GAS from the wallet account to the ledger",
			Action: depositAction,
			Flags:  []cli.Flag{amountFlag},
		},
		{
			Name:   "withdraw",
			Usage:  "Withdraw GAS from the ledger to the wallet account",
			Action: withdrawAction,
			Flags:  []cli.Flag{amountFlag},
		},
		{
			Name:      "balance",
			Usage:     "Print ledger balance of the account",
			ArgsUsage: "[address]",
			Action:    balanceAction,
		},
		{
			Name:   "stats",
			Usage:  "Print ledger counters",
			Action: statsAction,
		},
		{
			Name:   "limit",
			Usage:  "Print current withdrawal limit",
			Action: limitAction,
		},
		{
			Name:   "set-limit",
			Usage:  "Change withdrawal limit (owner only)",
			Action: setLimitAction,
			Flags:  []cli.Flag{amountFlag},
		},
		{
			Name:   "accounts",
			Usage:  "List all ledger accounts",
			Action: accountsAction,
			Flags: []cli.Flag{
				cli.IntFlag{Name: "max", Value: 1000, Usage: "Maximum number of accounts if server does not support sessions"},
			},
		},
		{
			Name:   "audit",
			Usage:  "Check ledger invariants against raw contract storage",
			Action: auditAction,
		},
	}

	return app
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
