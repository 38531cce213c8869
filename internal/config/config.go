// Package config provides configuration of the ledger command line tool.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"gopkg.in/yaml.v3"
)

// GASPrecision is a number of decimals of the native GAS token. Amounts in
// configuration and command line are given in GAS and converted to its
// fractions.
const GASPrecision = 8

// Default values of optional parameters.
const (
	DefaultRPCEndpoint    = "http://localhost:30333"
	DefaultDialTimeout    = 15 * time.Second
	DefaultRequestTimeout = 15 * time.Second
	DefaultWaitTimeout    = time.Minute
	DefaultBuildDir       = "build"
)

// Config is a root structure of the configuration file.
type Config struct {
	RPC      RPC      `yaml:"rpc"`
	Wallet   Wallet   `yaml:"wallet"`
	Contract Contract `yaml:"contract"`
	Deploy   Deploy   `yaml:"deploy"`
}

// RPC configures connection to Neo RPC server.
type RPC struct {
	Endpoint       string        `yaml:"endpoint"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	WaitTimeout    time.Duration `yaml:"wait_timeout"`
}

// Wallet references NEP-6 wallet with the account used for signing.
type Wallet struct {
	Path string `yaml:"path"`
	// Address of the account, the default wallet account is used if empty.
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

// Contract references the deployed ledger.
type Contract struct {
	// Address or LE hex-encoded script hash of the ledger contract.
	Hash     string `yaml:"hash"`
	BuildDir string `yaml:"build_dir"`
}

// Deploy holds ledger construction parameters in GAS.
type Deploy struct {
	BankCap         string `yaml:"bank_cap"`
	WithdrawalLimit string `yaml:"withdrawal_limit"`
}

// Load reads configuration from the YAML file. Missing optional values are
// set to defaults.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		err = yaml.Unmarshal(data, &c)
		if err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	c.setDefaults()

	return &c, nil
}

func (c *Config) setDefaults() {
	setDefault(&c.RPC.Endpoint, DefaultRPCEndpoint)
	setDefault(&c.RPC.DialTimeout, DefaultDialTimeout)
	setDefault(&c.RPC.RequestTimeout, DefaultRequestTimeout)
	setDefault(&c.RPC.WaitTimeout, DefaultWaitTimeout)
	setDefault(&c.Contract.BuildDir, DefaultBuildDir)
}

func setDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

// ContractHash decodes configured ledger address.
func (c Contract) ContractHash() (util.Uint160, error) {
	if c.Hash == "" {
		return util.Uint160{}, errors.New("missing ledger contract hash")
	}
	return ParseHash160(c.Hash)
}

// Amounts decodes ledger construction parameters.
func (d Deploy) Amounts() (bankCap, withdrawalLimit *big.Int, err error) {
	bankCap, err = ParseGAS(d.BankCap)
	if err != nil {
		return nil, nil, fmt.Errorf("bank cap: %w", err)
	}

	withdrawalLimit, err = ParseGAS(d.WithdrawalLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("withdrawal limit: %w", err)
	}

	return bankCap, withdrawalLimit, nil
}

// ParseHash160 decodes Neo address or LE hex-encoded script hash.
func ParseHash160(s string) (util.Uint160, error) {
	h, err := address.StringToUint160(s)
	if err == nil {
		return h, nil
	}

	h, err = util.Uint160DecodeStringLE(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("%q is neither address nor script hash: %w", s, err)
	}

	return h, nil
}

// ParseGAS converts decimal GAS amount into GAS fractions. Negative amounts
// are rejected.
func ParseGAS(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing amount")
	}

	v, err := fixedn.FromString(s, GASPrecision)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}

	return v, nil
}

// FormatGAS converts GAS fractions into decimal GAS amount.
func FormatGAS(v *big.Int) string {
	return fixedn.ToString(v, GASPrecision)
}
