package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bankcap/ledger-contract/internal/config"
	"github.com/bankcap/ledger-contract/rpc/bank"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

// wrapper over rpcNeo providing ledger services needed for the commands.
type remoteBlockchain struct {
	rpc *rpcclient.Client
	log *zap.Logger
	cfg *config.Config
}

// newRemoteBlockchain dials Neo RPC server and returns remoteBlockchain based
// on the opened connection.
func newRemoteBlockchain(ctx context.Context, cfg *config.Config, log *zap.Logger) (*remoteBlockchain, error) {
	c, err := rpcclient.New(ctx, cfg.RPC.Endpoint, rpcclient.Options{
		DialTimeout:    cfg.RPC.DialTimeout,
		RequestTimeout: cfg.RPC.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init RPC client: %w", err)
	}

	log.Debug("connected to Neo RPC server", zap.String("endpoint", cfg.RPC.Endpoint))

	return &remoteBlockchain{
		rpc: c,
		log: log,
		cfg: cfg,
	}, nil
}

func (x *remoteBlockchain) close() {
	x.rpc.Close()
}

func (x *remoteBlockchain) contractHash() (util.Uint160, error) {
	return x.cfg.Contract.ContractHash()
}

// reader returns read-only ledger client making no transactions.
func (x *remoteBlockchain) reader() (*bank.ContractReader, error) {
	h, err := x.contractHash()
	if err != nil {
		return nil, err
	}
	return bank.NewReader(invoker.New(x.rpc, nil), h), nil
}

// writer returns ledger client signing transactions with the local wallet
// account along with the actor sending them.
func (x *remoteBlockchain) writer() (*bank.Contract, *actor.Actor, error) {
	h, err := x.contractHash()
	if err != nil {
		return nil, nil, err
	}

	acc, err := x.localAccount()
	if err != nil {
		return nil, nil, err
	}

	act, err := actor.NewSimple(x.rpc, acc)
	if err != nil {
		return nil, nil, fmt.Errorf("init actor: %w", err)
	}

	return bank.New(act, h), act, nil
}

// localAccount opens configured wallet and decrypts the account.
func (x *remoteBlockchain) localAccount() (*wallet.Account, error) {
	if x.cfg.Wallet.Path == "" {
		return nil, errors.New("missing wallet path")
	}

	w, err := wallet.NewWalletFromFile(x.cfg.Wallet.Path)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	defer w.Close()

	h := w.GetChangeAddress()
	if x.cfg.Wallet.Address != "" {
		h, err = address.StringToUint160(x.cfg.Wallet.Address)
		if err != nil {
			return nil, fmt.Errorf("decode account address: %w", err)
		}
	}

	acc := w.GetAccount(h)
	if acc == nil {
		return nil, fmt.Errorf("account %s is missing in the wallet", address.Uint160ToString(h))
	}

	err = acc.Decrypt(x.cfg.Wallet.Password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account %s: %w", acc.Address, err)
	}

	return acc, nil
}

// await waits for the transaction sent by act to be persisted and returns its
// execution log. Known contract failures are returned as rpc/bank errors.
func (x *remoteBlockchain) await(ctx context.Context, act *actor.Actor, txHash util.Uint256, vub uint32) (*result.ApplicationLog, error) {
	x.log.Info("transaction sent, waiting for it to be accepted...",
		zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	ctx, cancel := context.WithTimeout(ctx, x.cfg.RPC.WaitTimeout)
	defer cancel()

	res, err := act.WaitAny(ctx, vub, txHash)
	if err != nil {
		return nil, fmt.Errorf("wait for transaction %s: %w", txHash.StringLE(), err)
	}

	err = bank.FaultFromExecution(res)
	if err != nil {
		return nil, fmt.Errorf("transaction %s failed: %w", txHash.StringLE(), err)
	}

	return bank.ApplicationLog(res), nil
}

// iterateContractStorage iterates over all storage items of the Neo smart
// contract referenced by given address and passes them into f.
// iterateContractStorage breaks on any f's error and returns it.
func (x *remoteBlockchain) iterateContractStorage(contract util.Uint160, f func(key, value []byte) error) error {
	nLatestBlock, err := x.rpc.GetBlockCount()
	if err != nil {
		return fmt.Errorf("get number of the latest block: %w", err)
	}

	stateRoot, err := x.rpc.GetStateRootByHeight(nLatestBlock - 1)
	if err != nil {
		return fmt.Errorf("get state root at block #%d: %w", nLatestBlock-1, err)
	}

	var start []byte

	for {
		res, err := x.rpc.FindStates(stateRoot.Root, contract, nil, start, nil)
		if err != nil {
			return fmt.Errorf("get historical storage items of the requested contract at state root '%s': %w", stateRoot.Root, err)
		}

		for i := range res.Results {
			err = f(res.Results[i].Key, res.Results[i].Value)
			if err != nil {
				return err
			}
		}

		if !res.Truncated || len(res.Results) == 0 {
			return nil
		}

		start = res.Results[len(res.Results)-1].Key
	}
}
