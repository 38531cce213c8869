package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/bankcap/ledger-contract/rpc/bank"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for the ledger deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions to
	// the blockchain.
	actor.RPCActor

	// RPCPollingWaiter lets the actor await transaction acceptance.
	actor.RPCPollingWaiter

	// GetContractStateByHash returns network state of the smart contract by
	// its address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// CommonDeployPrm groups common deployment parameters of the smart contract.
type CommonDeployPrm struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

// Prm groups all parameters of the ledger deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance to deploy the ledger to.
	Blockchain Blockchain

	// Local process account used for transaction signing (must be unlocked).
	// It becomes the owner of the ledger.
	LocalAccount *wallet.Account

	Contract CommonDeployPrm

	// Immutable capacity of the ledger in GAS fractions.
	BankCap *big.Int

	// Initial withdrawal limit in GAS fractions.
	WithdrawalLimit *big.Int
}

// Deploy deploys Capped Bank contract to the blockchain on behalf of the
// local account and returns its address. The address is derived from the
// local account, NEF checksum and contract name, so repeated Deploy calls
// with the same parameters do nothing and return the address of the already
// deployed contract.
//
// Deploy blocks until deployment transaction is accepted or context is done.
// If the transaction expires, Deploy returns an error wrapping
// actor.ErrTxNotAccepted.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	switch {
	case prm.BankCap == nil || prm.BankCap.Sign() < 0:
		return util.Uint160{}, errors.New("bank capacity must be non-negative")
	case prm.WithdrawalLimit == nil || prm.WithdrawalLimit.Sign() < 0:
		return util.Uint160{}, errors.New("withdrawal limit must be non-negative")
	}

	localAddr := prm.LocalAccount.ScriptHash()
	addr := state.CreateContractHash(localAddr, prm.Contract.NEF.Checksum, prm.Contract.Manifest.Name)
	l := prm.Logger.With(zap.Stringer("contract", addr))

	l.Info("checking Bank contract presence on the chain...")

	_, err := prm.Blockchain.GetContractStateByHash(addr)
	if err == nil {
		l.Info("Bank contract is already deployed")
		return addr, nil
	}

	if !isErrContractNotFound(err) {
		return util.Uint160{}, fmt.Errorf("get state of the Bank contract by address: %w", err)
	}

	act, err := actor.NewSimple(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("init transaction sender from local account: %w", err)
	}

	l.Info("Bank contract is missing on the chain, deploying...",
		zap.Stringer("owner", localAddr),
		zap.Stringer("bank cap", prm.BankCap),
		zap.Stringer("withdrawal limit", prm.WithdrawalLimit))

	txHash, vub, err := management.New(act).Deploy(&prm.Contract.NEF, &prm.Contract.Manifest,
		[]any{prm.BankCap, prm.WithdrawalLimit})
	if err != nil {
		return util.Uint160{}, fmt.Errorf("send deployment transaction: %w", err)
	}

	l.Info("deployment transaction sent, waiting for it to be accepted...",
		zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	res, err := act.WaitAny(ctx, vub, txHash)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("wait for deployment transaction %s: %w", txHash.StringLE(), err)
	}

	err = bank.FaultFromExecution(res)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("deployment transaction %s failed: %w", txHash.StringLE(), err)
	}

	l.Info("Bank contract successfully deployed")

	return addr, nil
}

func isErrContractNotFound(err error) bool {
	return strings.Contains(err.Error(), "Unknown contract")
}
