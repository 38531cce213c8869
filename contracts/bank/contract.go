package bank

import (
	"github.com/bankcap/ledger-contract/common"
	"github.com/bankcap/ledger-contract/contracts/bank/bankconst"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Stats is a snapshot of the ledger counters.
type Stats struct {
	TotalDeposits   int
	DepositCount    int
	WithdrawalCount int
	// CapUsage duplicates TotalDeposits.
	CapUsage int
	BankCap  int
}

const (
	ownerKey       = 'o'
	bankCapKey     = 'c'
	limitKey       = 'l'
	totalKey       = 't'
	depositsKey    = 'd'
	withdrawalsKey = 'w'

	balancePrefix = 'b'
)

// _deploy fixes bank capacity, initial withdrawal limit and the owner of
// the ledger. The owner is the sender of the deployment transaction.
// nolint:unused
func _deploy(data any, isUpdate bool) {
	args := data.(struct {
		bankCap         int
		withdrawalLimit int
	})

	checkNonNegative(args.bankCap)
	checkNonNegative(args.withdrawalLimit)

	ctx := storage.GetContext()
	owner := runtime.GetScriptContainer().Sender

	storage.Put(ctx, ownerKey, owner)
	storage.Put(ctx, bankCapKey, args.bankCap)
	storage.Put(ctx, limitKey, args.withdrawalLimit)

	runtime.Log("bank contract initialized")
	runtime.Notify("LedgerInitialized", owner, args.bankCap, args.withdrawalLimit)
}

// OnNEP17Payment is a callback for NEP-17 compatible native GAS contract.
// Every GAS transfer to the contract is a deposit to the balance of the
// sender. The deposit is rejected if it makes total holdings exceed the bank
// capacity.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(gas.Hash) {
		panic(bankconst.ErrOnlyGAS)
	}

	checkAccountHash(from)
	checkPositive(amount)

	ctx := storage.GetContext()

	total := common.GetInt(ctx, totalKey)
	if total+amount > common.GetInt(ctx, bankCapKey) {
		panic(bankconst.ErrExceedsBankCap)
	}

	balance := common.AddInt(ctx, balanceKey(from), amount)
	storage.Put(ctx, totalKey, total+amount)
	common.AddInt(ctx, depositsKey, 1)

	runtime.Notify("Deposit", from, amount, balance)
}

// Withdraw transfers amount of GAS from the ledger back to the user. It can
// be invoked only by the user itself: either the transaction is witnessed by
// the user or the user is a contract calling Withdraw directly.
//
// Amount must not exceed the current withdrawal limit and the user balance.
// Balance is decreased before GAS is transferred, so if the user is a
// contract re-entering the ledger from its payment callback, it sees the
// decreased balance. Failed transfer faults the transaction, which reverts
// the balance change.
//
// This method produces Withdrawal notification carrying the balance stored
// once the transfer is done, including nested withdrawals.
func Withdraw(user interop.Hash160, amount int) {
	common.CheckAccount(user, bankconst.ErrUnauthorized)
	checkPositive(amount)

	ctx := storage.GetContext()

	var (
		key     = balanceKey(user)
		limit   = common.GetInt(ctx, limitKey)
		balance = common.GetInt(ctx, key)
	)

	if amount > limit {
		panic(bankconst.ErrExceedsWithdrawalLimit)
	}

	if amount > balance {
		panic(bankconst.ErrInsufficientFunds)
	}

	balance -= amount
	storage.Put(ctx, key, balance)
	common.AddInt(ctx, totalKey, -amount)
	common.AddInt(ctx, withdrawalsKey, 1)

	// control may re-enter the contract from here on
	transferred := gas.Transfer(runtime.GetExecutingScriptHash(), user, amount, nil)
	if !transferred {
		// native GAS faults instead of returning false while the ledger holds the amount
		panic(bankconst.ErrTransferFailed)
	}

	runtime.Log("funds have been withdrawn")
	runtime.Notify("Withdrawal", user, amount, common.GetInt(ctx, key))
}

// SetWithdrawalLimit replaces the withdrawal limit. It can be invoked only by
// the owner of the ledger. The limit is not bound to the bank capacity.
//
// This method produces WithdrawalLimitUpdated notification.
func SetWithdrawalLimit(newLimit int) {
	ctx := storage.GetContext()

	common.CheckWitness(getOwner(ctx), bankconst.ErrUnauthorized)
	checkNonNegative(newLimit)

	oldLimit := common.GetInt(ctx, limitKey)
	storage.Put(ctx, limitKey, newLimit)

	runtime.Notify("WithdrawalLimitUpdated", oldLimit, newLimit)
}

// GetBalance returns GAS balance of the account in the ledger. Unknown
// accounts have zero balance.
func GetBalance(account interop.Hash160) int {
	checkAccountHash(account)

	ctx := storage.GetReadOnlyContext()
	return common.GetInt(ctx, balanceKey(account))
}

// IsBankFull returns true if total holdings reached the bank capacity.
func IsBankFull() bool {
	ctx := storage.GetReadOnlyContext()
	return common.GetInt(ctx, totalKey) >= common.GetInt(ctx, bankCapKey)
}

// GetBankStats returns total holdings, deposit and withdrawal counters, cap
// usage and bank capacity. Cap usage is reported as total holdings.
func GetBankStats() Stats {
	ctx := storage.GetReadOnlyContext()
	total := common.GetInt(ctx, totalKey)

	return Stats{
		TotalDeposits:   total,
		DepositCount:    common.GetInt(ctx, depositsKey),
		WithdrawalCount: common.GetInt(ctx, withdrawalsKey),
		CapUsage:        total,
		BankCap:         common.GetInt(ctx, bankCapKey),
	}
}

// GetWithdrawalLimit returns the maximum amount of a single withdrawal.
func GetWithdrawalLimit() int {
	ctx := storage.GetReadOnlyContext()
	return common.GetInt(ctx, limitKey)
}

// Owner returns the account allowed to change the withdrawal limit.
func Owner() interop.Hash160 {
	return getOwner(storage.GetReadOnlyContext())
}

// BankCap returns the maximum total amount of GAS the ledger may hold.
func BankCap() int {
	ctx := storage.GetReadOnlyContext()
	return common.GetInt(ctx, bankCapKey)
}

// Accounts returns an iterator over all accounts that have ever deposited.
// Iteration is through key-value pairs, where key is the account script hash
// and value is its balance.
func Accounts() iterator.Iterator {
	ctx := storage.GetReadOnlyContext()
	return storage.Find(ctx, []byte{balancePrefix}, storage.RemovePrefix)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func getOwner(ctx storage.Context) interop.Hash160 {
	owner := storage.Get(ctx, ownerKey)
	return owner.(interop.Hash160)
}

func balanceKey(account interop.Hash160) []byte {
	return append([]byte{balancePrefix}, account...)
}

func checkPositive(amount int) {
	if amount == 0 {
		panic(bankconst.ErrZeroAmount)
	}

	checkNonNegative(amount)
}

func checkNonNegative(amount int) {
	if amount < 0 {
		panic(bankconst.ErrNegativeAmount)
	}
}

func checkAccountHash(account interop.Hash160) {
	if len(account) != interop.Hash160Len {
		panic("invalid account script hash")
	}
}
