// Package bank contains RPC wrappers for Capped Bank contract.
package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Stats is a contract-specific bank.Stats type used by its methods.
type Stats struct {
	TotalDeposits   *big.Int
	DepositCount    *big.Int
	WithdrawalCount *big.Int
	CapUsage        *big.Int
	BankCap         *big.Int
}

// AccountBalance is a single key-value pair returned by `accounts` iterator.
type AccountBalance struct {
	Account util.Uint160
	Balance *big.Int
}

// LedgerInitializedEvent represents "LedgerInitialized" event emitted by the contract.
type LedgerInitializedEvent struct {
	Owner           util.Uint160
	BankCap         *big.Int
	WithdrawalLimit *big.Int
}

// DepositEvent represents "Deposit" event emitted by the contract.
type DepositEvent struct {
	Account util.Uint160
	Amount  *big.Int
	Balance *big.Int
}

// WithdrawalEvent represents "Withdrawal" event emitted by the contract.
type WithdrawalEvent struct {
	Account util.Uint160
	Amount  *big.Int
	Balance *big.Int
}

// WithdrawalLimitUpdatedEvent represents "WithdrawalLimitUpdated" event emitted by the contract.
type WithdrawalLimitUpdatedEvent struct {
	OldLimit *big.Int
	NewLimit *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	nep17.Actor

	Sender() util.Uint160
	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods. Deposits are made through the
// native GAS contract on behalf of the actor's sender.
type Contract struct {
	ContractReader
	actor Actor
	gas   *nep17.Token
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, gas.New(actor), hash}
}

// Hash returns the script hash of the contract.
func (c *ContractReader) Hash() util.Uint160 {
	return c.hash
}

// GetBalance invokes `getBalance` method of contract.
func (c *ContractReader) GetBalance(account util.Uint160) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "getBalance", account))
}

// IsBankFull invokes `isBankFull` method of contract.
func (c *ContractReader) IsBankFull() (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "isBankFull"))
}

// GetBankStats invokes `getBankStats` method of contract.
func (c *ContractReader) GetBankStats() (*Stats, error) {
	return itemToStats(unwrap.Item(c.invoker.Call(c.hash, "getBankStats")))
}

// GetWithdrawalLimit invokes `getWithdrawalLimit` method of contract.
func (c *ContractReader) GetWithdrawalLimit() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "getWithdrawalLimit"))
}

// Owner invokes `owner` method of contract.
func (c *ContractReader) Owner() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "owner"))
}

// BankCap invokes `bankCap` method of contract.
func (c *ContractReader) BankCap() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "bankCap"))
}

// Accounts invokes `accounts` method of contract.
func (c *ContractReader) Accounts() (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "accounts"))
}

// AccountsExpanded is similar to Accounts (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) AccountsExpanded(_numOfIteratorItems int) ([]AccountBalance, error) {
	items, err := unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "accounts", _numOfIteratorItems))
	if err != nil {
		return nil, err
	}
	return itemsToAccountBalances(items)
}

// TraverseAccounts reads all pairs from the session iterator returned by
// Accounts and terminates the session.
func (c *ContractReader) TraverseAccounts(sessionID uuid.UUID, iter result.Iterator, pageSize int) ([]AccountBalance, error) {
	var res []AccountBalance

	defer func() { _ = c.invoker.TerminateSession(sessionID) }()

	for {
		items, err := c.invoker.TraverseIterator(sessionID, &iter, pageSize)
		if err != nil {
			return nil, fmt.Errorf("traverse iterator: %w", err)
		}

		page, err := itemsToAccountBalances(items)
		if err != nil {
			return nil, err
		}
		res = append(res, page...)

		if len(items) < pageSize {
			return res, nil
		}
	}
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// Deposit creates a transaction transferring amount of GAS from the actor's
// sender to the contract. This transaction is signed and immediately sent to
// the network. The values returned are its hash, ValidUntilBlock value and
// error if any.
func (c *Contract) Deposit(amount *big.Int) (util.Uint256, uint32, error) {
	return c.gas.Transfer(c.actor.Sender(), c.hash, amount, nil)
}

// DepositTransaction creates a transaction transferring amount of GAS to the
// contract. This transaction is signed, but not sent to the network, instead
// it's returned to the caller.
func (c *Contract) DepositTransaction(amount *big.Int) (*transaction.Transaction, error) {
	return c.gas.TransferTransaction(c.actor.Sender(), c.hash, amount, nil)
}

// DepositUnsigned creates a transaction transferring amount of GAS to the
// contract. This transaction is not signed, it's simply returned to the
// caller.
func (c *Contract) DepositUnsigned(amount *big.Int) (*transaction.Transaction, error) {
	return c.gas.TransferUnsigned(c.actor.Sender(), c.hash, amount, nil)
}

// Withdraw creates a transaction invoking `withdraw` method of the contract
// for the actor's sender. This transaction is signed and immediately sent to
// the network. The values returned are its hash, ValidUntilBlock value and
// error if any.
func (c *Contract) Withdraw(amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "withdraw", c.actor.Sender(), amount)
}

// WithdrawTransaction creates a transaction invoking `withdraw` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) WithdrawTransaction(amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "withdraw", c.actor.Sender(), amount)
}

// WithdrawUnsigned creates a transaction invoking `withdraw` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) WithdrawUnsigned(amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "withdraw", nil, c.actor.Sender(), amount)
}

// SetWithdrawalLimit creates a transaction invoking `setWithdrawalLimit` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SetWithdrawalLimit(newLimit *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "setWithdrawalLimit", newLimit)
}

// SetWithdrawalLimitTransaction creates a transaction invoking `setWithdrawalLimit` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SetWithdrawalLimitTransaction(newLimit *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "setWithdrawalLimit", newLimit)
}

// SetWithdrawalLimitUnsigned creates a transaction invoking `setWithdrawalLimit` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SetWithdrawalLimitUnsigned(newLimit *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "setWithdrawalLimit", nil, newLimit)
}

// itemToStats converts stack item into *Stats.
func itemToStats(item stackitem.Item, err error) (*Stats, error) {
	if err != nil {
		return nil, err
	}
	var res = new(Stats)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of Stats from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *Stats) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 5 {
		return errors.New("wrong number of structure elements")
	}

	fields := []struct {
		name string
		dst  **big.Int
	}{
		{"TotalDeposits", &res.TotalDeposits},
		{"DepositCount", &res.DepositCount},
		{"WithdrawalCount", &res.WithdrawalCount},
		{"CapUsage", &res.CapUsage},
		{"BankCap", &res.BankCap},
	}

	for i := range fields {
		v, err := arr[i].TryInteger()
		if err != nil {
			return fmt.Errorf("field %s: %w", fields[i].name, err)
		}
		*fields[i].dst = v
	}

	return nil
}

func itemsToAccountBalances(items []stackitem.Item) ([]AccountBalance, error) {
	res := make([]AccountBalance, len(items))
	for i := range items {
		if err := res[i].FromStackItem(items[i]); err != nil {
			return nil, fmt.Errorf("item #%d: %w", i, err)
		}
	}
	return res, nil
}

// FromStackItem retrieves fields of AccountBalance from the key-value
// structure produced by the storage iterator.
func (res *AccountBalance) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	res.Account, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Account: %w", err)
	}

	res.Balance, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field Balance: %w", err)
	}

	return nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesBE(b)
}

// eventsFromApplicationLog collects notifications with the given name from
// all executions of the log.
func eventsFromApplicationLog[T any, PT interface {
	*T
	FromStackItem(*stackitem.Array) error
}](log *result.ApplicationLog, name string) ([]*T, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*T
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != name {
				continue
			}
			event := PT(new(T))
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize %s event from stackitem (execution #%d, event #%d): %w", name, i, j, err)
			}
			res = append(res, (*T)(event))
		}
	}

	return res, nil
}

func eventFields(item *stackitem.Array, n int) ([]stackitem.Item, error) {
	if item == nil {
		return nil, errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return nil, errors.New("not an array")
	}
	if len(arr) != n {
		return nil, errors.New("wrong number of structure elements")
	}
	return arr, nil
}

// LedgerInitializedEventsFromApplicationLog retrieves a set of all emitted events
// with "LedgerInitialized" name from the provided [result.ApplicationLog].
func LedgerInitializedEventsFromApplicationLog(log *result.ApplicationLog) ([]*LedgerInitializedEvent, error) {
	return eventsFromApplicationLog[LedgerInitializedEvent](log, "LedgerInitialized")
}

// FromStackItem converts provided [stackitem.Array] to LedgerInitializedEvent or
// returns an error if it's not possible to do to so.
func (e *LedgerInitializedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 3)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.BankCap, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field BankCap: %w", err)
	}

	e.WithdrawalLimit, err = arr[2].TryInteger()
	if err != nil {
		return fmt.Errorf("field WithdrawalLimit: %w", err)
	}

	return nil
}

// DepositEventsFromApplicationLog retrieves a set of all emitted events
// with "Deposit" name from the provided [result.ApplicationLog].
func DepositEventsFromApplicationLog(log *result.ApplicationLog) ([]*DepositEvent, error) {
	return eventsFromApplicationLog[DepositEvent](log, "Deposit")
}

// FromStackItem converts provided [stackitem.Array] to DepositEvent or
// returns an error if it's not possible to do to so.
func (e *DepositEvent) FromStackItem(item *stackitem.Array) error {
	var err error
	e.Account, e.Amount, e.Balance, err = balanceChangeFromItem(item)
	return err
}

// WithdrawalEventsFromApplicationLog retrieves a set of all emitted events
// with "Withdrawal" name from the provided [result.ApplicationLog].
func WithdrawalEventsFromApplicationLog(log *result.ApplicationLog) ([]*WithdrawalEvent, error) {
	return eventsFromApplicationLog[WithdrawalEvent](log, "Withdrawal")
}

// FromStackItem converts provided [stackitem.Array] to WithdrawalEvent or
// returns an error if it's not possible to do to so.
func (e *WithdrawalEvent) FromStackItem(item *stackitem.Array) error {
	var err error
	e.Account, e.Amount, e.Balance, err = balanceChangeFromItem(item)
	return err
}

func balanceChangeFromItem(item *stackitem.Array) (util.Uint160, *big.Int, *big.Int, error) {
	arr, err := eventFields(item, 3)
	if err != nil {
		return util.Uint160{}, nil, nil, err
	}

	acc, err := itemToUint160(arr[0])
	if err != nil {
		return util.Uint160{}, nil, nil, fmt.Errorf("field Account: %w", err)
	}

	amount, err := arr[1].TryInteger()
	if err != nil {
		return util.Uint160{}, nil, nil, fmt.Errorf("field Amount: %w", err)
	}

	balance, err := arr[2].TryInteger()
	if err != nil {
		return util.Uint160{}, nil, nil, fmt.Errorf("field Balance: %w", err)
	}

	return acc, amount, balance, nil
}

// WithdrawalLimitUpdatedEventsFromApplicationLog retrieves a set of all emitted events
// with "WithdrawalLimitUpdated" name from the provided [result.ApplicationLog].
func WithdrawalLimitUpdatedEventsFromApplicationLog(log *result.ApplicationLog) ([]*WithdrawalLimitUpdatedEvent, error) {
	return eventsFromApplicationLog[WithdrawalLimitUpdatedEvent](log, "WithdrawalLimitUpdated")
}

// FromStackItem converts provided [stackitem.Array] to WithdrawalLimitUpdatedEvent or
// returns an error if it's not possible to do to so.
func (e *WithdrawalLimitUpdatedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 2)
	if err != nil {
		return err
	}

	e.OldLimit, err = arr[0].TryInteger()
	if err != nil {
		return fmt.Errorf("field OldLimit: %w", err)
	}

	e.NewLimit, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field NewLimit: %w", err)
	}

	return nil
}
