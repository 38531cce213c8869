package tests

import (
	"path"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/neotest/chain"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

const (
	bankPath     = "../contracts/bank"
	bankRecvPath = "../internal/testcontracts/bankrecv"
)

func newExecutor(t *testing.T) *neotest.Executor {
	bc, acc := chain.NewSingle(t)
	return neotest.NewExecutor(t, bc, acc, acc)
}

func compileBankContract(t *testing.T, e *neotest.Executor) *neotest.Contract {
	return neotest.CompileFile(t, e.CommitteeHash, bankPath, path.Join(bankPath, "config.yml"))
}

func deployBankContract(t *testing.T, e *neotest.Executor, bankCap, withdrawalLimit int64) util.Uint160 {
	c := compileBankContract(t, e)
	e.DeployContract(t, c, []any{bankCap, withdrawalLimit})
	return c.Hash
}

// newBankInvoker deploys Bank contract on a fresh chain and returns its
// invoker signed by the owner of the ledger.
func newBankInvoker(t *testing.T, bankCap, withdrawalLimit int64) *neotest.ContractInvoker {
	e := newExecutor(t)
	return e.CommitteeInvoker(deployBankContract(t, e, bankCap, withdrawalLimit))
}

// newBankReceiver deploys a receiver contract talking to the given bank.
func newBankReceiver(t *testing.T, bank *neotest.ContractInvoker) *neotest.ContractInvoker {
	c := neotest.CompileFile(t, bank.CommitteeHash, bankRecvPath, path.Join(bankRecvPath, "config.yml"))
	bank.DeployContract(t, c, bank.Hash)
	return bank.CommitteeInvoker(c.Hash)
}

func nativeInvoker(t *testing.T, e *neotest.Executor, name string, signer neotest.Signer) *neotest.ContractInvoker {
	h, err := e.Chain.GetNativeContractScriptHash(name)
	require.NoError(t, err)
	return e.NewInvoker(h, signer)
}

// transferGAS sends GAS from the validator to the account.
func transferGAS(t *testing.T, e *neotest.Executor, to util.Uint160, amount int64) {
	nativeInvoker(t, e, nativenames.Gas, e.Validator).Invoke(t, true, "transfer",
		e.Validator.ScriptHash(), to, amount, nil)
}

func deposit(t *testing.T, bank *neotest.ContractInvoker, acc neotest.Signer, amount int64) util.Uint256 {
	return nativeInvoker(t, bank.Executor, nativenames.Gas, acc).Invoke(t, true, "transfer",
		acc.ScriptHash(), bank.Hash, amount, nil)
}

func depositFail(t *testing.T, bank *neotest.ContractInvoker, acc neotest.Signer, amount int64, msg string) {
	nativeInvoker(t, bank.Executor, nativenames.Gas, acc).InvokeFail(t, msg, "transfer",
		acc.ScriptHash(), bank.Hash, amount, nil)
}

func withdraw(t *testing.T, bank *neotest.ContractInvoker, acc neotest.Signer, amount int64) util.Uint256 {
	return bank.WithSigners(acc).Invoke(t, stackitem.Null{}, "withdraw", acc.ScriptHash(), amount)
}

func withdrawFail(t *testing.T, bank *neotest.ContractInvoker, acc neotest.Signer, amount int64, msg string) {
	bank.WithSigners(acc).InvokeFail(t, msg, "withdraw", acc.ScriptHash(), amount)
}

func testInvokeItem(t *testing.T, c *neotest.ContractInvoker, method string, args ...any) stackitem.Item {
	s, err := c.TestInvoke(t, method, args...)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	return s.Pop().Item()
}

func testInvokeInt(t *testing.T, c *neotest.ContractInvoker, method string, args ...any) int64 {
	n, err := testInvokeItem(t, c, method, args...).TryInteger()
	require.NoError(t, err)
	return n.Int64()
}

func balanceOf(t *testing.T, bank *neotest.ContractInvoker, acc util.Uint160) int64 {
	return testInvokeInt(t, bank, "getBalance", acc)
}

type bankStats struct {
	totalDeposits   int64
	depositCount    int64
	withdrawalCount int64
	capUsage        int64
	bankCap         int64
}

func getBankStats(t *testing.T, bank *neotest.ContractInvoker) bankStats {
	fields, ok := testInvokeItem(t, bank, "getBankStats").Value().([]stackitem.Item)
	require.True(t, ok)
	require.Len(t, fields, 5)

	vals := make([]int64, len(fields))
	for i := range fields {
		n, err := fields[i].TryInteger()
		require.NoError(t, err)
		vals[i] = n.Int64()
	}

	return bankStats{
		totalDeposits:   vals[0],
		depositCount:    vals[1],
		withdrawalCount: vals[2],
		capUsage:        vals[3],
		bankCap:         vals[4],
	}
}

// listAccounts returns all balances stored in the ledger.
func listAccounts(t *testing.T, bank *neotest.ContractInvoker) map[util.Uint160]int64 {
	iter, ok := testInvokeItem(t, bank, "accounts").Value().(*storage.Iterator)
	require.True(t, ok)

	res := make(map[util.Uint160]int64)
	for _, item := range iteratorToArray(iter) {
		kv, ok := item.Value().([]stackitem.Item)
		require.True(t, ok)
		require.Len(t, kv, 2)

		k, err := kv[0].TryBytes()
		require.NoError(t, err)
		acc, err := util.Uint160DecodeBytesBE(k)
		require.NoError(t, err)

		v, err := kv[1].TryInteger()
		require.NoError(t, err)

		res[acc] = v.Int64()
	}

	return res
}

func iteratorToArray(iter *storage.Iterator) []stackitem.Item {
	stackItems := make([]stackitem.Item, 0)
	for iter.Next() {
		stackItems = append(stackItems, iter.Value())
	}
	return stackItems
}

// checkInvariants checks that total holdings equal the sum of all balances
// and never exceed the bank capacity.
func checkInvariants(t *testing.T, bank *neotest.ContractInvoker) {
	stats := getBankStats(t, bank)

	var sum int64
	for _, b := range listAccounts(t, bank) {
		require.GreaterOrEqual(t, b, int64(0))
		sum += b
	}

	require.Equal(t, stats.totalDeposits, sum)
	require.Equal(t, stats.totalDeposits, stats.capUsage)
	require.LessOrEqual(t, stats.totalDeposits, stats.bankCap)
}

// contractEvents returns all notifications with the given name emitted by
// the contract in the transaction.
func contractEvents(t *testing.T, c *neotest.ContractInvoker, h util.Uint256, name string) []state.NotificationEvent {
	var res []state.NotificationEvent

	for _, ev := range c.GetTxExecResult(t, h).Events {
		if ev.ScriptHash.Equals(c.Hash) && ev.Name == name {
			res = append(res, ev)
		}
	}

	return res
}

// checkEventArgs checks notification parameters. Expected values are either
// script hashes or integers.
func checkEventArgs(t *testing.T, ev state.NotificationEvent, expected ...any) {
	arr, ok := ev.Item.Value().([]stackitem.Item)
	require.True(t, ok)
	require.Len(t, arr, len(expected))

	for i := range expected {
		switch v := expected[i].(type) {
		case util.Uint160:
			b, err := arr[i].TryBytes()
			require.NoError(t, err)
			require.Equal(t, v.BytesBE(), b, "parameter #%d", i)
		case int:
			n, err := arr[i].TryInteger()
			require.NoError(t, err)
			require.EqualValues(t, v, n.Int64(), "parameter #%d", i)
		default:
			t.Fatalf("unexpected parameter type %T", v)
		}
	}
}
