package tests

import (
	"math/big"
	"testing"

	"github.com/bankcap/ledger-contract/common"
	"github.com/bankcap/ledger-contract/contracts/bank/bankconst"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

func TestBank_Deploy(t *testing.T) {
	e := newExecutor(t)

	t.Run("negative parameters", func(t *testing.T) {
		c := compileBankContract(t, e)
		e.DeployContractCheckFAULT(t, c, []any{int64(-1), int64(5)}, bankconst.ErrNegativeAmount)
		e.DeployContractCheckFAULT(t, c, []any{int64(100), int64(-5)}, bankconst.ErrNegativeAmount)
	})

	bank := e.CommitteeInvoker(deployBankContract(t, e, 100, 5))

	deployTx := e.TopBlock(t).Transactions[0].Hash()
	evs := contractEvents(t, bank, deployTx, bankconst.LedgerInitializedEvent)
	require.Len(t, evs, 1)
	checkEventArgs(t, evs[0], e.CommitteeHash, 100, 5)

	bank.Invoke(t, stackitem.NewByteArray(e.CommitteeHash.BytesBE()), "owner")
	bank.Invoke(t, 100, "bankCap")
	bank.Invoke(t, 5, "getWithdrawalLimit")
	bank.Invoke(t, common.Version, "version")
	bank.Invoke(t, false, "isBankFull")

	require.Equal(t, bankStats{bankCap: 100}, getBankStats(t, bank))
	require.Empty(t, listAccounts(t, bank))
}

func TestBank_Scenario(t *testing.T) {
	bank := newBankInvoker(t, 100, 5)
	a, b := bank.NewAccount(t), bank.NewAccount(t)

	deposit(t, bank, a, 10)
	require.EqualValues(t, 10, balanceOf(t, bank, a.ScriptHash()))
	require.EqualValues(t, 10, getBankStats(t, bank).totalDeposits)

	depositFail(t, bank, b, 95, bankconst.ErrExceedsBankCap)
	require.EqualValues(t, 0, balanceOf(t, bank, b.ScriptHash()))
	require.Equal(t, bankStats{
		totalDeposits: 10,
		depositCount:  1,
		capUsage:      10,
		bankCap:       100,
	}, getBankStats(t, bank))

	withdrawFail(t, bank, a, 6, bankconst.ErrExceedsWithdrawalLimit)
	require.EqualValues(t, 10, balanceOf(t, bank, a.ScriptHash()))

	withdraw(t, bank, a, 3)
	require.EqualValues(t, 7, balanceOf(t, bank, a.ScriptHash()))
	require.Equal(t, bankStats{
		totalDeposits:   7,
		depositCount:    1,
		withdrawalCount: 1,
		capUsage:        7,
		bankCap:         100,
	}, getBankStats(t, bank))

	bank.WithSigners(b).InvokeFail(t, bankconst.ErrUnauthorized, "setWithdrawalLimit", 10)
	bank.Invoke(t, 5, "getWithdrawalLimit")

	bank.CheckGASBalance(t, bank.Hash, big.NewInt(7))
	checkInvariants(t, bank)
}

func TestBank_Deposit(t *testing.T) {
	t.Run("fill to capacity", func(t *testing.T) {
		bank := newBankInvoker(t, 100, 5)
		a, b := bank.NewAccount(t), bank.NewAccount(t)

		deposit(t, bank, a, 60)
		bank.Invoke(t, false, "isBankFull")

		h := deposit(t, bank, b, 40)
		evs := contractEvents(t, bank, h, bankconst.DepositEvent)
		require.Len(t, evs, 1)
		checkEventArgs(t, evs[0], b.ScriptHash(), 40, 40)

		bank.Invoke(t, true, "isBankFull")
		depositFail(t, bank, a, 1, bankconst.ErrExceedsBankCap)

		require.EqualValues(t, 60, balanceOf(t, bank, a.ScriptHash()))
		require.EqualValues(t, 40, balanceOf(t, bank, b.ScriptHash()))
		checkInvariants(t, bank)
	})

	t.Run("sequential deposits accumulate", func(t *testing.T) {
		bank := newBankInvoker(t, 100, 5)
		a, b := bank.NewAccount(t), bank.NewAccount(t)

		deposit(t, bank, a, 3)
		h := deposit(t, bank, a, 4)
		deposit(t, bank, b, 7)

		evs := contractEvents(t, bank, h, bankconst.DepositEvent)
		require.Len(t, evs, 1)
		checkEventArgs(t, evs[0], a.ScriptHash(), 4, 7)

		require.Equal(t, balanceOf(t, bank, a.ScriptHash()), balanceOf(t, bank, b.ScriptHash()))
		require.EqualValues(t, 3, getBankStats(t, bank).depositCount)
		checkInvariants(t, bank)
	})

	t.Run("zero amount", func(t *testing.T) {
		bank := newBankInvoker(t, 100, 5)
		a := bank.NewAccount(t)

		depositFail(t, bank, a, 0, bankconst.ErrZeroAmount)
		require.EqualValues(t, 0, getBankStats(t, bank).depositCount)
	})

	t.Run("zero capacity", func(t *testing.T) {
		bank := newBankInvoker(t, 0, 5)
		a := bank.NewAccount(t)

		bank.Invoke(t, true, "isBankFull")
		depositFail(t, bank, a, 1, bankconst.ErrExceedsBankCap)
	})

	t.Run("only GAS", func(t *testing.T) {
		bank := newBankInvoker(t, 100, 5)
		a := bank.NewAccount(t)

		bank.WithSigners(a).InvokeFail(t, bankconst.ErrOnlyGAS, "onNEP17Payment", a.ScriptHash(), 10, nil)

		neo := nativeInvoker(t, bank.Executor, nativenames.Neo, bank.Validator)
		neo.InvokeFail(t, bankconst.ErrOnlyGAS, "transfer", bank.Validator.ScriptHash(), bank.Hash, 1, nil)

		require.EqualValues(t, 0, balanceOf(t, bank, a.ScriptHash()))
		require.EqualValues(t, 0, getBankStats(t, bank).totalDeposits)
	})
}

func TestBank_Withdraw(t *testing.T) {
	t.Run("withdrawal limit", func(t *testing.T) {
		bank := newBankInvoker(t, 100, 5)
		a, b := bank.NewAccount(t), bank.NewAccount(t)

		deposit(t, bank, a, 50)
		deposit(t, bank, b, 3)

		h := withdraw(t, bank, a, 5)
		evs := contractEvents(t, bank, h, bankconst.WithdrawalEvent)
		require.Len(t, evs, 1)
		checkEventArgs(t, evs[0], a.ScriptHash(), 5, 45)

		withdrawFail(t, bank, a, 6, bankconst.ErrExceedsWithdrawalLimit)
		// limit is checked before the balance
		withdrawFail(t, bank, b, 6, bankconst.ErrExceedsWithdrawalLimit)

		require.EqualValues(t, 45, balanceOf(t, bank, a.ScriptHash()))
		require.EqualValues(t, 3, balanceOf(t, bank, b.ScriptHash()))
		require.EqualValues(t, 1, getBankStats(t, bank).withdrawalCount)
		checkInvariants(t, bank)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		bank := newBankInvoker(t, 100, 5)
		a, b := bank.NewAccount(t), bank.NewAccount(t)

		withdrawFail(t, bank, a, 1, bankconst.ErrInsufficientFunds)

		deposit(t, bank, b, 2)
		withdrawFail(t, bank, b, 3, bankconst.ErrInsufficientFunds)
		withdraw(t, bank, b, 2)

		require.EqualValues(t, 0, balanceOf(t, bank, b.ScriptHash()))
		require.EqualValues(t, 1, getBankStats(t, bank).withdrawalCount)
		bank.CheckGASBalance(t, bank.Hash, big.NewInt(0))
		checkInvariants(t, bank)
	})

	t.Run("zero amount", func(t *testing.T) {
		bank := newBankInvoker(t, 100, 5)
		a := bank.NewAccount(t)

		deposit(t, bank, a, 10)
		withdrawFail(t, bank, a, 0, bankconst.ErrZeroAmount)
		withdrawFail(t, bank, a, -1, bankconst.ErrNegativeAmount)
		require.EqualValues(t, 10, balanceOf(t, bank, a.ScriptHash()))
	})

	t.Run("foreign account", func(t *testing.T) {
		bank := newBankInvoker(t, 100, 5)
		a, b := bank.NewAccount(t), bank.NewAccount(t)

		deposit(t, bank, a, 10)
		bank.WithSigners(b).InvokeFail(t, bankconst.ErrUnauthorized, "withdraw", a.ScriptHash(), 1)
		bank.InvokeFail(t, bankconst.ErrUnauthorized, "withdraw", a.ScriptHash(), 1)

		require.EqualValues(t, 10, balanceOf(t, bank, a.ScriptHash()))
	})

	t.Run("GAS is returned to the user", func(t *testing.T) {
		bank := newBankInvoker(t, 100, 5)
		a := bank.NewAccount(t)

		deposit(t, bank, a, 10)
		h := withdraw(t, bank, a, 4)

		bank.CheckGASBalance(t, bank.Hash, big.NewInt(6))

		gasHash, err := bank.Chain.GetNativeContractScriptHash(nativenames.Gas)
		require.NoError(t, err)

		var transfers []state.NotificationEvent
		for _, ev := range bank.GetTxExecResult(t, h).Events {
			if ev.ScriptHash.Equals(gasHash) && ev.Name == "Transfer" {
				transfers = append(transfers, ev)
			}
		}
		require.Len(t, transfers, 1)
		checkEventArgs(t, transfers[0], bank.Hash, a.ScriptHash(), 4)
	})
}

func TestBank_SetWithdrawalLimit(t *testing.T) {
	bank := newBankInvoker(t, 100, 5)
	a := bank.NewAccount(t)

	deposit(t, bank, a, 50)

	bank.WithSigners(a).InvokeFail(t, bankconst.ErrUnauthorized, "setWithdrawalLimit", 10)
	bank.InvokeFail(t, bankconst.ErrNegativeAmount, "setWithdrawalLimit", -1)
	bank.Invoke(t, 5, "getWithdrawalLimit")

	h := bank.Invoke(t, stackitem.Null{}, "setWithdrawalLimit", 20)
	evs := contractEvents(t, bank, h, bankconst.WithdrawalLimitUpdatedEvent)
	require.Len(t, evs, 1)
	checkEventArgs(t, evs[0], 5, 20)

	bank.Invoke(t, 20, "getWithdrawalLimit")
	withdraw(t, bank, a, 20)

	t.Run("zero limit blocks withdrawals", func(t *testing.T) {
		bank.Invoke(t, stackitem.Null{}, "setWithdrawalLimit", 0)
		withdrawFail(t, bank, a, 1, bankconst.ErrExceedsWithdrawalLimit)
	})

	t.Run("limit above capacity", func(t *testing.T) {
		bank.Invoke(t, stackitem.Null{}, "setWithdrawalLimit", 1000)
		bank.Invoke(t, 1000, "getWithdrawalLimit")
		withdraw(t, bank, a, 30)
	})

	require.EqualValues(t, 0, balanceOf(t, bank, a.ScriptHash()))
	checkInvariants(t, bank)
}

func TestBank_Accounts(t *testing.T) {
	bank := newBankInvoker(t, 100, 5)
	a, b, c := bank.NewAccount(t), bank.NewAccount(t), bank.NewAccount(t)

	deposit(t, bank, a, 5)
	deposit(t, bank, b, 7)
	withdraw(t, bank, a, 5)

	require.Equal(t, map[util.Uint160]int64{
		a.ScriptHash(): 0,
		b.ScriptHash(): 7,
	}, listAccounts(t, bank))

	require.EqualValues(t, 0, balanceOf(t, bank, c.ScriptHash()))
	bank.InvokeFail(t, "invalid account script hash", "getBalance", []byte{1, 2, 3})
	checkInvariants(t, bank)
}

func TestBank_Reentrancy(t *testing.T) {
	bank := newBankInvoker(t, 100, 5)
	recv := newBankReceiver(t, bank)

	transferGAS(t, bank.Executor, recv.Hash, 100)
	recv.Invoke(t, stackitem.Null{}, "fund", 10)
	require.EqualValues(t, 10, balanceOf(t, bank, recv.Hash))

	observed := func(t *testing.T) []int64 {
		arr, ok := testInvokeItem(t, recv, "observed").Value().([]stackitem.Item)
		require.True(t, ok)

		res := make([]int64, len(arr))
		for i := range arr {
			n, err := arr[i].TryInteger()
			require.NoError(t, err)
			res[i] = n.Int64()
		}
		return res
	}

	t.Run("nested withdrawal sees decreased balance", func(t *testing.T) {
		h := recv.Invoke(t, stackitem.Null{}, "withdraw", 4, 1)

		require.Equal(t, []int64{6, 2}, observed(t))
		require.EqualValues(t, 2, balanceOf(t, bank, recv.Hash))
		bank.CheckGASBalance(t, bank.Hash, big.NewInt(2))

		evs := contractEvents(t, bank, h, bankconst.WithdrawalEvent)
		require.Len(t, evs, 2)
		// both notifications are emitted after the inner withdrawal
		checkEventArgs(t, evs[0], recv.Hash, 4, 2)
		checkEventArgs(t, evs[1], recv.Hash, 4, 2)

		checkInvariants(t, bank)
	})

	t.Run("nested withdrawals cannot overdraw", func(t *testing.T) {
		recv.Invoke(t, stackitem.Null{}, "fund", 8)
		require.EqualValues(t, 10, balanceOf(t, bank, recv.Hash))

		recv.InvokeFail(t, bankconst.ErrInsufficientFunds, "withdraw", 4, 2)

		require.EqualValues(t, 10, balanceOf(t, bank, recv.Hash))
		require.EqualValues(t, 2, getBankStats(t, bank).withdrawalCount)
		bank.CheckGASBalance(t, bank.Hash, big.NewInt(10))
		checkInvariants(t, bank)
	})

	t.Run("rejected payment reverts withdrawal", func(t *testing.T) {
		recv.Invoke(t, stackitem.Null{}, "setReject", true)
		recv.InvokeFail(t, "payment rejected", "withdraw", 4, 0)

		require.EqualValues(t, 10, balanceOf(t, bank, recv.Hash))
		require.EqualValues(t, 2, getBankStats(t, bank).withdrawalCount)
		bank.CheckGASBalance(t, bank.Hash, big.NewInt(10))

		recv.Invoke(t, stackitem.Null{}, "setReject", false)
		recv.Invoke(t, stackitem.Null{}, "withdraw", 4, 0)
		require.EqualValues(t, 6, balanceOf(t, bank, recv.Hash))
		checkInvariants(t, bank)
	})
}

func TestBank_Invariants(t *testing.T) {
	bank := newBankInvoker(t, 50, 5)
	accs := []neotest.Signer{bank.NewAccount(t), bank.NewAccount(t), bank.NewAccount(t)}

	for i := 0; i < 6; i++ {
		acc := accs[i%len(accs)]
		deposit(t, bank, acc, int64(i+5))
		checkInvariants(t, bank)

		withdraw(t, bank, acc, int64(i%5+1))
		checkInvariants(t, bank)
	}

	depositFail(t, bank, accs[0], 50, bankconst.ErrExceedsBankCap)
	checkInvariants(t, bank)
}
