package bankrecv

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	bankKey     = 'b'
	depthKey    = 'd'
	maxDepthKey = 'm'
	rejectKey   = 'r'
	observedKey = 'o'
)

// nolint:unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}

	bank := data.(interop.Hash160)
	if len(bank) != interop.Hash160Len {
		panic("invalid bank contract hash")
	}

	storage.Put(storage.GetContext(), bankKey, bank)
}

// Fund deposits GAS owned by the contract to the bank.
func Fund(amount int) {
	ctx := storage.GetContext()

	transferred := gas.Transfer(runtime.GetExecutingScriptHash(), getBank(ctx), amount, nil)
	if !transferred {
		panic("failed to fund the bank")
	}
}

// Withdraw withdraws amount from the bank and then re-enters bank's withdraw
// from the payment callback reentries times with the same amount.
func Withdraw(amount, reentries int) {
	ctx := storage.GetContext()

	storage.Put(ctx, depthKey, 0)
	storage.Put(ctx, maxDepthKey, reentries)
	storage.Put(ctx, observedKey, std.Serialize([]int{}))

	contract.Call(getBank(ctx), "withdraw", contract.All, runtime.GetExecutingScriptHash(), amount)
}

// SetReject makes the contract abort any payment from the bank.
func SetReject(reject bool) {
	storage.Put(storage.GetContext(), rejectKey, reject)
}

// Observed returns balances reported by the bank inside the payment callbacks
// of the last Withdraw.
func Observed() []int {
	val := storage.Get(storage.GetReadOnlyContext(), observedKey)
	if val == nil {
		return []int{}
	}

	return std.Deserialize(val.([]byte)).([]int)
}

// OnNEP17Payment accepts any GAS. Payments from the bank are recorded and may
// trigger another withdrawal.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	ctx := storage.GetContext()
	bank := getBank(ctx)

	if !from.Equals(bank) {
		return
	}

	reject := storage.Get(ctx, rejectKey)
	if reject != nil && reject.(bool) {
		panic("payment rejected")
	}

	self := runtime.GetExecutingScriptHash()
	balance := contract.Call(bank, "getBalance", contract.ReadOnly, self).(int)

	observed := Observed()
	observed = append(observed, balance)
	storage.Put(ctx, observedKey, std.Serialize(observed))

	var (
		depthVal    = storage.Get(ctx, depthKey)
		maxDepthVal = storage.Get(ctx, maxDepthKey)
		depth       = depthVal.(int)
	)

	if depth >= maxDepthVal.(int) {
		return
	}

	storage.Put(ctx, depthKey, depth+1)
	contract.Call(bank, "withdraw", contract.All, self, amount)
}

func getBank(ctx storage.Context) interop.Hash160 {
	bank := storage.Get(ctx, bankKey)
	return bank.(interop.Hash160)
}
