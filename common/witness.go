package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

// CheckWitness checks witness of the passed account.
// It panics with panicMsg message on fail.
func CheckWitness(account interop.Hash160, panicMsg string) {
	if !runtime.CheckWitness(account) {
		panic(panicMsg)
	}
}

// CheckAccount is similar to CheckWitness but also accepts a contract
// account invoking the current contract directly. It panics with panicMsg
// message on fail.
func CheckAccount(account interop.Hash160, panicMsg string) {
	if !IsUsableAddress(account) {
		panic(panicMsg)
	}
}

// IsUsableAddress checks if the account is either a correct Neo address
// which witnessed the transaction or a script hash of the calling contract.
func IsUsableAddress(account interop.Hash160) bool {
	if len(account) != interop.Hash160Len {
		return false
	}

	if runtime.CheckWitness(account) {
		return true
	}

	// Check if a smart contract is calling script hash
	callingScriptHash := runtime.GetCallingScriptHash()

	return callingScriptHash.Equals(account)
}
