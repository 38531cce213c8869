package main

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Storage layout of the ledger contract.
const (
	ownerKey       = 'o'
	bankCapKey     = 'c'
	limitKey       = 'l'
	totalKey       = 't'
	depositsKey    = 'd'
	withdrawalsKey = 'w'

	balancePrefix = 'b'
)

var errBrokenInvariant = errors.New("ledger invariant is broken")

// ledgerState is a ledger decoded from raw contract storage.
type ledgerState struct {
	owner           util.Uint160
	bankCap         *big.Int
	withdrawalLimit *big.Int
	total           *big.Int
	deposits        *big.Int
	withdrawals     *big.Int
	balances        map[util.Uint160]*big.Int
}

func newLedgerState() *ledgerState {
	return &ledgerState{
		bankCap:         new(big.Int),
		withdrawalLimit: new(big.Int),
		total:           new(big.Int),
		deposits:        new(big.Int),
		withdrawals:     new(big.Int),
		balances:        make(map[util.Uint160]*big.Int),
	}
}

// add decodes single storage item. It is suitable as iterateContractStorage
// callback.
func (s *ledgerState) add(key, value []byte) error {
	if len(key) == 0 {
		return errors.New("empty storage key")
	}

	if key[0] == balancePrefix {
		acc, err := util.Uint160DecodeBytesBE(key[1:])
		if err != nil {
			return fmt.Errorf("invalid balance key %x: %w", key, err)
		}
		s.balances[acc] = bigint.FromBytes(value)
		return nil
	}

	if len(key) != 1 {
		return fmt.Errorf("unexpected storage key %x", key)
	}

	switch key[0] {
	case ownerKey:
		owner, err := util.Uint160DecodeBytesBE(value)
		if err != nil {
			return fmt.Errorf("invalid owner: %w", err)
		}
		s.owner = owner
	case bankCapKey:
		s.bankCap = bigint.FromBytes(value)
	case limitKey:
		s.withdrawalLimit = bigint.FromBytes(value)
	case totalKey:
		s.total = bigint.FromBytes(value)
	case depositsKey:
		s.deposits = bigint.FromBytes(value)
	case withdrawalsKey:
		s.withdrawals = bigint.FromBytes(value)
	default:
		return fmt.Errorf("unexpected storage key %x", key)
	}

	return nil
}

// check verifies that total holdings equal the sum of all balances, never
// exceed the capacity and that no balance is negative.
func (s *ledgerState) check() error {
	sum := new(big.Int)

	for acc, b := range s.balances {
		if b.Sign() < 0 {
			return fmt.Errorf("%w: negative balance of %s", errBrokenInvariant, acc.StringLE())
		}
		sum.Add(sum, b)
	}

	if sum.Cmp(s.total) != 0 {
		return fmt.Errorf("%w: total holdings %s differ from the sum of balances %s", errBrokenInvariant, s.total, sum)
	}

	if s.total.Cmp(s.bankCap) > 0 {
		return fmt.Errorf("%w: total holdings %s exceed capacity %s", errBrokenInvariant, s.total, s.bankCap)
	}

	return nil
}
