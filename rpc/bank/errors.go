package bank

import (
	"errors"
	"strings"

	"github.com/bankcap/ledger-contract/contracts/bank/bankconst"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
)

// Errors returned by the contract. They are recognized in VM fault
// exceptions by ParseFault.
var (
	ErrZeroAmount             = errors.New("zero amount")
	ErrNegativeAmount         = errors.New("negative amount")
	ErrExceedsBankCap         = errors.New("deposit exceeds bank capacity")
	ErrExceedsWithdrawalLimit = errors.New("amount exceeds withdrawal limit")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrTransferFailed         = errors.New("GAS transfer failed")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrOnlyGAS                = errors.New("only GAS deposits are accepted")
)

var faults = []struct {
	msg string
	err error
}{
	{bankconst.ErrZeroAmount, ErrZeroAmount},
	{bankconst.ErrNegativeAmount, ErrNegativeAmount},
	{bankconst.ErrExceedsBankCap, ErrExceedsBankCap},
	{bankconst.ErrExceedsWithdrawalLimit, ErrExceedsWithdrawalLimit},
	{bankconst.ErrInsufficientFunds, ErrInsufficientFunds},
	{bankconst.ErrTransferFailed, ErrTransferFailed},
	{bankconst.ErrUnauthorized, ErrUnauthorized},
	{bankconst.ErrOnlyGAS, ErrOnlyGAS},
}

// ParseFault maps VM fault exception to one of the contract errors. It
// returns nil if the exception is not produced by the contract. The message
// must appear quoted as the VM reports an unhandled exception.
func ParseFault(exception string) error {
	for i := range faults {
		if strings.Contains(exception, "\""+faults[i].msg+"\"") {
			return faults[i].err
		}
	}
	return nil
}

// FaultFromApplicationLog returns an error if any execution of the log ended
// in FAULT state. Known contract failures are wrapped into the errors above.
func FaultFromApplicationLog(log *result.ApplicationLog) error {
	if log == nil {
		return errors.New("nil application log")
	}

	for i := range log.Executions {
		if err := faultFromExecution(log.Executions[i]); err != nil {
			return err
		}
	}

	return nil
}

// FaultFromExecution is the same as FaultFromApplicationLog but for the
// result returned by actor.Waiter.
func FaultFromExecution(res *state.AppExecResult) error {
	if res == nil {
		return errors.New("nil execution result")
	}
	return faultFromExecution(res.Execution)
}

// ApplicationLog wraps the result returned by actor.Waiter so that it can be
// passed to the *EventsFromApplicationLog functions.
func ApplicationLog(res *state.AppExecResult) *result.ApplicationLog {
	return &result.ApplicationLog{
		Container:     res.Container,
		IsTransaction: true,
		Executions:    []state.Execution{res.Execution},
	}
}

func faultFromExecution(ex state.Execution) error {
	if ex.VMState != vmstate.Fault {
		return nil
	}
	if err := ParseFault(ex.FaultException); err != nil {
		return err
	}
	return errors.New(ex.FaultException)
}
