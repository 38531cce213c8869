/*
Package bankconst contains constants shared by the Bank contract and its
off-chain clients.

Contract storage model.

# Summary
Key-value storage format:
  - 'o' -> interop.Hash160
    owner of the ledger, sender of the deployment transaction
  - 'c' -> int
    bank capacity, maximum amount of GAS the ledger may hold in total
  - 'l' -> int
    withdrawal limit, maximum amount of GAS movable by a single withdrawal
  - 't' -> int
    sum of all account balances
  - 'd' -> int
    number of successful deposits
  - 'w' -> int
    number of successful withdrawals
  - 'b' + <interop.Hash160> -> int
    balance of the account; entries are never deleted

# Accounting
Amounts are expressed in the smallest GAS units (10^-8 GAS). An account
that has never deposited has a zero balance.
*/
package bankconst

// Exception messages the contract panics with. Any of them faults the whole
// transaction, so no state change made by the invocation persists.
const (
	// ErrZeroAmount is thrown when deposited or withdrawn amount is zero.
	ErrZeroAmount = "ZeroAmount"
	// ErrExceedsBankCap is thrown when a deposit would push total holdings
	// above the bank capacity.
	ErrExceedsBankCap = "ExceedsBankCap"
	// ErrExceedsWithdrawalLimit is thrown when withdrawn amount is above the
	// current withdrawal limit.
	ErrExceedsWithdrawalLimit = "ExceedsWithdrawalLimit"
	// ErrInsufficientFunds is thrown when withdrawn amount is above the
	// account balance.
	ErrInsufficientFunds = "InsufficientFunds"
	// ErrTransferFailed is thrown when GAS contract refuses to transfer
	// withdrawn amount to the account.
	ErrTransferFailed = "TransferFailed"
	// ErrUnauthorized is thrown when the invocation is not witnessed by the
	// account the operation requires.
	ErrUnauthorized = "Unauthorized"
	// ErrNegativeAmount is thrown when a configuration value is negative.
	ErrNegativeAmount = "NegativeAmount"
	// ErrOnlyGAS is thrown when the contract receives any token but GAS.
	ErrOnlyGAS = "OnlyGAS"
)

// Names of the notifications produced by the contract.
const (
	LedgerInitializedEvent      = "LedgerInitialized"
	DepositEvent                = "Deposit"
	WithdrawalEvent             = "Withdrawal"
	WithdrawalLimitUpdatedEvent = "WithdrawalLimitUpdated"
)
