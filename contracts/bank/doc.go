/*
Package bank implements Bank contract, a capped custodial ledger of GAS.

Any account deposits GAS by transferring it to the contract; the amount is
credited to the sender's balance in the ledger. Total holdings of the ledger
never exceed the bank capacity fixed at deployment. An account withdraws its
own GAS back, at most the withdrawal limit per operation. The withdrawal
limit can be changed by the owner of the ledger only, the owner is the sender
of the deployment transaction.

Every invocation is executed as a whole: an exception reverts all storage
changes of the transaction, including the GAS transfer of a deposit or a
withdrawal.

# Contract notifications

LedgerInitialized notification. This notification is produced once when the
contract is deployed.

	LedgerInitialized:
	  - name: owner
	    type: Hash160
	  - name: bankCap
	    type: Integer
	  - name: withdrawalLimit
	    type: Integer

Deposit notification. This notification is produced when GAS is deposited to
the ledger. It contains the resulting balance of the account.

	Deposit:
	  - name: account
	    type: Hash160
	  - name: amount
	    type: Integer
	  - name: balance
	    type: Integer

Withdrawal notification. This notification is produced when GAS is withdrawn
from the ledger and transferred to the account. It contains the balance of
the account stored after the transfer, so nested withdrawals made from the
account's payment callback are already deducted.

	Withdrawal:
	  - name: account
	    type: Hash160
	  - name: amount
	    type: Integer
	  - name: balance
	    type: Integer

WithdrawalLimitUpdated notification. This notification is produced when the
owner changes the withdrawal limit.

	WithdrawalLimitUpdated:
	  - name: oldLimit
	    type: Integer
	  - name: newLimit
	    type: Integer
*/
package bank
