package transaction

import "github.com/MrJamesThe3rd/ledger/internal/apperror"

const domain = "TRANSACTION"

var (
	ErrNotFound                   = apperror.New(apperror.KindNotFound, domain, "TRANSACTION_NOT_FOUND", "Transaction not found")
	ErrTransactionNumberExists    = apperror.New(apperror.KindConflict, domain, "TRANSACTION_NUMBER_EXISTS", "Transaction number already exists")
	ErrInvalidAmount              = apperror.New(apperror.KindInvalidInput, domain, "INVALID_AMOUNT", "Transaction amount must be greater than zero")
	ErrInvalidInput               = apperror.New(apperror.KindInvalidInput, domain, "INVALID_INPUT", "Invalid transaction request")
	ErrUserRequired               = apperror.New(apperror.KindInvalidInput, domain, "USER_REQUIRED", "User is required for transaction")
	ErrAccountRequired            = apperror.New(apperror.KindInvalidInput, domain, "ACCOUNT_REQUIRED", "Account is required")
	ErrUnsupportedTransactionType = apperror.New(apperror.KindInvalidInput, domain, "UNSUPPORTED_TRANSACTION_TYPE", "Unsupported transaction type")
	ErrInsufficientFunds          = apperror.New(apperror.KindInsufficientFunds, domain, "INSUFFICIENT_FUNDS", "Insufficient funds")
	ErrInvalidTransactionStatus   = apperror.New(apperror.KindInvalidState, domain, "INVALID_TRANSACTION_STATUS", "Transaction is not in pending status")
)
