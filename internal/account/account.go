package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/apperror"
)

const domain = "ACCOUNT"

var (
	ErrNotFound               = apperror.New(apperror.KindNotFound, domain, "ACCOUNT_NOT_FOUND", "Account not found")
	ErrAccountLimitExceeded   = apperror.New(apperror.KindConflict, domain, "ACCOUNT_LIMIT_EXCEEDED", "Account limit exceeded for this account type")
	ErrAccountNumberExists    = apperror.New(apperror.KindConflict, domain, "ACCOUNT_NUMBER_EXISTS", "Account number already exists")
	ErrInvalidAccountType     = apperror.New(apperror.KindInvalidInput, domain, "INVALID_ACCOUNT_TYPE", "Invalid account type")
	ErrNegativeBalance        = apperror.New(apperror.KindInvalidInput, domain, "NEGATIVE_BALANCE", "Balance cannot be negative")
	ErrConcurrentModification = apperror.New(apperror.KindSystem, domain, "CONCURRENT_MODIFICATION", "Account was modified concurrently")
)

// Type is the product kind of an account.
type Type string

const (
	TypeChecking Type = "CHECKING"
	TypeSavings  Type = "SAVINGS"
)

func (t Type) Valid() bool {
	return t == TypeChecking || t == TypeSavings
}

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusClosed    Status = "CLOSED"
)

// Account holds a non-negative balance owned by one user. Version is bumped
// by every balance or status write and guards read-modify-write cycles.
type Account struct {
	ID        uuid.UUID
	Number    string
	Type      Type
	Status    Status
	Balance   decimal.Decimal
	UserID    uuid.UUID
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
