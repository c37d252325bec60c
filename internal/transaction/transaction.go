package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
)

// Type is the kind of money movement a transaction describes.
type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypePayment    Type = "PAYMENT"
	TypeRefund     Type = "REFUND"
	TypeFeeCharge  Type = "FEE_CHARGE"
	// TypeTransfer is declared for two-account movements but has no creation
	// or processing path yet.
	TypeTransfer Type = "TRANSFER"
)

var Types = []Type{TypeDeposit, TypeWithdrawal, TypePayment, TypeRefund, TypeFeeCharge, TypeTransfer}

func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}

	return false
}

// Processable reports whether the engine can create and process t.
func (t Type) Processable() bool {
	return t == TypeDeposit || t == TypeWithdrawal || t == TypePayment
}

// Debit reports whether t takes money out of its account.
func (t Type) Debit() bool {
	return t == TypeWithdrawal || t == TypePayment
}

// Status represents the lifecycle state of a transaction.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusReversed   Status = "REVERSED"
)

var Statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled, StatusReversed}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}

	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusReversed:
		return true
	}

	return false
}

// CanTransitionTo encodes the lifecycle:
// PENDING -> PROCESSING | FAILED, PROCESSING -> COMPLETED | FAILED.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}

	return false
}

// EventTypeForStatus is the audit event recorded when a transaction enters s.
func EventTypeForStatus(s Status) audit.EventType {
	switch s {
	case StatusPending:
		return audit.EventTransactionCreated
	case StatusProcessing:
		return audit.EventTransactionProcessing
	case StatusCompleted:
		return audit.EventTransactionCompleted
	case StatusFailed:
		return audit.EventTransactionFailed
	case StatusCancelled:
		return audit.EventTransactionCancelled
	case StatusReversed:
		return audit.EventTransactionReversed
	}

	return audit.EventSystemError
}

const (
	MaxNumberLength      = 50
	MaxDescriptionLength = 500
	MaxNotesLength       = 1000
)

// Transaction is a single money movement against one account. TotalAmount is
// fixed when the transaction is created.
type Transaction struct {
	ID          uuid.UUID
	Number      string
	Type        Type
	Status      Status
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Tax         decimal.Decimal
	TotalAmount decimal.Decimal
	Description string
	Notes       string

	UserID   uuid.UUID
	Username string // Loaded via JOIN

	AccountID     *uuid.UUID
	AccountNumber string // Loaded via JOIN

	SourceAccountID      *uuid.UUID
	DestinationAccountID *uuid.UUID

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}
