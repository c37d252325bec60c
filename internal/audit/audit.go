// Package audit is the append-only trail of everything the ledger observed
// happening to a transaction, including rejected attempts.
package audit

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/apperror"
)

var (
	ErrInvalidDateRange = apperror.New(apperror.KindInvalidInput, "AUDIT", "INVALID_DATE_RANGE", "Start date must not be after end date")
	ErrInvalidThreshold = apperror.New(apperror.KindInvalidInput, "AUDIT", "INVALID_THRESHOLD", "Failure threshold must be at least 1")
)

type EventType string

const (
	EventTransactionCreated    EventType = "TRANSACTION_CREATED"
	EventTransactionProcessing EventType = "TRANSACTION_PROCESSING"
	EventTransactionCompleted  EventType = "TRANSACTION_COMPLETED"
	EventTransactionFailed     EventType = "TRANSACTION_FAILED"
	EventTransactionCancelled  EventType = "TRANSACTION_CANCELLED"
	EventTransactionReversed   EventType = "TRANSACTION_REVERSED"
	EventBalanceUpdated        EventType = "BALANCE_UPDATED"
	EventValidationFailed      EventType = "VALIDATION_FAILED"
	EventAuthorizationRequired EventType = "AUTHORIZATION_REQUIRED"
	EventFraudDetected         EventType = "FRAUD_DETECTED"
	EventComplianceCheck       EventType = "COMPLIANCE_CHECK"
	EventSystemError           EventType = "SYSTEM_ERROR"
)

var EventTypes = []EventType{
	EventTransactionCreated,
	EventTransactionProcessing,
	EventTransactionCompleted,
	EventTransactionFailed,
	EventTransactionCancelled,
	EventTransactionReversed,
	EventBalanceUpdated,
	EventValidationFailed,
	EventAuthorizationRequired,
	EventFraudDetected,
	EventComplianceCheck,
	EventSystemError,
}

func (e EventType) Valid() bool {
	for _, t := range EventTypes {
		if t == e {
			return true
		}
	}

	return false
}

// Record is a denormalized snapshot taken when the event happened. It never
// changes after it is written.
type Record struct {
	ID int64

	// TransactionID is nil for attempts rejected before anything was stored.
	TransactionID     *uuid.UUID
	TransactionNumber string
	TransactionType   string
	Amount            decimal.NullDecimal
	TotalAmount       decimal.NullDecimal

	UserID   *uuid.UUID
	Username string

	AccountID                *uuid.UUID
	AccountNumber            string
	SourceAccountID          *uuid.UUID
	SourceAccountNumber      string
	DestinationAccountID     *uuid.UUID
	DestinationAccountNumber string

	PreviousStatus string
	NewStatus      string
	EventType      EventType
	Description    string
	AdditionalData string

	IPAddress string
	UserAgent string
	SessionID string

	CreatedAt time.Time
}

const (
	maxDescription    = 500
	maxAdditionalData = 1000
	maxIPAddress      = 45
	maxUserAgent      = 500
	maxSessionID      = 100
)

func (r *Record) clamp() {
	r.Description = truncate(r.Description, maxDescription)
	r.AdditionalData = truncate(r.AdditionalData, maxAdditionalData)
	r.IPAddress = truncate(r.IPAddress, maxIPAddress)
	r.UserAgent = truncate(r.UserAgent, maxUserAgent)
	r.SessionID = truncate(r.SessionID, maxSessionID)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n])
}

// RequestInfo identifies where the request that caused an event came from.
type RequestInfo struct {
	IPAddress string
	UserAgent string
	SessionID string
}

type requestInfoKey struct{}

func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

func RequestInfoFrom(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// Filter narrows record queries. Nil fields do not filter. AccountID and
// AccountNumber match the principal, source and destination account alike.
type Filter struct {
	TransactionID     *uuid.UUID
	TransactionNumber *string
	UserID            *uuid.UUID
	AccountID         *uuid.UUID
	AccountNumber     *string
	EventType         *EventType
	Description       *string
	StartDate         *time.Time
	EndDate           *time.Time
	IPAddress         *string
	SessionID         *string
	PreviousStatus    *string
	NewStatus         *string
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page struct {
	Offset int
	Limit  int
}

func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}

	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}

	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}

	return p
}

type PageResult struct {
	Records []*Record
	Total   int64
	Offset  int
	Limit   int
}

type SuspiciousTransaction struct {
	TransactionID uuid.UUID
	FailureCount  int64
}
