package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/account"
	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/money"
	"github.com/MrJamesThe3rd/ledger/internal/user"
)

const defaultMaxRetries = 3

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	// CreateTransaction reports false when the transaction number is taken.
	CreateTransaction(ctx context.Context, tx *Transaction) (bool, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetTransactionByNumber(ctx context.Context, number string) (*Transaction, error)

	// UpdateStatus stores the status, notes and processed time of tx only if
	// the row is still in status from. Otherwise it fails with
	// ErrInvalidTransactionStatus.
	UpdateStatus(ctx context.Context, tx *Transaction, from Status) error

	// ListTransactions returns matches newest first.
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
}

type Accounts interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	UpdateBalance(ctx context.Context, acc *account.Account, balance decimal.Decimal) error
}

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type AuditSink interface {
	Append(ctx context.Context, rec *audit.Record) error
}

type FailureReport interface {
	SuspiciousTransactions(ctx context.Context, start, end time.Time, minFailures int) ([]audit.SuspiciousTransaction, error)
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Options struct {
	// Currency of every amount the engine handles. Empty means USD.
	Currency string
	// ComplianceThreshold triggers a COMPLIANCE_CHECK record for transactions
	// whose amount reaches it. Zero disables the check.
	ComplianceThreshold decimal.Decimal
	// MaxRetries bounds how often Process retries after losing a balance
	// update race. Zero means the default of 3.
	MaxRetries uint64
}

type Service struct {
	repo     Repository
	accounts Accounts
	users    Users
	sink     AuditSink
	report   FailureReport
	uow      UnitOfWork
	opts     Options
	now      func() time.Time
}

func NewService(repo Repository, accounts Accounts, users Users, sink AuditSink, report FailureReport, uow UnitOfWork, opts Options) *Service {
	if opts.Currency == "" {
		opts.Currency = money.DefaultCurrency
	}

	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}

	return &Service{
		repo:     repo,
		accounts: accounts,
		users:    users,
		sink:     sink,
		report:   report,
		uow:      uow,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListFilter narrows transaction listings. AccountID matches the principal,
// source or destination account.
type ListFilter struct {
	UserID    *uuid.UUID
	AccountID *uuid.UUID
	Status    *Status
	Type      *Type
	StartDate *time.Time
	EndDate   *time.Time
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Transaction, error) {
	return s.repo.GetTransactionByNumber(ctx, number)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, audit.ErrInvalidDateRange
	}

	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Transaction, error) {
	return s.List(ctx, ListFilter{UserID: &userID})
}

func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Transaction, error) {
	return s.List(ctx, ListFilter{AccountID: &accountID})
}

func (s *Service) ListByUserAndDateRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*Transaction, error) {
	return s.List(ctx, ListFilter{UserID: &userID, StartDate: &start, EndDate: &end})
}

func (s *Service) ListByAccountAndDateRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]*Transaction, error) {
	return s.List(ctx, ListFilter{AccountID: &accountID, StartDate: &start, EndDate: &end})
}

func (s *Service) ListPending(ctx context.Context) ([]*Transaction, error) {
	return s.ListByStatus(ctx, StatusPending)
}

func (s *Service) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*Transaction, error) {
	status := StatusPending
	return s.List(ctx, ListFilter{UserID: &userID, Status: &status})
}

func (s *Service) ListByStatus(ctx context.Context, status Status) ([]*Transaction, error) {
	return s.List(ctx, ListFilter{Status: &status})
}

func (s *Service) ListByType(ctx context.Context, typ Type) ([]*Transaction, error) {
	return s.List(ctx, ListFilter{Type: &typ})
}
