package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/refnum"
	"github.com/MrJamesThe3rd/ledger/internal/user"
)

const (
	// MaxAccountsPerType caps the active accounts a user may hold per type.
	MaxAccountsPerType = 2

	maxNumberAttempts = 3
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=account
type Repository interface {
	// CreateAccount reports false when the account number is already taken.
	CreateAccount(ctx context.Context, acc *Account) (bool, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*Account, error)
	ListAccountsByUser(ctx context.Context, userID uuid.UUID) ([]*Account, error)
	CountActiveAccounts(ctx context.Context, userID uuid.UUID, typ Type) (int, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)

	// UpdateBalance and UpdateStatus write only if acc.Version still matches
	// the stored row, failing with ErrConcurrentModification otherwise. On
	// success acc reflects the new row.
	UpdateBalance(ctx context.Context, acc *Account, balance decimal.Decimal, now time.Time) error
	UpdateStatus(ctx context.Context, acc *Account, status Status, now time.Time) error
}

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Lock(ctx context.Context, key string) error
}

type Service struct {
	repo  Repository
	users Users
	uow   UnitOfWork
	now   func() time.Time
}

func NewService(repo Repository, users Users, uow UnitOfWork) *Service {
	return &Service{
		repo:  repo,
		users: users,
		uow:   uow,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a zero-balance ACTIVE account. The limit check and the insert
// share one unit of work serialized per (user, type).
func (s *Service) Create(ctx context.Context, userID uuid.UUID, typ Type) (*Account, error) {
	if !typ.Valid() {
		return nil, ErrInvalidAccountType.Withf("Invalid account type %q", typ)
	}

	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}

	var acc *Account

	err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.uow.Lock(ctx, fmt.Sprintf("accounts:%s:%s", userID, typ)); err != nil {
			return err
		}

		count, err := s.repo.CountActiveAccounts(ctx, userID, typ)
		if err != nil {
			return err
		}

		if count >= MaxAccountsPerType {
			return ErrAccountLimitExceeded.Withf("User already has %d active %s accounts", count, typ)
		}

		for range maxNumberAttempts {
			now := s.now()
			candidate := &Account{
				ID:        uuid.New(),
				Number:    refnum.Account(now),
				Type:      typ,
				Status:    StatusActive,
				Balance:   decimal.Zero,
				UserID:    userID,
				CreatedAt: now,
				UpdatedAt: now,
			}

			created, err := s.repo.CreateAccount(ctx, candidate)
			if err != nil {
				return err
			}

			if created {
				acc = candidate
				return nil
			}

			slog.Warn("account number collision, regenerating", "number", candidate.Number)
		}

		return ErrAccountNumberExists
	})
	if err != nil {
		return nil, err
	}

	slog.Info("account created", "number", acc.Number, "type", acc.Type, "user", userID)

	return acc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Account, error) {
	return s.repo.GetAccountByNumber(ctx, number)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Account, error) {
	return s.repo.ListAccountsByUser(ctx, userID)
}

func (s *Service) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	return s.repo.ExistsByNumber(ctx, number)
}

// UpdateBalance overwrites the balance of acc, guarded by its version.
func (s *Service) UpdateBalance(ctx context.Context, acc *Account, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return ErrNegativeBalance.Withf("Balance of account %s cannot become %s", acc.Number, balance.StringFixed(2))
	}

	return s.repo.UpdateBalance(ctx, acc, balance.Round(2), s.now())
}

func (s *Service) UpdateStatus(ctx context.Context, acc *Account, status Status) error {
	return s.repo.UpdateStatus(ctx, acc, status, s.now())
}
