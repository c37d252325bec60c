package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/account"
	"github.com/MrJamesThe3rd/ledger/internal/database"
)

type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectAccountColumns = `
	id, account_number, account_type, status, balance, user_id, version, created_at, updated_at
`

func scanAccount(s scanner) (*account.Account, error) {
	var acc account.Account

	var typeStr, statusStr string

	if err := s.Scan(
		&acc.ID, &acc.Number, &typeStr, &statusStr, &acc.Balance, &acc.UserID, &acc.Version,
		&acc.CreatedAt, &acc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	acc.Type = account.Type(typeStr)
	acc.Status = account.Status(statusStr)

	return &acc, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc *account.Account) (bool, error) {
	query := `
		INSERT INTO accounts (id, account_number, account_type, status, balance, user_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_number) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID

	err := s.db.Querier(ctx).QueryRowContext(ctx, query,
		acc.ID,
		acc.Number,
		acc.Type,
		acc.Status,
		acc.Balance,
		acc.UserID,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("creating account: %w", err)
	}

	return true, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE id = $1`

	return s.getOne(ctx, query, id)
}

func (s *Store) GetAccountByNumber(ctx context.Context, number string) (*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE account_number = $1`

	return s.getOne(ctx, query, number)
}

func (s *Store) getOne(ctx context.Context, query string, arg any) (*account.Account, error) {
	acc, err := scanAccount(s.db.Querier(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return acc, nil
}

func (s *Store) ListAccountsByUser(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + `
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Querier(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account

	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}

	return accounts, nil
}

func (s *Store) CountActiveAccounts(ctx context.Context, userID uuid.UUID, typ account.Type) (int, error) {
	query := `
		SELECT COUNT(*) FROM accounts
		WHERE user_id = $1 AND account_type = $2 AND status = $3
	`

	var n int
	if err := s.db.Querier(ctx).QueryRowContext(ctx, query, userID, typ, account.StatusActive).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting accounts: %w", err)
	}

	return n, nil
}

func (s *Store) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var n int

	err := s.db.Querier(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE account_number = $1`, number,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking account number: %w", err)
	}

	return n > 0, nil
}

func (s *Store) UpdateBalance(ctx context.Context, acc *account.Account, balance decimal.Decimal, now time.Time) error {
	query := `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`

	if err := s.compareAndSwap(ctx, query, balance, now, acc.ID, acc.Version); err != nil {
		return fmt.Errorf("updating balance of %s: %w", acc.Number, err)
	}

	acc.Balance = balance
	acc.Version++
	acc.UpdatedAt = now

	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, acc *account.Account, status account.Status, now time.Time) error {
	query := `
		UPDATE accounts
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`

	if err := s.compareAndSwap(ctx, query, status, now, acc.ID, acc.Version); err != nil {
		return fmt.Errorf("updating status of %s: %w", acc.Number, err)
	}

	acc.Status = status
	acc.Version++
	acc.UpdatedAt = now

	return nil
}

func (s *Store) compareAndSwap(ctx context.Context, query string, args ...any) error {
	res, err := s.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return account.ErrConcurrentModification
	}

	return nil
}
