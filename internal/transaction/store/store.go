package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledger/internal/database"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
)

type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order matches selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr, statusStr string

	var description, notes, accountNumber sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.Number, &typeStr, &statusStr,
		&tx.Amount, &tx.Fee, &tx.Tax, &tx.TotalAmount,
		&description, &notes,
		&tx.UserID, &tx.Username,
		&tx.AccountID, &accountNumber, &tx.SourceAccountID, &tx.DestinationAccountID,
		&tx.CreatedAt, &tx.UpdatedAt, &tx.ProcessedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Status = transaction.Status(statusStr)
	tx.Description = description.String
	tx.Notes = notes.String
	tx.AccountNumber = accountNumber.String

	return &tx, nil
}

const selectTransactionColumns = `
	t.id, t.transaction_number, t.transaction_type, t.status,
	t.amount, t.fee, t.tax, t.total_amount,
	t.description, t.notes,
	t.user_id, u.username,
	t.account_id, a.account_number, t.source_account_id, t.destination_account_id,
	t.created_at, t.updated_at, t.processed_at
`

const fromTransactions = `
	FROM transactions t
	JOIN users u ON t.user_id = u.id
	LEFT JOIN accounts a ON t.account_id = a.id
`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (
			id, transaction_number, transaction_type, status, amount, fee, tax, total_amount,
			description, notes, user_id, account_id, source_account_id, destination_account_id,
			created_at, updated_at, processed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (transaction_number) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID

	err := s.db.Querier(ctx).QueryRowContext(ctx, query,
		tx.ID,
		tx.Number,
		tx.Type,
		tx.Status,
		tx.Amount,
		tx.Fee,
		tx.Tax,
		tx.TotalAmount,
		nullString(tx.Description),
		nullString(tx.Notes),
		tx.UserID,
		tx.AccountID,
		tx.SourceAccountID,
		tx.DestinationAccountID,
		tx.CreatedAt,
		tx.UpdatedAt,
		tx.ProcessedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("creating transaction: %w", err)
	}

	return true, nil
}

func (s *Store) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_number = $1)`
	if err := s.db.Querier(ctx).QueryRowContext(ctx, query, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking transaction number: %w", err)
	}

	return exists, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return s.getBy(ctx, "t.id", id)
}

func (s *Store) GetTransactionByNumber(ctx context.Context, number string) (*transaction.Transaction, error) {
	return s.getBy(ctx, "t.transaction_number", number)
}

func (s *Store) getBy(ctx context.Context, column string, value any) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + ` WHERE ` + column + ` = $1`

	tx, err := scanTransaction(s.db.Querier(ctx).QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) UpdateStatus(ctx context.Context, tx *transaction.Transaction, from transaction.Status) error {
	query := `
		UPDATE transactions
		SET status = $1, notes = $2, processed_at = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`

	res, err := s.db.Querier(ctx).ExecContext(ctx, query,
		tx.Status,
		nullString(tx.Notes),
		tx.ProcessedAt,
		tx.UpdatedAt,
		tx.ID,
		from,
	)
	if err != nil {
		return fmt.Errorf("updating transaction status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating transaction status: %w", err)
	}

	if n == 0 {
		return transaction.ErrInvalidTransactionStatus.Withf("Transaction %s is no longer %s", tx.Number, from)
	}

	return nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + ` WHERE 1 = 1`

	var args []any

	argIdx := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND t.user_id = $%d", argIdx)

		args = append(args, *filter.UserID)
		argIdx++
	}

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND (t.account_id = $%d OR t.source_account_id = $%d OR t.destination_account_id = $%d)", argIdx, argIdx, argIdx)

		args = append(args, *filter.AccountID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND t.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.Type != nil {
		query += fmt.Sprintf(" AND t.transaction_type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.created_at >= $%d", argIdx)

		args = append(args, filter.StartDate.UTC())
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.created_at <= $%d", argIdx)

		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY t.created_at DESC, t.transaction_number DESC"

	rows, err := s.db.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}
