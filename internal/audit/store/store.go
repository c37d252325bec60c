package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/database"
)

// Store writes and reads transaction_audit_logs. It has no UPDATE or DELETE
// statements.
type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectRecordColumns = `
	id, transaction_id, transaction_number, transaction_type, amount, total_amount,
	user_id, user_username, account_id, account_number,
	source_account_id, source_account_number, destination_account_id, destination_account_number,
	previous_status, new_status, event_type, description, additional_data,
	ip_address, user_agent, session_id, created_at
`

func scanRecord(s scanner) (*audit.Record, error) {
	var rec audit.Record

	var (
		txNumber, txType, username, accNumber, srcNumber, dstNumber sql.NullString
		prevStatus, newStatus, description, additional            sql.NullString
		ip, agent, session                                         sql.NullString
		eventType                                                  string
	)

	if err := s.Scan(
		&rec.ID, &rec.TransactionID, &txNumber, &txType, &rec.Amount, &rec.TotalAmount,
		&rec.UserID, &username, &rec.AccountID, &accNumber,
		&rec.SourceAccountID, &srcNumber, &rec.DestinationAccountID, &dstNumber,
		&prevStatus, &newStatus, &eventType, &description, &additional,
		&ip, &agent, &session, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	rec.TransactionNumber = txNumber.String
	rec.TransactionType = txType.String
	rec.Username = username.String
	rec.AccountNumber = accNumber.String
	rec.SourceAccountNumber = srcNumber.String
	rec.DestinationAccountNumber = dstNumber.String
	rec.PreviousStatus = prevStatus.String
	rec.NewStatus = newStatus.String
	rec.EventType = audit.EventType(eventType)
	rec.Description = description.String
	rec.AdditionalData = additional.String
	rec.IPAddress = ip.String
	rec.UserAgent = agent.String
	rec.SessionID = session.String

	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) CreateRecord(ctx context.Context, rec *audit.Record) error {
	query := `
		INSERT INTO transaction_audit_logs (
			transaction_id, transaction_number, transaction_type, amount, total_amount,
			user_id, user_username, account_id, account_number,
			source_account_id, source_account_number, destination_account_id, destination_account_number,
			previous_status, new_status, event_type, description, additional_data,
			ip_address, user_agent, session_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id
	`

	err := s.db.Querier(ctx).QueryRowContext(ctx, query,
		rec.TransactionID,
		nullString(rec.TransactionNumber),
		nullString(rec.TransactionType),
		rec.Amount,
		rec.TotalAmount,
		rec.UserID,
		nullString(rec.Username),
		rec.AccountID,
		nullString(rec.AccountNumber),
		rec.SourceAccountID,
		nullString(rec.SourceAccountNumber),
		rec.DestinationAccountID,
		nullString(rec.DestinationAccountNumber),
		nullString(rec.PreviousStatus),
		nullString(rec.NewStatus),
		rec.EventType,
		nullString(rec.Description),
		nullString(rec.AdditionalData),
		nullString(rec.IPAddress),
		nullString(rec.UserAgent),
		nullString(rec.SessionID),
		rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("creating audit record: %w", err)
	}

	return nil
}

// where renders filter as a WHERE clause whose placeholders start at $1.
func where(filter audit.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.TransactionID != nil {
		add("transaction_id = ?", *filter.TransactionID)
	}

	if filter.TransactionNumber != nil {
		add("transaction_number = ?", *filter.TransactionNumber)
	}

	if filter.UserID != nil {
		add("user_id = ?", *filter.UserID)
	}

	if filter.AccountID != nil {
		add("(account_id = ? OR source_account_id = ? OR destination_account_id = ?)", *filter.AccountID)
	}

	if filter.AccountNumber != nil {
		add("(account_number = ? OR source_account_number = ? OR destination_account_number = ?)", *filter.AccountNumber)
	}

	if filter.EventType != nil {
		add("event_type = ?", *filter.EventType)
	}

	if filter.Description != nil {
		add(`LOWER(description) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(*filter.Description))+"%")
	}

	if filter.StartDate != nil {
		add("created_at >= ?", filter.StartDate.UTC())
	}

	if filter.EndDate != nil {
		add("created_at <= ?", filter.EndDate.UTC())
	}

	if filter.IPAddress != nil {
		add("ip_address = ?", *filter.IPAddress)
	}

	if filter.SessionID != nil {
		add("session_id = ?", *filter.SessionID)
	}

	if filter.PreviousStatus != nil {
		add("previous_status = ?", *filter.PreviousStatus)
	}

	if filter.NewStatus != nil {
		add("new_status = ?", *filter.NewStatus)
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) ListRecords(ctx context.Context, filter audit.Filter, page *audit.Page) ([]*audit.Record, error) {
	clause, args := where(filter)

	query := `SELECT ` + selectRecordColumns + ` FROM transaction_audit_logs` + clause +
		` ORDER BY created_at DESC, id DESC`

	if page != nil {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, page.Limit, page.Offset)
	}

	rows, err := s.db.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	defer rows.Close()

	var records []*audit.Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	return records, nil
}

func (s *Store) CountRecords(ctx context.Context, filter audit.Filter) (int64, error) {
	clause, args := where(filter)

	var n int64
	if err := s.db.Querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM transaction_audit_logs`+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting audit records: %w", err)
	}

	return n, nil
}

func (s *Store) CountByEventType(ctx context.Context, start, end time.Time) (map[audit.EventType]int64, error) {
	query := `
		SELECT event_type, COUNT(*)
		FROM transaction_audit_logs
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY event_type
	`

	rows, err := s.db.Querier(ctx).QueryContext(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("counting audit events: %w", err)
	}
	defer rows.Close()

	counts := make(map[audit.EventType]int64)

	for rows.Next() {
		var (
			event string
			n     int64
		)

		if err := rows.Scan(&event, &n); err != nil {
			return nil, fmt.Errorf("scanning event count: %w", err)
		}

		counts[audit.EventType(event)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event counts: %w", err)
	}

	return counts, nil
}

func (s *Store) FailureCounts(ctx context.Context, start, end time.Time, minFailures int) ([]audit.SuspiciousTransaction, error) {
	query := `
		SELECT transaction_id, COUNT(*) AS failures
		FROM transaction_audit_logs
		WHERE event_type = $1
			AND transaction_id IS NOT NULL
			AND created_at >= $2 AND created_at <= $3
		GROUP BY transaction_id
		HAVING COUNT(*) >= $4
		ORDER BY failures DESC, transaction_id ASC
	`

	rows, err := s.db.Querier(ctx).QueryContext(ctx, query, audit.EventTransactionFailed, start.UTC(), end.UTC(), minFailures)
	if err != nil {
		return nil, fmt.Errorf("counting failures: %w", err)
	}
	defer rows.Close()

	var result []audit.SuspiciousTransaction

	for rows.Next() {
		var (
			id uuid.UUID
			n  int64
		)

		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scanning failure count: %w", err)
		}

		result = append(result, audit.SuspiciousTransaction{TransactionID: id, FailureCount: n})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failure counts: %w", err)
	}

	return result, nil
}
