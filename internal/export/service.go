// Package export produces account statements: the account's transactions and
// audit trail over a period, as CSV files bundled in a zip archive.
package export

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/account"
	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=export
type Accounts interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

type Transactions interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type Trail interface {
	List(ctx context.Context, filter audit.Filter) ([]*audit.Record, error)
}

type Statement struct {
	Account      *account.Account
	Start        time.Time
	End          time.Time
	Transactions []*transaction.Transaction
	Records      []*audit.Record
}

// NetChange sums the total amounts of completed transactions, crediting
// deposits and debiting withdrawals and payments.
func (s *Statement) NetChange() decimal.Decimal {
	net := decimal.Zero

	for _, tx := range s.Transactions {
		if tx.Status != transaction.StatusCompleted {
			continue
		}

		if tx.Type.Debit() {
			net = net.Sub(tx.TotalAmount)
		} else {
			net = net.Add(tx.TotalAmount)
		}
	}

	return net
}

type Service struct {
	accounts     Accounts
	transactions Transactions
	trail        Trail
}

func NewService(accounts Accounts, transactions Transactions, trail Trail) *Service {
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		trail:        trail,
	}
}

// Statement gathers everything recorded against accountID within [start, end].
func (s *Service) Statement(ctx context.Context, accountID uuid.UUID, start, end time.Time) (*Statement, error) {
	if start.After(end) {
		return nil, audit.ErrInvalidDateRange
	}

	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	txs, err := s.transactions.List(ctx, transaction.ListFilter{
		AccountID: &accountID,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	recs, err := s.trail.List(ctx, audit.Filter{
		AccountID: &accountID,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}

	return &Statement{
		Account:      acc,
		Start:        start,
		End:          end,
		Transactions: txs,
		Records:      recs,
	}, nil
}

var transactionHeader = []string{
	"transaction_number", "created_at", "type", "status",
	"amount", "fee", "tax", "total_amount", "description", "notes", "processed_at",
}

func WriteTransactionsCSV(w io.Writer, txs []*transaction.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(transactionHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, tx := range txs {
		processed := ""
		if tx.ProcessedAt != nil {
			processed = tx.ProcessedAt.UTC().Format(time.RFC3339)
		}

		if err := cw.Write([]string{
			tx.Number,
			tx.CreatedAt.UTC().Format(time.RFC3339),
			string(tx.Type),
			string(tx.Status),
			tx.Amount.StringFixed(2),
			tx.Fee.StringFixed(2),
			tx.Tax.StringFixed(2),
			tx.TotalAmount.StringFixed(2),
			tx.Description,
			tx.Notes,
			processed,
		}); err != nil {
			return fmt.Errorf("writing transaction %s: %w", tx.Number, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

var auditHeader = []string{
	"id", "created_at", "event_type", "transaction_number", "previous_status", "new_status",
	"amount", "description", "ip_address", "session_id",
}

func WriteAuditCSV(w io.Writer, recs []*audit.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(auditHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, rec := range recs {
		amount := ""
		if rec.Amount.Valid {
			amount = rec.Amount.Decimal.StringFixed(2)
		}

		if err := cw.Write([]string{
			fmt.Sprint(rec.ID),
			rec.CreatedAt.UTC().Format(time.RFC3339),
			string(rec.EventType),
			rec.TransactionNumber,
			rec.PreviousStatus,
			rec.NewStatus,
			amount,
			rec.Description,
			rec.IPAddress,
			rec.SessionID,
		}); err != nil {
			return fmt.Errorf("writing audit record %d: %w", rec.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// Summary renders one line per transaction followed by the net change.
func Summary(st *Statement) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Account %s (%s), %s to %s\n\n",
		st.Account.Number, st.Account.Type,
		st.Start.Format(time.DateOnly), st.End.Format(time.DateOnly))

	for _, tx := range st.Transactions {
		sign := "+"
		if tx.Type.Debit() {
			sign = "-"
		}

		fmt.Fprintf(&sb, "* %s | %s | %s | %s%s | %s\n",
			tx.CreatedAt.Format(time.DateOnly), tx.Number, tx.Type, sign, tx.TotalAmount.StringFixed(2), tx.Status)
	}

	fmt.Fprintf(&sb, "\nNet change (completed): %s\nCurrent balance: %s\n",
		st.NetChange().StringFixed(2), st.Account.Balance.StringFixed(2))

	return sb.String()
}

// ArchiveName is the file name a statement archive is saved under.
func ArchiveName(st *Statement) string {
	return fmt.Sprintf("statement_%s_%s.zip", st.Account.Number, st.End.Format("20060102"))
}

// WriteArchive writes a zip holding transactions.csv, audit.csv and summary.txt.
func WriteArchive(w io.Writer, st *Statement) error {
	zw := zip.NewWriter(w)

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"transactions.csv", func(w io.Writer) error { return WriteTransactionsCSV(w, st.Transactions) }},
		{"audit.csv", func(w io.Writer) error { return WriteAuditCSV(w, st.Records) }},
		{"summary.txt", func(w io.Writer) error {
			_, err := io.WriteString(w, Summary(st))
			return err
		}},
	}

	for _, f := range files {
		fw, err := zw.Create(f.name)
		if err != nil {
			return fmt.Errorf("creating %s: %w", f.name, err)
		}

		if err := f.write(fw); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}

	return nil
}
