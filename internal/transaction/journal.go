package transaction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
)

// journal collects the audit records of one unit of work. They are appended
// only once the unit of work has committed, so a rolled back attempt leaves
// no trace and a retried one is not recorded twice.
type journal struct {
	now     func() time.Time
	records []*audit.Record
}

func (s *Service) newJournal() *journal {
	return &journal{now: s.now}
}

// snapshot freezes the current state of tx into a record.
func (j *journal) snapshot(tx *Transaction, event audit.EventType, description string) *audit.Record {
	rec := &audit.Record{
		TransactionNumber: tx.Number,
		TransactionType:   string(tx.Type),
		Amount:            decimal.NewNullDecimal(tx.Amount),
		TotalAmount:       decimal.NewNullDecimal(tx.TotalAmount),
		Username:          tx.Username,
		AccountNumber:     tx.AccountNumber,
		NewStatus:         string(tx.Status),
		EventType:         event,
		Description:       description,
		CreatedAt:         j.now(),
	}

	if tx.ID != uuid.Nil {
		rec.TransactionID = new(tx.ID)
	}

	if tx.UserID != uuid.Nil {
		rec.UserID = new(tx.UserID)
	}

	if tx.AccountID != nil {
		rec.AccountID = new(*tx.AccountID)
	}

	if tx.SourceAccountID != nil {
		rec.SourceAccountID = new(*tx.SourceAccountID)
	}

	if tx.DestinationAccountID != nil {
		rec.DestinationAccountID = new(*tx.DestinationAccountID)
	}

	j.records = append(j.records, rec)

	return rec
}

func (j *journal) event(tx *Transaction, event audit.EventType, description string) {
	j.snapshot(tx, event, description)
}

func (j *journal) statusChange(tx *Transaction, from, to Status, reason string) {
	rec := j.snapshot(tx, EventTypeForStatus(to), fmt.Sprintf("Status changed from %s to %s: %s", from, to, reason))
	rec.PreviousStatus = string(from)
	rec.NewStatus = string(to)
}

func (j *journal) validationFailed(tx *Transaction, msg string) {
	j.snapshot(tx, audit.EventValidationFailed, "Validation failed: "+msg)
}

func (j *journal) systemError(tx *Transaction, msg string) *audit.Record {
	return j.snapshot(tx, audit.EventSystemError, "System error: "+msg)
}

func (j *journal) balanceUpdated(tx *Transaction, description string, previous, current decimal.Decimal) {
	rec := j.snapshot(tx, audit.EventBalanceUpdated, description)

	data, err := json.Marshal(map[string]string{
		"previousBalance": previous.StringFixed(2),
		"newBalance":      current.StringFixed(2),
	})
	if err == nil {
		rec.AdditionalData = string(data)
	}
}

// flush appends the collected records in order. Audit is best effort: a
// failed append is logged and never surfaces to the caller.
func (s *Service) flush(ctx context.Context, j *journal) {
	for _, rec := range j.records {
		if err := s.sink.Append(ctx, rec); err != nil {
			slog.Error("failed to append audit record",
				"error", err,
				"event", rec.EventType,
				"transaction", rec.TransactionNumber,
			)
		}
	}

	j.records = nil
}
