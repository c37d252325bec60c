package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledger/internal/account"
	"github.com/MrJamesThe3rd/ledger/internal/apperror"
	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/money"
)

// dispatchError is an infrastructure failure raised after the transaction was
// claimed for processing.
type dispatchError struct {
	err error
}

func (e *dispatchError) Error() string { return e.err.Error() }
func (e *dispatchError) Unwrap() error { return e.err }

// result is what one processing attempt committed. failure is the business
// error to report once the attempt is durable.
type result struct {
	tx      *Transaction
	failure error
}

// Process moves a PENDING transaction through PROCESSING to COMPLETED,
// applying it to its account balance.
//
// A business rule violation leaves the transaction FAILED and is returned as
// the error. Any other failure rolls the attempt back, records the
// transaction as FAILED with a SYSTEM_ERROR audit and returns it without an
// error.
func (s *Service) Process(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var (
		res result
		j   *journal
	)

	attempt := func() error {
		j = s.newJournal()

		err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			res, err = s.process(ctx, id, j)

			return err
		})

		switch {
		case err == nil:
			return nil
		case errors.Is(err, account.ErrConcurrentModification):
			slog.Warn("balance update conflict, retrying", "transaction", id)
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	err := backoff.Retry(attempt, s.retryPolicy(ctx))
	if err != nil {
		var de *dispatchError
		if errors.As(err, &de) {
			return s.failSystem(ctx, id, de.err)
		}

		return nil, err
	}

	s.flush(ctx, j)

	if res.failure != nil {
		return nil, res.failure
	}

	slog.Info("transaction processed", "number", res.tx.Number, "status", res.tx.Status)

	return res.tx, nil
}

func (s *Service) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond

	return backoff.WithContext(backoff.WithMaxRetries(b, s.opts.MaxRetries), ctx)
}

func (s *Service) process(ctx context.Context, id uuid.UUID, j *journal) (result, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return result{}, err
	}

	if tx.Status != StatusPending {
		j.validationFailed(tx, ErrInvalidTransactionStatus.Message)
		return result{failure: ErrInvalidTransactionStatus}, nil
	}

	if err := s.transition(ctx, tx, StatusProcessing); err != nil {
		if !errors.Is(err, ErrInvalidTransactionStatus) {
			return result{}, err
		}

		// Another caller claimed the transaction first.
		j.validationFailed(tx, err.Error())

		return result{failure: err}, nil
	}

	j.statusChange(tx, StatusPending, StatusProcessing, "Transaction processing started")

	if err := s.dispatch(ctx, tx, j); err != nil {
		if !apperror.IsBusiness(err) {
			return result{}, &dispatchError{err: err}
		}

		slog.Error("failed to process transaction", "error", err, "number", tx.Number)

		reason := "Processing failed: " + err.Error()
		setNote(tx, reason)

		if terr := s.transition(ctx, tx, StatusFailed); terr != nil {
			return result{}, &dispatchError{err: terr}
		}

		j.statusChange(tx, StatusProcessing, StatusFailed, reason)

		return result{tx: tx, failure: err}, nil
	}

	if err := s.transition(ctx, tx, StatusCompleted); err != nil {
		return result{}, &dispatchError{err: err}
	}

	j.statusChange(tx, StatusProcessing, StatusCompleted, "Transaction processed successfully")

	return result{tx: tx}, nil
}

// dispatch applies tx to its account balance.
func (s *Service) dispatch(ctx context.Context, tx *Transaction, j *journal) error {
	if !tx.Type.Processable() {
		msg := fmt.Sprintf("Unsupported transaction type: %s", tx.Type)
		j.validationFailed(tx, msg)

		return ErrUnsupportedTransactionType.Withf("%s", msg)
	}

	kind := strings.ToLower(string(tx.Type))

	if tx.AccountID == nil {
		msg := "Account is required for " + kind
		j.validationFailed(tx, msg)

		return ErrAccountRequired.Withf("%s", msg)
	}

	acc, err := s.accounts.Get(ctx, *tx.AccountID)
	if err != nil {
		return err
	}

	balance, err := money.New(acc.Balance, s.opts.Currency)
	if err != nil {
		return err
	}

	total, err := money.New(tx.TotalAmount, s.opts.Currency)
	if err != nil {
		return err
	}

	var next money.Money

	if tx.Type.Debit() {
		if err := s.checkFunds(acc, tx); err != nil {
			j.validationFailed(tx, err.Error())
			return err
		}

		next, err = balance.Subtract(total)
	} else {
		next, err = balance.Add(total)
	}

	if err != nil {
		return err
	}

	if err := s.accounts.UpdateBalance(ctx, acc, next.Amount()); err != nil {
		return err
	}

	from, to := balance.Amount().StringFixed(2), next.Amount().StringFixed(2)

	switch tx.Type {
	case TypeDeposit:
		j.balanceUpdated(tx, fmt.Sprintf("Deposit processed: Account %s balance updated from %s to %s", acc.Number, from, to),
			balance.Amount(), next.Amount())
	case TypeWithdrawal:
		j.balanceUpdated(tx, fmt.Sprintf("Withdrawal processed: Account %s balance updated from %s to %s", acc.Number, from, to),
			balance.Amount(), next.Amount())
	}

	slog.Info("balance updated", "type", tx.Type, "account", acc.Number, "from", from, "to", to)

	return nil
}

// transition persists tx in status next, guarded by its current status.
func (s *Service) transition(ctx context.Context, tx *Transaction, next Status) error {
	prev := tx.Status
	if !prev.CanTransitionTo(next) {
		return ErrInvalidTransactionStatus.Withf("Transaction %s cannot move from %s to %s", tx.Number, prev, next)
	}

	now := s.now()
	prevUpdated, prevProcessed := tx.UpdatedAt, tx.ProcessedAt

	tx.Status = next
	tx.UpdatedAt = now

	if next == StatusCompleted {
		tx.ProcessedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, tx, prev); err != nil {
		tx.Status, tx.UpdatedAt, tx.ProcessedAt = prev, prevUpdated, prevProcessed
		return err
	}

	return nil
}

// failSystem records id as FAILED after its processing attempt was rolled
// back by an unexpected error.
func (s *Service) failSystem(ctx context.Context, id uuid.UUID, cause error) (*Transaction, error) {
	slog.Error("unexpected error processing transaction", "error", cause, "id", id)

	j := s.newJournal()

	var tx *Transaction

	err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error

		tx, err = s.repo.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		setNote(tx, "Processing failed: "+cause.Error())

		if err := s.transition(ctx, tx, StatusFailed); err != nil {
			return err
		}

		rec := j.systemError(tx, fmt.Sprintf("%s (move from %s to %s was rolled back)", cause, StatusPending, StatusProcessing))
		rec.PreviousStatus = string(StatusPending)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording failure of transaction %s: %w", id, errors.Join(cause, err))
	}

	s.flush(ctx, j)

	return tx, nil
}

// FlagSuspicious appends a FRAUD_DETECTED record for every transaction with
// at least minFailures TRANSACTION_FAILED records within [start, end].
func (s *Service) FlagSuspicious(ctx context.Context, start, end time.Time, minFailures int) ([]audit.SuspiciousTransaction, error) {
	hits, err := s.report.SuspiciousTransactions(ctx, start, end, minFailures)
	if err != nil {
		return nil, err
	}

	j := s.newJournal()

	for _, hit := range hits {
		tx, err := s.repo.GetTransaction(ctx, hit.TransactionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				slog.Warn("suspicious transaction no longer exists", "id", hit.TransactionID)
				continue
			}

			return nil, err
		}

		j.event(tx, audit.EventFraudDetected, fmt.Sprintf("Fraud detected: %d failed attempts between %s and %s",
			hit.FailureCount, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339)))
	}

	s.flush(ctx, j)

	return hits, nil
}
