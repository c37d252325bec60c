package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/account"
	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/money"
	"github.com/MrJamesThe3rd/ledger/internal/refnum"
)

const maxNumberAttempts = 3

type CreateRequest struct {
	Type   Type
	Amount decimal.Decimal
	Fee    decimal.Decimal
	Tax    decimal.Decimal
	// TotalAmount defaults to Amount + Fee + Tax.
	TotalAmount *decimal.Decimal
	// Number is generated when empty.
	Number      string
	Description string
	Notes       string
	AccountID   *uuid.UUID
}

// Create records a new PENDING transaction for userID.
//
// Withdrawals and payments that the account cannot cover are still stored,
// as FAILED, and the call fails with ErrInsufficientFunds.
func (s *Service) Create(ctx context.Context, req CreateRequest, userID uuid.UUID) (*Transaction, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.totalAmount(req)
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.Get(ctx, *req.AccountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tx := &Transaction{
		Number:        req.Number,
		Type:          req.Type,
		Status:        StatusPending,
		Amount:        req.Amount.Round(2),
		Fee:           req.Fee.Round(2),
		Tax:           req.Tax.Round(2),
		TotalAmount:   total,
		Description:   req.Description,
		Notes:         req.Notes,
		UserID:        u.ID,
		Username:      u.Username,
		AccountID:     new(acc.ID),
		AccountNumber: acc.Number,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	j := s.newJournal()

	if req.Number != "" {
		exists, err := s.repo.ExistsByNumber(ctx, req.Number)
		if err != nil {
			return nil, err
		}

		if exists {
			j.validationFailed(tx, ErrTransactionNumberExists.Message)
			s.flush(ctx, j)

			return nil, ErrTransactionNumberExists
		}
	} else {
		tx.Number = refnum.Transaction(now)
	}

	if err := validateAmounts(tx); err != nil {
		j.validationFailed(tx, err.Error())
		s.flush(ctx, j)

		return nil, err
	}

	var failure error

	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.insert(ctx, tx, req.Number != ""); err != nil {
			return err
		}

		if tx.Type.Debit() {
			if ferr := s.checkFunds(acc, tx); ferr != nil {
				setNote(tx, "Insufficient funds: "+ferr.Error())

				if err := s.transition(ctx, tx, StatusFailed); err != nil {
					return err
				}

				slog.Warn("transaction failed funds check", "number", tx.Number, "account", acc.Number)
				j.validationFailed(tx, ferr.Error())
				failure = ferr

				return nil
			}
		}

		j.event(tx, audit.EventTransactionCreated, "Transaction created successfully")

		if s.requiresComplianceCheck(tx) {
			j.event(tx, audit.EventComplianceCheck, fmt.Sprintf("Compliance check: amount %s %s reaches reporting threshold %s",
				tx.Amount.StringFixed(2), s.opts.Currency, s.opts.ComplianceThreshold.StringFixed(2)))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, j)

	if failure != nil {
		return nil, failure
	}

	slog.Info("transaction created", "number", tx.Number, "type", tx.Type, "total", tx.TotalAmount.StringFixed(2))

	return tx, nil
}

func validateRequest(req CreateRequest) error {
	if !req.Type.Processable() {
		return ErrUnsupportedTransactionType.Withf("Unsupported transaction type: %s", req.Type)
	}

	if req.AccountID == nil {
		return ErrAccountRequired.Withf("Account is required for %s", strings.ToLower(string(req.Type)))
	}

	if utf8.RuneCountInString(req.Number) > MaxNumberLength {
		return ErrInvalidInput.Withf("Transaction number cannot exceed %d characters", MaxNumberLength)
	}

	if utf8.RuneCountInString(req.Description) > MaxDescriptionLength {
		return ErrInvalidInput.Withf("Description cannot exceed %d characters", MaxDescriptionLength)
	}

	if utf8.RuneCountInString(req.Notes) > MaxNotesLength {
		return ErrInvalidInput.Withf("Notes cannot exceed %d characters", MaxNotesLength)
	}

	return nil
}

func validateAmounts(tx *Transaction) error {
	if !tx.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	if tx.Fee.IsNegative() || tx.Tax.IsNegative() {
		return ErrInvalidAmount.Withf("Fee and tax cannot be negative")
	}

	if !tx.TotalAmount.IsPositive() {
		return ErrInvalidAmount.Withf("Total amount must be greater than zero")
	}

	return nil
}

func (s *Service) totalAmount(req CreateRequest) (decimal.Decimal, error) {
	if req.TotalAmount != nil {
		m, err := money.New(*req.TotalAmount, s.opts.Currency)
		if err != nil {
			return decimal.Zero, err
		}

		return m.Amount(), nil
	}

	total, err := money.New(req.Amount, s.opts.Currency)
	if err != nil {
		return decimal.Zero, err
	}

	for _, part := range []decimal.Decimal{req.Fee, req.Tax} {
		m, err := money.New(part, s.opts.Currency)
		if err != nil {
			return decimal.Zero, err
		}

		if total, err = total.Add(m); err != nil {
			return decimal.Zero, err
		}
	}

	return total.Amount(), nil
}

// insert stores tx under a fresh id. Generated numbers are regenerated on
// collision; a caller supplied number is not.
func (s *Service) insert(ctx context.Context, tx *Transaction, supplied bool) error {
	for range maxNumberAttempts {
		tx.ID = uuid.New()

		created, err := s.repo.CreateTransaction(ctx, tx)
		if err != nil {
			return err
		}

		if created {
			return nil
		}

		if supplied {
			break
		}

		slog.Warn("transaction number collision, regenerating", "number", tx.Number)
		tx.Number = refnum.Transaction(s.now())
	}

	tx.ID = uuid.Nil

	return ErrTransactionNumberExists
}

func (s *Service) checkFunds(acc *account.Account, tx *Transaction) error {
	balance, err := money.New(acc.Balance, s.opts.Currency)
	if err != nil {
		return err
	}

	total, err := money.New(tx.TotalAmount, s.opts.Currency)
	if err != nil {
		return err
	}

	if balance.IsLessThan(total) {
		return ErrInsufficientFunds.Withf("Insufficient funds for %s", strings.ToLower(string(tx.Type)))
	}

	return nil
}

func (s *Service) requiresComplianceCheck(tx *Transaction) bool {
	t := s.opts.ComplianceThreshold
	return t.IsPositive() && tx.Amount.GreaterThanOrEqual(t)
}

func setNote(tx *Transaction, note string) {
	if utf8.RuneCountInString(note) > MaxNotesLength {
		note = string([]rune(note)[:MaxNotesLength])
	}

	tx.Notes = note
}
