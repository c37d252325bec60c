package transaction_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/ledger/internal/account"
	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
	"github.com/MrJamesThe3rd/ledger/internal/user"
)

type mocks struct {
	repo     *transaction.MockRepository
	accounts *transaction.MockAccounts
	users    *transaction.MockUsers
	sink     *transaction.MockAuditSink
	report   *transaction.MockFailureReport
	uow      *transaction.MockUnitOfWork
}

func newMocks(ctrl *gomock.Controller) mocks {
	m := mocks{
		repo:     transaction.NewMockRepository(ctrl),
		accounts: transaction.NewMockAccounts(ctrl),
		users:    transaction.NewMockUsers(ctrl),
		sink:     transaction.NewMockAuditSink(ctrl),
		report:   transaction.NewMockFailureReport(ctrl),
		uow:      transaction.NewMockUnitOfWork(ctrl),
	}

	m.uow.EXPECT().
		WithinTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		}).
		AnyTimes()

	return m
}

// recordAudit captures every appended record.
func recordAudit(m mocks) *[]*audit.Record {
	var got []*audit.Record

	m.sink.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *audit.Record) error {
			got = append(got, rec)
			return nil
		}).
		AnyTimes()

	return &got
}

func events(records []*audit.Record) []audit.EventType {
	out := make([]audit.EventType, 0, len(records))
	for _, r := range records {
		out = append(out, r.EventType)
	}

	return out
}

func newService(m mocks, opts transaction.Options) *transaction.Service {
	return transaction.NewService(m.repo, m.accounts, m.users, m.sink, m.report, m.uow, opts)
}

func TestService_Create(t *testing.T) {
	userID := uuid.New()
	accID := uuid.New()
	alice := &user.User{ID: userID, Username: "alice"}

	funded := func(balance string) *account.Account {
		return &account.Account{ID: accID, Number: "AC1", Balance: decimal.RequireFromString(balance)}
	}

	type testCase struct {
		name       string
		req        transaction.CreateRequest
		opts       transaction.Options
		setupMock  func(m mocks)
		wantErr    error
		wantEvents []audit.EventType
		verify     func(t *testing.T, got *transaction.Transaction, records []*audit.Record)
	}

	tests := []testCase{
		{
			name: "DepositSuccess",
			req: transaction.CreateRequest{
				Type:      transaction.TypeDeposit,
				Amount:    decimal.RequireFromString("100"),
				Fee:       decimal.RequireFromString("1.50"),
				Tax:       decimal.RequireFromString("0.255"),
				AccountID: &accID,
			},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(funded("0"), nil)
				m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(true, nil)
			},
			wantEvents: []audit.EventType{audit.EventTransactionCreated},
			verify: func(t *testing.T, got *transaction.Transaction, records []*audit.Record) {
				assert.Equal(t, transaction.StatusPending, got.Status)
				assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("101.76")), "total %s", got.TotalAmount)
				assert.Regexp(t, `^TXN\d{17}$`, got.Number)
				assert.Equal(t, "alice", got.Username)
				assert.Equal(t, "AC1", got.AccountNumber)
				require.NotNil(t, records[0].TransactionID)
				assert.Equal(t, got.ID, *records[0].TransactionID)
				assert.Equal(t, "Transaction created successfully", records[0].Description)
				assert.Equal(t, "PENDING", records[0].NewStatus)
			},
		},
		{
			name: "SuppliedTotalKept",
			req: transaction.CreateRequest{
				Type:        transaction.TypeDeposit,
				Amount:      decimal.RequireFromString("10"),
				Fee:         decimal.RequireFromString("5"),
				TotalAmount: new(decimal.RequireFromString("12")),
				AccountID:   &accID,
			},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(funded("0"), nil)
				m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(true, nil)
			},
			wantEvents: []audit.EventType{audit.EventTransactionCreated},
			verify: func(t *testing.T, got *transaction.Transaction, _ []*audit.Record) {
				assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("12")))
			},
		},
		{
			name:      "UnsupportedType",
			req:       transaction.CreateRequest{Type: transaction.TypeRefund, Amount: decimal.NewFromInt(1), AccountID: &accID},
			setupMock: func(m mocks) {},
			wantErr:   transaction.ErrUnsupportedTransactionType,
		},
		{
			name:      "TransferNotSupported",
			req:       transaction.CreateRequest{Type: transaction.TypeTransfer, Amount: decimal.NewFromInt(1), AccountID: &accID},
			setupMock: func(m mocks) {},
			wantErr:   transaction.ErrUnsupportedTransactionType,
		},
		{
			name:      "AccountRequired",
			req:       transaction.CreateRequest{Type: transaction.TypeWithdrawal, Amount: decimal.NewFromInt(1)},
			setupMock: func(m mocks) {},
			wantErr:   transaction.ErrAccountRequired,
		},
		{
			name: "SuppliedNumberTooLong",
			req: transaction.CreateRequest{
				Type:      transaction.TypeDeposit,
				Amount:    decimal.NewFromInt(1),
				Number:    strings.Repeat("9", transaction.MaxNumberLength+1),
				AccountID: &accID,
			},
			setupMock: func(m mocks) {},
			wantErr:   transaction.ErrInvalidInput,
		},
		{
			name: "UserNotFound",
			req:  transaction.CreateRequest{Type: transaction.TypeDeposit, Amount: decimal.NewFromInt(1), AccountID: &accID},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(nil, user.ErrNotFound)
			},
			wantErr: user.ErrNotFound,
		},
		{
			name: "AccountNotFound",
			req:  transaction.CreateRequest{Type: transaction.TypeDeposit, Amount: decimal.NewFromInt(1), AccountID: &accID},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(nil, account.ErrNotFound)
			},
			wantErr: account.ErrNotFound,
		},
		{
			name: "SuppliedNumberExists",
			req: transaction.CreateRequest{
				Type:      transaction.TypeDeposit,
				Amount:    decimal.NewFromInt(1),
				Number:    "TXN-EXTERNAL-1",
				AccountID: &accID,
			},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(funded("0"), nil)
				m.repo.EXPECT().ExistsByNumber(gomock.Any(), "TXN-EXTERNAL-1").Return(true, nil)
			},
			wantErr:    transaction.ErrTransactionNumberExists,
			wantEvents: []audit.EventType{audit.EventValidationFailed},
			verify: func(t *testing.T, _ *transaction.Transaction, records []*audit.Record) {
				assert.Equal(t, "Validation failed: Transaction number already exists", records[0].Description)
				assert.Equal(t, "TXN-EXTERNAL-1", records[0].TransactionNumber)
			},
		},
		{
			name: "ZeroAmountAuditedBeforePersist",
			req:  transaction.CreateRequest{Type: transaction.TypeDeposit, Amount: decimal.Zero, AccountID: &accID},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(funded("0"), nil)
			},
			wantErr:    transaction.ErrInvalidAmount,
			wantEvents: []audit.EventType{audit.EventValidationFailed},
			verify: func(t *testing.T, _ *transaction.Transaction, records []*audit.Record) {
				assert.Nil(t, records[0].TransactionID)
				assert.Regexp(t, `^TXN\d{17}$`, records[0].TransactionNumber)
				assert.Equal(t, "Validation failed: Transaction amount must be greater than zero", records[0].Description)
			},
		},
		{
			name: "NegativeFee",
			req: transaction.CreateRequest{
				Type:      transaction.TypeDeposit,
				Amount:    decimal.NewFromInt(10),
				Fee:       decimal.NewFromInt(-1),
				AccountID: &accID,
			},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(funded("0"), nil)
			},
			wantErr:    transaction.ErrInvalidAmount,
			wantEvents: []audit.EventType{audit.EventValidationFailed},
		},
		{
			name: "WithdrawalInsufficientFunds",
			req: transaction.CreateRequest{
				Type:      transaction.TypeWithdrawal,
				Amount:    decimal.NewFromInt(150),
				AccountID: &accID,
			},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(funded("100"), nil)
				m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(true, nil)
				m.repo.EXPECT().
					UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction, _ transaction.Status) error {
						assert.Equal(t, transaction.StatusFailed, tx.Status)
						assert.Equal(t, "Insufficient funds: Insufficient funds for withdrawal", tx.Notes)

						return nil
					})
			},
			wantErr:    transaction.ErrInsufficientFunds,
			wantEvents: []audit.EventType{audit.EventValidationFailed},
			verify: func(t *testing.T, _ *transaction.Transaction, records []*audit.Record) {
				assert.NotNil(t, records[0].TransactionID)
				assert.Equal(t, "FAILED", records[0].NewStatus)
			},
		},
		{
			name: "PaymentCoveredExactly",
			req: transaction.CreateRequest{
				Type:      transaction.TypePayment,
				Amount:    decimal.NewFromInt(100),
				AccountID: &accID,
			},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(funded("100"), nil)
				m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(true, nil)
			},
			wantEvents: []audit.EventType{audit.EventTransactionCreated},
		},
		{
			name: "ComplianceThresholdReached",
			req: transaction.CreateRequest{
				Type:      transaction.TypeDeposit,
				Amount:    decimal.NewFromInt(10000),
				AccountID: &accID,
			},
			opts: transaction.Options{ComplianceThreshold: decimal.NewFromInt(10000)},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(funded("0"), nil)
				m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(true, nil)
			},
			wantEvents: []audit.EventType{audit.EventTransactionCreated, audit.EventComplianceCheck},
		},
		{
			name: "GeneratedNumberCollisionRegenerated",
			req:  transaction.CreateRequest{Type: transaction.TypeDeposit, Amount: decimal.NewFromInt(5), AccountID: &accID},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(funded("0"), nil)
				gomock.InOrder(
					m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(false, nil),
					m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(true, nil),
				)
			},
			wantEvents: []audit.EventType{audit.EventTransactionCreated},
		},
		{
			name: "InsertFails",
			req:  transaction.CreateRequest{Type: transaction.TypeDeposit, Amount: decimal.NewFromInt(5), AccountID: &accID},
			setupMock: func(m mocks) {
				m.users.EXPECT().Get(gomock.Any(), userID).Return(alice, nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(funded("0"), nil)
				m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(false, errors.New("db error"))
			},
			wantErr:    errors.New("db error"),
			wantEvents: []audit.EventType{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := newMocks(ctrl)
			records := recordAudit(m)
			tt.setupMock(m)

			got, err := newService(m, tt.opts).Create(context.Background(), tt.req, userID)

			if tt.wantErr != nil {
				require.Error(t, err)

				if !errors.Is(err, tt.wantErr) {
					assert.Equal(t, tt.wantErr.Error(), err.Error())
				}

				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
			}

			if tt.wantEvents != nil {
				assert.Equal(t, tt.wantEvents, events(*records))
			}

			if tt.verify != nil {
				tt.verify(t, got, *records)
			}
		})
	}
}

func TestService_Process(t *testing.T) {
	txID := uuid.New()
	accID := uuid.New()

	stored := func(typ transaction.Type, status transaction.Status) func() *transaction.Transaction {
		return func() *transaction.Transaction {
			return &transaction.Transaction{
				ID:          txID,
				Number:      "TXN1",
				Type:        typ,
				Status:      status,
				Amount:      decimal.NewFromInt(100),
				TotalAmount: decimal.NewFromInt(100),
				UserID:      uuid.New(),
				AccountID:   &accID,
			}
		}
	}

	acc := func(balance int64) *account.Account {
		return &account.Account{ID: accID, Number: "AC1", Balance: decimal.NewFromInt(balance)}
	}

	balanceIs := func(want int64) gomock.Matcher {
		return gomock.Cond(func(x any) bool {
			d, ok := x.(decimal.Decimal)
			return ok && d.Equal(decimal.NewFromInt(want))
		})
	}

	load := func(m mocks, fresh func() *transaction.Transaction, times int) {
		m.repo.EXPECT().
			GetTransaction(gomock.Any(), txID).
			DoAndReturn(func(context.Context, uuid.UUID) (*transaction.Transaction, error) {
				return fresh(), nil
			}).
			Times(times)
	}

	type testCase struct {
		name       string
		opts       transaction.Options
		setupMock  func(m mocks)
		wantErr    error
		wantStatus transaction.Status
		wantEvents []audit.EventType
		verify     func(t *testing.T, records []*audit.Record)
	}

	tests := []testCase{
		{
			name: "DepositCompletes",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeDeposit, transaction.StatusPending), 1)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).Return(nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(acc(50), nil)
				m.accounts.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), balanceIs(150)).Return(nil)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusProcessing).Return(nil)
			},
			wantStatus: transaction.StatusCompleted,
			wantEvents: []audit.EventType{
				audit.EventTransactionProcessing,
				audit.EventBalanceUpdated,
				audit.EventTransactionCompleted,
			},
		},
		{
			name: "WithdrawalCompletes",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeWithdrawal, transaction.StatusPending), 1)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).Return(nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(acc(250), nil)
				m.accounts.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), balanceIs(150)).Return(nil)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusProcessing).Return(nil)
			},
			wantStatus: transaction.StatusCompleted,
			wantEvents: []audit.EventType{
				audit.EventTransactionProcessing,
				audit.EventBalanceUpdated,
				audit.EventTransactionCompleted,
			},
		},
		{
			name: "PaymentHasNoBalanceEvent",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypePayment, transaction.StatusPending), 1)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).Return(nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(acc(100), nil)
				m.accounts.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), balanceIs(0)).Return(nil)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusProcessing).Return(nil)
			},
			wantStatus: transaction.StatusCompleted,
			wantEvents: []audit.EventType{audit.EventTransactionProcessing, audit.EventTransactionCompleted},
		},
		{
			name: "WithdrawalInsufficientFundsFails",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeWithdrawal, transaction.StatusPending), 1)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).Return(nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(acc(10), nil)
				m.repo.EXPECT().
					UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusProcessing).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction, _ transaction.Status) error {
						assert.Equal(t, transaction.StatusFailed, tx.Status)
						assert.Equal(t, "Processing failed: Insufficient funds for withdrawal", tx.Notes)

						return nil
					})
			},
			wantErr: transaction.ErrInsufficientFunds,
			wantEvents: []audit.EventType{
				audit.EventTransactionProcessing,
				audit.EventValidationFailed,
				audit.EventTransactionFailed,
			},
		},
		{
			name: "UnsupportedStoredType",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeRefund, transaction.StatusPending), 1)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).Return(nil)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusProcessing).Return(nil)
			},
			wantErr: transaction.ErrUnsupportedTransactionType,
			wantEvents: []audit.EventType{
				audit.EventTransactionProcessing,
				audit.EventValidationFailed,
				audit.EventTransactionFailed,
			},
		},
		{
			name: "NotPending",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeDeposit, transaction.StatusCompleted), 1)
			},
			wantErr:    transaction.ErrInvalidTransactionStatus,
			wantEvents: []audit.EventType{audit.EventValidationFailed},
		},
		{
			name: "ClaimedConcurrently",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeDeposit, transaction.StatusPending), 1)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).
					Return(transaction.ErrInvalidTransactionStatus.Withf("Transaction TXN1 is no longer PENDING"))
			},
			wantErr:    transaction.ErrInvalidTransactionStatus,
			wantEvents: []audit.EventType{audit.EventValidationFailed},
			verify: func(t *testing.T, records []*audit.Record) {
				assert.Equal(t, "Validation failed: Transaction TXN1 is no longer PENDING", records[0].Description)
				assert.Equal(t, "PENDING", records[0].NewStatus)
			},
		},
		{
			name: "NotFound",
			setupMock: func(m mocks) {
				m.repo.EXPECT().GetTransaction(gomock.Any(), txID).Return(nil, transaction.ErrNotFound)
			},
			wantErr:    transaction.ErrNotFound,
			wantEvents: []audit.EventType{},
		},
		{
			name: "ClaimLost",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeDeposit, transaction.StatusPending), 1)
				m.repo.EXPECT().
					UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).
					Return(transaction.ErrInvalidTransactionStatus.Withf("Transaction TXN1 is no longer PENDING"))
			},
			wantErr:    transaction.ErrInvalidTransactionStatus,
			wantEvents: []audit.EventType{},
		},
		{
			name: "BalanceConflictRetried",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeDeposit, transaction.StatusPending), 2)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).Return(nil).Times(2)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(acc(0), nil).Times(2)
				gomock.InOrder(
					m.accounts.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), balanceIs(100)).Return(account.ErrConcurrentModification),
					m.accounts.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), balanceIs(100)).Return(nil),
				)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusProcessing).Return(nil)
			},
			wantStatus: transaction.StatusCompleted,
			wantEvents: []audit.EventType{
				audit.EventTransactionProcessing,
				audit.EventBalanceUpdated,
				audit.EventTransactionCompleted,
			},
		},
		{
			name: "SystemErrorDegradesToFailed",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeDeposit, transaction.StatusPending), 2)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).Return(nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(acc(0), nil)
				m.accounts.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
				m.repo.EXPECT().
					UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction, _ transaction.Status) error {
						assert.Equal(t, transaction.StatusFailed, tx.Status)
						assert.Equal(t, "Processing failed: connection reset", tx.Notes)

						return nil
					})
			},
			wantStatus: transaction.StatusFailed,
			wantEvents: []audit.EventType{audit.EventSystemError},
			verify: func(t *testing.T, records []*audit.Record) {
				assert.Equal(t, "System error: connection reset (move from PENDING to PROCESSING was rolled back)", records[0].Description)
				assert.Equal(t, "PENDING", records[0].PreviousStatus)
				assert.Equal(t, "FAILED", records[0].NewStatus)
			},
		},
		{
			name: "RetriesExhausted",
			opts: transaction.Options{MaxRetries: 1},
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeDeposit, transaction.StatusPending), 3)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).Return(nil).Times(3)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(acc(0), nil).Times(2)
				m.accounts.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), gomock.Any()).Return(account.ErrConcurrentModification).Times(2)
			},
			wantStatus: transaction.StatusFailed,
			wantEvents: []audit.EventType{audit.EventSystemError},
		},
		{
			name: "FallbackFailureSurfaces",
			setupMock: func(m mocks) {
				load(m, stored(transaction.TypeDeposit, transaction.StatusPending), 1)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), transaction.StatusPending).Return(nil)
				m.accounts.EXPECT().Get(gomock.Any(), accID).Return(acc(0), nil)
				m.accounts.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
				m.repo.EXPECT().GetTransaction(gomock.Any(), txID).Return(nil, errors.New("database is gone"))
			},
			wantErr:    errors.New("connection reset"),
			wantEvents: []audit.EventType{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := newMocks(ctrl)
			records := recordAudit(m)
			tt.setupMock(m)

			got, err := newService(m, tt.opts).Process(context.Background(), txID)

			if tt.wantErr != nil {
				require.Error(t, err)

				if !errors.Is(err, tt.wantErr) {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}

				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.wantStatus, got.Status)

				if tt.wantStatus == transaction.StatusCompleted {
					assert.NotNil(t, got.ProcessedAt)
				}
			}

			assert.Equal(t, tt.wantEvents, events(*records))

			if tt.verify != nil {
				tt.verify(t, *records)
			}
		})
	}
}

func TestService_Process_AuditFailureDoesNotMaskResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newMocks(ctrl)

	txID := uuid.New()
	accID := uuid.New()

	m.sink.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("audit store down")).AnyTimes()
	m.repo.EXPECT().GetTransaction(gomock.Any(), txID).Return(&transaction.Transaction{
		ID:          txID,
		Type:        transaction.TypeWithdrawal,
		Status:      transaction.StatusPending,
		Amount:      decimal.NewFromInt(500),
		TotalAmount: decimal.NewFromInt(500),
		AccountID:   &accID,
	}, nil)
	m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	m.accounts.EXPECT().Get(gomock.Any(), accID).Return(&account.Account{ID: accID, Balance: decimal.NewFromInt(1)}, nil)

	_, err := newService(m, transaction.Options{}).Process(context.Background(), txID)
	assert.ErrorIs(t, err, transaction.ErrInsufficientFunds)
}

func TestService_FlagSuspicious(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newMocks(ctrl)
	records := recordAudit(m)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	known := uuid.New()
	gone := uuid.New()
	hits := []audit.SuspiciousTransaction{
		{TransactionID: known, FailureCount: 4},
		{TransactionID: gone, FailureCount: 3},
	}

	m.report.EXPECT().SuspiciousTransactions(gomock.Any(), start, end, 3).Return(hits, nil)
	m.repo.EXPECT().GetTransaction(gomock.Any(), known).Return(&transaction.Transaction{ID: known, Number: "TXN9"}, nil)
	m.repo.EXPECT().GetTransaction(gomock.Any(), gone).Return(nil, transaction.ErrNotFound)

	got, err := newService(m, transaction.Options{}).FlagSuspicious(context.Background(), start, end, 3)
	require.NoError(t, err)
	assert.Equal(t, hits, got)

	require.Len(t, *records, 1)
	rec := (*records)[0]
	assert.Equal(t, audit.EventFraudDetected, rec.EventType)
	assert.Equal(t, known, *rec.TransactionID)
	assert.Contains(t, rec.Description, "Fraud detected: 4 failed attempts")
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to transaction.Status
		want     bool
	}{
		{transaction.StatusPending, transaction.StatusProcessing, true},
		{transaction.StatusPending, transaction.StatusFailed, true},
		{transaction.StatusPending, transaction.StatusCompleted, false},
		{transaction.StatusProcessing, transaction.StatusCompleted, true},
		{transaction.StatusProcessing, transaction.StatusFailed, true},
		{transaction.StatusProcessing, transaction.StatusPending, false},
		{transaction.StatusCompleted, transaction.StatusFailed, false},
		{transaction.StatusFailed, transaction.StatusProcessing, false},
		{transaction.StatusCancelled, transaction.StatusPending, false},
		{transaction.StatusReversed, transaction.StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestEventTypeForStatus(t *testing.T) {
	want := map[transaction.Status]audit.EventType{
		transaction.StatusPending:    audit.EventTransactionCreated,
		transaction.StatusProcessing: audit.EventTransactionProcessing,
		transaction.StatusCompleted:  audit.EventTransactionCompleted,
		transaction.StatusFailed:     audit.EventTransactionFailed,
		transaction.StatusCancelled:  audit.EventTransactionCancelled,
		transaction.StatusReversed:   audit.EventTransactionReversed,
	}

	for status, event := range want {
		assert.Equal(t, event, transaction.EventTypeForStatus(status), status)
	}
}
