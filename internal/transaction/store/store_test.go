package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledger/internal/account"
	accountStore "github.com/MrJamesThe3rd/ledger/internal/account/store"
	"github.com/MrJamesThe3rd/ledger/internal/database/dbtest"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
	"github.com/MrJamesThe3rd/ledger/internal/transaction/store"
	"github.com/MrJamesThe3rd/ledger/internal/user"
	userStore "github.com/MrJamesThe3rd/ledger/internal/user/store"
)

func TestStore_Transactions(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	s := store.New(db)

	owner := &user.User{ID: uuid.New(), Username: "alice", Email: "a@example.com", CreatedAt: time.Now().UTC()}
	_, err := userStore.New(db).CreateUser(ctx, owner)
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	acc := &account.Account{
		ID:        uuid.New(),
		Number:    "AC17000000000001234",
		Type:      account.TypeChecking,
		Status:    account.StatusActive,
		Balance:   decimal.Zero,
		UserID:    owner.ID,
		CreatedAt: base,
		UpdatedAt: base,
	}
	_, err = accountStore.New(db).CreateAccount(ctx, acc)
	require.NoError(t, err)

	newTx := func(number string, typ transaction.Type, at time.Time) *transaction.Transaction {
		return &transaction.Transaction{
			ID:          uuid.New(),
			Number:      number,
			Type:        typ,
			Status:      transaction.StatusPending,
			Amount:      decimal.RequireFromString("100.00"),
			Fee:         decimal.RequireFromString("1.50"),
			Tax:         decimal.Zero,
			TotalAmount: decimal.RequireFromString("101.50"),
			Description: "salary",
			UserID:      owner.ID,
			AccountID:   &acc.ID,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
	}

	deposit := newTx("TXN00000000000000000001", transaction.TypeDeposit, base)
	withdrawal := newTx("TXN00000000000000000002", transaction.TypeWithdrawal, base.Add(time.Hour))

	for _, tx := range []*transaction.Transaction{deposit, withdrawal} {
		created, err := s.CreateTransaction(ctx, tx)
		require.NoError(t, err)
		assert.True(t, created)
	}

	clash := *deposit
	clash.ID = uuid.New()
	created, err := s.CreateTransaction(ctx, &clash)
	require.NoError(t, err)
	assert.False(t, created, "duplicate transaction number must not insert")

	exists, err := s.ExistsByNumber(ctx, deposit.Number)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.GetTransactionByNumber(ctx, deposit.Number)
	require.NoError(t, err)
	assert.Equal(t, deposit.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, acc.Number, got.AccountNumber)
	assert.True(t, got.TotalAmount.Equal(deposit.TotalAmount), "total %s", got.TotalAmount)
	assert.Nil(t, got.ProcessedAt)

	t.Run("StatusCompareAndSwap", func(t *testing.T) {
		tx, err := s.GetTransaction(ctx, deposit.ID)
		require.NoError(t, err)

		done := base.Add(2 * time.Hour)
		tx.Status = transaction.StatusProcessing
		tx.UpdatedAt = done
		require.NoError(t, s.UpdateStatus(ctx, tx, transaction.StatusPending))

		tx.Status = transaction.StatusFailed
		tx.Notes = "late"
		err = s.UpdateStatus(ctx, tx, transaction.StatusPending)
		assert.ErrorIs(t, err, transaction.ErrInvalidTransactionStatus)

		tx.Status = transaction.StatusCompleted
		tx.Notes = ""
		tx.ProcessedAt = &done
		require.NoError(t, s.UpdateStatus(ctx, tx, transaction.StatusProcessing))

		got, err := s.GetTransaction(ctx, deposit.ID)
		require.NoError(t, err)
		assert.Equal(t, transaction.StatusCompleted, got.Status)
		require.NotNil(t, got.ProcessedAt)
		assert.True(t, done.Equal(*got.ProcessedAt))
	})

	tests := []struct {
		name   string
		filter transaction.ListFilter
		want   []string
	}{
		{
			name:   "All",
			filter: transaction.ListFilter{},
			want:   []string{withdrawal.Number, deposit.Number},
		},
		{
			name:   "ByAccount",
			filter: transaction.ListFilter{AccountID: &acc.ID},
			want:   []string{withdrawal.Number, deposit.Number},
		},
		{
			name:   "ByStatus",
			filter: transaction.ListFilter{Status: new(transaction.StatusPending)},
			want:   []string{withdrawal.Number},
		},
		{
			name:   "ByType",
			filter: transaction.ListFilter{Type: new(transaction.TypeDeposit)},
			want:   []string{deposit.Number},
		},
		{
			name: "ByDateRange",
			filter: transaction.ListFilter{
				UserID:    &owner.ID,
				StartDate: new(base.Add(30 * time.Minute)),
				EndDate:   new(base.Add(90 * time.Minute)),
			},
			want: []string{withdrawal.Number},
		},
		{
			name:   "OtherUser",
			filter: transaction.ListFilter{UserID: new(uuid.New())},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := s.ListTransactions(ctx, tt.filter)
			require.NoError(t, err)

			var numbers []string
			for _, tx := range txs {
				numbers = append(numbers, tx.Number)
			}

			assert.Equal(t, tt.want, numbers)
		})
	}

	_, err = s.GetTransaction(ctx, uuid.New())
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}
