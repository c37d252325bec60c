package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/audit/store"
	"github.com/MrJamesThe3rd/ledger/internal/database/dbtest"
)

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func record(txID *uuid.UUID, event audit.EventType, at time.Time) *audit.Record {
	return &audit.Record{
		TransactionID:     txID,
		TransactionNumber: "TXN1",
		TransactionType:   "DEPOSIT",
		Amount:            decimal.NewNullDecimal(decimal.RequireFromString("50.00")),
		EventType:         event,
		Description:       "Transaction created successfully",
		CreatedAt:         at,
	}
}

func TestStore_CreateAndList(t *testing.T) {
	ctx := context.Background()
	s := store.New(dbtest.New(t))

	txID := uuid.New()
	userID := uuid.New()
	accID := uuid.New()

	first := record(&txID, audit.EventTransactionCreated, base)
	first.UserID = &userID
	first.Username = "alice"
	first.AccountID = &accID
	first.AccountNumber = "AC100"
	first.IPAddress = "10.0.0.1"
	first.SessionID = "sess-1"

	second := record(&txID, audit.EventTransactionProcessing, base.Add(time.Second))
	second.PreviousStatus = "PENDING"
	second.NewStatus = "PROCESSING"
	second.Description = "Transaction processing started"

	transfer := record(nil, audit.EventValidationFailed, base.Add(2*time.Second))
	transfer.TransactionNumber = "TXN2"
	transfer.DestinationAccountID = &accID
	transfer.DestinationAccountNumber = "AC100"
	transfer.Description = "Validation failed: 100%_match"

	for _, rec := range []*audit.Record{first, second, transfer} {
		require.NoError(t, s.CreateRecord(ctx, rec))
		assert.NotZero(t, rec.ID)
	}

	t.Run("ByTransactionNewestFirst", func(t *testing.T) {
		got, err := s.ListRecords(ctx, audit.Filter{TransactionID: &txID}, nil)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, audit.EventTransactionProcessing, got[0].EventType)
		assert.Equal(t, audit.EventTransactionCreated, got[1].EventType)

		created := got[1]
		assert.Equal(t, "alice", created.Username)
		assert.Equal(t, userID, *created.UserID)
		assert.True(t, created.Amount.Valid)
		assert.True(t, created.Amount.Decimal.Equal(decimal.RequireFromString("50")))
		assert.False(t, created.TotalAmount.Valid)
		assert.Nil(t, created.SourceAccountID)
		assert.True(t, created.CreatedAt.Equal(base))
	})

	t.Run("AccountMatchesAnyRole", func(t *testing.T) {
		got, err := s.ListRecords(ctx, audit.Filter{AccountID: &accID}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		number := "AC100"
		got, err = s.ListRecords(ctx, audit.Filter{AccountNumber: &number}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("RejectedAttemptHasNoTransactionID", func(t *testing.T) {
		number := "TXN2"
		got, err := s.ListRecords(ctx, audit.Filter{TransactionNumber: &number}, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Nil(t, got[0].TransactionID)
	})

	t.Run("DescriptionSearchIsCaseInsensitiveAndLiteral", func(t *testing.T) {
		text := "PROCESSING"
		got, err := s.ListRecords(ctx, audit.Filter{Description: &text}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		text = "0%_m"
		got, err = s.ListRecords(ctx, audit.Filter{Description: &text}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		text = "%"
		got, err = s.ListRecords(ctx, audit.Filter{Description: &text}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("StatusChangeAndRequestInfo", func(t *testing.T) {
		prev, next := "PENDING", "PROCESSING"
		got, err := s.ListRecords(ctx, audit.Filter{PreviousStatus: &prev, NewStatus: &next}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		ip, session := "10.0.0.1", "sess-1"
		got, err = s.ListRecords(ctx, audit.Filter{IPAddress: &ip, SessionID: &session}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("Paging", func(t *testing.T) {
		page := audit.Page{Offset: 1, Limit: 1}
		got, err := s.ListRecords(ctx, audit.Filter{}, &page)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, second.ID, got[0].ID)

		total, err := s.CountRecords(ctx, audit.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("DateRangeInclusive", func(t *testing.T) {
		start, end := base, base.Add(time.Second)
		got, err := s.ListRecords(ctx, audit.Filter{StartDate: &start, EndDate: &end}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("CountByEventType", func(t *testing.T) {
		counts, err := s.CountByEventType(ctx, base, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, map[audit.EventType]int64{
			audit.EventTransactionCreated:    1,
			audit.EventTransactionProcessing: 1,
			audit.EventValidationFailed:      1,
		}, counts)
	})
}

func TestStore_FailureCounts(t *testing.T) {
	ctx := context.Background()
	s := store.New(dbtest.New(t))

	noisy := uuid.New()
	quiet := uuid.New()

	for i := range 3 {
		require.NoError(t, s.CreateRecord(ctx, record(&noisy, audit.EventTransactionFailed, base.Add(time.Duration(i)*time.Minute))))
	}

	require.NoError(t, s.CreateRecord(ctx, record(&quiet, audit.EventTransactionFailed, base)))
	require.NoError(t, s.CreateRecord(ctx, record(&quiet, audit.EventTransactionCompleted, base)))
	require.NoError(t, s.CreateRecord(ctx, record(nil, audit.EventTransactionFailed, base)))

	got, err := s.FailureCounts(ctx, base.Add(-time.Hour), base.Add(time.Hour), 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, noisy, got[0].TransactionID)
	assert.Equal(t, int64(3), got[0].FailureCount)

	got, err = s.FailureCounts(ctx, base.Add(-time.Hour), base.Add(time.Hour), 4)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.FailureCounts(ctx, base.Add(-time.Hour), base.Add(time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, noisy, got[0].TransactionID)

	got, err = s.FailureCounts(ctx, base.Add(time.Minute), base.Add(time.Hour), 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
