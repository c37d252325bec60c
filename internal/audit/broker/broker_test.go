package broker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/audit/broker"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})

	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Append(t *testing.T) {
	txID := uuid.New()
	rec := &audit.Record{
		ID:                42,
		TransactionID:     &txID,
		TransactionNumber: "TXN1",
		Amount:            decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
		EventType:         audit.EventTransactionFailed,
		CreatedAt:         time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name      string
		setupMock func(m *audit.MockSink)
		chanErr   error
		wantErr   bool
		wantSent  int
	}{
		{
			name: "Success",
			setupMock: func(m *audit.MockSink) {
				m.EXPECT().Append(gomock.Any(), rec).Return(nil)
			},
			wantSent: 1,
		},
		{
			name: "StoreFailureSkipsPublish",
			setupMock: func(m *audit.MockSink) {
				m.EXPECT().Append(gomock.Any(), rec).Return(errors.New("db down"))
			},
			wantErr: true,
		},
		{
			name: "BrokerFailureIgnored",
			setupMock: func(m *audit.MockSink) {
				m.EXPECT().Append(gomock.Any(), rec).Return(nil)
			},
			chanErr: errors.New("channel closed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			sink := audit.NewMockSink(ctrl)
			tt.setupMock(sink)

			ch := &fakeChannel{err: tt.chanErr}
			p := broker.NewPublisher(sink, ch, "ledger.audit")

			err := p.Append(context.Background(), rec)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			require.Len(t, ch.sent, tt.wantSent)

			if tt.wantSent == 0 {
				return
			}

			sent := ch.sent[0]
			assert.Equal(t, "ledger.audit", sent.exchange)
			assert.Equal(t, "ledger.audit.transaction_failed", sent.key)
			assert.Equal(t, "application/json", sent.msg.ContentType)

			var body map[string]any
			require.NoError(t, json.Unmarshal(sent.msg.Body, &body))
			assert.Equal(t, "TRANSACTION_FAILED", body["eventType"])
			assert.Equal(t, "12.50", body["amount"])
			assert.Equal(t, txID.String(), body["transactionId"])
		})
	}
}

func TestPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p := broker.NewPublisher(nil, ch, "x")

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
