package broker_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/audit/broker"
)

func startRabbitMQ(t *testing.T, ctx context.Context) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-management",
			ExposedPorts: []string{"5672/tcp"},
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": "guest",
				"RABBITMQ_DEFAULT_PASS": "guest",
			},
			WaitingFor: wait.ForLog("Server startup complete"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)

	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestPublisher_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	url := startRabbitMQ(t, ctx)

	const exchange = "ledger.audit"

	ctrl := gomock.NewController(t)
	sink := audit.NewMockSink(ctrl)
	sink.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	p, err := broker.Dial(url, exchange, sink)
	require.NoError(t, err)

	defer p.Close()

	conn, err := amqp.Dial(url)
	require.NoError(t, err)

	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "ledger.audit.#", exchange, false, nil))

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	require.NoError(t, err)

	require.NoError(t, p.Append(ctx, &audit.Record{
		ID:                1,
		TransactionNumber: "TXN1",
		EventType:         audit.EventTransactionCompleted,
		CreatedAt:         time.Now().UTC(),
	}))

	select {
	case msg := <-msgs:
		assert.Equal(t, "ledger.audit.transaction_completed", msg.RoutingKey)

		var body map[string]any
		require.NoError(t, json.Unmarshal(msg.Body, &body))
		assert.Equal(t, "TXN1", body["transactionNumber"])
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}
}
