package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

type recordingEvictor struct {
	m       sync.Mutex
	evicted []string
}

func (r *recordingEvictor) Evict(_ context.Context, profileID string) {
	r.m.Lock()
	defer r.m.Unlock()
	r.evicted = append(r.evicted, profileID)
}

func (r *recordingEvictor) snapshot() []string {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]string(nil), r.evicted...)
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_EvictsOnOrderPlaced(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brokers, cleanupKafka := setupKafka(t)
	defer cleanupKafka()
	topic := "storefront-orders"
	createTopic(t, brokers, topic)

	evictor := &recordingEvictor{}
	poller := NewPoller(evictor, zap.NewNop(), topic, "storefront-test", brokers)
	defer poller.Close()

	publisher := NewPublisher(topic, brokers)
	err := publisher.PublishOrderPlaced(ctx, OrderPlaced{
		OrderID:    "ord-1",
		ProfileID:  "profile-123",
		Email:      "a@b.c",
		Items:      2,
		FinalTotal: 120,
		PlacedAt:   time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, publisher.Close())

	// an event of another type is ignored
	w := &kafkaGo.Writer{Addr: kafkaGo.TCP(brokers), Topic: topic, Balancer: &kafkaGo.LeastBytes{}}
	require.NoError(t, w.WriteMessages(ctx, kafkaGo.Message{
		Value:   []byte(`{"profile_id":"other"}`),
		Headers: []kafkaGo.Header{{Key: "event_type", Value: []byte("checkout")}},
	}))
	w.Close()

	go poller.Run(ctx)

	require.Eventually(t, func() bool {
		return len(evictor.snapshot()) == 1
	}, 15*time.Second, 500*time.Millisecond)

	time.Sleep(time.Second)
	assert.DeepEqual(t, []string{"profile-123"}, evictor.snapshot())
}

func TestEventType(t *testing.T) {
	m := kafkaGo.Message{Headers: []kafkaGo.Header{
		{Key: "trace", Value: []byte("x")},
		{Key: "event_type", Value: []byte(EventOrderPlaced)},
	}}
	assert.Equal(t, EventOrderPlaced, eventType(m))
	assert.Equal(t, "", eventType(kafkaGo.Message{}))
}
