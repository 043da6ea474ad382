package consumers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/escrow-ledger/internal/config"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages, then blocks until the context ends
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestNewKafkaConsumer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.KafkaConfig{
		Brokers:       "localhost:9092",
		EventsTopic:   "escrow-events",
		ConsumerGroup: "audit-projector",
		MinBytes:      1024,
		MaxBytes:      10240,
		MaxWait:       time.Second,
	}

	consumer := NewKafkaConsumer(context.Background(), logger, cfg)
	require.NotNil(t, consumer.reader)
	assert.Equal(t, "escrow-events", consumer.topic)
	assert.Equal(t, "audit-projector", consumer.groupID)
	require.NoError(t, consumer.Close())
}

func TestKafkaConsumer_CommitsOnlyHandledMessages(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := &fakeReader{
		fetchErrs: []error{errors.New("coordinator not available")},
		queue: []kafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("bad")},
			{Offset: 3, Value: []byte("ok")},
		},
	}
	consumer := &KafkaConsumer{reader: reader, logger: logger, topic: "escrow-events", backoff: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan string, 3)
	require.NoError(t, consumer.Subscribe(ctx, func(_ context.Context, _ []byte, value []byte) error {
		handled <- string(value)
		if string(value) == "bad" {
			return errors.New("handler failed")
		}
		return nil
	}))

	for i := 0; i < 3; i++ {
		select {
		case <-handled:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for messages")
		}
	}
	assert.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 3}, reader.commits())
}

func TestKafkaConsumer_Close(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	consumer := &KafkaConsumer{reader: nil, logger: logger}
	require.NoError(t, consumer.Close(), "Close should return nil if reader is nil")
}
