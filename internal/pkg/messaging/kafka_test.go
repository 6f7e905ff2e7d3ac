package messaging

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafka_Validation(t *testing.T) {
	_, err := NewKafka(KafkaConfig{})
	assert.ErrorIs(t, err, ErrKafkaBrokersRequired)

	k, err := NewKafka(KafkaConfig{Brokers: []string{"127.0.0.1:9092"}})
	require.NoError(t, err)

	ctx := context.Background()
	h := func(context.Context, Message) error { return nil }

	assert.ErrorIs(t, k.Consume(ctx, "otp_dispatch", h), ErrGroupRequired)
	assert.ErrorIs(t, k.Consume(ctx, "", h, WithGroup("g")), ErrDestinationRequired)
	assert.ErrorIs(t, k.Consume(ctx, "otp_dispatch", nil, WithGroup("g")), ErrHandlerRequired)

	_, err = k.Publish(ctx, "otp_dispatch", OutgoingMessage{Delay: time.Second})
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = k.Publish(ctx, "", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrDestinationRequired)

	require.NoError(t, k.Close())
	_, err = k.Publish(ctx, "otp_dispatch", OutgoingMessage{Body: []byte("x")})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestKafkaMessage(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := &kafkaMessage{msg: kafka.Message{
		Topic:     "otp_dispatch",
		Partition: 2,
		Offset:    17,
		Value:     []byte("body"),
		Time:      at,
		Headers:   []kafka.Header{{Key: "cID", Value: []byte("corr-1")}},
	}}

	assert.Equal(t, "otp_dispatch/2/17", m.ID())
	assert.Equal(t, []byte("body"), m.Body())
	assert.Equal(t, at, m.Timestamp())
	assert.Equal(t, 1, m.Attempts())
	assert.Equal(t, []Header{{Key: "cID", Value: []byte("corr-1")}}, m.Headers())

	require.NoError(t, m.Nack(context.Background()))
	// already settled, so Ack must not reach the reader
	require.NoError(t, m.Ack(context.Background()))
}
