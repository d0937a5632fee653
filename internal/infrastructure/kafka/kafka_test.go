package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessage(_ context.Context, msg kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msg)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestDeadLetterWriter_Publish(t *testing.T) {
	w := &recordingWriter{}
	d := newDeadLetterWriter(w, "stock-events-dlq", zerolog.Nop())

	src := kafka.Message{
		Topic: "stock-events", Partition: 2, Offset: 99,
		Key: []byte("k"), Value: []byte(`{"id":"x"}`),
		Headers: []kafka.Header{{Key: "traceparent", Value: []byte("00-abc")}},
	}
	require.NoError(t, d.Publish(context.Background(), src, errors.New("violación de check")))

	require.Len(t, w.msgs, 1)
	out := w.msgs[0]
	assert.Empty(t, out.Topic)
	assert.Equal(t, src.Value, out.Value)
	assert.Equal(t, src.Key, out.Key)
	assert.Equal(t, "00-abc", header(out, "traceparent"))
	assert.Equal(t, "violación de check", header(out, HeaderError))
	assert.Equal(t, "stock-events", header(out, HeaderSourceTopic))
	assert.Equal(t, "2", header(out, HeaderPartition))
	assert.Equal(t, "99", header(out, HeaderOffset))
	// el mensaje original no se modifica
	assert.Len(t, src.Headers, 1)
}

func TestDeadLetterWriter_ErrorDeEscritura(t *testing.T) {
	boom := errors.New("broker caído")
	d := newDeadLetterWriter(&recordingWriter{err: boom}, "dlq", zerolog.Nop())
	err := d.Publish(context.Background(), kafka.Message{}, errors.New("x"))
	assert.ErrorIs(t, err, boom)
}

func TestReaderConfig(t *testing.T) {
	rc := ReaderConfig(config.KafkaConfig{
		Brokers:        []string{"k1:9092", "k2:9092"},
		Topic:          "stock-events",
		ConsumerGroup:  "default-group",
		CommitInterval: time.Second,
	}, zerolog.Nop())

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, rc.Brokers)
	assert.Equal(t, "default-group", rc.GroupID)
	assert.Equal(t, time.Second, rc.CommitInterval)
	assert.Equal(t, kafka.FirstOffset, rc.StartOffset)
	require.NoError(t, rc.Validate())
}
