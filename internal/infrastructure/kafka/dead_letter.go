package kafka

import (
	"context"
	"fmt"
	"strconv"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

// Cabeceras añadidas a cada mensaje de dead-letter.
const (
	HeaderError       = "x-dlq-error"
	HeaderSourceTopic = "x-dlq-source-topic"
	HeaderPartition   = "x-dlq-partition"
	HeaderOffset      = "x-dlq-offset"
)

type messageWriter interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// DeadLetterWriter republica en el tópico DLQ los mensajes que no se pudieron aplicar,
// con el payload original y la causa en cabeceras.
type DeadLetterWriter struct {
	w     messageWriter
	topic string
	log   zerolog.Logger
}

// NewDeadLetterWriter crea el escritor sobre cfg.DLQTopic.
func NewDeadLetterWriter(cfg config.KafkaConfig, log zerolog.Logger) (*DeadLetterWriter, error) {
	base := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Logger:       kafka.LoggerFunc(debugf(log)),
		ErrorLogger:  kafka.LoggerFunc(errorf(log)),
	}
	w, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(otel.GetTracerProvider()),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			semconv.MessagingDestinationNameKey.String(cfg.DLQTopic),
			attribute.String("messaging.kafka.client_id", "stock-ledger"),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka dlq writer: %w", err)
	}
	return newDeadLetterWriter(w, cfg.DLQTopic, log), nil
}

func newDeadLetterWriter(w messageWriter, topic string, log zerolog.Logger) *DeadLetterWriter {
	return &DeadLetterWriter{w: w, topic: topic, log: log}
}

// Publish escribe una copia del mensaje (misma clave, mismo valor) con la causa del fallo.
func (d *DeadLetterWriter) Publish(ctx context.Context, msg kafka.Message, cause error) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
		kafka.Header{Key: HeaderSourceTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: HeaderOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
	)
	// WriteMessage (singular) para que otelkafka propague la traza.
	if err := d.w.WriteMessage(ctx, kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}); err != nil {
		return fmt.Errorf("publish dlq %s: %w", d.topic, err)
	}
	d.log.Warn().Str("topic", d.topic).Int64("offset", msg.Offset).Msg("mensaje enviado a dead-letter")
	return nil
}

// Close cierra el escritor.
func (d *DeadLetterWriter) Close() error {
	return d.w.Close()
}
