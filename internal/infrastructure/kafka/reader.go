// Package kafka crea los clientes de segmentio/kafka-go instrumentados con OpenTelemetry:
// el lector del tópico de movimientos y el escritor de dead-letter.
package kafka

import (
	"fmt"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

// ReaderConfig arma la configuración del lector del grupo de consumo. Los offsets se confirman
// periódicamente (CommitInterval) y un grupo nuevo empieza desde el offset más antiguo.
func ReaderConfig(cfg config.KafkaConfig, log zerolog.Logger) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.ConsumerGroup,
		CommitInterval: cfg.CommitInterval,
		StartOffset:    kafka.FirstOffset,
		Logger:         kafka.LoggerFunc(debugf(log)),
		ErrorLogger:    kafka.LoggerFunc(errorf(log)),
	}
}

// NewReader abre un lector nuevo envuelto por otelkafka (un span por mensaje leído).
func NewReader(cfg config.KafkaConfig, log zerolog.Logger) (*otelkafka.Reader, error) {
	base := kafka.NewReader(ReaderConfig(cfg, log))
	r, err := otelkafka.NewReader(base,
		otelkafka.WithTracerProvider(otel.GetTracerProvider()),
		otelkafka.WithPropagator(otel.GetTextMapPropagator()),
	)
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("kafka reader: %w", err)
	}
	return r, nil
}

func debugf(log zerolog.Logger) func(string, ...interface{}) {
	return func(msg string, args ...interface{}) {
		log.Debug().Msgf(msg, args...)
	}
}

func errorf(log zerolog.Logger) func(string, ...interface{}) {
	return func(msg string, args ...interface{}) {
		log.Error().Msgf(msg, args...)
	}
}
