// Package kafka publishes board evaluations to a telemetry topic. The writer
// is optional; the board runs without it when Kafka is disabled.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weir-rating-lab/internal/config"
	"github.com/couchcryptid/weir-rating-lab/internal/domain"
	"github.com/couchcryptid/weir-rating-lab/internal/observability"
)

// Writer produces evaluation events to the telemetry topic.
// It implements board.Publisher.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured telemetry topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// PublishEvaluation serializes and publishes one evaluation.
func (w *Writer) PublishEvaluation(ctx context.Context, eval domain.Evaluation) error {
	msg, err := serializeToMessage(eval)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish evaluation %s: %w", eval.ID, err)
	}
	w.metrics.PublishedTotal.Inc()
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Evaluation into a Kafka message keyed by its
// deterministic ID, so replays land on the same partition and deduplicate.
func serializeToMessage(eval domain.Evaluation) (kafkago.Message, error) {
	data, err := json.Marshal(eval)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize evaluation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(eval.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "evaluated_at", Value: []byte(eval.EvaluatedAt.Format(time.RFC3339))},
			{Key: "sample_count", Value: []byte(strconv.Itoa(eval.Sampling.Count))},
		},
	}, nil
}
