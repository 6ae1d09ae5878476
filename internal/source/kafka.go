package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"fraudlens/internal/domain"
	"fraudlens/internal/platform/config"
)

// KafkaSource consumes JSON-encoded transactions from a partitioned topic as
// part of a consumer group. Delivery is at-least-once; ordering holds per
// partition only.
type KafkaSource struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka builds the consumer-group client. Broker connectivity is not
// verified here; call Probe before Run.
func NewKafka(cfg config.Source, logger *slog.Logger) (*KafkaSource, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return nil, fmt.Errorf("build kafka client: %w", err)
	}
	return &KafkaSource{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Probe asks the brokers for topic metadata. Unreachable brokers or a
// missing topic are fatal startup errors, not retried here.
func (s *KafkaSource) Probe(ctx context.Context) error {
	adm := kadm.NewClient(s.client)
	meta, err := adm.Metadata(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("%w: kafka metadata: %v", ErrSourceUnavailable, err)
	}
	td, ok := meta.Topics[s.topic]
	if !ok {
		return fmt.Errorf("%w: topic %q not found", ErrSourceUnavailable, s.topic)
	}
	if td.Err != nil {
		return fmt.Errorf("%w: topic %q: %v", ErrSourceUnavailable, s.topic, td.Err)
	}
	return nil
}

// Run polls fetches until ctx is cancelled. Fetch-level errors are logged
// and the loop continues; a record that fails to decode is skipped with its
// coordinates so it can be replayed by hand if needed.
func (s *KafkaSource) Run(ctx context.Context, emit EmitFunc) error {
	for {
		fetches := s.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if fetches.IsClientClosed() {
			return fmt.Errorf("%w: kafka client closed", ErrSourceUnavailable)
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			s.logger.Warn("kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			var tx domain.Transaction
			if err := json.Unmarshal(rec.Value, &tx); err != nil {
				s.logger.Warn("skipping malformed message",
					"topic", rec.Topic,
					"partition", rec.Partition,
					"offset", rec.Offset,
					"error", err,
				)
				return
			}
			emit(tx)
		})
	}
}

// Close releases the underlying Kafka client.
func (s *KafkaSource) Close() {
	s.client.Close()
}
