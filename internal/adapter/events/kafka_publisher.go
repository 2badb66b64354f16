// Package events publishes domain events (sale_completed, batch_voided)
// to Kafka/Redpanda for downstream consumers such as dashboards; the HTTP
// handlers publish them after the mutation's transaction has committed.
package events

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/bakeryhq/ops-backend/internal/adapter/observability"
	"github.com/bakeryhq/ops-backend/internal/domain"
)

// circuitBreakerMaxFailures and circuitBreakerOpenTimeout bound how many
// consecutive produce/transaction failures this publisher tolerates before
// it stops calling the broker and how long it waits before probing again.
const (
	circuitBreakerMaxFailures = 5
	circuitBreakerOpenTimeout = 30 * time.Second
)

// KafkaPublisher implements domain.EventPublisher over a transactional
// franz-go producer, publishing to whatever topic the caller names
// rather than a single hardcoded topic.
type KafkaPublisher struct {
	client *kgo.Client
	txChan chan struct{}
	cb     *observability.CircuitBreaker
}

// NewKafkaPublisher constructs a KafkaPublisher with exactly-once semantics.
func NewKafkaPublisher(brokers []string, transactionalID string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=events.NewKafkaPublisher: no seed brokers provided")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1_000_000),
	)
	if err != nil {
		return nil, fmt.Errorf("op=events.NewKafkaPublisher: %w", err)
	}

	return &KafkaPublisher{
		client: client,
		txChan: make(chan struct{}, 1),
		cb:     observability.NewCircuitBreaker("kafka_publisher:"+transactionalID, circuitBreakerMaxFailures, circuitBreakerOpenTimeout),
	}, nil
}

// Publish sends payload to topic keyed by key, inside a transaction for
// exactly-once delivery. It never blocks the caller's own transaction:
// the HTTP handlers call this after the usecase's transaction has
// committed and only log a failure.
func (p *KafkaPublisher) Publish(ctx domain.Context, topic string, key string, payload []byte) error {
	select {
	case p.txChan <- struct{}{}:
		defer func() { <-p.txChan }()
	case <-ctx.Done():
		return ctx.Err()
	}

	return p.cb.Call(func() error {
		if err := p.client.BeginTransaction(); err != nil {
			return fmt.Errorf("op=events.Publish begin transaction: %w", err)
		}

		record := &kgo.Record{
			Topic: topic,
			Key:   []byte(key),
			Value: payload,
		}

		e := kgo.AbortingFirstErrPromise(p.client)
		p.client.Produce(ctx, record, e.Promise())

		if err := e.Err(); err != nil {
			if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
				slog.Error("events: failed to abort transaction", slog.Any("error", abortErr))
			}
			return fmt.Errorf("op=events.Publish produce: %w", err)
		}

		if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
			return fmt.Errorf("op=events.Publish commit transaction: %w", err)
		}

		return nil
	})
}

// Close releases the underlying Kafka client.
func (p *KafkaPublisher) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
