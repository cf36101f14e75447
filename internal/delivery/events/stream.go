package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

const (
	// ReconcilerConsumer is the durable consumer of the rating reconciler
	ReconcilerConsumer = "rating-reconciler"

	// MaxDeliveryAttempts is the max number of delivery attempts before discarding.
	// A dropped event only delays the next drift check for that product.
	MaxDeliveryAttempts = 3

	// AckWait is how long to wait for acknowledgment before redelivery
	AckWait = 30 * time.Second
)

// StreamSpec describes one JetStream stream
type StreamSpec struct {
	Name        string
	Subjects    []string
	Retention   nats.RetentionPolicy
	MaxAge      time.Duration
	Description string
}

// ReviewsStream carries review events. Work queue retention: a message is
// removed once the reconciler acks it.
var ReviewsStream = StreamSpec{
	Name:        "REVIEWS",
	Subjects:    []string{domain.SubjectReviewEvents},
	Retention:   nats.WorkQueuePolicy,
	MaxAge:      24 * time.Hour,
	Description: "Review events for rating reconciliation",
}

// CatalogStream retains catalog change events for replay
var CatalogStream = StreamSpec{
	Name:        "CATALOG",
	Subjects:    []string{"catalog.>"},
	Retention:   nats.LimitsPolicy,
	MaxAge:      7 * 24 * time.Hour,
	Description: "Catalog change events",
}

// jetStreamManager is the part of nats.JetStreamContext used to provision streams
type jetStreamManager interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	ConsumerInfo(stream, name string, opts ...nats.JSOpt) (*nats.ConsumerInfo, error)
	AddConsumer(stream string, cfg *nats.ConsumerConfig, opts ...nats.JSOpt) (*nats.ConsumerInfo, error)
}

// StreamConfig provisions JetStream streams and consumers
type StreamConfig struct {
	js     jetStreamManager
	logger *logger.Logger
}

// NewStreamConfig creates a new stream configuration helper
func NewStreamConfig(js nats.JetStreamContext, log *logger.Logger) *StreamConfig {
	return &StreamConfig{
		js:     js,
		logger: log,
	}
}

// generateExponentialBackoff creates a backoff schedule for NATS redeliveries
// Pattern: 1s, 2s, 4s, 8s, ... (2^n seconds)
// MaxDeliver N requires N-1 backoff durations (first delivery is immediate)
func generateExponentialBackoff(maxDeliveryAttempts int) []time.Duration {
	if maxDeliveryAttempts <= 1 {
		return nil
	}

	backoff := make([]time.Duration, maxDeliveryAttempts-1)
	for i := range backoff {
		backoff[i] = time.Duration(1<<i) * time.Second
	}
	return backoff
}

// EnsureStream creates the stream if it does not exist yet.
// File storage, one replica, oldest messages discarded at the limits.
func (s *StreamConfig) EnsureStream(spec StreamSpec) error {
	stream, err := s.js.StreamInfo(spec.Name)

	if errors.Is(err, nats.ErrStreamNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   spec.Name,
			"subjects": spec.Subjects,
		}).Info("Creating JetStream stream")

		_, err = s.js.AddStream(&nats.StreamConfig{
			Name:        spec.Name,
			Subjects:    spec.Subjects,
			Retention:   spec.Retention,
			Storage:     nats.FileStorage,
			Replicas:    1,
			MaxAge:      spec.MaxAge,
			Discard:     nats.DiscardOld,
			Description: spec.Description,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", spec.Name, err)
		}

		s.logger.Infof("JetStream stream %s created", spec.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get stream info for %s: %w", spec.Name, err)
	}

	s.logger.WithFields(map[string]any{
		"stream":   stream.Config.Name,
		"messages": stream.State.Msgs,
		"bytes":    stream.State.Bytes,
	}).Info("JetStream stream already exists")

	return nil
}

// EnsureReconcilerConsumer creates the durable pull consumer the rating reconciler reads from.
// Explicit acks, MaxDeliveryAttempts deliveries with exponential backoff between them.
func (s *StreamConfig) EnsureReconcilerConsumer() error {
	consumerInfo, err := s.js.ConsumerInfo(ReviewsStream.Name, ReconcilerConsumer)

	if errors.Is(err, nats.ErrConsumerNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   ReviewsStream.Name,
			"consumer": ReconcilerConsumer,
		}).Info("Creating JetStream consumer")

		_, err = s.js.AddConsumer(ReviewsStream.Name, &nats.ConsumerConfig{
			Durable:       ReconcilerConsumer,
			AckPolicy:     nats.AckExplicitPolicy,
			AckWait:       AckWait,
			MaxDeliver:    MaxDeliveryAttempts,
			FilterSubject: domain.SubjectReviewEvents,
			BackOff:       generateExponentialBackoff(MaxDeliveryAttempts),
			Description:   "Rating reconciler consumer for review events",
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}

		s.logger.Info("JetStream consumer created successfully")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}

	s.logger.WithFields(map[string]any{
		"consumer":    consumerInfo.Name,
		"pending":     consumerInfo.NumPending,
		"redelivered": consumerInfo.NumRedelivered,
		"ack_pending": consumerInfo.NumAckPending,
	}).Info("JetStream consumer already exists")

	return nil
}
