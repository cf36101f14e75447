package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/pkg/metrics"
)

const breakerName = "nats-publisher"

// ErrCircuitOpen is returned while the publisher is refusing calls after repeated failures
var ErrCircuitOpen = gobreaker.ErrOpenState

// jetStream is the part of nats.JetStreamContext the publisher needs
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher handles publishing events to NATS JetStream.
// Calls go through a circuit breaker so a dead broker fails fast instead of
// making every request wait for a publish timeout.
type Publisher struct {
	nc      *nats.Conn
	jsm     nats.JetStreamContext
	js      jetStream
	breaker *gobreaker.CircuitBreaker[*nats.PubAck]
	logger  *logger.Logger
}

// NewPublisher creates a new NATS JetStream publisher
func NewPublisher(cfg *config.Config, log *logger.Logger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"url": cfg.NATS.URL,
	}).Info("Connected to NATS JetStream")

	p := newPublisher(js, log)
	p.nc = nc
	p.jsm = js
	return p, nil
}

// EnsureStreams provisions the given streams on the connected server
func (p *Publisher) EnsureStreams(specs ...StreamSpec) error {
	if p.jsm == nil {
		return fmt.Errorf("publisher has no JetStream connection")
	}

	streams := NewStreamConfig(p.jsm, p.logger)
	for _, spec := range specs {
		if err := streams.EnsureStream(spec); err != nil {
			return err
		}
	}
	return nil
}

func newPublisher(js jetStream, log *logger.Logger) *Publisher {
	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return &Publisher{
		js:      js,
		breaker: gobreaker.NewCircuitBreaker[*nats.PubAck](settings),
		logger:  log,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Publish publishes a message to a NATS JetStream subject and waits for the stream ack
func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) error {
	pubAck, err := p.breaker.Execute(func() (*nats.PubAck, error) {
		return p.js.Publish(subject, data, nats.Context(ctx))
	})
	if err != nil {
		p.logger.WithFields(map[string]interface{}{
			"subject": subject,
		}).Error("Failed to publish message to JetStream", err)
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"subject":  subject,
		"stream":   pubAck.Stream,
		"sequence": pubAck.Sequence,
	}).Debug("Published message to JetStream")

	return nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher connection closed")
	}
}

// Discard drops every event. It stands in for Publisher when NATS is disabled.
type Discard struct{}

// Publish does nothing
func (Discard) Publish(context.Context, string, []byte) error { return nil }
