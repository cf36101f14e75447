package worker

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

const (
	fetchBatch    = 10
	fetchMaxWait  = 5 * time.Second
	fetchErrPause = 5 * time.Second
)

// Fetcher is the part of a JetStream pull subscription the loop needs
type Fetcher interface {
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
}

// PullLoop feeds messages from a durable pull consumer into a handler
type PullLoop struct {
	sub     Fetcher
	handle  func(data []byte) error
	logger  *logger.Logger
	pause   time.Duration
	maxWait time.Duration
}

// NewPullLoop creates a loop that hands every fetched message to handle
func NewPullLoop(sub Fetcher, handle func(data []byte) error, log *logger.Logger) *PullLoop {
	return &PullLoop{
		sub:     sub,
		handle:  handle,
		logger:  log,
		pause:   fetchErrPause,
		maxWait: fetchMaxWait,
	}
}

// Run fetches in batches until ctx is cancelled. Handled messages are acked;
// failures are nacked so JetStream redelivers them with backoff until
// MaxDeliver is reached. A dropped event only delays that product's next check.
func (l *PullLoop) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		msgs, err := l.sub.Fetch(fetchBatch, nats.MaxWait(l.maxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			l.logger.Error("Failed to fetch messages from JetStream", err)

			select {
			case <-time.After(l.pause):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, msg := range msgs {
			l.process(msg)
		}
	}
}

func (l *PullLoop) process(msg *nats.Msg) {
	if err := l.handle(msg.Data); err != nil {
		l.logger.Error("Failed to handle event", err)

		if nackErr := msg.Nak(); nackErr != nil {
			l.logger.Error("Failed to NACK message", nackErr)
		}
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		l.logger.Error("Failed to ACK message", ackErr)
	}
}
