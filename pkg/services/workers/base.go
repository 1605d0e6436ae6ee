package workers

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	fetchBatch   = 10
	fetchWait    = 2 * time.Second
	errorBackoff = time.Second
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// BaseWorker pulls from a durable JetStream consumer and hands each
// message to a handler. Messages are acked when the handler succeeds
// and nacked for redelivery otherwise.
type BaseWorker struct {
	name     string
	js       nats.JetStreamContext
	sub      *nats.Subscription
	consumer string
	stream   string
	subject  string
	logger   *logrus.Entry
}

func NewBaseWorker(name string, js nats.JetStreamContext, stream, consumer, subject string, logger *logrus.Logger) *BaseWorker {
	return &BaseWorker{
		name:     name,
		js:       js,
		consumer: consumer,
		stream:   stream,
		subject:  subject,
		logger:   logger.WithField("worker", name),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

func (w *BaseWorker) Stop() error {
	if w.sub != nil {
		return w.sub.Drain()
	}
	return nil
}

func (w *BaseWorker) processMessages(ctx context.Context, handler func(*nats.Msg) error) error {
	sub, err := w.js.PullSubscribe(w.subject, w.consumer,
		nats.ManualAck(),
		nats.Bind(w.stream, w.consumer),
	)
	if err != nil {
		return err
	}
	w.sub = sub

	w.logger.WithFields(logrus.Fields{
		"stream":   w.stream,
		"consumer": w.consumer,
	}).Info("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopping")
			return ctx.Err()
		default:
		}

		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			if ctx.Err() != nil {
				continue
			}
			w.logger.WithError(err).Warn("Error fetching messages")
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}

		for _, msg := range msgs {
			if err := handler(msg); err != nil {
				w.logger.WithError(err).WithField("subject", msg.Subject).Warn("Message handling failed")
				if err := msg.Nak(); err != nil {
					w.logger.WithError(err).Warn("Error rejecting message")
				}
				continue
			}
			if err := msg.Ack(); err != nil {
				w.logger.WithError(err).Warn("Error acknowledging message")
			}
		}
	}
}
