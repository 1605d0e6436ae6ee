package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"org-directory/pkg/shared"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// AuditWorker records every committed directory mutation in the log.
type AuditWorker struct {
	*BaseWorker
	processed atomic.Int64
}

func NewAuditWorker(js nats.JetStreamContext, logger *logrus.Logger) *AuditWorker {
	return &AuditWorker{
		BaseWorker: NewBaseWorker(
			"AuditWorker",
			js,
			shared.StreamDirectory,
			shared.ConsumerAudit,
			shared.SubjectAll,
			logger,
		),
	}
}

func (w *AuditWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

func (w *AuditWorker) handle(msg *nats.Msg) error {
	var event shared.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// Redelivery cannot fix a malformed payload.
		w.logger.WithError(err).WithField("subject", msg.Subject).Error("Dropping malformed directory event")
		return nil
	}
	if event.Subject != msg.Subject {
		return fmt.Errorf("event subject %q does not match message subject %q", event.Subject, msg.Subject)
	}

	w.logger.WithFields(logrus.Fields{
		"event_id":  event.ID,
		"type":      event.Type,
		"subject":   event.Subject,
		"source":    event.Source,
		"timestamp": event.Timestamp,
		"data":      event.Data,
	}).Info("Directory event")

	w.processed.Add(1)
	return nil
}

// Processed returns the number of events audited so far.
func (w *AuditWorker) Processed() int64 {
	return w.processed.Load()
}
