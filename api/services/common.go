package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"org-directory/pkg/shared"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventPublisher receives directory events after the mutation that
// produced them has committed. A nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, event *shared.Event) error
}

// Timestamps are stored as UTC RFC3339 text.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// uniqueIDs drops duplicates, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func publishEvent(ctx context.Context, publisher EventPublisher, logger *logrus.Logger, resource, eventType string, data map[string]interface{}) {
	if publisher == nil {
		return
	}

	event := &shared.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Subject:   shared.DirectorySubject(resource, eventType),
		Data:      data,
		Timestamp: time.Now().UTC(),
		Source:    shared.ServiceName,
	}

	// The mutation is already committed; a failed publish must not fail it.
	if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"subject":  event.Subject,
			"event_id": event.ID,
		}).Warn("Failed to publish directory event")
	}
}

func notFound(kind string, id int64) error {
	return shared.NotFound("%s %d not found", kind, id)
}

func wrapInternal(action string, err error) error {
	return shared.Internal(fmt.Sprintf("failed to %s", action), err)
}
