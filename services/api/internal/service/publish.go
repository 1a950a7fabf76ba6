package service

import (
	"context"
	"strconv"

	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// publish emits a domain event. Delivery failures are logged and never fail
// the operation that already committed.
func publish(ctx context.Context, p events.Publisher, topic string, key uint, eventType string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, strconv.FormatUint(uint64(key), 10), events.New(eventType, payload)); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "type", eventType, "error", err)
	}
}
