// Package events delivers quest lifecycle events to interested parties: the
// user's open WebSocket connections and, optionally, a RabbitMQ exchange.
package events

import (
	"context"
	"errors"

	"xquest/internal/model"
)

type Publisher interface {
	Publish(ctx context.Context, event model.QuestEvent) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event model.QuestEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
