package ports

import (
	"context"

	"github.com/alejandrodnm/polygate/internal/domain"
)

// EventLog is the durable, append-only record of order events.
type EventLog interface {
	AppendEvent(ctx context.Context, ev domain.OrderEvent) error
}

// EventQuerier reads back the order-event log.
type EventQuerier interface {
	QueryEvents(ctx context.Context, f domain.EventFilter) ([]domain.OrderEvent, error)
	OrderHistory(ctx context.Context, orderID string) ([]domain.OrderEvent, error)
	Statistics(ctx context.Context) (domain.EventStats, error)
}
