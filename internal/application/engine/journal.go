package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polygate/internal/domain"
	"github.com/alejandrodnm/polygate/internal/ports"
)

const eventWriteTimeout = 5 * time.Second

var actionEvents = map[domain.TradeAction]domain.OrderEventType{
	domain.ActionSubmitted:        domain.EventOrderSubmitted,
	domain.ActionSubmissionFailed: domain.EventOrderFailed,
	domain.ActionRejected:         domain.EventOrderRejected,
	domain.ActionFilled:           domain.EventOrderFilled,
	domain.ActionCancelled:        domain.EventOrderCancelled,
}

// journal records trade history in the in-memory ledger and mirrors it to
// the durable event log. Event log failures are logged and dropped.
type journal struct {
	ledger *Ledger
	events ports.EventLog
}

func (j *journal) record(ctx context.Context, e domain.TradeLogEntry, status string) {
	j.ledger.Append(e)

	ev := domain.OrderEvent{
		Timestamp: e.Timestamp,
		Type:      actionEvents[e.Action],
		OrderID:   e.OrderID,
		MarketID:  e.MarketID,
		OutcomeID: e.OutcomeID,
		Outcome:   e.Label,
		Price:     e.Price,
		Size:      e.Size,
		Status:    status,
	}
	if e.Error != "" {
		ev.Details = map[string]any{"error": e.Error}
	}
	j.event(ctx, ev)
}

func (j *journal) event(ctx context.Context, ev domain.OrderEvent) {
	if j.events == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventWriteTimeout)
	defer cancel()
	if err := j.events.AppendEvent(wctx, ev); err != nil {
		slog.Warn("journal: event log write failed", "type", ev.Type, "market", ev.MarketID, "err", err)
	}
}
