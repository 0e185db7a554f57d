package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/polygate/internal/domain"
	"github.com/alejandrodnm/polygate/internal/ports"
)

// Executor submits orders and never fails: every problem is returned as a
// FAILED order carrying a readable error.
type Executor struct {
	submitter ports.OrderSubmitter
	now       func() time.Time
}

// NewExecutor creates an Executor around the order-submission service.
func NewExecutor(submitter ports.OrderSubmitter, now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{submitter: submitter, now: now}
}

// Execute submits req and returns the canonical order.
func (x *Executor) Execute(ctx context.Context, req domain.SubmitRequest) (order domain.Order) {
	order = domain.Order{
		MarketID:      req.MarketID,
		OutcomeID:     req.OutcomeID,
		Label:         req.Label,
		Price:         req.Price,
		Size:          req.Size,
		SizeRemaining: req.Size,
		SubmittedAt:   x.now().UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("executor: submitter panicked", "outcome", req.OutcomeID, "panic", r)
			order.Status = domain.OrderStatusFailed
			order.OrderID = ""
			order.Error = fmt.Sprintf("order submission panicked: %v", r)
		}
	}()

	if x.submitter == nil {
		order.Status = domain.OrderStatusFailed
		order.Error = "order submission is not configured"
		return order
	}

	receipt, err := x.submitter.SubmitOrder(ctx, req)
	if err != nil {
		slog.Warn("executor: submission failed", "outcome", req.OutcomeID, "err", err)
		order.Status = domain.OrderStatusFailed
		order.Error = err.Error()
		return order
	}

	order.OrderID = strings.TrimSpace(receipt.OrderID)
	if order.OrderID == "" {
		order.OrderID = domain.SentinelOrderID
	}
	order.Status = submittedStatus(receipt.Status)
	if order.Status == domain.OrderStatusFilled {
		order.SizeFilled = order.Size
		order.SizeRemaining = 0
	}
	return order
}

// submittedStatus maps the venue's status text for a fresh order.
func submittedStatus(venue string) domain.OrderStatus {
	if strings.EqualFold(strings.TrimSpace(venue), string(domain.FillStatusMatched)) {
		return domain.OrderStatusFilled
	}
	return domain.OrderStatusSubmitted
}
