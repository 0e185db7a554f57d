package ports

import (
	"context"

	"github.com/alejandrodnm/polygate/internal/domain"
)

// OrderSubmitter places orders with the venue's order-submission service.
type OrderSubmitter interface {
	// SubmitOrder signs and submits a BUY limit order for the outcome token.
	SubmitOrder(ctx context.Context, req domain.SubmitRequest) (domain.SubmitReceipt, error)
}

// OrderStatusProvider reports fill progress for a submitted order.
type OrderStatusProvider interface {
	// FetchOrderStatus returns the venue view of the order. On error the
	// report is domain.UnknownStatus().
	FetchOrderStatus(ctx context.Context, orderID string) (domain.StatusReport, error)
}
