package ports

import (
	"context"

	"github.com/alejandrodnm/polygate/internal/domain"
)

// Notifier announces new opportunities waiting for approval.
type Notifier interface {
	NotifyPending(ctx context.Context, orders []domain.PendingOrder) error
}
