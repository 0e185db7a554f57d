package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polygate/internal/domain"
)

// MarketProvider returns market snapshots from the venue.
type MarketProvider interface {
	// FetchMarkets returns the current markets with per-outcome probabilities.
	FetchMarkets(ctx context.Context) ([]domain.Market, error)

	// FetchMarketEndTime returns the declared end of a market. A zero time
	// means the venue did not declare one.
	FetchMarketEndTime(ctx context.Context, marketID string) (time.Time, error)
}
