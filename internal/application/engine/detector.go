package engine

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polygate/internal/domain"
)

// pendingIDNamespace scopes the name-based UUIDs of pending orders.
var pendingIDNamespace = uuid.MustParse("6f1c2a3e-8b4d-5e6f-9a0b-1c2d3e4f5a6b")

// outcomeKey identifies an outcome across scans.
type outcomeKey struct {
	marketID  string
	outcomeID string
}

// Detector turns market snapshots into pending orders. An outcome is
// actionable when threshold <= p < 1; each (market, outcome) pair produces at
// most one pending order for the lifetime of the process.
type Detector struct {
	threshold float64
	size      float64
	now       func() time.Time

	mu        sync.Mutex
	processed map[outcomeKey]struct{}
}

// NewDetector creates a Detector.
func NewDetector(threshold, size float64, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{
		threshold: threshold,
		size:      size,
		now:       now,
		processed: make(map[outcomeKey]struct{}),
	}
}

// Detect scans the markets and returns the newly created pending orders.
func (d *Detector) Detect(markets []domain.Market) []domain.PendingOrder {
	d.mu.Lock()
	defer d.mu.Unlock()

	var created []domain.PendingOrder
	for _, m := range markets {
		for _, o := range m.Outcomes {
			p := o.Probability
			if p < d.threshold {
				continue
			}
			if o.Resolved() {
				slog.Debug("detector: skipping resolved outcome",
					"market", m.ID,
					"outcome", o.Label,
					"probability", p,
				)
				continue
			}

			key := outcomeKey{marketID: m.ID, outcomeID: o.ID}
			if _, seen := d.processed[key]; seen {
				continue
			}
			d.processed[key] = struct{}{}

			createdAt := d.now().UTC()
			created = append(created, domain.PendingOrder{
				ID:          pendingOrderID(m.ID, o.ID, createdAt),
				CreatedAt:   createdAt,
				MarketID:    m.ID,
				Question:    m.Question,
				OutcomeID:   o.ID,
				Label:       o.Label,
				Probability: p,
				Size:        d.size,
				Status:      domain.PendingStatusPending,
			})
		}
	}
	return created
}

// Processed returns how many outcomes have been turned into pending orders.
func (d *Detector) Processed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.processed)
}

// pendingOrderID derives a stable id from the outcome identity and creation time.
func pendingOrderID(marketID, outcomeID string, createdAt time.Time) string {
	name := marketID + "|" + outcomeID + "|" + strconv.FormatInt(createdAt.UnixNano(), 10)
	return uuid.NewSHA1(pendingIDNamespace, []byte(name)).String()
}
