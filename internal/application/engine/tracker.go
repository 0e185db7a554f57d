package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/polygate/internal/domain"
	"github.com/alejandrodnm/polygate/internal/ports"
)

const defaultMaxConcurrentChecks = 8

// TickResult summarizes one tracking pass.
type TickResult struct {
	Checked   int
	Filled    int
	Partial   int
	Cancelled int
	Errors    int
}

// Tracker polls fill status for submitted orders and evicts them once they
// reach FILLED or CANCELLED.
type Tracker struct {
	status        ports.OrderStatusProvider
	journal       *journal
	maxConcurrent int
	now           func() time.Time

	mu     sync.Mutex
	orders map[string]*domain.Order
	seq    []string // insertion order for stable snapshots
}

// NewTracker creates a Tracker.
func NewTracker(status ports.OrderStatusProvider, j *journal, maxConcurrent int, now func() time.Time) *Tracker {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentChecks
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		status:        status,
		journal:       j,
		maxConcurrent: maxConcurrent,
		now:           now,
		orders:        make(map[string]*domain.Order),
	}
}

// Track starts polling an order. Orders without a venue id or already in a
// terminal state are ignored.
func (t *Tracker) Track(o domain.Order) bool {
	if !o.HasVenueID() || o.Status.Terminal() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.orders[o.OrderID]; !exists {
		t.seq = append(t.seq, o.OrderID)
	}
	t.orders[o.OrderID] = &o
	return true
}

// Len returns the number of tracked orders.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.orders)
}

// Orders returns a snapshot of the tracked orders in submission order.
func (t *Tracker) Orders() []domain.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.Order, 0, len(t.orders))
	for _, id := range t.seq {
		if o, ok := t.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out
}

// Tick queries every tracked order concurrently and waits for all of them.
// A failing query only affects its own order.
func (t *Tracker) Tick(ctx context.Context) TickResult {
	snapshot := t.Orders()
	if len(snapshot) == 0 {
		return TickResult{}
	}

	var (
		resMu sync.Mutex
		res   TickResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.maxConcurrent)
	for _, o := range snapshot {
		g.Go(func() error {
			report, err := t.status.FetchOrderStatus(gctx, o.OrderID)
			if err != nil {
				slog.Warn("tracker: status query failed", "order", o.OrderID, "err", err)
			}
			var status domain.OrderStatus
			if err == nil {
				status = t.apply(ctx, o.OrderID, report)
			}

			resMu.Lock()
			defer resMu.Unlock()
			res.Checked++
			if err != nil {
				res.Errors++
				return nil
			}
			switch status {
			case domain.OrderStatusFilled:
				res.Filled++
			case domain.OrderStatusPartiallyFilled:
				res.Partial++
			case domain.OrderStatusCancelled:
				res.Cancelled++
			}
			return nil
		})
	}
	_ = g.Wait()

	t.compact()
	return res
}

// apply classifies a status report and updates the tracked order. It returns
// the order's new status.
func (t *Tracker) apply(ctx context.Context, orderID string, r domain.StatusReport) domain.OrderStatus {
	t.mu.Lock()
	o, ok := t.orders[orderID]
	if !ok {
		t.mu.Unlock()
		return ""
	}
	now := t.now().UTC()
	next, changed := classify(*o, r, now)
	*o = next
	terminal := next.Status.Terminal()
	if terminal {
		delete(t.orders, orderID)
	}
	t.mu.Unlock()

	if !changed {
		return next.Status
	}

	switch next.Status {
	case domain.OrderStatusFilled:
		slog.Info("tracker: order filled", "order", orderID, "size", next.Size)
		t.journal.record(ctx, ledgerEntry(next, domain.ActionFilled, true, now), string(next.Status))
	case domain.OrderStatusCancelled:
		slog.Info("tracker: order cancelled", "order", orderID, "filled", next.SizeFilled)
		t.journal.record(ctx, ledgerEntry(next, domain.ActionCancelled, false, now), string(next.Status))
	case domain.OrderStatusPartiallyFilled:
		slog.Info("tracker: order partially filled", "order", orderID,
			"filled", next.SizeFilled, "remaining", next.SizeRemaining)
		t.journal.event(ctx, domain.OrderEvent{
			Timestamp: now,
			Type:      domain.EventOrderUpdated,
			OrderID:   orderID,
			MarketID:  next.MarketID,
			OutcomeID: next.OutcomeID,
			Outcome:   next.Label,
			Price:     next.Price,
			Size:      next.Size,
			Status:    string(next.Status),
			Details:   map[string]any{"sizeFilled": next.SizeFilled, "sizeRemaining": next.SizeRemaining},
		})
	}
	return next.Status
}

// compact drops evicted ids from the insertion-order index.
func (t *Tracker) compact() {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.seq[:0]
	for _, id := range t.seq {
		if _, ok := t.orders[id]; ok {
			kept = append(kept, id)
		}
	}
	t.seq = kept
}

// classify applies a status report to an order. Cancellation is checked
// before partial fills so a cancelled, partly filled order is evicted.
// changed is false when only lastCheckedAt moved.
func classify(o domain.Order, r domain.StatusReport, now time.Time) (domain.Order, bool) {
	o.LastCheckedAt = now

	var next domain.OrderStatus
	switch {
	case r.Status == domain.FillStatusMatched || (o.Size > 0 && r.SizeFilled >= o.Size):
		next = domain.OrderStatusFilled
	case r.Status == domain.FillStatusCancelled:
		next = domain.OrderStatusCancelled
	case r.SizeFilled > 0 && r.SizeFilled < o.Size:
		next = domain.OrderStatusPartiallyFilled
	default:
		return o, false
	}

	status, err := o.Status.Transition(next)
	if err != nil {
		slog.Warn("tracker: ignoring status report", "order", o.OrderID, "err", err)
		return o, false
	}

	switch status {
	case domain.OrderStatusFilled:
		o.SizeFilled = o.Size
		o.SizeRemaining = 0
	case domain.OrderStatusCancelled:
		if r.SizeFilled > 0 {
			o.SizeFilled = r.SizeFilled
		}
		o.SizeRemaining = 0
	case domain.OrderStatusPartiallyFilled:
		if o.Status == domain.OrderStatusPartiallyFilled && o.SizeFilled == r.SizeFilled {
			return o, false
		}
		o.SizeFilled = r.SizeFilled
		o.SizeRemaining = r.SizeRemaining
		if o.SizeRemaining <= 0 {
			o.SizeRemaining = o.Size - r.SizeFilled
		}
	}
	o.Status = status
	return o, true
}

func ledgerEntry(o domain.Order, action domain.TradeAction, success bool, at time.Time) domain.TradeLogEntry {
	return domain.TradeLogEntry{
		Timestamp: at,
		MarketID:  o.MarketID,
		OutcomeID: o.OutcomeID,
		Label:     o.Label,
		OrderID:   o.OrderID,
		Price:     o.Price,
		Size:      o.Size,
		Action:    action,
		Success:   success,
		Error:     o.Error,
	}
}
