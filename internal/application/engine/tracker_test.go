package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polygate/internal/domain"
)

func newTestTracker(status *fakeStatus) (*Tracker, *Ledger, *fakeEvents, *fakeClock) {
	clock := newFakeClock(testStart)
	ledger := NewLedger(10)
	events := &fakeEvents{}
	j := &journal{ledger: ledger, events: events}
	return NewTracker(status, j, 2, clock.Now), ledger, events, clock
}

func submitted(id string, size float64) domain.Order {
	return domain.Order{
		OrderID:       id,
		MarketID:      "m1",
		OutcomeID:     "tok-" + id,
		Label:         "Yes",
		Price:         0.97,
		Size:          size,
		SizeRemaining: size,
		Status:        domain.OrderStatusSubmitted,
	}
}

func TestTracker_TrackSkipsUntrackable(t *testing.T) {
	tr, _, _, _ := newTestTracker(newFakeStatus())

	assert.False(t, tr.Track(submitted(domain.SentinelOrderID, 5)))
	assert.False(t, tr.Track(submitted("", 5)))
	filled := submitted("f", 5)
	filled.Status = domain.OrderStatusFilled
	assert.False(t, tr.Track(filled))

	assert.True(t, tr.Track(submitted("a", 5)))
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_Tick(t *testing.T) {
	status := newFakeStatus()
	tr, ledger, events, _ := newTestTracker(status)

	for _, id := range []string{"matched", "full", "cancelled", "partial", "live", "broken"} {
		require.True(t, tr.Track(submitted(id, 10)))
	}
	status.Set("matched", domain.StatusReport{Status: domain.FillStatusMatched})
	status.Set("full", domain.StatusReport{Status: domain.FillStatusLive, SizeFilled: 10})
	status.Set("cancelled", domain.StatusReport{Status: domain.FillStatusCancelled, SizeFilled: 4, SizeRemaining: 6})
	status.Set("partial", domain.StatusReport{Status: domain.FillStatusLive, SizeFilled: 3, SizeRemaining: 7})
	status.Set("live", domain.StatusReport{Status: domain.FillStatusLive})
	status.errs["broken"] = errors.New("timeout")

	res := tr.Tick(context.Background())

	assert.Equal(t, TickResult{Checked: 6, Filled: 2, Partial: 1, Cancelled: 1, Errors: 1}, res)
	assert.Equal(t, 3, tr.Len())

	byID := map[string]domain.Order{}
	for _, o := range tr.Orders() {
		byID[o.OrderID] = o
	}
	assert.Contains(t, byID, "live")
	assert.Contains(t, byID, "broken")
	require.Contains(t, byID, "partial")
	assert.Equal(t, domain.OrderStatusPartiallyFilled, byID["partial"].Status)
	assert.Equal(t, 3.0, byID["partial"].SizeFilled)
	assert.Equal(t, 7.0, byID["partial"].SizeRemaining)
	assert.Equal(t, testStart, byID["live"].LastCheckedAt)

	actions := map[domain.TradeAction]int{}
	for _, e := range ledger.Entries() {
		actions[e.Action]++
	}
	assert.Equal(t, 2, actions[domain.ActionFilled])
	assert.Equal(t, 1, actions[domain.ActionCancelled])
	assert.Contains(t, events.Types(), domain.EventOrderUpdated)
}

func TestTracker_PartialFillReportedOnce(t *testing.T) {
	status := newFakeStatus()
	tr, _, events, clock := newTestTracker(status)
	require.True(t, tr.Track(submitted("p", 10)))
	status.Set("p", domain.StatusReport{Status: domain.FillStatusLive, SizeFilled: 3, SizeRemaining: 7})

	tr.Tick(context.Background())
	clock.Advance(time.Minute)
	res := tr.Tick(context.Background())

	assert.Equal(t, 1, res.Checked)
	assert.Len(t, events.Types(), 1)

	status.Set("p", domain.StatusReport{Status: domain.FillStatusMatched})
	tr.Tick(context.Background())
	assert.Zero(t, tr.Len())
}

func TestTracker_OrdersKeepInsertionOrder(t *testing.T) {
	tr, _, _, _ := newTestTracker(newFakeStatus())
	for _, id := range []string{"c", "a", "b"} {
		tr.Track(submitted(id, 1))
	}

	var ids []string
	for _, o := range tr.Orders() {
		ids = append(ids, o.OrderID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestClassify_CancelledBeatsPartial(t *testing.T) {
	o, changed := classify(submitted("x", 10),
		domain.StatusReport{Status: domain.FillStatusCancelled, SizeFilled: 5}, testStart)

	assert.True(t, changed)
	assert.Equal(t, domain.OrderStatusCancelled, o.Status)
	assert.Equal(t, 5.0, o.SizeFilled)
	assert.Zero(t, o.SizeRemaining)
}

func TestClassify_UnknownOnlyTouchesLastChecked(t *testing.T) {
	o, changed := classify(submitted("x", 10), domain.UnknownStatus(), testStart)

	assert.False(t, changed)
	assert.Equal(t, domain.OrderStatusSubmitted, o.Status)
	assert.Equal(t, testStart, o.LastCheckedAt)
}

// stallingStatus bloquea la consulta de una orden hasta que se cierre release.
type stallingStatus struct {
	*fakeStatus
	stallID string
	entered chan struct{}
	release chan struct{}
}

func (s *stallingStatus) FetchOrderStatus(ctx context.Context, id string) (domain.StatusReport, error) {
	if id == s.stallID {
		close(s.entered)
		<-s.release
	}
	return s.fakeStatus.FetchOrderStatus(ctx, id)
}

func TestTracker_StalledQueryDoesNotBlockOthers(t *testing.T) {
	status := &stallingStatus{
		fakeStatus: newFakeStatus(),
		stallID:    "stuck",
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	ledger := NewLedger(10)
	tr := NewTracker(status, &journal{ledger: ledger}, 2, newFakeClock(testStart).Now)

	for _, id := range []string{"stuck", "a", "b", "c"} {
		require.True(t, tr.Track(submitted(id, 10)))
	}
	for _, id := range []string{"a", "b", "c"} {
		status.Set(id, domain.StatusReport{Status: domain.FillStatusMatched})
	}

	done := make(chan TickResult, 1)
	go func() { done <- tr.Tick(context.Background()) }()
	<-status.entered

	require.Eventually(t, func() bool { return len(ledger.Entries()) == 3 },
		time.Second, 5*time.Millisecond)
	select {
	case <-done:
		t.Fatal("tick returned before the stalled query finished")
	default:
	}

	close(status.release)
	res := <-done
	assert.Equal(t, TickResult{Checked: 4, Filled: 3}, res)
	assert.Equal(t, 1, tr.Len())
}
