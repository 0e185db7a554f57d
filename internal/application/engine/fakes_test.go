package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alejandrodnm/polygate/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeMarkets struct {
	mu      sync.Mutex
	markets []domain.Market
	err     error
	endTime time.Time
	endErr  error
	calls   int

	// con endGate != nil, FetchMarketEndTime avisa en endEntered y bloquea
	endEntered chan struct{}
	endGate    chan struct{}
}

func (f *fakeMarkets) FetchMarkets(_ context.Context) ([]domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.markets, nil
}

func (f *fakeMarkets) FetchMarketEndTime(_ context.Context, _ string) (time.Time, error) {
	if f.endGate != nil {
		f.endEntered <- struct{}{}
		<-f.endGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endTime, f.endErr
}

func (f *fakeMarkets) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSubmitter struct {
	mu       sync.Mutex
	receipt  domain.SubmitReceipt
	err      error
	panicMsg string
	delay    time.Duration
	requests []domain.SubmitRequest
}

func (f *fakeSubmitter) SubmitOrder(_ context.Context, req domain.SubmitRequest) (domain.SubmitReceipt, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.requests = append(f.requests, req)
	return f.receipt, f.err
}

func (f *fakeSubmitter) Requests() []domain.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SubmitRequest(nil), f.requests...)
}

type fakeStatus struct {
	mu      sync.Mutex
	reports map[string]domain.StatusReport
	errs    map[string]error
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{
		reports: make(map[string]domain.StatusReport),
		errs:    make(map[string]error),
	}
}

func (f *fakeStatus) Set(id string, r domain.StatusReport) {
	f.mu.Lock()
	f.reports[id] = r
	f.mu.Unlock()
}

func (f *fakeStatus) FetchOrderStatus(_ context.Context, id string) (domain.StatusReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[id]; ok {
		return domain.StatusReport{}, err
	}
	if r, ok := f.reports[id]; ok {
		return r, nil
	}
	return domain.UnknownStatus(), nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (f *fakeEvents) AppendEvent(_ context.Context, ev domain.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) Types() []domain.OrderEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.OrderEventType, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Type
	}
	return out
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified [][]domain.PendingOrder
}

func (f *fakeNotifier) NotifyPending(_ context.Context, orders []domain.PendingOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, orders)
	return errors.New("notifier down")
}

func market(id string, probs ...float64) domain.Market {
	m := domain.Market{ID: id, Question: "Will " + id + " happen?"}
	labels := []string{"Yes", "No", "Maybe"}
	for i, p := range probs {
		m.Outcomes = append(m.Outcomes, domain.Outcome{
			ID:          id + "-" + labels[i],
			Label:       labels[i],
			Probability: p,
		})
	}
	return m
}
