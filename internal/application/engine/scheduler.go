package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/polygate/internal/domain"
	"github.com/alejandrodnm/polygate/internal/ports"
)

const endTimeLookupTimeout = 10 * time.Second

// SchedulerState is a snapshot of the pause/resume state machine.
type SchedulerState struct {
	Phase         domain.SchedulerPhase
	MarketID      string
	MarketEndTime time.Time
}

// Scheduler owns the SCANNING/PAUSED state. It pauses when an order is
// approved and resumes only once no order is tracked and the market window
// of the approved order has ended.
type Scheduler struct {
	markets ports.MarketProvider
	window  time.Duration
	now     func() time.Time

	mu       sync.Mutex
	phase    domain.SchedulerPhase
	marketID string
	endTime  time.Time

	// fin de pausa ya confirmado por lookups terminados
	confirmedID  string
	confirmedEnd time.Time
	lookups      int
}

// NewScheduler creates a Scheduler in the SCANNING phase.
func NewScheduler(markets ports.MarketProvider, window time.Duration, now func() time.Time) *Scheduler {
	if window <= 0 {
		window = domain.DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		markets: markets,
		window:  window,
		now:     now,
		phase:   domain.PhaseScanning,
	}
}

// Pause enters PAUSED for the given market and returns the recorded end
// time. The phase flips before the end-time lookup, with the next window
// boundary as a provisional end, so no scan runs while the lookup is in
// flight. The market's declared end then replaces the provisional one.
// Pausing while paused keeps the later end time.
func (s *Scheduler) Pause(ctx context.Context, marketID string) time.Time {
	s.mu.Lock()
	next, err := s.phase.Transition(domain.PhasePaused)
	if err != nil {
		s.mu.Unlock()
		slog.Error("scheduler: pause rejected", "err", err)
		return s.State().MarketEndTime
	}
	s.phase = next
	s.lookups++
	if provisional := domain.NextWindowBoundary(s.now(), s.window); provisional.After(s.endTime) {
		s.endTime = provisional
		s.marketID = marketID
	}
	s.mu.Unlock()

	end := s.lookupEndTime(ctx, marketID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookups--
	if end.After(s.confirmedEnd) {
		s.confirmedEnd = end
		s.confirmedID = marketID
	}
	if s.lookups == 0 {
		s.endTime = s.confirmedEnd
		s.marketID = s.confirmedID
	} else if end.After(s.endTime) {
		s.endTime = end
		s.marketID = marketID
	}
	slog.Info("scheduler: scanning paused",
		"market", s.marketID,
		"until", s.endTime.Format(time.RFC3339),
	)
	return s.endTime
}

func (s *Scheduler) lookupEndTime(ctx context.Context, marketID string) time.Time {
	if s.markets != nil && marketID != "" {
		lctx, cancel := context.WithTimeout(ctx, endTimeLookupTimeout)
		defer cancel()
		end, err := s.markets.FetchMarketEndTime(lctx, marketID)
		switch {
		case err != nil:
			slog.Warn("scheduler: market end time unavailable, using window boundary",
				"market", marketID, "err", err)
		case !end.IsZero():
			return end.UTC()
		}
	}
	return domain.NextWindowBoundary(s.now(), s.window)
}

// ScanAllowed reports whether a scan should run. While paused it also
// returns the remaining pause time.
func (s *Scheduler) ScanAllowed() (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == domain.PhaseScanning {
		return true, 0
	}
	remaining := s.endTime.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	return false, remaining
}

// TryResume returns to SCANNING when both no order is tracked and the end
// time has passed. It reports whether the transition happened.
func (s *Scheduler) TryResume(trackedOrders int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhasePaused {
		return false
	}
	if trackedOrders > 0 || s.lookups > 0 || s.now().Before(s.endTime) {
		return false
	}
	next, err := s.phase.Transition(domain.PhaseScanning)
	if err != nil {
		slog.Error("scheduler: resume rejected", "err", err)
		return false
	}
	slog.Info("scheduler: scanning resumed", "market", s.marketID)
	s.phase = next
	s.endTime = time.Time{}
	s.marketID = ""
	s.confirmedEnd = time.Time{}
	s.confirmedID = ""
	return true
}

// State returns a snapshot of the scheduler.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerState{Phase: s.phase, MarketID: s.marketID, MarketEndTime: s.endTime}
}
