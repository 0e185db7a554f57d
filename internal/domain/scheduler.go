package domain

import "fmt"

// SchedulerPhase is the state of the scan scheduler.
type SchedulerPhase string

const (
	PhaseScanning SchedulerPhase = "SCANNING"
	PhasePaused   SchedulerPhase = "PAUSED"
)

// Transition returns next if the move is allowed. Only SCANNING ↔ PAUSED
// changes are valid; re-entering PAUSED while paused extends the pause.
func (p SchedulerPhase) Transition(next SchedulerPhase) (SchedulerPhase, error) {
	switch {
	case p == PhaseScanning && next == PhasePaused,
		p == PhasePaused && next == PhasePaused,
		p == PhasePaused && next == PhaseScanning:
		return next, nil
	}
	return p, fmt.Errorf("scheduler %s → %s: %w", p, next, ErrInvalidTransition)
}
