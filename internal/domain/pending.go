package domain

import (
	"fmt"
	"time"
)

// PendingOrderStatus is the approval state of a detected opportunity.
type PendingOrderStatus string

const (
	PendingStatusPending  PendingOrderStatus = "PENDING"
	PendingStatusApproved PendingOrderStatus = "APPROVED"
	PendingStatusRejected PendingOrderStatus = "REJECTED"
)

// pendingTransitions lists the allowed moves. APPROVED → PENDING exists only
// to roll back an approval whose submission failed.
var pendingTransitions = map[PendingOrderStatus][]PendingOrderStatus{
	PendingStatusPending:  {PendingStatusApproved, PendingStatusRejected},
	PendingStatusApproved: {PendingStatusPending},
}

// CanTransition reports whether s may move to next.
func (s PendingOrderStatus) CanTransition(next PendingOrderStatus) bool {
	for _, allowed := range pendingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next if the move is allowed.
func (s PendingOrderStatus) Transition(next PendingOrderStatus) (PendingOrderStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("pending order %s → %s: %w", s, next, ErrInvalidTransition)
	}
	return next, nil
}

// PendingOrder is an opportunity waiting for a human decision.
type PendingOrder struct {
	ID          string             `json:"id"`
	CreatedAt   time.Time          `json:"createdAt"`
	MarketID    string             `json:"marketId"`
	Question    string             `json:"question"`
	OutcomeID   string             `json:"outcomeId"`
	Label       string             `json:"label"`
	Probability float64            `json:"probability"`
	Size        float64            `json:"size"`
	Status      PendingOrderStatus `json:"status"`
}
