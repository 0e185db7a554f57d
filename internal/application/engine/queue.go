package engine

import (
	"fmt"
	"sync"

	"github.com/alejandrodnm/polygate/internal/domain"
)

// PendingQueue holds orders awaiting a human decision. Claim and Reject
// locate a PENDING order and flip its status under one lock, so each order is
// approved or rejected at most once.
type PendingQueue struct {
	mu     sync.Mutex
	orders []*domain.PendingOrder // insertion order
	byID   map[string]*domain.PendingOrder
}

// NewPendingQueue creates an empty queue.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{byID: make(map[string]*domain.PendingOrder)}
}

// Add appends orders to the queue. Ids already present are ignored.
func (q *PendingQueue) Add(orders ...domain.PendingOrder) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, o := range orders {
		if _, exists := q.byID[o.ID]; exists {
			continue
		}
		po := o
		q.orders = append(q.orders, &po)
		q.byID[po.ID] = &po
	}
}

// Claim moves a PENDING order to APPROVED and returns it.
func (q *PendingQueue) Claim(id string) (domain.PendingOrder, error) {
	return q.move(id, domain.PendingStatusPending, domain.PendingStatusApproved)
}

// Revert returns an APPROVED order to PENDING after a failed submission.
func (q *PendingQueue) Revert(id string) error {
	_, err := q.move(id, domain.PendingStatusApproved, domain.PendingStatusPending)
	return err
}

// Reject moves a PENDING order to REJECTED and returns it.
func (q *PendingQueue) Reject(id string) (domain.PendingOrder, error) {
	return q.move(id, domain.PendingStatusPending, domain.PendingStatusRejected)
}

func (q *PendingQueue) move(id string, from, to domain.PendingOrderStatus) (domain.PendingOrder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	po, ok := q.byID[id]
	if !ok || po.Status != from {
		return domain.PendingOrder{}, fmt.Errorf("queue %s: %w", id, domain.ErrNotFoundOrAlreadyProcessed)
	}
	next, err := po.Status.Transition(to)
	if err != nil {
		return domain.PendingOrder{}, fmt.Errorf("queue %s: %w", id, err)
	}
	po.Status = next
	return *po, nil
}

// Pending returns the orders still awaiting a decision, oldest first.
func (q *PendingQueue) Pending() []domain.PendingOrder {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.PendingOrder, 0, len(q.orders))
	for _, po := range q.orders {
		if po.Status == domain.PendingStatusPending {
			out = append(out, *po)
		}
	}
	return out
}

// All returns every order regardless of status, most recent first.
func (q *PendingQueue) All() []domain.PendingOrder {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.PendingOrder, len(q.orders))
	for i, po := range q.orders {
		out[len(q.orders)-1-i] = *po
	}
	return out
}
