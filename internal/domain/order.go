package domain

import (
	"fmt"
	"time"
)

// SentinelOrderID marks a submission that succeeded without returning a
// usable venue identifier. Such orders cannot be polled.
const SentinelOrderID = "CREATED"

// OrderStatus is the lifecycle state of a submitted order.
type OrderStatus string

const (
	OrderStatusSubmitted       OrderStatus = "SUBMITTED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusFailed          OrderStatus = "FAILED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusSubmitted:       {OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCancelled},
	OrderStatusPartiallyFilled: {OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCancelled},
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransition reports whether s may move to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next if the move is allowed.
func (s OrderStatus) Transition(next OrderStatus) (OrderStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("order %s → %s: %w", s, next, ErrInvalidTransition)
	}
	return next, nil
}

// Order is the canonical view of a submitted order.
type Order struct {
	OrderID       string      `json:"orderId,omitempty"`
	MarketID      string      `json:"marketId"`
	OutcomeID     string      `json:"outcomeId"`
	Label         string      `json:"label,omitempty"`
	Price         float64     `json:"price"`
	Size          float64     `json:"size"`
	Status        OrderStatus `json:"status"`
	SizeFilled    float64     `json:"sizeFilled"`
	SizeRemaining float64     `json:"sizeRemaining"`
	SubmittedAt   time.Time   `json:"submittedAt"`
	LastCheckedAt time.Time   `json:"lastCheckedAt,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// HasVenueID reports whether the order carries an identifier that can be polled.
func (o Order) HasVenueID() bool {
	return o.OrderID != "" && o.OrderID != SentinelOrderID
}

// SubmitRequest is what the executor sends to the order-submission service.
type SubmitRequest struct {
	MarketID  string
	OutcomeID string
	Label     string
	Price     float64
	Size      float64
}

// SubmitReceipt is the normalized answer of the order-submission service.
// OrderID is empty when the venue returned no usable identifier.
type SubmitReceipt struct {
	OrderID string
	Status  string // venue status text, e.g. "live", "matched", "delayed"
	TxHash  string
}

// FillStatus is the venue-side order state reported by a status query.
type FillStatus string

const (
	FillStatusLive      FillStatus = "LIVE"
	FillStatusMatched   FillStatus = "MATCHED"
	FillStatusCancelled FillStatus = "CANCELLED"
	FillStatusUnknown   FillStatus = "UNKNOWN"
)

// StatusReport is the normalized answer of an order-status query.
type StatusReport struct {
	Status        FillStatus
	SizeFilled    float64
	SizeRemaining float64
}

// UnknownStatus is returned when the status of an order could not be read.
func UnknownStatus() StatusReport {
	return StatusReport{Status: FillStatusUnknown}
}
