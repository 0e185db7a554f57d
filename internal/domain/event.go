package domain

import "time"

// OrderEventType classifies rows of the durable order-event log.
type OrderEventType string

const (
	EventOrderCreated   OrderEventType = "ORDER_CREATED"
	EventOrderSubmitted OrderEventType = "ORDER_SUBMITTED"
	EventOrderUpdated   OrderEventType = "ORDER_UPDATED"
	EventOrderFilled    OrderEventType = "ORDER_FILLED"
	EventOrderCancelled OrderEventType = "ORDER_CANCELLED"
	EventOrderFailed    OrderEventType = "ORDER_FAILED"
	EventOrderRejected  OrderEventType = "ORDER_REJECTED"
)

// OrderEvent is one row of the durable order-event log.
type OrderEvent struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Type         OrderEventType `json:"eventType"`
	OrderID      string         `json:"orderId,omitempty"`
	MarketID     string         `json:"marketId"`
	OutcomeID    string         `json:"outcomeId,omitempty"`
	Outcome      string         `json:"outcome,omitempty"`
	Price        float64        `json:"price"`
	Size         float64        `json:"size"`
	Status       string         `json:"status,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	MarketResult string         `json:"marketResult,omitempty"`
}

// EventFilter narrows an order-event query. Zero fields do not filter.
type EventFilter struct {
	Type     OrderEventType
	MarketID string
	OrderID  string
	From     time.Time
	To       time.Time
	Limit    int
}

// EventStats summarizes the order-event log.
type EventStats struct {
	Total  int                    `json:"total"`
	ByType map[OrderEventType]int `json:"byType"`
	First  time.Time              `json:"first,omitempty"`
	Last   time.Time              `json:"last,omitempty"`
}
