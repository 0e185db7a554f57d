package domain

import "time"

// TradeAction names the event a ledger entry records.
type TradeAction string

const (
	ActionSubmitted        TradeAction = "SUBMITTED"
	ActionSubmissionFailed TradeAction = "SUBMISSION_FAILED"
	ActionRejected         TradeAction = "REJECTED"
	ActionFilled           TradeAction = "FILLED"
	ActionCancelled        TradeAction = "CANCELLED"
)

// TradeLogEntry is one line of the in-memory trade history.
type TradeLogEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	MarketID  string      `json:"marketId"`
	OutcomeID string      `json:"outcomeId"`
	Label     string      `json:"label,omitempty"`
	OrderID   string      `json:"orderId,omitempty"`
	Price     float64     `json:"price"`
	Size      float64     `json:"size"`
	Action    TradeAction `json:"action"`
	Success   bool        `json:"success"`
	Error     string      `json:"error,omitempty"`
}
