package notify_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/polygate/internal/adapters/notify"
	"github.com/alejandrodnm/polygate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pending(id, question string, prob float64) domain.PendingOrder {
	return domain.PendingOrder{
		ID:          id,
		CreatedAt:   time.Now().Add(-30 * time.Second),
		MarketID:    "501",
		Question:    question,
		OutcomeID:   "501-Yes",
		Label:       "Up",
		Probability: prob,
		Size:        5,
		Status:      domain.PendingStatusPending,
	}
}

func TestConsole_NotifyPending(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	err := c.NotifyPending(context.Background(), []domain.PendingOrder{
		pending("p1", "Bitcoin Up or Down?", 0.97),
		pending("p2", "Ethereum Up or Down?", 0.955),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "2 new opportunities")
	assert.Contains(t, out, "Bitcoin Up or Down?")
	assert.Contains(t, out, "Ethereum Up or Down?")
	assert.Contains(t, out, "0.9700")
	assert.Contains(t, out, "PENDING")
}

func TestConsole_NotifyPending_EmptyIsSilent(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	require.NoError(t, c.NotifyPending(context.Background(), nil))
	assert.Empty(t, buf.String())
}

func TestConsole_LongQuestionTruncated(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	c.PrintPending([]domain.PendingOrder{pending("p1", strings.Repeat("A", 60), 0.96)})

	out := buf.String()
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.Repeat("A", 60))
}

func TestConsole_PrintStatus_Paused(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	end := time.Now().Add(5 * time.Minute)
	balance := 42.5
	c.PrintStatus(notify.StatusInput{
		Running:          true,
		Phase:            domain.PhasePaused,
		PausedMarketID:   "501",
		MarketEndTime:    &end,
		TotalTrades:      3,
		SuccessfulTrades: 2,
		ActiveCount:      1,
		WalletAddress:    "0xabc",
		USDCBalance:      &balance,
	})

	out := buf.String()
	assert.Contains(t, out, "PAUSED (501)")
	assert.Contains(t, out, "3 (2 ok)")
	assert.Contains(t, out, "0xabc")
	assert.Contains(t, out, "$42.50")
	assert.Contains(t, out, "left")
}

func TestConsole_PrintStatus_OmitsOptionalRows(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	c.PrintStatus(notify.StatusInput{Phase: domain.PhaseScanning})

	out := buf.String()
	assert.Contains(t, out, "SCANNING")
	assert.NotContains(t, out, "wallet")
	assert.NotContains(t, out, "usdc")
	assert.NotContains(t, out, "market end")
}

func TestConsole_PrintTradeLog(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	c.PrintTradeLog([]domain.TradeLogEntry{
		{Timestamp: time.Now(), MarketID: "501", Label: "Up", Price: 0.97, Size: 5, Action: domain.ActionSubmitted, Success: true},
		{Timestamp: time.Now(), MarketID: "601", Label: "Down", Price: 0.96, Size: 5, Action: domain.ActionSubmissionFailed, Error: "insufficient balance"},
	})

	out := buf.String()
	assert.Contains(t, out, "SUBMISSION_FAILED")
	assert.Contains(t, out, "insufficient balance")
	assert.Contains(t, out, "2 entries, 1 successful")
}

func TestConsole_PrintActive_ShortensIDs(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	c.PrintActive([]domain.Order{{
		OrderID:    "0x1234567890abcdef1234567890abcdef",
		MarketID:   "501",
		Label:      "Up",
		Price:      0.97,
		Size:       5,
		SizeFilled: 2,
		Status:     domain.OrderStatusPartiallyFilled,
	}})

	out := buf.String()
	assert.Contains(t, out, "0x1234")
	assert.Contains(t, out, "abcdef")
	assert.NotContains(t, out, "0x1234567890abcdef1234567890abcdef")
	assert.Contains(t, out, "PARTIALLY_FILLED")
}

func TestConsole_PrintEmptyCollections(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	c.PrintPending(nil)
	c.PrintActive(nil)
	c.PrintTradeLog(nil)
	c.PrintEventStats(domain.EventStats{}, nil)

	out := buf.String()
	assert.Contains(t, out, "no pending orders")
	assert.Contains(t, out, "no active orders")
	assert.Contains(t, out, "no trades yet")
	assert.Contains(t, out, "event log is empty")
}

func TestConsole_PrintEventStats(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	now := time.Now()
	stats := domain.EventStats{
		Total: 3,
		ByType: map[domain.OrderEventType]int{
			domain.EventOrderCreated:   2,
			domain.EventOrderSubmitted: 1,
		},
		First: now.Add(-time.Hour),
		Last:  now,
	}
	c.PrintEventStats(stats, []domain.OrderEvent{
		{Timestamp: now, Type: domain.EventOrderSubmitted, OrderID: "0xabc", MarketID: "501", Outcome: "Up", Price: 0.97, Size: 5, Status: "SUBMITTED"},
	})

	out := buf.String()
	assert.Contains(t, out, "3 events")
	assert.Contains(t, out, "ORDER_CREATED")
	assert.NotContains(t, out, "ORDER_REJECTED")
	assert.Contains(t, out, "recent:")
	assert.Contains(t, out, "0xabc")
}
