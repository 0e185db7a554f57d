package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polygate/internal/domain"
)

func TestLedger_EvictsOldestBeyondCapacity(t *testing.T) {
	l := NewLedger(LedgerCapacity)
	for i := 0; i < 150; i++ {
		l.Append(domain.TradeLogEntry{OrderID: fmt.Sprintf("o-%d", i), Success: i%2 == 0})
	}

	entries := l.Entries()
	require.Len(t, entries, LedgerCapacity)
	assert.Equal(t, "o-149", entries[0].OrderID, "most recent first")
	assert.Equal(t, "o-50", entries[len(entries)-1].OrderID, "oldest retained")

	total, ok := l.Counts()
	assert.Equal(t, 100, total)
	assert.Equal(t, 50, ok)
}

func TestLedger_EntriesBeforeFull(t *testing.T) {
	l := NewLedger(5)
	l.Append(domain.TradeLogEntry{OrderID: "a"})
	l.Append(domain.TradeLogEntry{OrderID: "b"})

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].OrderID)
	assert.Equal(t, "a", entries[1].OrderID)
}

func TestLedger_Subscribe(t *testing.T) {
	l := NewLedger(5)
	ch, cancel := l.Subscribe(4)

	l.Append(domain.TradeLogEntry{OrderID: "x"})
	select {
	case e := <-ch:
		assert.Equal(t, "x", e.OrderID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the entry")
	}

	cancel()
	cancel() // idempotent
	_, open := <-ch
	assert.False(t, open)

	// Appending after cancel must not panic on the closed channel.
	l.Append(domain.TradeLogEntry{OrderID: "y"})
}
