package engine

import (
	"sync"

	"github.com/alejandrodnm/polygate/internal/domain"
)

// LedgerCapacity is the number of entries the in-memory trade log retains.
const LedgerCapacity = 100

// Ledger is a bounded trade history. When full, the oldest entry is evicted.
// Subscribers receive every entry appended after they subscribe.
type Ledger struct {
	mu      sync.RWMutex
	buf     []domain.TradeLogEntry
	head    int // index of the oldest entry
	size    int
	subs    map[int]chan domain.TradeLogEntry
	nextSub int
}

// NewLedger creates a ledger holding at most capacity entries.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = LedgerCapacity
	}
	return &Ledger{
		buf:  make([]domain.TradeLogEntry, capacity),
		subs: make(map[int]chan domain.TradeLogEntry),
	}
}

// Append adds an entry, evicting the oldest one on overflow.
func (l *Ledger) Append(e domain.TradeLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := (l.head + l.size) % len(l.buf)
	l.buf[idx] = e
	if l.size < len(l.buf) {
		l.size++
	} else {
		l.head = (l.head + 1) % len(l.buf)
	}

	for _, ch := range l.subs {
		select {
		case ch <- e:
		default: // slow subscriber, drop
		}
	}
}

// Entries returns a copy of the history, most recent first.
func (l *Ledger) Entries() []domain.TradeLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.TradeLogEntry, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.head+l.size-1-i)%len(l.buf)]
	}
	return out
}

// Counts returns the number of retained entries and how many succeeded.
func (l *Ledger) Counts() (total, successful int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := 0; i < l.size; i++ {
		if l.buf[(l.head+i)%len(l.buf)].Success {
			successful++
		}
	}
	return l.size, successful
}

// Subscribe registers a listener. The returned cancel func must be called to
// release it; the channel is closed on cancel.
func (l *Ledger) Subscribe(buffer int) (<-chan domain.TradeLogEntry, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.TradeLogEntry, buffer)

	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
			close(ch)
		})
	}
}
