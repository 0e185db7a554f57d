package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/polygate/internal/domain"
	"github.com/alejandrodnm/polygate/internal/ports"
)

const defaultPollInterval = 30 * time.Second

// Config holds the engine settings.
type Config struct {
	Threshold           float64
	TradeSize           float64
	LimitPrice          float64 // 0 = submit at the detected probability
	PollInterval        time.Duration
	Window              time.Duration
	AutoApprove         bool
	MaxConcurrentChecks int
	WalletAddress       string
}

// Deps are the collaborators the engine drives.
type Deps struct {
	Markets   ports.MarketProvider
	Submitter ports.OrderSubmitter
	Status    ports.OrderStatusProvider
	Events    ports.EventLog   // optional
	Notifier  ports.Notifier   // optional
	Now       func() time.Time // optional, for tests
}

// Result is the answer to an approve or reject request.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Status is a snapshot of the engine for the UI.
type Status struct {
	IsRunning        bool                  `json:"isRunning"`
	Phase            domain.SchedulerPhase `json:"phase"`
	TotalTrades      int                   `json:"totalTrades"`
	SuccessfulTrades int                   `json:"successfulTrades"`
	AutoApprove      bool                  `json:"autoTradingEnabled"`
	WalletAddress    string                `json:"walletAddress,omitempty"`
	PendingCount     int                   `json:"pendingCount"`
	ActiveCount      int                   `json:"activeCount"`
	PausedMarketID   string                `json:"pausedMarketId,omitempty"`
	MarketEndTime    *time.Time            `json:"marketEndTime,omitempty"`
}

// Engine is the order-lifecycle and scan-scheduling aggregate. Every shared
// collection is guarded by its own component; approve/reject flip status
// atomically inside the queue.
type Engine struct {
	cfg      Config
	markets  ports.MarketProvider
	notifier ports.Notifier
	now      func() time.Time

	detector  *Detector
	queue     *PendingQueue
	executor  *Executor
	tracker   *Tracker
	scheduler *Scheduler
	ledger    *Ledger
	journal   *journal

	scanMu sync.Mutex // one scan cycle at a time

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	loops   sync.WaitGroup
}

// New creates an Engine. It does not start the periodic tasks.
func New(cfg Config, deps Deps) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Window <= 0 {
		cfg.Window = domain.DefaultWindow
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	ledger := NewLedger(LedgerCapacity)
	j := &journal{ledger: ledger, events: deps.Events}

	return &Engine{
		cfg:       cfg,
		markets:   deps.Markets,
		notifier:  deps.Notifier,
		now:       now,
		detector:  NewDetector(cfg.Threshold, cfg.TradeSize, now),
		queue:     NewPendingQueue(),
		executor:  NewExecutor(deps.Submitter, now),
		tracker:   NewTracker(deps.Status, j, cfg.MaxConcurrentChecks, now),
		scheduler: NewScheduler(deps.Markets, cfg.Window, now),
		ledger:    ledger,
		journal:   j,
	}
}

// Start launches the scan and tracking tasks. A scan runs immediately.
// Calling Start on a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.running {
		slog.Warn("engine: already running")
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true

	e.loops.Add(2)
	go e.scanLoop(runCtx)
	go e.trackLoop(runCtx)

	slog.Info("engine: started",
		"threshold", e.cfg.Threshold,
		"trade_size", e.cfg.TradeSize,
		"interval", e.cfg.PollInterval,
		"auto_approve", e.cfg.AutoApprove,
	)
	return true
}

// Stop cancels both periodic tasks and waits for them to exit. No task
// fires after Stop returns.
func (e *Engine) Stop() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if !e.running {
		return false
	}
	e.cancel()
	e.loops.Wait()
	e.running = false
	e.cancel = nil
	slog.Info("engine: stopped")
	return true
}

func (e *Engine) scanLoop(ctx context.Context) {
	defer e.loops.Done()

	e.RunScan(ctx)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunScan(ctx)
		}
	}
}

func (e *Engine) trackLoop(ctx context.Context) {
	defer e.loops.Done()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunTrack(ctx)
		}
	}
}

// RunScan runs one scan cycle and returns the number of new opportunities.
// While paused it only logs the remaining pause.
func (e *Engine) RunScan(ctx context.Context) int {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	if ok, remaining := e.scheduler.ScanAllowed(); !ok {
		st := e.scheduler.State()
		slog.Info("engine: scan skipped while paused",
			"market", st.MarketID,
			"remaining", remaining.Truncate(time.Second),
			"tracked", e.tracker.Len(),
		)
		return 0
	}

	markets, err := e.markets.FetchMarkets(ctx)
	if err != nil {
		slog.Warn("engine: market fetch failed", "err", err)
		markets = nil
	}

	created := e.detector.Detect(markets)
	if len(created) == 0 {
		slog.Debug("engine: no new opportunities", "markets", len(markets))
		return 0
	}

	e.queue.Add(created...)
	for _, po := range created {
		slog.Info("engine: opportunity detected",
			"id", po.ID,
			"market", po.MarketID,
			"outcome", po.Label,
			"probability", po.Probability,
		)
		e.journal.event(ctx, domain.OrderEvent{
			Timestamp: po.CreatedAt,
			Type:      domain.EventOrderCreated,
			MarketID:  po.MarketID,
			OutcomeID: po.OutcomeID,
			Outcome:   po.Label,
			Price:     po.Probability,
			Size:      po.Size,
			Status:    string(po.Status),
			Details:   map[string]any{"pendingId": po.ID, "question": po.Question},
		})
	}

	if e.notifier != nil {
		if err := e.notifier.NotifyPending(ctx, created); err != nil {
			slog.Warn("engine: notifier error", "err", err)
		}
	}

	if e.cfg.AutoApprove {
		e.autoApprove(ctx, created)
	}
	return len(created)
}

// autoApprove approves fresh opportunities until the scheduler pauses.
func (e *Engine) autoApprove(ctx context.Context, created []domain.PendingOrder) {
	for _, po := range created {
		if ok, _ := e.scheduler.ScanAllowed(); !ok {
			return
		}
		res, err := e.Approve(ctx, po.ID)
		if err != nil {
			slog.Warn("engine: auto-approve skipped", "id", po.ID, "err", err)
			continue
		}
		slog.Info("engine: auto-approved", "id", po.ID, "success", res.Success, "message", res.Message)
	}
}

// RunTrack runs one tracking tick and then evaluates resumption. On resume
// a scan runs immediately.
func (e *Engine) RunTrack(ctx context.Context) TickResult {
	res := e.tracker.Tick(ctx)
	if res.Checked > 0 {
		slog.Debug("engine: tracking tick",
			"checked", res.Checked,
			"filled", res.Filled,
			"partial", res.Partial,
			"cancelled", res.Cancelled,
			"errors", res.Errors,
		)
	}

	if e.scheduler.TryResume(e.tracker.Len()) {
		e.RunScan(ctx)
	}
	return res
}

// Approve submits the pending order with the given id. The returned error
// is domain.ErrNotFoundOrAlreadyProcessed when the id is unknown or already
// decided; submission failures are reported in the Result only.
func (e *Engine) Approve(ctx context.Context, id string) (Result, error) {
	po, err := e.queue.Claim(id)
	if err != nil {
		return Result{Success: false, Message: domain.ErrNotFoundOrAlreadyProcessed.Error()}, err
	}

	// A submission must not be abandoned halfway because the caller went away.
	ctx = context.WithoutCancel(ctx)

	req := domain.SubmitRequest{
		MarketID:  po.MarketID,
		OutcomeID: po.OutcomeID,
		Label:     po.Label,
		Price:     e.orderPrice(po),
		Size:      po.Size,
	}
	order := e.executor.Execute(ctx, req)
	now := e.now().UTC()

	if order.Status == domain.OrderStatusFailed {
		if rerr := e.queue.Revert(id); rerr != nil {
			slog.Error("engine: revert after failed submission", "id", id, "err", rerr)
		}
		e.journal.record(ctx, ledgerEntry(order, domain.ActionSubmissionFailed, false, now), string(order.Status))
		return Result{
			Success: false,
			Message: fmt.Sprintf("order submission failed: %s", order.Error),
		}, nil
	}

	tracked := e.tracker.Track(order)
	end := e.scheduler.Pause(ctx, po.MarketID)
	e.journal.record(ctx, ledgerEntry(order, domain.ActionSubmitted, true, now), string(order.Status))
	if order.Status == domain.OrderStatusFilled {
		e.journal.record(ctx, ledgerEntry(order, domain.ActionFilled, true, now), string(order.Status))
	}

	slog.Info("engine: order approved",
		"id", id,
		"order", order.OrderID,
		"status", order.Status,
		"tracked", tracked,
		"paused_until", end.Format(time.RFC3339),
	)

	msg := fmt.Sprintf("order submitted: %s", order.OrderID)
	if !order.HasVenueID() {
		msg = "order submitted without a venue id; it will not be tracked"
	}
	return Result{Success: true, Message: msg}, nil
}

// Reject marks the pending order as rejected.
func (e *Engine) Reject(ctx context.Context, id string) (Result, error) {
	po, err := e.queue.Reject(id)
	if err != nil {
		return Result{Success: false, Message: domain.ErrNotFoundOrAlreadyProcessed.Error()}, err
	}

	e.journal.record(ctx, domain.TradeLogEntry{
		Timestamp: e.now().UTC(),
		MarketID:  po.MarketID,
		OutcomeID: po.OutcomeID,
		Label:     po.Label,
		Price:     po.Probability,
		Size:      po.Size,
		Action:    domain.ActionRejected,
		Success:   false,
	}, string(po.Status))

	slog.Info("engine: order rejected", "id", id, "market", po.MarketID, "outcome", po.Label)
	return Result{Success: true, Message: "order rejected"}, nil
}

func (e *Engine) orderPrice(po domain.PendingOrder) float64 {
	if e.cfg.LimitPrice > 0 {
		return e.cfg.LimitPrice
	}
	return po.Probability
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() Status {
	e.runMu.Lock()
	running := e.running
	e.runMu.Unlock()

	total, ok := e.ledger.Counts()
	st := e.scheduler.State()

	s := Status{
		IsRunning:        running,
		Phase:            st.Phase,
		TotalTrades:      total,
		SuccessfulTrades: ok,
		AutoApprove:      e.cfg.AutoApprove,
		WalletAddress:    e.cfg.WalletAddress,
		PendingCount:     len(e.queue.Pending()),
		ActiveCount:      e.tracker.Len(),
		PausedMarketID:   st.MarketID,
	}
	if !st.MarketEndTime.IsZero() {
		end := st.MarketEndTime
		s.MarketEndTime = &end
	}
	return s
}

// PendingOrders returns the orders awaiting a decision.
func (e *Engine) PendingOrders() []domain.PendingOrder { return e.queue.Pending() }

// AllPendingOrders returns every detected order, most recent first.
func (e *Engine) AllPendingOrders() []domain.PendingOrder { return e.queue.All() }

// ActiveOrders returns the tracked orders.
func (e *Engine) ActiveOrders() []domain.Order { return e.tracker.Orders() }

// TradeLog returns the trade history, most recent first.
func (e *Engine) TradeLog() []domain.TradeLogEntry { return e.ledger.Entries() }

// Subscribe streams trade log entries appended from now on.
func (e *Engine) Subscribe(buffer int) (<-chan domain.TradeLogEntry, func()) {
	return e.ledger.Subscribe(buffer)
}

// Markets returns a fresh market snapshot.
func (e *Engine) Markets(ctx context.Context) ([]domain.Market, error) {
	markets, err := e.markets.FetchMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.Markets: %w", err)
	}
	return markets, nil
}

// Config returns the engine settings.
func (e *Engine) Config() Config { return e.cfg }
