package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/polygate/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier y pinta snapshots del engine en tablas.
type Console struct {
	out io.Writer
	now func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w, now: time.Now}
}

// NotifyPending anuncia las oportunidades nuevas que esperan aprobación.
func (c *Console) NotifyPending(_ context.Context, orders []domain.PendingOrder) error {
	if len(orders) == 0 {
		return nil
	}
	fmt.Fprintf(c.out, "\n[%s] %d new opportunities waiting for approval\n",
		c.now().Format("15:04:05"), len(orders))
	c.pendingTable(orders)
	fmt.Fprintln(c.out, "  approve: POST /api/pending-orders/{id}/approve")
	return nil
}

// StatusInput agrupa lo que necesita PrintStatus.
type StatusInput struct {
	Running          bool
	Phase            domain.SchedulerPhase
	PausedMarketID   string
	MarketEndTime    *time.Time
	TotalTrades      int
	SuccessfulTrades int
	PendingCount     int
	ActiveCount      int
	AutoApprove      bool
	WalletAddress    string
	USDCBalance      *float64
}

// PrintStatus imprime el estado del engine como tabla clave/valor.
func (c *Console) PrintStatus(in StatusInput) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Field", "Value")

	table.Append("running", fmt.Sprintf("%t", in.Running))
	phase := string(in.Phase)
	if in.Phase == domain.PhasePaused {
		phase = fmt.Sprintf("%s (%s)", phase, shortID(in.PausedMarketID))
	}
	table.Append("phase", phase)
	if in.MarketEndTime != nil {
		left := in.MarketEndTime.Sub(c.now()).Truncate(time.Second)
		table.Append("market end", fmt.Sprintf("%s (%s left)", in.MarketEndTime.UTC().Format("15:04:05"), left))
	}
	table.Append("trades", fmt.Sprintf("%d (%d ok)", in.TotalTrades, in.SuccessfulTrades))
	table.Append("pending", fmt.Sprintf("%d", in.PendingCount))
	table.Append("active", fmt.Sprintf("%d", in.ActiveCount))
	table.Append("auto approve", fmt.Sprintf("%t", in.AutoApprove))
	if in.WalletAddress != "" {
		table.Append("wallet", in.WalletAddress)
	}
	if in.USDCBalance != nil {
		table.Append("usdc", fmt.Sprintf("$%.2f", *in.USDCBalance))
	}
	table.Render()
}

// PrintConfig imprime pares clave/valor de configuración no secreta.
func (c *Console) PrintConfig(rows [][2]string) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Setting", "Value")
	for _, r := range rows {
		table.Append(r[0], r[1])
	}
	table.Render()
}

// PrintPending imprime la cola de aprobación.
func (c *Console) PrintPending(orders []domain.PendingOrder) {
	if len(orders) == 0 {
		fmt.Fprintln(c.out, "  no pending orders")
		return
	}
	c.pendingTable(orders)
}

func (c *Console) pendingTable(orders []domain.PendingOrder) {
	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Market", "Outcome", "Prob", "Size", "Status", "Age")
	for _, po := range orders {
		table.Append(
			shortID(po.ID),
			domain.TruncateQuestion(po.Question, po.MarketID, 40),
			po.Label,
			fmt.Sprintf("%.4f", po.Probability),
			fmt.Sprintf("%.2f", po.Size),
			string(po.Status),
			age(c.now(), po.CreatedAt),
		)
	}
	table.Render()
}

// PrintActive imprime las órdenes que el tracker sigue consultando.
func (c *Console) PrintActive(orders []domain.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(c.out, "  no active orders")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Order", "Market", "Outcome", "Price", "Size", "Filled", "Status", "Checked")
	for _, o := range orders {
		checked := "-"
		if !o.LastCheckedAt.IsZero() {
			checked = age(c.now(), o.LastCheckedAt)
		}
		table.Append(
			shortID(o.OrderID),
			shortID(o.MarketID),
			o.Label,
			fmt.Sprintf("%.4f", o.Price),
			fmt.Sprintf("%.2f", o.Size),
			fmt.Sprintf("%.2f", o.SizeFilled),
			string(o.Status),
			checked,
		)
	}
	table.Render()
}

// PrintTradeLog imprime el ledger, lo más reciente primero.
func (c *Console) PrintTradeLog(entries []domain.TradeLogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "  no trades yet")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Action", "Market", "Outcome", "Price", "Size", "OK", "Error")
	ok := 0
	for _, e := range entries {
		if e.Success {
			ok++
		}
		table.Append(
			e.Timestamp.UTC().Format("01-02 15:04:05"),
			string(e.Action),
			shortID(e.MarketID),
			e.Label,
			fmt.Sprintf("%.4f", e.Price),
			fmt.Sprintf("%.2f", e.Size),
			yesNo(e.Success),
			truncate(e.Error, 30),
		)
	}
	table.Render()
	fmt.Fprintf(c.out, "  %d entries, %d successful\n", len(entries), ok)
}

// PrintEventStats imprime el resumen del log de eventos y los más recientes.
func (c *Console) PrintEventStats(stats domain.EventStats, recent []domain.OrderEvent) {
	if stats.Total == 0 {
		fmt.Fprintln(c.out, "  event log is empty")
		return
	}

	fmt.Fprintf(c.out, "\n=== EVENT LOG (%d events, %s → %s) ===\n", stats.Total,
		stats.First.UTC().Format("2006-01-02 15:04"), stats.Last.UTC().Format("2006-01-02 15:04"))

	table := tablewriter.NewWriter(c.out)
	table.Header("Type", "Count")
	for _, t := range eventTypes {
		if n := stats.ByType[t]; n > 0 {
			table.Append(string(t), fmt.Sprintf("%d", n))
		}
	}
	table.Render()

	if len(recent) == 0 {
		return
	}
	fmt.Fprintln(c.out, "\n  recent:")
	rt := tablewriter.NewWriter(c.out)
	rt.Header("Time", "Type", "Order", "Market", "Outcome", "Price", "Size", "Status")
	for _, ev := range recent {
		rt.Append(
			ev.Timestamp.UTC().Format("01-02 15:04:05"),
			string(ev.Type),
			shortID(ev.OrderID),
			shortID(ev.MarketID),
			ev.Outcome,
			fmt.Sprintf("%.4f", ev.Price),
			fmt.Sprintf("%.2f", ev.Size),
			ev.Status,
		)
	}
	rt.Render()
}

var eventTypes = []domain.OrderEventType{
	domain.EventOrderCreated,
	domain.EventOrderSubmitted,
	domain.EventOrderUpdated,
	domain.EventOrderFilled,
	domain.EventOrderCancelled,
	domain.EventOrderFailed,
	domain.EventOrderRejected,
}

// --- helpers ---

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortID recorta ids largos (hashes, uuids) para que quepan en la tabla.
func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 14 {
		return id[:6] + "…" + id[len(id)-6:]
	}
	return id
}

func age(now, t time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return strings.TrimSuffix(d.Truncate(time.Minute).String(), "0s")
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
