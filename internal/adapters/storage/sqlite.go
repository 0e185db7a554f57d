package storage

// sqlite.go — log durable de eventos de órdenes.
//
// Estrategia:
//   - `order_events`: append-only, una fila por transición (creada, enviada,
//     parcial, llena, cancelada, fallida, rechazada).
//   - Timestamps como TEXT de ancho fijo en UTC → ordenan lexicográficamente.
//   - Prune automático al arrancar: eventos con más de `retention`.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/polygate/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_events (
    id            TEXT PRIMARY KEY,
    timestamp     TEXT NOT NULL,
    event_type    TEXT NOT NULL,
    order_id      TEXT NOT NULL DEFAULT '',
    market_id     TEXT NOT NULL DEFAULT '',
    outcome_id    TEXT NOT NULL DEFAULT '',
    outcome       TEXT NOT NULL DEFAULT '',
    price         REAL NOT NULL DEFAULT 0,
    size          REAL NOT NULL DEFAULT 0,
    status        TEXT NOT NULL DEFAULT '',
    details       TEXT,
    market_result TEXT,
    created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_order  ON order_events(order_id);
CREATE INDEX IF NOT EXISTS idx_events_market ON order_events(market_id);
CREATE INDEX IF NOT EXISTS idx_events_type   ON order_events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_ts     ON order_events(timestamp DESC);
`

const (
	tsLayout         = "2006-01-02T15:04:05.000000000Z"
	defaultRetention = 90 * 24 * time.Hour
	defaultLimit     = 100
	maxLimit         = 1000
)

const selectColumns = `SELECT id, timestamp, event_type, order_id, market_id, outcome_id,
       outcome, price, size, status, details, market_result
FROM order_events`

// EventStore implementa ports.EventLog y ports.EventQuerier usando SQLite
// (pure Go, sin CGo).
type EventStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventStore abre (o crea) la base de datos en la ruta dada, aplica el
// schema y borra eventos más viejos que retention (0 = 90 días).
func NewEventStore(path string, retention time.Duration) (*EventStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewEventStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewEventStore: apply schema: %w", err)
	}

	s := &EventStore{db: db, now: time.Now}
	if retention <= 0 {
		retention = defaultRetention
	}
	s.pruneOld(context.Background(), retention)
	return s, nil
}

// AppendEvent inserta un evento. Asigna id y timestamp si faltan.
func (s *EventStore) AppendEvent(ctx context.Context, ev domain.OrderEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = now
	}

	var details sql.NullString
	if len(ev.Details) > 0 {
		b, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("storage.AppendEvent: marshal details: %w", err)
		}
		details = sql.NullString{String: string(b), Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO order_events
			(id, timestamp, event_type, order_id, market_id, outcome_id, outcome,
			 price, size, status, details, market_result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID,
		formatTS(ev.Timestamp),
		string(ev.Type),
		ev.OrderID,
		ev.MarketID,
		ev.OutcomeID,
		ev.Outcome,
		ev.Price,
		ev.Size,
		ev.Status,
		details,
		nullString(ev.MarketResult),
		formatTS(now),
	); err != nil {
		return fmt.Errorf("storage.AppendEvent: insert %s: %w", ev.Type, err)
	}
	return nil
}

// OrderHistory devuelve los eventos de una orden, del más viejo al más nuevo.
func (s *EventStore) OrderHistory(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	events, err := s.query(ctx, selectColumns+` WHERE order_id = ? ORDER BY timestamp ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("storage.OrderHistory: %w", err)
	}
	return events, nil
}

// EventsByMarket devuelve los eventos de un mercado, del más viejo al más nuevo.
func (s *EventStore) EventsByMarket(ctx context.Context, marketID string) ([]domain.OrderEvent, error) {
	events, err := s.query(ctx, selectColumns+` WHERE market_id = ? ORDER BY timestamp ASC`, marketID)
	if err != nil {
		return nil, fmt.Errorf("storage.EventsByMarket: %w", err)
	}
	return events, nil
}

// RecentEvents devuelve los últimos limit eventos, los más recientes primero.
func (s *EventStore) RecentEvents(ctx context.Context, limit int) ([]domain.OrderEvent, error) {
	return s.QueryEvents(ctx, domain.EventFilter{Limit: limit})
}

// QueryEvents filtra el log. Los campos vacíos del filtro no filtran.
// Resultado ordenado del más reciente al más viejo.
func (s *EventStore) QueryEvents(ctx context.Context, f domain.EventFilter) ([]domain.OrderEvent, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(f.Type))
	}
	if f.MarketID != "" {
		where = append(where, "market_id = ?")
		args = append(args, f.MarketID)
	}
	if f.OrderID != "" {
		where = append(where, "order_id = ?")
		args = append(args, f.OrderID)
	}
	if !f.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, formatTS(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, formatTS(f.To))
	}

	q := selectColumns
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, clampLimit(f.Limit))

	events, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.QueryEvents: %w", err)
	}
	return events, nil
}

// UpdateMarketResult anota el resultado final en todos los eventos del mercado.
func (s *EventStore) UpdateMarketResult(ctx context.Context, marketID, result string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE order_events SET market_result = ? WHERE market_id = ?`, result, marketID)
	if err != nil {
		return 0, fmt.Errorf("storage.UpdateMarketResult: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Statistics cuenta eventos por tipo y devuelve el rango temporal del log.
func (s *EventStore) Statistics(ctx context.Context) (domain.EventStats, error) {
	stats := domain.EventStats{ByType: make(map[domain.OrderEventType]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event_type, COUNT(*) FROM order_events GROUP BY event_type`)
	if err != nil {
		return stats, fmt.Errorf("storage.Statistics: by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return stats, fmt.Errorf("storage.Statistics: scan: %w", err)
		}
		stats.ByType[domain.OrderEventType(typ)] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("storage.Statistics: %w", err)
	}

	var first, last sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT MIN(timestamp), MAX(timestamp) FROM order_events`).Scan(&first, &last); err != nil {
		return stats, fmt.Errorf("storage.Statistics: range: %w", err)
	}
	stats.First = parseTS(first.String)
	stats.Last = parseTS(last.String)
	return stats, nil
}

// Close cierra la conexión a la base de datos.
func (s *EventStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *EventStore) query(ctx context.Context, q string, args ...any) ([]domain.OrderEvent, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var events []domain.OrderEvent
	for rows.Next() {
		var (
			ev              domain.OrderEvent
			ts, typ         string
			details, result sql.NullString
		)
		if err := rows.Scan(
			&ev.ID, &ts, &typ, &ev.OrderID, &ev.MarketID, &ev.OutcomeID,
			&ev.Outcome, &ev.Price, &ev.Size, &ev.Status, &details, &result,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ev.Timestamp = parseTS(ts)
		ev.Type = domain.OrderEventType(typ)
		ev.MarketResult = result.String
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &ev.Details); err != nil {
				slog.Debug("storage: bad details json", "id", ev.ID, "err", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// pruneOld elimina eventos antiguos para mantener la DB ligera.
func (s *EventStore) pruneOld(ctx context.Context, retention time.Duration) {
	cutoff := formatTS(s.now().UTC().Add(-retention))
	res, err := s.db.ExecContext(ctx, `DELETE FROM order_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		slog.Warn("storage: prune failed", "err", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("storage: pruned old events", "rows", n)
	}
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	default:
		return n
	}
}
