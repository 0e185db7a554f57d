package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alejandrodnm/polygate/internal/application/engine"
	"github.com/alejandrodnm/polygate/internal/domain"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// envelope es la forma común de todas las respuestas JSON.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type statusView struct {
	engine.Status
	USDCBalance *float64 `json:"usdcBalance,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view := statusView{Status: s.engine.Status()}
	if s.balance != nil {
		bal, err := s.balance.USDCBalance(r.Context())
		if err != nil {
			slog.Warn("httpapi: balance unavailable", "err", err)
		} else {
			view.USDCBalance = &bal
		}
	}
	writeData(w, view)
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := s.engine.Config()
	writeData(w, map[string]any{
		"tradeSize":            cfg.TradeSize,
		"probabilityThreshold": cfg.Threshold,
		"limitPrice":           cfg.LimitPrice,
		"pollingInterval":      cfg.PollInterval.Milliseconds(),
		"window":               cfg.Window.String(),
		"autoTradingEnabled":   cfg.AutoApprove,
		"maxConcurrentChecks":  cfg.MaxConcurrentChecks,
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, _ *http.Request) {
	writeData(w, nonNil(s.engine.TradeLog()))
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.engine.Markets(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeData(w, nonNil(markets))
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); all {
		writeData(w, nonNil(s.engine.AllPendingOrders()))
		return
	}
	writeData(w, nonNil(s.engine.PendingOrders()))
}

func (s *Server) handleActive(w http.ResponseWriter, _ *http.Request) {
	writeData(w, nonNil(s.engine.ActiveOrders()))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Approve(r.Context(), r.PathValue("id"))
	writeDecision(w, res, err)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Reject(r.Context(), r.PathValue("id"))
	writeDecision(w, res, err)
}

// writeDecision traduce el resultado de approve/reject. Tanto un id
// desconocido como un envío fallido son 400.
func writeDecision(w http.ResponseWriter, res engine.Result, err error) {
	switch {
	case err != nil && !errors.Is(err, domain.ErrNotFoundOrAlreadyProcessed):
		writeError(w, http.StatusInternalServerError, err.Error())
	case err != nil || !res.Success:
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: res.Message, Error: res.Message})
	default:
		writeJSON(w, http.StatusOK, envelope{Success: true, Message: res.Message})
	}
}

type controlRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Action {
	case "start":
		started := s.engine.Start(s.base)
		msg := "Trading bot started"
		if !started {
			msg = "Trading bot already running"
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Message: msg})
	case "stop":
		stopped := s.engine.Stop()
		msg := "Trading bot stopped"
		if !stopped {
			msg = "Trading bot was not running"
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Message: msg})
	default:
		writeError(w, http.StatusBadRequest, `Invalid action. Use "start" or "stop"`)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event log disabled")
		return
	}

	q := r.URL.Query()
	if orderID := q.Get("order"); orderID != "" {
		events, err := s.events.OrderHistory(r.Context(), orderID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeData(w, nonNil(events))
		return
	}

	limit := defaultEventLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := s.events.QueryEvents(r.Context(), domain.EventFilter{
		Type:     domain.OrderEventType(q.Get("type")),
		MarketID: q.Get("market"),
		Limit:    limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, nonNil(events))
}

func (s *Server) handleEventStats(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event log disabled")
		return
	}
	stats, err := s.events.Statistics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, stats)
}

// --- helpers ---

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"success":false,"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// nonNil evita que una lista vacía salga como null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
