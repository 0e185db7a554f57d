// Package httpapi expone el engine por HTTP/JSON y un stream websocket del ledger.
package httpapi

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/polygate/internal/application/engine"
	"github.com/alejandrodnm/polygate/internal/domain"
	"github.com/alejandrodnm/polygate/internal/ports"
)

//go:embed web
var webFS embed.FS

// Engine es lo que la API necesita del engine.
type Engine interface {
	Start(ctx context.Context) bool
	Stop() bool
	Status() engine.Status
	Config() engine.Config
	Approve(ctx context.Context, id string) (engine.Result, error)
	Reject(ctx context.Context, id string) (engine.Result, error)
	PendingOrders() []domain.PendingOrder
	AllPendingOrders() []domain.PendingOrder
	ActiveOrders() []domain.Order
	TradeLog() []domain.TradeLogEntry
	Markets(ctx context.Context) ([]domain.Market, error)
	Subscribe(buffer int) (<-chan domain.TradeLogEntry, func())
}

// Config controla el servidor HTTP.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server sirve la API. Events y Balance son opcionales.
type Server struct {
	engine  Engine
	events  ports.EventQuerier
	balance ports.BalanceProvider

	// base es el contexto con el que /api/control arranca el engine; el de
	// la request muere al responder.
	base       context.Context
	done       chan struct{} // se cierra al apagar; corta los streams abiertos
	httpServer *http.Server
}

// NewServer registra las rutas y la cadena de middleware.
func NewServer(cfg Config, eng Engine, events ports.EventQuerier, balance ports.BalanceProvider) *Server {
	s := &Server{
		engine:  eng,
		events:  events,
		balance: balance,
		base:    context.Background(),
		done:    make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/trades", s.handleTrades)
	mux.HandleFunc("GET /api/markets", s.handleMarkets)
	mux.HandleFunc("GET /api/pending-orders", s.handlePending)
	mux.HandleFunc("POST /api/pending-orders/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/pending-orders/{id}/reject", s.handleReject)
	mux.HandleFunc("GET /api/active-orders", s.handleActive)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/events/stats", s.handleEventStats)
	mux.HandleFunc("POST /api/control", s.handleControl)
	mux.HandleFunc("GET /api/stream", s.handleStream)

	// dashboard estático; rutas exactas para no tapar los 405 de la API
	web, _ := fs.Sub(webFS, "web")
	static := http.FileServerFS(web)
	mux.Handle("GET /{$}", static)
	mux.Handle("GET /app.js", static)

	var h http.Handler = mux
	h = recoverer(h)
	h = logging(h)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler devuelve el handler completo, con middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run escucha hasta que ctx se cancela y luego cierra con un timeout de 10s.
func (s *Server) Run(ctx context.Context) error {
	s.base = context.WithoutCancel(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("httpapi: listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("httpapi.Run: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	close(s.done)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi.Run: shutdown: %w", err)
	}
	slog.Info("httpapi: stopped")
	return nil
}
