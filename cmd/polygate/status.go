package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/polygate/config"
	"github.com/alejandrodnm/polygate/internal/adapters/notify"
	"github.com/alejandrodnm/polygate/internal/adapters/polymarket"
	"github.com/alejandrodnm/polygate/internal/adapters/storage"
	"github.com/alejandrodnm/polygate/internal/application/engine"
	"github.com/alejandrodnm/polygate/internal/ports"
)

const recentEvents = 10

// printStatus imprime la configuración y el resumen del log de eventos.
// No necesita clave privada.
func printStatus(ctx context.Context, cfg *config.Config, store *storage.EventStore, console *notify.Console) {
	rows := [][2]string{
		{"threshold", fmt.Sprintf("%.4f", cfg.Engine.Threshold)},
		{"trade size", fmt.Sprintf("%.2f shares", cfg.Engine.TradeSize)},
		{"limit price", limitLabel(cfg.Engine.LimitPrice)},
		{"poll interval", cfg.Engine.PollInterval.String()},
		{"window", cfg.Engine.Window.String()},
		{"auto approve", fmt.Sprintf("%t", cfg.Engine.AutoApprove)},
		{"event slug", orDash(cfg.Market.EventSlug)},
		{"keywords", orDash(strings.Join(cfg.Market.Keywords, ", "))},
		{"clob", cfg.API.CLOBBase},
		{"gamma", cfg.API.GammaBase},
		{"chain id", fmt.Sprintf("%d", cfg.API.ChainID)},
		{"storage", cfg.Storage.DSN},
		{"http", cfg.Server.Addr},
	}

	// Sin clave sólo conocemos la wallet si es un proxy configurado.
	if cfg.API.RPCURL != "" && cfg.API.ProxyAddress != "" {
		reader, err := polymarket.NewBalanceReader(ctx, cfg.API.RPCURL, cfg.API.ProxyAddress)
		if err != nil {
			slog.Warn("balance reader unavailable", "err", err)
		} else {
			defer reader.Close()
			if bal, err := reader.USDCBalance(ctx); err != nil {
				slog.Warn("balance query failed", "err", err)
			} else {
				rows = append(rows, [2]string{"usdc balance", fmt.Sprintf("$%.2f", bal)})
			}
		}
	}
	console.PrintConfig(rows)

	if store == nil {
		fmt.Println("  event log disabled")
		return
	}
	stats, err := store.Statistics(ctx)
	if err != nil {
		slog.Error("failed to read event statistics", "err", err)
		return
	}
	recent, err := store.RecentEvents(ctx, recentEvents)
	if err != nil {
		slog.Error("failed to read recent events", "err", err)
		return
	}
	console.PrintEventStats(stats, recent)
}

// runOnce hace un ciclo de scan y uno de tracking y pinta el resultado.
func runOnce(ctx context.Context, eng *engine.Engine, console *notify.Console, balance ports.BalanceProvider) {
	created := eng.RunScan(ctx)
	tick := eng.RunTrack(ctx)
	slog.Info("single cycle complete",
		"created", created,
		"checked", tick.Checked,
		"filled", tick.Filled,
		"errors", tick.Errors,
	)

	st := eng.Status()
	in := notify.StatusInput{
		Running:          st.IsRunning,
		Phase:            st.Phase,
		PausedMarketID:   st.PausedMarketID,
		MarketEndTime:    st.MarketEndTime,
		TotalTrades:      st.TotalTrades,
		SuccessfulTrades: st.SuccessfulTrades,
		PendingCount:     st.PendingCount,
		ActiveCount:      st.ActiveCount,
		AutoApprove:      st.AutoApprove,
		WalletAddress:    st.WalletAddress,
	}
	if balance != nil {
		if bal, err := balance.USDCBalance(ctx); err != nil {
			slog.Warn("balance query failed", "err", err)
		} else {
			in.USDCBalance = &bal
		}
	}

	console.PrintStatus(in)
	console.PrintPending(eng.PendingOrders())
	console.PrintActive(eng.ActiveOrders())
	console.PrintTradeLog(eng.TradeLog())
}

func limitLabel(p float64) string {
	if p <= 0 {
		return "observed probability"
	}
	return fmt.Sprintf("%.4f", p)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
