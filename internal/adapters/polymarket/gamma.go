package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/alejandrodnm/polygate/internal/domain"
)

const (
	gammaEventsPath  = "/events"
	gammaMarketsPath = "/markets"
	defaultPageLimit = 100
)

// windowedSeries son los slugs que Polymarket regenera en cada ventana de 15m.
var windowedSeries = []string{"btc-updown-15m", "eth-updown-15m", "sol-updown-15m", "xrp-updown-15m"}

// GatewayConfig configura el MarketGateway.
type GatewayConfig struct {
	EventSlug string
	Keywords  []string
	PageLimit int
	Window    time.Duration
	Now       func() time.Time // optional
}

// MarketGateway implementa ports.MarketProvider sobre Gamma (metadata) y el
// CLOB (midpoints).
type MarketGateway struct {
	client *Client
	cfg    GatewayConfig
	now    func() time.Time
}

// NewMarketGateway crea un MarketGateway.
func NewMarketGateway(client *Client, cfg GatewayConfig) *MarketGateway {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = domain.DefaultWindow
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &MarketGateway{client: client, cfg: cfg, now: now}
}

// FetchMarkets devuelve los mercados abiertos con probabilidades del CLOB.
// Los filtros de keywords se aplican antes de pedir precios.
func (g *MarketGateway) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	events, err := g.fetchEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("gamma.FetchMarkets: %w", err)
	}

	var (
		markets  []domain.Market
		tokenIDs []string
		skipped  int
	)
	for _, ev := range events {
		for _, gm := range ev.Markets {
			if !gm.Active || gm.Closed {
				skipped++
				continue
			}
			m, ok := mapGammaMarket(gm)
			if !ok {
				slog.Debug("gamma market without token ids", "market", gm.ID, "question", gm.Question)
				skipped++
				continue
			}
			if !m.MatchesKeywords(g.cfg.Keywords) {
				continue
			}
			markets = append(markets, m)
			for _, o := range m.Outcomes {
				tokenIDs = append(tokenIDs, o.ID)
			}
		}
	}

	mids := g.client.FetchMidpoints(ctx, tokenIDs)
	for i := range markets {
		for j := range markets[i].Outcomes {
			if p, ok := mids[markets[i].Outcomes[j].ID]; ok {
				markets[i].Outcomes[j].Probability = p
			}
		}
	}

	slog.Debug("gamma markets fetched",
		"events", len(events),
		"markets", len(markets),
		"skipped", skipped,
		"priced", len(mids),
	)
	return markets, nil
}

// fetchEvents pide un evento por slug o la página de eventos activos.
func (g *MarketGateway) fetchEvents(ctx context.Context) ([]gammaEvent, error) {
	if slug := g.currentSlug(); slug != "" {
		u := fmt.Sprintf("%s%s/slug/%s", g.client.gammaBase, gammaEventsPath, url.PathEscape(slug))
		var ev gammaEvent
		if err := g.client.get(ctx, g.client.gammaLimiter, u, &ev); err != nil {
			return nil, fmt.Errorf("event %s: %w", slug, err)
		}
		return []gammaEvent{ev}, nil
	}

	q := url.Values{}
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("limit", fmt.Sprint(g.cfg.PageLimit))
	u := fmt.Sprintf("%s%s?%s", g.client.gammaBase, gammaEventsPath, q.Encode())

	var events []gammaEvent
	if err := g.client.get(ctx, g.client.gammaLimiter, u, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// currentSlug regenera el slug de las series por ventana con el timestamp
// de la ventana actual.
func (g *MarketGateway) currentSlug() string {
	if g.cfg.EventSlug == "" {
		return ""
	}
	if prefix, ok := domain.WindowedPrefix(g.cfg.EventSlug, windowedSeries); ok {
		return domain.WindowSlug(prefix, g.now(), g.cfg.Window)
	}
	return g.cfg.EventSlug
}

// FetchMarketEndTime devuelve el fin declarado del mercado, o zero si no
// viene o no se puede parsear.
func (g *MarketGateway) FetchMarketEndTime(ctx context.Context, marketID string) (time.Time, error) {
	u := fmt.Sprintf("%s%s/%s", g.client.gammaBase, gammaMarketsPath, url.PathEscape(marketID))
	var gm gammaMarket
	if err := g.client.get(ctx, g.client.gammaLimiter, u, &gm); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("gamma.FetchMarketEndTime %s: %w", marketID, err)
	}
	return gm.endTime(), nil
}
