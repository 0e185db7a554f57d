package polymarket

// prices.go — midpoints del CLOB.
//
// FetchMidpoints lanza un goroutine por token; el midpointLimiter marca el
// ritmo. Un token que falla se omite del resultado y el caller conserva el
// precio de Gamma.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
)

const midpointPath = "/midpoint"

// FetchMidpoints devuelve tokenID→midpoint para los tokens que respondieron.
func (c *Client) FetchMidpoints(ctx context.Context, tokenIDs []string) map[string]float64 {
	if len(tokenIDs) == 0 {
		return map[string]float64{}
	}

	type midResult struct {
		tokenID string
		price   float64
		err     error
	}

	resultCh := make(chan midResult, len(tokenIDs))
	var wg sync.WaitGroup

	for _, id := range tokenIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.fetchMidpoint(ctx, id)
			resultCh <- midResult{tokenID: id, price: p, err: err}
		}()
	}

	// Cerrar el canal cuando todos los goroutines terminen
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	prices := make(map[string]float64, len(tokenIDs))
	failed := 0
	for r := range resultCh {
		if r.err != nil {
			failed++
			slog.Debug("midpoint failed", "token", r.tokenID, "err", r.err)
			continue
		}
		prices[r.tokenID] = r.price
	}

	if failed > 0 {
		slog.Warn("some midpoints unavailable", "failed", failed, "total", len(tokenIDs))
	}
	return prices
}

func (c *Client) fetchMidpoint(ctx context.Context, tokenID string) (float64, error) {
	u := fmt.Sprintf("%s%s?token_id=%s", c.clobBase, midpointPath, url.QueryEscape(tokenID))
	var resp midpointResponse
	if err := c.get(ctx, c.midpointLimiter, u, &resp); err != nil {
		return 0, err
	}
	if !resp.Mid.Valid {
		return 0, fmt.Errorf("empty midpoint")
	}
	return resp.Mid.Float64(), nil
}
