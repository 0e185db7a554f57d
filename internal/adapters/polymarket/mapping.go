package polymarket

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/polygate/internal/domain"
)

// mapGammaMarket convierte un gammaMarket DTO a domain.Market. Devuelve false
// si el mercado no tiene token ids (no se puede operar).
func mapGammaMarket(gm gammaMarket) (domain.Market, bool) {
	tokenIDs := gm.tokenIDs()
	if len(tokenIDs) == 0 {
		return domain.Market{}, false
	}

	id := gm.ID
	if id == "" {
		id = gm.ConditionID
	}

	m := domain.Market{
		ID:       id,
		Question: gm.Question,
		Slug:     gm.Slug,
		EndDate:  gm.endTime(),
		Outcomes: make([]domain.Outcome, 0, len(tokenIDs)),
	}
	for i, tid := range tokenIDs {
		m.Outcomes = append(m.Outcomes, domain.Outcome{
			ID:          tid,
			Label:       gm.outcomeLabel(i),
			Probability: gm.fallbackPrice(i),
		})
	}
	return m, true
}

// tokenIDs prueba clob_token_ids, clobTokenIds y tokens[] en ese orden.
func (gm gammaMarket) tokenIDs() []string {
	if len(gm.TokenIDs) > 0 {
		return gm.TokenIDs
	}
	if len(gm.ClobTokenIDs) > 0 {
		return gm.ClobTokenIDs
	}
	ids := make([]string, 0, len(gm.Tokens))
	for _, t := range gm.Tokens {
		if t.TokenID != "" {
			ids = append(ids, t.TokenID)
		}
	}
	return ids
}

func (gm gammaMarket) outcomeLabel(i int) string {
	if i < len(gm.Outcomes) && gm.Outcomes[i] != "" {
		return gm.Outcomes[i]
	}
	if i < len(gm.Tokens) && gm.Tokens[i].Outcome != "" {
		return gm.Tokens[i].Outcome
	}
	return fmt.Sprintf("Outcome %d", i+1)
}

// fallbackPrice es el precio de Gamma, usado cuando el midpoint falla.
func (gm gammaMarket) fallbackPrice(i int) float64 {
	if i < len(gm.OutcomePrices) {
		if d, err := decimal.NewFromString(strings.TrimSpace(gm.OutcomePrices[i])); err == nil {
			return d.InexactFloat64()
		}
	}
	if i < len(gm.Tokens) {
		return gm.Tokens[i].Price.Float64()
	}
	return 0
}

func (gm gammaMarket) endTime() time.Time {
	for _, s := range []string{gm.EndDate, gm.EndDateISO, gm.EndDateISOAlt} {
		if t, ok := parseTime(s); ok {
			return t
		}
	}
	return time.Time{}
}

// parseTime acepta los formatos de fecha que usa Polymarket.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// receiptFromResponse normaliza la respuesta de POST /order.
func receiptFromResponse(r clobOrderResponse) (domain.SubmitReceipt, error) {
	if r.ErrorMsg != "" {
		return domain.SubmitReceipt{}, fmt.Errorf("clob rejected order: %s", r.ErrorMsg)
	}
	if r.Success != nil && !*r.Success {
		return domain.SubmitReceipt{}, fmt.Errorf("clob rejected order: status %q", r.Status)
	}

	id := ""
	for _, candidate := range []string{r.OrderID, r.ID, r.OrderIDCamel, r.OrderIDSnake, r.MessageHash} {
		if c := strings.TrimSpace(candidate); c != "" {
			id = c
			break
		}
	}
	receipt := domain.SubmitReceipt{OrderID: id, Status: r.Status}
	if len(r.TxHashes) > 0 {
		receipt.TxHash = r.TxHashes[0]
	}
	return receipt, nil
}

// statusReport normaliza la respuesta de GET /data/order/{id}.
func statusReport(s clobOrderStatus) domain.StatusReport {
	r := domain.StatusReport{Status: normalizeFillStatus(s.Status)}

	filled := s.SizeMatched
	if !filled.Valid {
		filled = s.SizeFilled
	}
	remaining := s.SizeRemaining
	if !remaining.Valid {
		remaining = s.SizeRemainingCamel
	}
	r.SizeFilled = filled.Float64()

	switch {
	case remaining.Valid:
		r.SizeRemaining = remaining.Float64()
	case s.OriginalSize.Valid:
		rem := s.OriginalSize.Decimal.Sub(filled.Decimal)
		if rem.IsPositive() {
			r.SizeRemaining = rem.InexactFloat64()
		}
	}
	return r
}

// normalizeFillStatus mapea el texto del CLOB a domain.FillStatus.
func normalizeFillStatus(s string) domain.FillStatus {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case upper == "":
		return domain.FillStatusUnknown
	case upper == "LIVE" || upper == "OPEN" || upper == "DELAYED" || upper == "UNMATCHED":
		return domain.FillStatusLive
	case strings.Contains(upper, "MATCHED") || upper == "FILLED":
		return domain.FillStatusMatched
	case strings.Contains(upper, "CANCEL") || strings.Contains(upper, "INVALID"):
		return domain.FillStatusCancelled
	default:
		return domain.FillStatusUnknown
	}
}
