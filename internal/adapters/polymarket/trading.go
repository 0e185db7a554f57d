package polymarket

// trading.go — order submission and status via the Polymarket CLOB API.
//
// Implements ports.OrderSubmitter and ports.OrderStatusProvider on top of
// AuthClient. Every order is a GTC limit BUY.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/polygate/internal/domain"
)

var defaultTickSize = decimal.RequireFromString("0.01")

type tickSizeResponse struct {
	MinimumTickSize amount `json:"minimum_tick_size"`
}

// TradingClient submits orders and reads their fill status.
type TradingClient struct {
	auth *AuthClient
}

// NewTradingClient creates a TradingClient.
func NewTradingClient(auth *AuthClient) *TradingClient {
	return &TradingClient{auth: auth}
}

// Address returns the wallet address orders are placed for.
func (tc *TradingClient) Address() string {
	return tc.auth.Address()
}

// SubmitOrder signs and posts a BUY limit order for req.Size shares of
// req.OutcomeID at req.Price.
func (tc *TradingClient) SubmitOrder(ctx context.Context, req domain.SubmitRequest) (domain.SubmitReceipt, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return domain.SubmitReceipt{}, fmt.Errorf("submit order: creds: %w", err)
	}

	negRisk, err := tc.IsNegRisk(ctx, req.OutcomeID)
	if err != nil {
		slog.Warn("neg-risk lookup failed, assuming standard exchange", "token", req.OutcomeID, "err", err)
	}
	tick := tc.TickSize(ctx, req.OutcomeID)

	signed, err := tc.auth.buildSignedOrder(req.OutcomeID, req.Price, req.Size, tick, negRisk)
	if err != nil {
		return domain.SubmitReceipt{}, fmt.Errorf("submit order: sign: %w", err)
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       req.OutcomeID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          "BUY",
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     tc.auth.apiKey(),
		OrderType: "GTC",
	}

	var resp clobOrderResponse
	if err := tc.auth.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return domain.SubmitReceipt{}, fmt.Errorf("submit order: post: %w", err)
	}

	receipt, err := receiptFromResponse(resp)
	if err != nil {
		return domain.SubmitReceipt{}, fmt.Errorf("submit order: %w", err)
	}

	slog.Info("order posted",
		"token", req.OutcomeID,
		"price", req.Price,
		"size", req.Size,
		"order", receipt.OrderID,
		"status", receipt.Status,
		"neg_risk", negRisk,
	)
	return receipt, nil
}

// FetchOrderStatus reads the fill status of an order.
func (tc *TradingClient) FetchOrderStatus(ctx context.Context, orderID string) (domain.StatusReport, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return domain.UnknownStatus(), fmt.Errorf("order status: creds: %w", err)
	}

	var resp clobOrderStatus
	path := "/data/order/" + url.PathEscape(orderID)
	if err := tc.auth.doL2(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return domain.UnknownStatus(), fmt.Errorf("order status %s: %w", orderID, err)
	}
	return statusReport(resp), nil
}

// IsNegRisk queries the CLOB to determine if a token uses the NegRisk adapter.
func (tc *TradingClient) IsNegRisk(ctx context.Context, tokenID string) (bool, error) {
	u := fmt.Sprintf("%s/neg-risk?token_id=%s", tc.auth.clobBase, url.QueryEscape(tokenID))

	var resp negRiskResponse
	if err := tc.auth.get(ctx, tc.auth.clobLimiter, u, &resp); err != nil {
		return false, fmt.Errorf("neg-risk check: %w", err)
	}
	return resp.NegRisk, nil
}

// TickSize returns the market's minimum tick, 0.01 when unavailable.
func (tc *TradingClient) TickSize(ctx context.Context, tokenID string) decimal.Decimal {
	u := fmt.Sprintf("%s/tick-size?token_id=%s", tc.auth.clobBase, url.QueryEscape(tokenID))

	var resp tickSizeResponse
	if err := tc.auth.get(ctx, tc.auth.clobLimiter, u, &resp); err != nil || !resp.MinimumTickSize.Valid {
		return defaultTickSize
	}
	if !resp.MinimumTickSize.Decimal.IsPositive() {
		return defaultTickSize
	}
	return resp.MinimumTickSize.Decimal
}
