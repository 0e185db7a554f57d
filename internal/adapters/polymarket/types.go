package polymarket

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaEvent es un evento de Gamma con sus mercados.
type gammaEvent struct {
	ID      string        `json:"id"`
	Slug    string        `json:"slug"`
	Title   string        `json:"title"`
	Active  bool          `json:"active"`
	Closed  bool          `json:"closed"`
	EndDate string        `json:"endDate"`
	Markets []gammaMarket `json:"markets"`
}

// gammaMarket contiene la metadata de un mercado. Gamma mezcla formatos:
// clobTokenIds y outcomes llegan como strings JSON, clob_token_ids como array.
type gammaMarket struct {
	ID            string       `json:"id"`
	ConditionID   string       `json:"conditionId"`
	Question      string       `json:"question"`
	Slug          string       `json:"slug"`
	Active        bool         `json:"active"`
	Closed        bool         `json:"closed"`
	EndDate       string       `json:"endDate"`
	EndDateISO    string       `json:"endDateIso"`
	EndDateISOAlt string       `json:"end_date_iso"`
	Outcomes      stringList   `json:"outcomes"`
	OutcomePrices stringList   `json:"outcomePrices"`
	ClobTokenIDs  stringList   `json:"clobTokenIds"`
	TokenIDs      stringList   `json:"clob_token_ids"`
	Tokens        []gammaToken `json:"tokens"`
}

// gammaToken es la forma antigua de listar tokens dentro de un mercado.
type gammaToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Price   amount `json:"price"`
}

// stringList acepta un array JSON o un string que contiene un array JSON.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		if inner == "" {
			*l = nil
			return nil
		}
		data = []byte(inner)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("stringList: %w", err)
	}
	*l = out
	return nil
}

// amount es un decimal opcional; acepta número, string, "" o null.
type amount struct {
	decimal.NullDecimal
}

func (a *amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte(`""`)) {
		a.Valid = false
		return nil
	}
	return a.NullDecimal.UnmarshalJSON(data)
}

// Float64 devuelve el valor o 0 si no viene.
func (a amount) Float64() float64 {
	if !a.Valid {
		return 0
	}
	return a.Decimal.InexactFloat64()
}

// --- CLOB API ---

// midpointResponse es la respuesta de GET /midpoint.
type midpointResponse struct {
	Mid amount `json:"mid"`
}

// negRiskResponse es la respuesta de GET /neg-risk.
type negRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// apiCredentials holds the CLOB API credentials derived from a wallet.
type apiCredentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// clobOrderRequest is the JSON body sent to POST /order.
type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

// clobOrderResponse covers every id spelling the venue has used.
type clobOrderResponse struct {
	Success      *bool    `json:"success"`
	ErrorMsg     string   `json:"errorMsg"`
	OrderID      string   `json:"orderID"`
	ID           string   `json:"id"`
	OrderIDCamel string   `json:"orderId"`
	OrderIDSnake string   `json:"order_id"`
	MessageHash  string   `json:"messageHash"`
	Status       string   `json:"status"`
	TxHashes     []string `json:"transactionsHashes"`
}

// clobOrderStatus is the answer of GET /data/order/{id}.
type clobOrderStatus struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	OriginalSize       amount `json:"original_size"`
	SizeMatched        amount `json:"size_matched"`
	SizeFilled         amount `json:"sizeFilled"`
	SizeRemaining      amount `json:"size_remaining"`
	SizeRemainingCamel amount `json:"sizeRemaining"`
}
