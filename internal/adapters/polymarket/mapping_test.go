package polymarket

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polygate/internal/domain"
)

func TestStringList_AcceptsArrayAndEncodedString(t *testing.T) {
	var v struct {
		A stringList `json:"a"`
		B stringList `json:"b"`
		C stringList `json:"c"`
		D stringList `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":["x","y"],"b":"[\"x\",\"y\"]","c":"","d":null}`), &v)

	require.NoError(t, err)
	assert.Equal(t, stringList{"x", "y"}, v.A)
	assert.Equal(t, stringList{"x", "y"}, v.B)
	assert.Nil(t, v.C)
	assert.Nil(t, v.D)
}

func TestMapGammaMarket_DefaultLabels(t *testing.T) {
	m, ok := mapGammaMarket(gammaMarket{
		ConditionID:  "0xcond",
		ClobTokenIDs: stringList{"t1", "t2"},
	})

	require.True(t, ok)
	assert.Equal(t, "0xcond", m.ID, "falls back to condition id")
	assert.Equal(t, "Outcome 1", m.Outcomes[0].Label)
	assert.Equal(t, "Outcome 2", m.Outcomes[1].Label)
	assert.Zero(t, m.Outcomes[0].Probability)
}

func TestReceiptFromResponse_IDAlternatives(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"success":true,"orderID":"0xa","status":"live"}`, "0xa"},
		{`{"id":"0xb"}`, "0xb"},
		{`{"orderId":"0xc"}`, "0xc"},
		{`{"order_id":"0xd"}`, "0xd"},
		{`{"messageHash":"0xe"}`, "0xe"},
		{`{"success":true,"orderID":"  ","status":"delayed"}`, ""},
	}
	for _, tt := range tests {
		var r clobOrderResponse
		require.NoError(t, json.Unmarshal([]byte(tt.body), &r))
		receipt, err := receiptFromResponse(r)
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.want, receipt.OrderID, tt.body)
	}
}

func TestReceiptFromResponse_Rejections(t *testing.T) {
	var r clobOrderResponse
	require.NoError(t, json.Unmarshal([]byte(`{"success":false,"errorMsg":"not enough balance / allowance"}`), &r))
	_, err := receiptFromResponse(r)
	assert.ErrorContains(t, err, "not enough balance")

	r = clobOrderResponse{}
	require.NoError(t, json.Unmarshal([]byte(`{"success":false,"status":"unmatched"}`), &r))
	_, err = receiptFromResponse(r)
	assert.Error(t, err)
}

func TestStatusReport(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.StatusReport
	}{
		{"snake case", `{"status":"LIVE","size_matched":"2.5","size_remaining":"7.5"}`,
			domain.StatusReport{Status: domain.FillStatusLive, SizeFilled: 2.5, SizeRemaining: 7.5}},
		{"camel case", `{"status":"MATCHED","sizeFilled":10,"sizeRemaining":0}`,
			domain.StatusReport{Status: domain.FillStatusMatched, SizeFilled: 10}},
		{"remaining from original size", `{"status":"live","original_size":"10","size_matched":"4"}`,
			domain.StatusReport{Status: domain.FillStatusLive, SizeFilled: 4, SizeRemaining: 6}},
		{"empty", `{}`, domain.UnknownStatus()},
		{"empty strings", `{"status":"CANCELED","size_matched":""}`,
			domain.StatusReport{Status: domain.FillStatusCancelled}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s clobOrderStatus
			require.NoError(t, json.Unmarshal([]byte(tt.body), &s))
			assert.Equal(t, tt.want, statusReport(s))
		})
	}
}

func TestNormalizeFillStatus(t *testing.T) {
	assert.Equal(t, domain.FillStatusLive, normalizeFillStatus("unmatched"))
	assert.Equal(t, domain.FillStatusLive, normalizeFillStatus("live"))
	assert.Equal(t, domain.FillStatusMatched, normalizeFillStatus("MATCHED"))
	assert.Equal(t, domain.FillStatusCancelled, normalizeFillStatus("CANCELED_MARKET_RESOLVED"))
	assert.Equal(t, domain.FillStatusUnknown, normalizeFillStatus("weird"))
	assert.Equal(t, domain.FillStatusUnknown, normalizeFillStatus(""))
}

func TestOrderAmounts(t *testing.T) {
	maker, taker, err := orderAmounts(0.97, 5, defaultTickSize)
	require.NoError(t, err)
	assert.Equal(t, "4850000", maker.String())
	assert.Equal(t, "5000000", taker.String())

	// Price rounds to tick, shares round down to cents.
	maker, taker, err = orderAmounts(0.9651, 3.339, defaultTickSize)
	require.NoError(t, err)
	assert.Equal(t, "3230100", maker.String()) // 3.33 × 0.97 = 3.2301
	assert.Equal(t, "3330000", taker.String())

	_, _, err = orderAmounts(0.999, 5, defaultTickSize)
	assert.Error(t, err, "rounds to 1.00")
	_, _, err = orderAmounts(0.5, 0.001, defaultTickSize)
	assert.Error(t, err)

	maker, _, err = orderAmounts(0.955, 2, decimal.RequireFromString("0.001"))
	require.NoError(t, err)
	assert.Equal(t, "1910000", maker.String())
}
