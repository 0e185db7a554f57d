package polymarket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polygate/internal/adapters/polymarket"
	"github.com/alejandrodnm/polygate/internal/domain"
)

const testPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fakeCLOB struct {
	t          *testing.T
	deriveFail bool
	orderBody  map[string]any
	created    atomic.Int32
	orderResp  string
	statusResp string
}

func (f *fakeCLOB) handler() http.Handler {
	creds := `{"apiKey":"key-1","secret":"c2VjcmV0","passphrase":"pass"}`
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/derive-api-key", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(f.t, r.Header.Get("POLY_SIGNATURE"))
		if f.deriveFail {
			http.Error(w, "no key", http.StatusNotFound)
			return
		}
		w.Write([]byte(creds))
	})
	mux.HandleFunc("POST /auth/api-key", func(w http.ResponseWriter, r *http.Request) {
		f.created.Add(1)
		w.Write([]byte(creds))
	})
	mux.HandleFunc("GET /neg-risk", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"neg_risk":false}`))
	})
	mux.HandleFunc("GET /tick-size", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"minimum_tick_size":0.01}`))
	})
	mux.HandleFunc("POST /order", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "key-1", r.Header.Get("POLY_API_KEY"))
		assert.NotEmpty(f.t, r.Header.Get("POLY_SIGNATURE"))
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.orderBody))
		w.Write([]byte(f.orderResp))
	})
	mux.HandleFunc("GET /data/order/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "0xabc", r.PathValue("id"))
		w.Write([]byte(f.statusResp))
	})
	return mux
}

func newTradingClient(t *testing.T, f *fakeCLOB) *polymarket.TradingClient {
	t.Helper()
	f.t = t
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	auth, err := polymarket.NewAuthClient(polymarket.NewClient(srv.URL, srv.URL), polymarket.AuthConfig{
		PrivateKey: testPrivateKey,
	})
	require.NoError(t, err)
	return polymarket.NewTradingClient(auth)
}

func TestSubmitOrder_Success(t *testing.T) {
	f := &fakeCLOB{orderResp: `{"success":true,"orderID":"0xabc","status":"live"}`}
	tc := newTradingClient(t, f)

	receipt, err := tc.SubmitOrder(context.Background(), domain.SubmitRequest{
		MarketID: "501", OutcomeID: "12345", Price: 0.97, Size: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SubmitReceipt{OrderID: "0xabc", Status: "live"}, receipt)

	assert.Equal(t, "GTC", f.orderBody["orderType"])
	assert.Equal(t, "key-1", f.orderBody["owner"])
	order, ok := f.orderBody["order"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "12345", order["tokenId"])
	assert.Equal(t, "BUY", order["side"])
	assert.Equal(t, "4850000", order["makerAmount"])
	assert.Equal(t, "5000000", order["takerAmount"])
	assert.Equal(t, tc.Address(), order["maker"])
}

func TestSubmitOrder_CreatesKeyWhenDeriveFails(t *testing.T) {
	f := &fakeCLOB{deriveFail: true, orderResp: `{"success":true,"id":"0xdef"}`}
	tc := newTradingClient(t, f)

	receipt, err := tc.SubmitOrder(context.Background(), domain.SubmitRequest{OutcomeID: "1", Price: 0.5, Size: 2})

	require.NoError(t, err)
	assert.Equal(t, "0xdef", receipt.OrderID)
	assert.Equal(t, int32(1), f.created.Load())
}

func TestSubmitOrder_VenueRejection(t *testing.T) {
	f := &fakeCLOB{orderResp: `{"success":false,"errorMsg":"not enough balance / allowance"}`}
	tc := newTradingClient(t, f)

	_, err := tc.SubmitOrder(context.Background(), domain.SubmitRequest{OutcomeID: "1", Price: 0.97, Size: 5})

	assert.ErrorContains(t, err, "not enough balance")
}

func TestFetchOrderStatus(t *testing.T) {
	f := &fakeCLOB{statusResp: `{"id":"0xabc","status":"MATCHED","original_size":"5","size_matched":"5"}`}
	tc := newTradingClient(t, f)

	report, err := tc.FetchOrderStatus(context.Background(), "0xabc")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusReport{Status: domain.FillStatusMatched, SizeFilled: 5}, report)
}

func TestNewAuthClient_Validation(t *testing.T) {
	client := polymarket.NewClient("", "")

	_, err := polymarket.NewAuthClient(client, polymarket.AuthConfig{PrivateKey: "zz"})
	assert.Error(t, err)

	_, err = polymarket.NewAuthClient(client, polymarket.AuthConfig{
		PrivateKey:    testPrivateKey,
		SignatureType: polymarket.SignaturePolyProxy,
	})
	assert.Error(t, err, "proxy signature needs a funder")

	auth, err := polymarket.NewAuthClient(client, polymarket.AuthConfig{
		PrivateKey:    testPrivateKey,
		SignatureType: polymarket.SignaturePolyProxy,
		Funder:        "0x00000000000000000000000000000000000000aa",
	})
	require.NoError(t, err)
	assert.True(t, strings.EqualFold("0x00000000000000000000000000000000000000aa", auth.Address()))
	assert.NotEqual(t, auth.Address(), auth.SignerAddress())
}
