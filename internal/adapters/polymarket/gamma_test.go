package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polygate/internal/adapters/polymarket"
)

var midpoints = map[string]string{
	"tok-up-501":   `{"mid":"0.955"}`,
	"tok-down-501": `{"mid":"0.045"}`,
	"tok-no-601":   `{"mid":0.97}`,
}

func newVenue(t *testing.T, events []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var midCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		w.Write(events)
	})
	mux.HandleFunc("GET /midpoint", func(w http.ResponseWriter, r *http.Request) {
		midCalls.Add(1)
		body, ok := midpoints[r.URL.Query().Get("token_id")]
		if !ok {
			http.Error(w, `{"error":"no orderbook"}`, http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &midCalls
}

func loadEvents(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../../../testdata/fixtures/gamma_events.json")
	require.NoError(t, err)
	return data
}

func TestFetchMarkets_EventsList(t *testing.T) {
	srv, _ := newVenue(t, loadEvents(t))
	gw := polymarket.NewMarketGateway(polymarket.NewClient(srv.URL, srv.URL), polymarket.GatewayConfig{})

	markets, err := gw.FetchMarkets(context.Background())

	require.NoError(t, err)
	require.Len(t, markets, 2, "closed and token-less markets are skipped")

	btc := markets[0]
	assert.Equal(t, "501", btc.ID)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 15, 0, 0, time.UTC), btc.EndDate)
	require.Len(t, btc.Outcomes, 2)
	assert.Equal(t, "tok-up-501", btc.Outcomes[0].ID)
	assert.Equal(t, "Up", btc.Outcomes[0].Label)
	assert.InDelta(t, 0.955, btc.Outcomes[0].Probability, 1e-9)
	assert.InDelta(t, 0.045, btc.Outcomes[1].Probability, 1e-9)

	fed := markets[1]
	assert.Equal(t, "601", fed.ID)
	assert.Equal(t, "Yes", fed.Outcomes[0].Label)
	assert.InDelta(t, 0.03, fed.Outcomes[0].Probability, 1e-9, "midpoint failure keeps gamma price")
	assert.InDelta(t, 0.97, fed.Outcomes[1].Probability, 1e-9)
}

func TestFetchMarkets_KeywordFilterSkipsPricing(t *testing.T) {
	srv, midCalls := newVenue(t, loadEvents(t))
	gw := polymarket.NewMarketGateway(polymarket.NewClient(srv.URL, srv.URL), polymarket.GatewayConfig{
		Keywords: []string{"FED"},
	})

	markets, err := gw.FetchMarkets(context.Background())

	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "601", markets[0].ID)
	assert.Equal(t, int32(2), midCalls.Load())
}

func TestFetchMarkets_WindowedSlugIsRegenerated(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"id":"1","slug":"x","markets":[]}`))
	}))
	defer srv.Close()

	now := time.Date(2025, 1, 1, 0, 7, 30, 0, time.UTC)
	gw := polymarket.NewMarketGateway(polymarket.NewClient(srv.URL, srv.URL), polymarket.GatewayConfig{
		EventSlug: "btc-updown-15m-1700000000",
		Now:       func() time.Time { return now },
	})

	markets, err := gw.FetchMarkets(context.Background())

	require.NoError(t, err)
	assert.Empty(t, markets)
	assert.Equal(t, "/events/slug/btc-updown-15m-1735689600", gotPath)
}

func TestFetchMarkets_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	gw := polymarket.NewMarketGateway(polymarket.NewClient(srv.URL, srv.URL), polymarket.GatewayConfig{})
	_, err := gw.FetchMarkets(context.Background())

	require.Error(t, err)
	var httpErr *polymarket.HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
}

func TestFetchMarketEndTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/501":
			w.Write([]byte(`{"id":"501","endDateIso":"2025-01-01T00:15:00.000Z"}`))
		case "/markets/502":
			w.Write([]byte(`{"id":"502","endDate":"soon"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	gw := polymarket.NewMarketGateway(polymarket.NewClient(srv.URL, srv.URL), polymarket.GatewayConfig{})
	ctx := context.Background()

	end, err := gw.FetchMarketEndTime(ctx, "501")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 15, 0, 0, time.UTC), end)

	end, err = gw.FetchMarketEndTime(ctx, "502")
	require.NoError(t, err)
	assert.True(t, end.IsZero(), "unparsable end date is absent")

	end, err = gw.FetchMarketEndTime(ctx, "missing")
	require.NoError(t, err)
	assert.True(t, end.IsZero())
}
