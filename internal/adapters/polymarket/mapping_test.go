package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapping_ActivityTimestampVariants(t *testing.T) {
	// El feed mezcla timestamps numéricos (segundos o ms) y strings ISO;
	// el adapter los conserva crudos para que el monitor los normalice.
	fixture := `[
		{
			"proxyWallet": "0xleader", "side": "BUY",
			"conditionId": "0xc1", "asset": "tok1",
			"size": 10.5, "usdcSize": 6.3, "price": 0.6,
			"timestamp": 1700000000,
			"transactionHash": "0xaaa", "title": "Market A",
			"slug": "market-a", "eventSlug": "event-a",
			"outcome": "Yes", "outcomeIndex": 0, "type": "TRADE"
		},
		{
			"proxyWallet": "0xleader", "side": "SELL",
			"conditionId": "0xc2", "asset": "tok2",
			"size": "3", "usdcSize": "1.2", "price": "0.4",
			"timestamp": "2024-05-01T10:30:00Z",
			"transactionHash": "0xbbb",
			"outcome": "No", "outcomeIndex": 1, "type": "TRADE"
		},
		{
			"proxyWallet": "0xleader", "side": "BUY",
			"conditionId": "0xc3", "asset": "tok3",
			"size": 1, "usdcSize": 0.5, "price": 0.5,
			"timestamp": "1700000123456",
			"transactionHash": "0xccc", "type": "TRADE"
		}
	]`

	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	acts, err := client.FetchActivity(context.Background(), "0xleader")
	require.NoError(t, err)
	require.Len(t, acts, 3)

	assert.Equal(t, "0xleader", gotQuery["user"][0])
	assert.Equal(t, "TRADE", gotQuery["type"][0])

	// Numérico → tal cual
	assert.Equal(t, "1700000000", acts[0].RawTimestamp)
	assert.Equal(t, "BUY", acts[0].Side)
	assert.InDelta(t, 10.5, acts[0].Size, 1e-9)
	assert.InDelta(t, 6.3, acts[0].UsdcSize, 1e-9)
	assert.InDelta(t, 0.6, acts[0].Price, 1e-9)
	assert.Equal(t, "Market A", acts[0].Title)

	// String ISO → sin comillas
	assert.Equal(t, "2024-05-01T10:30:00Z", acts[1].RawTimestamp)
	// size/usdcSize/price como strings también se parsean (json.Number)
	assert.InDelta(t, 3.0, acts[1].Size, 1e-9)
	assert.InDelta(t, 1.2, acts[1].UsdcSize, 1e-9)

	// String numérico (ms) → sin comillas, sin interpretar
	assert.Equal(t, "1700000123456", acts[2].RawTimestamp)
}

func TestMapping_ActivityPagePropagatesOffset(t *testing.T) {
	var limits, offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limits = append(limits, r.URL.Query().Get("limit"))
		offsets = append(offsets, r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.FetchActivityPage(context.Background(), "0xleader", 2, 7)
	require.NoError(t, err)

	require.Len(t, limits, 1)
	assert.Equal(t, "2", limits[0])
	assert.Equal(t, "7", offsets[0])
}

func TestMapping_Positions(t *testing.T) {
	fixture := `[
		{
			"conditionId": "0xc1", "asset": "tok1", "title": "Market A",
			"size": 120.0, "avgPrice": 0.55, "initialValue": 66.0,
			"currentValue": 72.0, "curPrice": 0.6, "percentPnl": 9.09
		},
		{
			"conditionId": "0xc2", "asset": "tok2", "title": "Market B",
			"size": "10", "avgPrice": "0.2", "initialValue": "2",
			"currentValue": "1.5", "curPrice": "0.15", "percentPnl": "-25"
		}
	]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xwallet", r.URL.Query().Get("user"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	positions, err := client.FetchPositions(context.Background(), "0xwallet")
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, "0xc1", positions[0].ConditionID)
	assert.InDelta(t, 120.0, positions[0].Size, 1e-9)
	assert.InDelta(t, 72.0, positions[0].CurrentValue, 1e-9)

	assert.InDelta(t, 10.0, positions[1].Size, 1e-9)
	assert.InDelta(t, -25.0, positions[1].PercentPnl, 1e-9)
}

func TestMapping_BookSortedAndCleaned(t *testing.T) {
	// Niveles desordenados y uno inválido (price 0) que debe descartarse.
	fixture := `{
		"asset_id": "tok1",
		"bids": [
			{"price": "0.58", "size": "100"},
			{"price": "0.60", "size": "50"},
			{"price": "0", "size": "999"}
		],
		"asks": [
			{"price": "0.65", "size": "80"},
			{"price": "0.62", "size": "40"}
		]
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok1", r.URL.Query().Get("token_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	book, err := client.FetchBook(context.Background(), "tok1")
	require.NoError(t, err)

	// Bids: mayor a menor; el nivel inválido fuera
	require.Len(t, book.Bids, 2)
	assert.InDelta(t, 0.60, book.Bids[0].Price, 1e-9)
	assert.InDelta(t, 0.58, book.Bids[1].Price, 1e-9)

	// Asks: menor a mayor
	require.Len(t, book.Asks, 2)
	assert.InDelta(t, 0.62, book.Asks[0].Price, 1e-9)
	assert.InDelta(t, 0.60, book.BestBid(), 1e-9)
	assert.InDelta(t, 0.62, book.BestAsk(), 1e-9)
}
