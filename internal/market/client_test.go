package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(func() string { return "test-token" }, zerolog.Nop()).WithBaseURL(srv.URL)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestResolutionFor(t *testing.T) {
	assert.Equal(t, "30", resolutionFor(1))
	assert.Equal(t, "60", resolutionFor(2))
	assert.Equal(t, "60", resolutionFor(7))
	assert.Equal(t, "D", resolutionFor(8))
	assert.Equal(t, "D", resolutionFor(365))
}

func TestQuote(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/quote", r.URL.Path)
			require.Equal(t, "aapl", r.URL.Query().Get("symbol"))
			require.Equal(t, "test-token", r.URL.Query().Get("token"))
			writeJSON(t, w, map[string]any{"c": 150.5, "d": 2.5, "dp": 1.69, "t": 1700000000})
		})

		asset, err := client.Quote(context.Background(), "aapl")
		require.NoError(t, err)
		assert.Equal(t, "AAPL", asset.Symbol)
		assert.Equal(t, 150.5, asset.Price)
		assert.Equal(t, 2.5, asset.Change)
		assert.Equal(t, 1.69, asset.ChangePercent)
	})

	t.Run("all-zero payload means unknown symbol", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, map[string]any{"c": 0, "d": 0, "dp": 0, "t": 0})
		})

		_, err := client.Quote(context.Background(), "NOSUCH")
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "NOSUCH", notFound.Symbol)
	})

	t.Run("no token short-circuits before the network", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
		defer srv.Close()

		client := NewClient(func() string { return "" }, zerolog.Nop()).WithBaseURL(srv.URL)
		_, err := client.Quote(context.Background(), "AAPL")
		require.ErrorIs(t, err, ErrNoToken)
		assert.False(t, called)
	})

	t.Run("server error maps to UpstreamError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.Quote(context.Background(), "AAPL")
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusInternalServerError, upstream.Status)
	})
}

func TestSearch(t *testing.T) {
	t.Run("filters to common stock and caps at ten", func(t *testing.T) {
		var results []map[string]string
		for i := 0; i < 15; i++ {
			results = append(results, map[string]string{
				"symbol":      "SYM",
				"description": "Some Stock",
				"type":        "Common Stock",
			})
		}
		results = append(results, map[string]string{"symbol": "XETF", "description": "Some ETF", "type": "ETP"})

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/search", r.URL.Path)
			writeJSON(t, w, map[string]any{"result": results})
		})

		assets := client.Search(context.Background(), "some")
		require.Len(t, assets, 10)
		for _, a := range assets {
			assert.Equal(t, "SYM", a.Symbol)
			assert.Equal(t, "Some Stock", a.Name)
		}
	})

	t.Run("any failure resolves to an empty list", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		assert.Empty(t, client.Search(context.Background(), "anything"))

		client = NewClient(func() string { return "" }, zerolog.Nop())
		assert.Empty(t, client.Search(context.Background(), "anything"))
	})
}

func TestHistory(t *testing.T) {
	t.Run("maps candles to a series", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/stock/candle", r.URL.Path)
			require.Equal(t, "D", r.URL.Query().Get("resolution"))
			writeJSON(t, w, map[string]any{
				"t": []int64{1700000000, 1700086400, 1700172800},
				"c": []float64{100, 101, 99},
				"o": []float64{99, 100, 101},
				"s": "ok",
			})
		})

		series, err := client.History(context.Background(), "AAPL", 30)
		require.NoError(t, err)
		require.Len(t, series, 3)
		assert.Equal(t, 100.0, series[0].Value)
		assert.Equal(t, 99.0, series[2].Value)
		assert.True(t, series[0].Date.Before(series[1].Date))
	})

	t.Run("intraday resolution for short windows", func(t *testing.T) {
		var gotResolution string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotResolution = r.URL.Query().Get("resolution")
			writeJSON(t, w, map[string]any{"s": "no_data"})
		})

		_, err := client.History(context.Background(), "AAPL", 1)
		require.NoError(t, err)
		assert.Equal(t, "30", gotResolution)

		_, err = client.History(context.Background(), "AAPL", 7)
		require.NoError(t, err)
		assert.Equal(t, "60", gotResolution)
	})

	t.Run("no_data is an empty series, not an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, map[string]any{"s": "no_data"})
		})

		series, err := client.History(context.Background(), "AAPL", 30)
		require.NoError(t, err)
		assert.Empty(t, series)
	})

	t.Run("error payload is an empty series, not an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, map[string]any{"error": "You don't have access to this resource."})
		})

		series, err := client.History(context.Background(), "AAPL", 30)
		require.NoError(t, err)
		assert.Empty(t, series)
	})

	t.Run("quota gating falls back to a synthetic series anchored at the quote", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/stock/candle":
				w.WriteHeader(http.StatusForbidden)
			case "/quote":
				writeJSON(t, w, map[string]any{"c": 200.0, "d": 1.0, "dp": 0.5, "t": 1700000000})
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		})

		series, err := client.History(context.Background(), "AAPL", 30)
		require.NoError(t, err)
		require.Len(t, series, 31)
		assert.InDelta(t, 200, series[0].Value, syntheticDailyStep)
		for _, p := range series {
			assert.GreaterOrEqual(t, p.Value, syntheticFloor)
		}
	})

	t.Run("quota gating with a failing quote anchors at the default", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		series, err := client.History(context.Background(), "AAPL", 10)
		require.NoError(t, err)
		require.Len(t, series, 11)
		assert.InDelta(t, fallbackAnchorPrice, series[0].Value, syntheticDailyStep)
	})

	t.Run("no token short-circuits", func(t *testing.T) {
		client := NewClient(func() string { return "" }, zerolog.Nop())
		_, err := client.History(context.Background(), "AAPL", 30)
		require.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("other upstream failures return empty with the typed error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		series, err := client.History(context.Background(), "AAPL", 30)
		assert.Empty(t, series)
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
	})
}

func TestChangeOverWindow(t *testing.T) {
	t.Run("one-day window uses the quote day change verbatim", func(t *testing.T) {
		candleCalled := false
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/quote":
				writeJSON(t, w, map[string]any{"c": 100.0, "d": 3.0, "dp": 3.09, "t": 1700000000})
			case "/stock/candle":
				candleCalled = true
			}
		})

		change, err := client.ChangeOverWindow(context.Background(), "AAPL", 1)
		require.NoError(t, err)
		assert.Equal(t, 3.09, change)
		assert.False(t, candleCalled, "day change must not derive from candles")
	})

	t.Run("longer windows derive from first open and last close", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{
				"t": []int64{1, 2, 3},
				"o": []float64{100},
				"c": []float64{80, 90, 110},
				"s": "ok",
			})
		})

		change, err := client.ChangeOverWindow(context.Background(), "AAPL", 30)
		require.NoError(t, err)
		assert.InDelta(t, 10.0, change, 1e-9)
	})

	t.Run("zero start price yields zero, never divides", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, map[string]any{
				"t": []int64{1, 2},
				"o": []float64{0, 100},
				"c": []float64{100, 110},
				"s": "ok",
			})
		})

		change, err := client.ChangeOverWindow(context.Background(), "AAPL", 30)
		require.NoError(t, err)
		assert.Zero(t, change)
	})

	t.Run("no_data yields zero without error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, map[string]any{"s": "no_data"})
		})

		change, err := client.ChangeOverWindow(context.Background(), "AAPL", 7)
		require.NoError(t, err)
		assert.Zero(t, change)
	})

	t.Run("quota gating derives change from the synthetic series", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/stock/candle":
				w.WriteHeader(http.StatusForbidden)
			case "/quote":
				writeJSON(t, w, map[string]any{"c": 150.0, "d": 0.0, "dp": 0.0, "t": 1700000000})
			}
		})

		change, err := client.ChangeOverWindow(context.Background(), "AAPL", 30)
		require.NoError(t, err)
		// A 30-day ±2.5 walk from 150 cannot move more than 50%.
		assert.Less(t, change, 55.0)
		assert.Greater(t, change, -55.0)
	})

	t.Run("transport failure yields zero with the typed error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		change, err := client.ChangeOverWindow(context.Background(), "AAPL", 30)
		assert.Zero(t, change)
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
	})
}

func TestSeriesChange(t *testing.T) {
	assert.Zero(t, seriesChange(nil))
	assert.Zero(t, seriesChange(GenerateSyntheticSeries(0, 100)[:1]))

	s := GenerateSyntheticSeries(5, 100)
	s[0].Value = 100
	s[len(s)-1].Value = 110
	assert.InDelta(t, 10.0, seriesChange(s), 1e-9)

	s[0].Value = 0
	assert.Zero(t, seriesChange(s))
}
