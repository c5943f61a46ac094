// Package market provides the Finnhub market-data client: symbol search,
// quotes, historical candles, and window change computation, with a synthetic
// fallback for plan-gated endpoints.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reotam5/stock-visualizer/internal/portfolio"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// fallbackAnchorPrice anchors the synthetic series when even the quote
// endpoint is unavailable.
const fallbackAnchorPrice = 150.0

const maxSearchResults = 10

// TokenSource yields the current API token. An empty string means no
// credential is configured.
type TokenSource func() string

// Client for the Finnhub API. Every call re-fetches; there is no caching
// layer.
type Client struct {
	baseURL string
	client  *http.Client
	token   TokenSource
	log     zerolog.Logger
}

// NewClient creates a new Finnhub client.
func NewClient(token TokenSource, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		token:   token,
		log:     log.With().Str("client", "finnhub").Logger(),
	}
}

// WithBaseURL overrides the upstream base URL. Used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// Configured reports whether an API token is currently available.
func (c *Client) Configured() bool { return c.token() != "" }

type searchResponse struct {
	Result []struct {
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"result"`
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	Timestamp     int64   `json:"t"`
}

type candleResponse struct {
	Timestamps []int64   `json:"t"`
	Opens      []float64 `json:"o"`
	Closes     []float64 `json:"c"`
	Status     string    `json:"s"`
	Error      any       `json:"error"`
}

// get performs an authenticated GET against the upstream API and decodes the
// JSON body into out. It returns ErrNoToken without touching the network when
// no credential exists, *QuotaError for 403, *NotFoundError for 404, and
// *UpstreamError for everything else that goes wrong.
func (c *Client) get(ctx context.Context, op, path, symbol string, params url.Values, out any) error {
	token := c.token()
	if token == "" {
		return ErrNoToken
	}
	params.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return &QuotaError{Status: resp.StatusCode}
	case http.StatusNotFound:
		return &NotFoundError{Symbol: symbol}
	default:
		io.Copy(io.Discard, resp.Body)
		return &UpstreamError{Op: op, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Search returns asset candidates for a free-text query, filtered to common
// stock and capped at ten results. Best-effort: any failure, including a
// missing token, resolves to an empty list.
func (c *Client) Search(ctx context.Context, query string) []portfolio.Asset {
	var sr searchResponse
	if err := c.get(ctx, "search", "/search", "", url.Values{"q": {query}}, &sr); err != nil {
		c.log.Warn().Err(err).Str("query", query).Msg("search failed")
		return nil
	}

	out := make([]portfolio.Asset, 0, maxSearchResults)
	for _, r := range sr.Result {
		if r.Type != "Common Stock" {
			continue
		}
		out = append(out, portfolio.Asset{Symbol: r.Symbol, Name: r.Description})
		if len(out) == maxSearchResults {
			break
		}
	}
	return out
}

// Quote fetches the current price and day change for a symbol. The display
// name defaults to the symbol itself: the profile endpoint that carries real
// company names is plan-gated, so names normally arrive via Search.
func (c *Client) Quote(ctx context.Context, symbol string) (portfolio.Asset, error) {
	var qr quoteResponse
	if err := c.get(ctx, "quote", "/quote", symbol, url.Values{"symbol": {symbol}}, &qr); err != nil {
		return portfolio.Asset{}, err
	}

	// Finnhub answers 200 with an all-zero body for unknown symbols.
	if qr.Current == 0 && qr.Change == 0 && qr.ChangePercent == 0 && qr.Timestamp == 0 {
		return portfolio.Asset{}, &NotFoundError{Symbol: symbol}
	}

	sym := strings.ToUpper(symbol)
	return portfolio.Asset{
		Symbol:        sym,
		Name:          sym,
		Price:         qr.Current,
		Change:        qr.Change,
		ChangePercent: qr.ChangePercent,
	}, nil
}

// resolutionFor maps a look-back window to a candle resolution. The choice
// bounds how many points the upstream returns, so the synthetic fallback and
// the tests both depend on it staying exactly this.
func resolutionFor(windowDays int) string {
	switch {
	case windowDays <= 1:
		return "30"
	case windowDays <= 7:
		return "60"
	default:
		return "D"
	}
}

func (c *Client) candles(ctx context.Context, symbol string, windowDays int) (candleResponse, error) {
	to := time.Now().Unix()
	from := to - int64(windowDays)*24*60*60

	params := url.Values{
		"symbol":     {symbol},
		"resolution": {resolutionFor(windowDays)},
		"from":       {fmt.Sprintf("%d", from)},
		"to":         {fmt.Sprintf("%d", to)},
	}
	var cr candleResponse
	err := c.get(ctx, "candles", "/stock/candle", symbol, params, &cr)
	return cr, err
}

// History fetches the close-price series for a symbol over the window.
//
// Failure semantics: a missing token returns ErrNoToken before any network
// call. A quota-gated response (403) substitutes a synthetic series anchored
// at the latest quote price and returns it as a normal result. An upstream
// "no_data" status or error payload yields an empty series and a nil error.
// Any other failure yields an empty series together with the typed error, so
// callers can default to "no data" while tests still see the reason.
func (c *Client) History(ctx context.Context, symbol string, windowDays int) (portfolio.Series, error) {
	cr, err := c.candles(ctx, symbol, windowDays)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, err
		}
		var quota *QuotaError
		if errors.As(err, &quota) {
			return c.syntheticFallback(ctx, symbol, windowDays), nil
		}
		c.log.Warn().Err(err).Str("symbol", symbol).Int("days", windowDays).Msg("history fetch failed")
		return nil, err
	}

	if cr.Status == "no_data" || cr.Error != nil {
		return portfolio.Series{}, nil
	}
	n := len(cr.Timestamps)
	if len(cr.Closes) < n {
		n = len(cr.Closes)
	}
	if n == 0 {
		return portfolio.Series{}, nil
	}

	series := make(portfolio.Series, 0, n)
	for i := 0; i < n; i++ {
		series = append(series, portfolio.PricePoint{
			Date:  time.Unix(cr.Timestamps[i], 0),
			Value: cr.Closes[i],
		})
	}
	return series, nil
}

// ChangeOverWindow computes the percentage change of a symbol over the
// window. A one-day window uses the quote endpoint's precomputed day change,
// which is cheaper and works on constrained plans; larger windows derive the
// change from the first open and last close of the candle series. Failures
// resolve to 0 with the typed error attached, except quota gating, which
// falls back to a synthetic series like History does.
func (c *Client) ChangeOverWindow(ctx context.Context, symbol string, windowDays int) (float64, error) {
	if windowDays == 1 {
		asset, err := c.Quote(ctx, symbol)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("day-change quote failed")
			return 0, err
		}
		return asset.ChangePercent, nil
	}

	cr, err := c.candles(ctx, symbol, windowDays)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return 0, err
		}
		var quota *QuotaError
		if errors.As(err, &quota) {
			return seriesChange(c.syntheticFallback(ctx, symbol, windowDays)), nil
		}
		c.log.Warn().Err(err).Str("symbol", symbol).Int("days", windowDays).Msg("change fetch failed")
		return 0, err
	}

	if cr.Status == "no_data" || cr.Error != nil {
		return 0, nil
	}
	if len(cr.Opens) == 0 || len(cr.Closes) == 0 {
		return 0, nil
	}

	start := cr.Opens[0]
	end := cr.Closes[len(cr.Closes)-1]
	if start == 0 {
		return 0, nil
	}
	return (end - start) / start * 100, nil
}

// syntheticFallback builds a substitute series for a quota-gated symbol,
// anchored at the current quote price when one can still be fetched.
func (c *Client) syntheticFallback(ctx context.Context, symbol string, windowDays int) portfolio.Series {
	anchor := fallbackAnchorPrice
	if asset, err := c.Quote(ctx, symbol); err == nil && asset.Price > 0 {
		anchor = asset.Price
	}
	c.log.Warn().
		Str("symbol", symbol).
		Int("days", windowDays).
		Float64("anchor", anchor).
		Msg("candle access denied, substituting synthetic series")
	return GenerateSyntheticSeries(windowDays, anchor)
}

func seriesChange(s portfolio.Series) float64 {
	if len(s) < 2 {
		return 0
	}
	start := s[0].Value
	if start == 0 {
		return 0
	}
	return (s[len(s)-1].Value - start) / start * 100
}
