// Package ecb fetches euro area AAA government yield curves from the ECB
// Data Portal API (SDMX-JSON).
package ecb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/curvelab/yieldstress/internal/curve"
	"github.com/curvelab/yieldstress/pkg/httputil"
	"github.com/curvelab/yieldstress/pkg/logger"
)

// Series key components for the yield-curve dataflow: daily, euro area
// changing composition, AAA-rated central government bonds, spot rates.
const (
	dataflow     = "YC"
	seriesPrefix = "B.U2.EUR.4F.G_N_C.SV_C_YM"
	dateLayout   = "2006-01-02"
)

// Client fetches yield-curve data from the ECB Data Portal.
// All ECB API calls go through this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a new ECB client. ratePerSecond throttles requests
// locally; keep it low, the public API is shared infrastructure.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string, ratePerSecond float64) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

// FetchHistory fetches the yield-curve history for [from, to]. Days on which
// the ECB publishes an incomplete tenor set are dropped; the returned history
// satisfies the engine's invariants. An empty history is a valid result for
// a range with no publications (weekends, holidays, future dates).
func (c *Client) FetchHistory(ctx context.Context, from, to time.Time) (*curve.History, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	seriesKey := fmt.Sprintf("%s.%s", seriesPrefix, strings.Join(curve.Maturities, "+"))

	params := url.Values{}
	params.Set("startPeriod", from.Format(dateLayout))
	params.Set("endPeriod", to.Format(dateLayout))
	params.Set("format", "jsondata")

	fullURL := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, dataflow, seriesKey, params.Encode())

	c.logger.WithFields(map[string]interface{}{
		"from": from.Format(dateLayout),
		"to":   to.Format(dateLayout),
	}).Info("Fetching yield curve from ECB")

	var resp sdmxResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		return nil, fmt.Errorf("fetch ECB data: %w", err)
	}

	history, err := parseResponse(&resp)
	if err != nil {
		return nil, fmt.Errorf("parse ECB response: %w", err)
	}

	c.logger.WithField("observations", history.Len()).Info("Fetched yield curve history")
	return history, nil
}

// LatestAvailableDate probes the last few calendar days for the most recent
// published curve. Returns the zero time when nothing was published.
func (c *Client) LatestAvailableDate(ctx context.Context) (time.Time, error) {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -5)

	history, err := c.FetchHistory(ctx, from, to)
	if err != nil {
		return time.Time{}, err
	}
	if history.Len() == 0 {
		return time.Time{}, nil
	}

	latest, _, err := history.Latest()
	return latest, err
}
