// Package steamweb provides access to the public Steam catalog and store
// endpoints: the incremental app-list scan, the rate-limited bulk price
// lookup, and per-app detail fetches.
package steamweb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dealhound/steamdeals/internal/logger"
)

const fullDiscount = 100

// ClientConfig tunes retry and pacing behavior.
type ClientConfig struct {
	MaxRetries     int
	RetryDelayBase time.Duration
	BatchSize      int
	BatchDelay     time.Duration
}

// Client provides access to the public Steam web APIs.
type Client struct {
	webAPIURL   string
	storeAPIURL string
	apiKey      string
	httpClient  *http.Client

	maxRetries     int
	retryDelayBase time.Duration
	batchSize      int
	batchDelay     time.Duration
}

// NewClient creates a new Steam web API client.
func NewClient(apiKey, webAPIURL, storeAPIURL string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 1500 * time.Millisecond
	}
	return &Client{
		webAPIURL:   strings.TrimRight(webAPIURL, "/"),
		storeAPIURL: strings.TrimRight(storeAPIURL, "/"),
		apiKey:      apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
		batchSize:      cfg.BatchSize,
		batchDelay:     cfg.BatchDelay,
	}
}

// ModifiedAppIDs returns the ids of catalog apps whose commercial terms
// changed since the given cutoff. A non-success HTTP status is treated as
// "no data" and returns a nil slice; a successful scan with nothing changed
// returns an empty one. Entries whose price-change counter is zero were
// returned by the API but carry no pricing change and are dropped.
func (c *Client) ModifiedAppIDs(ctx context.Context, since time.Time) ([]uint32, error) {
	u, err := url.Parse(c.webAPIURL + "/IStoreService/GetAppList/v1/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("if_modified_since", strconv.FormatInt(since.Unix(), 10))
	q.Set("include_games", "1")
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch app list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("App list endpoint returned status %d, treating as no data", resp.StatusCode)
		return nil, nil
	}

	var payload appListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode app list: %w", err)
	}

	ids := make([]uint32, 0, len(payload.Response.Apps))
	for _, app := range payload.Response.Apps {
		if app.PriceChangeNumber <= 0 {
			continue
		}
		ids = append(ids, uint32(app.AppID))
	}
	return ids, nil
}

// FilterFreeApps performs paced bulk price lookups over ids and returns the
// subset currently selling at a 100% discount, mapped to that discount. The
// pacing delay runs before every chunk including the first and honors ctx.
func (c *Client) FilterFreeApps(ctx context.Context, ids []uint32) (map[uint32]int, error) {
	filtered := make(map[uint32]int)

	for start := 0; start < len(ids); start += c.batchSize {
		if err := sleepCtx(ctx, c.batchDelay); err != nil {
			return nil, err
		}

		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		logger.Debug("Fetching price overview chunk: start=%d size=%d", start, len(chunk))

		entries, err := c.fetchPriceChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}

		for key, entry := range entries {
			if !entry.Success {
				continue
			}
			if entry.Data == nil || entry.Data.Object == nil || entry.Data.Object.PriceOverview == nil {
				continue
			}
			overview := entry.Data.Object.PriceOverview
			if overview.DiscountPercent != fullDiscount {
				continue
			}
			id, err := strconv.ParseUint(key, 10, 32)
			if err != nil {
				logger.Warn("Skipping non-numeric app id %q in price response", key)
				continue
			}
			filtered[uint32(id)] = int(overview.DiscountPercent)
		}
	}

	return filtered, nil
}

func (c *Client) fetchPriceChunk(ctx context.Context, chunk []uint32) (map[string]priceEntry, error) {
	joined := make([]string, len(chunk))
	for i, id := range chunk {
		joined[i] = strconv.FormatUint(uint64(id), 10)
	}

	u, err := url.Parse(c.storeAPIURL + "/api/appdetails")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("filters", "price_overview")
	q.Set("appids", strings.Join(joined, ","))
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price overviews: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price overview endpoint returned status %d", resp.StatusCode)
	}

	var entries map[string]priceEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode price overviews: %w", err)
	}
	return entries, nil
}

// Details fetches the full detail payload for one app. It returns (nil, nil)
// when the envelope reports failure or cannot be decoded, so the caller can
// skip the id without special-casing.
func (c *Client) Details(ctx context.Context, appID uint32) (*AppDetail, error) {
	u, err := url.Parse(c.storeAPIURL + "/api/appdetails")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("appids", strconv.FormatUint(uint64(appID), 10))
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch app details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("Detail endpoint returned status %d for app %d", resp.StatusCode, appID)
		return nil, nil
	}

	var envelopes map[string]detailsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
		return nil, fmt.Errorf("failed to decode detail envelope: %w", err)
	}

	envelope, ok := envelopes[strconv.FormatUint(uint64(appID), 10)]
	if !ok || !envelope.Success || len(envelope.Data) == 0 {
		return nil, nil
	}

	var core appDetailCore
	if err := json.Unmarshal(envelope.Data, &core); err != nil {
		logger.Warn("Detail payload for app %d is malformed, treating as absent: %v", appID, err)
		return nil, nil
	}

	detail := &AppDetail{
		AppID:       appID,
		Type:        core.Type,
		Name:        core.Name,
		HeaderImage: core.HeaderImage,
	}
	for _, pkg := range core.Packages {
		detail.Packages = append(detail.Packages, uint32(pkg))
	}

	// Optional fields decode best-effort; a bad shape here never discards
	// the entry.
	var extra appDetailExtra
	if err := json.Unmarshal(envelope.Data, &extra); err != nil {
		logger.Debug("Optional detail fields for app %d did not decode: %v", appID, err)
		return detail, nil
	}
	for _, g := range extra.Genres {
		detail.Genres = append(detail.Genres, Genre{ID: g.ID.Int(), Description: g.Description})
	}
	for _, grp := range extra.PackageGroups {
		group := PackageGroup{
			Name:                    grp.Name,
			Title:                   grp.Title,
			IsRecurringSubscription: grp.IsRecurringSubscription.Bool(),
		}
		for _, sub := range grp.Subs {
			group.Subs = append(group.Subs, PackageSub{
				PackageID:                uint32(sub.PackageID),
				CanGetFreeLicense:        sub.CanGetFreeLicense.Int(),
				IsFreeLicense:            sub.IsFreeLicense,
				PriceInCentsWithDiscount: sub.PriceInCentsWithDiscount,
			})
		}
		detail.Groups = append(detail.Groups, group)
	}
	if extra.Platforms != nil {
		detail.Windows = extra.Platforms.Windows
		detail.Mac = extra.Platforms.Mac
		detail.Linux = extra.Platforms.Linux
	}
	return detail, nil
}

// doRequest performs an HTTP GET with retry on transport errors and 5xx.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if err := sleepCtx(ctx, time.Duration(i+1)*c.retryDelayBase); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			if err := sleepCtx(ctx, time.Duration(i+1)*c.retryDelayBase); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
