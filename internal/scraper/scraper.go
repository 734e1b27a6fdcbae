// Package scraper runs the incremental free-deal discovery pipeline:
// scan the catalog for price changes since the watermark, narrow the
// candidates to fully discounted apps with paced bulk lookups, build
// provisional deals from per-app metadata, and enrich the survivors with
// authoritative validity windows from the session-based product info service.
package scraper

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dealhound/steamdeals/internal/logger"
	"github.com/dealhound/steamdeals/internal/models"
	"github.com/dealhound/steamdeals/internal/session"
	"github.com/dealhound/steamdeals/internal/steamweb"
)

// Watermark modes. Rolling recomputes the cutoff from the lookback window on
// every run; persist advances it to the start of the last fully successful
// run and survives restarts through the watermark store.
const (
	WatermarkRolling = "rolling"
	WatermarkPersist = "persist"
)

const (
	watermarkSource = "steam"
	storeAppLink    = "https://store.steampowered.com/app/%d"
)

// StoreClient is the slice of the public web API the pipeline consumes.
type StoreClient interface {
	ModifiedAppIDs(ctx context.Context, since time.Time) ([]uint32, error)
	FilterFreeApps(ctx context.Context, ids []uint32) (map[uint32]int, error)
	Details(ctx context.Context, appID uint32) (*steamweb.AppDetail, error)
}

// ProductInfoSession is the slice of the session manager the enricher
// consumes.
type ProductInfoSession interface {
	EnsureReady(ctx context.Context) error
	FetchProductInfo(ctx context.Context, appID, packageID uint32) ([]session.ProductInfo, error)
}

// WatermarkStore persists the scan watermark across restarts.
type WatermarkStore interface {
	LoadWatermark(source string) (time.Time, error)
	SaveWatermark(source string, scannedAt time.Time) error
}

// Config tunes pipeline behavior.
type Config struct {
	// Lookback bounds the first scan (and every scan in rolling mode).
	Lookback time.Duration
	// EnrichDelay is the pacing delay before every product info lookup.
	EnrichDelay time.Duration
	// WatermarkMode is WatermarkRolling or WatermarkPersist.
	WatermarkMode string
	// RequireExpiry discards deals whose validity window has no end time.
	// When false such deals are emitted without one.
	RequireExpiry bool
}

// DefaultConfig returns the stock pipeline tuning.
func DefaultConfig() Config {
	return Config{
		Lookback:      24 * time.Hour,
		EnrichDelay:   2 * time.Second,
		WatermarkMode: WatermarkRolling,
		RequireExpiry: true,
	}
}

// Scraper is the pipeline orchestrator. It is not safe for concurrent runs;
// the caller serializes invocations.
type Scraper struct {
	store  StoreClient
	sess   ProductInfoSession
	marks  WatermarkStore
	config Config

	lastScan time.Time
}

// New creates a scraper. sess may be nil, in which case enrichment is
// skipped and the expiry policy decides the fate of provisional deals.
// marks may be nil; persist mode then only advances the in-memory watermark.
func New(store StoreClient, sess ProductInfoSession, marks WatermarkStore, config Config) *Scraper {
	if config.Lookback <= 0 {
		config.Lookback = 24 * time.Hour
	}
	if config.EnrichDelay <= 0 {
		config.EnrichDelay = 2 * time.Second
	}
	if config.WatermarkMode == "" {
		config.WatermarkMode = WatermarkRolling
	}
	s := &Scraper{store: store, sess: sess, marks: marks, config: config}

	if config.WatermarkMode == WatermarkPersist && marks != nil {
		stored, err := marks.LoadWatermark(watermarkSource)
		if err != nil {
			logger.Warn("Failed to load persisted watermark: %v", err)
		} else if !stored.IsZero() {
			s.lastScan = stored
			logger.Info("Resuming from persisted watermark %v", stored)
		}
	}
	return s
}

// Run executes one pipeline invocation and returns the finalized deals.
// A failed catalog scan yields an empty list, not an error; deals finalized
// before a cancellation are returned alongside the context error.
func (s *Scraper) Run(ctx context.Context) ([]models.Deal, error) {
	runID := uuid.New().String()
	scanStart := time.Now()
	since := s.watermark(scanStart)

	logger.Info("[run %s] Scanning catalog changes since %v", runID, since)
	candidates, err := s.store.ModifiedAppIDs(ctx, since)
	if err != nil {
		logger.Warn("[run %s] Catalog scan failed, yielding no deals: %v", runID, err)
		return []models.Deal{}, nil
	}
	if candidates == nil {
		// Scan returned no data at all (as opposed to no changes); the
		// watermark must not move past an unobserved window.
		logger.Warn("[run %s] Catalog scan returned no data, yielding no deals", runID)
		return []models.Deal{}, nil
	}
	logger.Info("[run %s] %d candidates with changed pricing", runID, len(candidates))

	filtered, err := s.store.FilterFreeApps(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to filter candidates: %w", err)
	}
	logger.Info("[run %s] %d candidates at full discount", runID, len(filtered))

	provisional, keys, err := s.buildDeals(ctx, filtered)
	if err != nil {
		return nil, err
	}
	logger.Info("[run %s] Built %d provisional deals (%d enrichment keys)", runID, len(provisional), len(keys))

	deals, err := s.enrich(ctx, scanStart, provisional, keys)
	if err != nil {
		return deals, err
	}

	s.advance(scanStart)
	logger.Info("[run %s] Finalized %d deals", runID, len(deals))
	return deals, nil
}

// buildDeals fetches full details for each filtered id sequentially and
// assembles provisional deals plus the enrichment keys for every package the
// app declares. Duplicate package ids across apps are legal and kept.
func (s *Scraper) buildDeals(ctx context.Context, filtered map[uint32]int) (map[uint32]*models.Deal, []models.EnrichmentKey, error) {
	ids := make([]uint32, 0, len(filtered))
	for id := range filtered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	idToDeal := make(map[uint32]*models.Deal)
	var keys []models.EnrichmentKey

	for _, id := range ids {
		detail, err := s.store.Details(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch details for app %d: %w", id, err)
		}
		if detail == nil {
			logger.Debug("Detail envelope for app %d reported failure, skipping", id)
			continue
		}

		idToDeal[id] = &models.Deal{
			AppID:    id,
			Title:    detail.Name,
			Image:    detail.HeaderImage,
			Link:     fmt.Sprintf(storeAppLink, id),
			Discount: filtered[id],
		}
		for _, pkg := range detail.Packages {
			keys = append(keys, models.EnrichmentKey{AppID: id, PackageID: pkg})
		}
	}
	return idToDeal, keys, nil
}

// enrich resolves validity windows key by key. The first key that yields a
// usable end time finalizes its owner; remaining keys for that owner are
// skipped so at most one deal per app is emitted.
func (s *Scraper) enrich(ctx context.Context, scanTime time.Time, idToDeal map[uint32]*models.Deal, keys []models.EnrichmentKey) ([]models.Deal, error) {
	deals := []models.Deal{}

	if len(keys) == 0 {
		return deals, nil
	}
	if s.sess == nil {
		logger.Warn("No product info session configured, skipping enrichment of %d keys", len(keys))
		if !s.config.RequireExpiry {
			for _, deal := range sortedDeals(idToDeal) {
				if err := deal.Validate(scanTime, false); err != nil {
					logger.Warn("Dropping invalid deal for app %d: %v", deal.AppID, err)
					continue
				}
				deals = append(deals, *deal)
			}
		}
		return deals, nil
	}

	if err := s.sess.EnsureReady(ctx); err != nil {
		return deals, fmt.Errorf("failed to establish product info session: %w", err)
	}

	finalized := make(map[uint32]bool)
	for _, key := range keys {
		if finalized[key.AppID] {
			continue
		}
		deal, ok := idToDeal[key.AppID]
		if !ok {
			continue
		}

		if err := sleepCtx(ctx, s.config.EnrichDelay); err != nil {
			return deals, err
		}

		results, err := s.sess.FetchProductInfo(ctx, key.AppID, key.PackageID)
		if err != nil {
			logger.Warn("Product info lookup failed for app %d package %d: %v", key.AppID, key.PackageID, err)
			continue
		}

		for _, result := range results {
			pkg, ok := result.Packages[key.PackageID]
			if !ok {
				continue
			}

			deal.Start = parseEpoch(pkg.Extended["starttime"])
			end := parseEpoch(pkg.Extended["expirytime"])
			if end.IsZero() && s.config.RequireExpiry {
				logger.Debug("Package %d for app %d carries no expiry, skipping key", key.PackageID, key.AppID)
				break
			}
			deal.End = end

			if err := deal.Validate(scanTime, s.config.RequireExpiry); err != nil {
				logger.Warn("Dropping invalid deal for app %d: %v", key.AppID, err)
				break
			}
			deals = append(deals, *deal)
			finalized[key.AppID] = true
			break
		}
	}
	return deals, nil
}

func (s *Scraper) watermark(now time.Time) time.Time {
	if s.config.WatermarkMode == WatermarkPersist && !s.lastScan.IsZero() {
		return s.lastScan
	}
	return now.Add(-s.config.Lookback)
}

// advance moves the watermark to the start of the run that just completed.
// Only fully successful runs get here.
func (s *Scraper) advance(scanStart time.Time) {
	if s.config.WatermarkMode != WatermarkPersist {
		return
	}
	s.lastScan = scanStart
	if s.marks != nil {
		if err := s.marks.SaveWatermark(watermarkSource, scanStart); err != nil {
			logger.Warn("Failed to persist watermark: %v", err)
		}
	}
}

func sortedDeals(idToDeal map[uint32]*models.Deal) []*models.Deal {
	ids := make([]uint32, 0, len(idToDeal))
	for id := range idToDeal {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*models.Deal, 0, len(ids))
	for _, id := range ids {
		out = append(out, idToDeal[id])
	}
	return out
}

func parseEpoch(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Debug("Ignoring malformed timestamp %q", raw)
		return time.Time{}
	}
	return time.Unix(secs, 0)
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
