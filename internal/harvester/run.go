// =============================================================================
// run.go - pipeline orchestrator
// =============================================================================
//
// One run: resolve listings across all sources, prefilter, extract the
// surviving candidates, apply the strict keyword/recency filter, scrape the
// short-position register, compose the merged report. Sources, articles and
// issuer identifiers are independent units of work and run under bounded
// worker pools; a failure in any unit is logged and isolated.
//
// Runs are stateless with respect to prior runs: the seen set starts empty
// every time. The recency window already bounds relevance, so durable dedup
// buys little.
//
// =============================================================================
package harvester

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"news-harvester/internal/logger"
)

// Harvester owns the pipeline components for one configuration.
type Harvester struct {
	cfg       Config
	loc       *time.Location
	resolver  *Resolver
	extractor *Extractor
	shorts    *ShortPositionScraper
	filter    *KeywordFilter
}

// New builds a Harvester from a validated configuration.
func New(cfg Config) (*Harvester, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc := cfg.Location()
	fetcher := NewFetcher()

	return &Harvester{
		cfg:       cfg,
		loc:       loc,
		resolver:  NewResolver(fetcher),
		extractor: NewExtractor(fetcher, loc),
		shorts:    NewShortPositionScraper(fetcher, cfg.ShortPositionsURL, cfg.Lang),
		filter:    NewKeywordFilter(cfg.Keywords),
	}, nil
}

// Run executes one full harvest and returns the composed report plus the
// collected records. It only errors on context cancellation; scraping
// failures degrade the result instead of aborting it.
func (h *Harvester) Run(ctx context.Context) (*RunResult, error) {
	listing := h.resolver.ResolveAll(ctx, h.cfg.Sources, h.cfg.Concurrency)
	logListingPreview(listing)

	listing, _ = h.filter.Prefilter(listing)

	articles := h.extractAll(ctx, listing)
	issuers := h.scrapeIssuers(ctx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &RunResult{
		HTML:     ComposeReport(h.cfg.ReportTitle, articles, issuers, h.loc),
		Subject:  Subject(h.cfg.ReportTitle, time.Now().In(h.loc), h.filter.Keywords()),
		Articles: articles,
		Issuers:  issuers,
		Deliver:  len(articles) > 0 || len(issuers) > 0,
	}

	logger.Log.Infof("articles collected: %d", len(result.Articles))
	logger.Log.Infof("issuer blocks processed: %d", len(result.Issuers))
	return result, nil
}

// extractAll fetches and filters candidate articles under a bounded pool.
// Results keep listing order regardless of completion order.
func (h *Harvester) extractAll(ctx context.Context, listing []ListingItem) []Article {
	slots := make([]*Article, len(listing))

	var mu sync.Mutex
	seen := map[string]bool{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Concurrency)
	for i, item := range listing {
		i, item := i, item
		g.Go(func() error {
			// Without keywords the within-run seen set stands in for
			// relevance filtering.
			if h.filter.Empty() {
				mu.Lock()
				dup := seen[item.URL]
				mu.Unlock()
				if dup {
					return nil
				}
			}

			art, err := h.extractor.Extract(gctx, item.URL)
			if err != nil {
				entry := logger.Log.WithField("url", item.URL).WithError(err)
				if errors.Is(err, ErrForbidden) {
					entry.Warn("article rejected with 403, skipping")
				} else {
					entry.Warn("article extraction failed")
				}
				return nil
			}

			if !h.filter.Empty() && !h.filter.Matches(art.Title+" "+art.Content) {
				return nil
			}
			if art.Published == nil || !IsRecent(*art.Published, h.loc, h.cfg.RecencyWindow()) {
				return nil
			}

			art.Source = item.Source
			mu.Lock()
			seen[item.URL] = true
			mu.Unlock()
			slots[i] = art

			logger.Log.WithField("source", art.Source).Infof("collected: %.80s", art.Title)
			return nil
		})
	}
	_ = g.Wait()

	articles := make([]Article, 0, len(slots))
	for _, a := range slots {
		if a != nil {
			articles = append(articles, *a)
		}
	}
	return articles
}

// scrapeIssuers fetches the short-position blocks for every configured NIF
// concurrently, preserving configured order.
func (h *Harvester) scrapeIssuers(ctx context.Context) []IssuerBlock {
	if len(h.cfg.NIFs) == 0 {
		return nil
	}

	slots := make([]*IssuerBlock, len(h.cfg.NIFs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Concurrency)
	for i, nif := range h.cfg.NIFs {
		i, nif := i, nif
		g.Go(func() error {
			slots[i] = h.shorts.Fetch(gctx, nif)
			return nil
		})
	}
	_ = g.Wait()

	blocks := make([]IssuerBlock, 0, len(slots))
	for _, b := range slots {
		if b != nil {
			blocks = append(blocks, *b)
		}
	}
	return blocks
}

// logListingPreview logs the first titles of the combined listing, a cheap
// sanity check when a source layout changes.
func logListingPreview(listing []ListingItem) {
	const previewCount = 15
	for i, it := range listing {
		if i >= previewCount {
			break
		}
		logger.Log.Debugf("listing[%d] [%s] %s", i, it.Source, it.Title)
	}
}
