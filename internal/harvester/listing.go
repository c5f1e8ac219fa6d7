// =============================================================================
// listing.go - listing resolver
// =============================================================================
//
// Resolves one source's listing page into candidate article links using a
// three-tier cascade: syndication feed, structured HTML, raw regex scan.
// A listing that yields nothing is retried once against the source homepage.
//
// =============================================================================
package harvester

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"news-harvester/internal/logger"
)

// regexTierThreshold: the regex scan also runs whenever the structured tiers
// produced fewer items than this, to backfill sparse listings.
const regexTierThreshold = 5

var (
	reHTMLHref = regexp.MustCompile(`href="([^"]+?\.html)"`)

	// Path segments that are never articles.
	nonArticleSegments = []string{"/album/", "/video/", "/fotogaleria/"}
)

// listingPage is the input shared by all cascade tiers.
type listingPage struct {
	url          string
	domainPrefix string
	body         []byte
	max          int
}

// listingStrategy is one cascade tier. It returns the items it could
// discover; an empty result hands control to the next tier.
type listingStrategy func(p *listingPage) []ListingItem

// Resolver turns configured sources into a deduplicated candidate list.
type Resolver struct {
	fetcher *Fetcher
}

func NewResolver(fetcher *Fetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve runs the cascade for one source. A zero-item listing triggers one
// retry against the homepage when that differs from the listing URL. A 403
// on the listing skips the source entirely (nil, nil).
func (r *Resolver) Resolve(ctx context.Context, src Source) ([]ListingItem, error) {
	items, err := r.resolvePage(ctx, src.Listing, src.DomainPrefix, src.MaxToFetch)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			logger.Log.WithField("source", src.Name).Warn("listing rejected with 403, skipping source")
			return nil, nil
		}
		return nil, err
	}

	if len(items) == 0 && src.URL != src.Listing {
		logger.Log.WithField("source", src.Name).Info("empty listing, retrying against homepage")
		items, err = r.resolvePage(ctx, src.URL, src.DomainPrefix, src.MaxToFetch)
		if err != nil {
			if errors.Is(err, ErrForbidden) {
				logger.Log.WithField("source", src.Name).Warn("homepage rejected with 403, skipping source")
				return nil, nil
			}
			return nil, err
		}
	}
	return items, nil
}

// resolvePage fetches one page and runs the cascade over it.
func (r *Resolver) resolvePage(ctx context.Context, pageURL, domainPrefix string, max int) ([]ListingItem, error) {
	body, _, err := r.fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	page := &listingPage{url: pageURL, domainPrefix: domainPrefix, body: body, max: max}

	var items []ListingItem
	for _, tier := range []listingStrategy{itemsFromFeed, itemsFromHTML} {
		items = tier(page)
		if len(items) > 0 {
			break
		}
	}
	if len(items) < regexTierThreshold {
		items = append(items, itemsFromRegex(page)...)
	}

	return dedupeItems(items, max), nil
}

// ResolveAll resolves every configured source concurrently (bounded by
// workers), tags items with their source name and merges in configured
// source order with global URL dedup. Per-source failures are logged and
// isolated; they never abort sibling sources.
func (r *Resolver) ResolveAll(ctx context.Context, sources []Source, workers int) []ListingItem {
	perSource := make([][]ListingItem, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			items, err := r.Resolve(gctx, src)
			if err != nil {
				logger.Log.WithField("source", src.Name).WithError(err).Error("source resolution failed")
				return nil
			}
			for j := range items {
				items[j].Source = src.Name
			}
			logger.Log.WithField("source", src.Name).Infof("links found: %d", len(items))
			perSource[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var all []ListingItem
	for _, items := range perSource {
		all = append(all, items...)
	}
	merged := dedupeItems(all, 0)
	logger.Log.Infof("combined listing without duplicates: %d", len(merged))
	return merged
}

// itemsFromFeed handles RSS and Atom listings. gofeed normalizes both shapes
// (item/link/title/pubDate and entry/link[href]/title/updated) into Items.
func itemsFromFeed(p *listingPage) []ListingItem {
	if !looksLikeFeed(p.body) {
		return nil
	}
	feed, err := gofeed.NewParser().ParseString(string(p.body))
	if err != nil {
		return nil
	}

	out := make([]ListingItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if len(out) >= p.max {
			break
		}
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}
		if !strings.HasPrefix(link, "http") {
			link = resolveURL(p.url, link)
			if link == "" {
				continue
			}
		}
		hint := it.Published
		if hint == "" {
			hint = it.Updated
		}
		out = append(out, ListingItem{
			URL:      link,
			Title:    strings.TrimSpace(it.Title),
			TimeHint: strings.TrimSpace(hint),
		})
	}
	return out
}

// looksLikeFeed sniffs the document root for a syndication marker.
func looksLikeFeed(body []byte) bool {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	s := strings.ToLower(string(head))
	return strings.Contains(s, "<rss") || strings.Contains(s, "<feed")
}

// itemsFromHTML selects anchors with article-looking URLs inside article or
// heading containers, and picks up a nearby time element as the hint.
func itemsFromHTML(p *listingPage) []ListingItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(p.body)))
	if err != nil {
		return nil
	}

	anchors := doc.Find(`article a[href$='.html']`)
	if anchors.Length() == 0 {
		anchors = doc.Find(`h2 a[href$='.html'], h3 a[href$='.html']`)
	}

	var out []ListingItem
	anchors.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(out) >= p.max {
			return false
		}
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return true
		}
		abs := resolveURL(p.url, href)
		if abs == "" || !strings.HasPrefix(abs, p.domainPrefix) {
			return true
		}

		hint := ""
		parent := a.Closest("article, li, div")
		if parent.Length() > 0 {
			timeEl := parent.Find("time, .ue-c-article__published-date, .mod-date").First()
			hint = strings.TrimSpace(timeEl.Text())
		}

		out = append(out, ListingItem{
			URL:      abs,
			Title:    strings.TrimSpace(a.Text()),
			TimeHint: hint,
		})
		return true
	})
	return out
}

// itemsFromRegex scans the raw HTML for .html hrefs. Last resort for pages
// whose markup defeats the structured tiers.
func itemsFromRegex(p *listingPage) []ListingItem {
	seen := map[string]bool{}
	var out []ListingItem
	for _, m := range reHTMLHref.FindAllStringSubmatch(string(p.body), -1) {
		if len(out) >= p.max {
			break
		}
		abs := resolveURL(p.url, m[1])
		if abs == "" || seen[abs] || !strings.HasPrefix(abs, p.domainPrefix) {
			continue
		}
		if hasNonArticleSegment(abs) {
			continue
		}
		seen[abs] = true
		out = append(out, ListingItem{URL: abs})
	}
	return out
}

func hasNonArticleSegment(u string) bool {
	for _, seg := range nonArticleSegments {
		if strings.Contains(u, seg) {
			return true
		}
	}
	return false
}

// dedupeItems keeps the first occurrence of each URL, preserving order.
// A max of 0 means unbounded.
func dedupeItems(in []ListingItem, max int) []ListingItem {
	seen := map[string]bool{}
	out := make([]ListingItem, 0, len(in))
	for _, it := range in {
		if it.URL == "" || seen[it.URL] {
			continue
		}
		seen[it.URL] = true
		out = append(out, it)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

func resolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
