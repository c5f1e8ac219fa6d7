// =============================================================================
// article.go - article extractor
// =============================================================================
//
// Extraction priority per field:
//
//	title:     JSON-LD headline -> first <h1>
//	author:    JSON-LD author (shape-classified) -> meta tags -> byline nodes
//	published: JSON-LD datePublished/dateModified -> meta tags -> <time>
//	body:      JSON-LD articleBody -> readability main-content extraction
//
// Every timestamp candidate goes through NormalizeTime. Only Published may
// end up absent; the string fields default to "".
//
// =============================================================================
package harvester

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Extractor fetches article pages and builds Article records.
type Extractor struct {
	fetcher *Fetcher
	loc     *time.Location
}

func NewExtractor(fetcher *Fetcher, loc *time.Location) *Extractor {
	return &Extractor{fetcher: fetcher, loc: loc}
}

// Extract fetches articleURL and merges the extraction strategies into one
// record. A 403 propagates ErrForbidden so the caller can skip this URL only.
func (e *Extractor) Extract(ctx context.Context, articleURL string) (*Article, error) {
	body, _, err := e.fetcher.Get(ctx, articleURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	meta := findNewsArticleLD(doc)

	art := &Article{URL: articleURL}
	art.Title = strings.TrimSpace(stringField(meta, "headline"))
	art.Content = strings.TrimSpace(stringField(meta, "articleBody"))
	art.Author = classifyAuthor(meta["author"]).String()

	if ts := stringField(meta, "datePublished"); ts != "" {
		if t, ok := NormalizeTime(ts, e.loc); ok {
			art.Published = &t
		}
	}
	if art.Published == nil {
		if ts := stringField(meta, "dateModified"); ts != "" {
			if t, ok := NormalizeTime(ts, e.loc); ok {
				art.Published = &t
			}
		}
	}

	if art.Author == "" {
		art.Author = authorFromHTML(doc)
	}
	if art.Content == "" {
		art.Content = readableBody(body, articleURL)
	}
	if art.Title == "" {
		art.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if art.Published == nil {
		if t, ok := publishedFromHTML(doc, e.loc); ok {
			art.Published = &t
		}
	}

	return art, nil
}

// -----------------------------------------------------------------------------
// JSON-LD
// -----------------------------------------------------------------------------

// findNewsArticleLD scans the embedded linked-data blocks for the first
// object typed NewsArticle. Handles a bare object, a top-level list and the
// common @graph wrapper.
func findNewsArticleLD(doc *goquery.Document) map[string]any {
	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true
		}
		if block := newsArticleIn(raw); block != nil {
			found = block
			return false
		}
		return true
	})
	return found
}

func newsArticleIn(v any) map[string]any {
	switch node := v.(type) {
	case map[string]any:
		if isNewsArticleType(node["@type"]) {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			return newsArticleIn(graph)
		}
	case []any:
		for _, item := range node {
			if block := newsArticleIn(item); block != nil {
				return block
			}
		}
	}
	return nil
}

// isNewsArticleType accepts "@type": "NewsArticle" as a string or inside a
// type list.
func isNewsArticleType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "NewsArticle"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "NewsArticle" {
				return true
			}
		}
	}
	return false
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// -----------------------------------------------------------------------------
// Author classification
// -----------------------------------------------------------------------------

type authorKind int

const (
	authorEmpty authorKind = iota
	authorSingle
	authorMultiple
)

// authorField is the shape-classified JSON-LD author value. The raw field
// shows up as a string, an object, a list of either, or garbage; resolving
// the shape once keeps the rest of the extractor free of type sniffing.
type authorField struct {
	Kind  authorKind
	Names []string
}

func (a authorField) String() string {
	switch a.Kind {
	case authorSingle:
		return a.Names[0]
	case authorMultiple:
		return strings.Join(a.Names, ", ")
	default:
		return ""
	}
}

func classifyAuthor(v any) authorField {
	switch node := v.(type) {
	case string:
		if node = strings.TrimSpace(node); node != "" {
			return authorField{Kind: authorSingle, Names: []string{node}}
		}
	case map[string]any:
		if name := authorName(node); name != "" {
			return authorField{Kind: authorSingle, Names: []string{name}}
		}
	case []any:
		var names []string
		for _, item := range node {
			single := classifyAuthor(item)
			if single.Kind == authorSingle {
				names = append(names, single.Names[0])
			}
		}
		switch len(names) {
		case 0:
		case 1:
			return authorField{Kind: authorSingle, Names: names}
		default:
			return authorField{Kind: authorMultiple, Names: names}
		}
	}
	return authorField{Kind: authorEmpty}
}

func authorName(node map[string]any) string {
	if name, ok := node["name"].(string); ok && strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name)
	}
	if id, ok := node["@id"].(string); ok {
		return strings.TrimSpace(id)
	}
	return ""
}

// -----------------------------------------------------------------------------
// HTML fallbacks
// -----------------------------------------------------------------------------

var authorMetaSelectors = []string{
	`meta[name="author"]`,
	`meta[property="article:author"]`,
	`meta[name="byl"]`,
	`meta[name="dc.creator"]`,
	`meta[name="parsely-author"]`,
}

const bylineSelector = `[itemprop="author"] [itemprop="name"], [rel="author"], .author, .byline, .by-author`

func authorFromHTML(doc *goquery.Document) string {
	for _, sel := range authorMetaSelectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); content != "" {
				return content
			}
		}
	}
	return strings.TrimSpace(doc.Find(bylineSelector).First().Text())
}

var publishedMetaSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="date"]`,
	`meta[itemprop="datePublished"]`,
	`meta[name="pubdate"]`,
	`meta[property="og:updated_time"]`,
	`time`,
}

// publishedFromHTML checks the common published-date metas and finally any
// <time> element. Each candidate value is the content attribute, then the
// datetime attribute, then the element text.
func publishedFromHTML(doc *goquery.Document, loc *time.Location) (time.Time, bool) {
	for _, sel := range publishedMetaSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		content, ok := el.Attr("content")
		if !ok {
			content, ok = el.Attr("datetime")
		}
		if !ok {
			content = el.Text()
		}
		if t, parsed := NormalizeTime(content, loc); parsed {
			return t, true
		}
	}
	return time.Time{}, false
}

// readableBody runs the readability main-content extractor over the raw
// HTML. Comments and boilerplate are excluded by the extraction heuristics;
// a page with no discernible main content yields "".
func readableBody(body []byte, articleURL string) string {
	pageURL, err := url.Parse(articleURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}
