// =============================================================================
// shorts.go - CNMV short-position scraper
// =============================================================================
//
// Scrapes the regulator's disclosure page for one issuer identifier. The
// page carries no stable CSS identifier for the data table, so the target
// table is located by a text-content predicate over every table on the page,
// and the issuer name by the first plausible heading. Both searches are
// best-effort by design.
//
// =============================================================================
package harvester

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"news-harvester/internal/logger"
)

// DefaultShortPositionsURL is the CNMV short-position register endpoint.
const DefaultShortPositionsURL = "https://www.cnmv.es/Portal/Consultas/ee/posicionescortas"

// shortTableMarkers identify the disclosure table by its header text.
// The page is served in Spanish or English depending on the lang parameter.
var shortTableMarkers = []string{
	"Outstanding net short positions",
	"Notificaciones vivas iguales o superiores al 0,5%",
}

// pageTitleMarkers exclude the page's own title from issuer-name candidates.
var pageTitleMarkers = []string{"posiciones cortas", "short positions"}

// ShortPositionScraper queries the disclosure register per issuer NIF.
type ShortPositionScraper struct {
	fetcher *Fetcher
	baseURL string
	lang    string
}

func NewShortPositionScraper(fetcher *Fetcher, baseURL, lang string) *ShortPositionScraper {
	if baseURL == "" {
		baseURL = DefaultShortPositionsURL
	}
	return &ShortPositionScraper{fetcher: fetcher, baseURL: baseURL, lang: lang}
}

// Fetch scrapes the disclosure page for one NIF. A fetch failure returns
// nil (logged); a page without the disclosure table returns a block with
// empty Rows, which is a valid "no positions" state.
func (s *ShortPositionScraper) Fetch(ctx context.Context, nif string) *IssuerBlock {
	pageURL := fmt.Sprintf("%s?nif=%s", s.baseURL, nif)
	if s.lang != "" {
		pageURL += "&lang=" + s.lang
	}

	body, _, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		logger.Log.WithField("nif", nif).WithError(err).Warn("short-position page fetch failed")
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		logger.Log.WithField("nif", nif).WithError(err).Warn("short-position page parse failed")
		return nil
	}

	block := &IssuerBlock{NIF: nif, URL: pageURL, Rows: []ShortPositionRow{}}

	table := findShortPositionTable(doc)
	if table == nil {
		logger.Log.WithField("nif", nif).Info("no short-position table found")
		return block
	}

	block.Issuer = issuerName(doc)
	block.Rows = parseShortPositionRows(table)
	return block
}

// findShortPositionTable returns the first table whose flattened text
// contains a known header marker, or nil.
func findShortPositionTable(doc *goquery.Document) *goquery.Selection {
	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		text := flattenText(t)
		for _, marker := range shortTableMarkers {
			if strings.Contains(text, marker) {
				table = t
				return false
			}
		}
		return true
	})
	return table
}

// issuerName picks the first non-empty heading or strong text that is not
// the page title itself. Best effort: "" when nothing qualifies.
func issuerName(doc *goquery.Document) string {
	name := ""
	doc.Find("h1, h2, strong").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}
		low := strings.ToLower(text)
		for _, marker := range pageTitleMarkers {
			if strings.Contains(low, marker) {
				return true
			}
		}
		name = text
		return false
	})
	return name
}

// parseShortPositionRows walks the table body, skipping the header row.
// A row needs at least holder, percentage and date cells; a percentage that
// does not parse drops the whole row.
func parseShortPositionRows(table *goquery.Selection) []ShortPositionRow {
	rows := []ShortPositionRow{}
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return // header
		}
		tds := tr.Find("td")
		if tds.Length() < 3 {
			return
		}

		holder := flattenText(tds.Eq(0))
		pctRaw := flattenText(tds.Eq(1))
		dateRaw := flattenText(tds.Eq(2))

		pct, err := decimal.NewFromString(strings.ReplaceAll(pctRaw, ",", "."))
		if err != nil {
			return
		}

		rows = append(rows, ShortPositionRow{
			Holder:      holder,
			NetShortPct: pct,
			Date:        isoDate(dateRaw),
		})
	})
	return rows
}

// isoDate converts dd/mm/yyyy to ISO-8601; anything else passes through raw.
func isoDate(raw string) string {
	t, err := time.Parse("02/01/2006", raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02")
}

// flattenText joins an element's text nodes with single spaces, the way the
// table cells render on screen.
func flattenText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
