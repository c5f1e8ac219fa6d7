// =============================================================================
// types.go - data structures shared across the harvester
// =============================================================================
package harvester

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingItem is one candidate article discovered on a listing page.
// TimeHint carries whatever raw timestamp text the listing exposed; it is
// never parsed at this stage.
type ListingItem struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	TimeHint string `json:"timeHint,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Article is a fully extracted article. Title, Author and Content default to
// the empty string when no extraction strategy produced a value; Published is
// the only field that may legitimately be absent (nil).
type Article struct {
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Author    string     `json:"author,omitempty"`
	Published *time.Time `json:"published,omitempty"`
	Content   string     `json:"content,omitempty"`
	Source    string     `json:"source,omitempty"`
}

// ShortPositionRow is one disclosed net short position.
// Date is ISO-8601 when the source cell matched dd/mm/yyyy, otherwise the
// raw cell text is kept as-is.
type ShortPositionRow struct {
	Holder      string          `json:"holder"`
	NetShortPct decimal.Decimal `json:"netShortPct"`
	Date        string          `json:"date"`
}

// IssuerBlock groups the short positions disclosed for one issuer.
// An empty Rows slice is a valid state: the regulator publishes no table
// when no position reaches the disclosure threshold.
type IssuerBlock struct {
	NIF    string             `json:"nif"`
	Issuer string             `json:"issuer"`
	URL    string             `json:"url"`
	Rows   []ShortPositionRow `json:"rows"`
}

// RunResult is what one harvester run hands back to the entrypoint.
// Deliver is false when the run found nothing worth sending, which is a
// successful outcome, not an error.
type RunResult struct {
	HTML     string
	Subject  string
	Articles []Article
	Issuers  []IssuerBlock
	Deliver  bool
}
