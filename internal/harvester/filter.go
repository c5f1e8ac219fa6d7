// =============================================================================
// filter.go - relevance filtering
// =============================================================================
//
// Two stages, because fetching full article bodies is the expensive part:
// a cheap adaptive prefilter over listing metadata runs first, and a strict
// keyword check runs over the extracted body afterwards. The prefilter is
// deliberately discarded when it would cut too deep, since listing titles
// are often incomplete and a too-aggressive prefilter produces false
// negatives.
//
// =============================================================================
package harvester

import (
	"strings"

	"news-harvester/internal/logger"
)

// Prefilter activation thresholds: the filtered listing must keep at least
// max(prefilterMinKeep, prefilterMinShare of the input) items.
const (
	prefilterMinKeep  = 50
	prefilterMinShare = 0.2
)

// KeywordFilter holds the configured keywords, pre-normalized.
type KeywordFilter struct {
	keywords []string
	display  []string
}

// NewKeywordFilter normalizes the keyword list; empty entries are dropped.
func NewKeywordFilter(keywords []string) *KeywordFilter {
	f := &KeywordFilter{}
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		f.keywords = append(f.keywords, NormalizeText(kw))
		f.display = append(f.display, strings.TrimSpace(kw))
	}
	return f
}

// Empty reports whether no keywords are configured.
func (f *KeywordFilter) Empty() bool {
	return len(f.keywords) == 0
}

// Keywords returns the keywords as configured, for display in the subject.
func (f *KeywordFilter) Keywords() []string {
	return f.display
}

// Matches reports whether any keyword occurs in any of the given texts
// after normalization. An empty filter matches nothing.
func (f *KeywordFilter) Matches(texts ...string) bool {
	for _, text := range texts {
		normalized := NormalizeText(text)
		for _, kw := range f.keywords {
			if strings.Contains(normalized, kw) {
				return true
			}
		}
	}
	return false
}

// Prefilter applies the keyword filter to listing titles and URLs. It
// returns the (possibly unchanged) listing and whether the filter was
// actually applied. The filter is discarded when it would retain fewer than
// max(50, 20% of the input) items.
func (f *KeywordFilter) Prefilter(items []ListingItem) ([]ListingItem, bool) {
	if f.Empty() {
		return items, false
	}

	kept := make([]ListingItem, 0, len(items))
	for _, it := range items {
		if f.Matches(it.Title, it.URL) {
			kept = append(kept, it)
		}
	}

	minKeep := prefilterMinKeep
	if rel := int(float64(len(items)) * prefilterMinShare); rel > minKeep {
		minKeep = rel
	}
	if len(kept) < minKeep {
		logger.Log.Infof("prefilter discarded (%d candidates of %d, need %d); extracting full listing",
			len(kept), len(items), minKeep)
		return items, false
	}

	logger.Log.Infof("prefilter applied: %d of %d items remain", len(kept), len(items))
	return kept, true
}
