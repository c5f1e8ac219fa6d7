// =============================================================================
// fetch.go - HTTP fetch layer
// =============================================================================
//
// Single entry point for every outbound GET. Applies a browser-like header
// set, a short randomized politeness delay, and bounded retry with
// exponential backoff on transient statuses. HTTP 403 is surfaced as a
// distinct permanent failure so callers can skip one source or article
// without aborting the run.
//
// =============================================================================
package harvester

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	fetchTimeout  = 20 * time.Second
	fetchRetries  = 4
	fetchBackoff  = 600 * time.Millisecond
	fetchMaxWait  = 10 * time.Second
	jitterFloorMs = 250
	jitterSpanMs  = 500
)

// ErrForbidden marks a permanent HTTP 403 rejection. It is never retried;
// callers branch on it with errors.Is to skip the offending unit of work.
var ErrForbidden = errors.New("permanently rejected (HTTP 403)")

// FetchError is a non-2xx response that survived the retry policy.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Fetcher performs all outbound GET requests for the harvester.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher builds the shared HTTP client. Retries cover network errors and
// the classic transient statuses; everything else fails on the first attempt.
func NewFetcher() *Fetcher {
	client := resty.New().
		SetTimeout(fetchTimeout).
		SetRetryCount(fetchRetries).
		SetRetryWaitTime(fetchBackoff).
		SetRetryMaxWaitTime(fetchMaxWait).
		SetHeaders(map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) " +
				"Chrome/129.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "es-ES,es;q=0.9,en;q=0.8",
			"Referer":         "https://www.google.com/",
			"Connection":      "keep-alive",
		}).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return retryableStatuses[r.StatusCode()]
		})
	return &Fetcher{client: client}
}

// Get fetches url and returns the response body and status code.
// A 403 returns ErrForbidden (wrapped); other non-2xx statuses return a
// *FetchError once the retry budget is spent.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, int, error) {
	politenessDelay()

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w", url, err)
	}

	status := resp.StatusCode()
	if status == http.StatusForbidden {
		return nil, status, fmt.Errorf("GET %s: %w", url, ErrForbidden)
	}
	if status < 200 || status >= 300 {
		return nil, status, &FetchError{URL: url, Status: status}
	}
	return resp.Body(), status, nil
}

// politenessDelay sleeps 0.25-0.75s so bursts of requests do not hammer the
// target servers. Worker pool bounds apply on top of this, not instead of it.
func politenessDelay() {
	ms := jitterFloorMs + rand.Intn(jitterSpanMs+1)
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
