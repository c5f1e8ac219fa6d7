package harvester

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>First story</title>
      <link>%[1]s/news/first.html</link>
      <pubDate>Tue, 05 Mar 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second story</title>
      <link>%[1]s/news/second.html</link>
      <pubDate>Tue, 05 Mar 2024 11:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Duplicate of first</title>
      <link>%[1]s/news/first.html</link>
    </item>
  </channel>
</rss>`

const testAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <entry>
    <title>Atom entry</title>
    <link href="%[1]s/news/atom-entry.html"/>
    <updated>2024-03-05T12:00:00Z</updated>
  </entry>
</feed>`

func newListingServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(strings.ReplaceAll(body, "%HOST%", srv.URL)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSource(srv *httptest.Server, listingPath string) Source {
	return Source{
		Name:         "test",
		URL:          srv.URL + "/",
		Listing:      srv.URL + listingPath,
		DomainPrefix: srv.URL,
		MaxToFetch:   100,
	}
}

func TestResolve_FeedTier(t *testing.T) {
	srv := newListingServer(t, map[string]string{
		"/feed": fmt.Sprintf(testRSS, "%HOST%"),
	})

	items, err := NewResolver(NewFetcher()).Resolve(context.Background(), testSource(srv, "/feed"))
	require.NoError(t, err)
	require.Len(t, items, 2, "duplicate URL must be collapsed")

	require.Equal(t, srv.URL+"/news/first.html", items[0].URL)
	require.Equal(t, "First story", items[0].Title)
	require.Equal(t, "Tue, 05 Mar 2024 10:00:00 GMT", items[0].TimeHint)
	for _, it := range items {
		require.True(t, strings.HasPrefix(it.URL, "http"), "URLs must be absolute")
	}
}

func TestResolve_AtomTier(t *testing.T) {
	srv := newListingServer(t, map[string]string{
		"/feed": fmt.Sprintf(testAtom, "%HOST%"),
	})

	items, err := NewResolver(NewFetcher()).Resolve(context.Background(), testSource(srv, "/feed"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, srv.URL+"/news/atom-entry.html", items[0].URL)
	require.Equal(t, "2024-03-05T12:00:00Z", items[0].TimeHint)
}

func TestResolve_FeedRespectsMax(t *testing.T) {
	srv := newListingServer(t, map[string]string{
		"/feed": fmt.Sprintf(testRSS, "%HOST%"),
	})
	src := testSource(srv, "/feed")
	src.MaxToFetch = 1

	items, err := NewResolver(NewFetcher()).Resolve(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestResolve_StructuredHTMLTier(t *testing.T) {
	listing := `<html><body>
	  <article>
	    <a href="/news/uno.html">Uno</a>
	    <time>05/03/2024</time>
	  </article>
	  <article>
	    <a href="/news/dos.html">Dos</a>
	  </article>
	  <article>
	    <a href="https://elsewhere.invalid/fuera.html">Fuera</a>
	  </article>
	</body></html>`
	srv := newListingServer(t, map[string]string{"/portada": listing})

	items, err := NewResolver(NewFetcher()).Resolve(context.Background(), testSource(srv, "/portada"))
	require.NoError(t, err)
	require.Len(t, items, 2, "off-domain link must be rejected")

	require.Equal(t, srv.URL+"/news/uno.html", items[0].URL)
	require.Equal(t, "Uno", items[0].Title)
	require.Equal(t, "05/03/2024", items[0].TimeHint)
	require.Equal(t, srv.URL+"/news/dos.html", items[1].URL)
}

func TestResolve_RegexFallbackExcludesNonArticles(t *testing.T) {
	// No article/h2/h3 structure at all: only the regex tier can find these.
	listing := `<html><body>
	  <span><a href="/news/alpha.html">x</a></span>
	  <span><a href="/album/gallery.html">x</a></span>
	  <span><a href="/video/clip.html">x</a></span>
	  <span><a href="/fotogaleria/photos.html">x</a></span>
	  <span><a href="/news/beta.html">x</a></span>
	</body></html>`
	srv := newListingServer(t, map[string]string{"/portada": listing})

	items, err := NewResolver(NewFetcher()).Resolve(context.Background(), testSource(srv, "/portada"))
	require.NoError(t, err)

	urls := make([]string, 0, len(items))
	for _, it := range items {
		urls = append(urls, it.URL)
	}
	require.ElementsMatch(t, []string{
		srv.URL + "/news/alpha.html",
		srv.URL + "/news/beta.html",
	}, urls)
}

func TestResolve_HomepageRetryOnEmptyListing(t *testing.T) {
	srv := newListingServer(t, map[string]string{
		"/listing": `<html><body><p>nothing here</p></body></html>`,
		"/":        fmt.Sprintf(testRSS, "%HOST%"),
	})

	items, err := NewResolver(NewFetcher()).Resolve(context.Background(), testSource(srv, "/listing"))
	require.NoError(t, err)
	require.Len(t, items, 2, "resolver must fall back to the homepage")
}

func TestResolve_ForbiddenSourceIsSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	items, err := NewResolver(NewFetcher()).Resolve(context.Background(), testSource(srv, "/feed"))
	require.NoError(t, err, "403 skips the source, it does not fail the run")
	require.Empty(t, items)
}

func TestResolveAll_GlobalDedupAndSourceTags(t *testing.T) {
	srv := newListingServer(t, map[string]string{
		"/feed": fmt.Sprintf(testRSS, "%HOST%"),
	})

	a := testSource(srv, "/feed")
	a.Name = "alpha"
	b := testSource(srv, "/feed")
	b.Name = "beta"

	items := NewResolver(NewFetcher()).ResolveAll(context.Background(), []Source{a, b}, 2)
	require.Len(t, items, 2, "identical URLs across sources collapse to the first source")
	for _, it := range items {
		require.Equal(t, "alpha", it.Source)
	}
}
