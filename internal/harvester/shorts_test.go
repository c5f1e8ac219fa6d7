package harvester

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const shortsPage = `<html><body>
<h1>Posiciones cortas</h1>
<h2>ENAGAS, S.A.</h2>
<table>
<tr><th>Holder</th><th>Outstanding net short positions</th><th>Date</th></tr>
<tr><td>AQR Capital Management, LLC</td><td>1,234</td><td>05/03/2024</td></tr>
<tr><td>Marshall Wace LLP</td><td>0,510</td><td>not-a-date</td></tr>
<tr><td>Broken Fund</td><td>n/a</td><td>01/01/2024</td></tr>
<tr><td>too-few-cells</td><td>0,6</td></tr>
</table>
</body></html>`

func newShortsScraper(t *testing.T, html string, status int) (*ShortPositionScraper, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return NewShortPositionScraper(NewFetcher(), srv.URL, "es"), srv
}

func TestShortPositions_ParsesTable(t *testing.T) {
	scraper, srv := newShortsScraper(t, shortsPage, http.StatusOK)

	block := scraper.Fetch(context.Background(), "A28294726")
	require.NotNil(t, block)
	require.Equal(t, "A28294726", block.NIF)
	require.Equal(t, srv.URL+"?nif=A28294726&lang=es", block.URL)
	require.Equal(t, "ENAGAS, S.A.", block.Issuer)

	require.Len(t, block.Rows, 2)

	first := block.Rows[0]
	require.Equal(t, "AQR Capital Management, LLC", first.Holder)
	require.Equal(t, "1.234", first.NetShortPct.String())
	require.Equal(t, "2024-03-05", first.Date)

	second := block.Rows[1]
	require.Equal(t, "Marshall Wace LLP", second.Holder)
	require.Equal(t, "0.51", second.NetShortPct.String())
	require.Equal(t, "not-a-date", second.Date)
}

func TestShortPositions_NoTableMeansEmptyRows(t *testing.T) {
	scraper, _ := newShortsScraper(t, `<html><body><p>No hay datos.</p></body></html>`, http.StatusOK)

	block := scraper.Fetch(context.Background(), "A28294726")
	require.NotNil(t, block)
	require.NotNil(t, block.Rows)
	require.Empty(t, block.Rows)
}

func TestShortPositions_FetchFailureReturnsNil(t *testing.T) {
	scraper, _ := newShortsScraper(t, "", http.StatusForbidden)

	require.Nil(t, scraper.Fetch(context.Background(), "A28294726"))
}

func TestShortPositions_SpanishHeaderMarker(t *testing.T) {
	page := `<html><body>
	<table>
	<tr><th>Tenedor</th><th>Notificaciones vivas iguales o superiores al 0,5%</th><th>Fecha</th></tr>
	<tr><td>Citadel Advisors</td><td>0,700</td><td>10/02/2024</td></tr>
	</table>
	</body></html>`
	scraper, _ := newShortsScraper(t, page, http.StatusOK)

	block := scraper.Fetch(context.Background(), "A99999999")
	require.NotNil(t, block)
	require.Len(t, block.Rows, 1)
	require.Equal(t, "Citadel Advisors", block.Rows[0].Holder)
	require.Equal(t, "2024-02-10", block.Rows[0].Date)
}

func TestIsoDate(t *testing.T) {
	require.Equal(t, "2024-03-05", isoDate("05/03/2024"))
	require.Equal(t, "05-03-2024", isoDate("05-03-2024"))
	require.Equal(t, "", isoDate(""))
}
