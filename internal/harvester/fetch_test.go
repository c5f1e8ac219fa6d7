package harvester

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetcher_RetriesTransientStatus(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	body, status, err := NewFetcher().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "recovered", string(body))
	require.EqualValues(t, 3, attempts.Load())
}

func TestFetcher_ForbiddenIsPermanent(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, status, err := NewFetcher().Get(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrForbidden)
	require.Equal(t, http.StatusForbidden, status)
	require.EqualValues(t, 1, attempts.Load(), "403 must not be retried")
}

func TestFetcher_GenericFailureCarriesStatus(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, _, err := NewFetcher().Get(context.Background(), srv.URL)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, http.StatusNotFound, fe.Status)
	require.EqualValues(t, 1, attempts.Load(), "404 is not a transient status")
}

func TestFetcher_SendsBrowserHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		require.Contains(t, r.Header.Get("Accept-Language"), "es-ES")
		require.NotEmpty(t, r.Header.Get("Referer"))
	}))
	defer srv.Close()

	_, _, err := NewFetcher().Get(context.Background(), srv.URL)
	require.NoError(t, err)
}
