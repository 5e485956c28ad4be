package pagecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/charlesng35/callcache/pkg/errors"
	"github.com/charlesng35/callcache/pkg/logger"
)

func TestHTTPFetcherReturnsBodyForAnyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "not here", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("hello page"))
	}))
	t.Cleanup(srv.Close)

	fetcher := NewHTTPFetcher(time.Second)

	body, err := fetcher.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	require.Equal(t, "hello page", body)

	body, err = fetcher.Fetch(context.Background(), srv.URL+"/missing")
	require.NoError(t, err)
	require.Equal(t, "not here\n", body)
}

func TestHTTPFetcherTruncatesLargeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	t.Cleanup(srv.Close)

	fetcher := NewHTTPFetcher(time.Second, WithHTTPClient(srv.Client()), WithMaxBodyBytes(10))
	body, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, body, 10)
}

func TestHTTPFetcherWrapsTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), url)
	require.ErrorIs(t, err, apperrors.ErrFetchFailed)

	_, err = NewHTTPFetcher(time.Second).Fetch(context.Background(), "://bad url")
	require.ErrorIs(t, err, apperrors.ErrFetchFailed)
}

func TestHTTPFetcherRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTPFetcher(5 * time.Second).Fetch(ctx, srv.URL)
	require.Error(t, err)
}

func TestNewTransportEnablesHTTP2(t *testing.T) {
	tr := NewTransport()
	require.True(t, tr.ForceAttemptHTTP2)
	require.Contains(t, tr.TLSNextProto, "h2")
}

func TestEnableHTTP2LogsConfigurationFailure(t *testing.T) {
	previous := logger.Logger()
	core, logs := observer.New(zapcore.WarnLevel)
	logger.Replace(zap.New(core))
	t.Cleanup(func() { logger.Replace(previous) })

	tr := NewTransport()
	require.Zero(t, logs.Len())

	enableHTTP2(tr)
	entries := logs.FilterMessage("http/2 disabled for page fetches").All()
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].ContextMap()["error"], "already registered")
	require.Equal(t, "pagecache", entries[0].ContextMap()["module"])
}

func TestFetcherFunc(t *testing.T) {
	f := FetcherFunc(func(ctx context.Context, url string) (string, error) { return "from " + url, nil })
	body, err := f.Fetch(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, "from x", body)
}
