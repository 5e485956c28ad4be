package pagecache

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	apperrors "github.com/charlesng35/callcache/pkg/errors"
	"github.com/charlesng35/callcache/pkg/logger"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBodyBytes = 10 << 20
)

// Fetcher retrieves the text content of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// NewTransport returns a pooled keep-alive transport with HTTP/2 enabled.
func NewTransport() *http.Transport {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2: true,
	}
	enableHTTP2(tr)
	return tr
}

// enableHTTP2 registers the h2 round tripper on tr. On failure tr keeps serving HTTP/1.1.
func enableHTTP2(tr *http.Transport) {
	if err := http2.ConfigureTransport(tr); err != nil {
		logger.WithModule("pagecache").Warn("http/2 disabled for page fetches", zap.Error(err))
	}
}

// HTTPFetcher issues a GET and returns the response body as text, whatever the status code.
type HTTPFetcher struct {
	client       *http.Client
	maxBodyBytes int64
}

// HTTPOption customises an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithMaxBodyBytes caps how much of a response body is read. Longer bodies are truncated.
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// NewHTTPFetcher builds a fetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration, opts ...HTTPOption) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	f := &HTTPFetcher{
		client:       &http.Client{Transport: NewTransport(), Timeout: timeout},
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs the GET request.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperrors.ErrFetchFailed.WithInternal(fmt.Errorf("build request for %s: %w", url, err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", apperrors.ErrFetchFailed.WithInternal(fmt.Errorf("get %s: %w", url, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return "", apperrors.ErrFetchFailed.WithInternal(fmt.Errorf("read body of %s: %w", url, err))
	}
	return string(body), nil
}
