package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
	"github.com/m-mizutani/fontprov/pkg/domain/types"
)

// DefaultMaxBytes bounds the size of one downloaded payload
const DefaultMaxBytes = 256 << 20

// Fetcher downloads http:// and https:// locators
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// Option is a functional option for Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithMaxBytes bounds the size of one payload
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// New creates an HTTP fetcher. Deadlines come from the context of each call.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				MaxIdleConnsPerHost:   8,
			},
		},
		maxBytes:  DefaultMaxBytes,
		userAgent: types.ServiceName + "/" + types.Version,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the locator
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to create download request",
			goerr.V("locator", locator), goerr.V("cause", err.Error()))
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to download",
			goerr.V("locator", locator), goerr.V("cause", err.Error()))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, goerr.Wrap(model.ErrSourceNotFound, "remote reports the file missing",
			goerr.V("locator", locator), goerr.V("status", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "unexpected status code",
			goerr.V("locator", locator), goerr.V("status", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to read response body",
			goerr.V("locator", locator), goerr.V("cause", err.Error()))
	}
	if int64(len(data)) > f.maxBytes {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "payload exceeds size limit",
			goerr.V("locator", locator), goerr.V("limit", f.maxBytes))
	}

	return data, nil
}
