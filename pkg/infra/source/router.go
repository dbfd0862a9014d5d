package source

import (
	"context"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/interfaces"
	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// Router dispatches a locator to the fetcher registered for its scheme
type Router struct {
	fetchers map[string]interfaces.Fetcher
}

// Option registers fetchers on a Router
type Option func(*Router)

// WithFetcher registers fetcher for the given schemes, e.g. "https"
func WithFetcher(fetcher interfaces.Fetcher, schemes ...string) Option {
	return func(r *Router) {
		for _, scheme := range schemes {
			r.fetchers[strings.ToLower(scheme)] = fetcher
		}
	}
}

// NewRouter creates a Router
func NewRouter(opts ...Option) *Router {
	r := &Router{fetchers: make(map[string]interfaces.Fetcher)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schemes returns the registered schemes, sorted
func (r *Router) Schemes() []string {
	schemes := make([]string, 0, len(r.fetchers))
	for s := range r.fetchers {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Fetch implements interfaces.Fetcher
func (r *Router) Fetch(ctx context.Context, locator string) ([]byte, error) {
	scheme, _, ok := strings.Cut(locator, "://")
	if !ok {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "locator has no scheme", goerr.V("locator", locator))
	}

	fetcher, ok := r.fetchers[strings.ToLower(scheme)]
	if !ok {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "no fetcher for scheme",
			goerr.V("locator", locator), goerr.V("scheme", scheme), goerr.V("supported", r.Schemes()))
	}
	return fetcher.Fetch(ctx, locator)
}
