package github

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/interfaces"
	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// Locator is a parsed github://owner/repo@ref/path locator
type Locator struct {
	Owner string
	Repo  string
	Ref   string
	Path  string
}

// Zipball reports whether the locator addresses the whole repository archive
func (l Locator) Zipball() bool {
	return l.Path == "" || strings.HasSuffix(strings.ToLower(l.Path), ".zip")
}

// ParseLocator parses github://owner/repo@ref/path. The ref is required and
// the path may be empty.
func ParseLocator(locator string) (*Locator, error) {
	rest, ok := strings.CutPrefix(locator, "github://")
	if !ok {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "not a github locator", goerr.V("locator", locator))
	}

	owner, rest, ok := strings.Cut(rest, "/")
	if !ok || owner == "" {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "github locator has no owner", goerr.V("locator", locator))
	}
	repo, rest, ok := strings.Cut(rest, "@")
	if !ok || repo == "" {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "github locator needs repo@ref", goerr.V("locator", locator))
	}
	ref, path, _ := strings.Cut(rest, "/")
	if ref == "" {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "github locator has empty ref", goerr.V("locator", locator))
	}

	return &Locator{Owner: owner, Repo: repo, Ref: ref, Path: strings.Trim(path, "/")}, nil
}

// Fetcher resolves github:// locators through a GitHubClient
type Fetcher struct {
	client interfaces.GitHubClient
}

// NewFetcher creates a fetcher backed by client
func NewFetcher(client interfaces.GitHubClient) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads a repository file, or the repository zipball when the
// locator has no path or a .zip path
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}

	if loc.Zipball() {
		return f.client.DownloadZipball(ctx, loc.Owner, loc.Repo, loc.Ref)
	}
	return f.client.DownloadContents(ctx, loc.Owner, loc.Repo, loc.Ref, loc.Path)
}
