package local

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// Fetcher reads file:// locators from a local mirror
type Fetcher struct{}

// New creates a local file fetcher
func New() *Fetcher {
	return &Fetcher{}
}

// Path converts a file:// locator into a local path
func Path(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", goerr.Wrap(model.ErrSourceUnavailable, "invalid file locator",
			goerr.V("locator", locator), goerr.V("cause", err.Error()))
	}
	if u.Scheme != "file" {
		return "", goerr.Wrap(model.ErrSourceUnavailable, "not a file locator", goerr.V("locator", locator))
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", goerr.Wrap(model.ErrSourceUnavailable, "remote host in file locator is not supported",
			goerr.V("locator", locator), goerr.V("host", u.Host))
	}
	if u.Path == "" {
		return "", goerr.Wrap(model.ErrSourceUnavailable, "file locator has no path", goerr.V("locator", locator))
	}
	return filepath.FromSlash(u.Path), nil
}

// Fetch reads the whole file
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := Path(locator)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, goerr.Wrap(model.ErrSourceNotFound, "local file does not exist", goerr.V("path", path))
	case err != nil:
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to read local file",
			goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	return data, nil
}
