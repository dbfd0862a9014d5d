package usecase_test

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// fetchFunc answers the n-th (1-based) fetch of a locator
type fetchFunc func(ctx context.Context, n int) ([]byte, error)

// mockFetcher is a mock implementation of Fetcher
type mockFetcher struct {
	mu        sync.Mutex
	responses map[string]fetchFunc
	calls     map[string]int
	order     []string
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		responses: make(map[string]fetchFunc),
		calls:     make(map[string]int),
	}
}

func (m *mockFetcher) on(locator string, fn fetchFunc) *mockFetcher {
	m.responses[locator] = fn
	return m
}

func (m *mockFetcher) payload(locator string, data []byte) *mockFetcher {
	return m.on(locator, func(context.Context, int) ([]byte, error) {
		return data, nil
	})
}

func (m *mockFetcher) notFound(locator string) *mockFetcher {
	return m.on(locator, func(context.Context, int) ([]byte, error) {
		return nil, goerr.Wrap(model.ErrSourceNotFound, "unexpected status code 404", goerr.V("locator", locator))
	})
}

func (m *mockFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	m.mu.Lock()
	m.calls[locator]++
	n := m.calls[locator]
	m.order = append(m.order, locator)
	fn := m.responses[locator]
	m.mu.Unlock()

	if fn == nil {
		return nil, goerr.Wrap(model.ErrSourceNotFound, "mock not configured", goerr.V("locator", locator))
	}
	return fn(ctx, n)
}

func (m *mockFetcher) callCount(locator string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[locator]
}

// mockIndexer is a mock implementation of FontIndexer that records the font
// files visible at every rebuild
type mockIndexer struct {
	mu       sync.Mutex
	err      error
	rebuilds int
	seen     [][]string
}

func (m *mockIndexer) Rebuild(ctx context.Context, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuilds++
	m.seen = append(m.seen, listFonts(nil, dir))
	return m.err
}

func (m *mockIndexer) Lookup(ctx context.Context, family, style string) (string, error) {
	return "", goerr.Wrap(model.ErrFontNotFound, "mock index is empty")
}

// listFonts returns the visible (non-dot) file names in dir, sorted
func listFonts(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if t != nil {
			t.Fatalf("failed to read dir %s: %v", dir, err)
		}
		return nil
	}

	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}

// createTestZip creates a ZIP archive in memory
func createTestZip(t *testing.T, files map[string][]byte) []byte {
	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		writer, err := zipWriter.Create(name)
		gt.NoError(t, err)

		_, err = writer.Write(files[name])
		gt.NoError(t, err)
	}

	gt.NoError(t, zipWriter.Close())
	return buf.Bytes()
}

func perFileAsset(family, style, url string) model.FontAsset {
	return model.FontAsset{
		Family: family,
		Style:  style,
		Source: model.SourceLocator{URL: url},
		Format: model.FormatTrueType,
	}
}

func archiveAsset(family, style, archive, member string) model.FontAsset {
	return model.FontAsset{
		Family: family,
		Style:  style,
		Source: model.SourceLocator{Archive: archive, Member: member},
		Format: model.FormatTrueType,
	}
}
