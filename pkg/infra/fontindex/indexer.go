package fontindex

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/image/font/sfnt"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// IndexFileName is written into every indexed directory
const IndexFileName = ".fontprov-index.toml"

var fontExtensions = map[string]bool{
	".ttf": true,
	".otf": true,
}

// Entry maps one font file to the names embedded in it
type Entry struct {
	File   string `toml:"file"`
	Family string `toml:"family"`
	Style  string `toml:"style"`
}

type indexFile struct {
	Fonts []Entry `toml:"font"`
}

// Indexer is a font index that needs no host font subsystem. Rebuild parses
// every font in a directory and writes IndexFileName; Lookup searches the
// index files of the known directories.
type Indexer struct {
	mu   sync.Mutex
	dirs []string
}

// New creates an Indexer that looks fonts up in dirs
func New(dirs ...string) *Indexer {
	idx := &Indexer{}
	for _, dir := range dirs {
		idx.addDir(dir)
	}
	return idx
}

func (x *Indexer) addDir(dir string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, d := range x.dirs {
		if d == dir {
			return
		}
	}
	x.dirs = append(x.dirs, dir)
}

func (x *Indexer) knownDirs() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.dirs...)
}

// Rebuild scans dir and rewrites its index file
func (x *Indexer) Rebuild(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return goerr.Wrap(model.ErrIndexRebuildFailure, "failed to read font directory",
			goerr.V("dir", dir), goerr.V("cause", err.Error()))
	}

	logger := ctxlog.From(ctx)
	var index indexFile
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !fontExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		family, style, err := readNames(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skip unreadable font", slog.String("file", name), slog.Any("error", err))
			continue
		}
		index.Fonts = append(index.Fonts, Entry{File: name, Family: family, Style: style})
	}

	sort.Slice(index.Fonts, func(i, j int) bool {
		return index.Fonts[i].File < index.Fonts[j].File
	})

	raw, err := toml.Marshal(index)
	if err != nil {
		return goerr.Wrap(model.ErrIndexRebuildFailure, "failed to encode font index", goerr.V("cause", err.Error()))
	}

	tmp := filepath.Join(dir, IndexFileName+".tmp")
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return goerr.Wrap(model.ErrIndexRebuildFailure, "failed to write font index",
			goerr.V("path", tmp), goerr.V("cause", err.Error()))
	}
	if err := os.Rename(tmp, filepath.Join(dir, IndexFileName)); err != nil {
		_ = os.Remove(tmp)
		return goerr.Wrap(model.ErrIndexRebuildFailure, "failed to replace font index",
			goerr.V("dir", dir), goerr.V("cause", err.Error()))
	}

	x.addDir(dir)
	logger.Debug("font index rebuilt", slog.String("dir", dir), slog.Int("fonts", len(index.Fonts)))
	return nil
}

// Lookup returns the path of the font matching family and style. Names are
// compared case-insensitively, ignoring spaces; a font whose family already
// carries the style ("Montserrat SemiBold" / "Regular") also matches.
func (x *Indexer) Lookup(ctx context.Context, family, style string) (string, error) {
	wantFamily, wantStyle := normalize(family), normalize(style)

	for _, dir := range x.knownDirs() {
		index, err := load(dir)
		if err != nil {
			return "", err
		}
		for _, e := range index.Fonts {
			f, s := normalize(e.Family), normalize(e.Style)
			if (f == wantFamily && s == wantStyle) ||
				(s == "regular" && f == wantFamily+wantStyle) {
				return filepath.Join(dir, e.File), nil
			}
		}
	}

	return "", goerr.Wrap(model.ErrFontNotFound, "no indexed font matches",
		goerr.V("family", family), goerr.V("style", style))
}

// Entries returns the index of dir
func Entries(dir string) ([]Entry, error) {
	index, err := load(dir)
	if err != nil {
		return nil, err
	}
	return index.Fonts, nil
}

func load(dir string) (*indexFile, error) {
	raw, err := os.ReadFile(filepath.Join(dir, IndexFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return &indexFile{}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read font index", goerr.V("dir", dir))
	}

	var index indexFile
	if err := toml.Unmarshal(raw, &index); err != nil {
		return nil, goerr.Wrap(err, "failed to decode font index", goerr.V("dir", dir))
	}
	return &index, nil
}

func readNames(path string) (family, style string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to read font file")
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to parse font file")
	}

	var buf sfnt.Buffer
	name := func(ids ...sfnt.NameID) string {
		for _, id := range ids {
			if v, err := f.Name(&buf, id); err == nil && v != "" {
				return v
			}
		}
		return ""
	}
	return name(sfnt.NameIDTypographicFamily, sfnt.NameIDFamily),
		name(sfnt.NameIDTypographicSubfamily, sfnt.NameIDSubfamily), nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
