package catalog

import (
	"bytes"
	"embed"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

//go:embed builtin/*
var builtinFS embed.FS

// maxFileSize bounds a catalog file
const maxFileSize = 1 << 20

// Format is the encoding of a catalog file
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

type entry struct {
	Family  string `toml:"family" yaml:"family"`
	Style   string `toml:"style" yaml:"style"`
	URL     string `toml:"url" yaml:"url"`
	Archive string `toml:"archive" yaml:"archive"`
	Member  string `toml:"member" yaml:"member"`
	Format  string `toml:"format" yaml:"format"`
}

type document struct {
	Name  string  `toml:"name" yaml:"name"`
	Fonts []entry `toml:"fonts" yaml:"fonts"`
}

// FormatOf guesses the format from a file extension
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", goerr.Wrap(model.ErrInvalidCatalog, "unsupported catalog file extension", goerr.V("file", name))
	}
}

// Parse decodes a catalog. Unknown keys are rejected. When the document has
// no name, fallbackName is used.
func Parse(data []byte, format Format, fallbackName string) (*model.Catalog, error) {
	if len(data) > maxFileSize {
		return nil, goerr.Wrap(model.ErrInvalidCatalog, "catalog file is too large", goerr.V("size", len(data)))
	}

	var doc document
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, goerr.Wrap(model.ErrInvalidCatalog, "failed to decode TOML catalog", goerr.V("cause", err.Error()))
		}
	case FormatYAML:
		if err := yaml.UnmarshalWithOptions(data, &doc, yaml.Strict()); err != nil {
			return nil, goerr.Wrap(model.ErrInvalidCatalog, "failed to decode YAML catalog", goerr.V("cause", err.Error()))
		}
	default:
		return nil, goerr.Wrap(model.ErrInvalidCatalog, "unknown catalog format", goerr.V("format", format))
	}

	catalog := &model.Catalog{Name: doc.Name}
	if catalog.Name == "" {
		catalog.Name = fallbackName
	}
	for _, e := range doc.Fonts {
		catalog.Assets = append(catalog.Assets, model.FontAsset{
			Family: strings.TrimSpace(e.Family),
			Style:  strings.TrimSpace(e.Style),
			Source: model.SourceLocator{
				URL:     strings.TrimSpace(e.URL),
				Archive: strings.TrimSpace(e.Archive),
				Member:  strings.TrimSpace(e.Member),
			},
			Format: model.FontFormat(strings.ToLower(e.Format)),
		})
	}
	return catalog, nil
}

// Load reads a catalog file
func Load(filePath string) (*model.Catalog, error) {
	format, err := FormatOf(filePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read catalog file", goerr.V("path", filePath))
	}

	base := filepath.Base(filePath)
	return Parse(data, format, strings.TrimSuffix(base, filepath.Ext(base)))
}

// BuiltinNames lists the embedded catalogs
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Builtin returns an embedded catalog by name
func Builtin(name string) (*model.Catalog, error) {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list embedded catalogs")
	}

	for _, e := range entries {
		if strings.TrimSuffix(e.Name(), path.Ext(e.Name())) != name {
			continue
		}
		format, err := FormatOf(e.Name())
		if err != nil {
			return nil, err
		}
		data, err := builtinFS.ReadFile(path.Join("builtin", e.Name()))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read embedded catalog", goerr.V("name", name))
		}
		return Parse(data, format, name)
	}

	return nil, goerr.Wrap(model.ErrInvalidCatalog, "no such embedded catalog",
		goerr.V("name", name), goerr.V("available", BuiltinNames()))
}

// Resolve returns the embedded catalog called ref, or loads ref as a file
func Resolve(ref string) (*model.Catalog, error) {
	for _, name := range BuiltinNames() {
		if name == ref {
			return Builtin(ref)
		}
	}
	return Load(ref)
}
