package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
	"github.com/m-mizutani/fontprov/pkg/infra/catalog"
)

const tomlCatalog = `
name = "subtitles"

[[fonts]]
family = "Montserrat"
style = "Bold"
url = "https://example.com/Montserrat-Bold.ttf"

[[fonts]]
family = " Montserrat "
style = "SemiBold"
url = "https://example.com/Montserrat-SemiBold.ttf"
format = "TTF"
`

const yamlCatalog = `
fonts:
  - family: Montserrat
    style: Bold
    archive: https://example.com/Montserrat.zip
    member: static/Montserrat-Bold.ttf
`

func TestParse(t *testing.T) {
	t.Run("toml", func(t *testing.T) {
		c, err := catalog.Parse([]byte(tomlCatalog), catalog.FormatTOML, "fallback")
		gt.NoError(t, err)
		gt.Equal(t, c.Name, "subtitles")
		gt.A(t, c.Assets).Length(2)
		gt.Equal(t, c.Assets[1].Family, "Montserrat")
		gt.Equal(t, c.Assets[1].Format, model.FormatTrueType)
		gt.NoError(t, c.Validate(model.StrategyPerFile))
		gt.Error(t, c.Validate(model.StrategyArchive))
	})

	t.Run("yaml", func(t *testing.T) {
		c, err := catalog.Parse([]byte(yamlCatalog), catalog.FormatYAML, "fallback")
		gt.NoError(t, err)
		gt.Equal(t, c.Name, "fallback")
		gt.A(t, c.Assets).Length(1)
		gt.Equal(t, c.Assets[0].Source, model.SourceLocator{
			Archive: "https://example.com/Montserrat.zip",
			Member:  "static/Montserrat-Bold.ttf",
		})
		gt.NoError(t, c.Validate(model.StrategyArchive))
	})

	t.Run("unknown key in toml", func(t *testing.T) {
		_, err := catalog.Parse([]byte("[[fonts]]\nfamily = \"A\"\nweight = 700\n"), catalog.FormatTOML, "x")
		gt.True(t, errors.Is(err, model.ErrInvalidCatalog))
	})

	t.Run("unknown key in yaml", func(t *testing.T) {
		_, err := catalog.Parse([]byte("fonts:\n  - family: A\n    weight: 700\n"), catalog.FormatYAML, "x")
		gt.True(t, errors.Is(err, model.ErrInvalidCatalog))
	})

	t.Run("broken syntax", func(t *testing.T) {
		_, err := catalog.Parse([]byte("[[fonts"), catalog.FormatTOML, "x")
		gt.True(t, errors.Is(err, model.ErrInvalidCatalog))
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.yml")
	gt.NoError(t, os.WriteFile(path, []byte(yamlCatalog), 0644))

	c, err := catalog.Load(path)
	gt.NoError(t, err)
	gt.Equal(t, c.Name, "archive")

	_, err = catalog.Load(filepath.Join(dir, "catalog.json"))
	gt.True(t, errors.Is(err, model.ErrInvalidCatalog))

	_, err = catalog.Load(filepath.Join(dir, "missing.toml"))
	gt.Error(t, err)
}

func TestBuiltin(t *testing.T) {
	gt.Equal(t, catalog.BuiltinNames(), []string{"captions", "captions-archive"})

	c, err := catalog.Resolve("captions")
	gt.NoError(t, err)
	gt.A(t, c.Assets).Length(6)
	gt.NoError(t, c.Validate(model.StrategyPerFile))
	gt.NoError(t, c.Validate(model.StrategyArchive))

	c, err = catalog.Builtin("captions-archive")
	gt.NoError(t, err)
	gt.Equal(t, c.Name, "captions-archive")
	gt.NoError(t, c.Validate(model.StrategyArchive))
	gt.Error(t, c.Validate(model.StrategyPerFile))

	_, err = catalog.Builtin("nope")
	gt.True(t, errors.Is(err, model.ErrInvalidCatalog))
}
