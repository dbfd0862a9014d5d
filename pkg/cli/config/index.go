package config

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/fontprov/pkg/domain/interfaces"
	"github.com/m-mizutani/fontprov/pkg/infra/fontconfig"
	"github.com/m-mizutani/fontprov/pkg/infra/fontindex"
)

// Index backends
const (
	IndexAuto       = "auto"
	IndexFontconfig = "fontconfig"
	IndexManifest   = "manifest"
)

// Index holds font index configuration
type Index struct {
	Backend string
}

// Flags returns CLI flags for font index configuration
func (c *Index) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "index",
			Usage:       "Font index backend (auto, fontconfig, manifest)",
			Value:       IndexAuto,
			Destination: &c.Backend,
			Sources:     cli.EnvVars("FONTPROV_INDEX"),
		},
	}
}

// New creates the indexer for installDir. auto picks fontconfig when fc-cache
// is installed.
func (c *Index) New(installDir string) (interfaces.FontIndexer, error) {
	backend := strings.ToLower(c.Backend)
	if backend == "" || backend == IndexAuto {
		backend = IndexManifest
		if fontconfig.Available() {
			backend = IndexFontconfig
		}
	}

	switch backend {
	case IndexFontconfig:
		return fontconfig.New(fontconfig.WithPreferredDirs(installDir)), nil
	case IndexManifest:
		return fontindex.New(installDir), nil
	default:
		return nil, goerr.New("unknown font index backend", goerr.V("index", c.Backend))
	}
}
