package usecase

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// Plan derives the ordered fetch units of a catalog. Under the per-file
// strategy there is one unit per asset; under the archive strategy one unit
// per distinct archive locator, in order of first appearance, each carrying
// its assets in catalog order.
func Plan(catalog *model.Catalog, strategy model.Strategy) ([]model.FetchUnit, error) {
	if err := catalog.Validate(strategy); err != nil {
		return nil, goerr.Wrap(err, "cannot plan fetch units")
	}

	switch strategy {
	case model.StrategyPerFile:
		units := make([]model.FetchUnit, 0, len(catalog.Assets))
		for i, asset := range catalog.Assets {
			units = append(units, model.FetchUnit{
				Index:   i,
				Kind:    model.UnitKindFile,
				Locator: asset.Source.URL,
				Assets:  []model.FontAsset{asset},
			})
		}
		return units, nil

	case model.StrategyArchive:
		var units []model.FetchUnit
		byLocator := make(map[string]int)
		for _, asset := range catalog.Assets {
			idx, ok := byLocator[asset.Source.Archive]
			if !ok {
				idx = len(units)
				byLocator[asset.Source.Archive] = idx
				units = append(units, model.FetchUnit{
					Index:   idx,
					Kind:    model.UnitKindArchive,
					Locator: asset.Source.Archive,
				})
			}
			units[idx].Assets = append(units[idx].Assets, asset)
		}
		return units, nil
	}

	return nil, goerr.Wrap(model.ErrInvalidCatalog, "unknown strategy", goerr.V("strategy", strategy))
}
