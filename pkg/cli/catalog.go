package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/fontprov/pkg/cli/config"
	"github.com/m-mizutani/fontprov/pkg/domain/model"
	"github.com/m-mizutani/fontprov/pkg/infra/catalog"
	"github.com/m-mizutani/fontprov/pkg/usecase"
)

func cmdCatalog() *cli.Command {
	var (
		provisionCfg config.Provision
		catalogRef   string
	)

	return &cli.Command{
		Name:  "catalog",
		Usage: "Validate a catalog and print its fetch plan, or list embedded catalogs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "catalog",
				Aliases:     []string{"c"},
				Usage:       "Catalog file or embedded catalog name; lists embedded catalogs when empty",
				Destination: &catalogRef,
				Sources:     cli.EnvVars("FONTPROV_CATALOG"),
			},
			provisionCfg.StrategyFlag(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			w := outputOf(c)

			if catalogRef == "" {
				for _, name := range catalog.BuiltinNames() {
					fmt.Fprintln(w, name)
				}
				return nil
			}

			strategy, err := provisionCfg.ParseStrategy()
			if err != nil {
				return err
			}
			fontCatalog, err := catalog.Resolve(catalogRef)
			if err != nil {
				return err
			}
			units, err := usecase.Plan(fontCatalog, strategy)
			if err != nil {
				return err
			}

			headingColor.Fprintf(w, "%s: %d assets, %d fetch units (%s)\n",
				fontCatalog.Name, len(fontCatalog.Assets), len(units), strategy)
			for _, unit := range units {
				fmt.Fprintf(w, "[%d] %s %s\n", unit.Index, unit.Kind, unit.Locator)
				for _, asset := range unit.Assets {
					line := fmt.Sprintf("    %s %s -> %s", asset.Family, asset.Style, asset.FileName())
					if unit.Kind == model.UnitKindArchive && asset.Source.Member != "" {
						line += " (member " + asset.Source.Member + ")"
					}
					fmt.Fprintln(w, line)
				}
			}
			return nil
		},
	}
}
