package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/fontprov/pkg/cli/config"
)

func cmdCheck() *cli.Command {
	var (
		provisionCfg config.Provision
		indexCfg     config.Index
		family       string
		style        string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "family",
			Aliases:     []string{"f"},
			Usage:       "Font family, e.g. Montserrat",
			Required:    true,
			Destination: &family,
		},
		&cli.StringFlag{
			Name:        "style",
			Usage:       "Font style, e.g. SemiBold",
			Value:       "Regular",
			Destination: &style,
		},
		provisionCfg.InstallDirFlag(),
	}
	flags = append(flags, indexCfg.Flags()...)

	return &cli.Command{
		Name:  "check",
		Usage: "Resolve a family and style through the font index",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			indexer, err := indexCfg.New(provisionCfg.InstallDir)
			if err != nil {
				return err
			}

			path, err := indexer.Lookup(ctx, family, style)
			if err != nil {
				return goerr.Wrap(err, "font is not resolvable", goerr.V("family", family), goerr.V("style", style))
			}

			fmt.Fprintln(outputOf(c), path)
			return nil
		},
	}
}
