package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/fontprov/pkg/cli/config"
	"github.com/m-mizutani/fontprov/pkg/infra/catalog"
	"github.com/m-mizutani/fontprov/pkg/usecase"
)

func cmdProvision() *cli.Command {
	var (
		provisionCfg config.Provision
		sourceCfg    config.Source
		indexCfg     config.Index
		reportCfg    config.Report
		sentryCfg    config.Sentry
	)

	var flags []cli.Flag
	flags = append(flags, provisionCfg.Flags()...)
	flags = append(flags, sourceCfg.Flags()...)
	flags = append(flags, indexCfg.Flags()...)
	flags = append(flags, reportCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:  "provision",
		Usage: "Fetch, verify and install the fonts of a catalog, then rebuild the font index",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			provisionCfg.Load(c)

			if err := sentryCfg.Configure(); err != nil {
				return err
			}

			err := runProvision(ctx, outputOf(c), &provisionCfg, &sourceCfg, &indexCfg, &reportCfg)
			if ExitCode(err) == ExitFailure {
				sentryCfg.Capture(err, 2*time.Second)
			}
			return err
		},
	}
}

func runProvision(ctx context.Context, w io.Writer, provisionCfg *config.Provision, sourceCfg *config.Source, indexCfg *config.Index, reportCfg *config.Report) error {
	logger := ctxlog.From(ctx)

	strategy, err := provisionCfg.ParseStrategy()
	if err != nil {
		return err
	}
	opts, err := provisionCfg.Options()
	if err != nil {
		return err
	}

	fontCatalog, err := catalog.Resolve(provisionCfg.Catalog)
	if err != nil {
		return goerr.Wrap(err, "failed to load catalog", goerr.V("catalog", provisionCfg.Catalog))
	}

	router, closeSources, err := sourceCfg.Build(ctx)
	defer closeSources()
	if err != nil {
		return err
	}

	indexer, err := indexCfg.New(provisionCfg.InstallDir)
	if err != nil {
		return err
	}

	stores, notifiers, closeReports, err := reportCfg.Build(ctx)
	defer closeReports()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting provisioning",
		slog.String("catalog", fontCatalog.Name),
		slog.Int("assets", len(fontCatalog.Assets)),
		slog.String("strategy", string(strategy)),
		slog.String("policy", provisionCfg.Policy),
		slog.String("install_dir", provisionCfg.InstallDir),
		slog.Any("schemes", router.Schemes()),
	)

	provisioner := usecase.NewProvisioner(router, indexer, opts...)
	report, provErr := provisioner.Provision(ctx, fontCatalog, strategy)
	if report == nil {
		return provErr
	}

	printReport(w, report)

	publisher := usecase.NewPublisher(stores, notifiers, reportCfg.PublishTimeout)
	publisher.Publish(ctx, report)

	logger.Info("Provisioning finished",
		slog.String("run_id", report.RunID),
		slog.String("outcome", string(report.Outcome())),
		slog.Int("installed", report.Installed),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
	)

	return outcomeErr(report.Outcome(), provErr)
}

func outputOf(c *cli.Command) io.Writer {
	if root := c.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}
