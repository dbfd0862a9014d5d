package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
	"github.com/m-mizutani/fontprov/pkg/usecase"
)

// Provision holds provisioner configuration
type Provision struct {
	Catalog       string
	Strategy      string
	Policy        string
	InstallDir    string
	Concurrency   int
	Retries       int
	FetchTimeout  time.Duration
	RetryInterval time.Duration
	NoDeepVerify  bool
}

// CatalogFlag selects a catalog file or an embedded catalog
func (c *Provision) CatalogFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "catalog",
		Aliases:     []string{"c"},
		Usage:       "Catalog file (.toml, .yaml) or embedded catalog name",
		Required:    true,
		Destination: &c.Catalog,
		Sources:     cli.EnvVars("FONTPROV_CATALOG"),
	}
}

// StrategyFlag selects the acquisition strategy
func (c *Provision) StrategyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "strategy",
		Aliases:     []string{"s"},
		Usage:       "Acquisition strategy (per-file, archive)",
		Value:       string(model.StrategyPerFile),
		Destination: &c.Strategy,
		Sources:     cli.EnvVars("FONTPROV_STRATEGY"),
	}
}

// InstallDirFlag selects the installation directory
func (c *Provision) InstallDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "install-dir",
		Aliases:     []string{"d"},
		Usage:       "Font installation directory",
		Value:       usecase.DefaultInstallDir,
		Destination: &c.InstallDir,
		Sources:     cli.EnvVars("FONTPROV_INSTALL_DIR"),
	}
}

// Flags returns CLI flags for provisioner configuration
func (c *Provision) Flags() []cli.Flag {
	return []cli.Flag{
		c.CatalogFlag(),
		c.StrategyFlag(),
		c.InstallDirFlag(),
		&cli.StringFlag{
			Name:        "policy",
			Aliases:     []string{"p"},
			Usage:       "Failure policy (fail-fast, best-effort)",
			Required:    true,
			Destination: &c.Policy,
			Sources:     cli.EnvVars("FONTPROV_POLICY"),
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "Maximum number of concurrent fetches (best-effort only, fail-fast fetches one at a time)",
			Value:   4,
			Sources: cli.EnvVars("FONTPROV_CONCURRENCY"),
		},
		&cli.IntFlag{
			Name:    "retries",
			Usage:   "Extra attempts for a failed fetch",
			Value:   0,
			Sources: cli.EnvVars("FONTPROV_RETRIES"),
		},
		&cli.DurationFlag{
			Name:        "fetch-timeout",
			Usage:       "Timeout of one fetch attempt",
			Value:       30 * time.Second,
			Destination: &c.FetchTimeout,
			Sources:     cli.EnvVars("FONTPROV_FETCH_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:        "retry-interval",
			Usage:       "Initial backoff between fetch attempts",
			Value:       time.Second,
			Destination: &c.RetryInterval,
			Sources:     cli.EnvVars("FONTPROV_RETRY_INTERVAL"),
		},
		&cli.BoolFlag{
			Name:        "no-deep-verify",
			Usage:       "Only check the font signature instead of parsing the font tables",
			Destination: &c.NoDeepVerify,
			Sources:     cli.EnvVars("FONTPROV_NO_DEEP_VERIFY"),
		},
	}
}

// Load copies the integer flags, whose Go type differs across cli releases
func (c *Provision) Load(cmd *cli.Command) {
	c.Concurrency = int(cmd.Int("concurrency"))
	c.Retries = int(cmd.Int("retries"))
}

// ParseStrategy validates the strategy flag
func (c *Provision) ParseStrategy() (model.Strategy, error) {
	strategy, err := model.ParseStrategy(c.Strategy)
	if err != nil {
		return "", goerr.Wrap(err, "invalid --strategy")
	}
	return strategy, nil
}

// Options builds provisioner options
func (c *Provision) Options() ([]usecase.Option, error) {
	policy, err := model.ParsePolicy(c.Policy)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid --policy")
	}
	if c.InstallDir == "" {
		return nil, goerr.New("install directory cannot be empty")
	}
	if c.Concurrency < 1 {
		return nil, goerr.New("concurrency must be at least 1", goerr.V("concurrency", c.Concurrency))
	}
	if c.Retries < 0 {
		return nil, goerr.New("retries cannot be negative", goerr.V("retries", c.Retries))
	}

	return []usecase.Option{
		usecase.WithPolicy(policy),
		usecase.WithInstallDir(c.InstallDir),
		usecase.WithConcurrency(c.Concurrency),
		usecase.WithRetries(c.Retries),
		usecase.WithFetchTimeout(c.FetchTimeout),
		usecase.WithRetryInterval(c.RetryInterval),
		usecase.WithDeepVerify(!c.NoDeepVerify),
	}, nil
}
