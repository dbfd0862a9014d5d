package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"

	"github.com/m-mizutani/fontprov/pkg/domain/interfaces"
	"github.com/m-mizutani/fontprov/pkg/infra/gcs"
	"github.com/m-mizutani/fontprov/pkg/infra/github"
	httpfetch "github.com/m-mizutani/fontprov/pkg/infra/http"
	"github.com/m-mizutani/fontprov/pkg/infra/local"
	"github.com/m-mizutani/fontprov/pkg/infra/source"
)

// Source holds configuration of the remote sources
type Source struct {
	GitHubToken          string
	GitHubBaseURL        string
	GitHubAppID          string
	GitHubInstallationID string
	GitHubPrivateKey     string
	GCSCredentials       string
	EnableGCS            bool
}

// GitHub authentication modes, in order of preference
const (
	GitHubAuthApp       = "app"
	GitHubAuthToken     = "token"
	GitHubAuthAnonymous = "anonymous"
)

// Flags returns CLI flags for source configuration
func (c *Source) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub token for github:// locators (anonymous when empty)",
			Destination: &c.GitHubToken,
			Sources:     cli.EnvVars("FONTPROV_GITHUB_TOKEN", "GITHUB_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "github-base-url",
			Usage:       "GitHub API base URL, for GitHub Enterprise",
			Destination: &c.GitHubBaseURL,
			Sources:     cli.EnvVars("FONTPROV_GITHUB_BASE_URL"),
		},
		&cli.StringFlag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID, for private repositories readable by an App installation",
			Destination: &c.GitHubAppID,
			Sources:     cli.EnvVars("FONTPROV_GITHUB_APP_ID"),
		},
		&cli.StringFlag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.GitHubInstallationID,
			Sources:     cli.EnvVars("FONTPROV_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "GitHub App private key, PEM content or a path to the PEM file",
			Destination: &c.GitHubPrivateKey,
			Sources:     cli.EnvVars("FONTPROV_GITHUB_PRIVATE_KEY"),
		},
		&cli.BoolFlag{
			Name:        "enable-gcs",
			Usage:       "Enable gs:// locators through Google Cloud Storage",
			Destination: &c.EnableGCS,
			Sources:     cli.EnvVars("FONTPROV_ENABLE_GCS"),
		},
		&cli.StringFlag{
			Name:        "gcs-credentials",
			Usage:       "Service account key file for Cloud Storage (application default credentials when empty)",
			Destination: &c.GCSCredentials,
			Sources:     cli.EnvVars("FONTPROV_GCS_CREDENTIALS"),
		},
	}
}

// Build creates the scheme router. The returned function releases clients.
func (c *Source) Build(ctx context.Context) (*source.Router, func(), error) {
	closers := []func(){}
	cleanup := func() {
		for _, fn := range closers {
			fn()
		}
	}

	gh, err := c.GitHubClient()
	if err != nil {
		return nil, cleanup, err
	}

	opts := []source.Option{
		source.WithFetcher(httpfetch.New(), "http", "https"),
		source.WithFetcher(local.New(), "file"),
		source.WithFetcher(github.NewFetcher(gh), "github"),
	}

	if c.EnableGCS {
		var gcsOpts []option.ClientOption
		if c.GCSCredentials != "" {
			gcsOpts = append(gcsOpts, option.WithCredentialsFile(c.GCSCredentials))
		}
		fetcher, err := gcs.New(ctx, gcsOpts...)
		if err != nil {
			return nil, cleanup, goerr.Wrap(err, "failed to set up gs:// source")
		}
		closers = append(closers, func() {
			if err := fetcher.Close(); err != nil {
				slog.Default().Warn("failed to close Cloud Storage client", slog.Any("error", err))
			}
		})
		opts = append(opts, source.WithFetcher(fetcher, "gs"))
	}

	return source.NewRouter(opts...), cleanup, nil
}

// GitHubAuth selects how github:// locators authenticate. App credentials win
// over the token; setting only some of them is an error.
func (c *Source) GitHubAuth() (string, error) {
	set := 0
	for _, v := range []string{c.GitHubAppID, c.GitHubInstallationID, c.GitHubPrivateKey} {
		if v != "" {
			set++
		}
	}

	switch {
	case set == 3:
		return GitHubAuthApp, nil
	case set > 0:
		return "", goerr.New("github-app-id, github-installation-id and github-private-key must be set together")
	case c.GitHubToken != "":
		return GitHubAuthToken, nil
	default:
		return GitHubAuthAnonymous, nil
	}
}

// GitHubClient creates the client behind github:// locators
func (c *Source) GitHubClient() (interfaces.GitHubClient, error) {
	mode, err := c.GitHubAuth()
	if err != nil {
		return nil, err
	}

	baseURL := github.WithBaseURL(c.GitHubBaseURL)
	if mode != GitHubAuthApp {
		return github.NewClient(c.GitHubToken, baseURL)
	}

	appID, err := strconv.ParseInt(c.GitHubAppID, 10, 64)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid github-app-id", goerr.V("value", c.GitHubAppID))
	}
	installationID, err := strconv.ParseInt(c.GitHubInstallationID, 10, 64)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid github-installation-id", goerr.V("value", c.GitHubInstallationID))
	}
	key, err := c.privateKey()
	if err != nil {
		return nil, err
	}

	return github.NewAppClient(github.AppCredentials{
		AppID:          appID,
		InstallationID: installationID,
		PrivateKey:     key,
	}, baseURL)
}

func (c *Source) privateKey() ([]byte, error) {
	if strings.HasPrefix(strings.TrimSpace(c.GitHubPrivateKey), "-----BEGIN") {
		return []byte(c.GitHubPrivateKey), nil
	}

	key, err := os.ReadFile(c.GitHubPrivateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read GitHub App private key", goerr.V("path", c.GitHubPrivateKey))
	}
	return key, nil
}
