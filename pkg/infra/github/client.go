package github

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/interfaces"
	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

type client struct {
	githubClient *github.Client
}

// ClientOption configures the GitHub client
type ClientOption func(*github.Client) error

// WithBaseURL points the client at a GitHub Enterprise or test API endpoint
func WithBaseURL(baseURL string) ClientOption {
	return func(c *github.Client) error {
		if baseURL == "" {
			return nil
		}
		if baseURL[len(baseURL)-1] != '/' {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return goerr.Wrap(err, "invalid GitHub API base URL", goerr.V("url", baseURL))
		}
		c.BaseURL = u
		return nil
	}
}

// NewClient creates a GitHub client. An empty token gives anonymous access,
// which is enough for public repositories within the rate limit.
func NewClient(token string, opts ...ClientOption) (interfaces.GitHubClient, error) {
	githubClient := github.NewClient(&http.Client{})
	if token != "" {
		githubClient = githubClient.WithAuthToken(token)
	}

	for _, opt := range opts {
		if err := opt(githubClient); err != nil {
			return nil, err
		}
	}

	return &client{
		githubClient: githubClient,
	}, nil
}

// AppCredentials identifies a GitHub App installation
type AppCredentials struct {
	AppID          int64
	InstallationID int64
	PrivateKey     []byte
}

// NewAppClient creates a GitHub client with App authentication, for
// repositories only the installation can read
func NewAppClient(creds AppCredentials, opts ...ClientOption) (interfaces.GitHubClient, error) {
	// Create GitHub App transport
	itr, err := ghinstallation.New(http.DefaultTransport, creds.AppID, creds.InstallationID, creds.PrivateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport",
			goerr.V("app_id", creds.AppID), goerr.V("installation_id", creds.InstallationID))
	}

	githubClient := github.NewClient(&http.Client{Transport: itr})
	for _, opt := range opts {
		if err := opt(githubClient); err != nil {
			return nil, err
		}
	}
	// Installation tokens come from the same API endpoint
	itr.BaseURL = strings.TrimSuffix(githubClient.BaseURL.String(), "/")

	return &client{
		githubClient: githubClient,
	}, nil
}

// DownloadZipball downloads the source code zipball for a specific ref
func (c *client) DownloadZipball(ctx context.Context, owner, repo, ref string) ([]byte, error) {
	// Get download URL for zipball
	link, resp, err := c.githubClient.Repositories.GetArchiveLink(ctx, owner, repo, github.Zipball, &github.RepositoryContentGetOptions{
		Ref: ref,
	}, 3) // Follow up to 3 redirects
	if err != nil {
		return nil, wrapAPIError(ctx, resp, err, "failed to get zipball download URL",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("ref", ref))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to create download request",
			goerr.V("url", link.String()), goerr.V("cause", err.Error()))
	}

	// Use the same client transport for authentication
	httpClient := &http.Client{Transport: c.githubClient.Client().Transport}
	dl, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to download zipball",
			goerr.V("url", link.String()), goerr.V("cause", err.Error()))
	}
	defer dl.Body.Close()

	if dl.StatusCode == http.StatusNotFound {
		return nil, goerr.Wrap(model.ErrSourceNotFound, "zipball not found", goerr.V("url", link.String()))
	}
	if dl.StatusCode != http.StatusOK {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "unexpected status code",
			goerr.V("url", link.String()), goerr.V("status", dl.StatusCode))
	}

	data, err := io.ReadAll(dl.Body)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to read zipball",
			goerr.V("url", link.String()), goerr.V("cause", err.Error()))
	}

	return data, nil
}

// DownloadContents downloads a single file of the repository at ref
func (c *client) DownloadContents(ctx context.Context, owner, repo, ref, path string) ([]byte, error) {
	body, resp, err := c.githubClient.Repositories.DownloadContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		return nil, wrapAPIError(ctx, resp, err, "failed to download repository file",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("ref", ref), goerr.V("path", path))
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to read repository file",
			goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	return data, nil
}

func wrapAPIError(ctx context.Context, resp *github.Response, err error, msg string, opts ...goerr.Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	opts = append(opts, goerr.V("cause", err.Error()))
	if resp != nil {
		opts = append(opts, goerr.V("status", resp.StatusCode))
		if resp.StatusCode == http.StatusNotFound {
			return goerr.Wrap(model.ErrSourceNotFound, msg, opts...)
		}
	}
	return goerr.Wrap(model.ErrSourceUnavailable, msg, opts...)
}
