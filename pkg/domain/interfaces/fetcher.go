package interfaces

import (
	"context"
)

// Fetcher retrieves the payload a locator points to. Implementations return
// errors wrapping model.ErrSourceNotFound when the remote reports the object
// missing, and model.ErrSourceUnavailable for other failures.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// GitHubClient defines operations for interacting with GitHub API
type GitHubClient interface {
	// DownloadZipball downloads the source code zipball for a specific ref
	DownloadZipball(ctx context.Context, owner, repo, ref string) ([]byte, error)

	// DownloadContents downloads a single file of a repository at ref
	DownloadContents(ctx context.Context, owner, repo, ref, path string) ([]byte, error)
}
