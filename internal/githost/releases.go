package githost

import (
	"context"
	"net/http"

	"github.com/shipkit-io/shipkit/internal/errors"
)

// Release is the subset of a GitHub release used in release reports.
type Release struct {
	Name  string
	URL   string
	Notes string
}

// GetReleaseByTag looks up the GitHub release for a tag. A missing release
// returns nil rather than an error, since tagging and publishing a release
// are separate steps.
func (c *Client) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*Release, error) {
	release, resp, err := c.gh.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to fetch release for tag "+tag, err)
	}
	return &Release{
		Name:  release.GetName(),
		URL:   release.GetHTMLURL(),
		Notes: release.GetBody(),
	}, nil
}
