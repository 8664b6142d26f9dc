package github

import (
	"context"
	"fmt"
	"regexp"

	perr "gitstr/internal/platform/errors"
)

// Repo fetches the repository resource
func (c *Client) Repo(ctx context.Context, owner, repo string) (Repo, error) {
	var out Repo
	_, err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo), &out)
	return out, err
}

var lastPageRe = regexp.MustCompile(`[?&]page=(\d+)>; rel="last"`)

// RootCommit resolves the hash of the oldest commit on the default branch.
// The commits listing is newest-first, so with per_page=1 the Link header's
// last page points at the root commit.
func (c *Client) RootCommit(ctx context.Context, owner, repo string) (string, error) {
	repoData, err := c.Repo(ctx, owner, repo)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("/repos/%s/%s/commits?per_page=1", owner, repo)
	var page []Commit
	hdr, err := c.getJSON(ctx, path, &page)
	if err != nil {
		return "", err
	}

	lastPage := 1
	if link := hdr.Get("Link"); link != "" {
		if m := lastPageRe.FindStringSubmatch(link); m != nil {
			lastPage = atoi(m[1])
		}
	}

	if lastPage > 1 {
		path = fmt.Sprintf("/repos/%s/%s/commits?sha=%s&per_page=1&page=%d",
			owner, repo, repoData.DefaultBranch, lastPage)
		page = page[:0]
		if _, err := c.getJSON(ctx, path, &page); err != nil {
			return "", err
		}
	}

	if len(page) == 0 {
		return "", perr.UpstreamFetchf("no commits for %s/%s", owner, repo)
	}
	return page[0].SHA, nil
}

// Issue fetches one issue (or pull request) resource
func (c *Client) Issue(ctx context.Context, owner, repo string, number int) (Issue, error) {
	var out Issue
	_, err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number), &out)
	return out, err
}

// IssueComments fetches all comments of an issue in upstream order
func (c *Client) IssueComments(ctx context.Context, owner, repo string, number int) ([]Comment, error) {
	const perPage = 100
	var all []Comment
	for page := 1; ; page++ {
		path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments?per_page=%d&page=%d",
			owner, repo, number, perPage, page)
		var batch []Comment
		if _, err := c.getJSON(ctx, path, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			return all, nil
		}
	}
}
