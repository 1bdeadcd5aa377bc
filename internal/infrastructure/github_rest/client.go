// Package github_rest implements the ChecksClient port against the GitHub
// REST API with a bearer token, using the go-github library wrapped in the
// secondary-rate-limit middleware.
package github_rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"

	"github.com/kubefleet-dev/checkretry/internal/domain"
)

var _ domain.ChecksClient = (*Client)(nil)

type Client struct {
	gh   *gh.Client
	repo domain.Repo
}

func New(baseURL, token string, repo domain.Repo, timeout time.Duration) (*Client, error) {
	hc := github_ratelimit.NewClient(nil)
	hc.Timeout = timeout

	client := gh.NewClient(hc).WithAuthToken(token)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		client.BaseURL = u
	}

	return &Client{gh: client, repo: repo}, nil
}

// NewWithHTTPClient builds a Client on a caller-supplied http.Client and
// base URL, for tests with httptest servers.
func NewWithHTTPClient(hc *http.Client, baseURL string, repo domain.Repo) (*Client, error) {
	client := gh.NewClient(hc)

	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client, repo: repo}, nil
}

func (c *Client) PullRequest(ctx context.Context, number int) (domain.PullRequest, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, c.repo.Owner, c.repo.Name, number)
	if err != nil {
		return domain.PullRequest{}, readError(fmt.Sprintf("fetching pull request #%d", number), resp, err)
	}

	return domain.PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		State:   pr.GetState(),
		HeadSHA: pr.GetHead().GetSHA(),
	}, nil
}

func (c *Client) CheckRuns(ctx context.Context, sha string) ([]domain.CheckRun, error) {
	opts := &gh.ListCheckRunsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var out []domain.CheckRun
	for {
		result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, c.repo.Owner, c.repo.Name, sha, opts)
		if err != nil {
			return nil, readError(fmt.Sprintf("listing check runs for %s", sha), resp, err)
		}

		for _, cr := range result.CheckRuns {
			out = append(out, domain.CheckRun{
				ID:         cr.GetID(),
				Name:       cr.GetName(),
				Status:     domain.CheckStatus(cr.GetStatus()),
				Conclusion: domain.CheckConclusion(cr.GetConclusion()),
				DetailsURL: cr.GetDetailsURL(),
			})
		}

		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) WorkflowRuns(ctx context.Context, sha string) ([]domain.WorkflowRun, error) {
	opts := &gh.ListWorkflowRunsOptions{
		HeadSHA:     sha,
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var out []domain.WorkflowRun
	for {
		result, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, c.repo.Owner, c.repo.Name, opts)
		if err != nil {
			return nil, readError(fmt.Sprintf("listing workflow runs for %s", sha), resp, err)
		}

		for _, wr := range result.WorkflowRuns {
			out = append(out, domain.WorkflowRun{
				ID:         wr.GetID(),
				Name:       wr.GetName(),
				Status:     domain.CheckStatus(wr.GetStatus()),
				Conclusion: domain.CheckConclusion(wr.GetConclusion()),
			})
		}

		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) RerunCheckRun(ctx context.Context, id int64) (bool, error) {
	resp, err := c.gh.Checks.ReRequestCheckRun(ctx, c.repo.Owner, c.repo.Name, id)
	if err != nil {
		if denied(resp) {
			return false, nil
		}
		return false, fmt.Errorf("re-requesting check run %d: %w", id, err)
	}
	return true, nil
}

func (c *Client) RerunFailedJobs(ctx context.Context, id int64) (bool, error) {
	resp, err := c.gh.Actions.RerunFailedJobsByID(ctx, c.repo.Owner, c.repo.Name, id)
	if err != nil {
		if denied(resp) {
			return false, nil
		}
		return false, fmt.Errorf("re-running failed jobs of workflow run %d: %w", id, err)
	}
	return true, nil
}

// denied reports the expected non-fatal re-run outcomes: insufficient
// permission or an expired/removed target.
func denied(resp *gh.Response) bool {
	return resp != nil &&
		(resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound)
}

func readError(op string, resp *gh.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", op, domain.ErrUnauthorized)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
