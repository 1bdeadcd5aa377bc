// Package github_cli implements the ChecksClient port by shelling out to a
// pre-authenticated gh session (`gh api`). Credential acquisition is fully
// delegated to gh; this transport never sees a token.
package github_cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kubefleet-dev/checkretry/internal/domain"
)

var _ domain.ChecksClient = (*Client)(nil)

type Client struct {
	repo    domain.Repo
	timeout time.Duration
}

func New(repo domain.Repo, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{repo: repo, timeout: timeout}
}

// Authenticated reports whether gh holds a usable session. gh exits 0 from
// `gh auth status` iff logged in.
func Authenticated(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "gh", "auth", "status").Run() == nil
}

type prDTO struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Head   struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

type checkRunDTO struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	DetailsURL string `json:"details_url"`
}

type checkRunListDTO struct {
	CheckRuns []checkRunDTO `json:"check_runs"`
}

type workflowRunDTO struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

type workflowRunListDTO struct {
	WorkflowRuns []workflowRunDTO `json:"workflow_runs"`
}

func (c *Client) PullRequest(ctx context.Context, number int) (domain.PullRequest, error) {
	var dto prDTO
	endpoint := fmt.Sprintf("repos/%s/pulls/%d", c.repo, number)
	if err := c.api(ctx, "GET", endpoint, &dto); err != nil {
		return domain.PullRequest{}, fmt.Errorf("fetching pull request #%d: %w", number, err)
	}

	return domain.PullRequest{
		Number:  dto.Number,
		Title:   dto.Title,
		State:   dto.State,
		HeadSHA: dto.Head.SHA,
	}, nil
}

func (c *Client) CheckRuns(ctx context.Context, sha string) ([]domain.CheckRun, error) {
	var dto checkRunListDTO
	endpoint := fmt.Sprintf("repos/%s/commits/%s/check-runs?per_page=100", c.repo, sha)
	if err := c.api(ctx, "GET", endpoint, &dto); err != nil {
		return nil, fmt.Errorf("listing check runs for %s: %w", sha, err)
	}

	out := make([]domain.CheckRun, 0, len(dto.CheckRuns))
	for _, cr := range dto.CheckRuns {
		out = append(out, domain.CheckRun{
			ID:         cr.ID,
			Name:       cr.Name,
			Status:     domain.CheckStatus(cr.Status),
			Conclusion: domain.CheckConclusion(cr.Conclusion),
			DetailsURL: cr.DetailsURL,
		})
	}
	return out, nil
}

func (c *Client) WorkflowRuns(ctx context.Context, sha string) ([]domain.WorkflowRun, error) {
	var dto workflowRunListDTO
	endpoint := fmt.Sprintf("repos/%s/actions/runs?head_sha=%s&per_page=100", c.repo, sha)
	if err := c.api(ctx, "GET", endpoint, &dto); err != nil {
		return nil, fmt.Errorf("listing workflow runs for %s: %w", sha, err)
	}

	out := make([]domain.WorkflowRun, 0, len(dto.WorkflowRuns))
	for _, wr := range dto.WorkflowRuns {
		out = append(out, domain.WorkflowRun{
			ID:         wr.ID,
			Name:       wr.Name,
			Status:     domain.CheckStatus(wr.Status),
			Conclusion: domain.CheckConclusion(wr.Conclusion),
		})
	}
	return out, nil
}

func (c *Client) RerunCheckRun(ctx context.Context, id int64) (bool, error) {
	endpoint := fmt.Sprintf("repos/%s/check-runs/%d/rerequest", c.repo, id)
	return c.rerun(ctx, endpoint, id)
}

func (c *Client) RerunFailedJobs(ctx context.Context, id int64) (bool, error) {
	endpoint := fmt.Sprintf("repos/%s/actions/runs/%d/rerun-failed-jobs", c.repo, id)
	return c.rerun(ctx, endpoint, id)
}

func (c *Client) rerun(ctx context.Context, endpoint string, id int64) (bool, error) {
	err := c.api(ctx, "POST", endpoint, nil)
	if err == nil {
		return true, nil
	}
	if deniedStderr(err) {
		return false, nil
	}
	return false, fmt.Errorf("re-run request for %d: %w", id, err)
}

// api invokes `gh api` and decodes its stdout. gh exits non-zero on HTTP
// errors and prints the status to stderr; apiError keeps that output for
// classification.
func (c *Client) api(ctx context.Context, method, endpoint string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "gh", "api", "-X", method, endpoint)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		apiErr := &apiError{endpoint: endpoint, stderr: strings.TrimSpace(stderr.String()), err: err}
		switch {
		case strings.Contains(apiErr.stderr, "(HTTP 404)"):
			return fmt.Errorf("%s: %w", apiErr, domain.ErrNotFound)
		case strings.Contains(apiErr.stderr, "(HTTP 401)"):
			return fmt.Errorf("%s: %w", apiErr, domain.ErrUnauthorized)
		}
		return apiErr
	}

	if out != nil && stdout.Len() > 0 {
		if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
			return fmt.Errorf("decoding gh api %s output: %w", endpoint, err)
		}
	}
	return nil
}

type apiError struct {
	endpoint string
	stderr   string
	err      error
}

func (e *apiError) Error() string {
	if e.stderr != "" {
		return fmt.Sprintf("gh api %s: %s", e.endpoint, e.stderr)
	}
	return fmt.Sprintf("gh api %s: %v", e.endpoint, e.err)
}

func (e *apiError) Unwrap() error { return e.err }

// deniedStderr matches the expected non-fatal re-run refusals.
func deniedStderr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "(HTTP 403)") || strings.Contains(msg, "(HTTP 404)")
}
