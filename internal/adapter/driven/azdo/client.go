// Package azdo implements the DevOpsClient port against the Azure DevOps
// REST API.
package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
	"github.com/ericfisherdev/devpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DevOpsClient = (*Client)(nil)

const (
	apiVersion = "7.1"
	// pageSize is the upstream page size. A page shorter than this terminates
	// pagination; the API does not reliably return continuation tokens on all
	// endpoints.
	pageSize = 100
)

// HTTPDoer is implemented by http.Client. Injected for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements the driven.DevOpsClient port. The transport stack is:
//  1. httpcache (ETag-based conditional request caching)
//  2. net/http with PAT basic auth
//
// Every request acquires a rate-limit token and runs under the Retryer's
// backoff policy plus a per-call timeout.
type Client struct {
	doer           HTTPDoer
	baseURL        string
	org            string
	token          string
	retryer        *Retryer
	requestTimeout time.Duration
}

// NewClient creates an API client for one organization.
func NewClient(baseURL, org, token string, limiter *RateLimiter, maxRetries int, requestTimeout time.Duration) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()

	return &Client{
		doer:           &http.Client{Transport: cacheTransport},
		baseURL:        baseURL,
		org:            org,
		token:          token,
		retryer:        NewRetryer(limiter, maxRetries),
		requestTimeout: requestTimeout,
	}
}

// NewClientWithDoer creates a Client with a custom HTTP doer and base URL.
// Intended for testing against an httptest server.
func NewClientWithDoer(doer HTTPDoer, baseURL, org, token string, limiter *RateLimiter, maxRetries int, requestTimeout time.Duration) *Client {
	return &Client{
		doer:           doer,
		baseURL:        baseURL,
		org:            org,
		token:          token,
		retryer:        NewRetryer(limiter, maxRetries),
		requestTimeout: requestTimeout,
	}
}

// ListProjects returns every project in the organization, walking all pages.
func (c *Client) ListProjects(ctx context.Context) ([]model.ProjectRef, error) {
	raws, err := fetchAllPages[wireProject](ctx, c, "list projects", "_apis/projects", nil)
	if err != nil {
		return nil, fmt.Errorf("listing projects for %s: %w", c.org, err)
	}

	projects := make([]model.ProjectRef, 0, len(raws))
	for _, p := range raws {
		projects = append(projects, model.ProjectRef{ID: p.ID, Name: p.Name})
	}

	return projects, nil
}

// ListRepositories returns all git repositories in a project.
func (c *Client) ListRepositories(ctx context.Context, project string) ([]model.RepositoryRef, error) {
	path := fmt.Sprintf("%s/_apis/git/repositories", url.PathEscape(project))

	var resp listResponse[wireRepository]
	if err := c.getJSON(ctx, "list repositories", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing repositories for %s: %w", project, err)
	}

	repos := make([]model.RepositoryRef, 0, len(resp.Value))
	for _, r := range resp.Value {
		repos = append(repos, model.RepositoryRef{ID: r.ID, Name: r.Name})
	}

	return repos, nil
}

// ListPullRequests returns all pull requests in the repository created at or
// after since, in all states, transformed into the persisted shape.
func (c *Client) ListPullRequests(ctx context.Context, project string, repo model.RepositoryRef, since time.Time) ([]model.PullRequest, error) {
	query := url.Values{}
	query.Set("searchCriteria.status", "all")
	query.Set("searchCriteria.minTime", since.UTC().Format(time.RFC3339))

	path := fmt.Sprintf("%s/_apis/git/repositories/%s/pullrequests",
		url.PathEscape(project), url.PathEscape(repo.ID))

	raws, err := fetchAllPages[wirePullRequest](ctx, c, "list pull requests", path, query)
	if err != nil {
		return nil, fmt.Errorf("listing pull requests for %s/%s: %w", project, repo.Name, err)
	}

	prs := make([]model.PullRequest, 0, len(raws))
	for _, raw := range raws {
		// The minTime search criterion is advisory upstream; enforce the
		// recency window here as well.
		if raw.CreationDate.Before(since) {
			continue
		}
		prs = append(prs, transformPullRequest(raw, project))
	}

	return prs, nil
}

// ListPullRequestThreads returns the discussion threads for one PR.
func (c *Client) ListPullRequestThreads(ctx context.Context, project, repoID string, prNumber int) ([]model.CommentThread, error) {
	path := fmt.Sprintf("%s/_apis/git/repositories/%s/pullRequests/%d/threads",
		url.PathEscape(project), url.PathEscape(repoID), prNumber)

	var resp listResponse[wireThread]
	if err := c.getJSON(ctx, "list threads", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing threads for %s/%s#%d: %w", project, repoID, prNumber, err)
	}

	threads := make([]model.CommentThread, 0, len(resp.Value))
	for _, raw := range resp.Value {
		threads = append(threads, transformThread(raw))
	}

	return threads, nil
}

// ListBuilds returns all CI runs in the project started at or after since,
// transformed into the persisted shape.
func (c *Client) ListBuilds(ctx context.Context, project string, since time.Time) ([]model.CIRun, error) {
	query := url.Values{}
	query.Set("minTime", since.UTC().Format(time.RFC3339))

	path := fmt.Sprintf("%s/_apis/build/builds", url.PathEscape(project))

	raws, err := fetchAllPages[wireBuild](ctx, c, "list builds", path, query)
	if err != nil {
		return nil, fmt.Errorf("listing builds for %s: %w", project, err)
	}

	runs := make([]model.CIRun, 0, len(raws))
	for _, raw := range raws {
		run := transformBuild(raw, project)
		if !run.StartedAt.IsZero() && run.StartedAt.Before(since) {
			continue
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// fetchAllPages walks a paged list endpoint with $top/$skip until a short
// page terminates the walk.
func fetchAllPages[T any](ctx context.Context, c *Client, operation, path string, query url.Values) ([]T, error) {
	var all []T

	for skip := 0; ; skip += pageSize {
		pageQuery := url.Values{}
		for key, values := range query {
			pageQuery[key] = values
		}
		pageQuery.Set("$top", strconv.Itoa(pageSize))
		pageQuery.Set("$skip", strconv.Itoa(skip))

		var page listResponse[T]
		if err := c.getJSON(ctx, operation, path, pageQuery, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Value...)

		slog.Debug("page fetched",
			"operation", operation,
			"skip", skip,
			"count", len(page.Value),
		)

		if len(page.Value) < pageSize {
			break
		}
	}

	return all, nil
}

// getJSON performs one GET under the retry policy and decodes the JSON body
// into out.
func (c *Client) getJSON(ctx context.Context, operation, path string, query url.Values, out any) error {
	return c.retryer.Execute(ctx, operation, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()

		requestURL := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.org), path)

		merged := url.Values{}
		for key, values := range query {
			merged[key] = values
		}
		merged.Set("api-version", apiVersion)
		requestURL += "?" + merged.Encode()

		req, err := http.NewRequestWithContext(callCtx, http.MethodGet, requestURL, nil)
		if err != nil {
			return fmt.Errorf("build request for %s: %w", operation, err)
		}
		req.SetBasicAuth("", c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.doer.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return &apiError{StatusCode: resp.StatusCode, URL: req.URL.Path}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}

		return nil
	})
}
