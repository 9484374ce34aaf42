package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v55/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/tim48-robot/disgitbot/internal/domain"
	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
	"github.com/tim48-robot/disgitbot/internal/metrics"
)

const perPage = 100

// githubCollector implements Collector using GitHub API
type githubCollector struct {
	client      *github.Client
	rateLimiter RateLimiter
	concurrency int
	logger      *zap.Logger
}

// NewGitHubCollector creates a new GitHub collector
func NewGitHubCollector(token string, concurrency int, logger *zap.Logger) Collector {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	return newCollector(github.NewClient(tc), NewRateLimiter(100*time.Millisecond, logger), concurrency, logger)
}

func newCollector(client *github.Client, limiter RateLimiter, concurrency int, logger *zap.Logger) *githubCollector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &githubCollector{
		client:      client,
		rateLimiter: limiter,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ListRepositories retrieves all repositories of an organization, falling back
// to the user listing for personal accounts
func (c *githubCollector) ListRepositories(ctx context.Context, owner string) ([]domain.RepositoryRef, error) {
	var all []domain.RepositoryRef
	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		repos, resp, err := c.client.Repositories.ListByOrg(ctx, owner, opts)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound && len(all) == 0 {
				return c.listUserRepositories(ctx, owner)
			}
			return nil, classify(resp, err, "failed to list repositories for %s", owner)
		}
		c.track(resp)
		all = appendRepositoryRefs(all, repos)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func (c *githubCollector) listUserRepositories(ctx context.Context, user string) ([]domain.RepositoryRef, error) {
	var all []domain.RepositoryRef
	opts := &github.RepositoryListOptions{
		Type:        "owner",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		repos, resp, err := c.client.Repositories.List(ctx, user, opts)
		if err != nil {
			return nil, classify(resp, err, "failed to list repositories for user %s", user)
		}
		c.track(resp)
		all = appendRepositoryRefs(all, repos)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func appendRepositoryRefs(dst []domain.RepositoryRef, repos []*github.Repository) []domain.RepositoryRef {
	for _, repo := range repos {
		dst = append(dst, domain.RepositoryRef{
			Owner:     repo.GetOwner().GetLogin(),
			Name:      repo.GetName(),
			IsPrivate: repo.GetPrivate(),
			IsFork:    repo.GetFork(),
		})
	}
	return dst
}

// CollectRepository retrieves repository info, contributors, merged pull
// requests, issues and commits of one repository
func (c *githubCollector) CollectRepository(ctx context.Context, owner, repo string) (*domain.RepositoryPayload, error) {
	payload := &domain.RepositoryPayload{Name: repo, Owner: owner}

	info, err := c.getRepositoryInfo(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	payload.Info = info

	if payload.Contributors, err = c.getContributors(ctx, owner, repo); err != nil {
		return nil, err
	}
	if payload.PullRequests, err = c.getMergedPullRequests(ctx, owner, repo); err != nil {
		return nil, err
	}
	if payload.Issues, err = c.getIssues(ctx, owner, repo); err != nil {
		return nil, err
	}
	if payload.Commits, err = c.getCommits(ctx, owner, repo); err != nil {
		return nil, err
	}

	c.logger.Debug("Collected repository",
		zap.String("repo", owner+"/"+repo),
		zap.Int("contributors", len(payload.Contributors)),
		zap.Int("pull_requests", len(payload.PullRequests)),
		zap.Int("issues", len(payload.Issues)),
		zap.Int("commits", len(payload.Commits)))

	return payload, nil
}

func (c *githubCollector) getRepositoryInfo(ctx context.Context, owner, repo string) (domain.RepositoryInfo, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return domain.RepositoryInfo{}, err
	}
	r, resp, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return domain.RepositoryInfo{}, classify(resp, err, "failed to get repository %s/%s", owner, repo)
	}
	c.track(resp)
	return domain.RepositoryInfo{
		Stars: r.GetStargazersCount(),
		Forks: r.GetForksCount(),
	}, nil
}

func (c *githubCollector) getContributors(ctx context.Context, owner, repo string) ([]domain.ContributorRecord, error) {
	var all []domain.ContributorRecord
	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		contributors, resp, err := c.client.Repositories.ListContributors(ctx, owner, repo, opts)
		if err != nil {
			return nil, classify(resp, err, "failed to list contributors for %s/%s", owner, repo)
		}
		c.track(resp)

		for _, contributor := range contributors {
			all = append(all, domain.ContributorRecord{Login: contributor.GetLogin()})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func (c *githubCollector) getMergedPullRequests(ctx context.Context, owner, repo string) ([]domain.PullRequestRecord, error) {
	var all []domain.PullRequestRecord
	opts := &github.PullRequestListOptions{
		State:       "closed",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, classify(resp, err, "failed to list pull requests for %s/%s", owner, repo)
		}
		c.track(resp)

		for _, pr := range prs {
			if pr.MergedAt == nil {
				continue
			}
			all = append(all, domain.PullRequestRecord{
				Number:     pr.GetNumber(),
				Author:     pr.GetUser().GetLogin(),
				CreatedAt:  formatTimestamp(pr.GetCreatedAt()),
				Repository: repo,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func (c *githubCollector) getIssues(ctx context.Context, owner, repo string) ([]domain.IssueRecord, error) {
	var all []domain.IssueRecord
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			// Repositories with issues disabled answer 410
			if resp != nil && resp.StatusCode == http.StatusGone {
				return all, nil
			}
			return nil, classify(resp, err, "failed to list issues for %s/%s", owner, repo)
		}
		c.track(resp)

		for _, issue := range issues {
			all = append(all, domain.IssueRecord{
				Number:        issue.GetNumber(),
				Author:        issue.GetUser().GetLogin(),
				CreatedAt:     formatTimestamp(issue.GetCreatedAt()),
				IsPullRequest: issue.IsPullRequest(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func (c *githubCollector) getCommits(ctx context.Context, owner, repo string) ([]domain.CommitRecord, error) {
	var all []domain.CommitRecord
	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		commits, resp, err := c.client.Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			// Skip if repository is empty or has no commits
			if resp != nil && resp.StatusCode == http.StatusConflict {
				return all, nil
			}
			return nil, classify(resp, err, "failed to list commits for %s/%s", owner, repo)
		}
		c.track(resp)

		for _, commit := range commits {
			all = append(all, domain.CommitRecord{
				SHA:    commit.GetSHA(),
				Author: commit.GetAuthor().GetLogin(),
				Date:   formatTimestamp(commit.GetCommit().GetAuthor().GetDate()),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// CollectOrganizationData collects all data for an organization. Repositories
// are fetched with bounded concurrency; results keep the listing order.
func (c *githubCollector) CollectOrganizationData(ctx context.Context, owner string, onProgress ProgressCallback) (*domain.OrganizationPayload, error) {
	repos, err := c.ListRepositories(ctx, owner)
	if err != nil {
		return nil, err
	}

	results := make([]*domain.RepositoryPayload, len(repos))
	errs := make([]error, len(repos))
	var done int
	var mu sync.Mutex
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, c.concurrency)

	for i, repo := range repos {
		wg.Add(1)
		go func(r domain.RepositoryRef, index int) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			repoOwner := r.Owner
			if repoOwner == "" {
				repoOwner = owner
			}
			results[index], errs[index] = c.CollectRepository(ctx, repoOwner, r.Name)

			if onProgress != nil {
				mu.Lock()
				done++
				onProgress(r.Name, float64(done)/float64(len(repos)))
				mu.Unlock()
			}
		}(repo, i)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload := &domain.OrganizationPayload{Owner: owner, CollectedAt: time.Now().UTC()}
	for i, repo := range repos {
		if errs[i] != nil {
			c.logger.Warn("Skipping repository after collection failure",
				zap.String("repo", repo.Name),
				zap.Error(errs[i]))
			payload.FailedRepositories = append(payload.FailedRepositories, repo.Name)
			continue
		}
		payload.Repositories = append(payload.Repositories, *results[i])
	}

	return payload, nil
}

// track counts the request and feeds the rate limiter from the response
func (c *githubCollector) track(resp *github.Response) {
	metrics.GitHubRequestsTotal.Inc()
	if resp != nil && resp.Rate.Limit > 0 {
		c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

// classify maps GitHub failures that callers treat differently onto app error
// codes; anything else is wrapped as is
func classify(resp *github.Response, err error, format string, args ...any) error {
	message := fmt.Sprintf(format, args...)

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		metrics.GitHubRateLimitHitsTotal.Inc()
		return apperrors.NewRateLimitedError(message, err)
	case resp != nil && resp.StatusCode == http.StatusUnauthorized:
		return apperrors.NewUnauthorizedError(message, err)
	case resp != nil && resp.StatusCode == http.StatusForbidden:
		return apperrors.NewForbiddenError(message, err)
	}
	return fmt.Errorf("%s: %w", message, err)
}

func formatTimestamp(ts github.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
