package collector

import (
	"context"
	"time"

	"github.com/google/go-github/v55/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/harvestkit/bucket-harvest/internal/domain"
	"github.com/harvestkit/bucket-harvest/internal/logging"
)

const (
	// repoPageSize is the upper bound GitHub accepts per page.
	repoPageSize = 100

	// issuePageSize is deliberately smaller to keep single requests cheap
	// while walking deep issue listings.
	issuePageSize = 50

	// metricsWindow is the lookback used for per-repo activity counts.
	metricsWindow = 30 * 24 * time.Hour
)

// githubCollector implements Collector using the GitHub REST API
type githubCollector struct {
	client         *github.Client
	rateLimiter    RateLimiter
	retryBackoff   time.Duration
	rateLimitFloor time.Duration
	log            zerolog.Logger
}

// NewGitHubCollector creates a new GitHub collector authenticated with token
func NewGitHubCollector(token string) Collector {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return NewCollectorWithClient(github.NewClient(tc))
}

// NewCollectorWithClient creates a collector around an existing client.
// Used by tests to point at a local server.
func NewCollectorWithClient(client *github.Client) Collector {
	return &githubCollector{
		client:         client,
		rateLimiter:    NewRateLimiter(),
		retryBackoff:   transientBackoff,
		rateLimitFloor: minRateLimitWait,
		log:            logging.NewLogger("collector"),
	}
}

// GetRepositories retrieves all repositories for an organization, most
// recently pushed first. Pagination starts at page 1 and stops when a page
// returns fewer raw items than the page size (or none at all). On an
// unrecoverable failure mid-collection the repositories collected so far
// are returned; the failure only propagates when nothing was collected.
func (c *githubCollector) GetRepositories(ctx context.Context, org string, onPage PageCallback) ([]domain.Repository, error) {
	var all []domain.Repository

	opts := &github.RepositoryListByOrgOptions{
		Sort:        "pushed",
		Direction:   "desc",
		ListOptions: github.ListOptions{Page: 1, PerPage: repoPageSize},
	}

	for {
		var repos []*github.Repository
		err := c.withRetry(ctx, "list org repos", func() (*github.Response, error) {
			var resp *github.Response
			var err error
			repos, resp, err = c.client.Repositories.ListByOrg(ctx, org, opts)
			return resp, err
		})
		if err != nil {
			if len(all) > 0 {
				c.log.Warn().Err(err).Int("collected", len(all)).
					Msg("repository listing failed mid-collection, keeping partial result")
				return all, nil
			}
			return nil, err
		}

		for _, repo := range repos {
			all = append(all, domain.Repository{
				Name:        repo.GetName(),
				FullName:    repo.GetFullName(),
				HTMLURL:     repo.GetHTMLURL(),
				Stars:       repo.GetStargazersCount(),
				Language:    repo.GetLanguage(),
				Description: repo.GetDescription(),
				OpenIssues:  repo.GetOpenIssuesCount(),
				Forks:       repo.GetForksCount(),
				PushedAt:    repo.GetPushedAt().Time,
				Archived:    repo.GetArchived(),
				Disabled:    repo.GetDisabled(),
			})
		}

		if onPage != nil {
			onPage(opts.Page, len(repos), len(all))
		}

		// End-of-pagination is decided on the raw item count.
		if len(repos) < repoPageSize {
			break
		}
		opts.Page++
	}

	return all, nil
}

// GetOpenIssues retrieves up to max open issues, most recently created
// first. The API interleaves pull requests into issue listings; they are
// excluded from the result, but the end-of-pagination decision uses the
// raw item count so a page full of pull requests does not end the walk.
func (c *githubCollector) GetOpenIssues(ctx context.Context, owner, repo string, max int, onPage PageCallback) ([]domain.IssueRef, error) {
	var all []domain.IssueRef

	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{Page: 1, PerPage: issuePageSize},
	}

	for len(all) < max {
		var issues []*github.Issue
		err := c.withRetry(ctx, "list issues", func() (*github.Response, error) {
			var resp *github.Response
			var err error
			issues, resp, err = c.client.Issues.ListByRepo(ctx, owner, repo, opts)
			return resp, err
		})
		if err != nil {
			if len(all) > 0 {
				c.log.Warn().Err(err).Int("collected", len(all)).
					Msg("issue listing failed mid-collection, keeping partial result")
				return all, nil
			}
			return nil, err
		}

		rawCount := len(issues)
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			all = append(all, domain.IssueRef{
				Number:    issue.GetNumber(),
				CreatedAt: issue.GetCreatedAt().Time,
			})
		}

		if onPage != nil {
			onPage(opts.Page, rawCount, len(all))
		}

		if rawCount < issuePageSize {
			break
		}
		opts.Page++
	}

	return all, nil
}

// GetRepositoryMetrics retrieves fresh activity metrics for one repository.
// Contributor and activity counts are first-page approximations, which is
// accurate up to one page and cheap beyond it.
func (c *githubCollector) GetRepositoryMetrics(ctx context.Context, owner, repo string) (domain.RepoMetrics, error) {
	var repoData *github.Repository
	err := c.withRetry(ctx, "get repo", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		repoData, resp, err = c.client.Repositories.Get(ctx, owner, repo)
		return resp, err
	})
	if err != nil {
		return domain.RepoMetrics{}, err
	}

	metrics := domain.RepoMetrics{
		Repo:        repo,
		Stars:       repoData.GetStargazersCount(),
		HTMLURL:     repoData.GetHTMLURL(),
		Language:    repoData.GetLanguage(),
		Description: repoData.GetDescription(),
	}

	var contributors []*github.Contributor
	err = c.withRetry(ctx, "list contributors", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		contributors, resp, err = c.client.Repositories.ListContributors(ctx, owner, repo,
			&github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: repoPageSize}})
		return resp, err
	})
	if err != nil {
		// Empty repositories commonly fail here; keep the rest.
		c.log.Debug().Err(err).Str("repo", repo).Msg("contributor listing failed")
	} else {
		metrics.Contributors = len(contributors)
	}

	since := time.Now().Add(-metricsWindow)

	var commits []*github.RepositoryCommit
	err = c.withRetry(ctx, "list commits", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		commits, resp, err = c.client.Repositories.ListCommits(ctx, owner, repo,
			&github.CommitsListOptions{Since: since, ListOptions: github.ListOptions{PerPage: repoPageSize}})
		return resp, err
	})
	if err != nil {
		c.log.Debug().Err(err).Str("repo", repo).Msg("commit listing failed")
	} else {
		metrics.Commits30d = len(commits)
	}

	var pulls []*github.PullRequest
	err = c.withRetry(ctx, "list closed pulls", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		pulls, resp, err = c.client.PullRequests.List(ctx, owner, repo,
			&github.PullRequestListOptions{State: "closed", ListOptions: github.ListOptions{PerPage: repoPageSize}})
		return resp, err
	})
	if err != nil {
		c.log.Debug().Err(err).Str("repo", repo).Msg("pull listing failed")
	} else {
		for _, pr := range pulls {
			if pr.GetClosedAt().After(since) {
				metrics.ClosedPRs30d++
			}
		}
	}

	return metrics, nil
}

// GetIssueDetail retrieves the full issue record including all comments.
func (c *githubCollector) GetIssueDetail(ctx context.Context, owner, repo string, number int) (*domain.IssueDetail, error) {
	var issue *github.Issue
	err := c.withRetry(ctx, "get issue", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		issue, resp, err = c.client.Issues.Get(ctx, owner, repo, number)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	detail := &domain.IssueDetail{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		HTMLURL:   issue.GetHTMLURL(),
		CreatedAt: issue.GetCreatedAt().Time,
		Author:    issue.GetUser().GetLogin(),
		State:     issue.GetState(),
		Body:      issue.GetBody(),
	}
	for _, label := range issue.Labels {
		detail.Labels = append(detail.Labels, label.GetName())
	}

	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{Page: 1, PerPage: repoPageSize},
	}
	for {
		var comments []*github.IssueComment
		err := c.withRetry(ctx, "list issue comments", func() (*github.Response, error) {
			var resp *github.Response
			var err error
			comments, resp, err = c.client.Issues.ListComments(ctx, owner, repo, number, opts)
			return resp, err
		})
		if err != nil {
			// The detail file is still useful without comments.
			c.log.Warn().Err(err).Int("issue", number).Msg("comment listing failed")
			break
		}

		for _, comment := range comments {
			detail.Comments = append(detail.Comments, domain.IssueComment{
				Author:    comment.GetUser().GetLogin(),
				CreatedAt: comment.GetCreatedAt().Time,
				Body:      comment.GetBody(),
			})
		}

		if len(comments) < repoPageSize {
			break
		}
		opts.Page++
	}

	return detail, nil
}
