package collector

import (
	"context"

	"github.com/harvestkit/bucket-harvest/internal/domain"
)

// PageCallback is invoked after every fetched page with the page number,
// the raw item count the API returned, and the running entity total.
type PageCallback func(page, rawCount, total int)

// Collector defines the interface for fetching GitHub data
type Collector interface {
	// GetRepositories retrieves all repositories for an organization,
	// most recently pushed first.
	GetRepositories(ctx context.Context, org string, onPage PageCallback) ([]domain.Repository, error)

	// GetOpenIssues retrieves up to max open issues for a repository,
	// most recently created first. Pull requests are excluded.
	GetOpenIssues(ctx context.Context, owner, repo string, max int, onPage PageCallback) ([]domain.IssueRef, error)

	// GetRepositoryMetrics retrieves fresh activity metrics for one
	// repository (contributor count, commits and closed PRs in the last
	// 30 days).
	GetRepositoryMetrics(ctx context.Context, owner, repo string) (domain.RepoMetrics, error)

	// GetIssueDetail retrieves the full issue record including comments.
	GetIssueDetail(ctx context.Context, owner, repo string, number int) (*domain.IssueDetail, error)
}
