package harvest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestkit/bucket-harvest/internal/collector"
	"github.com/harvestkit/bucket-harvest/internal/domain"
	apperrors "github.com/harvestkit/bucket-harvest/internal/errors"
	"github.com/harvestkit/bucket-harvest/internal/report"
	"github.com/harvestkit/bucket-harvest/internal/storage/sqlite"
)

// fakeCollector serves canned data for flow tests.
type fakeCollector struct {
	repos      []domain.Repository
	reposErr   error
	issues     []domain.IssueRef
	issuesErr  error
	metrics    map[string]domain.RepoMetrics
	metricsErr map[string]error
	details    map[int]*domain.IssueDetail
	detailErr  map[int]error
}

var _ collector.Collector = (*fakeCollector)(nil)

func (f *fakeCollector) GetRepositories(_ context.Context, _ string, _ collector.PageCallback) ([]domain.Repository, error) {
	return f.repos, f.reposErr
}

func (f *fakeCollector) GetOpenIssues(_ context.Context, _, _ string, _ int, _ collector.PageCallback) ([]domain.IssueRef, error) {
	return f.issues, f.issuesErr
}

func (f *fakeCollector) GetRepositoryMetrics(_ context.Context, _, repo string) (domain.RepoMetrics, error) {
	if err, ok := f.metricsErr[repo]; ok {
		return domain.RepoMetrics{}, err
	}
	return f.metrics[repo], nil
}

func (f *fakeCollector) GetIssueDetail(_ context.Context, _, _ string, number int) (*domain.IssueDetail, error) {
	if err, ok := f.detailErr[number]; ok {
		return nil, err
	}
	return f.details[number], nil
}

func activeRepo(name string, daysAgo int) domain.Repository {
	return domain.Repository{
		Name:     name,
		FullName: "acme/" + name,
		HTMLURL:  "https://github.com/acme/" + name,
		PushedAt: time.Now().UTC().AddDate(0, 0, -daysAgo),
	}
}

func TestRunOrgBuckets(t *testing.T) {
	dir := t.TempDir()

	fake := &fakeCollector{
		repos: []domain.Repository{
			activeRepo("fresh", 10),
			activeRepo("stale", 500),
			activeRepo("busy", 1),
			{Name: "dead", FullName: "acme/dead", PushedAt: time.Now(), Archived: true},
		},
	}

	store, err := sqlite.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer store.Close()

	svc := NewService(fake, store)
	result, err := svc.RunOrgBuckets(context.Background(), OrgBucketsOptions{
		Org:     "acme",
		Buckets: 2,
		Days:    365,
		OutDir:  dir,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalRepos)
	assert.Equal(t, 2, result.ActiveRepos)
	assert.Equal(t, 2, result.FilesOut)
	assert.NotEmpty(t, result.SessionID)
	assert.FileExists(t, result.SummaryPath)
	assert.FileExists(t, filepath.Join(dir, "org_bucket_1.csv"))
	assert.FileExists(t, filepath.Join(dir, "org_bucket_2.csv"))

	// The session record holds one assignment per active repository.
	assignments, err := store.GetAssignments(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, "acme/busy", assignments[0].EntityID)
	assert.Equal(t, 1, assignments[0].BucketID)
}

func TestRunOrgBuckets_NoActiveRepos(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeCollector{
		repos: []domain.Repository{activeRepo("stale", 1000)},
	}

	svc := NewService(fake, nil)
	result, err := svc.RunOrgBuckets(context.Background(), OrgBucketsOptions{
		Org: "acme", Buckets: 3, Days: 30, OutDir: dir,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalRepos)
	assert.Zero(t, result.ActiveRepos)
	assert.Zero(t, result.FilesOut)
	assert.NoFileExists(t, filepath.Join(dir, "org_bucket_1.csv"))
}

func TestRunOrgBuckets_CollectorError(t *testing.T) {
	fake := &fakeCollector{reposErr: apperrors.NewNotFoundError("orgs/nope")}

	svc := NewService(fake, nil)
	_, err := svc.RunOrgBuckets(context.Background(), OrgBucketsOptions{
		Org: "nope", Buckets: 3, Days: 30, OutDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func writeBucketFixture(t *testing.T, dir string, names ...string) {
	t.Helper()
	repos := make([]domain.Repository, len(names))
	for i, name := range names {
		repos[i] = activeRepo(name, i+1)
	}
	_, err := report.WriteOrgBuckets(dir, [][]domain.Repository{repos})
	require.NoError(t, err)
}

func TestRunProcess(t *testing.T) {
	dir := t.TempDir()
	writeBucketFixture(t, dir, "busy", "quiet", "broken")

	fake := &fakeCollector{
		metrics: map[string]domain.RepoMetrics{
			"busy":  {Repo: "busy", Commits30d: 40, ClosedPRs30d: 10, Language: "Go"},
			"quiet": {Repo: "quiet", Commits30d: 2, ClosedPRs30d: 0, Language: "Go"},
		},
		metricsErr: map[string]error{
			"broken": apperrors.NewTransientError("listing failed", nil),
		},
	}

	svc := NewService(fake, nil)
	result, err := svc.RunProcess(context.Background(), ProcessOptions{
		Org: "acme", Workers: 2, OutDir: dir,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.FileExists(t, result.AnalysisPath)
	assert.FileExists(t, result.ReportPath)

	require.Len(t, result.Top, 3)
	assert.Equal(t, "busy", result.Top[0].Repo)

	data, err := os.ReadFile(result.AnalysisPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "busy")
	// The failed repository still appears, zero-valued.
	assert.Contains(t, string(data), "broken")
}

func TestRunProcess_NoBucketFiles(t *testing.T) {
	svc := NewService(&fakeCollector{}, nil)

	result, err := svc.RunProcess(context.Background(), ProcessOptions{
		Org: "acme", Workers: 2, OutDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Zero(t, result.Total)
}

func TestRunProcess_AllFail(t *testing.T) {
	dir := t.TempDir()
	writeBucketFixture(t, dir, "a", "b")

	fake := &fakeCollector{
		metricsErr: map[string]error{
			"a": apperrors.NewTransientError("boom", nil),
			"b": apperrors.NewTransientError("boom", nil),
		},
	}

	svc := NewService(fake, nil)
	_, err := svc.RunProcess(context.Background(), ProcessOptions{
		Org: "acme", Workers: 2, OutDir: dir,
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodePartialFailure, appErr.Code)
}

func issueRef(number, daysAgo int) domain.IssueRef {
	return domain.IssueRef{
		Number:    number,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -daysAgo),
	}
}

func TestRunIssues(t *testing.T) {
	dir := t.TempDir()

	fake := &fakeCollector{
		issues: []domain.IssueRef{
			issueRef(1, 5), issueRef(2, 1), issueRef(3, 3),
		},
		details: map[int]*domain.IssueDetail{
			1: {Number: 1, Title: "one", State: "open"},
			2: {Number: 2, Title: "two", State: "open"},
		},
		detailErr: map[int]error{
			3: apperrors.NewTransientError("fetch failed", nil),
		},
	}

	svc := NewService(fake, nil)
	result, err := svc.RunIssues(context.Background(), IssuesOptions{
		Owner: "acme", Repo: "widget",
		Buckets: 2, Workers: 2, Limit: 10,
		OutDir: dir,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Collected)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.FileExists(t, result.AssignmentPath)
	assert.FileExists(t, result.SummaryPath)
	assert.FileExists(t, filepath.Join(dir, "1.md"))
	assert.FileExists(t, filepath.Join(dir, "2.md"))

	// The failed issue still gets a placeholder artifact.
	data, err := os.ReadFile(filepath.Join(dir, "3.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[FAILED TO FETCH]")

	// Assignments follow recency order round-robin: newest issue first.
	assignData, err := os.ReadFile(result.AssignmentPath)
	require.NoError(t, err)
	lines := string(assignData)
	assert.Contains(t, lines, "2;1;")
	assert.Contains(t, lines, "3;2;")
	assert.Contains(t, lines, "1;1;")
}

func TestRunIssues_NoOpenIssues(t *testing.T) {
	svc := NewService(&fakeCollector{}, nil)

	result, err := svc.RunIssues(context.Background(), IssuesOptions{
		Owner: "acme", Repo: "widget",
		Buckets: 2, Workers: 2, Limit: 10,
		OutDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Zero(t, result.Collected)
}

func TestRunIssues_LimitTruncates(t *testing.T) {
	dir := t.TempDir()

	details := make(map[int]*domain.IssueDetail)
	var issues []domain.IssueRef
	for i := 1; i <= 8; i++ {
		issues = append(issues, issueRef(i, i))
		details[i] = &domain.IssueDetail{Number: i, Title: fmt.Sprintf("issue %d", i), State: "open"}
	}

	svc := NewService(&fakeCollector{issues: issues, details: details}, nil)
	result, err := svc.RunIssues(context.Background(), IssuesOptions{
		Owner: "acme", Repo: "widget",
		Buckets: 3, Workers: 4, Limit: 5,
		OutDir: dir,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Collected)
	assert.Equal(t, 5, result.Processed)
	// The five most recent issues are 1..5 (issue i created i days ago).
	assert.FileExists(t, filepath.Join(dir, "1.md"))
	assert.FileExists(t, filepath.Join(dir, "5.md"))
	assert.NoFileExists(t, filepath.Join(dir, "6.md"))
}

func TestSplitRepoPath(t *testing.T) {
	owner, repo, err := SplitRepoPath("acme/widget")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widget", repo)

	for _, bad := range []string{"acme", "acme/", "/widget", ""} {
		_, _, err := SplitRepoPath(bad)
		assert.Error(t, err, "path %q should be rejected", bad)
	}
}
