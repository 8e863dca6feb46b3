package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestkit/bucket-harvest/internal/domain"
)

func testRepo(name string, stars int) domain.Repository {
	return domain.Repository{
		Name:        name,
		FullName:    "acme/" + name,
		HTMLURL:     "https://github.com/acme/" + name,
		Stars:       stars,
		Language:    "Go",
		Description: "test repo",
		OpenIssues:  3,
		Forks:       1,
		PushedAt:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteOrgBuckets(t *testing.T) {
	dir := t.TempDir()

	buckets := [][]domain.Repository{
		{testRepo("alpha", 10), testRepo("beta", 5)},
		{testRepo("gamma", 1)},
		{}, // empty bucket gets no file
	}

	created, err := WriteOrgBuckets(dir, buckets)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	_, err = os.Stat(filepath.Join(dir, "org_bucket_1.csv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "org_bucket_3.csv"))
	assert.True(t, os.IsNotExist(err))

	f, err := os.Open(filepath.Join(dir, "org_bucket_1.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, orgBucketHeader, records[0])
	assert.Equal(t, "alpha", records[1][0])
	assert.Equal(t, "acme/alpha", records[1][1])
	assert.True(t, strings.HasSuffix(records[1][2], "   "), "URL column keeps trailing spaces")
	assert.Equal(t, "10", records[1][3])
	assert.Equal(t, "2026-05-01T12:00:00Z", records[1][8])
}

func TestReadOrgBuckets_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	buckets := [][]domain.Repository{
		{testRepo("alpha", 10)},
		{testRepo("beta", 5), testRepo("gamma", 1)},
	}
	_, err := WriteOrgBuckets(dir, buckets)
	require.NoError(t, err)

	repos, err := ReadOrgBuckets(dir)
	require.NoError(t, err)
	require.Len(t, repos, 3)

	assert.Equal(t, "alpha", repos[0].Name)
	assert.Equal(t, "https://github.com/acme/alpha", repos[0].HTMLURL, "trailing spaces are stripped on read")
	assert.Equal(t, 10, repos[0].Stars)
	assert.Equal(t, buckets[0][0].PushedAt, repos[0].PushedAt)
}

func TestReadOrgBuckets_NoFiles(t *testing.T) {
	repos, err := ReadOrgBuckets(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, repos)
}

func TestWriteAssignments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issue_buckets.csv")

	assignments := []domain.Assignment{
		{EntityID: "101", BucketID: 1, DerivedDate: "2026-04-01"},
		{EntityID: "102", BucketID: 2, DerivedDate: "2026-04-02"},
	}
	require.NoError(t, WriteAssignments(path, assignments))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "issue_id;bucket_id;date_created", lines[0])
	assert.Equal(t, "101;1;2026-04-01", lines[1])
	assert.Equal(t, "102;2;2026-04-02", lines[2])
}

func TestWriteAnalysis_SortedByScore(t *testing.T) {
	dir := t.TempDir()

	metrics := []domain.RepoMetrics{
		{Repo: "quiet", Commits30d: 1, ClosedPRs30d: 1},
		{Repo: "busy", Commits30d: 40, ClosedPRs30d: 10},
		{Repo: "steady", Commits30d: 10, ClosedPRs30d: 4},
	}

	path, sorted, err := WriteAnalysis(dir, "acme", metrics, HealthScore)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".acme_analysis.csv"), path)

	require.Len(t, sorted, 3)
	assert.Equal(t, "busy", sorted[0].Repo)
	assert.Equal(t, 25.0, sorted[0].HealthScore)
	assert.Equal(t, "steady", sorted[1].Repo)
	assert.Equal(t, "quiet", sorted[2].Repo)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, analysisHeader, records[0])
	assert.Equal(t, "busy", records[1][0])
	assert.Equal(t, "25.0", records[1][8])
}

func TestWriteAnalysis_MissingValueDefaults(t *testing.T) {
	dir := t.TempDir()

	metrics := []domain.RepoMetrics{{Repo: "bare"}}
	path, _, err := WriteAnalysis(dir, "acme", metrics, HealthScore)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	row := records[1]
	assert.Equal(t, "0", row[1], "star count defaults to zero")
	assert.Equal(t, unknownLanguage, row[4])
	assert.Equal(t, missingDescription, row[5])
	assert.Equal(t, "0.0", row[8])
}

func TestWriteAnalysis_InputNotMutated(t *testing.T) {
	metrics := []domain.RepoMetrics{
		{Repo: "a", Commits30d: 2},
		{Repo: "b", Commits30d: 8},
	}

	_, _, err := WriteAnalysis(t.TempDir(), "acme", metrics, HealthScore)
	require.NoError(t, err)

	assert.Equal(t, "a", metrics[0].Repo)
	assert.Zero(t, metrics[0].HealthScore)
}
