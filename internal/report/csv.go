package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/harvestkit/bucket-harvest/internal/domain"
)

// Missing-value defaults: counts stay zero, text columns get these
// placeholders so every row has all columns populated.
const (
	unknownLanguage      = "Unknown"
	missingDescription   = "No description available"
	analysisFilePattern  = ".%s_analysis.csv"
	orgBucketFilePattern = "org_bucket_%d.csv"
)

// orgBucketHeader is the fixed column order for per-bucket repo files.
var orgBucketHeader = []string{
	"repo_name", "full_name", "github_url", "stars",
	"language", "description", "open_issues", "forks", "pushed_at",
}

// analysisHeader is the fixed column order for the aggregate report.
var analysisHeader = []string{
	"repo", "star_count", "contributor_count", "github_url",
	"primary_language", "description", "commits_last_30d",
	"closed_pr_last_30d", "repo_health_score",
}

// WriteOrgBuckets writes one CSV file per non-empty bucket into dir and
// returns the number of files created.
func WriteOrgBuckets(dir string, buckets [][]domain.Repository) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	created := 0
	for k, repos := range buckets {
		if len(repos) == 0 {
			continue
		}

		path := filepath.Join(dir, fmt.Sprintf(orgBucketFilePattern, k+1))
		f, err := os.Create(path)
		if err != nil {
			return created, err
		}

		w := csv.NewWriter(f)
		if err := w.Write(orgBucketHeader); err != nil {
			f.Close()
			return created, err
		}
		for _, repo := range repos {
			row := []string{
				repo.Name,
				repo.FullName,
				repo.HTMLURL + "   ", // trailing spaces keep the URL clickable in spreadsheet apps
				strconv.Itoa(repo.Stars),
				repo.Language,
				repo.Description,
				strconv.Itoa(repo.OpenIssues),
				strconv.Itoa(repo.Forks),
				repo.PushedAt.UTC().Format(time.RFC3339),
			}
			if err := w.Write(row); err != nil {
				f.Close()
				return created, err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return created, err
		}
		if err := f.Close(); err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}

// ReadOrgBuckets loads every org_bucket_*.csv in dir, in filename order,
// and returns the combined repository list. A directory without bucket
// files yields an empty list, not an error.
func ReadOrgBuckets(dir string) ([]domain.Repository, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "org_bucket_*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var all []domain.Repository
	for _, path := range matches {
		repos, err := readBucketFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}
		all = append(all, repos...)
	}
	return all, nil
}

func readBucketFile(path string) ([]domain.Repository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	var repos []domain.Repository
	for _, rec := range records[1:] {
		if len(rec) < len(orgBucketHeader) {
			continue
		}
		pushedAt, _ := time.Parse(time.RFC3339, rec[8])
		repos = append(repos, domain.Repository{
			Name:        rec[0],
			FullName:    rec[1],
			HTMLURL:     trimSpaceRight(rec[2]),
			Stars:       atoiOrZero(rec[3]),
			Language:    rec[4],
			Description: rec[5],
			OpenIssues:  atoiOrZero(rec[6]),
			Forks:       atoiOrZero(rec[7]),
			PushedAt:    pushedAt,
		})
	}
	return repos, nil
}

// WriteAssignments writes the durable bucket assignment record as
// semicolon-delimited text with header issue_id;bucket_id;date_created.
func WriteAssignments(path string, assignments []domain.Assignment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write([]string{"issue_id", "bucket_id", "date_created"}); err != nil {
		return err
	}
	for _, a := range assignments {
		row := []string{a.EntityID, strconv.Itoa(a.BucketID), a.DerivedDate}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteAnalysis writes the aggregate analysis CSV for org, sorted
// descending by score. It returns the output path and the sorted metrics
// (reused by the processing report).
func WriteAnalysis(dir, org string, metrics []domain.RepoMetrics, score ScoreFunc) (string, []domain.RepoMetrics, error) {
	if score == nil {
		score = HealthScore
	}

	sorted := make([]domain.RepoMetrics, len(metrics))
	copy(sorted, metrics)
	for i := range sorted {
		sorted[i].HealthScore = score(sorted[i])
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].HealthScore > sorted[j].HealthScore
	})

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf(analysisFilePattern, org))
	f, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(analysisHeader); err != nil {
		return "", nil, err
	}
	for _, m := range sorted {
		language := m.Language
		if language == "" {
			language = unknownLanguage
		}
		description := m.Description
		if description == "" {
			description = missingDescription
		}
		row := []string{
			m.Repo,
			strconv.Itoa(m.Stars),
			strconv.Itoa(m.Contributors),
			m.HTMLURL,
			language,
			description,
			strconv.Itoa(m.Commits30d),
			strconv.Itoa(m.ClosedPRs30d),
			strconv.FormatFloat(m.HealthScore, 'f', 1, 64),
		}
		if err := w.Write(row); err != nil {
			return "", nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, err
	}

	return path, sorted, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func trimSpaceRight(s string) string {
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}
