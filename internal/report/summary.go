package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/harvestkit/bucket-harvest/internal/domain"
)

const topN = 10

// WriteOrgBucketSummary writes the human-readable summary accompanying
// the org bucket files.
func WriteOrgBucketSummary(dir, org string, days int, cutoff time.Time, repos []domain.Repository, bucketSizes []int) (string, error) {
	path := filepath.Join(dir, "org_bucket_summary.txt")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stats := AggregateRepos(repos)

	title := fmt.Sprintf("%s Organization Repository Buckets", titleCase(org))
	fmt.Fprintf(f, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	fmt.Fprintf(f, "Created: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "Organization: %s\n", org)
	fmt.Fprintf(f, "Activity cutoff: %s (%d days ago)\n", cutoff.Format("2006-01-02"), days)
	fmt.Fprintf(f, "Total active repositories: %d\n", stats.Total)
	fmt.Fprintf(f, "Number of buckets: %d\n\n", countNonEmpty(bucketSizes))

	if stats.Total > 0 {
		fmt.Fprintf(f, "Repository Statistics:\n")
		fmt.Fprintf(f, "- Total stars across all repos: %d\n", stats.TotalStars)
		fmt.Fprintf(f, "- Average stars per repo: %.1f\n", stats.AvgStars)
		fmt.Fprintf(f, "- Most common languages:\n")
		for i, lang := range stats.Languages {
			if i == 5 {
				break
			}
			fmt.Fprintf(f, "  - %s: %d repos\n", lang.Language, lang.Count)
		}
		fmt.Fprintln(f)
	}

	fmt.Fprintf(f, "Bucket files created:\n")
	for k, size := range bucketSizes {
		if size == 0 {
			continue
		}
		fmt.Fprintf(f, "  - org_bucket_%d.csv: %d repositories\n", k+1, size)
	}

	return path, nil
}

// WriteProcessingReport writes the statistics artifact accompanying the
// analysis CSV. metrics must already be sorted by score descending and
// must hold one row per input repository, zero-valued rows included.
func WriteProcessingReport(dir, org string, metrics []domain.RepoMetrics, failed int, workers int, elapsed time.Duration) (string, error) {
	path := filepath.Join(dir, "processing_report.txt")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stats := AggregateMetrics(metrics)
	total := stats.Total
	succeeded := total - failed

	title := fmt.Sprintf("%s Organization Analysis Report", titleCase(org))
	fmt.Fprintf(f, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	fmt.Fprintf(f, "Processing Details:\n")
	fmt.Fprintf(f, "- Processed: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "- Organization: %s\n", org)
	fmt.Fprintf(f, "- Processing time: %.2f seconds\n", elapsed.Seconds())
	fmt.Fprintf(f, "- Max workers: %d\n\n", workers)

	fmt.Fprintf(f, "Repository Statistics:\n")
	fmt.Fprintf(f, "- Total repositories: %d\n", total)
	fmt.Fprintf(f, "- Successfully processed: %d\n", succeeded)
	fmt.Fprintf(f, "- Failed to process: %d\n", failed)
	if total > 0 {
		fmt.Fprintf(f, "- Success rate: %.1f%%\n", float64(succeeded)/float64(total)*100)
	}
	fmt.Fprintln(f)

	fmt.Fprintf(f, "Metrics Summary:\n")
	fmt.Fprintf(f, "- Total stars: %d\n", stats.TotalStars)
	fmt.Fprintf(f, "- Total commits (30d): %d\n", stats.TotalCommits)
	fmt.Fprintf(f, "- Total closed PRs (30d): %d\n", stats.TotalPRs)
	fmt.Fprintf(f, "- Average health score: %.2f\n\n", stats.AvgHealth)

	fmt.Fprintf(f, "Top Programming Languages:\n")
	for i, lang := range stats.Languages {
		if i == topN {
			break
		}
		if stats.Total > 0 {
			fmt.Fprintf(f, "  - %s: %d repos (%.1f%%)\n",
				lang.Language, lang.Count, float64(lang.Count)/float64(stats.Total)*100)
		}
	}
	fmt.Fprintln(f)

	fmt.Fprintf(f, "Top %d Repositories by Health Score:\n", topN)
	RenderTopMetrics(f, metrics, topN)

	return path, nil
}

// RenderTopMetrics renders the top-n rows of score-sorted metrics as a
// table.
func RenderTopMetrics(w io.Writer, metrics []domain.RepoMetrics, n int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Repository", "Health", "Stars", "Commits 30d", "Closed PRs 30d"})
	for i, m := range metrics {
		if i == n {
			break
		}
		table.Append([]string{
			m.Repo,
			fmt.Sprintf("%.1f", m.HealthScore),
			fmt.Sprintf("%d", m.Stars),
			fmt.Sprintf("%d", m.Commits30d),
			fmt.Sprintf("%d", m.ClosedPRs30d),
		})
	}
	table.Render()
}

// WriteIssueBucketSummary writes the summary accompanying the issue
// assignment file.
func WriteIssueBucketSummary(dir, repoFullName string, assignments []domain.Assignment) (string, error) {
	path := filepath.Join(dir, "bucket_creation_summary.txt")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	bucketCounts := make(map[int]int)
	oldest, newest := "", ""
	for _, a := range assignments {
		bucketCounts[a.BucketID]++
		if oldest == "" || a.DerivedDate < oldest {
			oldest = a.DerivedDate
		}
		if newest == "" || a.DerivedDate > newest {
			newest = a.DerivedDate
		}
	}

	fmt.Fprintf(f, "GitHub Issues Bucket Creation Summary\n")
	fmt.Fprintf(f, "=====================================\n\n")
	fmt.Fprintf(f, "Repository: %s\n", repoFullName)
	fmt.Fprintf(f, "Created: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "Total issues: %d\n", len(assignments))
	fmt.Fprintf(f, "Bucket count: %d\n\n", len(bucketCounts))

	if len(assignments) > 0 {
		fmt.Fprintf(f, "Date range: %s to %s\n\n", oldest, newest)
	}

	fmt.Fprintf(f, "Bucket Distribution:\n")
	maxBucket := 0
	for id := range bucketCounts {
		if id > maxBucket {
			maxBucket = id
		}
	}
	for id := 1; id <= maxBucket; id++ {
		if count, ok := bucketCounts[id]; ok {
			fmt.Fprintf(f, "  Bucket %d: %d issues\n", id, count)
		}
	}

	return path, nil
}

// WriteCollectionSummary writes the final tally for an issue collection
// run.
func WriteCollectionSummary(dir, repoFullName string, processed, failed int) (string, error) {
	path := filepath.Join(dir, "collection_summary.txt")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	total := processed + failed

	fmt.Fprintf(f, "GitHub Recent Issues Collection Summary\n")
	fmt.Fprintf(f, "=======================================\n\n")
	fmt.Fprintf(f, "Repository: %s\n", repoFullName)
	fmt.Fprintf(f, "Created: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "Total processed: %d\n", processed)
	fmt.Fprintf(f, "Total failed: %d\n", failed)
	if total > 0 {
		fmt.Fprintf(f, "Success rate: %.1f%%\n\n", float64(processed)/float64(total)*100)
	}
	fmt.Fprintf(f, "Output:\n")
	fmt.Fprintf(f, "- One Markdown file per issue (issue_id.md)\n")
	fmt.Fprintf(f, "- Each file contains full issue details including comments\n")

	return path, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func countNonEmpty(sizes []int) int {
	n := 0
	for _, s := range sizes {
		if s > 0 {
			n++
		}
	}
	return n
}
