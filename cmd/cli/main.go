package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harvestkit/bucket-harvest/internal/collector"
	"github.com/harvestkit/bucket-harvest/internal/config"
	apperrors "github.com/harvestkit/bucket-harvest/internal/errors"
	"github.com/harvestkit/bucket-harvest/internal/harvest"
	"github.com/harvestkit/bucket-harvest/internal/logging"
	"github.com/harvestkit/bucket-harvest/internal/report"
	"github.com/harvestkit/bucket-harvest/internal/storage"
	"github.com/harvestkit/bucket-harvest/internal/storage/sqlite"
	"github.com/harvestkit/bucket-harvest/internal/worker"
)

var (
	bucketCount int
	daysWindow  int
	maxWorkers  int
	issueLimit  int
	outDir      string
)

var rootCmd = &cobra.Command{
	Use:   "bucket-harvest",
	Short: "GitHub repository and issue bucket harvester",
	Long: `A CLI tool for harvesting GitHub organization and repository metadata.

The tool collects repositories or issues through the GitHub API, splits
them into buckets, downloads per-entity details across a worker pool, and
writes CSV, Markdown and summary artifacts.`,
	SilenceUsage: true,
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets [org]",
	Short: "Split an organization's active repositories into bucket files",
	Long: `Fetch all repositories of a GitHub organization, keep those pushed
within the activity window, and split them into contiguous bucket CSV files.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuckets,
}

var processCmd = &cobra.Command{
	Use:   "process [org]",
	Short: "Fetch activity metrics for previously bucketed repositories",
	Long: `Read the bucket files from a previous "buckets" run, fetch commit and
pull request metrics for every repository in parallel, and write a
health-score-sorted analysis CSV plus a statistics report.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

var issuesCmd = &cobra.Command{
	Use:   "issues [owner/repo]",
	Short: "Collect a repository's recent open issues into buckets",
	Long: `Fetch the most recent open issues of a repository, assign them
round-robin to buckets, and download every issue's full detail including
comments into one Markdown file per issue.`,
	Args: cobra.ExactArgs(1),
	RunE: runIssues,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "", "output directory (default from HARVEST_DATA_DIR)")

	bucketsCmd.Flags().IntVar(&bucketCount, "buckets", 5, "number of bucket files to create")
	bucketsCmd.Flags().IntVar(&daysWindow, "days", 365, "activity window in days")

	processCmd.Flags().IntVar(&maxWorkers, "workers", worker.DefaultMaxWorkers, "maximum concurrent workers")

	issuesCmd.Flags().IntVar(&bucketCount, "buckets", 5, "number of buckets to assign issues to")
	issuesCmd.Flags().IntVar(&maxWorkers, "workers", worker.DefaultMaxWorkers, "maximum concurrent workers")
	issuesCmd.Flags().IntVar(&issueLimit, "limit", 100, "maximum number of recent issues to collect")

	rootCmd.AddCommand(bucketsCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(issuesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration, initializes logging and builds the harvest
// service. The returned cleanup closes the session store.
func setup() (*harvest.Service, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		if apperrors.IsConfig(err) {
			return nil, nil, nil, fmt.Errorf("%w\nSet GITHUB_TOKEN in the environment or in a .env file", err)
		}
		return nil, nil, nil, err
	}

	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	var store storage.Storage
	store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}

	svc := harvest.NewService(collector.NewGitHubCollector(cfg.GitHubToken), store)
	cleanup := func() { _ = store.Close() }

	return svc, cfg, cleanup, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM so a run
// stops at the next item boundary instead of mid-write.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// warnWorkerCeiling flags worker counts likely to trip secondary rate
// limits before the run starts.
func warnWorkerCeiling() {
	if maxWorkers > worker.DefaultMaxWorkers {
		fmt.Fprintf(os.Stderr, "Warning: --workers %d exceeds the recommended maximum of %d and may trigger GitHub rate limiting\n",
			maxWorkers, worker.DefaultMaxWorkers)
	}
}

func resolveOutDir(cfg *config.Config) string {
	if outDir != "" {
		return outDir
	}
	return cfg.DataDir
}

func runBuckets(cmd *cobra.Command, args []string) error {
	if bucketCount < 1 {
		return fmt.Errorf("--buckets must be at least 1")
	}
	if daysWindow < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	svc, cfg, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()

	result, err := svc.RunOrgBuckets(ctx, harvest.OrgBucketsOptions{
		Org:     args[0],
		Buckets: bucketCount,
		Days:    daysWindow,
		OutDir:  resolveOutDir(cfg),
	})
	if err != nil {
		return err
	}

	if result.ActiveRepos == 0 {
		fmt.Printf("No active repositories found for %s (of %d total)\n", args[0], result.TotalRepos)
		return nil
	}

	fmt.Printf("Wrote %d bucket files for %d active repositories (of %d total)\n",
		result.FilesOut, result.ActiveRepos, result.TotalRepos)
	fmt.Printf("Summary: %s\n", result.SummaryPath)
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	if maxWorkers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	warnWorkerCeiling()

	svc, cfg, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()

	result, err := svc.RunProcess(ctx, harvest.ProcessOptions{
		Org:     args[0],
		Workers: maxWorkers,
		OutDir:  resolveOutDir(cfg),
	})
	if err != nil {
		return err
	}

	if result.Total == 0 {
		fmt.Println("No bucket files found, run 'buckets' first")
		return nil
	}

	fmt.Printf("Processed %d/%d repositories in %.2fs", result.Succeeded, result.Total, result.Elapsed.Seconds())
	if result.Failed > 0 {
		fmt.Printf(" (%d failed)", result.Failed)
	}
	fmt.Println()
	report.RenderTopMetrics(os.Stdout, result.Top, len(result.Top))
	fmt.Printf("Analysis: %s\n", result.AnalysisPath)
	fmt.Printf("Report:   %s\n", result.ReportPath)
	return nil
}

func runIssues(cmd *cobra.Command, args []string) error {
	if bucketCount < 1 {
		return fmt.Errorf("--buckets must be at least 1")
	}
	if maxWorkers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	if issueLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}
	warnWorkerCeiling()

	owner, repo, err := harvest.SplitRepoPath(args[0])
	if err != nil {
		return err
	}

	svc, cfg, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()

	result, err := svc.RunIssues(ctx, harvest.IssuesOptions{
		Owner:   owner,
		Repo:    repo,
		Buckets: bucketCount,
		Workers: maxWorkers,
		Limit:   issueLimit,
		OutDir:  resolveOutDir(cfg),
	})
	if err != nil {
		return err
	}

	if result.Collected == 0 {
		fmt.Printf("No open issues found in %s\n", args[0])
		return nil
	}

	fmt.Printf("Collected %d issues, downloaded %d", result.Collected, result.Processed)
	if result.Failed > 0 {
		fmt.Printf(" (%d failed)", result.Failed)
	}
	fmt.Println()
	fmt.Printf("Assignments: %s\n", result.AssignmentPath)
	fmt.Printf("Summary:     %s\n", result.SummaryPath)
	return nil
}
