package harvest

import (
	"context"
	"time"

	"github.com/harvestkit/bucket-harvest/internal/domain"
	apperrors "github.com/harvestkit/bucket-harvest/internal/errors"
	"github.com/harvestkit/bucket-harvest/internal/report"
	"github.com/harvestkit/bucket-harvest/internal/worker"
)

// ProcessOptions configures a RunProcess call.
type ProcessOptions struct {
	Org     string
	Workers int
	OutDir  string
}

// ProcessResult summarizes a completed analysis run. Top holds the
// highest-scored rows for display.
type ProcessResult struct {
	Total        int
	Succeeded    int
	Failed       int
	Top          []domain.RepoMetrics
	AnalysisPath string
	ReportPath   string
	Elapsed      time.Duration
}

// RunProcess reads the bucket files written by a previous org run, fetches
// activity metrics for every listed repository across a worker pool, and
// writes the score-sorted analysis CSV plus a statistics report. Failed
// repositories keep zero-valued rows and a tally; the run only fails when
// every repository does.
func (s *Service) RunProcess(ctx context.Context, opts ProcessOptions) (*ProcessResult, error) {
	repos, err := report.ReadOrgBuckets(opts.OutDir)
	if err != nil {
		return nil, err
	}
	if len(repos) == 0 {
		s.log.Warn().Str("dir", opts.OutDir).Msg("no bucket files found, nothing to process")
		return &ProcessResult{}, nil
	}

	s.log.Info().
		Str("org", opts.Org).
		Int("repos", len(repos)).
		Int("workers", opts.Workers).
		Msg("processing repositories")

	start := time.Now()

	results := worker.Run(ctx, repos, opts.Workers,
		func(ctx context.Context, repo domain.Repository) (domain.RepoMetrics, error) {
			owner, name, err := SplitRepoPath(repo.FullName)
			if err != nil {
				return domain.RepoMetrics{}, err
			}
			return s.collector.GetRepositoryMetrics(ctx, owner, name)
		},
		func(st worker.Status) {
			s.log.Info().Int("done", st.Done()).Int("total", st.Total).Int("failed", st.Failed).Msg("progress")
		})

	metrics := make([]domain.RepoMetrics, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
			s.log.Warn().Err(r.Err).Str("repo", r.Item.FullName).Msg("failed to process repository")
			// Failed repositories keep a zero-valued row so the analysis
			// lists every input repository.
			metrics = append(metrics, domain.RepoMetrics{
				Repo:    r.Item.Name,
				HTMLURL: r.Item.HTMLURL,
			})
			continue
		}
		metrics = append(metrics, r.Value)
	}

	if failed == len(repos) {
		return nil, apperrors.NewPartialFailureError(failed, len(repos))
	}

	analysisPath, sorted, err := report.WriteAnalysis(opts.OutDir, opts.Org, metrics, report.HealthScore)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	reportPath, err := report.WriteProcessingReport(opts.OutDir, opts.Org, sorted, failed, opts.Workers, elapsed)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("succeeded", len(repos)-failed).
		Int("failed", failed).
		Dur("elapsed", elapsed).
		Str("analysis", analysisPath).
		Msg("analysis complete")

	top := sorted
	if len(top) > 10 {
		top = top[:10]
	}

	return &ProcessResult{
		Total:        len(repos),
		Succeeded:    len(repos) - failed,
		Failed:       failed,
		Top:          top,
		AnalysisPath: analysisPath,
		ReportPath:   reportPath,
		Elapsed:      elapsed,
	}, nil
}
