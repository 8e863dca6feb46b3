package harvest

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/harvestkit/bucket-harvest/internal/bucket"
	"github.com/harvestkit/bucket-harvest/internal/collector"
	"github.com/harvestkit/bucket-harvest/internal/domain"
	apperrors "github.com/harvestkit/bucket-harvest/internal/errors"
	"github.com/harvestkit/bucket-harvest/internal/report"
	"github.com/harvestkit/bucket-harvest/internal/worker"
)

const assignmentFileName = "issue_buckets.csv"

// IssuesOptions configures a RunIssues call.
type IssuesOptions struct {
	Owner   string
	Repo    string
	Buckets int
	Workers int
	Limit   int
	OutDir  string
}

// IssuesResult summarizes a completed issue collection run.
type IssuesResult struct {
	SessionID      string
	Collected      int
	Processed      int
	Failed         int
	AssignmentPath string
	SummaryPath    string
}

// RunIssues collects a repository's most recent open issues, assigns them
// round-robin to buckets, records the assignments, then downloads every
// issue's full detail across a worker pool and writes one Markdown file
// per issue. Issues that fail to download get a placeholder file instead.
func (s *Service) RunIssues(ctx context.Context, opts IssuesOptions) (*IssuesResult, error) {
	repoFullName := opts.Owner + "/" + opts.Repo

	s.log.Info().
		Str("repo", repoFullName).
		Int("limit", opts.Limit).
		Int("buckets", opts.Buckets).
		Msg("collecting open issues")

	issues, err := s.collector.GetOpenIssues(ctx, opts.Owner, opts.Repo, opts.Limit, func(page, rawCount, total int) {
		s.log.Debug().Int("page", page).Int("page_size", rawCount).Int("total", total).Msg("issue page fetched")
	})
	if err != nil {
		return nil, err
	}

	recent := collector.MostRecent(issues, opts.Limit)
	result := &IssuesResult{Collected: len(recent)}

	if len(recent) == 0 {
		s.log.Warn().Str("repo", repoFullName).Msg("no open issues to process")
		return result, nil
	}

	if opts.Buckets < 1 {
		return nil, apperrors.NewConfigError("bucket count must be at least 1")
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, err
	}

	assignments := make([]domain.Assignment, len(recent))
	for i, issue := range recent {
		assignments[i] = domain.Assignment{
			EntityID:    strconv.Itoa(issue.Number),
			BucketID:    bucket.BucketFor(i, opts.Buckets),
			DerivedDate: issue.CreatedAt.Format("2006-01-02"),
		}
	}

	assignmentPath := filepath.Join(opts.OutDir, assignmentFileName)
	if err := report.WriteAssignments(assignmentPath, assignments); err != nil {
		return nil, err
	}
	result.AssignmentPath = assignmentPath

	result.SessionID = s.recordIssueSession(ctx, repoFullName, opts.Buckets, assignments)

	if _, err := report.WriteIssueBucketSummary(opts.OutDir, repoFullName, assignments); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("issues", len(recent)).
		Int("workers", opts.Workers).
		Msg("downloading issue details")

	results := worker.Run(ctx, recent, opts.Workers,
		func(ctx context.Context, issue domain.IssueRef) (string, error) {
			detail, err := s.collector.GetIssueDetail(ctx, opts.Owner, opts.Repo, issue.Number)
			if err != nil {
				// The placeholder keeps the per-issue artifact set complete
				// even when a single issue cannot be fetched.
				if _, werr := report.WriteIssuePlaceholder(opts.OutDir, repoFullName, issue.Number, err); werr != nil {
					s.log.Error().Err(werr).Int("issue", issue.Number).Msg("failed to write placeholder")
				}
				return "", err
			}
			return report.WriteIssueFile(opts.OutDir, detail)
		},
		func(st worker.Status) {
			s.log.Info().Int("done", st.Done()).Int("total", st.Total).Int("failed", st.Failed).Msg("progress")
		})

	for _, r := range results {
		if r.Failed() {
			result.Failed++
			s.log.Warn().Err(r.Err).Int("issue", r.Item.Number).Msg("failed to download issue")
			continue
		}
		result.Processed++
	}

	summaryPath, err := report.WriteCollectionSummary(opts.OutDir, repoFullName, result.Processed, result.Failed)
	if err != nil {
		return nil, err
	}
	result.SummaryPath = summaryPath

	s.log.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Str("summary", summaryPath).
		Msg("issue collection complete")

	if result.Processed == 0 && result.Failed > 0 {
		return result, apperrors.NewPartialFailureError(result.Failed, len(recent))
	}

	return result, nil
}

func (s *Service) recordIssueSession(ctx context.Context, repoFullName string, n int, assignments []domain.Assignment) string {
	if s.store == nil {
		return ""
	}

	session := &domain.Session{
		ID:        uuid.NewString(),
		Kind:      domain.SessionKindRepoIssues,
		Target:    repoFullName,
		Buckets:   n,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		s.log.Warn().Err(err).Msg("failed to record session")
		return ""
	}
	if err := s.store.SaveAssignments(ctx, session.ID, assignments); err != nil {
		s.log.Warn().Err(err).Msg("failed to record assignments")
	}

	return session.ID
}
