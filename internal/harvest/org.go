package harvest

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/harvestkit/bucket-harvest/internal/bucket"
	"github.com/harvestkit/bucket-harvest/internal/collector"
	"github.com/harvestkit/bucket-harvest/internal/domain"
	"github.com/harvestkit/bucket-harvest/internal/report"
)

// OrgBucketsOptions configures a RunOrgBuckets call.
type OrgBucketsOptions struct {
	Org     string
	Buckets int
	Days    int
	OutDir  string
}

// OrgBucketsResult summarizes a completed org bucket run.
type OrgBucketsResult struct {
	SessionID   string
	TotalRepos  int
	ActiveRepos int
	FilesOut    int
	SummaryPath string
}

// RunOrgBuckets fetches an organization's repositories, filters them by
// recent push activity, splits the active set into contiguous buckets and
// writes one CSV per bucket plus a summary. An organization with no active
// repositories yields an empty result, not an error.
func (s *Service) RunOrgBuckets(ctx context.Context, opts OrgBucketsOptions) (*OrgBucketsResult, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -opts.Days)

	s.log.Info().
		Str("org", opts.Org).
		Int("buckets", opts.Buckets).
		Time("cutoff", cutoff).
		Msg("collecting organization repositories")

	repos, err := s.collector.GetRepositories(ctx, opts.Org, func(page, rawCount, total int) {
		s.log.Debug().Int("page", page).Int("page_size", rawCount).Int("total", total).Msg("repository page fetched")
	})
	if err != nil {
		return nil, err
	}

	active := collector.FilterActive(repos, cutoff)
	result := &OrgBucketsResult{TotalRepos: len(repos), ActiveRepos: len(active)}

	if len(active) == 0 {
		s.log.Warn().Str("org", opts.Org).Msg("no active repositories to process")
		return result, nil
	}

	buckets, err := bucket.Split(active, opts.Buckets, bucket.PolicyContiguous)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, err
	}

	written, err := report.WriteOrgBuckets(opts.OutDir, buckets)
	if err != nil {
		return nil, err
	}
	result.FilesOut = written

	bucketSizes := make([]int, len(buckets))
	for k, b := range buckets {
		bucketSizes[k] = len(b)
	}

	result.SessionID = s.recordOrgSession(ctx, opts.Org, opts.Buckets, buckets)

	summaryPath, err := report.WriteOrgBucketSummary(opts.OutDir, opts.Org, opts.Days, cutoff, active, bucketSizes)
	if err != nil {
		return nil, err
	}
	result.SummaryPath = summaryPath

	s.log.Info().
		Int("active", len(active)).
		Int("files", written).
		Str("summary", summaryPath).
		Msg("org buckets written")

	return result, nil
}

// recordOrgSession persists the session and its assignments. Storage
// failures are logged and swallowed so the file artifacts, already on
// disk, remain the run's outcome.
func (s *Service) recordOrgSession(ctx context.Context, org string, n int, buckets [][]domain.Repository) string {
	if s.store == nil {
		return ""
	}

	session := &domain.Session{
		ID:        uuid.NewString(),
		Kind:      domain.SessionKindOrgRepos,
		Target:    org,
		Buckets:   n,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		s.log.Warn().Err(err).Msg("failed to record session")
		return ""
	}

	var assignments []domain.Assignment
	for k, b := range buckets {
		for _, repo := range b {
			assignments = append(assignments, domain.Assignment{
				EntityID:    repo.FullName,
				BucketID:    k + 1,
				DerivedDate: repo.PushedAt.Format("2006-01-02"),
			})
		}
	}
	if err := s.store.SaveAssignments(ctx, session.ID, assignments); err != nil {
		s.log.Warn().Err(err).Msg("failed to record assignments")
	}

	return session.ID
}
