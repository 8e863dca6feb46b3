package collector

import (
	"sort"
	"time"

	"github.com/harvestkit/bucket-harvest/internal/domain"
	"github.com/harvestkit/bucket-harvest/internal/logging"
)

// FilterActive keeps repositories pushed at or after cutoff, dropping
// archived and disabled entries and entries with no push timestamp.
// The result is sorted by push time descending; ties keep fetch order.
// Filtering an already-filtered, already-sorted slice with the same
// cutoff returns it unchanged.
func FilterActive(repos []domain.Repository, cutoff time.Time) []domain.Repository {
	log := logging.NewLogger("filter")
	cutoff = cutoff.UTC()

	active := make([]domain.Repository, 0, len(repos))
	for _, repo := range repos {
		if repo.Archived || repo.Disabled {
			continue
		}
		if repo.PushedAt.IsZero() {
			log.Debug().Str("repo", repo.Name).Msg("skipping repository with no push timestamp")
			continue
		}
		if repo.PushedAt.UTC().Before(cutoff) {
			continue
		}
		active = append(active, repo)
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].PushedAt.After(active[j].PushedAt)
	})

	return active
}

// MostRecent returns the limit most recently created issues, newest
// first. Ties keep fetch order.
func MostRecent(issues []domain.IssueRef, limit int) []domain.IssueRef {
	sorted := make([]domain.IssueRef, len(issues))
	copy(sorted, issues)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
