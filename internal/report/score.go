package report

import "github.com/harvestkit/bucket-harvest/internal/domain"

// ScoreFunc derives the ranking value used to order analysis output.
// The scoring formula is caller-pluggable; nothing downstream depends on
// a particular shape beyond "higher sorts first".
type ScoreFunc func(m domain.RepoMetrics) float64

// HealthScore is the default score: the mean of 30-day commit and
// closed-PR counts.
func HealthScore(m domain.RepoMetrics) float64 {
	return float64(m.Commits30d+m.ClosedPRs30d) / 2.0
}
