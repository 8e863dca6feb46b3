package report

import (
	"sort"

	"github.com/harvestkit/bucket-harvest/internal/domain"
)

// LanguageCount pairs a language with the number of repositories using it.
type LanguageCount struct {
	Language string
	Count    int
}

// RepoStats are the aggregate statistics over a filtered repository set,
// used by the bucket summary artifact.
type RepoStats struct {
	Total      int
	TotalStars int
	AvgStars   float64
	Languages  []LanguageCount
}

// AggregateRepos computes summary statistics for a repository set.
// Languages come back sorted by count descending.
func AggregateRepos(repos []domain.Repository) RepoStats {
	stats := RepoStats{Total: len(repos)}
	languages := make(map[string]int)

	for _, repo := range repos {
		stats.TotalStars += repo.Stars
		lang := repo.Language
		if lang == "" {
			lang = unknownLanguage
		}
		languages[lang]++
	}
	if stats.Total > 0 {
		stats.AvgStars = float64(stats.TotalStars) / float64(stats.Total)
	}
	stats.Languages = sortLanguages(languages)

	return stats
}

// MetricsStats are the aggregate statistics over processed metrics, used
// by the processing report artifact.
type MetricsStats struct {
	Total        int
	TotalStars   int
	TotalCommits int
	TotalPRs     int
	AvgHealth    float64
	Languages    []LanguageCount
}

// AggregateMetrics computes summary statistics over processing results.
func AggregateMetrics(metrics []domain.RepoMetrics) MetricsStats {
	stats := MetricsStats{Total: len(metrics)}
	languages := make(map[string]int)

	var healthSum float64
	for _, m := range metrics {
		stats.TotalStars += m.Stars
		stats.TotalCommits += m.Commits30d
		stats.TotalPRs += m.ClosedPRs30d
		healthSum += m.HealthScore
		lang := m.Language
		if lang == "" {
			lang = unknownLanguage
		}
		languages[lang]++
	}
	if stats.Total > 0 {
		stats.AvgHealth = healthSum / float64(stats.Total)
	}
	stats.Languages = sortLanguages(languages)

	return stats
}

func sortLanguages(counts map[string]int) []LanguageCount {
	out := make([]LanguageCount, 0, len(counts))
	for lang, count := range counts {
		out = append(out, LanguageCount{Language: lang, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Language < out[j].Language
	})
	return out
}
