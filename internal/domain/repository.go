package domain

import "time"

// Repository is one repository record fetched from the GitHub API.
type Repository struct {
	Name        string
	FullName    string
	HTMLURL     string
	Stars       int
	Language    string
	Description string
	OpenIssues  int
	Forks       int
	PushedAt    time.Time
	Archived    bool
	Disabled    bool
}

// RepoMetrics holds the per-repository activity metrics collected by a
// worker, plus the derived health score used for report ordering.
type RepoMetrics struct {
	Repo         string
	Stars        int
	Contributors int
	HTMLURL      string
	Language     string
	Description  string
	Commits30d   int
	ClosedPRs30d int
	HealthScore  float64
}
