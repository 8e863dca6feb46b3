package domain

import "time"

// Assignment is the durable record tying one entity to one bucket.
// Assignments are written once per harvest session and never re-derived
// from a later fetch.
type Assignment struct {
	EntityID    string
	BucketID    int
	DerivedDate string // YYYY-MM-DD
}

// SessionKind distinguishes the two harvest flows.
type SessionKind string

const (
	SessionKindOrgRepos   SessionKind = "org_repos"
	SessionKindRepoIssues SessionKind = "repo_issues"
)

// Session identifies one harvest run. Every assignment persisted by a run
// carries the session ID so repeated runs against the same target stay
// distinguishable.
type Session struct {
	ID        string
	Kind      SessionKind
	Target    string // organization name or owner/repo
	Buckets   int
	CreatedAt time.Time
}
