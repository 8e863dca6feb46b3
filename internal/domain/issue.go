package domain

import "time"

// IssueRef is the lightweight issue record used for filtering and bucketing.
type IssueRef struct {
	Number    int
	CreatedAt time.Time
}

// IssueComment is a single comment on an issue.
type IssueComment struct {
	Author    string
	CreatedAt time.Time
	Body      string
}

// IssueDetail is the full issue record written to a per-issue detail file.
type IssueDetail struct {
	Number    int
	Title     string
	HTMLURL   string
	CreatedAt time.Time
	Author    string
	State     string
	Labels    []string
	Body      string
	Comments  []IssueComment
}
