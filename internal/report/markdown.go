package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harvestkit/bucket-harvest/internal/domain"
)

// WriteIssueFile writes one Markdown detail file for an issue into dir.
// The layout is fixed: title, metadata block, description, comments.
func WriteIssueFile(dir string, detail *domain.IssueDetail) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.md", detail.Number))

	var b strings.Builder
	fmt.Fprintf(&b, "# Issue #%d: %s\n\n", detail.Number, detail.Title)
	fmt.Fprintf(&b, "**GitHub URL:** %s  \n", detail.HTMLURL)
	fmt.Fprintf(&b, "**Created:** %s  \n", detail.CreatedAt.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "**Author:** %s  \n", detail.Author)
	fmt.Fprintf(&b, "**State:** %s  \n", detail.State)
	fmt.Fprintf(&b, "**Labels:** %s  \n\n", strings.Join(detail.Labels, "; "))
	b.WriteString("---\n\n")
	b.WriteString("## Issue Description\n\n")
	fmt.Fprintf(&b, "%s\n\n", detail.Body)
	b.WriteString("---\n\n")
	b.WriteString("## Comments\n\n")

	if len(detail.Comments) == 0 {
		b.WriteString("*No comments*\n")
	} else {
		for _, comment := range detail.Comments {
			fmt.Fprintf(&b, "### Comment by **%s** on %s\n\n",
				comment.Author, comment.CreatedAt.UTC().Format("2006-01-02"))
			fmt.Fprintf(&b, "%s\n\n", comment.Body)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// WriteIssuePlaceholder writes the placeholder file for an issue whose
// details could not be fetched, so the output set stays complete.
func WriteIssuePlaceholder(dir, repoFullName string, number int, cause error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.md", number))

	var b strings.Builder
	fmt.Fprintf(&b, "# Issue #%d: [FAILED TO FETCH]\n\n", number)
	fmt.Fprintf(&b, "**GitHub URL:** https://github.com/%s/issues/%d  \n", repoFullName, number)
	b.WriteString("**Status:** Failed to fetch issue details  \n\n")
	b.WriteString("---\n\n")
	b.WriteString("## Error\n\n")
	fmt.Fprintf(&b, "Could not retrieve issue data: %v\n", cause)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
