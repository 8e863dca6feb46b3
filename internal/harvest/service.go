// Package harvest wires the collector, partitioner, worker pool, report
// writers and storage into the three end-to-end flows exposed by the CLI.
package harvest

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/harvestkit/bucket-harvest/internal/collector"
	"github.com/harvestkit/bucket-harvest/internal/logging"
	"github.com/harvestkit/bucket-harvest/internal/storage"
)

// Service runs the harvest flows. The storage layer is optional; when nil,
// runs still produce their file artifacts but no session record is kept.
type Service struct {
	collector collector.Collector
	store     storage.Storage
	log       zerolog.Logger
}

// NewService creates a harvest service around a collector and an optional
// session store.
func NewService(col collector.Collector, store storage.Storage) *Service {
	return &Service{
		collector: col,
		store:     store,
		log:       logging.NewLogger("harvest"),
	}
}

// SplitRepoPath splits an "owner/repo" path into its two parts.
func SplitRepoPath(path string) (owner, repo string, err error) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository path %q, expected owner/repo", path)
	}
	return parts[0], parts[1], nil
}
