package storage

import (
	"context"

	"github.com/harvestkit/bucket-harvest/internal/domain"
)

// Storage is the abstract interface for the persistence layer
type Storage interface {
	// Session operations
	SaveSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, kind domain.SessionKind, target string) ([]*domain.Session, error)

	// Assignment operations
	SaveAssignments(ctx context.Context, sessionID string, assignments []domain.Assignment) error
	GetAssignments(ctx context.Context, sessionID string) ([]domain.Assignment, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
