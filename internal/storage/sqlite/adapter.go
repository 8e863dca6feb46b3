package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harvestkit/bucket-harvest/internal/domain"
	"github.com/harvestkit/bucket-harvest/internal/storage"
)

// sqliteStorage implements the Storage interface for SQLite
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		target TEXT NOT NULL,
		buckets INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_kind_target ON sessions(kind, target);
	CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);

	CREATE TABLE IF NOT EXISTS assignments (
		session_id TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		bucket_id INTEGER NOT NULL,
		derived_date TEXT NOT NULL,
		PRIMARY KEY (session_id, entity_id),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_session ON assignments(session_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_bucket ON assignments(session_id, bucket_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveSession saves a harvest session
func (s *sqliteStorage) SaveSession(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT OR REPLACE INTO sessions (id, kind, target, buckets, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		string(session.Kind),
		session.Target,
		session.Buckets,
		session.CreatedAt,
	)
	return err
}

// GetSession retrieves a session by id
func (s *sqliteStorage) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT id, kind, target, buckets, created_at
		FROM sessions
		WHERE id = ?
	`
	var sess domain.Session
	var kind string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&sess.ID, &kind, &sess.Target, &sess.Buckets, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	sess.Kind = domain.SessionKind(kind)

	return &sess, nil
}

// ListSessions retrieves all sessions for a kind and target, newest first
func (s *sqliteStorage) ListSessions(ctx context.Context, kind domain.SessionKind, target string) ([]*domain.Session, error) {
	query := `
		SELECT id, kind, target, buckets, created_at
		FROM sessions
		WHERE kind = ? AND target = ?
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, string(kind), target)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var sess domain.Session
		var k string
		if err := rows.Scan(&sess.ID, &k, &sess.Target, &sess.Buckets, &sess.CreatedAt); err != nil {
			return nil, err
		}
		sess.Kind = domain.SessionKind(k)
		sessions = append(sessions, &sess)
	}

	return sessions, rows.Err()
}

// SaveAssignments saves all bucket assignments for a session
func (s *sqliteStorage) SaveAssignments(ctx context.Context, sessionID string, assignments []domain.Assignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO assignments (session_id, entity_id, bucket_id, derived_date)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range assignments {
		_, err = stmt.ExecContext(ctx,
			sessionID,
			a.EntityID,
			a.BucketID,
			a.DerivedDate,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetAssignments retrieves all assignments for a session ordered by bucket
func (s *sqliteStorage) GetAssignments(ctx context.Context, sessionID string) ([]domain.Assignment, error) {
	query := `
		SELECT entity_id, bucket_id, derived_date
		FROM assignments
		WHERE session_id = ?
		ORDER BY bucket_id, entity_id
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.EntityID, &a.BucketID, &a.DerivedDate); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// Close closes the database connection
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}
