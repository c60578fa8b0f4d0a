package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const buildColumns = `id, status, started_at, completed_at, pages_written, pages_skipped, error`

// CreateBuild records the start of a build.
func (s *SQLiteStore) CreateBuild() (*Build, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	build := &Build{
		ID:        generateID(),
		Status:    BuildStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating build", slog.String("id", build.ID))

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO builds (id, status, started_at) VALUES (?, ?, ?)`,
		build.ID, string(build.Status), build.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create build: %w", err)
	}
	return build, nil
}

// GetBuild retrieves a build by ID.
func (s *SQLiteStore) GetBuild(id string) (*Build, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx(), `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	build, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("build not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build: %w", err)
	}
	return build, nil
}

// CompleteBuild marks a build as finished with the given status and counts.
func (s *SQLiteStore) CompleteBuild(id string, status BuildStatus, stats BuildStats, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}

	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.ExecContext(ctx(),
		`UPDATE builds SET status = ?, completed_at = ?, pages_written = ?, pages_skipped = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), stats.Written, stats.Skipped, errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete build: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("build not found: %s", id)
	}
	return nil
}

// GetLatestBuild retrieves the most recent build, or nil when there is none.
func (s *SQLiteStore) GetLatestBuild() (*Build, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx(), `SELECT `+buildColumns+` FROM builds ORDER BY started_at DESC LIMIT 1`)
	build, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest build: %w", err)
	}
	return build, nil
}

// ListBuilds retrieves the most recent builds up to the given limit.
func (s *SQLiteStore) ListBuilds(limit int) ([]*Build, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT `+buildColumns+` FROM builds ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var builds []*Build
	for rows.Next() {
		build, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		builds = append(builds, build)
	}
	return builds, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (*Build, error) {
	build := &Build{}
	var (
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	err := row.Scan(&build.ID, &status, &build.StartedAt, &completedAt,
		&build.Stats.Written, &build.Stats.Skipped, &errMsg)
	if err != nil {
		return nil, err
	}

	build.Status = BuildStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		build.CompletedAt = &t
	}
	if errMsg.Valid {
		build.Error = errMsg.String
	}
	return build, nil
}
