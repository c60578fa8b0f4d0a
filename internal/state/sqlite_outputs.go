package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetOutputHash retrieves the content hash of a generated file. An unknown
// path yields an empty hash.
func (s *SQLiteStore) GetOutputHash(path string) (string, error) {
	if s.db == nil {
		return "", errNotOpened
	}

	var hash string
	err := s.db.QueryRowContext(ctx(), `SELECT content_hash FROM outputs WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get output hash: %w", err)
	}
	return hash, nil
}

// SetOutputHash stores the content hash of a generated file.
func (s *SQLiteStore) SetOutputHash(path, hash, buildID string) error {
	if s.db == nil {
		return errNotOpened
	}

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO outputs (path, content_hash, build_id, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   build_id = excluded.build_id,
		   updated_at = excluded.updated_at`,
		path, hash, buildID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set output hash: %w", err)
	}
	return nil
}

// DeleteOutput forgets a generated file.
func (s *SQLiteStore) DeleteOutput(path string) error {
	if s.db == nil {
		return errNotOpened
	}

	if _, err := s.db.ExecContext(ctx(), `DELETE FROM outputs WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete output: %w", err)
	}
	return nil
}

// ListOutputs returns all tracked outputs ordered by path.
func (s *SQLiteStore) ListOutputs() ([]*Output, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT path, content_hash, build_id, updated_at FROM outputs ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list outputs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outputs []*Output
	for rows.Next() {
		o := &Output{}
		if err := rows.Scan(&o.Path, &o.ContentHash, &o.BuildID, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan output: %w", err)
		}
		outputs = append(outputs, o)
	}
	return outputs, rows.Err()
}
