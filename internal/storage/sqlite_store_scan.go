package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/treefix50/showroom/internal/catalog"
)

const (
	scanStatusRunning  = "running"
	scanStatusFinished = "finished"
	scanStatusFailed   = "failed"
)

// AddRoot registers a library root, returning the existing entry when the
// path is already known.
func (s *Store) AddRoot(path string) (catalog.LibraryRoot, error) {
	if s == nil || s.db == nil {
		return catalog.LibraryRoot{}, errNoDB
	}
	if s.readOnly {
		return catalog.LibraryRoot{}, ErrReadOnly
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	var (
		root      catalog.LibraryRoot
		createdAt int64
	)
	err := s.db.QueryRow(`SELECT id, path, created_at FROM library_roots WHERE path = ?`, path).
		Scan(&root.ID, &root.Path, &createdAt)
	if err == nil {
		root.CreatedAt = time.Unix(createdAt, 0)
		return root, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return catalog.LibraryRoot{}, err
	}

	root = catalog.LibraryRoot{
		ID:        uuid.NewString(),
		Path:      path,
		CreatedAt: time.Now(),
	}
	if _, err := s.db.Exec(
		`INSERT INTO library_roots (id, path, created_at) VALUES (?, ?, ?)`,
		root.ID, root.Path, root.CreatedAt.Unix(),
	); err != nil {
		return catalog.LibraryRoot{}, fmt.Errorf("storage: add root %s: %w", path, err)
	}
	return root, nil
}

func (s *Store) ListRoots() ([]catalog.LibraryRoot, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}

	rows, err := s.db.Query(`SELECT id, path, created_at FROM library_roots ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roots []catalog.LibraryRoot
	for rows.Next() {
		var (
			root      catalog.LibraryRoot
			createdAt int64
		)
		if err := rows.Scan(&root.ID, &root.Path, &createdAt); err != nil {
			return nil, err
		}
		root.CreatedAt = time.Unix(createdAt, 0)
		roots = append(roots, root)
	}
	return roots, rows.Err()
}

func (s *Store) StartScanRun(rootID string, startedAt time.Time) (catalog.ScanRun, error) {
	if s == nil || s.db == nil {
		return catalog.ScanRun{}, errNoDB
	}
	if s.readOnly {
		return catalog.ScanRun{}, ErrReadOnly
	}

	run := catalog.ScanRun{
		ID:        uuid.NewString(),
		RootID:    rootID,
		StartedAt: startedAt,
		Status:    scanStatusRunning,
	}
	_, err := s.db.Exec(
		`INSERT INTO scan_runs (id, root_id, started_at, status) VALUES (?, ?, ?, ?)`,
		run.ID, run.RootID, run.StartedAt.Unix(), run.Status,
	)
	if err != nil {
		return catalog.ScanRun{}, fmt.Errorf("storage: start scan run: %w", err)
	}
	return run, nil
}

func (s *Store) FinishScanRun(id string, finishedAt time.Time, found int) error {
	return s.endScanRun(id, finishedAt, scanStatusFinished, "", found)
}

func (s *Store) FailScanRun(id string, finishedAt time.Time, errMsg string) error {
	return s.endScanRun(id, finishedAt, scanStatusFailed, errMsg, 0)
}

func (s *Store) endScanRun(id string, finishedAt time.Time, status, errMsg string, found int) error {
	if s == nil || s.db == nil {
		return errNoDB
	}
	if s.readOnly {
		return ErrReadOnly
	}

	res, err := s.db.Exec(`
		UPDATE scan_runs
		SET finished_at = ?, status = ?, error = ?, shows_found = ?
		WHERE id = ?
	`, finishedAt.Unix(), status, nullString(errMsg), found, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("storage: scan run %s not found", id)
	}
	return nil
}

// ListScanRuns returns the most recent scan runs first.
func (s *Store) ListScanRuns(limit int) ([]catalog.ScanRun, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, root_id, started_at, finished_at, status, error, shows_found
		FROM scan_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []catalog.ScanRun
	for rows.Next() {
		var (
			run        catalog.ScanRun
			startedAt  int64
			finishedAt sql.NullInt64
			errMsg     sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.RootID, &startedAt, &finishedAt, &run.Status, &errMsg, &run.Found); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(startedAt, 0)
		if finishedAt.Valid {
			run.FinishedAt = time.Unix(finishedAt.Int64, 0)
		}
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
