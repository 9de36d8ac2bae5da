package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

var (
	// ErrReadOnly is returned by write operations on a read-only store.
	ErrReadOnly = errors.New("storage: read-only mode")

	errNoDB = errors.New("storage: missing database connection")
)

type Store struct {
	db       *sql.DB
	readOnly bool
}

// Options tunes the SQLite connection. CacheSize follows PRAGMA cache_size
// semantics (negative values are KiB); zero selects -2000.
type Options struct {
	BusyTimeout time.Duration
	Synchronous string
	CacheSize   int
	ReadOnly    bool
}

func (o Options) pragmas() []string {
	cacheSize := o.CacheSize
	if cacheSize == 0 {
		cacheSize = -2000
	}
	out := []string{
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA busy_timeout=%d", o.BusyTimeout.Milliseconds()),
		"PRAGMA temp_store=MEMORY",
		fmt.Sprintf("PRAGMA cache_size=%d", cacheSize),
	}
	if o.ReadOnly {
		return out
	}
	synchronous := strings.ToUpper(strings.TrimSpace(o.Synchronous))
	if synchronous == "" {
		synchronous = "NORMAL"
	}
	return append(out,
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous="+synchronous,
		"PRAGMA journal_size_limit=67108864",
	)
}

// sqliteDSN turns path into a read-only file: URI when needed.
func sqliteDSN(path string, readOnly bool) (string, error) {
	if !readOnly {
		return path, nil
	}
	if path == memoryPath {
		return "", errors.New("storage: read-only mode requires a file-backed database")
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("mode", "ro")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Open connects to the SQLite database at path and migrates it unless it is
// opened read-only.
func Open(path string, options Options) (*Store, error) {
	dsn, err := sqliteDSN(path, options.ReadOnly)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == memoryPath {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range options.pragmas() {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, readOnly: options.ReadOnly}
	if !options.ReadOnly {
		if err := store.MigrateSchema(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ReadOnly() bool {
	return s != nil && s.readOnly
}

// Stats summarises what the database holds.
type Stats struct {
	Shows    int
	People   int
	ScanRuns int
	// SizeBytes is page_count * page_size.
	SizeBytes int64
}

func (s *Store) Stats() (Stats, error) {
	if s == nil || s.db == nil {
		return Stats{}, errNoDB
	}
	var st Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"shows", &st.Shows},
		{"people", &st.People},
		{"scan_runs", &st.ScanRuns},
	}
	for _, c := range counts {
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("storage: count %s: %w", c.table, err)
		}
	}
	var pages, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pages); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return Stats{}, err
	}
	st.SizeBytes = pages * pageSize
	return st, nil
}

// IntegrityCheck returns the rows of PRAGMA integrity_check; a healthy
// database yields a single "ok".
func (s *Store) IntegrityCheck() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.Query("PRAGMA integrity_check")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Vacuum compacts the database in place, or writes a compacted copy to
// target when it is set.
func (s *Store) Vacuum(target string) error {
	if s == nil || s.db == nil {
		return errNoDB
	}
	if target == "" {
		if s.readOnly {
			return ErrReadOnly
		}
		_, err := s.db.Exec("VACUUM")
		return err
	}
	_, err := s.db.Exec("VACUUM INTO ?", target)
	return err
}

func (s *Store) Analyze() error {
	if s == nil || s.db == nil {
		return errNoDB
	}
	if s.readOnly {
		return ErrReadOnly
	}
	_, err := s.db.Exec("ANALYZE")
	return err
}
