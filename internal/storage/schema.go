package storage

import "fmt"

const schemaShows = `
CREATE TABLE IF NOT EXISTS shows (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	official_site TEXT,
	summary TEXT,
	premiered TEXT,
	rating REAL CHECK (rating IS NULL OR (rating >= 0 AND rating <= 10)),
	network TEXT,
	image_medium TEXT,
	image_original TEXT,
	source_path TEXT NOT NULL,
	poster_path TEXT,
	modified INTEGER NOT NULL DEFAULT 0
);`

const schemaShowGenres = `
CREATE TABLE IF NOT EXISTS show_genres (
	show_id INTEGER NOT NULL,
	genre TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (show_id, genre),
	FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE CASCADE
);`

const schemaPeople = `
CREATE TABLE IF NOT EXISTS people (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);`

const schemaCastMembers = `
CREATE TABLE IF NOT EXISTS cast_members (
	show_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	person_id INTEGER NOT NULL,
	character_name TEXT,
	PRIMARY KEY (show_id, position),
	FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE CASCADE,
	FOREIGN KEY (person_id) REFERENCES people(id)
);`

const schemaLibraryRoots = `
CREATE TABLE IF NOT EXISTS library_roots (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL
);`

const schemaScanRuns = `
CREATE TABLE IF NOT EXISTS scan_runs (
	id TEXT PRIMARY KEY,
	root_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER,
	status TEXT NOT NULL,
	error TEXT,
	FOREIGN KEY (root_id) REFERENCES library_roots(id) ON DELETE CASCADE
);`

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY
);`

type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			schemaShows,
			schemaShowGenres,
			schemaPeople,
			schemaCastMembers,
			schemaLibraryRoots,
			schemaScanRuns,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_shows_name ON shows(name COLLATE NOCASE, id);`,
			`CREATE INDEX IF NOT EXISTS idx_show_genres_genre ON show_genres(genre COLLATE NOCASE);`,
			`CREATE INDEX IF NOT EXISTS idx_cast_members_person_id ON cast_members(person_id);`,
			`CREATE INDEX IF NOT EXISTS idx_scan_runs_started_at ON scan_runs(started_at DESC);`,
		},
	},
	{
		version: 3,
		statements: []string{
			`ALTER TABLE scan_runs ADD COLUMN shows_found INTEGER NOT NULL DEFAULT 0;`,
		},
	},
}

func (s *Store) EnsureSchema() error {
	return s.MigrateSchema()
}

func (s *Store) MigrateSchema() error {
	if s == nil || s.db == nil {
		return errNoDB
	}

	if _, err := s.db.Exec(schemaMigrations); err != nil {
		return fmt.Errorf("storage: create schema_migrations table: %w", err)
	}

	current, err := s.currentSchemaVersion()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.version <= current {
			continue
		}
		if err := s.applyMigration(migration); err != nil {
			return err
		}
		current = migration.version
	}

	return nil
}

func (s *Store) currentSchemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("storage: read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) applyMigration(migration migration) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: start migration %d: %w", migration.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, statement := range migration.statements {
		if _, err = tx.Exec(statement); err != nil {
			return fmt.Errorf("storage: migration %d failed: %w", migration.version, err)
		}
	}

	if _, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, migration.version); err != nil {
		return fmt.Errorf("storage: record migration %d: %w", migration.version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit migration %d: %w", migration.version, err)
	}
	return nil
}
