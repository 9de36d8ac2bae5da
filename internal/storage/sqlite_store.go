package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/treefix50/showroom/internal/catalog"
)

var _ catalog.Store = (*Store)(nil)

const showColumns = `id, name, official_site, summary, premiered, rating, network,
	image_medium, image_original, source_path, poster_path, modified`

func (s *Store) SaveShows(shows []catalog.Show) (err error) {
	if s == nil || s.db == nil {
		return errNoDB
	}
	if s.readOnly {
		return ErrReadOnly
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	showStmt, err := tx.Prepare(`
		INSERT INTO shows (` + showColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			official_site=excluded.official_site,
			summary=excluded.summary,
			premiered=excluded.premiered,
			rating=excluded.rating,
			network=excluded.network,
			image_medium=excluded.image_medium,
			image_original=excluded.image_original,
			source_path=excluded.source_path,
			poster_path=excluded.poster_path,
			modified=excluded.modified
	`)
	if err != nil {
		return err
	}
	defer showStmt.Close()

	genreStmt, err := tx.Prepare(`INSERT OR IGNORE INTO show_genres (show_id, genre, position) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer genreStmt.Close()

	personStmt, err := tx.Prepare(`
		INSERT INTO people (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name
	`)
	if err != nil {
		return err
	}
	defer personStmt.Close()

	castStmt, err := tx.Prepare(`INSERT INTO cast_members (show_id, position, person_id, character_name) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer castStmt.Close()

	for _, show := range shows {
		var network, medium, original string
		if show.Network != nil {
			network = show.Network.Name
		}
		if show.Image != nil {
			medium = show.Image.Medium
			original = show.Image.Original
		}
		var rating sql.NullFloat64
		if show.Rating != nil {
			rating = sql.NullFloat64{Float64: *show.Rating, Valid: true}
		}

		if _, err = showStmt.Exec(
			show.ID,
			show.Name,
			nullString(show.OfficialSite),
			nullString(show.Summary),
			nullString(show.Premiered),
			rating,
			nullString(network),
			nullString(medium),
			nullString(original),
			show.SourcePath,
			nullString(show.PosterPath),
			show.Modified.Unix(),
		); err != nil {
			return fmt.Errorf("storage: save show %d: %w", show.ID, err)
		}

		if _, err = tx.Exec(`DELETE FROM show_genres WHERE show_id = ?`, show.ID); err != nil {
			return err
		}
		for i, genre := range show.Genres {
			if _, err = genreStmt.Exec(show.ID, genre, i); err != nil {
				return err
			}
		}

		if _, err = tx.Exec(`DELETE FROM cast_members WHERE show_id = ?`, show.ID); err != nil {
			return err
		}
		for i, member := range show.Cast {
			if _, err = personStmt.Exec(member.Person.ID, member.Person.Name); err != nil {
				return err
			}
			if _, err = castStmt.Exec(show.ID, i, member.Person.ID, nullString(member.Character.Name)); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *Store) DeleteShows(ids []int64) (err error) {
	if s == nil || s.db == nil {
		return errNoDB
	}
	if s.readOnly {
		return ErrReadOnly
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	in := strings.Join(placeholders, ",")

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Child rows are removed explicitly; foreign_keys is a per-connection
	// pragma and not every pooled connection has it enabled.
	for _, table := range []string{"show_genres", "cast_members"} {
		if _, err = tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE show_id IN (%s)", table, in), args...); err != nil {
			return err
		}
	}
	if _, err = tx.Exec(fmt.Sprintf("DELETE FROM shows WHERE id IN (%s)", in), args...); err != nil {
		return err
	}
	if _, err = tx.Exec(`DELETE FROM people WHERE id NOT IN (SELECT person_id FROM cast_members)`); err != nil {
		return err
	}

	return tx.Commit()
}

// GetAll returns every stored show ordered by name, then id.
func (s *Store) GetAll() ([]catalog.Show, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}

	rows, err := s.db.Query(`SELECT ` + showColumns + ` FROM shows ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, err
	}
	var shows []catalog.Show
	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		shows = append(shows, show)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	genres, err := s.loadGenres(0)
	if err != nil {
		return nil, err
	}
	cast, err := s.loadCast(0)
	if err != nil {
		return nil, err
	}
	for i := range shows {
		shows[i].Genres = genres[shows[i].ID]
		shows[i].Cast = cast[shows[i].ID]
	}
	return shows, nil
}

func (s *Store) GetShow(id int64) (*catalog.Show, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, errNoDB
	}

	row := s.db.QueryRow(`SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	show, err := scanShow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	genres, err := s.loadGenres(id)
	if err != nil {
		return nil, false, err
	}
	cast, err := s.loadCast(id)
	if err != nil {
		return nil, false, err
	}
	show.Genres = genres[id]
	show.Cast = cast[id]
	return &show, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(row rowScanner) (catalog.Show, error) {
	var (
		show         catalog.Show
		officialSite sql.NullString
		summary      sql.NullString
		premiered    sql.NullString
		rating       sql.NullFloat64
		network      sql.NullString
		medium       sql.NullString
		original     sql.NullString
		posterPath   sql.NullString
		modified     int64
	)
	if err := row.Scan(
		&show.ID,
		&show.Name,
		&officialSite,
		&summary,
		&premiered,
		&rating,
		&network,
		&medium,
		&original,
		&show.SourcePath,
		&posterPath,
		&modified,
	); err != nil {
		return catalog.Show{}, err
	}

	show.OfficialSite = officialSite.String
	show.Summary = summary.String
	show.Premiered = premiered.String
	show.PosterPath = posterPath.String
	show.Modified = time.Unix(modified, 0)
	if rating.Valid {
		r := rating.Float64
		show.Rating = &r
	}
	if network.Valid {
		show.Network = &catalog.Network{Name: network.String}
	}
	if medium.Valid || original.Valid {
		show.Image = &catalog.Image{Medium: medium.String, Original: original.String}
	}
	return show, nil
}

// loadGenres returns genres keyed by show id; showID 0 loads all shows.
func (s *Store) loadGenres(showID int64) (map[int64][]string, error) {
	query := `SELECT show_id, genre FROM show_genres`
	var args []any
	if showID != 0 {
		query += ` WHERE show_id = ?`
		args = append(args, showID)
	}
	query += ` ORDER BY show_id, position`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]string{}
	for rows.Next() {
		var (
			id    int64
			genre string
		)
		if err := rows.Scan(&id, &genre); err != nil {
			return nil, err
		}
		out[id] = append(out[id], genre)
	}
	return out, rows.Err()
}

// loadCast returns cast members keyed by show id; showID 0 loads all shows.
func (s *Store) loadCast(showID int64) (map[int64][]catalog.CastMember, error) {
	query := `
		SELECT c.show_id, c.person_id, p.name, c.character_name
		FROM cast_members c
		INNER JOIN people p ON p.id = c.person_id`
	var args []any
	if showID != 0 {
		query += ` WHERE c.show_id = ?`
		args = append(args, showID)
	}
	query += ` ORDER BY c.show_id, c.position`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]catalog.CastMember{}
	for rows.Next() {
		var (
			id        int64
			member    catalog.CastMember
			character sql.NullString
		)
		if err := rows.Scan(&id, &member.Person.ID, &member.Person.Name, &character); err != nil {
			return nil, err
		}
		member.Character.Name = character.String
		out[id] = append(out[id], member)
	}
	return out, rows.Err()
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
