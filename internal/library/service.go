package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pellworth/audiocove/internal/media"
)

const chapterColumns = `id, path, title, author, book, disk, position, size_bytes, modified, created_at, updated_at`

// Service provides access to the imported library.
type Service struct {
	db *sql.DB
}

// NewService creates a library service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Files returns the set of all imported file paths.
func (s *Service) Files(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM chapters`)
	if err != nil {
		return nil, fmt.Errorf("listing imported files: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	files := make(map[string]struct{})
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scanning file path: %w", err)
		}
		files[path] = struct{}{}
	}
	return files, rows.Err()
}

// Chapters returns one entry per imported file with its recorded
// modification time.
func (s *Service) Chapters(ctx context.Context) ([]Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, modified FROM chapters`)
	if err != nil {
		return nil, fmt.Errorf("listing chapters: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var chapters []Chapter
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.File, &c.Modified); err != nil {
			return nil, fmt.Errorf("scanning chapter: %w", err)
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

// InsertMany adds a batch of records in a single transaction. A record whose
// path is already imported replaces the stored row (a changed file that was
// re-probed). The batch is atomic: either every record lands or none does.
func (s *Service) InsertMany(ctx context.Context, records []*media.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chapters (id, path, title, author, book, disk, position, size_bytes, modified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			book = excluded.book,
			disk = excluded.disk,
			position = excluded.position,
			size_bytes = excluded.size_bytes,
			modified = excluded.modified,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		if rec.Path == "" {
			return fmt.Errorf("record has an empty path")
		}
		_, err := stmt.ExecContext(ctx,
			uuid.New().String(), rec.Path, rec.Title, rec.Author, rec.Book,
			rec.Disk, rec.Position, rec.SizeBytes, rec.Modified, now, now,
		)
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// GetByPath retrieves an imported record by file path.
// Returns nil, nil when no record matches.
func (s *Service) GetByPath(ctx context.Context, path string) (*media.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE path = ?`, path)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting record by path: %w", err)
	}
	return rec, nil
}

// List returns all imported records ordered by author, book, disk, position.
func (s *Service) List(ctx context.Context) ([]media.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters ORDER BY author, book, disk, position, path`)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var records []media.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Count returns the number of imported records.
func (s *Service) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chapters`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// scanRecord scans a database row into a media.Record.
func scanRecord(row interface{ Scan(...any) error }) (*media.Record, error) {
	var rec media.Record
	var id, createdAt, updatedAt string

	err := row.Scan(
		&id, &rec.Path, &rec.Title, &rec.Author, &rec.Book,
		&rec.Disk, &rec.Position, &rec.SizeBytes, &rec.Modified,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
