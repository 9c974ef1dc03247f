package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
)

var _ models.Repository[*models.ImportedMedia] = (*MediaRepository)(nil)

const mediaColumns = `id, filename, original_name, remote_id, kind, extension, mime_type, url,
	original_size, processed_size, created_at`

// MediaRepository stores [models.ImportedMedia] rows in the imported_media table.
type MediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new MediaRepository with the given database connection
func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create inserts m, assigning an ID and creation time when they are unset.
func (r *MediaRepository) Create(ctx context.Context, m *models.ImportedMedia) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if m.ID == "" {
		m.ID = shared.GenerateID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO imported_media (` + mediaColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.Filename,
		m.OriginalName,
		m.RemoteID,
		string(m.Kind),
		m.Extension,
		m.MimeType,
		m.URL,
		m.OriginalSize,
		m.ProcessedSize,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert imported media: %w", err)
	}
	return nil
}

// Get retrieves a ledger row by ID.
func (r *MediaRepository) Get(ctx context.Context, id string) (*models.ImportedMedia, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM imported_media WHERE id = ?`, id)
	m, err := scanMedia(row)
	if err != nil {
		return nil, notFound(err, "imported media", id)
	}
	return m, nil
}

// GetByFilename retrieves a ledger row by its stored filename.
func (r *MediaRepository) GetByFilename(ctx context.Context, filename string) (*models.ImportedMedia, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM imported_media WHERE filename = ?`, filename)
	m, err := scanMedia(row)
	if err != nil {
		return nil, notFound(err, "imported media", filename)
	}
	return m, nil
}

// List returns ledger rows, newest first.
//
// Supported criteria: "kind" (string or [models.MediaKind]), "remote_id" (string) and "limit" (int).
func (r *MediaRepository) List(ctx context.Context, criteria map[string]any) ([]*models.ImportedMedia, error) {
	query := `SELECT ` + mediaColumns + ` FROM imported_media WHERE 1 = 1`
	args := []any{}

	switch kind := criteria["kind"].(type) {
	case models.MediaKind:
		query += " AND kind = ?"
		args = append(args, string(kind))
	case string:
		if kind != "" {
			query += " AND kind = ?"
			args = append(args, kind)
		}
	}

	if remoteID, ok := criteria["remote_id"].(string); ok && remoteID != "" {
		query += " AND remote_id = ?"
		args = append(args, remoteID)
	}

	query += " ORDER BY created_at DESC, filename ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query imported media: %w", err)
	}
	defer rows.Close()

	var media []*models.ImportedMedia
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan imported media: %w", err)
		}
		media = append(media, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return media, nil
}

// Stats aggregates processed sizes per kind.
func (r *MediaRepository) Stats(ctx context.Context) (*models.MediaStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, COUNT(*), COALESCE(SUM(processed_size), 0)
		FROM imported_media
		GROUP BY kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query media stats: %w", err)
	}
	defer rows.Close()

	stats := &models.MediaStats{}
	for rows.Next() {
		var (
			kind  string
			count int
			size  int64
		)
		if err := rows.Scan(&kind, &count, &size); err != nil {
			return nil, fmt.Errorf("failed to scan media stats: %w", err)
		}

		ks := models.KindStats{Count: count, Size: size}
		if models.MediaKind(kind) == models.KindVideo {
			stats.Videos = ks
		} else {
			stats.Images.Count += ks.Count
			stats.Images.Size += ks.Size
		}
		stats.TotalFiles += count
		stats.TotalSize += size
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return stats, nil
}

func scanMedia(s scanner) (*models.ImportedMedia, error) {
	var (
		m    models.ImportedMedia
		kind string
	)
	err := s.Scan(
		&m.ID,
		&m.Filename,
		&m.OriginalName,
		&m.RemoteID,
		&kind,
		&m.Extension,
		&m.MimeType,
		&m.URL,
		&m.OriginalSize,
		&m.ProcessedSize,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Kind = models.MediaKind(kind)
	return &m, nil
}
