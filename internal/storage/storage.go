// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"imgpress/internal/models"
)

type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(dsn string) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

// CreateImage assigns the record identity and creation time, then persists the
// row. The input must already reference two durably written blobs; the catalog
// never holds a row for a partial pipeline run.
func (s *Storage) CreateImage(ctx context.Context, img *models.Image) error {
	const op = "storage.CreateImage"

	img.ID = uuid.New()
	img.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO images (id, filename, original_key, compressed_key, original_size, compressed_size, width, height, media_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		img.ID, img.Filename, img.OriginalKey, img.CompressedKey,
		img.OriginalSize, img.CompressedSize, img.Width, img.Height,
		img.MediaType, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, models.ErrPersistence, err)
	}
	return nil
}

// ListImages returns all catalog rows, newest first.
func (s *Storage) ListImages(ctx context.Context) ([]models.Image, error) {
	const op = "storage.ListImages"

	rows, err := s.pool.Query(ctx,
		`SELECT id, filename, original_key, compressed_key, original_size, compressed_size, width, height, media_type, created_at
		 FROM images ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrPersistence, err)
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.Filename, &img.OriginalKey, &img.CompressedKey,
			&img.OriginalSize, &img.CompressedSize, &img.Width, &img.Height,
			&img.MediaType, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, models.ErrPersistence, err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrPersistence, err)
	}
	return images, nil
}
