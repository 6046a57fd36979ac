package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/artrelay/internal/models"
)

type ImageRepository struct {
	db *sql.DB
}

func NewImageRepository(db *sql.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Append assigns the id and creation time, then inserts the record.
func (r *ImageRepository) Append(ctx context.Context, image *models.ImageRecord) error {
	image.ID = uuid.NewString()
	image.CreatedAt = time.Now().UTC()

	const query = `
INSERT INTO images (id, user_id, prompt, enhanced_prompt, description, original_url, style, detail_level, result_url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, image.ID, image.UserID, image.Prompt, image.EnhancedPrompt, image.Description,
		image.OriginalURL, string(image.Style), image.DetailLevel, image.ResultURL, image.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (r *ImageRepository) ListByUser(ctx context.Context, userID string) ([]models.ImageRecord, error) {
	const query = `
SELECT id, user_id, prompt, enhanced_prompt, description, original_url, style, detail_level, result_url, created_at
FROM images
WHERE user_id = ?
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := make([]models.ImageRecord, 0)
	for rows.Next() {
		var img models.ImageRecord
		var style string
		if err := rows.Scan(&img.ID, &img.UserID, &img.Prompt, &img.EnhancedPrompt, &img.Description, &img.OriginalURL,
			&style, &img.DetailLevel, &img.ResultURL, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		img.Style = models.StyleKey(style)
		images = append(images, img)
	}
	return images, rows.Err()
}
