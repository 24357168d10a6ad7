package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hivex-io/hivex/internal/model"
	"github.com/hivex-io/hivex/pkg/database"
)

// QRImageRepository stores rendered QR codes next to the coupons that reference them.
// Storing inside the issuance transaction means a rolled back issuance leaves no images behind.
type QRImageRepository struct {
	pool database.TxQuerier
}

// NewQRImageRepository creates a new QRImageRepository with the given pool.
func NewQRImageRepository(pool *pgxpool.Pool) *QRImageRepository {
	return &QRImageRepository{pool: pool}
}

// NewQRImageRepositoryWithPool creates a new QRImageRepository with a custom pool interface.
func NewQRImageRepositoryWithPool(pool database.TxQuerier) *QRImageRepository {
	return &QRImageRepository{pool: pool}
}

// Store persists img within tx. img.ID is the artifact reference.
func (r *QRImageRepository) Store(ctx context.Context, tx database.TxQuerier, img *model.QRImage) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO qr_images (id, filename, content_type, data, uploaded_at) VALUES ($1, $2, $3, $4, $5)`,
		img.ID, img.Filename, img.ContentType, img.Data, img.UploadedAt)
	if err != nil {
		return fmt.Errorf("store qr image %s: %w", img.Filename, err)
	}
	return nil
}

// Fetch returns nil, nil if the image is not found.
func (r *QRImageRepository) Fetch(ctx context.Context, id uuid.UUID) (*model.QRImage, error) {
	var img model.QRImage
	err := r.pool.QueryRow(ctx,
		`SELECT id, filename, content_type, data, uploaded_at FROM qr_images WHERE id = $1`, id,
	).Scan(&img.ID, &img.Filename, &img.ContentType, &img.Data, &img.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch qr image %s: %w", id, err)
	}
	return &img, nil
}
