package store

import (
	"context"
	"database/sql"
	"errors"

	"dealer-service/internal/models"
)

// CreateImage inserts a new image catalog row
func (s *Store) CreateImage(ctx context.Context, img *models.VehicleImage) error {
	query := `
		INSERT INTO vehicle_images (vehicle_id, image_url, storage_key, alt_text, is_primary, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, img, query,
		img.VehicleID, img.ImageURL, img.StorageKey, img.AltText, img.IsPrimary, img.SortOrder)
}

// GetImagesByVehicle retrieves all images for a vehicle, oldest first so
// duplicate cleanup keeps the earliest record.
func (s *Store) GetImagesByVehicle(ctx context.Context, vehicleID int64) ([]models.VehicleImage, error) {
	var images []models.VehicleImage
	err := s.db.SelectContext(ctx, &images,
		"SELECT * FROM vehicle_images WHERE vehicle_id = $1 ORDER BY created_at, id", vehicleID)
	return images, err
}

// GetImageByID retrieves an image row by ID. Returns nil when absent.
func (s *Store) GetImageByID(ctx context.Context, imageID int64) (*models.VehicleImage, error) {
	var img models.VehicleImage
	err := s.db.GetContext(ctx, &img, "SELECT * FROM vehicle_images WHERE id = $1", imageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// GetImageByURL retrieves the oldest image row matching a URL for a vehicle.
// Returns nil when absent so callers can treat a miss as already-deleted.
func (s *Store) GetImageByURL(ctx context.Context, vehicleID int64, url string) (*models.VehicleImage, error) {
	var img models.VehicleImage
	err := s.db.GetContext(ctx, &img,
		"SELECT * FROM vehicle_images WHERE vehicle_id = $1 AND image_url = $2 ORDER BY created_at, id LIMIT 1",
		vehicleID, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// ClearPrimaryImages clears the primary flag on every image of a vehicle
func (s *Store) ClearPrimaryImages(ctx context.Context, vehicleID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE vehicle_images SET is_primary = FALSE WHERE vehicle_id = $1", vehicleID)
	return err
}

// SetPrimaryImage marks one image row as primary
func (s *Store) SetPrimaryImage(ctx context.Context, imageID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE vehicle_images SET is_primary = TRUE WHERE id = $1", imageID)
	return err
}

// DeleteImage removes an image catalog row
func (s *Store) DeleteImage(ctx context.Context, imageID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM vehicle_images WHERE id = $1", imageID)
	return err
}
