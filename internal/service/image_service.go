package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"dealer-service/internal/apperrors"
	"dealer-service/internal/models"
	"dealer-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImageService owns which images exist per vehicle and which one is primary.
// Blobs live in the media store; catalog rows live in the persistent store.
type ImageService struct {
	store     ImageStore
	blobs     BlobStore
	cache     ListingCache
	publisher Publisher
	logger    *zap.Logger
}

// NewImageService creates a new image catalog service
func NewImageService(store ImageStore, blobs BlobStore, cache ListingCache, publisher Publisher) *ImageService {
	return &ImageService{
		store:     store,
		blobs:     blobs,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// UploadInput is one file handed to the image catalog
type UploadInput struct {
	FileName    string
	ContentType string
	Content     []byte
	AltText     string
}

// storageKey builds a collision-resistant blob key scoped under the vehicle.
// Timestamp plus random suffix keeps concurrent uploads for the same vehicle
// from overwriting each other.
func storageKey(vehicleID int64, fileName string) string {
	ext := filepath.Ext(fileName)
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("vehicles/%d/%d-%s%s", vehicleID, time.Now().UnixNano(), suffix, ext)
}

// Upload stores one image blob and inserts its catalog row. A blob failure
// aborts with no catalog write. A catalog failure after a successful blob
// write triggers a best-effort blob cleanup before the error is returned.
func (s *ImageService) Upload(ctx context.Context, vehicleID int64, in UploadInput, isPrimary bool) (*models.VehicleImage, error) {
	ctx, span := util.StartSpan(ctx, "ImageService.Upload")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ImageUploadLatency.Observe(time.Since(start).Seconds())
	}()

	key := storageKey(vehicleID, in.FileName)
	url, err := s.blobs.Put(ctx, key, in.ContentType, in.Content)
	if err != nil {
		util.ImageUploadsFailedTotal.WithLabelValues("storage_write").Inc()
		return nil, apperrors.NewStorageWriteError(err)
	}

	existing, err := s.store.GetImagesByVehicle(ctx, vehicleID)
	if err != nil {
		s.cleanupBlob(ctx, key)
		util.ImageUploadsFailedTotal.WithLabelValues("catalog_write").Inc()
		return nil, apperrors.NewCatalogWriteError(err)
	}

	if isPrimary {
		if err := s.store.ClearPrimaryImages(ctx, vehicleID); err != nil {
			s.cleanupBlob(ctx, key)
			util.ImageUploadsFailedTotal.WithLabelValues("catalog_write").Inc()
			return nil, apperrors.NewCatalogWriteError(err)
		}
	}

	img := &models.VehicleImage{
		VehicleID:  vehicleID,
		ImageURL:   url,
		StorageKey: key,
		AltText:    in.AltText,
		IsPrimary:  isPrimary,
		SortOrder:  len(existing),
	}
	if err := s.store.CreateImage(ctx, img); err != nil {
		s.cleanupBlob(ctx, key)
		util.ImageUploadsFailedTotal.WithLabelValues("catalog_write").Inc()
		return nil, apperrors.NewCatalogWriteError(err)
	}

	util.ImagesUploadedTotal.Inc()
	s.invalidate(ctx, vehicleID)
	return img, nil
}

func (s *ImageService) cleanupBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("Orphan blob cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

// UploadMultiple fans the files out concurrently, marking only the first as
// primary. If anything in the concurrent phase fails, the successes of that
// phase are rolled back and the whole list is retried strictly sequentially,
// continuing past per-file failures. The caller gets whatever subset made it,
// plus a PartialBatchFailure when the fallback lost files too.
func (s *ImageService) UploadMultiple(ctx context.Context, vehicleID int64, files []UploadInput) ([]string, error) {
	ctx, span := util.StartSpan(ctx, "ImageService.UploadMultiple")
	defer span.End()

	if len(files) == 0 {
		return nil, nil
	}

	type result struct {
		img *models.VehicleImage
		err error
	}
	results := make([]result, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f UploadInput) {
			defer wg.Done()
			img, err := s.Upload(ctx, vehicleID, f, i == 0)
			results[i] = result{img: img, err: err}
		}(i, f)
	}
	wg.Wait()

	failed := false
	for _, r := range results {
		if r.err != nil {
			failed = true
			break
		}
	}

	if !failed {
		urls := make([]string, len(results))
		for i, r := range results {
			urls[i] = r.img.ImageURL
		}
		return urls, nil
	}

	// Roll back the concurrent phase so the sequential retry does not leave
	// duplicate rows behind, then retry one file at a time.
	util.BatchUploadFallbackTotal.Inc()
	s.logger.Warn("Concurrent batch upload failed, falling back to sequential",
		zap.Int64("vehicle_id", vehicleID), zap.Int("files", len(files)))

	for _, r := range results {
		if r.err == nil && r.img != nil {
			if err := s.deleteResolved(ctx, r.img); err != nil {
				s.logger.Warn("Failed to roll back concurrent upload",
					zap.Int64("image_id", r.img.ID), zap.Error(err))
			}
		}
	}

	var uploaded []string
	var failures []apperrors.FileFailure
	for i, f := range files {
		img, err := s.Upload(ctx, vehicleID, f, i == 0)
		if err != nil {
			s.logger.Error("Sequential upload failed",
				zap.Int64("vehicle_id", vehicleID),
				zap.String("file", f.FileName),
				zap.Error(err))
			failures = append(failures, apperrors.FileFailure{FileName: f.FileName, Err: err})
			continue
		}
		uploaded = append(uploaded, img.ImageURL)
	}

	if len(failures) > 0 {
		return uploaded, &apperrors.PartialBatchFailure{Uploaded: uploaded, Failed: failures}
	}
	return uploaded, nil
}

// GetImagesByVehicle returns the catalog rows for a vehicle, oldest first
func (s *ImageService) GetImagesByVehicle(ctx context.Context, vehicleID int64) ([]models.VehicleImage, error) {
	return s.store.GetImagesByVehicle(ctx, vehicleID)
}

// SetPrimaryImage clears the primary flag on every image of the vehicle and
// then sets it on the target. The clear must run first; reversing the order
// would erase the new primary along with the old ones.
func (s *ImageService) SetPrimaryImage(ctx context.Context, vehicleID, imageID int64) error {
	ctx, span := util.StartSpan(ctx, "ImageService.SetPrimaryImage")
	defer span.End()

	img, err := s.store.GetImageByID(ctx, imageID)
	if err != nil {
		return err
	}
	if img == nil || img.VehicleID != vehicleID {
		return apperrors.NewImageNotFoundError(vehicleID, imageID)
	}

	if err := s.store.ClearPrimaryImages(ctx, vehicleID); err != nil {
		return fmt.Errorf("failed to clear primary images: %w", err)
	}
	if err := s.store.SetPrimaryImage(ctx, imageID); err != nil {
		return fmt.Errorf("failed to set primary image: %w", err)
	}

	event := &models.ImagePrimaryChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeImagePrimaryChanged,
			Timestamp: time.Now(),
		},
		VehicleID: vehicleID,
		ImageID:   imageID,
		ImageURL:  img.ImageURL,
	}
	if err := s.publisher.PublishImagePrimaryChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish ImagePrimaryChanged event", zap.Error(err))
	}

	s.invalidate(ctx, vehicleID)
	return nil
}

// DeleteImage removes an image by id: best-effort blob delete, then the
// catalog row. A blob-store failure is logged, never blocks row removal.
func (s *ImageService) DeleteImage(ctx context.Context, imageID int64) error {
	ctx, span := util.StartSpan(ctx, "ImageService.DeleteImage")
	defer span.End()

	img, err := s.store.GetImageByID(ctx, imageID)
	if err != nil {
		return err
	}
	if img == nil {
		return apperrors.NewImageNotFoundError(0, imageID)
	}
	return s.deleteResolved(ctx, img)
}

// DeleteImageByURL is the lenient variant: a missing row is treated as
// already deleted so racing UI retries stay idempotent.
func (s *ImageService) DeleteImageByURL(ctx context.Context, vehicleID int64, url string) error {
	ctx, span := util.StartSpan(ctx, "ImageService.DeleteImageByURL")
	defer span.End()

	img, err := s.store.GetImageByURL(ctx, vehicleID, url)
	if err != nil {
		return err
	}
	if img == nil {
		return nil
	}
	return s.deleteResolved(ctx, img)
}

func (s *ImageService) deleteResolved(ctx context.Context, img *models.VehicleImage) error {
	if img.StorageKey != "" {
		if err := s.blobs.Delete(ctx, img.StorageKey); err != nil {
			s.logger.Warn("Blob delete failed, removing catalog row anyway",
				zap.String("key", img.StorageKey),
				zap.Error(apperrors.NewStorageDeleteError(err)))
		}
	}

	if err := s.store.DeleteImage(ctx, img.ID); err != nil {
		return fmt.Errorf("failed to delete image row: %w", err)
	}

	s.invalidate(ctx, img.VehicleID)
	return nil
}

// RemoveDuplicateImages keeps the oldest catalog row per URL and deletes the
// later duplicates. Catalog rows only; blobs are untouched. Idempotent.
func (s *ImageService) RemoveDuplicateImages(ctx context.Context, vehicleID int64) (int, error) {
	ctx, span := util.StartSpan(ctx, "ImageService.RemoveDuplicateImages")
	defer span.End()

	images, err := s.store.GetImagesByVehicle(ctx, vehicleID)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(images))
	removed := 0
	for _, img := range images {
		if !seen[img.ImageURL] {
			seen[img.ImageURL] = true
			continue
		}
		if err := s.store.DeleteImage(ctx, img.ID); err != nil {
			return removed, fmt.Errorf("failed to delete duplicate image %d: %w", img.ID, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed duplicate images",
			zap.Int64("vehicle_id", vehicleID), zap.Int("removed", removed))
		s.invalidate(ctx, vehicleID)
	}
	return removed, nil
}

func (s *ImageService) invalidate(ctx context.Context, vehicleIDs ...int64) {
	util.ListingCacheInvalidationsTotal.Inc()
	if err := s.cache.InvalidateListings(ctx, vehicleIDs...); err != nil {
		s.logger.Warn("Listing cache invalidation failed", zap.Error(err))
	}
}
