package service

import (
	"context"
	"fmt"
	"time"

	"dealer-service/internal/apperrors"
	"dealer-service/internal/models"
	"dealer-service/internal/redisclient"
	"dealer-service/internal/store"
	"dealer-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VehicleService owns vehicle records, their status state machine and the
// denormalized cover image derived from the image catalog.
type VehicleService struct {
	store     VehicleStore
	cache     ListingCache
	publisher Publisher
	logger    *zap.Logger
}

// NewVehicleService creates a new vehicle catalog service
func NewVehicleService(store VehicleStore, cache ListingCache, publisher Publisher) *VehicleService {
	return &VehicleService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CoverImageURL derives the cover image for a set of catalog rows:
// the primary-flagged image, else the first image in list order, else empty.
func CoverImageURL(images []models.VehicleImage) string {
	for _, img := range images {
		if img.IsPrimary {
			return img.ImageURL
		}
	}
	if len(images) > 0 {
		return images[0].ImageURL
	}
	return ""
}

// dedupeImagesByURL keeps the first occurrence of each URL, preserving order.
// Defense against dedup lag in the image catalog itself.
func dedupeImagesByURL(images []models.VehicleImage) []models.VehicleImage {
	seen := make(map[string]bool, len(images))
	out := images[:0:0]
	for _, img := range images {
		if seen[img.ImageURL] {
			continue
		}
		seen[img.ImageURL] = true
		out = append(out, img)
	}
	return out
}

// decorate attaches deduplicated images, features and the derived cover image
func (s *VehicleService) decorate(ctx context.Context, v *models.Vehicle) error {
	images, err := s.store.GetImagesByVehicle(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("failed to load images for vehicle %d: %w", v.ID, err)
	}
	v.Images = dedupeImagesByURL(images)
	v.CoverImageURL = CoverImageURL(v.Images)

	features, err := s.store.GetFeaturesByVehicle(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("failed to load features for vehicle %d: %w", v.ID, err)
	}
	v.Features = features
	return nil
}

func (s *VehicleService) decorateAll(ctx context.Context, vehicles []models.Vehicle) error {
	for i := range vehicles {
		if err := s.decorate(ctx, &vehicles[i]); err != nil {
			return err
		}
	}
	return nil
}

// List returns the customer-facing listing. Sold vehicles never appear,
// whatever the filter. The unfiltered listing is served through the cache.
func (s *VehicleService) List(ctx context.Context, filter store.VehicleFilter) ([]models.Vehicle, error) {
	ctx, span := util.StartSpan(ctx, "VehicleService.List")
	defer span.End()

	if filter.Empty() {
		return s.cachedListing(ctx, redisclient.ScopeAll, func(ctx context.Context) ([]models.Vehicle, error) {
			return s.store.ListVehicles(ctx, store.VehicleFilter{})
		})
	}

	vehicles, err := s.store.ListVehicles(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.decorateAll(ctx, vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// ListAvailable returns only status=available vehicles, newest first
func (s *VehicleService) ListAvailable(ctx context.Context) ([]models.Vehicle, error) {
	ctx, span := util.StartSpan(ctx, "VehicleService.ListAvailable")
	defer span.End()

	return s.cachedListing(ctx, redisclient.ScopeAvailable, s.store.ListAvailableVehicles)
}

func (s *VehicleService) cachedListing(ctx context.Context, scope string,
	load func(context.Context) ([]models.Vehicle, error)) ([]models.Vehicle, error) {

	cached, err := s.cache.GetListing(ctx, scope)
	if err == nil {
		util.ListingCacheHitsTotal.WithLabelValues(scope).Inc()
		return cached, nil
	}
	if err != redisclient.ErrCacheMiss {
		s.logger.Warn("Listing cache read failed", zap.String("scope", scope), zap.Error(err))
	}
	util.ListingCacheMissesTotal.WithLabelValues(scope).Inc()

	vehicles, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.decorateAll(ctx, vehicles); err != nil {
		return nil, err
	}

	if err := s.cache.SetListing(ctx, scope, vehicles); err != nil {
		s.logger.Warn("Listing cache write failed", zap.String("scope", scope), zap.Error(err))
	}
	return vehicles, nil
}

// ListAll returns every vehicle including sold history (back-office reporting)
func (s *VehicleService) ListAll(ctx context.Context) ([]models.Vehicle, error) {
	ctx, span := util.StartSpan(ctx, "VehicleService.ListAll")
	defer span.End()

	vehicles, err := s.store.ListAllVehicles(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.decorateAll(ctx, vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// ListTradeStock returns the dedicated trade-in management view
func (s *VehicleService) ListTradeStock(ctx context.Context) ([]models.Vehicle, error) {
	vehicles, err := s.store.ListVehiclesByStatus(ctx, models.StatusTrade)
	if err != nil {
		return nil, err
	}
	if err := s.decorateAll(ctx, vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// ListFeatured returns the homepage highlight vehicles. The cap on how many
// may be featured concurrently is the caller's concern.
func (s *VehicleService) ListFeatured(ctx context.Context) ([]models.Vehicle, error) {
	vehicles, err := s.store.ListFeaturedVehicles(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.decorateAll(ctx, vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// GetByID retrieves one decorated vehicle
func (s *VehicleService) GetByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	ctx, span := util.StartSpan(ctx, "VehicleService.GetByID")
	defer span.End()

	if cached, err := s.cache.GetVehicle(ctx, id); err == nil {
		return cached, nil
	}

	v, err := s.store.GetVehicleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, v); err != nil {
		return nil, err
	}

	if err := s.cache.SetVehicle(ctx, v); err != nil {
		s.logger.Warn("Vehicle cache write failed", zap.Int64("vehicle_id", id), zap.Error(err))
	}
	return v, nil
}

// AddVehicleRequest carries the inventory-add attributes. Brand and category
// may be given by id or by exact name; an unresolvable name is an error,
// never a silent substitution.
type AddVehicleRequest struct {
	BrandID      int64  `json:"brand_id"`
	BrandName    string `json:"brand_name"`
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
	Model        string `json:"model" binding:"required"`
	Year         int    `json:"year"`
	Price        int64  `json:"price"`
	Mileage      int64  `json:"mileage"`
	FuelType     string `json:"fuel_type"`
	Transmission string `json:"transmission"`
	Color        string `json:"color"`
	Doors        int    `json:"doors"`
	City         string `json:"city"`
	State        string `json:"state"`
	PlateEnd     string `json:"plate_end"`
	AcceptsTrade bool   `json:"accepts_trade"`
	Licensed     bool   `json:"licensed"`
	Description  string `json:"description"`
}

func (s *VehicleService) resolveReferences(ctx context.Context, req *AddVehicleRequest) (int64, int64, error) {
	brandID := req.BrandID
	if brandID == 0 {
		if req.BrandName == "" {
			return 0, 0, apperrors.NewValidationError("brand id or name is required")
		}
		brand, err := s.store.GetBrandByName(ctx, req.BrandName)
		if err != nil {
			return 0, 0, err
		}
		brandID = brand.ID
	} else if _, err := s.store.GetBrandByID(ctx, brandID); err != nil {
		return 0, 0, err
	}

	categoryID := req.CategoryID
	if categoryID == 0 {
		if req.CategoryName == "" {
			return 0, 0, apperrors.NewValidationError("category id or name is required")
		}
		category, err := s.store.GetCategoryByName(ctx, req.CategoryName)
		if err != nil {
			return 0, 0, err
		}
		categoryID = category.ID
	} else if _, err := s.store.GetCategoryByID(ctx, categoryID); err != nil {
		return 0, 0, err
	}

	return brandID, categoryID, nil
}

// Add creates a new inventory vehicle. Initial status is always available
// and featured defaults to false.
func (s *VehicleService) Add(ctx context.Context, req *AddVehicleRequest) (*models.Vehicle, error) {
	ctx, span := util.StartSpan(ctx, "VehicleService.Add")
	defer span.End()

	brandID, categoryID, err := s.resolveReferences(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.Price <= 0 {
		return nil, apperrors.NewValidationError("vehicle price must be positive")
	}

	v := &models.Vehicle{
		BrandID:      brandID,
		CategoryID:   categoryID,
		Model:        req.Model,
		Year:         req.Year,
		Price:        req.Price,
		Mileage:      req.Mileage,
		FuelType:     req.FuelType,
		Transmission: req.Transmission,
		Color:        req.Color,
		Doors:        req.Doors,
		City:         req.City,
		State:        req.State,
		PlateEnd:     req.PlateEnd,
		AcceptsTrade: req.AcceptsTrade,
		Licensed:     req.Licensed,
		Description:  req.Description,
		Status:       models.StatusAvailable,
		Featured:     false,
	}

	if err := s.store.CreateVehicle(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}

	s.invalidate(ctx, v.ID)
	s.logger.Info("Vehicle added", zap.Int64("vehicle_id", v.ID), zap.String("model", v.Model))
	v.CoverImageURL = ""
	return v, nil
}

// Update replaces the mutable attribute fields of a vehicle. Status is not
// touched here; UpdateStatus owns it.
func (s *VehicleService) Update(ctx context.Context, id int64, req *AddVehicleRequest) (*models.Vehicle, error) {
	ctx, span := util.StartSpan(ctx, "VehicleService.Update")
	defer span.End()

	current, err := s.store.GetVehicleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	brandID, categoryID, err := s.resolveReferences(ctx, req)
	if err != nil {
		return nil, err
	}

	current.BrandID = brandID
	current.CategoryID = categoryID
	current.Model = req.Model
	current.Year = req.Year
	current.Price = req.Price
	current.Mileage = req.Mileage
	current.FuelType = req.FuelType
	current.Transmission = req.Transmission
	current.Color = req.Color
	current.Doors = req.Doors
	current.City = req.City
	current.State = req.State
	current.PlateEnd = req.PlateEnd
	current.AcceptsTrade = req.AcceptsTrade
	current.Licensed = req.Licensed
	current.Description = req.Description

	if err := s.store.UpdateVehicle(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}

	s.invalidate(ctx, id)
	if err := s.decorate(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// UpdateStatus applies a validated status transition and publishes the change.
func (s *VehicleService) UpdateStatus(ctx context.Context, vehicleID int64, status models.VehicleStatus) (*models.Vehicle, error) {
	ctx, span := util.StartSpan(ctx, "VehicleService.UpdateStatus")
	defer span.End()

	v, err := s.store.GetVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateTransition(v.Status, status); err != nil {
		util.VehicleStatusTransitionsRejected.WithLabelValues(string(v.Status), string(status)).Inc()
		return nil, apperrors.NewInvalidTransitionError(err)
	}

	from := v.Status
	if from != status {
		if err := s.store.UpdateVehicleStatus(ctx, vehicleID, status); err != nil {
			return nil, fmt.Errorf("failed to update vehicle status: %w", err)
		}
		v.Status = status
		util.VehicleStatusTransitionsTotal.WithLabelValues(string(from), string(status)).Inc()

		event := &models.VehicleStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeVehicleStatusChanged,
				Timestamp: time.Now(),
			},
			VehicleID: vehicleID,
			From:      from,
			To:        status,
		}
		if err := s.publisher.PublishVehicleStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish VehicleStatusChanged event", zap.Error(err))
		}
	}

	s.invalidate(ctx, vehicleID)
	if err := s.decorate(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes a vehicle and every dependent row (sales, images, features,
// specifications) in a fixed cascade order. Blobs are left in place.
func (s *VehicleService) Delete(ctx context.Context, vehicleID int64) error {
	ctx, span := util.StartSpan(ctx, "VehicleService.Delete")
	defer span.End()

	if err := s.store.DeleteVehicleCascade(ctx, vehicleID); err != nil {
		return err
	}

	s.invalidate(ctx, vehicleID)
	s.logger.Info("Vehicle deleted", zap.Int64("vehicle_id", vehicleID))
	return nil
}

// UpsertFeatures replaces the whole feature list for a vehicle. An empty
// list clears all features; it is not a no-op.
func (s *VehicleService) UpsertFeatures(ctx context.Context, vehicleID int64, features []string) error {
	ctx, span := util.StartSpan(ctx, "VehicleService.UpsertFeatures")
	defer span.End()

	if _, err := s.store.GetVehicleByID(ctx, vehicleID); err != nil {
		return err
	}
	if err := s.store.ReplaceFeatures(ctx, vehicleID, features); err != nil {
		return fmt.Errorf("failed to replace features: %w", err)
	}

	s.invalidate(ctx, vehicleID)
	return nil
}

// SetFeatured toggles the homepage highlight flag
func (s *VehicleService) SetFeatured(ctx context.Context, vehicleID int64, featured bool) error {
	if err := s.store.SetVehicleFeatured(ctx, vehicleID, featured); err != nil {
		return err
	}
	s.invalidate(ctx, vehicleID)
	return nil
}

func (s *VehicleService) invalidate(ctx context.Context, vehicleIDs ...int64) {
	util.ListingCacheInvalidationsTotal.Inc()
	if err := s.cache.InvalidateListings(ctx, vehicleIDs...); err != nil {
		s.logger.Warn("Listing cache invalidation failed", zap.Error(err))
	}
}
