package service

import (
	"context"

	"dealer-service/internal/models"
	"dealer-service/internal/store"
)

// VehicleStore is the persistence surface the vehicle catalog needs.
// *store.Store satisfies it; tests use an in-memory fake.
type VehicleStore interface {
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, filter store.VehicleFilter) ([]models.Vehicle, error)
	ListAvailableVehicles(ctx context.Context) ([]models.Vehicle, error)
	ListAllVehicles(ctx context.Context) ([]models.Vehicle, error)
	ListVehiclesByStatus(ctx context.Context, status models.VehicleStatus) ([]models.Vehicle, error)
	ListFeaturedVehicles(ctx context.Context) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error
	UpdateVehicleStatus(ctx context.Context, vehicleID int64, status models.VehicleStatus) error
	SetVehicleFeatured(ctx context.Context, vehicleID int64, featured bool) error
	DeleteVehicleCascade(ctx context.Context, vehicleID int64) error
	ReplaceFeatures(ctx context.Context, vehicleID int64, features []string) error
	GetFeaturesByVehicle(ctx context.Context, vehicleID int64) ([]models.VehicleFeature, error)
	GetImagesByVehicle(ctx context.Context, vehicleID int64) ([]models.VehicleImage, error)
	GetBrandByID(ctx context.Context, id int64) (*models.Brand, error)
	GetBrandByName(ctx context.Context, name string) (*models.Brand, error)
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
}

// ImageStore is the persistence surface the image catalog needs.
type ImageStore interface {
	CreateImage(ctx context.Context, img *models.VehicleImage) error
	GetImagesByVehicle(ctx context.Context, vehicleID int64) ([]models.VehicleImage, error)
	GetImageByID(ctx context.Context, imageID int64) (*models.VehicleImage, error)
	GetImageByURL(ctx context.Context, vehicleID int64, url string) (*models.VehicleImage, error)
	ClearPrimaryImages(ctx context.Context, vehicleID int64) error
	SetPrimaryImage(ctx context.Context, imageID int64) error
	DeleteImage(ctx context.Context, imageID int64) error
}

// SaleStore is the persistence surface the sale processor needs.
type SaleStore interface {
	CreateSale(ctx context.Context, sale *models.Sale) error
	GetSaleByID(ctx context.Context, id int64) (*models.Sale, error)
	GetSalesByVehicle(ctx context.Context, vehicleID int64) ([]models.Sale, error)
	UpdateSale(ctx context.Context, sale *models.Sale) error
	DeleteSale(ctx context.Context, saleID int64) error
	GetClientByID(ctx context.Context, id int64) (*models.Client, error)
	GetSellerByID(ctx context.Context, id int64) (*models.Seller, error)
	GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error)
	UpdateVehicleStatus(ctx context.Context, vehicleID int64, status models.VehicleStatus) error
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
}

// BlobStore is the media store adapter contract. URLs returned by Put are
// stable and publicly fetchable.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, content []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// ListingCache is the read-through cache for customer-facing listings.
// Implementations must return redisclient.ErrCacheMiss on a miss.
type ListingCache interface {
	GetListing(ctx context.Context, scope string) ([]models.Vehicle, error)
	SetListing(ctx context.Context, scope string, vehicles []models.Vehicle) error
	GetVehicle(ctx context.Context, vehicleID int64) (*models.Vehicle, error)
	SetVehicle(ctx context.Context, v *models.Vehicle) error
	InvalidateListings(ctx context.Context, vehicleIDs ...int64) error
}

// Publisher emits domain events. *broker.EventPublisher satisfies it.
type Publisher interface {
	PublishVehicleStatusChanged(ctx context.Context, event *models.VehicleStatusChangedEvent) error
	PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error
	PublishTradeInCreated(ctx context.Context, event *models.TradeInCreatedEvent) error
	PublishImagePrimaryChanged(ctx context.Context, event *models.ImagePrimaryChangedEvent) error
	PublishInventoryReconcile(ctx context.Context, event *models.InventoryReconcileEvent) error
}
