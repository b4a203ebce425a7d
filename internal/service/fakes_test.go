package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"dealer-service/internal/apperrors"
	"dealer-service/internal/models"
	"dealer-service/internal/redisclient"
	"dealer-service/internal/store"
)

// fakeStore is an in-memory stand-in for *store.Store covering the
// VehicleStore, ImageStore and SaleStore surfaces.
type fakeStore struct {
	mu sync.Mutex

	vehicles   map[int64]*models.Vehicle
	images     map[int64]*models.VehicleImage
	sales      map[int64]*models.Sale
	features   map[int64][]models.VehicleFeature
	brands     map[int64]*models.Brand
	categories map[int64]*models.Category
	clients    map[int64]*models.Client
	sellers    map[int64]*models.Seller

	nextID int64
	clock  int64

	createImageErr         error
	createVehicleErr       error
	updateVehicleStatusErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vehicles:   make(map[int64]*models.Vehicle),
		images:     make(map[int64]*models.VehicleImage),
		sales:      make(map[int64]*models.Sale),
		features:   make(map[int64][]models.VehicleFeature),
		brands:     make(map[int64]*models.Brand),
		categories: make(map[int64]*models.Category),
		clients:    make(map[int64]*models.Client),
		sellers:    make(map[int64]*models.Seller),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) tick() time.Time {
	f.clock++
	return time.Unix(0, f.clock)
}

func (f *fakeStore) seedBrand(name string) *models.Brand {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &models.Brand{ID: f.id(), Name: name}
	f.brands[b.ID] = b
	return b
}

func (f *fakeStore) seedCategory(name string) *models.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &models.Category{ID: f.id(), Name: name}
	f.categories[c.ID] = c
	return c
}

func (f *fakeStore) seedClient(name string) *models.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &models.Client{ID: f.id(), Name: name}
	f.clients[c.ID] = c
	return c
}

func (f *fakeStore) seedSeller(name string) *models.Seller {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.Seller{ID: f.id(), Name: name}
	f.sellers[s.ID] = s
	return s
}

func (f *fakeStore) seedVehicle(v models.Vehicle) *models.Vehicle {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = f.id()
	v.CreatedAt = f.tick()
	stored := v
	f.vehicles[v.ID] = &stored
	return &v
}

func (f *fakeStore) seedImage(img models.VehicleImage) *models.VehicleImage {
	f.mu.Lock()
	defer f.mu.Unlock()
	img.ID = f.id()
	img.CreatedAt = f.tick()
	stored := img
	f.images[img.ID] = &stored
	return &img
}

func (f *fakeStore) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createVehicleErr != nil {
		return f.createVehicleErr
	}
	v.ID = f.id()
	v.CreatedAt = f.tick()
	stored := *v
	f.vehicles[v.ID] = &stored
	return nil
}

func (f *fakeStore) GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok {
		return nil, apperrors.NewReferenceNotFoundError("vehicle", id)
	}
	copied := *v
	return &copied, nil
}

func (f *fakeStore) listWhere(keep func(*models.Vehicle) bool) []models.Vehicle {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Vehicle
	for _, v := range f.vehicles {
		if keep(v) {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) ListVehicles(ctx context.Context, filter store.VehicleFilter) ([]models.Vehicle, error) {
	return f.listWhere(func(v *models.Vehicle) bool {
		if v.Status == models.StatusSold {
			return false
		}
		if filter.BrandID != 0 && v.BrandID != filter.BrandID {
			return false
		}
		if filter.PriceMin != 0 && v.Price < filter.PriceMin {
			return false
		}
		if filter.PriceMax != 0 && v.Price > filter.PriceMax {
			return false
		}
		return true
	}), nil
}

func (f *fakeStore) ListAvailableVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return f.listWhere(func(v *models.Vehicle) bool { return v.Status == models.StatusAvailable }), nil
}

func (f *fakeStore) ListAllVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return f.listWhere(func(v *models.Vehicle) bool { return true }), nil
}

func (f *fakeStore) ListVehiclesByStatus(ctx context.Context, status models.VehicleStatus) ([]models.Vehicle, error) {
	return f.listWhere(func(v *models.Vehicle) bool { return v.Status == status }), nil
}

func (f *fakeStore) ListFeaturedVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return f.listWhere(func(v *models.Vehicle) bool {
		return v.Featured && v.Status != models.StatusSold
	}), nil
}

func (f *fakeStore) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vehicles[v.ID]; !ok {
		return apperrors.NewReferenceNotFoundError("vehicle", v.ID)
	}
	stored := *v
	f.vehicles[v.ID] = &stored
	return nil
}

func (f *fakeStore) UpdateVehicleStatus(ctx context.Context, vehicleID int64, status models.VehicleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateVehicleStatusErr != nil {
		return f.updateVehicleStatusErr
	}
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return apperrors.NewReferenceNotFoundError("vehicle", vehicleID)
	}
	v.Status = status
	return nil
}

func (f *fakeStore) SetVehicleFeatured(ctx context.Context, vehicleID int64, featured bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return apperrors.NewReferenceNotFoundError("vehicle", vehicleID)
	}
	v.Featured = featured
	return nil
}

func (f *fakeStore) DeleteVehicleCascade(ctx context.Context, vehicleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vehicles[vehicleID]; !ok {
		return apperrors.NewReferenceNotFoundError("vehicle", vehicleID)
	}
	for id, s := range f.sales {
		if s.VehicleID == vehicleID {
			delete(f.sales, id)
		}
	}
	for id, img := range f.images {
		if img.VehicleID == vehicleID {
			delete(f.images, id)
		}
	}
	delete(f.features, vehicleID)
	delete(f.vehicles, vehicleID)
	return nil
}

func (f *fakeStore) ReplaceFeatures(ctx context.Context, vehicleID int64, features []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make([]models.VehicleFeature, 0, len(features))
	for _, name := range features {
		rows = append(rows, models.VehicleFeature{ID: f.id(), VehicleID: vehicleID, Name: name})
	}
	f.features[vehicleID] = rows
	return nil
}

func (f *fakeStore) GetFeaturesByVehicle(ctx context.Context, vehicleID int64) ([]models.VehicleFeature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.VehicleFeature(nil), f.features[vehicleID]...), nil
}

func (f *fakeStore) GetBrandByID(ctx context.Context, id int64) (*models.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.brands[id]
	if !ok {
		return nil, apperrors.NewReferenceNotFoundError("brand", id)
	}
	return b, nil
}

func (f *fakeStore) GetBrandByName(ctx context.Context, name string) (*models.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.brands {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, apperrors.NewReferenceNotFoundError("brand", name)
}

func (f *fakeStore) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, apperrors.NewReferenceNotFoundError("category", id)
	}
	return c, nil
}

func (f *fakeStore) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, apperrors.NewReferenceNotFoundError("category", name)
}

func (f *fakeStore) CreateImage(ctx context.Context, img *models.VehicleImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createImageErr != nil {
		return f.createImageErr
	}
	img.ID = f.id()
	img.CreatedAt = f.tick()
	stored := *img
	f.images[img.ID] = &stored
	return nil
}

func (f *fakeStore) GetImagesByVehicle(ctx context.Context, vehicleID int64) ([]models.VehicleImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.VehicleImage
	for _, img := range f.images {
		if img.VehicleID == vehicleID {
			out = append(out, *img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetImageByID(ctx context.Context, imageID int64) (*models.VehicleImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[imageID]
	if !ok {
		return nil, nil
	}
	copied := *img
	return &copied, nil
}

func (f *fakeStore) GetImageByURL(ctx context.Context, vehicleID int64, url string) (*models.VehicleImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *models.VehicleImage
	for _, img := range f.images {
		if img.VehicleID != vehicleID || img.ImageURL != url {
			continue
		}
		if oldest == nil || img.ID < oldest.ID {
			oldest = img
		}
	}
	if oldest == nil {
		return nil, nil
	}
	copied := *oldest
	return &copied, nil
}

func (f *fakeStore) ClearPrimaryImages(ctx context.Context, vehicleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, img := range f.images {
		if img.VehicleID == vehicleID {
			img.IsPrimary = false
		}
	}
	return nil
}

func (f *fakeStore) SetPrimaryImage(ctx context.Context, imageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[imageID]
	if !ok {
		return apperrors.NewImageNotFoundError(0, imageID)
	}
	img.IsPrimary = true
	return nil
}

func (f *fakeStore) DeleteImage(ctx context.Context, imageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.images, imageID)
	return nil
}

func (f *fakeStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale.ID = f.id()
	sale.CreatedAt = f.tick()
	stored := *sale
	f.sales[sale.ID] = &stored
	return nil
}

func (f *fakeStore) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sales[id]
	if !ok {
		return nil, apperrors.NewReferenceNotFoundError("sale", id)
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) GetSalesByVehicle(ctx context.Context, vehicleID int64) ([]models.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Sale
	for _, s := range f.sales {
		if s.VehicleID == vehicleID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateSale(ctx context.Context, sale *models.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sales[sale.ID]; !ok {
		return apperrors.NewReferenceNotFoundError("sale", sale.ID)
	}
	stored := *sale
	f.sales[sale.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteSale(ctx context.Context, saleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sales, saleID)
	return nil
}

func (f *fakeStore) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return nil, apperrors.NewReferenceNotFoundError("client", id)
	}
	return c, nil
}

func (f *fakeStore) GetSellerByID(ctx context.Context, id int64) (*models.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sellers[id]
	if !ok {
		return nil, apperrors.NewReferenceNotFoundError("seller", id)
	}
	return s, nil
}

// fakeBlobStore is an in-memory BlobStore with failure injection
type fakeBlobStore struct {
	mu sync.Mutex

	objects map[string][]byte
	deleted []string

	failRemaining int
	failContent   []byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key, contentType string, content []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemaining > 0 {
		f.failRemaining--
		return "", errors.New("blob store unavailable")
	}
	if f.failContent != nil && bytes.Equal(content, f.failContent) {
		return "", errors.New("blob store rejected object")
	}
	f.objects[key] = content
	return "https://cdn.test/" + key, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeCache is an in-memory ListingCache
type fakeCache struct {
	mu sync.Mutex

	listings      map[string][]models.Vehicle
	vehicles      map[int64]*models.Vehicle
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		listings: make(map[string][]models.Vehicle),
		vehicles: make(map[int64]*models.Vehicle),
	}
}

func (f *fakeCache) GetListing(ctx context.Context, scope string) ([]models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vehicles, ok := f.listings[scope]
	if !ok {
		return nil, redisclient.ErrCacheMiss
	}
	return vehicles, nil
}

func (f *fakeCache) SetListing(ctx context.Context, scope string, vehicles []models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings[scope] = vehicles
	return nil
}

func (f *fakeCache) GetVehicle(ctx context.Context, vehicleID int64) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return nil, redisclient.ErrCacheMiss
	}
	copied := *v
	return &copied, nil
}

func (f *fakeCache) SetVehicle(ctx context.Context, v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *v
	f.vehicles[v.ID] = &copied
	return nil
}

func (f *fakeCache) InvalidateListings(ctx context.Context, vehicleIDs ...int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations++
	f.listings = make(map[string][]models.Vehicle)
	for _, id := range vehicleIDs {
		delete(f.vehicles, id)
	}
	return nil
}

// fakePublisher records published events
type fakePublisher struct {
	mu sync.Mutex

	statusChanges  []*models.VehicleStatusChangedEvent
	salesCompleted []*models.SaleCompletedEvent
	tradeIns       []*models.TradeInCreatedEvent
	primaryChanges []*models.ImagePrimaryChangedEvent
	reconciles     []*models.InventoryReconcileEvent
}

func (f *fakePublisher) PublishVehicleStatusChanged(ctx context.Context, event *models.VehicleStatusChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusChanges = append(f.statusChanges, event)
	return nil
}

func (f *fakePublisher) PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.salesCompleted = append(f.salesCompleted, event)
	return nil
}

func (f *fakePublisher) PublishTradeInCreated(ctx context.Context, event *models.TradeInCreatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tradeIns = append(f.tradeIns, event)
	return nil
}

func (f *fakePublisher) PublishImagePrimaryChanged(ctx context.Context, event *models.ImagePrimaryChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.primaryChanges = append(f.primaryChanges, event)
	return nil
}

func (f *fakePublisher) PublishInventoryReconcile(ctx context.Context, event *models.InventoryReconcileEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciles = append(f.reconciles, event)
	return nil
}
