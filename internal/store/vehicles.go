package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dealer-service/internal/apperrors"
	"dealer-service/internal/models"
)

// VehicleFilter holds the optional listing predicates. Zero values mean
// "not filtered". Year and price bounds are inclusive.
type VehicleFilter struct {
	BrandID      int64
	YearMin      int
	YearMax      int
	PriceMin     int64
	PriceMax     int64
	FuelType     string
	Transmission string
	City         string
	State        string
}

// Empty reports whether no predicate is set.
func (f VehicleFilter) Empty() bool {
	return f == VehicleFilter{}
}

const vehicleColumns = `id, brand_id, category_id, model, year, price, mileage,
	fuel_type, transmission, color, doors, city, state, plate_end,
	accepts_trade, licensed, description, status, featured, created_at, updated_at`

// CreateVehicle inserts a new vehicle row
func (s *Store) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (brand_id, category_id, model, year, price, mileage,
			fuel_type, transmission, color, doors, city, state, plate_end,
			accepts_trade, licensed, description, status, featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, v, query,
		v.BrandID, v.CategoryID, v.Model, v.Year, v.Price, v.Mileage,
		v.FuelType, v.Transmission, v.Color, v.Doors, v.City, v.State, v.PlateEnd,
		v.AcceptsTrade, v.Licensed, v.Description, v.Status, v.Featured)
}

// GetVehicleByID retrieves a vehicle row by ID
func (s *Store) GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	var v models.Vehicle
	err := s.db.GetContext(ctx, &v, "SELECT "+vehicleColumns+" FROM vehicles WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewReferenceNotFoundError("vehicle", id)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVehicles returns customer-facing listings. Sold vehicles are always
// excluded, independently of the supplied filter.
func (s *Store) ListVehicles(ctx context.Context, filter VehicleFilter) ([]models.Vehicle, error) {
	conds := []string{"status <> 'sold'"}
	args := []interface{}{}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.BrandID != 0 {
		add("brand_id = $%d", filter.BrandID)
	}
	if filter.YearMin != 0 {
		add("year >= $%d", filter.YearMin)
	}
	if filter.YearMax != 0 {
		add("year <= $%d", filter.YearMax)
	}
	if filter.PriceMin != 0 {
		add("price >= $%d", filter.PriceMin)
	}
	if filter.PriceMax != 0 {
		add("price <= $%d", filter.PriceMax)
	}
	if filter.FuelType != "" {
		add("fuel_type = $%d", filter.FuelType)
	}
	if filter.Transmission != "" {
		add("transmission = $%d", filter.Transmission)
	}
	if filter.City != "" {
		add("city = $%d", filter.City)
	}
	if filter.State != "" {
		add("state = $%d", filter.State)
	}

	query := "SELECT " + vehicleColumns + " FROM vehicles WHERE " +
		strings.Join(conds, " AND ") + " ORDER BY created_at DESC"

	var vehicles []models.Vehicle
	err := s.db.SelectContext(ctx, &vehicles, query, args...)
	return vehicles, err
}

// ListAvailableVehicles returns only status=available vehicles, newest first
func (s *Store) ListAvailableVehicles(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := s.db.SelectContext(ctx, &vehicles,
		"SELECT "+vehicleColumns+" FROM vehicles WHERE status = 'available' ORDER BY created_at DESC")
	return vehicles, err
}

// ListAllVehicles returns every vehicle including sold history, for back-office reporting
func (s *Store) ListAllVehicles(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := s.db.SelectContext(ctx, &vehicles,
		"SELECT "+vehicleColumns+" FROM vehicles ORDER BY created_at DESC")
	return vehicles, err
}

// ListVehiclesByStatus returns vehicles in one status bucket, newest first
func (s *Store) ListVehiclesByStatus(ctx context.Context, status models.VehicleStatus) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := s.db.SelectContext(ctx, &vehicles,
		"SELECT "+vehicleColumns+" FROM vehicles WHERE status = $1 ORDER BY created_at DESC", status)
	return vehicles, err
}

// ListFeaturedVehicles returns featured, non-sold vehicles
func (s *Store) ListFeaturedVehicles(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := s.db.SelectContext(ctx, &vehicles,
		"SELECT "+vehicleColumns+" FROM vehicles WHERE featured AND status <> 'sold' ORDER BY created_at DESC")
	return vehicles, err
}

// UpdateVehicle replaces the mutable attribute fields. Status and featured
// flags have dedicated operations.
func (s *Store) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE vehicles SET brand_id = $1, category_id = $2, model = $3, year = $4,
			price = $5, mileage = $6, fuel_type = $7, transmission = $8, color = $9,
			doors = $10, city = $11, state = $12, plate_end = $13, accepts_trade = $14,
			licensed = $15, description = $16, updated_at = NOW()
		WHERE id = $17`,
		v.BrandID, v.CategoryID, v.Model, v.Year, v.Price, v.Mileage,
		v.FuelType, v.Transmission, v.Color, v.Doors, v.City, v.State, v.PlateEnd,
		v.AcceptsTrade, v.Licensed, v.Description, v.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewReferenceNotFoundError("vehicle", v.ID)
	}
	return nil
}

// UpdateVehicleStatus overwrites a vehicle's status. Transition validation
// happens in the service layer; the store stays a dumb writer.
func (s *Store) UpdateVehicleStatus(ctx context.Context, vehicleID int64, status models.VehicleStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE vehicles SET status = $1, updated_at = NOW() WHERE id = $2",
		status, vehicleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewReferenceNotFoundError("vehicle", vehicleID)
	}
	return nil
}

// SetVehicleFeatured toggles the homepage highlight flag
func (s *Store) SetVehicleFeatured(ctx context.Context, vehicleID int64, featured bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE vehicles SET featured = $1, updated_at = NOW() WHERE id = $2",
		featured, vehicleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewReferenceNotFoundError("vehicle", vehicleID)
	}
	return nil
}

// DeleteVehicleCascade removes a vehicle and everything referencing it in a
// fixed order: sales, images, features, specifications, then the vehicle row.
// The whole cascade runs in one transaction; the first error aborts it.
func (s *Store) DeleteVehicleCascade(ctx context.Context, vehicleID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	steps := []string{
		"DELETE FROM sales WHERE vehicle_id = $1",
		"DELETE FROM vehicle_images WHERE vehicle_id = $1",
		"DELETE FROM vehicle_features WHERE vehicle_id = $1",
		"DELETE FROM vehicle_specifications WHERE vehicle_id = $1",
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, vehicleID); err != nil {
			return fmt.Errorf("cascade delete failed: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM vehicles WHERE id = $1", vehicleID)
	if err != nil {
		return fmt.Errorf("cascade delete failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewReferenceNotFoundError("vehicle", vehicleID)
	}

	return tx.Commit()
}

// ReplaceFeatures deletes every feature row for the vehicle and inserts the
// supplied list. An empty list clears all features.
func (s *Store) ReplaceFeatures(ctx context.Context, vehicleID int64, features []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vehicle_features WHERE vehicle_id = $1", vehicleID); err != nil {
		return fmt.Errorf("failed to clear features: %w", err)
	}

	for _, name := range features {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vehicle_features (vehicle_id, name) VALUES ($1, $2)",
			vehicleID, name); err != nil {
			return fmt.Errorf("failed to insert feature: %w", err)
		}
	}

	return tx.Commit()
}

// GetFeaturesByVehicle retrieves feature rows for a vehicle
func (s *Store) GetFeaturesByVehicle(ctx context.Context, vehicleID int64) ([]models.VehicleFeature, error) {
	var features []models.VehicleFeature
	err := s.db.SelectContext(ctx, &features,
		"SELECT * FROM vehicle_features WHERE vehicle_id = $1 ORDER BY id", vehicleID)
	return features, err
}
