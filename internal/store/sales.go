package store

import (
	"context"
	"database/sql"
	"errors"

	"dealer-service/internal/apperrors"
	"dealer-service/internal/models"
)

// CreateSale inserts a new sale row
func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sales (sale_code, client_id, vehicle_id, seller_id, price,
			commission_rate, commission_amount, payment_method, sale_date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, sale, query,
		sale.SaleCode, sale.ClientID, sale.VehicleID, sale.SellerID, sale.Price,
		sale.CommissionRate, sale.CommissionAmount, sale.PaymentMethod,
		sale.SaleDate, sale.Status, sale.Notes)
}

// GetSaleByID retrieves a sale by ID
func (s *Store) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewReferenceNotFoundError("sale", id)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetSalesByVehicle retrieves all sales referencing a vehicle, newest first
func (s *Store) GetSalesByVehicle(ctx context.Context, vehicleID int64) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.SelectContext(ctx, &sales,
		"SELECT * FROM sales WHERE vehicle_id = $1 ORDER BY created_at DESC", vehicleID)
	return sales, err
}

// UpdateSale fully replaces the mutable sale fields
func (s *Store) UpdateSale(ctx context.Context, sale *models.Sale) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sales SET client_id = $1, seller_id = $2, price = $3,
			commission_rate = $4, commission_amount = $5, payment_method = $6,
			sale_date = $7, status = $8, notes = $9, updated_at = NOW()
		WHERE id = $10`,
		sale.ClientID, sale.SellerID, sale.Price,
		sale.CommissionRate, sale.CommissionAmount, sale.PaymentMethod,
		sale.SaleDate, sale.Status, sale.Notes, sale.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewReferenceNotFoundError("sale", sale.ID)
	}
	return nil
}

// DeleteSale removes a sale row only. The associated vehicle keeps its status.
func (s *Store) DeleteSale(ctx context.Context, saleID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sales WHERE id = $1", saleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewReferenceNotFoundError("sale", saleID)
	}
	return nil
}
