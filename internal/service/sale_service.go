package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"dealer-service/internal/apperrors"
	"dealer-service/internal/models"
	"dealer-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleService creates sale records and drives their inventory side effects.
// The sale insert is the primary transaction; the vehicle status flip and the
// optional trade-in vehicle are follow-up steps that must never undo it.
type SaleService struct {
	store     SaleStore
	cache     ListingCache
	publisher Publisher
	logger    *zap.Logger

	defaultCommissionRate float64
}

// NewSaleService creates a new sale transaction processor
func NewSaleService(store SaleStore, cache ListingCache, publisher Publisher, defaultCommissionRate float64) *SaleService {
	return &SaleService{
		store:                 store,
		cache:                 cache,
		publisher:             publisher,
		logger:                util.GetLogger(),
		defaultCommissionRate: defaultCommissionRate,
	}
}

// CreateSaleRequest carries everything the sale form collects. The trade
// fields are used only when HasTrade is set.
type CreateSaleRequest struct {
	ClientID       int64     `json:"client_id" binding:"required"`
	VehicleID      int64     `json:"vehicle_id" binding:"required"`
	SellerID       int64     `json:"seller_id" binding:"required"`
	Price          int64     `json:"price" binding:"required"`
	CommissionRate float64   `json:"commission_rate"`
	PaymentMethod  string    `json:"payment_method"`
	SaleDate       time.Time `json:"sale_date"`
	Notes          string    `json:"notes"`

	HasTrade         bool   `json:"has_trade"`
	TradeVehicleName string `json:"trade_vehicle_name"`
	TradeValue       int64  `json:"trade_value"`
}

// CreateSaleResult is returned even on partial success: a completed sale with
// warnings for follow-up steps that failed (status flip, trade-in creation).
type CreateSaleResult struct {
	Sale           *models.Sale    `json:"sale"`
	TradeInVehicle *models.Vehicle `json:"trade_in_vehicle,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
}

func commissionAmount(price int64, rate float64) int64 {
	return int64(math.Round(float64(price) * rate))
}

func newSaleCode(now time.Time) string {
	return fmt.Sprintf("SALE-%s-%s", now.Format("20060102"),
		strings.ToUpper(uuid.New().String()[:8]))
}

// CreateSale validates the references, inserts the sale as completed, then
// runs the best-effort follow-ups: flip the vehicle to sold, invalidate the
// listing cache and, when the form says so, spawn the trade-in vehicle.
func (s *SaleService) CreateSale(ctx context.Context, req *CreateSaleRequest) (*CreateSaleResult, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.CreateSale")
	defer span.End()

	if req.Price <= 0 {
		util.SalesFailedTotal.WithLabelValues("invalid_price").Inc()
		return nil, apperrors.NewValidationError("sale price must be positive")
	}

	if _, err := s.store.GetClientByID(ctx, req.ClientID); err != nil {
		util.SalesFailedTotal.WithLabelValues("reference_not_found").Inc()
		return nil, err
	}
	if _, err := s.store.GetSellerByID(ctx, req.SellerID); err != nil {
		util.SalesFailedTotal.WithLabelValues("reference_not_found").Inc()
		return nil, err
	}
	vehicle, err := s.store.GetVehicleByID(ctx, req.VehicleID)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("reference_not_found").Inc()
		return nil, err
	}
	if vehicle.Status == models.StatusSold {
		util.SalesFailedTotal.WithLabelValues("already_sold").Inc()
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("vehicle %d is already sold", req.VehicleID))
	}

	rate := req.CommissionRate
	if rate == 0 {
		rate = s.defaultCommissionRate
	}
	saleDate := req.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now()
	}

	sale := &models.Sale{
		SaleCode:         newSaleCode(time.Now()),
		ClientID:         req.ClientID,
		VehicleID:        req.VehicleID,
		SellerID:         req.SellerID,
		Price:            req.Price,
		CommissionRate:   rate,
		CommissionAmount: commissionAmount(req.Price, rate),
		PaymentMethod:    req.PaymentMethod,
		SaleDate:         saleDate,
		Status:           models.SaleStatusCompleted,
		Notes:            req.Notes,
	}

	if err := s.store.CreateSale(ctx, sale); err != nil {
		util.SalesFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	util.SalesCreatedTotal.Inc()
	s.logger.Info("Sale created",
		zap.Int64("sale_id", sale.ID),
		zap.String("sale_code", sale.SaleCode),
		zap.Int64("vehicle_id", sale.VehicleID))

	event := &models.SaleCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCompleted,
			Timestamp: time.Now(),
		},
		SaleID:           sale.ID,
		SaleCode:         sale.SaleCode,
		VehicleID:        sale.VehicleID,
		ClientID:         sale.ClientID,
		SellerID:         sale.SellerID,
		Price:            sale.Price,
		CommissionAmount: sale.CommissionAmount,
	}
	if err := s.publisher.PublishSaleCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCompleted event", zap.Error(err))
	}

	result := &CreateSaleResult{Sale: sale}

	if err := s.flipVehicleSold(ctx, vehicle, sale.ID); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("sale recorded, but marking vehicle %d as sold failed: %v; reconciliation scheduled",
				sale.VehicleID, err))
	}

	s.invalidate(ctx, sale.VehicleID)

	if req.HasTrade {
		tradeIn, err := s.CreateTradeInVehicle(ctx, req.TradeVehicleName, req.TradeValue, req.ClientID, sale.ID)
		if err != nil {
			s.logger.Error("Trade-in vehicle creation failed after completed sale",
				zap.Int64("sale_id", sale.ID), zap.Error(err))
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("sale recorded, but trade-in vehicle creation failed: %v", err))
		} else {
			result.TradeInVehicle = tradeIn
		}
	}

	return result, nil
}

// flipVehicleSold is the post-insert inventory side effect. On failure it
// publishes a reconcile event so the worker can re-apply the flip.
func (s *SaleService) flipVehicleSold(ctx context.Context, vehicle *models.Vehicle, saleID int64) error {
	if err := s.store.UpdateVehicleStatus(ctx, vehicle.ID, models.StatusSold); err != nil {
		util.SaleStatusFlipFailedTotal.Inc()
		s.logger.Error("Vehicle status flip failed after completed sale",
			zap.Int64("vehicle_id", vehicle.ID),
			zap.Int64("sale_id", saleID),
			zap.Error(err))

		reconcile := &models.InventoryReconcileEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeInventoryReconcile,
				Timestamp: time.Now(),
			},
			VehicleID:    vehicle.ID,
			TargetStatus: models.StatusSold,
			SaleID:       saleID,
			Reason:       err.Error(),
		}
		if pubErr := s.publisher.PublishInventoryReconcile(ctx, reconcile); pubErr != nil {
			s.logger.Error("Failed to publish InventoryReconcile event", zap.Error(pubErr))
		}
		return err
	}

	util.VehicleStatusTransitionsTotal.WithLabelValues(string(vehicle.Status), string(models.StatusSold)).Inc()

	event := &models.VehicleStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeVehicleStatusChanged,
			Timestamp: time.Now(),
		},
		VehicleID: vehicle.ID,
		From:      vehicle.Status,
		To:        models.StatusSold,
	}
	if err := s.publisher.PublishVehicleStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish VehicleStatusChanged event", zap.Error(err))
	}
	return nil
}

// CreateTradeInVehicle spawns the low-fidelity placeholder record for a
// traded-in vehicle. Everything the sale form does not collect gets a
// sentinel value; a human completes the record later through the edit flow.
func (s *SaleService) CreateTradeInVehicle(ctx context.Context, tradeVehicleName string, tradeValue int64, clientID, saleID int64) (*models.Vehicle, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.CreateTradeInVehicle")
	defer span.End()

	if tradeVehicleName == "" {
		return nil, apperrors.NewValidationError("trade vehicle name is required")
	}
	if tradeValue <= 0 {
		return nil, apperrors.NewValidationError("trade value must be positive")
	}

	description := fmt.Sprintf("Trade-in: %s (client %d)", tradeVehicleName, clientID)
	if saleID != 0 {
		description = fmt.Sprintf("Trade-in: %s (sale %d, client %d)", tradeVehicleName, saleID, clientID)
	}

	v := &models.Vehicle{
		Model:        tradeVehicleName,
		Year:         time.Now().Year(),
		Price:        tradeValue,
		Mileage:      0,
		FuelType:     models.NotInformed,
		Transmission: models.NotInformed,
		Color:        models.NotInformed,
		Doors:        4,
		City:         models.NotInformed,
		State:        models.NotInformed,
		PlateEnd:     "00",
		AcceptsTrade: false,
		Licensed:     false,
		Description:  description,
		Status:       models.StatusTrade,
		Featured:     false,
	}

	if err := s.store.CreateVehicle(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create trade-in vehicle: %w", err)
	}

	util.TradeInsCreatedTotal.Inc()
	s.logger.Info("Trade-in vehicle created",
		zap.Int64("vehicle_id", v.ID),
		zap.Int64("sale_id", saleID),
		zap.Int64("trade_value", tradeValue))

	event := &models.TradeInCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTradeInCreated,
			Timestamp: time.Now(),
		},
		SaleID:     saleID,
		VehicleID:  v.ID,
		TradeValue: tradeValue,
		ClientID:   clientID,
	}
	if err := s.publisher.PublishTradeInCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish TradeInCreated event", zap.Error(err))
	}

	s.invalidate(ctx, v.ID)
	return v, nil
}

// UpdateSaleRequest carries the mutable sale fields for a full replace
type UpdateSaleRequest struct {
	ClientID       int64     `json:"client_id" binding:"required"`
	SellerID       int64     `json:"seller_id" binding:"required"`
	Price          int64     `json:"price" binding:"required"`
	CommissionRate float64   `json:"commission_rate"`
	PaymentMethod  string    `json:"payment_method"`
	SaleDate       time.Time `json:"sale_date"`
	Status         string    `json:"status" binding:"required"`
	Notes          string    `json:"notes"`
}

func validSaleStatus(status string) bool {
	switch status {
	case models.SaleStatusPending, models.SaleStatusCompleted,
		models.SaleStatusCancelled, models.SaleStatusRefunded:
		return true
	}
	return false
}

// UpdateSale fully replaces the mutable fields of a sale. Editing a sale does
// not re-run the vehicle status side effect.
func (s *SaleService) UpdateSale(ctx context.Context, saleID int64, req *UpdateSaleRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.UpdateSale")
	defer span.End()

	if req.Price <= 0 {
		return nil, apperrors.NewValidationError("sale price must be positive")
	}
	if !validSaleStatus(req.Status) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown sale status: %s", req.Status))
	}

	sale, err := s.store.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetClientByID(ctx, req.ClientID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetSellerByID(ctx, req.SellerID); err != nil {
		return nil, err
	}

	rate := req.CommissionRate
	if rate == 0 {
		rate = s.defaultCommissionRate
	}

	sale.ClientID = req.ClientID
	sale.SellerID = req.SellerID
	sale.Price = req.Price
	sale.CommissionRate = rate
	sale.CommissionAmount = commissionAmount(req.Price, rate)
	sale.PaymentMethod = req.PaymentMethod
	if !req.SaleDate.IsZero() {
		sale.SaleDate = req.SaleDate
	}
	sale.Status = req.Status
	sale.Notes = req.Notes

	if err := s.store.UpdateSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to update sale: %w", err)
	}

	s.invalidate(ctx, sale.VehicleID)
	return sale, nil
}

// DeleteSale removes the sale row only. The vehicle keeps its sold status;
// returning it to inventory is a deliberate separate admin action.
func (s *SaleService) DeleteSale(ctx context.Context, saleID int64) error {
	ctx, span := util.StartSpan(ctx, "SaleService.DeleteSale")
	defer span.End()

	sale, err := s.store.GetSaleByID(ctx, saleID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSale(ctx, saleID); err != nil {
		return err
	}

	s.invalidate(ctx, sale.VehicleID)
	return nil
}

// GetSaleByID retrieves a sale
func (s *SaleService) GetSaleByID(ctx context.Context, saleID int64) (*models.Sale, error) {
	return s.store.GetSaleByID(ctx, saleID)
}

// ListSalesByVehicle returns the sale history of one vehicle, newest first
func (s *SaleService) ListSalesByVehicle(ctx context.Context, vehicleID int64) ([]models.Sale, error) {
	return s.store.GetSalesByVehicle(ctx, vehicleID)
}

func (s *SaleService) invalidate(ctx context.Context, vehicleIDs ...int64) {
	util.ListingCacheInvalidationsTotal.Inc()
	if err := s.cache.InvalidateListings(ctx, vehicleIDs...); err != nil {
		s.logger.Warn("Listing cache invalidation failed", zap.Error(err))
	}
}
