package models

import "time"

// Event types
const (
	EventTypeVehicleStatusChanged = "VEHICLE_STATUS_CHANGED"
	EventTypeSaleCompleted        = "SALE_COMPLETED"
	EventTypeTradeInCreated       = "TRADE_IN_CREATED"
	EventTypeImagePrimaryChanged  = "IMAGE_PRIMARY_CHANGED"
	EventTypeInventoryReconcile   = "INVENTORY_RECONCILE"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// VehicleStatusChangedEvent published on every applied status transition
type VehicleStatusChangedEvent struct {
	BaseEvent
	VehicleID int64         `json:"vehicle_id"`
	From      VehicleStatus `json:"from"`
	To        VehicleStatus `json:"to"`
}

// SaleCompletedEvent published when a sale record is created
type SaleCompletedEvent struct {
	BaseEvent
	SaleID           int64  `json:"sale_id"`
	SaleCode         string `json:"sale_code"`
	VehicleID        int64  `json:"vehicle_id"`
	ClientID         int64  `json:"client_id"`
	SellerID         int64  `json:"seller_id"`
	Price            int64  `json:"price"`
	CommissionAmount int64  `json:"commission_amount"`
}

// TradeInCreatedEvent published when a trade-in placeholder vehicle is created
type TradeInCreatedEvent struct {
	BaseEvent
	SaleID     int64 `json:"sale_id"`
	VehicleID  int64 `json:"vehicle_id"`
	TradeValue int64 `json:"trade_value"`
	ClientID   int64 `json:"client_id"`
}

// ImagePrimaryChangedEvent published when a vehicle's cover image changes
type ImagePrimaryChangedEvent struct {
	BaseEvent
	VehicleID int64  `json:"vehicle_id"`
	ImageID   int64  `json:"image_id"`
	ImageURL  string `json:"image_url"`
}

// InventoryReconcileEvent records a missed vehicle-status side effect so the
// reconcile worker can re-apply it.
type InventoryReconcileEvent struct {
	BaseEvent
	VehicleID    int64         `json:"vehicle_id"`
	TargetStatus VehicleStatus `json:"target_status"`
	SaleID       int64         `json:"sale_id"`
	Reason       string        `json:"reason"`
}
