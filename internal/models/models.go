package models

import "time"

// Brand is a vehicle manufacturer reference
type Brand struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Category is a vehicle category reference (sedan, SUV, ...)
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Client is a dealership customer
type Client struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email,omitempty"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Seller is a dealership employee who closes sales
type Seller struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Fuel types
const (
	FuelGasoline = "gasoline"
	FuelEthanol  = "ethanol"
	FuelFlex     = "flex"
	FuelDiesel   = "diesel"
	FuelElectric = "electric"
	FuelHybrid   = "hybrid"
)

// Transmission types
const (
	TransmissionManual    = "manual"
	TransmissionAutomatic = "automatic"
	TransmissionCVT       = "cvt"
)

// NotInformed is the placeholder for attributes a trade-in form does not collect
const NotInformed = "not informed"

// Vehicle is an inventory record. Price is stored in currency minor units.
// Images, Features and CoverImageURL are derived from related tables and
// populated by the service layer, not by a bare vehicle read.
type Vehicle struct {
	ID           int64         `db:"id" json:"id"`
	BrandID      int64         `db:"brand_id" json:"brand_id"`
	CategoryID   int64         `db:"category_id" json:"category_id"`
	Model        string        `db:"model" json:"model"`
	Year         int           `db:"year" json:"year"`
	Price        int64         `db:"price" json:"price"`
	Mileage      int64         `db:"mileage" json:"mileage"`
	FuelType     string        `db:"fuel_type" json:"fuel_type"`
	Transmission string        `db:"transmission" json:"transmission"`
	Color        string        `db:"color" json:"color"`
	Doors        int           `db:"doors" json:"doors"`
	City         string        `db:"city" json:"city"`
	State        string        `db:"state" json:"state"`
	PlateEnd     string        `db:"plate_end" json:"plate_end"`
	AcceptsTrade bool          `db:"accepts_trade" json:"accepts_trade"`
	Licensed     bool          `db:"licensed" json:"licensed"`
	Description  string        `db:"description" json:"description"`
	Status       VehicleStatus `db:"status" json:"status"`
	Featured     bool          `db:"featured" json:"featured"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`

	CoverImageURL string           `db:"-" json:"cover_image_url"`
	Images        []VehicleImage   `db:"-" json:"images,omitempty"`
	Features      []VehicleFeature `db:"-" json:"features,omitempty"`
}

// VehicleImage is one catalog row per uploaded image. At most one row per
// vehicle carries IsPrimary.
type VehicleImage struct {
	ID         int64     `db:"id" json:"id"`
	VehicleID  int64     `db:"vehicle_id" json:"vehicle_id"`
	ImageURL   string    `db:"image_url" json:"image_url"`
	StorageKey string    `db:"storage_key" json:"storage_key,omitempty"`
	AltText    string    `db:"alt_text" json:"alt_text,omitempty"`
	IsPrimary  bool      `db:"is_primary" json:"is_primary"`
	SortOrder  int       `db:"sort_order" json:"sort_order"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// VehicleFeature is a single named feature row (air conditioning, ...)
type VehicleFeature struct {
	ID        int64  `db:"id" json:"id"`
	VehicleID int64  `db:"vehicle_id" json:"vehicle_id"`
	Name      string `db:"name" json:"name"`
}

// VehicleSpecification is a key/value technical spec row
type VehicleSpecification struct {
	ID        int64  `db:"id" json:"id"`
	VehicleID int64  `db:"vehicle_id" json:"vehicle_id"`
	Name      string `db:"name" json:"name"`
	Value     string `db:"value" json:"value"`
}

// Sale statuses
const (
	SaleStatusPending   = "pending"
	SaleStatusCompleted = "completed"
	SaleStatusCancelled = "cancelled"
	SaleStatusRefunded  = "refunded"
)

// Sale references exactly one vehicle. CommissionAmount is derived from
// Price and CommissionRate at creation time and stored denormalized.
type Sale struct {
	ID               int64     `db:"id" json:"id"`
	SaleCode         string    `db:"sale_code" json:"sale_code"`
	ClientID         int64     `db:"client_id" json:"client_id"`
	VehicleID        int64     `db:"vehicle_id" json:"vehicle_id"`
	SellerID         int64     `db:"seller_id" json:"seller_id"`
	Price            int64     `db:"price" json:"price"`
	CommissionRate   float64   `db:"commission_rate" json:"commission_rate"`
	CommissionAmount int64     `db:"commission_amount" json:"commission_amount"`
	PaymentMethod    string    `db:"payment_method" json:"payment_method"`
	SaleDate         time.Time `db:"sale_date" json:"sale_date"`
	Status           string    `db:"status" json:"status"`
	Notes            string    `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
