package models

import "fmt"

// VehicleStatus is the inventory state of a vehicle.
type VehicleStatus string

const (
	StatusAvailable   VehicleStatus = "available"
	StatusReserved    VehicleStatus = "reserved"
	StatusSold        VehicleStatus = "sold"
	StatusMaintenance VehicleStatus = "maintenance"
	StatusTrade       VehicleStatus = "trade"
)

// AllowedTransitions is the directed graph of valid status changes.
// sold is terminal; the only way out of trade is publishing back to available.
var AllowedTransitions = map[VehicleStatus][]VehicleStatus{
	StatusAvailable:   {StatusReserved, StatusMaintenance, StatusSold, StatusTrade},
	StatusReserved:    {StatusAvailable, StatusMaintenance},
	StatusMaintenance: {StatusAvailable, StatusReserved},
	StatusTrade:       {StatusAvailable},
	StatusSold:        {},
}

// Valid reports whether s is a known status value.
func (s VehicleStatus) Valid() bool {
	_, ok := AllowedTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is an allowed status change.
// A no-op transition (from == to) is always allowed.
func CanTransition(from, to VehicleStatus) bool {
	if from == to {
		return from.Valid()
	}
	allowed, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error for a disallowed change.
func ValidateTransition(from, to VehicleStatus) error {
	if !to.Valid() {
		return fmt.Errorf("unknown vehicle status: %s", to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid vehicle status transition: %s -> %s", from, to)
	}
	return nil
}
