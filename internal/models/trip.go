package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripStatus is the informational lifecycle tag of a trip.
type TripStatus string

const (
	TripPlanned   TripStatus = "PLANNED"
	TripLoaded    TripStatus = "LOADED"
	TripInTransit TripStatus = "IN_TRANSIT"
	TripDelivered TripStatus = "DELIVERED"
	TripSettled   TripStatus = "SETTLED"
	TripCancelled TripStatus = "CANCELLED"
)

// IsValidTripStatus checks if a trip status is known
func IsValidTripStatus(s TripStatus) bool {
	switch s {
	case TripPlanned, TripLoaded, TripInTransit, TripDelivered, TripSettled, TripCancelled:
		return true
	default:
		return false
	}
}

// HireType says how the driver's hire value was agreed.
type HireType string

const (
	HireFixed  HireType = "FIXED"
	HirePerTon HireType = "PER_TON"
)

// DefaultWeightUnit is applied when a trip is written without a unit.
const DefaultWeightUnit = "Ton"

// Weight holds the loaded and unloaded weight of a consignment.
// A difference between the two is recorded as-is and never reconciled.
type Weight struct {
	Loaded   decimal.Decimal `json:"loaded" bson:"loaded" validate:"gte=0"`
	Unloaded decimal.Decimal `json:"unloaded" bson:"unloaded" validate:"gte=0"`
	Unit     string          `json:"unit" bson:"unit"`
}

// BankDetails is a snapshot of the vehicle owner's payout account at trip time.
type BankDetails struct {
	AccountName   string `json:"account_name,omitempty" bson:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty" bson:"account_number,omitempty"`
	IFSC          string `json:"ifsc,omitempty" bson:"ifsc,omitempty"`
	BankName      string `json:"bank_name,omitempty" bson:"bank_name,omitempty"`
	UPIID         string `json:"upi_id,omitempty" bson:"upi_id,omitempty"`
}

// Costing is the money owed to the driver or vehicle owner.
type Costing struct {
	RatePerTon      decimal.Decimal `json:"rate_per_ton" bson:"rate_per_ton" validate:"gte=0"`
	HireType        HireType        `json:"hire_type,omitempty" bson:"hire_type,omitempty" validate:"omitempty,oneof=FIXED PER_TON"`
	HireValue       decimal.Decimal `json:"hire_value" bson:"hire_value" validate:"gte=0"`
	LoadingCharge   decimal.Decimal `json:"loading_charge" bson:"loading_charge" validate:"gte=0"`
	UnloadingCharge decimal.Decimal `json:"unloading_charge" bson:"unloading_charge" validate:"gte=0"`
	Commission      decimal.Decimal `json:"commission" bson:"commission" validate:"gte=0"`
	OwnerBank       BankDetails     `json:"owner_bank" bson:"owner_bank"`
}

// Billing is the money owed by the consignor.
type Billing struct {
	RatePerTon      decimal.Decimal `json:"rate_per_ton" bson:"rate_per_ton" validate:"gte=0"`
	GrossAmount     decimal.Decimal `json:"gross_amount" bson:"gross_amount" validate:"gte=0"`
	LoadingMamul    decimal.Decimal `json:"loading_mamul" bson:"loading_mamul" validate:"gte=0"`
	TotalReceivable decimal.Decimal `json:"total_receivable" bson:"total_receivable"` // derived
}

// Financials are the running balances of a trip. They are outputs of the
// settlement engine and are overwritten on every write.
type Financials struct {
	TotalDriverAdvance     decimal.Decimal `json:"total_driver_advance" bson:"total_driver_advance"`
	TotalDriverBalance     decimal.Decimal `json:"total_driver_balance" bson:"total_driver_balance"`
	TotalConsignorReceived decimal.Decimal `json:"total_consignor_received" bson:"total_consignor_received"`
	TotalConsignorBalance  decimal.Decimal `json:"total_consignor_balance" bson:"total_consignor_balance"`
}

// Trip represents one haulage job and its settlement state.
type Trip struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrganizationID string             `json:"organization_id" bson:"organization_id"`
	ConsignorID    string             `json:"consignor_id" bson:"consignor_id"`
	VehicleID      string             `json:"vehicle_id" bson:"vehicle_id"`
	TripDate       time.Time          `json:"trip_date" bson:"trip_date"`
	Origin         string             `json:"origin" bson:"origin"`
	Destination    string             `json:"destination" bson:"destination"`
	Consignment    string             `json:"consignment" bson:"consignment"`
	Weight         Weight             `json:"weight" bson:"weight"`
	Costing        Costing            `json:"costing" bson:"costing"`
	Billing        Billing            `json:"billing" bson:"billing"`
	Transactions   []Transaction      `json:"transactions" bson:"transactions"`
	Financials     Financials         `json:"financials" bson:"financials"`
	Status         TripStatus         `json:"status" bson:"status"`
	Notes          string             `json:"notes,omitempty" bson:"notes,omitempty"`
	Version        int64              `json:"version" bson:"version"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}
