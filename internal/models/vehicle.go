package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Vehicle represents a fleet vehicle and the driver paid for its trips.
type Vehicle struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`
	VehicleNumber  string             `bson:"vehicle_number" json:"vehicle_number"`
	DriverName     string             `bson:"driver_name" json:"driver_name"`
	OwnerName      string             `bson:"owner_name" json:"owner_name"`
	Status         string             `bson:"status" json:"status"` // "active" or "inactive"
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// Consignor represents a shipper billed for trips.
type Consignor struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`
	Name           string             `bson:"name" json:"name"`
	Phone          string             `bson:"phone" json:"phone"`
	GSTIN          string             `bson:"gstin,omitempty" json:"gstin,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
