package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/fleet-settlement/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document version conflict")
)

// TripFilter narrows a trip query. Empty fields do not filter.
// From and To are inclusive bounds on the trip date.
type TripFilter struct {
	OrganizationID string
	ConsignorID    string
	VehicleID      string
	From           *time.Time
	To             *time.Time
	Statuses       []models.TripStatus
}

// BSON builds the MongoDB query document for the filter.
func (f TripFilter) BSON() bson.M {
	q := bson.M{}
	if f.OrganizationID != "" {
		q["organization_id"] = f.OrganizationID
	}
	if f.ConsignorID != "" {
		q["consignor_id"] = f.ConsignorID
	}
	if f.VehicleID != "" {
		q["vehicle_id"] = f.VehicleID
	}
	if f.From != nil || f.To != nil {
		date := bson.M{}
		if f.From != nil {
			date["$gte"] = *f.From
		}
		if f.To != nil {
			date["$lte"] = *f.To
		}
		q["trip_date"] = date
	}
	if len(f.Statuses) > 0 {
		q["status"] = bson.M{"$in": f.Statuses}
	}
	return q
}

// TripCollection defines the interface for trip persistence.
type TripCollection interface {
	InsertTrip(ctx context.Context, trip models.Trip) (models.Trip, error)
	FindTripByID(ctx context.Context, orgID, id string) (*models.Trip, error)
	FindTrips(ctx context.Context, filter TripFilter) ([]models.Trip, error)
	ReplaceTrip(ctx context.Context, trip models.Trip, expectedVersion int64) (models.Trip, error)
}

// Directory resolves registry references into display records.
type Directory interface {
	FindVehicles(ctx context.Context, orgID string, ids []string) (map[string]models.Vehicle, error)
	FindConsignors(ctx context.Context, orgID string, ids []string) (map[string]models.Consignor, error)
}
