package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-settlement/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDirectory reads vehicle and consignor registry collections.
// It never writes to them.
type MongoDirectory struct {
	Vehicles   *mongo.Collection
	Consignors *mongo.Collection
}

// FindVehicles returns the vehicles with the given ids keyed by hex id.
// Ids that are not valid ObjectIDs are skipped.
func (d *MongoDirectory) FindVehicles(ctx context.Context, orgID string, ids []string) (map[string]models.Vehicle, error) {
	out := make(map[string]models.Vehicle)
	if d.Vehicles == nil {
		return out, fmt.Errorf("vehicle collection is nil")
	}
	var vehicles []models.Vehicle
	if err := findByIDs(ctx, d.Vehicles, orgID, ids, &vehicles); err != nil {
		return out, fmt.Errorf("find vehicles: %w", err)
	}
	for _, v := range vehicles {
		out[v.ID.Hex()] = v
	}
	return out, nil
}

// FindConsignors returns the consignors with the given ids keyed by hex id.
func (d *MongoDirectory) FindConsignors(ctx context.Context, orgID string, ids []string) (map[string]models.Consignor, error) {
	out := make(map[string]models.Consignor)
	if d.Consignors == nil {
		return out, fmt.Errorf("consignor collection is nil")
	}
	var consignors []models.Consignor
	if err := findByIDs(ctx, d.Consignors, orgID, ids, &consignors); err != nil {
		return out, fmt.Errorf("find consignors: %w", err)
	}
	for _, c := range consignors {
		out[c.ID.Hex()] = c
	}
	return out, nil
}

func findByIDs(ctx context.Context, coll *mongo.Collection, orgID string, ids []string, out interface{}) error {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}
	if len(objectIDs) == 0 {
		return nil
	}
	filter := bson.M{"_id": bson.M{"$in": objectIDs}}
	if orgID != "" {
		filter["organization_id"] = orgID
	}
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
