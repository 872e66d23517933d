package throttle

import (
	"context"
	"time"

	"adpilot/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ThrottleRepository interface {
	// ActiveSet returns the entity IDs whose cooldown deadline is still
	// in the future for this rule.
	ActiveSet(ctx context.Context, ruleID primitive.ObjectID, now time.Time) (map[string]bool, error)

	// UpsertMany refreshes throttleUntil for every entity acted upon.
	UpsertMany(ctx context.Context, ruleID primitive.ObjectID, entityIDs []string, until time.Time) error
}

type ThrottleRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewThrottleRepository(mongodb *database.MongodbDB) ThrottleRepository {
	return &ThrottleRepositoryImpl{
		Collection: mongodb.DB.Collection("throttle_records"),
	}
}

func (r *ThrottleRepositoryImpl) ActiveSet(ctx context.Context, ruleID primitive.ObjectID, now time.Time) (map[string]bool, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"rule_id":        ruleID,
		"throttle_until": bson.M{"$gt": now},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	active := make(map[string]bool)
	for cursor.Next(ctx) {
		var rec ThrottleRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		active[rec.EntityID] = true
	}
	return active, cursor.Err()
}

func (r *ThrottleRepositoryImpl) UpsertMany(ctx context.Context, ruleID primitive.ObjectID, entityIDs []string, until time.Time) error {
	if len(entityIDs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(entityIDs))
	now := time.Now()
	for _, entityID := range entityIDs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"rule_id": ruleID, "entity_id": entityID}).
			SetUpdate(bson.M{"$set": bson.M{"throttle_until": until, "updated_at": now}}).
			SetUpsert(true))
	}
	_, err := r.Collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}
