package budget

import (
	"context"
	"time"

	"adpilot/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type OverrideRepository interface {
	// InsertIfAbsent creates the override unless a live one already
	// exists for the same (campaignId, overrideDate). Returns whether
	// the record was inserted.
	InsertIfAbsent(ctx context.Context, rec *OverrideRecord) (bool, error)

	ListUnreverted(ctx context.Context, overrideDate string) ([]OverrideRecord, error)
	MarkReverted(ctx context.Context, ids []primitive.ObjectID, at time.Time) error
}

type OverrideRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewOverrideRepository(mongodb *database.MongodbDB) OverrideRepository {
	return &OverrideRepositoryImpl{
		Collection: mongodb.DB.Collection("budget_overrides"),
	}
}

func (r *OverrideRepositoryImpl) InsertIfAbsent(ctx context.Context, rec *OverrideRecord) (bool, error) {
	existing := r.Collection.FindOne(ctx, bson.M{
		"campaign_id":   rec.CampaignID,
		"override_date": rec.OverrideDate,
		"reverted_at":   nil,
	})
	if existing.Err() == nil {
		return false, nil
	}
	if existing.Err() != mongo.ErrNoDocuments {
		return false, existing.Err()
	}

	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = time.Now()
	if _, err := r.Collection.InsertOne(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (r *OverrideRepositoryImpl) ListUnreverted(ctx context.Context, overrideDate string) ([]OverrideRecord, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"override_date": overrideDate,
		"reverted_at":   nil,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []OverrideRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *OverrideRepositoryImpl) MarkReverted(ctx context.Context, ids []primitive.ObjectID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.Collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"reverted_at": at}})
	return err
}
