package schedule

import (
	"context"
	"time"

	"adpilot/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ScheduleRepository interface {
	ListActive(ctx context.Context) ([]CampaignSchedule, error)
	StampLastRun(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type ScheduleRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewScheduleRepository(mongodb *database.MongodbDB) ScheduleRepository {
	return &ScheduleRepositoryImpl{
		Collection: mongodb.DB.Collection("campaign_schedules"),
	}
}

func (r *ScheduleRepositoryImpl) ListActive(ctx context.Context) ([]CampaignSchedule, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var schedules []CampaignSchedule
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *ScheduleRepositoryImpl) StampLastRun(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_run_at": at}})
	return err
}
