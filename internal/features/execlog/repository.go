package execlog

import (
	"context"
	"time"

	"adpilot/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LogRepository interface {
	Append(ctx context.Context, log *ExecutionLog) error
	ListByRule(ctx context.Context, ruleID string, limit int) ([]ExecutionLog, error)
}

type LogRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewLogRepository(mongodb *database.MongodbDB) LogRepository {
	return &LogRepositoryImpl{
		Collection: mongodb.DB.Collection("execution_logs"),
	}
}

func (r *LogRepositoryImpl) Append(ctx context.Context, log *ExecutionLog) error {
	log.ID = primitive.NewObjectID()
	if log.RunAt.IsZero() {
		log.RunAt = time.Now()
	}
	_, err := r.Collection.InsertOne(ctx, log)
	return err
}

func (r *LogRepositoryImpl) ListByRule(ctx context.Context, ruleID string, limit int) ([]ExecutionLog, error) {
	oid, err := primitive.ObjectIDFromHex(ruleID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().SetSort(bson.M{"run_at": -1}).SetLimit(int64(limit))
	cursor, err := r.Collection.Find(ctx, bson.M{"rule_id": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []ExecutionLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
