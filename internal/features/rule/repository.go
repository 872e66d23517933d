package rule

import (
	"context"
	"time"

	"adpilot/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *AutomationRule) error
	GetByID(ctx context.Context, id string) (*AutomationRule, error)
	List(ctx context.Context) ([]AutomationRule, error)
	ListActive(ctx context.Context) ([]AutomationRule, error)
	Update(ctx context.Context, rule *AutomationRule) error
	Delete(ctx context.Context, id string) error
	Enable(ctx context.Context, id string, active bool) error

	// StampLastRun is the engine's only write path besides scope
	// association: it runs after every attempt, due or not.
	StampLastRun(ctx context.Context, id primitive.ObjectID, at time.Time) error

	// AddCampaignsToScope associates newly harvested campaigns with a rule.
	AddCampaignsToScope(ctx context.Context, id primitive.ObjectID, campaignIDs []string) error
}

type RuleRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRuleRepository(mongodb *database.MongodbDB) RuleRepository {
	return &RuleRepositoryImpl{
		Collection: mongodb.DB.Collection("automation_rules"),
	}
}

func (r *RuleRepositoryImpl) Create(ctx context.Context, rule *AutomationRule) error {
	rule.ID = primitive.NewObjectID()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, rule)
	return err
}

func (r *RuleRepositoryImpl) GetByID(ctx context.Context, id string) (*AutomationRule, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var rule AutomationRule
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepositoryImpl) List(ctx context.Context) ([]AutomationRule, error) {
	return r.find(ctx, bson.M{})
}

func (r *RuleRepositoryImpl) ListActive(ctx context.Context) ([]AutomationRule, error) {
	return r.find(ctx, bson.M{"is_active": true})
}

func (r *RuleRepositoryImpl) find(ctx context.Context, filter bson.M) ([]AutomationRule, error) {
	cursor, err := r.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var rules []AutomationRule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepositoryImpl) Update(ctx context.Context, rule *AutomationRule) error {
	rule.UpdatedAt = time.Now()
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": rule.ID}, bson.M{"$set": rule})
	return err
}

func (r *RuleRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *RuleRepositoryImpl) Enable(ctx context.Context, id string, active bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now()}})
	return err
}

func (r *RuleRepositoryImpl) StampLastRun(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_run_at": at}})
	return err
}

func (r *RuleRepositoryImpl) AddCampaignsToScope(ctx context.Context, id primitive.ObjectID, campaignIDs []string) error {
	if len(campaignIDs) == 0 {
		return nil
	}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"scope.campaign_ids": bson.M{"$each": campaignIDs}},
		"$set":      bson.M{"updated_at": time.Now()},
	})
	return err
}
