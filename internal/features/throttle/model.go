package throttle

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ThrottleRecord is the per-(rule, entity) cooldown deadline. Created on
// first action, refreshed on each subsequent action, never explicitly
// deleted — it simply expires.
type ThrottleRecord struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RuleID        primitive.ObjectID `json:"rule_id" bson:"rule_id"`
	EntityID      string             `json:"entity_id" bson:"entity_id"`
	ThrottleUntil time.Time          `json:"throttle_until" bson:"throttle_until"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}
