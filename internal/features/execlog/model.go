package execlog

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusNoAction Status = "NO_ACTION"
	StatusFailure  Status = "FAILURE"
)

type RuleSource string

const (
	SourceRule     RuleSource = "rule"
	SourceSchedule RuleSource = "schedule"
)

// ExecutionLog is appended exactly once per rule-processing attempt.
type ExecutionLog struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RuleID     primitive.ObjectID `json:"rule_id" bson:"rule_id"`
	RuleSource RuleSource         `json:"rule_source" bson:"rule_source"`
	RunID      string             `json:"run_id" bson:"run_id"`
	Status     Status             `json:"status" bson:"status"`
	Summary    string             `json:"summary" bson:"summary"`
	Details    bson.M             `json:"details,omitempty" bson:"details,omitempty"`
	RunAt      time.Time          `json:"run_at" bson:"run_at"`
}
