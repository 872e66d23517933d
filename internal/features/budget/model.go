package budget

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OverrideRecord remembers a campaign's pre-boost budget so the nightly
// job can restore it. At most one live (unreverted) override may exist
// per (campaignId, overrideDate).
type OverrideRecord struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CampaignID     string             `json:"campaign_id" bson:"campaign_id"`
	ProfileID      string             `json:"profile_id" bson:"profile_id"`
	OriginalBudget float64            `json:"original_budget" bson:"original_budget"`
	NewBudget      float64            `json:"new_budget" bson:"new_budget"`
	OverrideDate   string             `json:"override_date" bson:"override_date"` // YYYY-MM-DD
	RuleID         primitive.ObjectID `json:"rule_id" bson:"rule_id"`
	RevertedAt     *time.Time         `json:"reverted_at,omitempty" bson:"reverted_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// DateKey formats a time as the override-date key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
