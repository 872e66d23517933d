package schedule

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CampaignTemplate describes the campaign a schedule creates.
type CampaignTemplate struct {
	NamePrefix    string  `json:"name_prefix" bson:"name_prefix"`
	DailyBudget   float64 `json:"daily_budget" bson:"daily_budget"`
	TargetingType string  `json:"targeting_type" bson:"targeting_type"`
	DefaultBid    float64 `json:"default_bid" bson:"default_bid"`
	ASIN          string  `json:"asin" bson:"asin"`
	SKU           string  `json:"sku" bson:"sku"`
}

// CampaignSchedule creates campaigns on a cadence. Schedules run in the
// engine's normal lane alongside rules.
type CampaignSchedule struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	AdType        string             `json:"ad_type" bson:"ad_type"`
	ProfileID     string             `json:"profile_id" bson:"profile_id"`
	Template      CampaignTemplate   `json:"template" bson:"template"`
	FrequencyDays int                `json:"frequency_days" bson:"frequency_days"`
	StartHour     *int               `json:"start_hour,omitempty" bson:"start_hour,omitempty"`
	IsActive      bool               `json:"is_active" bson:"is_active"`
	LastRunAt     *time.Time         `json:"last_run_at,omitempty" bson:"last_run_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}
