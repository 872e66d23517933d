package performance

import (
	"strings"
	"time"
)

type EntityType string

const (
	EntityKeyword    EntityType = "keyword"
	EntityTarget     EntityType = "target"
	EntitySearchTerm EntityType = "searchTerm"
	EntityCampaign   EntityType = "campaign"
)

// DailyData is one day's performance bucket for an entity.
type DailyData struct {
	Date        time.Time
	Impressions int64
	Clicks      int64
	Orders      int64
	Spend       float64
	Sales       float64
}

// Entity is one targetable thing under evaluation. Built fresh per rule
// run; never persisted.
type Entity struct {
	ID         string
	Type       EntityType
	Text       string
	CampaignID string
	AdGroupID  string
	MatchType  string

	// SourceASIN is carried for search-term rows so harvesting can
	// negate the term in its originating ad group later.
	SourceASIN string

	// CurrentBid is nil when the entity inherits the ad-group default.
	CurrentBid *float64

	// Budget is the live campaign budget, set only for campaign rows.
	Budget *float64

	Daily []DailyData
}

// Key identifies an entity inside a rule run. Keywords, targets and
// campaigns key by platform ID; search terms by ad group + query text
// (the platform assigns them no ID).
func (e *Entity) Key() string {
	if e.Type == EntitySearchTerm {
		return e.AdGroupID + "|" + strings.ToLower(e.Text)
	}
	return e.ID
}

// MetricNow anchors this entity's metric windows. Search-term buckets
// are fetched with the attribution lag applied, so their windows must
// end at D-2 as well or the oldest fetched day falls outside every
// window. All other entities anchor at the wall clock.
func (e *Entity) MetricNow(now time.Time) time.Time {
	if e.Type == EntitySearchTerm {
		return now.AddDate(0, 0, -(searchTermDelay - 1))
	}
	return now
}

// Row is one (entity, date) fact from either source.
type Row struct {
	EntityID    string
	EntityType  EntityType
	Text        string
	CampaignID  string
	AdGroupID   string
	MatchType   string
	SourceASIN  string
	Date        time.Time
	Impressions int64
	Clicks      int64
	Orders      int64
	Spend       float64
	Sales       float64
}

// DateRange records which sub-range came from which source, for audit
// logging on the execution record.
type DateRange struct {
	Start       time.Time
	End         time.Time
	ReportDates []time.Time
	StreamDates []time.Time
}
