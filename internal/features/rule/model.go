package rule

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RuleType string

const (
	RuleTypeBidAdjustment        RuleType = "BID_ADJUSTMENT"
	RuleTypeSearchTermAutomation RuleType = "SEARCH_TERM_AUTOMATION"
	RuleTypeSearchTermHarvesting RuleType = "SEARCH_TERM_HARVESTING"
	RuleTypeBudgetAcceleration   RuleType = "BUDGET_ACCELERATION"
	RuleTypePriceAdjustment      RuleType = "PRICE_ADJUSTMENT"
	RuleTypeAINegation           RuleType = "AI_SEARCH_TERM_NEGATION"
)

type AdType string

const (
	AdTypeSP AdType = "SP"
	AdTypeSB AdType = "SB"
	AdTypeSD AdType = "SD"
)

type Operator string

const (
	OperatorGreaterThan Operator = ">"
	OperatorLessThan    Operator = "<"
	OperatorEquals      Operator = "="
)

type Metric string

const (
	MetricImpressions       Metric = "impressions"
	MetricClicks            Metric = "clicks"
	MetricOrders            Metric = "orders"
	MetricSpend             Metric = "spend"
	MetricSales             Metric = "sales"
	MetricACOS              Metric = "acos"
	MetricROAS              Metric = "roas"
	MetricCTR               Metric = "ctr"
	MetricCVR               Metric = "cvr"
	MetricCPC               Metric = "cpc"
	MetricBudgetUtilization Metric = "budgetUtilization"
)

// Condition compares a windowed metric against a value. TimeWindow is in
// days; 0 is the "today" sentinel (same-day data only). Ratio metrics are
// stored as decimals (0.30 = 30%).
type Condition struct {
	Metric     Metric   `json:"metric" bson:"metric"`
	TimeWindow int      `json:"time_window" bson:"time_window"`
	Operator   Operator `json:"operator" bson:"operator"`
	Value      float64  `json:"value" bson:"value"`
}

type ActionType string

const (
	ActionAdjustBid   ActionType = "adjust_bid"
	ActionBoostBudget ActionType = "boost_budget"
	ActionNegate      ActionType = "negate"
	ActionHarvest     ActionType = "harvest"
	ActionAdjustPrice ActionType = "adjust_price"
)

type NegativeMatchType string

const (
	NegativeExact   NegativeMatchType = "NEGATIVE_EXACT"
	NegativePhrase  NegativeMatchType = "NEGATIVE_PHRASE"
	NegativeProduct NegativeMatchType = "NEGATIVE_PRODUCT_TARGET"
)

// BidAction carries a signed percent or flat delta plus optional clamps.
type BidAction struct {
	Percent *float64 `json:"percent,omitempty" bson:"percent,omitempty"`
	Delta   *float64 `json:"delta,omitempty" bson:"delta,omitempty"`
	MinBid  *float64 `json:"min_bid,omitempty" bson:"min_bid,omitempty"`
	MaxBid  *float64 `json:"max_bid,omitempty" bson:"max_bid,omitempty"`
}

type BudgetAction struct {
	IncreasePercent *float64 `json:"increase_percent,omitempty" bson:"increase_percent,omitempty"`
	FixedBudget     *float64 `json:"fixed_budget,omitempty" bson:"fixed_budget,omitempty"`
}

type NegateAction struct {
	MatchType NegativeMatchType `json:"match_type" bson:"match_type"`
}

type BidStrategy string

const (
	BidStrategyFixed         BidStrategy = "fixed"
	BidStrategyCPCMultiplier BidStrategy = "cpc_multiplier"
)

// HarvestAction promotes a winning search term into its own campaign, or
// into an operator-specified existing campaign/ad group.
type HarvestAction struct {
	BidStrategy      BidStrategy          `json:"bid_strategy" bson:"bid_strategy"`
	FixedBid         *float64             `json:"fixed_bid,omitempty" bson:"fixed_bid,omitempty"`
	CPCMultiplier    *float64             `json:"cpc_multiplier,omitempty" bson:"cpc_multiplier,omitempty"`
	MaxBid           *float64             `json:"max_bid,omitempty" bson:"max_bid,omitempty"`
	MatchType        string               `json:"match_type,omitempty" bson:"match_type,omitempty"`
	DailyBudget      float64              `json:"daily_budget" bson:"daily_budget"`
	TargetCampaignID string               `json:"target_campaign_id,omitempty" bson:"target_campaign_id,omitempty"`
	TargetAdGroupID  string               `json:"target_ad_group_id,omitempty" bson:"target_ad_group_id,omitempty"`
	DisableNegation  bool                 `json:"disable_negation,omitempty" bson:"disable_negation,omitempty"`
	AssociateRuleIDs []primitive.ObjectID `json:"associate_rule_ids,omitempty" bson:"associate_rule_ids,omitempty"`
}

// Action is a closed tagged union: Type selects exactly one payload.
// Dispatch is always a switch on Type, never field sniffing.
type Action struct {
	Type    ActionType     `json:"type" bson:"type"`
	Bid     *BidAction     `json:"bid,omitempty" bson:"bid,omitempty"`
	Budget  *BudgetAction  `json:"budget,omitempty" bson:"budget,omitempty"`
	Negate  *NegateAction  `json:"negate,omitempty" bson:"negate,omitempty"`
	Harvest *HarvestAction `json:"harvest,omitempty" bson:"harvest,omitempty"`
}

// ConditionGroup AND-combines its conditions and pairs them with one
// action. Groups within a rule are OR'd; the first matching group wins.
type ConditionGroup struct {
	Conditions []Condition `json:"conditions" bson:"conditions"`
	Action     Action      `json:"action" bson:"action"`
}

type FrequencyUnit string

const (
	FrequencyMinutes FrequencyUnit = "minutes"
	FrequencyHours   FrequencyUnit = "hours"
	FrequencyDays    FrequencyUnit = "days"
	FrequencyWeeks   FrequencyUnit = "weeks"
)

// Frequency is how often a rule becomes due. Day/week rules additionally
// only fire inside their configured start hour.
type Frequency struct {
	Unit      FrequencyUnit `json:"unit" bson:"unit"`
	Value     int           `json:"value" bson:"value"`
	StartHour *int          `json:"start_hour,omitempty" bson:"start_hour,omitempty"`
}

// Duration converts the frequency into a time.Duration. Weeks collapse
// into days for arithmetic.
func (f Frequency) Duration() time.Duration {
	switch f.Unit {
	case FrequencyMinutes:
		return time.Duration(f.Value) * time.Minute
	case FrequencyHours:
		return time.Duration(f.Value) * time.Hour
	case FrequencyDays:
		return time.Duration(f.Value) * 24 * time.Hour
	case FrequencyWeeks:
		return time.Duration(f.Value) * 7 * 24 * time.Hour
	default:
		return time.Duration(f.Value) * time.Minute
	}
}

// Cooldown is the minimum interval before the same rule may act on the
// same entity again. Value 0 disables throttling.
type Cooldown struct {
	Unit  FrequencyUnit `json:"unit" bson:"unit"`
	Value int           `json:"value" bson:"value"`
}

func (c Cooldown) Duration() time.Duration {
	return Frequency{Unit: c.Unit, Value: c.Value}.Duration()
}

// RuleScope is the set of campaigns (or SKUs, for price rules) the rule
// applies to.
type RuleScope struct {
	CampaignIDs []string `json:"campaign_ids,omitempty" bson:"campaign_ids,omitempty"`
	SKUs        []string `json:"skus,omitempty" bson:"skus,omitempty"`
}

type RuleConfig struct {
	ConditionGroups []ConditionGroup `json:"condition_groups" bson:"condition_groups"`
	Frequency       Frequency        `json:"frequency" bson:"frequency"`
	Cooldown        Cooldown         `json:"cooldown" bson:"cooldown"`
}

type AutomationRule struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	RuleType  RuleType           `json:"rule_type" bson:"rule_type"`
	AdType    AdType             `json:"ad_type" bson:"ad_type"`
	ProfileID string             `json:"profile_id" bson:"profile_id"`
	Scope     RuleScope          `json:"scope" bson:"scope"`
	Config    RuleConfig         `json:"config" bson:"config"`
	IsActive  bool               `json:"is_active" bson:"is_active"`
	LastRunAt *time.Time         `json:"last_run_at,omitempty" bson:"last_run_at,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// MaxLookbackDays returns the largest condition window across all groups,
// never less than 1. The "today" sentinel (0) does not extend the max.
func (r *AutomationRule) MaxLookbackDays() int {
	max := 1
	for _, g := range r.Config.ConditionGroups {
		for _, c := range g.Conditions {
			if c.TimeWindow > max {
				max = c.TimeWindow
			}
		}
	}
	return max
}

// UsesToday reports whether any condition references same-day data.
func (r *AutomationRule) UsesToday() bool {
	for _, g := range r.Config.ConditionGroups {
		for _, c := range g.Conditions {
			if c.TimeWindow == 0 {
				return true
			}
		}
	}
	return false
}

// NeedsSilentEntities reports whether any condition checks impressions = 0.
// Such rules must see zero-traffic entities, which never produce report or
// stream rows.
func (r *AutomationRule) NeedsSilentEntities() bool {
	for _, g := range r.Config.ConditionGroups {
		for _, c := range g.Conditions {
			if c.Metric == MetricImpressions && c.Operator == OperatorEquals && c.Value == 0 {
				return true
			}
		}
	}
	return false
}
