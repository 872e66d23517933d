package engine

import (
	"testing"
	"time"

	"adpilot/internal/features/performance"
	"adpilot/internal/features/rule"
)

var evalNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// daysAgo returns a bucket date n days before evalNow.
func daysAgo(n int) time.Time { return evalNow.AddDate(0, 0, -n) }

func searchTerm(adGroupID, text string, daily []performance.DailyData) *performance.Entity {
	return &performance.Entity{
		Type:       performance.EntitySearchTerm,
		Text:       text,
		CampaignID: "c1",
		AdGroupID:  adGroupID,
		Daily:      daily,
	}
}

func TestEvaluateNegatesWastedSpend(t *testing.T) {
	ar := &rule.AutomationRule{
		RuleType: rule.RuleTypeSearchTermAutomation,
		Config: rule.RuleConfig{
			ConditionGroups: []rule.ConditionGroup{
				{
					Conditions: []rule.Condition{
						{Metric: rule.MetricSpend, TimeWindow: 30, Operator: rule.OperatorGreaterThan, Value: 15},
						{Metric: rule.MetricSales, TimeWindow: 30, Operator: rule.OperatorEquals, Value: 0},
					},
					Action: rule.Action{Type: rule.ActionNegate, Negate: &rule.NegateAction{MatchType: rule.NegativeExact}},
				},
			},
		},
	}

	entities := map[string]*performance.Entity{}
	waster := searchTerm("ag1", "cheap widgets", []performance.DailyData{
		{Date: daysAgo(5), Spend: 10, Clicks: 8},
		{Date: daysAgo(3), Spend: 6.50, Clicks: 5},
	})
	earner := searchTerm("ag1", "premium widgets", []performance.DailyData{
		{Date: daysAgo(5), Spend: 20, Clicks: 10, Sales: 80, Orders: 2},
	})
	entities[waster.Key()] = waster
	entities[earner.Key()] = earner

	decisions := Evaluate(ar, entities, nil, evalNow)
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if decisions[0].Entity.Text != "cheap widgets" {
		t.Errorf("expected the zero-sales term to be negated, got %q", decisions[0].Entity.Text)
	}
	if decisions[0].Action.Type != rule.ActionNegate {
		t.Errorf("expected negate action, got %s", decisions[0].Action.Type)
	}
}

func TestEvaluateSearchTermWindowCoversAllFetchedDays(t *testing.T) {
	// Search-term buckets arrive with the attribution lag, so a 7-day
	// lookback holds data for D-8 through D-2. Every one of those days
	// must count toward a 7-day condition window.
	ar := &rule.AutomationRule{
		RuleType: rule.RuleTypeSearchTermAutomation,
		Config: rule.RuleConfig{
			ConditionGroups: []rule.ConditionGroup{
				{
					Conditions: []rule.Condition{
						{Metric: rule.MetricSpend, TimeWindow: 7, Operator: rule.OperatorGreaterThan, Value: 6.5},
					},
					Action: rule.Action{Type: rule.ActionNegate, Negate: &rule.NegateAction{MatchType: rule.NegativeExact}},
				},
			},
		},
	}

	var daily []performance.DailyData
	for n := 8; n >= 2; n-- {
		daily = append(daily, performance.DailyData{Date: daysAgo(n), Spend: 1})
	}
	term := searchTerm("ag1", "steady spender", daily)

	decisions := Evaluate(ar, map[string]*performance.Entity{term.Key(): term}, nil, evalNow)
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision (spend 7 > 6.5 across the lagged window), got %d", len(decisions))
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	// Both groups hold for the entity; only the first may fire.
	ar := &rule.AutomationRule{
		RuleType: rule.RuleTypeBidAdjustment,
		Config: rule.RuleConfig{
			ConditionGroups: []rule.ConditionGroup{
				{
					Conditions: []rule.Condition{
						{Metric: rule.MetricClicks, TimeWindow: 7, Operator: rule.OperatorGreaterThan, Value: 5},
					},
					Action: rule.Action{Type: rule.ActionAdjustBid, Bid: &rule.BidAction{Percent: f(-20)}},
				},
				{
					Conditions: []rule.Condition{
						{Metric: rule.MetricClicks, TimeWindow: 7, Operator: rule.OperatorGreaterThan, Value: 0},
					},
					Action: rule.Action{Type: rule.ActionAdjustBid, Bid: &rule.BidAction{Percent: f(20)}},
				},
			},
		},
	}

	bid := 1.00
	e := &performance.Entity{
		ID:         "kw1",
		Type:       performance.EntityKeyword,
		CurrentBid: &bid,
		Daily:      []performance.DailyData{{Date: daysAgo(2), Clicks: 10}},
	}

	decisions := Evaluate(ar, map[string]*performance.Entity{"kw1": e}, nil, evalNow)
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if decisions[0].GroupIndex != 0 {
		t.Errorf("expected first group to win, got group %d", decisions[0].GroupIndex)
	}
	if decisions[0].NewBid == nil || *decisions[0].NewBid != 0.80 {
		t.Errorf("expected decreased bid 0.80, got %v", decisions[0].NewBid)
	}
}

func TestEvaluateSkipsThrottledEntities(t *testing.T) {
	ar := &rule.AutomationRule{
		Config: rule.RuleConfig{
			ConditionGroups: []rule.ConditionGroup{
				{
					Conditions: []rule.Condition{
						{Metric: rule.MetricClicks, TimeWindow: 7, Operator: rule.OperatorGreaterThan, Value: 0},
					},
					Action: rule.Action{Type: rule.ActionNegate, Negate: &rule.NegateAction{MatchType: rule.NegativeExact}},
				},
			},
		},
	}

	hot := searchTerm("ag1", "hot term", []performance.DailyData{{Date: daysAgo(2), Clicks: 3}})
	cold := searchTerm("ag1", "cold term", []performance.DailyData{{Date: daysAgo(2), Clicks: 3}})
	entities := map[string]*performance.Entity{hot.Key(): hot, cold.Key(): cold}
	throttled := map[string]bool{hot.Key(): true}

	decisions := Evaluate(ar, entities, throttled, evalNow)
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if decisions[0].Entity.Text != "cold term" {
		t.Errorf("throttled entity acted on: %q", decisions[0].Entity.Text)
	}
}

func TestEvaluateBudgetBoost(t *testing.T) {
	ar := &rule.AutomationRule{
		RuleType: rule.RuleTypeBudgetAcceleration,
		Config: rule.RuleConfig{
			ConditionGroups: []rule.ConditionGroup{
				{
					Conditions: []rule.Condition{
						// Same-day sentinel window.
						{Metric: rule.MetricROAS, TimeWindow: 0, Operator: rule.OperatorGreaterThan, Value: 3},
						{Metric: rule.MetricBudgetUtilization, TimeWindow: 0, Operator: rule.OperatorGreaterThan, Value: 75},
					},
					Action: rule.Action{Type: rule.ActionBoostBudget, Budget: &rule.BudgetAction{IncreasePercent: f(50)}},
				},
			},
		},
	}

	budget := 100.0
	e := &performance.Entity{
		ID:     "camp1",
		Type:   performance.EntityCampaign,
		Budget: &budget,
		Daily:  []performance.DailyData{{Date: evalNow, Spend: 80, Sales: 300}},
	}

	decisions := Evaluate(ar, map[string]*performance.Entity{"camp1": e}, nil, evalNow)
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if decisions[0].NewBudget == nil || *decisions[0].NewBudget != 150.0 {
		t.Errorf("expected boosted budget 150, got %v", decisions[0].NewBudget)
	}
}

func TestEvaluateBudgetBoostRequiresStrictIncrease(t *testing.T) {
	ar := &rule.AutomationRule{
		Config: rule.RuleConfig{
			ConditionGroups: []rule.ConditionGroup{
				{
					Action: rule.Action{Type: rule.ActionBoostBudget, Budget: &rule.BudgetAction{FixedBudget: f(100)}},
				},
			},
		},
	}

	budget := 100.0
	e := &performance.Entity{ID: "camp1", Type: performance.EntityCampaign, Budget: &budget}

	decisions := Evaluate(ar, map[string]*performance.Entity{"camp1": e}, nil, evalNow)
	if len(decisions) != 0 {
		t.Fatalf("equal budget must not produce a decision, got %d", len(decisions))
	}
}

func TestEvaluateSkipsEntityWithUnknownBid(t *testing.T) {
	ar := &rule.AutomationRule{
		Config: rule.RuleConfig{
			ConditionGroups: []rule.ConditionGroup{
				{
					Action: rule.Action{Type: rule.ActionAdjustBid, Bid: &rule.BidAction{Percent: f(10)}},
				},
			},
		},
	}

	e := &performance.Entity{ID: "kw1", Type: performance.EntityKeyword}

	decisions := Evaluate(ar, map[string]*performance.Entity{"kw1": e}, nil, evalNow)
	if len(decisions) != 0 {
		t.Fatalf("entity without a readable bid must be skipped, got %d decisions", len(decisions))
	}
}

func TestMetricValueZeroDenominators(t *testing.T) {
	e := &performance.Entity{
		Daily: []performance.DailyData{{Date: daysAgo(1), Spend: 12.50}},
	}
	tests := []struct {
		metric rule.Metric
		want   float64
	}{
		{rule.MetricACOS, 0},
		{rule.MetricROAS, 0},
		{rule.MetricCTR, 0},
		{rule.MetricCVR, 0},
		{rule.MetricCPC, 0},
	}
	for _, tt := range tests {
		c := rule.Condition{Metric: tt.metric, TimeWindow: 7}
		if got := metricValue(e, c, evalNow); got != tt.want {
			t.Errorf("metricValue(%s) = %v, want %v", tt.metric, got, tt.want)
		}
	}
}
