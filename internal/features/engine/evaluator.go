package engine

import (
	"sort"
	"time"

	"adpilot/internal/features/performance"
	"adpilot/internal/features/rule"
)

// Decision is one entity's selected action with its payload already
// computed, ready for an executor to carry out.
type Decision struct {
	Entity     *performance.Entity
	Action     rule.Action
	GroupIndex int

	// NewBid is set for adjust_bid decisions (post rounding and clamps).
	NewBid *float64

	// NewBudget is set for boost_budget decisions, always strictly
	// greater than the campaign's current budget.
	NewBudget *float64
}

// Evaluate walks every non-throttled entity through the rule's ordered
// condition groups. The first group whose conditions all hold wins;
// later, broader groups act as a fallback. Entities are visited in key
// order so runs are deterministic.
func Evaluate(ar *rule.AutomationRule, entities map[string]*performance.Entity, throttled map[string]bool, now time.Time) []Decision {
	keys := make([]string, 0, len(entities))
	for k := range entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var decisions []Decision
	for _, key := range keys {
		if throttled[key] {
			continue
		}
		e := entities[key]
		if d, ok := evaluateEntity(ar, e, now); ok {
			decisions = append(decisions, d)
		}
	}
	return decisions
}

func evaluateEntity(ar *rule.AutomationRule, e *performance.Entity, now time.Time) (Decision, bool) {
	for i, group := range ar.Config.ConditionGroups {
		if !groupHolds(group, e, now) {
			continue
		}
		// First match wins: never evaluate further groups.
		return buildDecision(group.Action, e, i)
	}
	return Decision{}, false
}

func groupHolds(group rule.ConditionGroup, e *performance.Entity, now time.Time) bool {
	for _, c := range group.Conditions {
		if !compare(metricValue(e, c, now), c.Operator, c.Value) {
			return false
		}
	}
	return true
}

func metricValue(e *performance.Entity, c rule.Condition, now time.Time) float64 {
	t := performance.Window(e.Daily, c.TimeWindow, e.MetricNow(now))
	switch c.Metric {
	case rule.MetricImpressions:
		return float64(t.Impressions)
	case rule.MetricClicks:
		return float64(t.Clicks)
	case rule.MetricOrders:
		return float64(t.Orders)
	case rule.MetricSpend:
		return t.Spend
	case rule.MetricSales:
		return t.Sales
	case rule.MetricACOS:
		return t.ACOS()
	case rule.MetricROAS:
		return t.ROAS()
	case rule.MetricCTR:
		return t.CTR()
	case rule.MetricCVR:
		return t.CVR()
	case rule.MetricCPC:
		return t.CPC()
	case rule.MetricBudgetUtilization:
		if e.Budget == nil || *e.Budget == 0 {
			return 0
		}
		return t.Spend / *e.Budget * 100
	default:
		return 0
	}
}

func compare(value float64, op rule.Operator, threshold float64) bool {
	switch op {
	case rule.OperatorGreaterThan:
		return value > threshold
	case rule.OperatorLessThan:
		return value < threshold
	case rule.OperatorEquals:
		return value == threshold
	default:
		return false
	}
}

// buildDecision computes the action payload. Entities whose payload
// cannot be derived (unknown bid, non-increasing budget, no-op bid
// change) produce no decision.
func buildDecision(act rule.Action, e *performance.Entity, groupIndex int) (Decision, bool) {
	d := Decision{Entity: e, Action: act, GroupIndex: groupIndex}

	switch act.Type {
	case rule.ActionAdjustBid:
		if act.Bid == nil || e.CurrentBid == nil {
			// Bid unknown even after ad-group fallback: skip rather
			// than abort the rule.
			return Decision{}, false
		}
		bid, changed := NewBid(*e.CurrentBid, *act.Bid)
		if !changed {
			return Decision{}, false
		}
		d.NewBid = &bid
		return d, true

	case rule.ActionBoostBudget:
		if act.Budget == nil || e.Budget == nil {
			return Decision{}, false
		}
		current := *e.Budget
		var next float64
		if act.Budget.FixedBudget != nil {
			next = *act.Budget.FixedBudget
		} else if act.Budget.IncreasePercent != nil {
			next = current * (1 + *act.Budget.IncreasePercent/100)
		} else {
			return Decision{}, false
		}
		next = float64(int64(next*100+0.5)) / 100
		if next <= current {
			return Decision{}, false
		}
		d.NewBudget = &next
		return d, true

	case rule.ActionNegate:
		if act.Negate == nil {
			return Decision{}, false
		}
		return d, true

	case rule.ActionHarvest:
		if act.Harvest == nil {
			return Decision{}, false
		}
		return d, true

	default:
		return d, true
	}
}
