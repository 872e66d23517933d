package executor

import (
	"context"
	"fmt"
	"time"

	"adpilot/internal/amazon"
	"adpilot/internal/features/budget"
	"adpilot/internal/features/engine"
	"adpilot/internal/features/rule"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// executeBudgetBoosts raises campaign budgets. The override record is
// written before the platform call so a crash after the call can never
// lose the revert obligation; the at-most-one-live-override invariant
// makes re-runs on the same day no-ops.
func (e *Executor) executeBudgetBoosts(ctx context.Context, ar *rule.AutomationRule, decisions []engine.Decision) (engine.ExecResult, error) {
	today := budget.DateKey(time.Now())

	var updates []amazon.BudgetUpdate
	keyByID := make(map[string]string)
	budgets := bson.M{}

	for _, d := range decisions {
		if d.NewBudget == nil || d.Entity.Budget == nil {
			continue
		}
		rec := &budget.OverrideRecord{
			CampaignID:     d.Entity.CampaignID,
			ProfileID:      ar.ProfileID,
			OriginalBudget: *d.Entity.Budget,
			NewBudget:      *d.NewBudget,
			OverrideDate:   today,
			RuleID:         ar.ID,
		}
		inserted, err := e.Overrides.InsertIfAbsent(ctx, rec)
		if err != nil {
			return engine.ExecResult{}, fmt.Errorf("recording budget override: %w", err)
		}
		if !inserted {
			// A live override already exists for this campaign today.
			e.Logger.Debug("campaign already boosted today",
				zap.String("campaignId", d.Entity.CampaignID))
			continue
		}
		updates = append(updates, amazon.BudgetUpdate{
			CampaignID:  d.Entity.CampaignID,
			DailyBudget: *d.NewBudget,
		})
		keyByID[d.Entity.CampaignID] = d.Entity.Key()
		budgets[d.Entity.CampaignID] = *d.NewBudget
	}
	if len(updates) == 0 {
		return engine.ExecResult{Summary: "all matching campaigns already boosted today"}, nil
	}

	result, err := e.Ads.UpdateCampaignBudgets(ctx, updates)
	if err != nil {
		// Override records stay live; the nightly job will restore the
		// original budgets regardless.
		return engine.ExecResult{}, fmt.Errorf("budget update: %w", err)
	}

	var acted []string
	for _, id := range result.Success {
		if key, ok := keyByID[id]; ok {
			acted = append(acted, key)
		}
	}
	for _, f := range result.Failures {
		e.Logger.Warn("budget update rejected",
			zap.String("campaignId", f.ID), zap.String("code", f.Code))
	}

	return engine.ExecResult{
		Acted:   acted,
		Summary: fmt.Sprintf("boosted %d campaign budgets (%d rejected)", len(acted), len(result.Failures)),
		Details: bson.M{"new_budgets": budgets},
	}, nil
}
