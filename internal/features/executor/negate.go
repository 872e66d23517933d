package executor

import (
	"context"
	"fmt"

	"adpilot/internal/amazon"
	"adpilot/internal/features/engine"
	"adpilot/internal/features/rule"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// executeNegations turns losing search terms into negative keywords, or
// negative product targets when the "term" is an ASIN.
func (e *Executor) executeNegations(ctx context.Context, decisions []engine.Decision) (engine.ExecResult, error) {
	var keywords []amazon.NegativeKeyword
	var keywordKeys []string
	var targets []amazon.NegativeTarget
	var targetKeys []string

	for _, d := range decisions {
		if d.Action.Negate == nil {
			continue
		}
		ent := d.Entity
		if d.Action.Negate.MatchType == rule.NegativeProduct || isASIN(ent.Text) {
			targets = append(targets, amazon.NegativeTarget{
				CampaignID: ent.CampaignID,
				AdGroupID:  ent.AdGroupID,
				ASIN:       ent.Text,
			})
			targetKeys = append(targetKeys, ent.Key())
		} else {
			keywords = append(keywords, amazon.NegativeKeyword{
				CampaignID:  ent.CampaignID,
				AdGroupID:   ent.AdGroupID,
				KeywordText: ent.Text,
				MatchType:   string(d.Action.Negate.MatchType),
			})
			keywordKeys = append(keywordKeys, ent.Key())
		}
	}
	if len(keywords)+len(targets) == 0 {
		return engine.ExecResult{}, nil
	}

	var acted []string
	rejected := 0

	if len(keywords) > 0 {
		result, err := e.Ads.CreateNegativeKeywords(ctx, keywords)
		if err != nil {
			return engine.ExecResult{}, fmt.Errorf("creating negative keywords: %w", err)
		}
		acted, rejected = e.collectByIndex(result, keywordKeys, acted, rejected)
	}
	if len(targets) > 0 {
		result, err := e.Ads.CreateNegativeTargets(ctx, targets)
		if err != nil {
			return engine.ExecResult{}, fmt.Errorf("creating negative targets: %w", err)
		}
		acted, rejected = e.collectByIndex(result, targetKeys, acted, rejected)
	}

	return engine.ExecResult{
		Acted:   acted,
		Summary: fmt.Sprintf("negated %d search terms (%d rejected)", len(acted), rejected),
		Details: bson.M{"negated": len(acted)},
	}, nil
}

// collectByIndex maps per-item results back to entity keys by batch
// position, the only identity creation responses carry. A duplicate
// rejection means the negative already exists, which still counts as
// acted for cooldown purposes.
func (e *Executor) collectByIndex(result amazon.BatchResult, keys []string, acted []string, rejected int) ([]string, int) {
	failed := make(map[int]bool)
	for _, f := range result.Failures {
		if f.Code == "DUPLICATE_VALUE" {
			continue
		}
		failed[f.Index] = true
		rejected++
		e.Logger.Warn("negation rejected", zap.String("code", f.Code), zap.String("description", f.Description))
	}
	for i, key := range keys {
		if !failed[i] {
			acted = append(acted, key)
		}
	}
	return acted, rejected
}
