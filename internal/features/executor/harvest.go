package executor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"adpilot/internal/amazon"
	"adpilot/internal/features/engine"
	"adpilot/internal/features/performance"
	"adpilot/internal/features/rule"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// executeHarvest promotes winning search terms into their own keywords
// or product targets, either inside a brand-new single-term campaign or
// an operator-chosen existing ad group. The source term is then negated
// in its originating ad group so traffic shifts to the new placement.
func (e *Executor) executeHarvest(ctx context.Context, ar *rule.AutomationRule, decisions []engine.Decision) (engine.ExecResult, error) {
	var acted []string
	var createdCampaigns []string
	var negKeywords []amazon.NegativeKeyword
	var negTargets []amazon.NegativeTarget
	harvested, skipped, failed := 0, 0, 0

	for _, d := range decisions {
		act := d.Action.Harvest
		if act == nil {
			continue
		}
		ent := d.Entity

		bid, ok := harvestBid(ent, act)
		if !ok {
			e.Logger.Warn("no bid derivable for harvested term, skipping",
				zap.String("term", ent.Text), zap.String("adGroupId", ent.AdGroupID))
			continue
		}

		campaignID, duplicate, err := e.placeHarvestedTerm(ctx, ar, ent, act, bid)
		if err != nil {
			failed++
			e.Logger.Warn("harvest aborted",
				zap.String("term", ent.Text), zap.Error(err))
			continue
		}
		if duplicate {
			skipped++
		} else {
			harvested++
			if campaignID != "" {
				createdCampaigns = append(createdCampaigns, campaignID)
			}
		}

		if !act.DisableNegation {
			if isASIN(ent.Text) {
				negTargets = append(negTargets, amazon.NegativeTarget{
					CampaignID: ent.CampaignID,
					AdGroupID:  ent.AdGroupID,
					ASIN:       ent.Text,
				})
			} else {
				negKeywords = append(negKeywords, amazon.NegativeKeyword{
					CampaignID:  ent.CampaignID,
					AdGroupID:   ent.AdGroupID,
					KeywordText: ent.Text,
					MatchType:   string(rule.NegativeExact),
				})
			}
		}
		acted = append(acted, ent.Key())
	}

	if len(negKeywords) > 0 {
		if _, err := e.Ads.CreateNegativeKeywords(ctx, negKeywords); err != nil && !amazon.IsDuplicate(err) {
			e.Logger.Warn("negating harvested keywords failed", zap.Error(err))
		}
	}
	if len(negTargets) > 0 {
		if _, err := e.Ads.CreateNegativeTargets(ctx, negTargets); err != nil && !amazon.IsDuplicate(err) {
			e.Logger.Warn("negating harvested targets failed", zap.Error(err))
		}
	}

	e.associateCampaigns(ctx, decisions, createdCampaigns)

	return engine.ExecResult{
		Acted: acted,
		Summary: fmt.Sprintf("harvested %d search terms (%d already existed, %d failed)",
			harvested, skipped, failed),
		Details: bson.M{
			"harvested":         harvested,
			"skipped":           skipped,
			"failed":            failed,
			"created_campaigns": createdCampaigns,
		},
	}, nil
}

// placeHarvestedTerm creates the campaign chain for one term, or drops
// the new keyword/target into the configured existing ad group. Returns
// the created campaign ID (empty when reusing an existing campaign) and
// whether the platform reported the placement as already existing.
func (e *Executor) placeHarvestedTerm(ctx context.Context, ar *rule.AutomationRule, ent *performance.Entity, act *rule.HarvestAction, bid float64) (string, bool, error) {
	campaignID := act.TargetCampaignID
	adGroupID := act.TargetAdGroupID
	createdCampaign := ""

	if campaignID == "" {
		name := harvestCampaignName(ar.Name, ent.Text)
		id, err := e.Ads.CreateCampaign(ctx, amazon.Campaign{
			Name:          name,
			State:         "ENABLED",
			DailyBudget:   act.DailyBudget,
			TargetingType: "MANUAL",
		})
		if err != nil {
			if amazon.IsDuplicate(err) {
				return "", true, nil
			}
			return "", false, fmt.Errorf("creating campaign: %w", err)
		}
		campaignID = id
		createdCampaign = id

		agID, err := e.Ads.CreateAdGroup(ctx, amazon.AdGroup{
			CampaignID: campaignID,
			Name:       ent.Text,
			DefaultBid: bid,
			State:      "ENABLED",
		})
		if err != nil {
			return createdCampaign, false, fmt.Errorf("creating ad group: %w", err)
		}
		adGroupID = agID

		if ent.SourceASIN != "" {
			if _, err := e.Ads.CreateProductAd(ctx, amazon.ProductAd{
				CampaignID: campaignID,
				AdGroupID:  adGroupID,
				ASIN:       ent.SourceASIN,
				State:      "ENABLED",
			}); err != nil {
				return createdCampaign, false, fmt.Errorf("creating product ad: %w", err)
			}
		}
	}
	if adGroupID == "" {
		return createdCampaign, false, fmt.Errorf("no destination ad group for term %q", ent.Text)
	}

	if isASIN(ent.Text) {
		_, err := e.Ads.CreateTarget(ctx, amazon.Target{
			CampaignID: campaignID,
			AdGroupID:  adGroupID,
			Expression: strings.ToUpper(ent.Text),
			State:      "ENABLED",
			Bid:        &bid,
		})
		if err != nil {
			if amazon.IsDuplicate(err) {
				return createdCampaign, true, nil
			}
			return createdCampaign, false, fmt.Errorf("creating target: %w", err)
		}
	} else {
		matchType := act.MatchType
		if matchType == "" {
			matchType = "EXACT"
		}
		_, err := e.Ads.CreateKeyword(ctx, amazon.Keyword{
			CampaignID:  campaignID,
			AdGroupID:   adGroupID,
			KeywordText: ent.Text,
			MatchType:   matchType,
			State:       "ENABLED",
			Bid:         &bid,
		})
		if err != nil {
			if amazon.IsDuplicate(err) {
				return createdCampaign, true, nil
			}
			return createdCampaign, false, fmt.Errorf("creating keyword: %w", err)
		}
	}
	return createdCampaign, false, nil
}

// associateCampaigns adds the campaigns created this run to the scope of
// every rule listed for auto-association, so bid rules start managing
// the harvested keywords without operator intervention.
func (e *Executor) associateCampaigns(ctx context.Context, decisions []engine.Decision, campaignIDs []string) {
	if len(campaignIDs) == 0 {
		return
	}
	seen := make(map[string]bool)
	for _, d := range decisions {
		if d.Action.Harvest == nil {
			continue
		}
		for _, rid := range d.Action.Harvest.AssociateRuleIDs {
			if seen[rid.Hex()] {
				continue
			}
			seen[rid.Hex()] = true
			if err := e.Rules.AddCampaignsToScope(ctx, rid, campaignIDs); err != nil {
				e.Logger.Warn("associating harvested campaigns failed",
					zap.String("ruleId", rid.Hex()), zap.Error(err))
			}
		}
	}
}

// harvestBid derives the bid for a promoted term: a fixed value, or the
// term's observed average CPC scaled by a multiplier and optionally
// capped. Falls to the platform's $0.02 floor and rounds to the cent.
func harvestBid(ent *performance.Entity, act *rule.HarvestAction) (float64, bool) {
	var bid float64
	switch act.BidStrategy {
	case rule.BidStrategyFixed:
		if act.FixedBid == nil {
			return 0, false
		}
		bid = *act.FixedBid
	case rule.BidStrategyCPCMultiplier:
		if act.CPCMultiplier == nil {
			return 0, false
		}
		var spend float64
		var clicks int64
		for _, d := range ent.Daily {
			spend += d.Spend
			clicks += d.Clicks
		}
		if clicks == 0 {
			return 0, false
		}
		bid = (spend / float64(clicks)) * *act.CPCMultiplier
		if act.MaxBid != nil && bid > *act.MaxBid {
			bid = *act.MaxBid
		}
	default:
		return 0, false
	}
	bid = math.Round(bid*100) / 100
	if bid < engine.MinBid {
		bid = engine.MinBid
	}
	return bid, true
}

// harvestCampaignName is deterministic so a re-run of the same rule hits
// the platform's duplicate-name rejection instead of creating twins.
func harvestCampaignName(ruleName, term string) string {
	return fmt.Sprintf("%s | %s", ruleName, strings.ToLower(term))
}
