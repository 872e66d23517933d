package performance

import (
	"context"
	"fmt"
	"time"

	"adpilot/internal/amazon"
	"adpilot/internal/features/rule"

	"go.uber.org/zap"
)

// searchTermDelay is the attribution lag on search-term data: rows are
// never fresher than D-2 regardless of source.
const searchTermDelay = 2

// Reconciler merges the delayed authoritative report store with the
// near-real-time stream into one performance view per entity.
type Reconciler struct {
	report ReportSource
	stream StreamSource
	ads    amazon.API
	logger *zap.Logger
}

func NewReconciler(report ReportSource, stream StreamSource, ads amazon.API, logger *zap.Logger) *Reconciler {
	return &Reconciler{report: report, stream: stream, ads: ads, logger: logger}
}

// GrainFor maps a rule type onto its query shape.
func GrainFor(ruleType rule.RuleType) Grain {
	switch ruleType {
	case rule.RuleTypeSearchTermAutomation, rule.RuleTypeSearchTermHarvesting, rule.RuleTypeAINegation:
		return GrainSearchTerm
	case rule.RuleTypeBudgetAcceleration:
		return GrainCampaign
	default:
		return GrainEntity
	}
}

// Build produces one performance record per targetable entity in the
// rule's scope, plus the audit trail of which dates came from which
// source.
func (r *Reconciler) Build(ctx context.Context, ar *rule.AutomationRule, now time.Time) (map[string]*Entity, DateRange, error) {
	grain := GrainFor(ar.RuleType)
	scope := ar.Scope.CampaignIDs
	if len(scope) == 0 {
		return map[string]*Entity{}, DateRange{}, nil
	}

	window := r.windowFor(ar, grain, now)
	if len(window) == 0 {
		return map[string]*Entity{}, DateRange{}, nil
	}

	reportHas, err := r.report.DatesWithData(ctx, grain, scope, window[0], window[len(window)-1])
	if err != nil {
		return nil, DateRange{}, fmt.Errorf("reconcile: %w", err)
	}
	reportDates, streamDates := PartitionDates(window, reportHas)

	entities := make(map[string]*Entity)

	// Comprehensive mode: rules that detect silence must see entities
	// that produced no report or stream rows at all.
	seeded := false
	if grain == GrainEntity && ar.NeedsSilentEntities() {
		if err := r.seedLiveEntities(ctx, scope, entities); err != nil {
			return nil, DateRange{}, fmt.Errorf("reconcile: %w", err)
		}
		seeded = true
	}
	if grain == GrainCampaign {
		if err := r.seedCampaigns(ctx, scope, entities); err != nil {
			return nil, DateRange{}, fmt.Errorf("reconcile: %w", err)
		}
	}

	reportRows, err := r.report.FetchDaily(ctx, grain, scope, reportDates)
	if err != nil {
		return nil, DateRange{}, fmt.Errorf("reconcile report rows: %w", err)
	}
	streamRows, err := r.stream.FetchDaily(ctx, grain, scope, streamDates)
	if err != nil {
		return nil, DateRange{}, fmt.Errorf("reconcile stream rows: %w", err)
	}

	mergeRows(entities, reportRows)
	mergeRows(entities, streamRows)

	if grain == GrainEntity {
		// Bid reads degrade to "skip entities without a known bid";
		// a failed fetch must not abort the rule.
		if err := r.attachBids(ctx, scope, entities, seeded); err != nil {
			r.logger.Warn("bid enrichment failed, entities without bids will be skipped",
				zap.String("ruleId", ar.ID.Hex()), zap.Error(err))
		}
	}

	dr := DateRange{
		Start:       window[0],
		End:         window[len(window)-1],
		ReportDates: reportDates,
		StreamDates: streamDates,
	}
	return entities, dr, nil
}

func (r *Reconciler) windowFor(ar *rule.AutomationRule, grain Grain, now time.Time) []time.Time {
	lookback := ar.MaxLookbackDays()
	if grain == GrainSearchTerm {
		// Fixed attribution offset: shift the whole window back so it
		// ends at D-2, and ignore the "today" sentinel.
		return WindowDates(now.AddDate(0, 0, -(searchTermDelay-1)), lookback, false)
	}
	if grain == GrainCampaign {
		// Budget acceleration reads same-day totals.
		return WindowDates(now, lookback, true)
	}
	return WindowDates(now, lookback, ar.UsesToday())
}

// seedLiveEntities enumerates all enabled/paused keywords and targets so
// zero-traffic entities are not invisible merely because they generated
// no rows.
func (r *Reconciler) seedLiveEntities(ctx context.Context, scope []string, entities map[string]*Entity) error {
	states := []string{"ENABLED", "PAUSED"}

	keywords, err := r.ads.ListKeywords(ctx, scope, states)
	if err != nil {
		return err
	}
	for _, k := range keywords {
		e := &Entity{
			ID:         k.KeywordID,
			Type:       EntityKeyword,
			Text:       k.KeywordText,
			CampaignID: k.CampaignID,
			AdGroupID:  k.AdGroupID,
			MatchType:  k.MatchType,
			CurrentBid: k.Bid,
		}
		entities[e.Key()] = e
	}

	targets, err := r.ads.ListTargets(ctx, scope, states)
	if err != nil {
		return err
	}
	for _, t := range targets {
		e := &Entity{
			ID:         t.TargetID,
			Type:       EntityTarget,
			Text:       t.Expression,
			CampaignID: t.CampaignID,
			AdGroupID:  t.AdGroupID,
			CurrentBid: t.Bid,
		}
		entities[e.Key()] = e
	}
	return nil
}

// seedCampaigns loads every in-scope campaign with its live budget, so
// budget rules see campaigns even before any same-day traffic lands.
func (r *Reconciler) seedCampaigns(ctx context.Context, scope []string, entities map[string]*Entity) error {
	campaigns, err := r.ads.ListCampaigns(ctx, scope, []string{"ENABLED"})
	if err != nil {
		return err
	}
	for _, c := range campaigns {
		budget := c.DailyBudget
		e := &Entity{
			ID:         c.CampaignID,
			Type:       EntityCampaign,
			Text:       c.Name,
			CampaignID: c.CampaignID,
			Budget:     &budget,
		}
		entities[e.Key()] = e
	}
	return nil
}

// attachBids resolves current bids, falling back to the owning ad
// group's default bid for entities that inherit it. When the comprehensive
// seed already enumerated live keywords and targets, their bids are in
// place and refetching would double the paginated platform reads.
func (r *Reconciler) attachBids(ctx context.Context, scope []string, entities map[string]*Entity, seeded bool) error {
	defaults := make(map[string]float64)
	adGroups, err := r.ads.ListAdGroups(ctx, scope)
	if err != nil {
		return err
	}
	for _, g := range adGroups {
		defaults[g.AdGroupID] = g.DefaultBid
	}

	bids := make(map[string]*float64)
	if !seeded {
		states := []string{"ENABLED", "PAUSED"}
		keywords, err := r.ads.ListKeywords(ctx, scope, states)
		if err != nil {
			return err
		}
		for _, k := range keywords {
			bids[k.KeywordID] = k.Bid
		}
		targets, err := r.ads.ListTargets(ctx, scope, states)
		if err != nil {
			return err
		}
		for _, t := range targets {
			bids[t.TargetID] = t.Bid
		}
	}

	for _, e := range entities {
		if e.CurrentBid != nil {
			continue
		}
		if bid, ok := bids[e.ID]; ok && bid != nil {
			e.CurrentBid = bid
			continue
		}
		if def, ok := defaults[e.AdGroupID]; ok && def > 0 {
			d := def
			e.CurrentBid = &d
		}
	}
	return nil
}
