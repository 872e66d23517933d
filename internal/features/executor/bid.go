package executor

import (
	"context"
	"fmt"

	"adpilot/internal/amazon"
	"adpilot/internal/features/engine"
	"adpilot/internal/features/performance"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// executeBidAdjustments pushes the evaluator's computed bids in two
// batches (keywords, targets) and cools down only the entities the
// platform acknowledged.
func (e *Executor) executeBidAdjustments(ctx context.Context, decisions []engine.Decision) (engine.ExecResult, error) {
	var keywordUpdates, targetUpdates []amazon.BidUpdate
	keyByID := make(map[string]string)
	bidByID := make(map[string]float64)

	for _, d := range decisions {
		if d.NewBid == nil {
			continue
		}
		update := amazon.BidUpdate{EntityID: d.Entity.ID, Bid: *d.NewBid}
		keyByID[d.Entity.ID] = d.Entity.Key()
		bidByID[d.Entity.ID] = *d.NewBid
		if d.Entity.Type == performance.EntityTarget {
			targetUpdates = append(targetUpdates, update)
		} else {
			keywordUpdates = append(keywordUpdates, update)
		}
	}
	if len(keywordUpdates)+len(targetUpdates) == 0 {
		return engine.ExecResult{}, nil
	}

	var acted []string
	var failures []amazon.BatchError
	changed := bson.M{}

	if len(keywordUpdates) > 0 {
		result, err := e.Ads.UpdateKeywordBids(ctx, keywordUpdates)
		if err != nil {
			return engine.ExecResult{}, fmt.Errorf("keyword bid update: %w", err)
		}
		acted, failures = collect(result, keyByID, acted, failures)
		for _, id := range result.Success {
			changed[id] = bidByID[id]
		}
	}
	if len(targetUpdates) > 0 {
		result, err := e.Ads.UpdateTargetBids(ctx, targetUpdates)
		if err != nil {
			return engine.ExecResult{}, fmt.Errorf("target bid update: %w", err)
		}
		acted, failures = collect(result, keyByID, acted, failures)
		for _, id := range result.Success {
			changed[id] = bidByID[id]
		}
	}

	for _, f := range failures {
		e.Logger.Warn("bid update rejected",
			zap.String("entityId", f.ID), zap.String("code", f.Code))
	}

	details := bson.M{"new_bids": changed}
	if len(failures) > 0 {
		details["rejected"] = len(failures)
	}
	return engine.ExecResult{
		Acted:   acted,
		Summary: fmt.Sprintf("adjusted %d bids (%d rejected)", len(acted), len(failures)),
		Details: details,
	}, nil
}

// collect appends the entity keys of acknowledged IDs, keeping failures
// out of the cooldown set.
func collect(result amazon.BatchResult, keyByID map[string]string, acted []string, failures []amazon.BatchError) ([]string, []amazon.BatchError) {
	for _, id := range result.Success {
		if key, ok := keyByID[id]; ok {
			acted = append(acted, key)
		}
	}
	return acted, append(failures, result.Failures...)
}
