package executor

import (
	"context"
	"fmt"
	"time"

	"adpilot/internal/ai"
	"adpilot/internal/amazon"
	"adpilot/internal/features/engine"
	"adpilot/internal/features/rule"
	"adpilot/pkg/retry"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// executeAINegation asks the relevance classifier about each surviving
// search term and negates the ones judged irrelevant to the advertised
// product. Calls run in small batches with a fixed pause between them,
// and the credential pool rotates per batch so one exhausted key never
// stalls the whole rule.
func (e *Executor) executeAINegation(ctx context.Context, decisions []engine.Decision) (engine.ExecResult, error) {
	products := make(map[string]*amazon.CatalogItem)
	var negKeywords []amazon.NegativeKeyword
	var keywordKeys []string
	var negTargets []amazon.NegativeTarget
	var targetKeys []string
	classified, irrelevant, failed := 0, 0, 0

	for start := 0; start < len(decisions); start += e.BatchSize {
		end := start + e.BatchSize
		if end > len(decisions) {
			end = len(decisions)
		}
		if start > 0 {
			e.AI.RotateCredential()
			select {
			case <-ctx.Done():
				return engine.ExecResult{}, ctx.Err()
			case <-time.After(e.BatchDelay):
			}
		}

		for _, d := range decisions[start:end] {
			if d.Action.Negate == nil {
				continue
			}
			ent := d.Entity

			product, err := e.catalogFor(ctx, ent.SourceASIN, products)
			if err != nil {
				failed++
				e.Logger.Warn("catalog lookup failed, term not classified",
					zap.String("asin", ent.SourceASIN), zap.Error(err))
				continue
			}

			query := ent.Text
			if isASIN(ent.Text) {
				// Product page hits are judged by the competing
				// product's own catalog copy, not the raw ASIN.
				if other, oerr := e.catalogFor(ctx, ent.Text, products); oerr == nil {
					query = other.Title
				}
			}

			var relevant bool
			err = retry.Do(ctx, e.Retry, ai.IsOverload, func() error {
				var cerr error
				relevant, cerr = e.AI.ClassifyRelevance(ctx, ai.Product{
					Title:   product.Title,
					Bullets: product.Bullets,
				}, query)
				return cerr
			})
			if err != nil {
				failed++
				e.Logger.Warn("relevance classification failed",
					zap.String("term", ent.Text), zap.Error(err))
				continue
			}
			classified++
			if relevant {
				continue
			}
			irrelevant++

			if d.Action.Negate.MatchType == rule.NegativeProduct || isASIN(ent.Text) {
				negTargets = append(negTargets, amazon.NegativeTarget{
					CampaignID: ent.CampaignID,
					AdGroupID:  ent.AdGroupID,
					ASIN:       ent.Text,
				})
				targetKeys = append(targetKeys, ent.Key())
			} else {
				negKeywords = append(negKeywords, amazon.NegativeKeyword{
					CampaignID:  ent.CampaignID,
					AdGroupID:   ent.AdGroupID,
					KeywordText: ent.Text,
					MatchType:   string(d.Action.Negate.MatchType),
				})
				keywordKeys = append(keywordKeys, ent.Key())
			}
		}
	}

	var acted []string
	rejected := 0
	if len(negKeywords) > 0 {
		result, err := e.Ads.CreateNegativeKeywords(ctx, negKeywords)
		if err != nil {
			return engine.ExecResult{}, fmt.Errorf("creating negative keywords: %w", err)
		}
		acted, rejected = e.collectByIndex(result, keywordKeys, acted, rejected)
	}
	if len(negTargets) > 0 {
		result, err := e.Ads.CreateNegativeTargets(ctx, negTargets)
		if err != nil {
			return engine.ExecResult{}, fmt.Errorf("creating negative targets: %w", err)
		}
		acted, rejected = e.collectByIndex(result, targetKeys, acted, rejected)
	}

	return engine.ExecResult{
		Acted: acted,
		Summary: fmt.Sprintf("classified %d terms, negated %d irrelevant (%d failed, %d rejected)",
			classified, len(acted), failed, rejected),
		Details: bson.M{
			"classified": classified,
			"irrelevant": irrelevant,
			"failed":     failed,
		},
	}, nil
}

// catalogFor memoizes catalog lookups for the duration of one rule run;
// most terms in a scope share the same source ASIN.
func (e *Executor) catalogFor(ctx context.Context, asin string, cache map[string]*amazon.CatalogItem) (*amazon.CatalogItem, error) {
	if asin == "" {
		return nil, fmt.Errorf("no source asin on entity")
	}
	if item, ok := cache[asin]; ok {
		return item, nil
	}
	item, err := e.Ads.GetCatalogItem(ctx, asin)
	if err != nil {
		return nil, err
	}
	cache[asin] = item
	return item, nil
}
