package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"adpilot/internal/ai"
	"adpilot/internal/amazon"
	"adpilot/internal/features/budget"
	"adpilot/internal/features/engine"
	"adpilot/internal/features/rule"
	"adpilot/pkg/retry"

	"go.uber.org/zap"
)

// Executor dispatches decided actions to the advertising platform, one
// protocol per rule type.
type Executor struct {
	Ads       amazon.API
	AI        ai.Classifier
	Overrides budget.OverrideRepository
	Rules     rule.RuleRepository
	Logger    *zap.Logger

	// Classification batching knobs.
	BatchSize  int
	BatchDelay time.Duration
	Retry      retry.Config
}

func NewExecutor(ads amazon.API, classifier ai.Classifier, overrides budget.OverrideRepository, rules rule.RuleRepository, logger *zap.Logger) engine.ActionExecutor {
	return &Executor{
		Ads:        ads,
		AI:         classifier,
		Overrides:  overrides,
		Rules:      rules,
		Logger:     logger,
		BatchSize:  5,
		BatchDelay: 2 * time.Second,
		Retry:      retry.DefaultConfig(),
	}
}

func (e *Executor) Execute(ctx context.Context, ar *rule.AutomationRule, decisions []engine.Decision) (engine.ExecResult, error) {
	switch ar.RuleType {
	case rule.RuleTypeBidAdjustment:
		return e.executeBidAdjustments(ctx, decisions)
	case rule.RuleTypeBudgetAcceleration:
		return e.executeBudgetBoosts(ctx, ar, decisions)
	case rule.RuleTypeSearchTermAutomation:
		return e.executeNegations(ctx, decisions)
	case rule.RuleTypeSearchTermHarvesting:
		return e.executeHarvest(ctx, ar, decisions)
	case rule.RuleTypeAINegation:
		return e.executeAINegation(ctx, decisions)
	case rule.RuleTypePriceAdjustment:
		// Price changes go through the listing surface, which this
		// engine only observes. Recorded as a no-op.
		return engine.ExecResult{Summary: "price adjustments are applied by the listing service"}, nil
	default:
		return engine.ExecResult{}, fmt.Errorf("unsupported rule type %s", ar.RuleType)
	}
}

// isASIN reports whether a search term is actually a product page hit.
func isASIN(term string) bool {
	t := strings.TrimSpace(term)
	return len(t) == 10 && (strings.HasPrefix(t, "B0") || strings.HasPrefix(t, "b0"))
}
