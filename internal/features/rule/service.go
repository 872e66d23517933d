package rule

import (
	"context"
	"fmt"
)

type RuleService interface {
	CreateRule(ctx context.Context, rule *AutomationRule) error
	GetRule(ctx context.Context, id string) (*AutomationRule, error)
	ListRules(ctx context.Context) ([]AutomationRule, error)
	UpdateRule(ctx context.Context, rule *AutomationRule) error
	DeleteRule(ctx context.Context, id string) error
	EnableRule(ctx context.Context, id string, active bool) error
}

type RuleServiceImpl struct {
	Repo RuleRepository
}

func NewRuleService(repo RuleRepository) RuleService {
	return &RuleServiceImpl{Repo: repo}
}

func (s *RuleServiceImpl) CreateRule(ctx context.Context, rule *AutomationRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	return s.Repo.Create(ctx, rule)
}

func (s *RuleServiceImpl) GetRule(ctx context.Context, id string) (*AutomationRule, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *RuleServiceImpl) ListRules(ctx context.Context) ([]AutomationRule, error) {
	return s.Repo.List(ctx)
}

func (s *RuleServiceImpl) UpdateRule(ctx context.Context, rule *AutomationRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	return s.Repo.Update(ctx, rule)
}

func (s *RuleServiceImpl) DeleteRule(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func (s *RuleServiceImpl) EnableRule(ctx context.Context, id string, active bool) error {
	return s.Repo.Enable(ctx, id, active)
}

func validateRule(rule *AutomationRule) error {
	if rule.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if len(rule.Config.ConditionGroups) == 0 {
		return fmt.Errorf("rule needs at least one condition group")
	}
	if rule.Config.Frequency.Value <= 0 {
		return fmt.Errorf("frequency value must be positive")
	}
	if rule.Config.Cooldown.Value < 0 {
		return fmt.Errorf("cooldown value cannot be negative")
	}
	for i, g := range rule.Config.ConditionGroups {
		if len(g.Conditions) == 0 {
			return fmt.Errorf("condition group %d has no conditions", i)
		}
		switch g.Action.Type {
		case ActionAdjustBid:
			if g.Action.Bid == nil {
				return fmt.Errorf("condition group %d: adjust_bid action needs a bid payload", i)
			}
			if g.Action.Bid.Percent == nil && g.Action.Bid.Delta == nil {
				return fmt.Errorf("condition group %d: bid action needs a percent or delta", i)
			}
		case ActionBoostBudget:
			if g.Action.Budget == nil {
				return fmt.Errorf("condition group %d: boost_budget action needs a budget payload", i)
			}
		case ActionNegate:
			if g.Action.Negate == nil {
				return fmt.Errorf("condition group %d: negate action needs a match type", i)
			}
		case ActionHarvest:
			if g.Action.Harvest == nil {
				return fmt.Errorf("condition group %d: harvest action needs a harvest payload", i)
			}
		}
	}
	return nil
}
