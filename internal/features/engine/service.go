package engine

import (
	"context"
	"fmt"
	"time"

	"adpilot/internal/amazon"
	"adpilot/internal/features/execlog"
	"adpilot/internal/features/performance"
	"adpilot/internal/features/rule"
	"adpilot/internal/features/schedule"
	"adpilot/internal/features/throttle"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// ExecResult is what an executor reports back: which entity keys it
// genuinely changed (partial-batch failures excluded) plus log material.
type ExecResult struct {
	Acted   []string
	Summary string
	Details bson.M
}

// ActionExecutor carries out the decided actions against the platform.
// Implemented by the executor feature; wired in main.
type ActionExecutor interface {
	Execute(ctx context.Context, ar *rule.AutomationRule, decisions []Decision) (ExecResult, error)
}

// PerformanceSource builds the per-entity performance view for a rule.
// Implemented by the performance reconciler; wired in main.
type PerformanceSource interface {
	Build(ctx context.Context, ar *rule.AutomationRule, now time.Time) (map[string]*performance.Entity, performance.DateRange, error)
}

// Service orchestrates one rule run: reconcile, evaluate, execute,
// throttle, log.
type Service struct {
	Rules      rule.RuleRepository
	Schedules  schedule.ScheduleRepository
	Throttles  throttle.ThrottleRepository
	Logs       execlog.LogRepository
	Reconciler PerformanceSource
	Executor   ActionExecutor
	Ads        amazon.API
	Logger     *zap.Logger
}

func NewService(
	rules rule.RuleRepository,
	schedules schedule.ScheduleRepository,
	throttles throttle.ThrottleRepository,
	logs execlog.LogRepository,
	reconciler PerformanceSource,
	executor ActionExecutor,
	ads amazon.API,
	logger *zap.Logger,
) *Service {
	return &Service{
		Rules:      rules,
		Schedules:  schedules,
		Throttles:  throttles,
		Logs:       logs,
		Reconciler: reconciler,
		Executor:   executor,
		Ads:        ads,
		Logger:     logger,
	}
}

// RunRuleNow is the manual entry point behind the rule API.
func (s *Service) RunRuleNow(ctx context.Context, id string) error {
	ar, err := s.Rules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ar == nil {
		return fmt.Errorf("rule %s not found", id)
	}
	s.ProcessRule(ctx, ar)
	return nil
}

// ProcessRule runs one rule end to end. Failures are contained here:
// they are logged, never propagated, so one rule can never block the
// scheduler or other rules. Exactly one execution log is written per
// attempt, and lastRunAt is always stamped.
func (s *Service) ProcessRule(ctx context.Context, ar *rule.AutomationRule) {
	runID := uuid.NewString()
	now := time.Now()
	log := s.Logger.With(zap.String("ruleId", ar.ID.Hex()), zap.String("runId", runID))

	defer func() {
		if err := s.Rules.StampLastRun(ctx, ar.ID, now); err != nil {
			log.Error("failed to stamp lastRunAt", zap.Error(err))
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error("rule processing panicked", zap.Any("panic", r))
			s.appendLog(ctx, ar, runID, execlog.StatusFailure,
				fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	status, summary, details := s.runRule(ctx, ar, runID, now, log)
	s.appendLog(ctx, ar, runID, status, summary, details)
}

func (s *Service) runRule(ctx context.Context, ar *rule.AutomationRule, runID string, now time.Time, log *zap.Logger) (execlog.Status, string, bson.M) {
	cooldown := ar.Config.Cooldown.Duration()

	throttled := map[string]bool{}
	if ar.Config.Cooldown.Value > 0 {
		var err error
		throttled, err = s.Throttles.ActiveSet(ctx, ar.ID, now)
		if err != nil {
			return execlog.StatusFailure, fmt.Sprintf("loading throttle set: %v", err), nil
		}
	}

	entities, dateRange, err := s.Reconciler.Build(ctx, ar, now)
	if err != nil {
		return execlog.StatusFailure, fmt.Sprintf("building performance data: %v", err), nil
	}
	if len(entities) == 0 {
		return execlog.StatusNoAction, "no entities in scope", nil
	}

	decisions := Evaluate(ar, entities, throttled, now)
	if len(decisions) == 0 {
		return execlog.StatusNoAction, "no condition group matched", auditDetails(dateRange, nil)
	}

	result, err := s.Executor.Execute(ctx, ar, decisions)
	if err != nil {
		return execlog.StatusFailure, fmt.Sprintf("executing actions: %v", err), auditDetails(dateRange, result.Details)
	}

	if ar.Config.Cooldown.Value > 0 && len(result.Acted) > 0 {
		if err := s.Throttles.UpsertMany(ctx, ar.ID, result.Acted, now.Add(cooldown)); err != nil {
			log.Error("failed to upsert throttle records", zap.Error(err))
		}
	}

	if len(result.Acted) == 0 {
		summary := result.Summary
		if summary == "" {
			summary = "matched entities required no changes"
		}
		return execlog.StatusNoAction, summary, auditDetails(dateRange, result.Details)
	}

	log.Info("rule acted", zap.Int("entities", len(result.Acted)))
	return execlog.StatusSuccess, result.Summary, auditDetails(dateRange, result.Details)
}

func (s *Service) appendLog(ctx context.Context, ar *rule.AutomationRule, runID string, status execlog.Status, summary string, details bson.M) {
	entry := &execlog.ExecutionLog{
		RuleID:     ar.ID,
		RuleSource: execlog.SourceRule,
		RunID:      runID,
		Status:     status,
		Summary:    summary,
		Details:    details,
		RunAt:      time.Now(),
	}
	if err := s.Logs.Append(ctx, entry); err != nil {
		s.Logger.Error("failed to append execution log",
			zap.String("ruleId", ar.ID.Hex()), zap.Error(err))
	}
}

func auditDetails(dr performance.DateRange, details bson.M) bson.M {
	out := bson.M{}
	for k, v := range details {
		out[k] = v
	}
	if !dr.Start.IsZero() {
		out["data_range"] = bson.M{
			"start":        dr.Start,
			"end":          dr.End,
			"report_dates": dr.ReportDates,
			"stream_dates": dr.StreamDates,
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ProcessSchedule creates the campaign a due schedule describes. A
// duplicate campaign name counts as already created, not a failure.
func (s *Service) ProcessSchedule(ctx context.Context, sch *schedule.CampaignSchedule) {
	runID := uuid.NewString()
	now := time.Now()
	log := s.Logger.With(zap.String("scheduleId", sch.ID.Hex()), zap.String("runId", runID))

	defer func() {
		if err := s.Schedules.StampLastRun(ctx, sch.ID, now); err != nil {
			log.Error("failed to stamp schedule lastRunAt", zap.Error(err))
		}
	}()

	name := fmt.Sprintf("%s %s", sch.Template.NamePrefix, now.Format("2006-01-02"))
	campaignID, err := s.Ads.CreateCampaign(ctx, amazon.Campaign{
		Name:          name,
		State:         "ENABLED",
		DailyBudget:   sch.Template.DailyBudget,
		TargetingType: sch.Template.TargetingType,
	})

	entry := &execlog.ExecutionLog{
		RuleID:     sch.ID,
		RuleSource: execlog.SourceSchedule,
		RunID:      runID,
		RunAt:      time.Now(),
	}
	switch {
	case amazon.IsDuplicate(err):
		entry.Status = execlog.StatusNoAction
		entry.Summary = fmt.Sprintf("campaign %q already exists", name)
	case err != nil:
		entry.Status = execlog.StatusFailure
		entry.Summary = fmt.Sprintf("creating campaign %q: %v", name, err)
	default:
		entry.Status = execlog.StatusSuccess
		entry.Summary = fmt.Sprintf("created campaign %q", name)
		entry.Details = bson.M{"campaign_id": campaignID}
	}
	if err := s.Logs.Append(ctx, entry); err != nil {
		log.Error("failed to append execution log", zap.Error(err))
	}
}
