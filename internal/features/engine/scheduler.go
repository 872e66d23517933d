package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"adpilot/internal/features/rule"
	"adpilot/internal/features/schedule"

	"go.uber.org/zap"
)

// Scheduler selects which due rules run each tick. A single-permit
// semaphore guarantees at most one tick mutates at a time: an overlapping
// tick is skipped outright, never queued.
type Scheduler struct {
	service   *Service
	rules     rule.RuleRepository
	schedules schedule.ScheduleRepository
	logger    *zap.Logger

	permit chan struct{}
}

func NewScheduler(service *Service, rules rule.RuleRepository, schedules schedule.ScheduleRepository, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		service:   service,
		rules:     rules,
		schedules: schedules,
		logger:    logger,
		permit:    make(chan struct{}, 1),
	}
}

// Tick runs one scheduling pass. Called every minute by cron.
func (s *Scheduler) Tick(ctx context.Context) {
	select {
	case s.permit <- struct{}{}:
	default:
		s.logger.Debug("tick skipped, previous tick still running")
		return
	}
	// Released in a guaranteed path so a failing rule can never leak
	// the permit.
	defer func() { <-s.permit }()

	s.runTick(ctx, time.Now())
}

func (s *Scheduler) runTick(ctx context.Context, now time.Time) {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to load active rules", zap.Error(err))
		return
	}
	schedules, err := s.schedules.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to load campaign schedules", zap.Error(err))
		schedules = nil
	}

	var highPriority []rule.AutomationRule
	var normal []runnable
	for i := range rules {
		r := &rules[i]
		if !IsRuleDue(r, now) {
			continue
		}
		if r.RuleType == rule.RuleTypeBudgetAcceleration {
			highPriority = append(highPriority, *r)
		} else {
			normal = append(normal, runnable{lastRunAt: r.LastRunAt, rule: r})
		}
	}
	for i := range schedules {
		sch := &schedules[i]
		if !IsScheduleDue(sch, now) {
			continue
		}
		normal = append(normal, runnable{lastRunAt: sch.LastRunAt, schedule: sch})
	}

	// High-priority lane: budget acceleration runs concurrently and
	// unconditionally.
	var wg sync.WaitGroup
	for i := range highPriority {
		r := highPriority[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.service.ProcessRule(ctx, &r)
		}()
	}
	wg.Wait()

	// Normal lane: exactly one per tick, least recently run first.
	// This bounds mutation throughput while guaranteeing eventual
	// fairness across many rules.
	if len(normal) == 0 {
		return
	}
	sort.SliceStable(normal, func(i, j int) bool {
		return lessNullsFirst(normal[i].lastRunAt, normal[j].lastRunAt)
	})
	next := normal[0]
	if next.rule != nil {
		s.service.ProcessRule(ctx, next.rule)
	} else {
		s.service.ProcessSchedule(ctx, next.schedule)
	}
}

type runnable struct {
	lastRunAt *time.Time
	rule      *rule.AutomationRule
	schedule  *schedule.CampaignSchedule
}

func lessNullsFirst(a, b *time.Time) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.Before(*b)
}

// IsRuleDue reports whether enough time elapsed since the rule last ran
// (or since creation, if never run). Day/week rules additionally only
// fire inside their configured start hour.
func IsRuleDue(r *rule.AutomationRule, now time.Time) bool {
	since := r.CreatedAt
	if r.LastRunAt != nil {
		since = *r.LastRunAt
	}
	if now.Sub(since) < r.Config.Frequency.Duration() {
		return false
	}
	freq := r.Config.Frequency
	if (freq.Unit == rule.FrequencyDays || freq.Unit == rule.FrequencyWeeks) && freq.StartHour != nil {
		if now.Hour() != *freq.StartHour {
			return false
		}
	}
	return true
}

// IsScheduleDue is the campaign-schedule variant of IsRuleDue.
func IsScheduleDue(sch *schedule.CampaignSchedule, now time.Time) bool {
	since := sch.CreatedAt
	if sch.LastRunAt != nil {
		since = *sch.LastRunAt
	}
	days := sch.FrequencyDays
	if days <= 0 {
		days = 1
	}
	if now.Sub(since) < time.Duration(days)*24*time.Hour {
		return false
	}
	if sch.StartHour != nil && now.Hour() != *sch.StartHour {
		return false
	}
	return true
}
