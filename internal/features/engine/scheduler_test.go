package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"adpilot/internal/features/rule"
	"adpilot/internal/features/schedule"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestIsRuleDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	hour9 := 9
	hour14 := 14
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name string
		r    rule.AutomationRule
		want bool
	}{
		{
			name: "Minute rule past its interval",
			r: rule.AutomationRule{
				LastRunAt: ago(45 * time.Minute),
				Config:    rule.RuleConfig{Frequency: rule.Frequency{Unit: rule.FrequencyMinutes, Value: 30}},
			},
			want: true,
		},
		{
			name: "Minute rule inside its interval",
			r: rule.AutomationRule{
				LastRunAt: ago(10 * time.Minute),
				Config:    rule.RuleConfig{Frequency: rule.Frequency{Unit: rule.FrequencyMinutes, Value: 30}},
			},
			want: false,
		},
		{
			name: "Never-run rule measures from creation",
			r: rule.AutomationRule{
				CreatedAt: now.Add(-2 * time.Hour),
				Config:    rule.RuleConfig{Frequency: rule.Frequency{Unit: rule.FrequencyHours, Value: 1}},
			},
			want: true,
		},
		{
			name: "Daily rule due inside its start hour",
			r: rule.AutomationRule{
				LastRunAt: ago(25 * time.Hour),
				Config:    rule.RuleConfig{Frequency: rule.Frequency{Unit: rule.FrequencyDays, Value: 1, StartHour: &hour9}},
			},
			want: true,
		},
		{
			name: "Daily rule elapsed but outside its start hour",
			r: rule.AutomationRule{
				LastRunAt: ago(25 * time.Hour),
				Config:    rule.RuleConfig{Frequency: rule.Frequency{Unit: rule.FrequencyDays, Value: 1, StartHour: &hour14}},
			},
			want: false,
		},
		{
			name: "Weekly rule not yet elapsed",
			r: rule.AutomationRule{
				LastRunAt: ago(3 * 24 * time.Hour),
				Config:    rule.RuleConfig{Frequency: rule.Frequency{Unit: rule.FrequencyWeeks, Value: 1, StartHour: &hour9}},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRuleDue(&tt.r, now); got != tt.want {
				t.Errorf("IsRuleDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLessNullsFirst(t *testing.T) {
	earlier := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	tests := []struct {
		name string
		a, b *time.Time
		want bool
	}{
		{"Nil before set", nil, &earlier, true},
		{"Set after nil", &earlier, nil, false},
		{"Both nil", nil, nil, false},
		{"Earlier before later", &earlier, &later, true},
		{"Later not before earlier", &later, &earlier, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lessNullsFirst(tt.a, tt.b); got != tt.want {
				t.Errorf("lessNullsFirst() = %v, want %v", got, tt.want)
			}
		})
	}
}

// blockingRuleRepo stalls ListActive until released so a second tick can
// be fired while the first is still inside the permit.
type blockingRuleRepo struct {
	rule.RuleRepository

	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRuleRepo) ListActive(ctx context.Context) ([]rule.AutomationRule, error) {
	r.mu.Lock()
	r.calls++
	first := r.calls == 1
	r.mu.Unlock()
	if first {
		close(r.entered)
		<-r.release
	}
	return nil, nil
}

func (r *blockingRuleRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type emptyScheduleRepo struct{}

func (emptyScheduleRepo) ListActive(ctx context.Context) ([]schedule.CampaignSchedule, error) {
	return nil, nil
}

func (emptyScheduleRepo) StampLastRun(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return nil
}

func TestTickSkipsWhileRunning(t *testing.T) {
	repo := &blockingRuleRepo{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewScheduler(&Service{Logger: zap.NewNop()}, repo, emptyScheduleRepo{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		s.Tick(context.Background())
		close(done)
	}()

	// Wait until the first tick holds the permit, then fire a second.
	<-repo.entered
	s.Tick(context.Background())
	if got := repo.callCount(); got != 1 {
		t.Errorf("overlapping tick ran: %d rule loads, want 1", got)
	}

	close(repo.release)
	<-done

	// Permit released: the next tick runs normally.
	s.Tick(context.Background())
	if got := repo.callCount(); got != 2 {
		t.Errorf("tick after release did not run: %d rule loads, want 2", got)
	}
}
