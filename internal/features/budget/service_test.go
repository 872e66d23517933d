package budget

import (
	"context"
	"testing"
	"time"

	"adpilot/internal/amazon"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeOverrideRepo struct {
	records  []OverrideRecord
	reverted map[primitive.ObjectID]bool
}

func (f *fakeOverrideRepo) InsertIfAbsent(ctx context.Context, rec *OverrideRecord) (bool, error) {
	f.records = append(f.records, *rec)
	return true, nil
}

func (f *fakeOverrideRepo) ListUnreverted(ctx context.Context, overrideDate string) ([]OverrideRecord, error) {
	var out []OverrideRecord
	for _, rec := range f.records {
		if rec.OverrideDate == overrideDate && !f.reverted[rec.ID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeOverrideRepo) MarkReverted(ctx context.Context, ids []primitive.ObjectID, at time.Time) error {
	if f.reverted == nil {
		f.reverted = make(map[primitive.ObjectID]bool)
	}
	for _, id := range ids {
		f.reverted[id] = true
	}
	return nil
}

// fakeAds answers budget updates from a script; everything else is unused
// by the reversion service.
type fakeAds struct {
	amazon.API

	budgetCalls [][]amazon.BudgetUpdate
	respond     func(updates []amazon.BudgetUpdate) (amazon.BatchResult, error)
}

func (f *fakeAds) UpdateCampaignBudgets(ctx context.Context, updates []amazon.BudgetUpdate) (amazon.BatchResult, error) {
	f.budgetCalls = append(f.budgetCalls, updates)
	return f.respond(updates)
}

func TestRevertForDatePartialFailure(t *testing.T) {
	date := time.Date(2026, 3, 10, 23, 55, 0, 0, time.UTC)
	repo := &fakeOverrideRepo{
		records: []OverrideRecord{
			{ID: primitive.NewObjectID(), CampaignID: "c1", ProfileID: "p1", OriginalBudget: 50, OverrideDate: DateKey(date)},
			{ID: primitive.NewObjectID(), CampaignID: "c2", ProfileID: "p1", OriginalBudget: 80, OverrideDate: DateKey(date)},
		},
	}
	ads := &fakeAds{
		respond: func(updates []amazon.BudgetUpdate) (amazon.BatchResult, error) {
			// c1 restored, c2 rejected.
			return amazon.BatchResult{
				Success:  []string{"c1"},
				Failures: []amazon.BatchError{{ID: "c2", Code: "THROTTLED"}},
			}, nil
		},
	}

	svc := NewReversionService(repo, ads, zap.NewNop())
	if err := svc.RevertForDate(context.Background(), date); err != nil {
		t.Fatalf("RevertForDate() = %v", err)
	}

	remaining, _ := repo.ListUnreverted(context.Background(), DateKey(date))
	if len(remaining) != 1 || remaining[0].CampaignID != "c2" {
		t.Fatalf("want only c2 left unreverted, got %+v", remaining)
	}

	// The next night's run retries only the straggler, with the same
	// original budget.
	ads.respond = func(updates []amazon.BudgetUpdate) (amazon.BatchResult, error) {
		if len(updates) != 1 || updates[0].CampaignID != "c2" || updates[0].DailyBudget != 80 {
			t.Errorf("retry updates = %+v, want only c2 at 80", updates)
		}
		return amazon.BatchResult{Success: []string{"c2"}}, nil
	}
	if err := svc.RevertForDate(context.Background(), date); err != nil {
		t.Fatalf("RevertForDate() retry = %v", err)
	}

	remaining, _ = repo.ListUnreverted(context.Background(), DateKey(date))
	if len(remaining) != 0 {
		t.Errorf("want no unreverted records, got %+v", remaining)
	}
}

func TestRevertForDateIdempotentWhenNothingPending(t *testing.T) {
	repo := &fakeOverrideRepo{}
	ads := &fakeAds{
		respond: func(updates []amazon.BudgetUpdate) (amazon.BatchResult, error) {
			t.Error("no API call expected with nothing to revert")
			return amazon.BatchResult{}, nil
		},
	}

	svc := NewReversionService(repo, ads, zap.NewNop())
	if err := svc.RevertForDate(context.Background(), time.Now()); err != nil {
		t.Fatalf("RevertForDate() = %v", err)
	}
	if len(ads.budgetCalls) != 0 {
		t.Errorf("budget calls = %d, want 0", len(ads.budgetCalls))
	}
}

func TestRevertForDateGroupsByProfile(t *testing.T) {
	date := time.Date(2026, 3, 10, 23, 55, 0, 0, time.UTC)
	repo := &fakeOverrideRepo{
		records: []OverrideRecord{
			{ID: primitive.NewObjectID(), CampaignID: "c1", ProfileID: "p1", OriginalBudget: 50, OverrideDate: DateKey(date)},
			{ID: primitive.NewObjectID(), CampaignID: "c2", ProfileID: "p2", OriginalBudget: 60, OverrideDate: DateKey(date)},
		},
	}
	ads := &fakeAds{
		respond: func(updates []amazon.BudgetUpdate) (amazon.BatchResult, error) {
			ids := make([]string, 0, len(updates))
			for _, u := range updates {
				ids = append(ids, u.CampaignID)
			}
			return amazon.BatchResult{Success: ids}, nil
		},
	}

	svc := NewReversionService(repo, ads, zap.NewNop())
	if err := svc.RevertForDate(context.Background(), date); err != nil {
		t.Fatalf("RevertForDate() = %v", err)
	}
	if len(ads.budgetCalls) != 2 {
		t.Errorf("batched calls = %d, want one per profile", len(ads.budgetCalls))
	}
}
