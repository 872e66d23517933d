package budget

import (
	"context"
	"time"

	"adpilot/internal/amazon"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ReversionService is the nightly job restoring boosted campaign budgets
// to their pre-override values.
type ReversionService interface {
	RevertForDate(ctx context.Context, date time.Time) error
}

type ReversionServiceImpl struct {
	Repo   OverrideRepository
	Ads    amazon.API
	Logger *zap.Logger
}

func NewReversionService(repo OverrideRepository, ads amazon.API, logger *zap.Logger) ReversionService {
	return &ReversionServiceImpl{Repo: repo, Ads: ads, Logger: logger}
}

// RevertForDate restores original budgets for every unreverted override
// of the given date. Only platform-acknowledged restores are stamped;
// partial failures stay unreverted and retry on the next nightly run.
// Idempotent: the original budget never changes, and already-stamped
// records are never loaded again.
func (s *ReversionServiceImpl) RevertForDate(ctx context.Context, date time.Time) error {
	records, err := s.Repo.ListUnreverted(ctx, DateKey(date))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	// One batched restore call per advertising account.
	byProfile := make(map[string][]OverrideRecord)
	for _, rec := range records {
		byProfile[rec.ProfileID] = append(byProfile[rec.ProfileID], rec)
	}

	for profileID, group := range byProfile {
		updates := make([]amazon.BudgetUpdate, 0, len(group))
		byCampaign := make(map[string]OverrideRecord, len(group))
		for _, rec := range group {
			updates = append(updates, amazon.BudgetUpdate{
				CampaignID:  rec.CampaignID,
				DailyBudget: rec.OriginalBudget,
			})
			byCampaign[rec.CampaignID] = rec
		}

		result, err := s.Ads.UpdateCampaignBudgets(ctx, updates)
		if err != nil {
			s.Logger.Error("budget reversion batch failed",
				zap.String("profileId", profileID), zap.Error(err))
			continue
		}

		var revertedIDs []primitive.ObjectID
		for _, campaignID := range result.Success {
			if rec, ok := byCampaign[campaignID]; ok {
				revertedIDs = append(revertedIDs, rec.ID)
			}
		}
		for _, failure := range result.Failures {
			s.Logger.Warn("budget restore rejected, will retry tomorrow",
				zap.String("campaignId", failure.ID),
				zap.String("code", failure.Code))
		}

		if err := s.Repo.MarkReverted(ctx, revertedIDs, time.Now()); err != nil {
			s.Logger.Error("failed to stamp reverted overrides",
				zap.String("profileId", profileID), zap.Error(err))
		}
	}
	return nil
}
