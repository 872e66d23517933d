package performance

import "time"

// PartitionDates assigns every date of the lookback window to exactly one
// source: dates the authoritative report already materialized come from
// the report, the rest fall back to the near-real-time stream. Pure so
// the split is testable without either store.
func PartitionDates(window []time.Time, reportHas map[time.Time]bool) (reportDates, streamDates []time.Time) {
	for _, d := range window {
		day := truncateDay(d)
		if reportHas[day] {
			reportDates = append(reportDates, day)
		} else {
			streamDates = append(streamDates, day)
		}
	}
	return reportDates, streamDates
}

// WindowDates enumerates the dates a rule's lookback covers: lookback
// days ending yesterday, plus today when any condition uses the "today"
// sentinel.
func WindowDates(now time.Time, lookbackDays int, includeToday bool) []time.Time {
	today := truncateDay(now)
	var dates []time.Time
	for i := lookbackDays; i >= 1; i-- {
		dates = append(dates, today.AddDate(0, 0, -i))
	}
	if includeToday {
		dates = append(dates, today)
	}
	return dates
}

// mergeRows folds rows from both sources into per-entity daily series.
// Rows are keyed by entity identity; buckets for the same (entity, date)
// never collide because every date is sourced exactly once.
func mergeRows(dst map[string]*Entity, rows []Row) {
	for _, r := range rows {
		e := &Entity{
			ID:         r.EntityID,
			Type:       r.EntityType,
			Text:       r.Text,
			CampaignID: r.CampaignID,
			AdGroupID:  r.AdGroupID,
			MatchType:  r.MatchType,
			SourceASIN: r.SourceASIN,
		}
		key := e.Key()
		existing, ok := dst[key]
		if !ok {
			dst[key] = e
			existing = e
		} else if existing.SourceASIN == "" {
			existing.SourceASIN = r.SourceASIN
		}
		existing.Daily = append(existing.Daily, DailyData{
			Date:        r.Date,
			Impressions: r.Impressions,
			Clicks:      r.Clicks,
			Orders:      r.Orders,
			Spend:       r.Spend,
			Sales:       r.Sales,
		})
	}
}
