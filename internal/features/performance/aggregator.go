package performance

import "time"

// Totals is the windowed sum of daily buckets.
type Totals struct {
	Impressions int64
	Clicks      int64
	Orders      int64
	Spend       float64
	Sales       float64
}

// Window sums an entity's daily buckets over the condition's time window.
// days is the lookback in days ending yesterday; days == 0 is the "today"
// sentinel and sums only the current date.
func Window(daily []DailyData, days int, now time.Time) Totals {
	today := truncateDay(now)

	var from, to time.Time
	if days == 0 {
		from, to = today, today
	} else {
		to = today
		from = today.AddDate(0, 0, -days)
	}

	var t Totals
	for _, d := range daily {
		day := truncateDay(d.Date)
		if day.Before(from) || day.After(to) {
			continue
		}
		if days != 0 && day.Equal(today) {
			// Multi-day windows end yesterday; same-day data belongs
			// only to the "today" sentinel.
			continue
		}
		t.Impressions += d.Impressions
		t.Clicks += d.Clicks
		t.Orders += d.Orders
		t.Spend += d.Spend
		t.Sales += d.Sales
	}
	return t
}

// ACOS is spend over sales. A zero denominator yields 0, never NaN.
func (t Totals) ACOS() float64 { return ratio(t.Spend, t.Sales) }

// ROAS is sales over spend.
func (t Totals) ROAS() float64 { return ratio(t.Sales, t.Spend) }

// CTR is clicks over impressions.
func (t Totals) CTR() float64 { return ratio(float64(t.Clicks), float64(t.Impressions)) }

// CVR is orders over clicks.
func (t Totals) CVR() float64 { return ratio(float64(t.Orders), float64(t.Clicks)) }

// CPC is spend over clicks.
func (t Totals) CPC() float64 { return ratio(t.Spend, float64(t.Clicks)) }

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
