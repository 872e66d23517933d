package performance

import (
	"testing"
	"time"
)

var aggNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func day(n int) time.Time { return aggNow.AddDate(0, 0, -n) }

func TestWindowMultiDayExcludesToday(t *testing.T) {
	daily := []DailyData{
		{Date: day(0), Spend: 100, Clicks: 50}, // today: must not leak in
		{Date: day(1), Spend: 10, Clicks: 5},
		{Date: day(3), Spend: 20, Clicks: 10},
		{Date: day(7), Spend: 30, Clicks: 15},
		{Date: day(8), Spend: 40, Clicks: 20}, // outside a 7-day window
	}

	got := Window(daily, 7, aggNow)
	if got.Spend != 60 {
		t.Errorf("Spend = %v, want 60", got.Spend)
	}
	if got.Clicks != 30 {
		t.Errorf("Clicks = %v, want 30", got.Clicks)
	}
}

func TestWindowTodaySentinel(t *testing.T) {
	daily := []DailyData{
		{Date: day(0), Spend: 100, Sales: 400},
		{Date: day(1), Spend: 999, Sales: 999},
	}

	got := Window(daily, 0, aggNow)
	if got.Spend != 100 || got.Sales != 400 {
		t.Errorf("today window = %+v, want only same-day bucket", got)
	}
}

func TestWindowIgnoresTimeOfDay(t *testing.T) {
	// Buckets stamped at arbitrary hours still land on their calendar day.
	daily := []DailyData{
		{Date: day(1).Add(23 * time.Hour), Spend: 5},
		{Date: day(1).Add(2 * time.Minute), Spend: 7},
	}

	got := Window(daily, 1, aggNow)
	if got.Spend != 12 {
		t.Errorf("Spend = %v, want 12", got.Spend)
	}
}

func TestRatiosZeroDenominator(t *testing.T) {
	var empty Totals
	if got := empty.ACOS(); got != 0 {
		t.Errorf("ACOS with zero sales = %v, want 0", got)
	}
	if got := empty.ROAS(); got != 0 {
		t.Errorf("ROAS with zero spend = %v, want 0", got)
	}
	if got := empty.CTR(); got != 0 {
		t.Errorf("CTR with zero impressions = %v, want 0", got)
	}
	if got := empty.CVR(); got != 0 {
		t.Errorf("CVR with zero clicks = %v, want 0", got)
	}
	if got := empty.CPC(); got != 0 {
		t.Errorf("CPC with zero clicks = %v, want 0", got)
	}
}

func TestRatios(t *testing.T) {
	tot := Totals{Impressions: 1000, Clicks: 50, Orders: 5, Spend: 30, Sales: 120}
	if got := tot.ACOS(); got != 0.25 {
		t.Errorf("ACOS = %v, want 0.25", got)
	}
	if got := tot.ROAS(); got != 4 {
		t.Errorf("ROAS = %v, want 4", got)
	}
	if got := tot.CTR(); got != 0.05 {
		t.Errorf("CTR = %v, want 0.05", got)
	}
	if got := tot.CVR(); got != 0.1 {
		t.Errorf("CVR = %v, want 0.1", got)
	}
	if got := tot.CPC(); got != 0.6 {
		t.Errorf("CPC = %v, want 0.6", got)
	}
}
