package engine

import (
	"testing"

	"adpilot/internal/features/rule"
)

func f(v float64) *float64 { return &v }

func TestNewBid(t *testing.T) {
	tests := []struct {
		name        string
		current     float64
		act         rule.BidAction
		want        float64
		wantChanged bool
	}{
		{
			name:        "Percent increase rounds up to the cent",
			current:     1.00,
			act:         rule.BidAction{Percent: f(10.5)},
			want:        1.11, // 1.105 ceiled
			wantChanged: true,
		},
		{
			name:        "Percent decrease rounds down to the cent",
			current:     1.00,
			act:         rule.BidAction{Percent: f(-10.5)},
			want:        0.89, // 0.895 floored
			wantChanged: true,
		},
		{
			name:        "Flat delta increase",
			current:     0.50,
			act:         rule.BidAction{Delta: f(0.25)},
			want:        0.75,
			wantChanged: true,
		},
		{
			name:        "Decrease never drops below the platform floor",
			current:     0.05,
			act:         rule.BidAction{Percent: f(-90)},
			want:        0.02,
			wantChanged: true,
		},
		{
			name:        "Max clamp applies after rounding",
			current:     1.00,
			act:         rule.BidAction{Percent: f(50), MaxBid: f(1.20)},
			want:        1.20,
			wantChanged: true,
		},
		{
			name:        "Min clamp applies after rounding",
			current:     1.00,
			act:         rule.BidAction{Percent: f(-50), MinBid: f(0.75)},
			want:        0.75,
			wantChanged: true,
		},
		{
			name:        "Clamped result equal to current is a no-op",
			current:     1.20,
			act:         rule.BidAction{Percent: f(50), MaxBid: f(1.20)},
			want:        1.20,
			wantChanged: false,
		},
		{
			name:        "Zero percent is a no-op",
			current:     0.80,
			act:         rule.BidAction{Percent: f(0)},
			want:        0.80,
			wantChanged: false,
		},
		{
			name:        "Exact cent increase does not over-round",
			current:     1.00,
			act:         rule.BidAction{Percent: f(10)},
			want:        1.10,
			wantChanged: true,
		},
		{
			name:        "Exact cent decrease does not under-round",
			current:     1.00,
			act:         rule.BidAction{Percent: f(-10)},
			want:        0.90,
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := NewBid(tt.current, tt.act)
			if got != tt.want {
				t.Errorf("NewBid() = %v, want %v", got, tt.want)
			}
			if changed != tt.wantChanged {
				t.Errorf("NewBid() changed = %v, want %v", changed, tt.wantChanged)
			}
		})
	}
}
