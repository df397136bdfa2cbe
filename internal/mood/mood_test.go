package mood

import (
	"testing"

	"github.com/dukerupert/petpals/internal/model"
)

func TestDerive(t *testing.T) {
	p := &model.MoodPeriod{
		AnchorAt:           1000,
		NextResetAt:        1000 + 8*hour,
		SadPetIDs:          []string{"sad"},
		EngagementBaseline: map[string]int64{"sad": 100, "calm": 20},
	}

	tests := []struct {
		name        string
		petID       string
		totalCoins  int64
		lastSleptAt int64
		want        Mood
	}{
		{"sad at start", "sad", 100, 0, Sad},
		{"sad but earned 49", "sad", 149, 0, Sad},
		{"sad then earned 50", "sad", 150, 0, Happy},
		{"slept before anchor", "sad", 100, 999, Sad},
		{"slept at anchor", "sad", 100, 1000, VeryHappy},
		{"neutral", "calm", 20, 0, Neutral},
		{"neutral then earned", "calm", 70, 0, Happy},
		{"adopted mid-period", "new", 0, 0, Neutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive(p, tt.petID, tt.totalCoins, tt.lastSleptAt); got != tt.want {
				t.Errorf("Derive = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	p := &model.MoodPeriod{
		NextResetAt:        500,
		SadPetIDs:          []string{"a"},
		EngagementBaseline: map[string]int64{"a": 10},
	}
	s := StatusOf(p, "a", 40, 0)
	if s.Mood != Sad || !s.SadAtStart || s.QuestDone {
		t.Errorf("status = %+v", s)
	}
	if s.CoinsThisPeriod != 30 || s.CoinsNeeded != 20 {
		t.Errorf("coins this period/needed = %d/%d, want 30/20", s.CoinsThisPeriod, s.CoinsNeeded)
	}
	if s.PeriodEndsAt != 500 {
		t.Errorf("period ends at = %d, want 500", s.PeriodEndsAt)
	}
}

func TestNilPeriod(t *testing.T) {
	if got := Derive(nil, "a", 0, 0); got != Neutral {
		t.Errorf("Derive(nil) = %q, want neutral", got)
	}
}
