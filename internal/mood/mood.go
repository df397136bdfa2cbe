package mood

import "github.com/dukerupert/petpals/internal/model"

type Mood string

const (
	VeryHappy Mood = "very_happy"
	Happy     Mood = "happy"
	Sad       Mood = "sad"
	Neutral   Mood = "neutral"
)

// SadAtPeriodStart is a pure lookup into the period's sad set.
func SadAtPeriodStart(p *model.MoodPeriod, petID string) bool {
	return p.IsSad(petID)
}

// CoinsThisPeriod is what the pet has earned since the period's anchor.
func CoinsThisPeriod(p *model.MoodPeriod, petID string, totalCoins int64) int64 {
	earned := totalCoins - p.Baseline(petID)
	if earned < 0 {
		return 0
	}
	return earned
}

// QuestDone reports whether the pet earned enough within this period.
func QuestDone(p *model.MoodPeriod, petID string, totalCoins int64) bool {
	return CoinsThisPeriod(p, petID, totalCoins) >= QuestDoneCoins
}

// SleptSinceAnchor reports whether the pet completed a sleep at or after the
// period anchor. A sleep-anchored period starts at that sleep.
func SleptSinceAnchor(p *model.MoodPeriod, lastSleptAt int64) bool {
	return p != nil && lastSleptAt != 0 && lastSleptAt >= p.AnchorAt
}

// Derive computes a pet's mood. It is recomputed on every read and never
// stored.
func Derive(p *model.MoodPeriod, petID string, totalCoins, lastSleptAt int64) Mood {
	switch {
	case SleptSinceAnchor(p, lastSleptAt):
		return VeryHappy
	case QuestDone(p, petID, totalCoins):
		return Happy
	case SadAtPeriodStart(p, petID):
		return Sad
	default:
		return Neutral
	}
}

// Status is the UI-facing mood view for one pet.
type Status struct {
	Mood            Mood  `json:"mood"`
	SadAtStart      bool  `json:"sad_at_start"`
	QuestDone       bool  `json:"quest_done"`
	CoinsThisPeriod int64 `json:"coins_this_period"`
	CoinsNeeded     int64 `json:"coins_needed"`
	PeriodEndsAt    int64 `json:"period_ends_at"`
}

func StatusOf(p *model.MoodPeriod, petID string, totalCoins, lastSleptAt int64) Status {
	earned := CoinsThisPeriod(p, petID, totalCoins)
	needed := QuestDoneCoins - earned
	if needed < 0 {
		needed = 0
	}
	var ends int64
	if p != nil {
		ends = p.NextResetAt
	}
	return Status{
		Mood:            Derive(p, petID, totalCoins, lastSleptAt),
		SadAtStart:      SadAtPeriodStart(p, petID),
		QuestDone:       earned >= QuestDoneCoins,
		CoinsThisPeriod: earned,
		CoinsNeeded:     needed,
		PeriodEndsAt:    ends,
	}
}
