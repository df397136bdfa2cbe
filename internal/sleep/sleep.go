package sleep

import (
	"time"

	"github.com/dukerupert/petpals/internal/model"
)

const (
	// Duration is how long a pet rests after its third interaction.
	Duration = 8 * time.Hour

	// ClicksToSleep interactions put a pet to sleep.
	ClicksToSleep = 3

	// HeartFallback resets the heart counters of a pet that never sleeps.
	HeartFallback = 24 * time.Hour
)

type Outcome string

const (
	OutcomeAccepted      Outcome = "accepted"
	OutcomeFellAsleep    Outcome = "fell_asleep"
	OutcomeGated         Outcome = "gated"
	OutcomeAlreadyAsleep Outcome = "already_asleep"
)

// Allowed is the interaction gate: pets that started the period sad must
// finish their period quest first.
func Allowed(sadAtStart, questDone bool) bool {
	return !sadAtStart || questDone
}

// Interact counts one click. The third click puts the pet to sleep until
// now+Duration and moves the heart reset deadline to the wake time.
func Interact(s *model.SleepState, progress *model.PetProgress, allowed bool, now int64) Outcome {
	if s.Asleep() {
		return OutcomeAlreadyAsleep
	}
	if !allowed {
		return OutcomeGated
	}

	s.Clicks++
	if s.Clicks < ClicksToSleep {
		return OutcomeAccepted
	}

	s.Clicks = ClicksToSleep
	s.Since = now
	s.Until = now + Duration.Milliseconds()
	s.LastSleptAt = now
	progress.SleepCompletedToday = true
	progress.NextHeartResetAt = s.Until
	return OutcomeFellAsleep
}

// TickResult reports which lazy transitions Tick performed.
type TickResult struct {
	Woke       bool
	HeartReset bool
}

func (r TickResult) Changed() bool { return r.Woke || r.HeartReset }

// Tick wakes a pet whose rest window has passed and restores its hungry
// baseline. An awake pet whose 24h fallback deadline passed is reset too.
func Tick(s *model.SleepState, progress *model.PetProgress, now int64) TickResult {
	if s.Asleep() {
		if now < s.Until {
			return TickResult{}
		}
		s.Clicks = 0
		s.Since = 0
		s.Until = 0
		resetHearts(progress, now)
		return TickResult{Woke: true, HeartReset: true}
	}

	if progress.NextHeartResetAt != 0 && now >= progress.NextHeartResetAt {
		resetHearts(progress, now)
		return TickResult{HeartReset: true}
	}
	return TickResult{}
}

// EnsureHeartDeadline starts the fallback timer on first activity.
func EnsureHeartDeadline(progress *model.PetProgress, now int64) bool {
	if progress.NextHeartResetAt != 0 {
		return false
	}
	progress.NextHeartResetAt = now + HeartFallback.Milliseconds()
	return true
}

func resetHearts(progress *model.PetProgress, now int64) {
	progress.FeedingCount = 0
	progress.AdventureCoinsToday = 0
	progress.SleepCompletedToday = false
	progress.NextHeartResetAt = now + HeartFallback.Milliseconds()
}

// Remaining is the rest time left, clamped at zero.
func Remaining(s model.SleepState, now int64) int64 {
	if !s.Asleep() || now >= s.Until {
		return 0
	}
	return s.Until - now
}

// State is the UI-facing view of a pet's sleep cycle.
type State struct {
	Asleep       bool  `json:"asleep"`
	Clicks       int   `json:"clicks"`
	ClicksNeeded int   `json:"clicks_needed"`
	Since        int64 `json:"since,omitempty"`
	Until        int64 `json:"until,omitempty"`
	RemainingMs  int64 `json:"remaining_ms"`
}

func StateOf(s model.SleepState, now int64) State {
	needed := ClicksToSleep - s.Clicks
	if s.Asleep() || needed < 0 {
		needed = 0
	}
	return State{
		Asleep:       s.Asleep(),
		Clicks:       s.Clicks,
		ClicksNeeded: needed,
		Since:        s.Since,
		Until:        s.Until,
		RemainingMs:  Remaining(s, now),
	}
}
