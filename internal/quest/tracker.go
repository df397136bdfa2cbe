package quest

import (
	"fmt"
	"time"

	"github.com/dukerupert/petpals/internal/clock"
	"github.com/dukerupert/petpals/internal/model"
)

const DefaultTarget = 5

type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseCooldown   Phase = "cooldown"
)

// PhaseOf reports the stored phase. Completion moves straight into cooldown,
// so there is no separately stored completed phase.
func PhaseOf(q model.QuestState) Phase {
	if q.CooldownUntil != 0 {
		return PhaseCooldown
	}
	return PhaseInProgress
}

// Tracker applies the rotation rules to a pet's QuestState.
type Tracker struct {
	cooldown time.Duration
	target   int
}

func NewTracker(cooldown time.Duration, target int) *Tracker {
	if target <= 0 {
		target = DefaultTarget
	}
	if cooldown < 0 {
		cooldown = 0
	}
	return &Tracker{cooldown: cooldown, target: target}
}

// Start returns the quest state for a pet that has never had an activity.
func (t *Tracker) Start() model.QuestState {
	return model.QuestState{Activity: Sequence[0], Target: t.target}
}

// Advance performs the lazy Cooldown -> InProgress transition once the
// cooldown has elapsed. It reports whether q changed.
func (t *Tracker) Advance(q *model.QuestState, now int64) bool {
	if q.Activity == "" {
		*q = t.Start()
		return true
	}
	if q.CooldownUntil == 0 || now < q.CooldownUntil {
		return false
	}
	q.Activity = Next(q.Activity)
	q.Progress = 0
	q.Target = t.target
	q.CompletedAt = 0
	q.CooldownUntil = 0
	return true
}

// Result describes what RecordProgress did.
type Result struct {
	Applied   bool
	Completed bool
}

// RecordProgress adds delta to the pet's current activity. Progress tagged
// with any other activity, with Story, or arriving during cooldown is ignored.
func (t *Tracker) RecordProgress(q *model.QuestState, activity model.Activity, delta int, now int64) (Result, error) {
	if !Valid(activity) {
		return Result{}, fmt.Errorf("record progress for %q: %w", activity, ErrInvalidActivity)
	}
	t.Advance(q, now)

	if activity == Story || delta <= 0 {
		return Result{}, nil
	}
	if PhaseOf(*q) != PhaseInProgress || q.Activity != activity {
		return Result{}, nil
	}

	target := q.Target
	if target <= 0 {
		target = t.target
		q.Target = target
	}
	q.Progress += delta
	if q.Progress < target {
		return Result{Applied: true}, nil
	}

	q.Progress = target
	q.CompletedAt = now
	q.LastCompletedActivity = activity
	q.CooldownUntil = now + t.cooldown.Milliseconds()
	return Result{Applied: true, Completed: true}, nil
}

// Display is the UI-facing view of a quest.
type Display struct {
	Activity          model.Activity `json:"activity"`
	Progress          int            `json:"progress"`
	Target            int            `json:"target"`
	Completed         bool           `json:"completed"`
	CooldownUntil     int64          `json:"cooldown_until,omitempty"`
	CooldownRemaining int64          `json:"cooldown_remaining_ms"`
	NextActivity      model.Activity `json:"next_activity"`
}

// DisplayOf pins the shown activity to the last completed one while the
// cooldown runs. Callers advance q first.
func DisplayOf(q model.QuestState, now int64) Display {
	if PhaseOf(q) == PhaseCooldown {
		shown := q.LastCompletedActivity
		if shown == "" {
			shown = q.Activity
		}
		remaining := q.CooldownUntil - now
		if remaining < 0 {
			remaining = 0
		}
		return Display{
			Activity:          shown,
			Progress:          q.Target,
			Target:            q.Target,
			Completed:         true,
			CooldownUntil:     q.CooldownUntil,
			CooldownRemaining: remaining,
			NextActivity:      Next(q.Activity),
		}
	}
	return Display{
		Activity:     q.Activity,
		Progress:     q.Progress,
		Target:       q.Target,
		NextActivity: Next(q.Activity),
	}
}

// CompletedOn reports whether the quest was completed on the same local
// calendar day as now.
func CompletedOn(q model.QuestState, now int64, loc *time.Location) bool {
	if q.CompletedAt == 0 {
		return false
	}
	a := clock.Time(q.CompletedAt, loc)
	b := clock.Time(now, loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
