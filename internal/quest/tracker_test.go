package quest

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/petpals/internal/model"
)

const hour = int64(time.Hour / time.Millisecond)

func TestSequenceWraps(t *testing.T) {
	if len(Sequence) != 11 {
		t.Fatalf("sequence length = %d, want 11", len(Sequence))
	}
	if got := Next(House); got != Friend {
		t.Errorf("Next(house) = %q, want friend", got)
	}
	if got := Next(PetCare); got != House {
		t.Errorf("Next(pet-care) = %q, want house", got)
	}
	if got := Next("nope"); got != House {
		t.Errorf("Next(unknown) = %q, want house", got)
	}
}

func TestValid(t *testing.T) {
	for _, a := range Sequence {
		if !Valid(a) {
			t.Errorf("%q should be valid", a)
		}
	}
	if !Valid(Story) {
		t.Error("story should be valid")
	}
	if Valid("skydiving") {
		t.Error("skydiving should not be valid")
	}
}

func TestCompletionCooldownAndRotation(t *testing.T) {
	tr := NewTracker(time.Hour, DefaultTarget)
	q := model.QuestState{Activity: House, Progress: 4, Target: 5}
	now := int64(1_000_000)

	res, err := tr.RecordProgress(&q, House, 1, now)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !res.Completed {
		t.Fatal("expected completion at progress 5")
	}
	if q.CompletedAt != now {
		t.Errorf("completedAt = %d, want %d", q.CompletedAt, now)
	}
	if q.LastCompletedActivity != House {
		t.Errorf("lastCompletedActivity = %q, want house", q.LastCompletedActivity)
	}
	if PhaseOf(q) != PhaseCooldown {
		t.Fatalf("phase = %q, want cooldown", PhaseOf(q))
	}

	// Display stays pinned to house through the cooldown.
	mid := now + hour/2
	if tr.Advance(&q, mid) {
		t.Error("advance during cooldown should be a no-op")
	}
	d := DisplayOf(q, mid)
	if d.Activity != House || !d.Completed || d.Progress != 5 {
		t.Errorf("display during cooldown = %+v", d)
	}
	if d.CooldownRemaining != hour/2 {
		t.Errorf("cooldown remaining = %d, want %d", d.CooldownRemaining, hour/2)
	}

	after := now + hour
	if !tr.Advance(&q, after) {
		t.Fatal("advance after cooldown should change state")
	}
	d = DisplayOf(q, after)
	if d.Activity != Friend || d.Progress != 0 || d.Completed {
		t.Errorf("display after cooldown = %+v, want friend/0", d)
	}
	if q.LastCompletedActivity != House {
		t.Errorf("lastCompletedActivity = %q, want house", q.LastCompletedActivity)
	}
}

func TestRecordProgressIgnoresOtherActivities(t *testing.T) {
	tr := NewTracker(time.Hour, DefaultTarget)
	q := tr.Start()

	tests := []struct {
		name     string
		activity model.Activity
		delta    int
	}{
		{"different activity", Travel, 1},
		{"story", Story, 1},
		{"zero delta", House, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tr.RecordProgress(&q, tt.activity, tt.delta, 10)
			if err != nil {
				t.Fatalf("record: %v", err)
			}
			if res.Applied {
				t.Error("expected progress to be ignored")
			}
			if q.Progress != 0 {
				t.Errorf("progress = %d, want 0", q.Progress)
			}
		})
	}
}

func TestRecordProgressDuringCooldownIgnored(t *testing.T) {
	tr := NewTracker(time.Hour, 1)
	q := tr.Start()

	if _, err := tr.RecordProgress(&q, House, 1, 10); err != nil {
		t.Fatalf("record: %v", err)
	}
	res, err := tr.RecordProgress(&q, House, 1, 20)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if res.Applied {
		t.Error("progress during cooldown should be ignored")
	}
}

func TestRecordProgressInvalidActivity(t *testing.T) {
	tr := NewTracker(time.Hour, DefaultTarget)
	q := tr.Start()

	_, err := tr.RecordProgress(&q, "skydiving", 1, 10)
	if !errors.Is(err, ErrInvalidActivity) {
		t.Fatalf("err = %v, want ErrInvalidActivity", err)
	}
}

func TestAdvanceInitializesEmptyState(t *testing.T) {
	tr := NewTracker(time.Hour, 3)
	var q model.QuestState
	if !tr.Advance(&q, 0) {
		t.Fatal("expected empty state to initialize")
	}
	if q.Activity != House || q.Target != 3 {
		t.Errorf("state = %+v, want house/target 3", q)
	}
}

func TestCompletedOn(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 3, 4, 9, 0, 0, 0, loc)
	q := model.QuestState{CompletedAt: day.UnixMilli()}

	if !CompletedOn(q, day.Add(10*time.Hour).UnixMilli(), loc) {
		t.Error("same day should count")
	}
	if CompletedOn(q, day.Add(20*time.Hour).UnixMilli(), loc) {
		t.Error("next day should not count")
	}
	if CompletedOn(model.QuestState{}, day.UnixMilli(), loc) {
		t.Error("never-completed quest should not count")
	}
}
