package mood

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/dukerupert/petpals/internal/model"
)

const hour = int64(time.Hour / time.Millisecond)

func newTestManager() *Manager {
	n := 0
	m := NewManager()
	m.newID = func() string {
		n++
		return fmt.Sprintf("period-%d", n)
	}
	return m
}

func makePets(n int) []OwnedPet {
	pets := make([]OwnedPet, n)
	for i := range pets {
		pets[i] = OwnedPet{ID: fmt.Sprintf("pet-%d", i), OwnedAt: int64(i)}
	}
	return pets
}

func TestEnsureCurrentInit(t *testing.T) {
	m := newTestManager()
	pets := []OwnedPet{{ID: "a", TotalCoins: 10}, {ID: "b", TotalCoins: 30}}
	ptr := 0

	p, created := m.EnsureCurrent(nil, pets, &ptr, 1000)
	if !created {
		t.Fatal("expected a new period")
	}
	if p.AssignmentReason != model.ReasonInit {
		t.Errorf("reason = %q, want init", p.AssignmentReason)
	}
	if p.AnchorAt != 1000 || p.NextResetAt != 1000+8*hour {
		t.Errorf("anchor/reset = %d/%d", p.AnchorAt, p.NextResetAt)
	}
	if len(p.SadPetIDs) != 2 {
		t.Errorf("sad pets = %v, want both", p.SadPetIDs)
	}
	if p.EngagementBaseline["a"] != 10 || p.EngagementBaseline["b"] != 30 {
		t.Errorf("baseline = %v", p.EngagementBaseline)
	}
}

func TestEnsureCurrentKeepsActivePeriod(t *testing.T) {
	m := newTestManager()
	ptr := 0
	p, _ := m.EnsureCurrent(nil, makePets(2), &ptr, 0)

	got, created := m.EnsureCurrent(p, makePets(2), &ptr, 8*hour-1)
	if created {
		t.Fatal("period should still be active one ms before reset")
	}
	if got.PeriodID != p.PeriodID {
		t.Errorf("period id = %q, want %q", got.PeriodID, p.PeriodID)
	}
}

func TestEnsureCurrentReasons(t *testing.T) {
	m := newTestManager()
	ptr := 0
	pets := makePets(2)
	p, _ := m.EnsureCurrent(nil, pets, &ptr, 0)

	next, created := m.EnsureCurrent(p, pets, &ptr, 8*hour)
	if !created {
		t.Fatal("expected rollover at deadline")
	}
	if next.AssignmentReason != model.ReasonElapsedNoSleep {
		t.Errorf("reason = %q, want elapsed_no_sleep", next.AssignmentReason)
	}
	if next.PeriodID == p.PeriodID {
		t.Error("expected a new period id")
	}

	pets[0].LastSleptAt = next.AnchorAt + hour
	after, _ := m.EnsureCurrent(next, pets, &ptr, next.NextResetAt+5*hour)
	if after.AssignmentReason != model.ReasonRollover {
		t.Errorf("reason = %q, want rollover", after.AssignmentReason)
	}
	if after.AnchorAt != next.NextResetAt+5*hour {
		t.Errorf("anchor = %d, want the observation time", after.AnchorAt)
	}
}

func TestAnchorOnSleep(t *testing.T) {
	m := newTestManager()
	ptr := 0
	pets := makePets(2)
	p, _ := m.EnsureCurrent(nil, pets, &ptr, 0)

	pets[0].TotalCoins = 70
	anchored := m.AnchorOnSleep(p, pets, &ptr, 3*hour)
	if anchored.AssignmentReason != model.ReasonSleepAnchor {
		t.Errorf("reason = %q, want sleep_anchor", anchored.AssignmentReason)
	}
	if anchored.AnchorAt != 3*hour || anchored.NextResetAt != 11*hour {
		t.Errorf("anchor/reset = %d/%d", anchored.AnchorAt, anchored.NextResetAt)
	}
	if anchored.EngagementBaseline["pet-0"] != 70 {
		t.Errorf("baseline = %d, want 70", anchored.EngagementBaseline["pet-0"])
	}
}

func TestAnchoringSleepIsNotASleepInThePeriod(t *testing.T) {
	m := newTestManager()
	ptr := 0
	pets := makePets(2)
	p, _ := m.EnsureCurrent(nil, pets, &ptr, 0)

	pets[0].LastSleptAt = 3 * hour
	anchored := m.AnchorOnSleep(p, pets, &ptr, 3*hour)

	next, created := m.EnsureCurrent(anchored, pets, &ptr, anchored.NextResetAt)
	if !created {
		t.Fatal("expected a new period at the deadline")
	}
	if next.AssignmentReason != model.ReasonElapsedNoSleep {
		t.Errorf("reason = %q, want elapsed_no_sleep", next.AssignmentReason)
	}

	pets[1].LastSleptAt = next.AnchorAt
	after, _ := m.EnsureCurrent(next, pets, &ptr, next.NextResetAt)
	if after.AssignmentReason != model.ReasonRollover {
		t.Errorf("reason = %q, want rollover for a sleep at the start of a plain period", after.AssignmentReason)
	}
}

func TestSelectSadSmallCollections(t *testing.T) {
	for n := 0; n <= 3; n++ {
		ptr := 0
		got := selectSad(nil, makePets(n), &ptr)
		if len(got) != n {
			t.Errorf("n=%d: sad = %v, want all", n, got)
		}
	}
}

func TestSelectSadNoRepeatAcrossPeriods(t *testing.T) {
	for n := 4; n <= 12; n++ {
		m := newTestManager()
		pets := makePets(n)
		ptr := 0
		var p *model.MoodPeriod
		for round := 0; round < 3*n; round++ {
			next := m.AnchorOnSleep(p, pets, &ptr, int64(round)*hour)
			want := (n + 2) / 3
			if len(next.SadPetIDs) != want {
				t.Fatalf("n=%d round=%d: %d sad pets, want %d", n, round, len(next.SadPetIDs), want)
			}
			if p != nil {
				for _, id := range next.SadPetIDs {
					if slices.Contains(p.SadPetIDs, id) {
						t.Fatalf("n=%d round=%d: %s sad in consecutive periods", n, round, id)
					}
				}
			}
			p = next
		}
	}
}

func TestSelectSadEveryPetGetsATurn(t *testing.T) {
	pets := makePets(6)
	ptr := 0
	seen := map[string]bool{}
	var prev *model.MoodPeriod
	for i := 0; i < 3; i++ {
		ids := selectSad(prev, pets, &ptr)
		for _, id := range ids {
			seen[id] = true
		}
		prev = &model.MoodPeriod{SadPetIDs: ids}
	}
	if len(seen) != 6 {
		t.Errorf("pets sad over three periods = %d, want 6", len(seen))
	}
}

func TestSelectSadAfterGrowingPastThree(t *testing.T) {
	pets := makePets(4)
	prev := &model.MoodPeriod{SadPetIDs: []string{"pet-0", "pet-1", "pet-2"}}
	ptr := 0

	got := selectSad(prev, pets, &ptr)
	if len(got) != 1 || got[0] != "pet-3" {
		t.Errorf("sad = %v, want only the new pet", got)
	}
}
