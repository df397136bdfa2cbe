package mood

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/petpals/internal/model"
)

const (
	// PeriodLength is the natural lifetime of a mood period.
	PeriodLength = 8 * time.Hour

	// QuestDoneCoins is how much a pet must earn within a period to count as
	// content for that period.
	QuestDoneCoins = 50

	// Collections this size or smaller start every period fully sad.
	smallCollection = 3
)

// OwnedPet is the slice of pet state the period manager needs.
type OwnedPet struct {
	ID          string
	OwnedAt     int64
	TotalCoins  int64
	LastSleptAt int64
}

// Manager creates and replaces mood periods. It holds no state of its own;
// the active period and rotation pointer live on the user's documents.
type Manager struct {
	length time.Duration
	newID  func() string
}

func NewManager() *Manager {
	return &Manager{length: PeriodLength, newID: uuid.NewString}
}

// EnsureCurrent returns the active period, replacing current when it is nil
// or its deadline has passed. The bool reports whether a new period was made.
func (m *Manager) EnsureCurrent(current *model.MoodPeriod, pets []OwnedPet, pointer *int, now int64) (*model.MoodPeriod, bool) {
	if current != nil && now < current.NextResetAt {
		return current, false
	}

	reason := model.ReasonInit
	if current != nil {
		reason = model.ReasonElapsedNoSleep
		if sleptDuring(current, pets) {
			reason = model.ReasonRollover
		}
	}
	return m.newPeriod(current, pets, pointer, now, reason), true
}

// AnchorOnSleep starts a new period at the sleep completion time, cutting the
// current one short.
func (m *Manager) AnchorOnSleep(current *model.MoodPeriod, pets []OwnedPet, pointer *int, now int64) *model.MoodPeriod {
	return m.newPeriod(current, pets, pointer, now, model.ReasonSleepAnchor)
}

func (m *Manager) newPeriod(prev *model.MoodPeriod, pets []OwnedPet, pointer *int, now int64, reason model.AssignmentReason) *model.MoodPeriod {
	baseline := make(map[string]int64, len(pets))
	for _, p := range pets {
		baseline[p.ID] = p.TotalCoins
	}
	return &model.MoodPeriod{
		PeriodID:           m.newID(),
		AnchorAt:           now,
		NextResetAt:        now + m.length.Milliseconds(),
		SadPetIDs:          selectSad(prev, pets, pointer),
		EngagementBaseline: baseline,
		AssignmentReason:   reason,
	}
}

// sleptDuring reports whether any pet finished a sleep inside p. A period
// anchored on a sleep starts at that sleep's completion, which does not count.
func sleptDuring(p *model.MoodPeriod, pets []OwnedPet) bool {
	from := p.AnchorAt
	if p.AssignmentReason == model.ReasonSleepAnchor {
		from++
	}
	for _, pet := range pets {
		if pet.LastSleptAt >= from && pet.LastSleptAt < p.NextResetAt {
			return true
		}
	}
	return false
}

// selectSad picks which pets start the period sad. Up to three pets are all
// sad. Larger collections take ceil(n/3) pets walking round-robin from the
// rotation pointer, skipping anything sad in the previous period.
func selectSad(prev *model.MoodPeriod, pets []OwnedPet, pointer *int) []string {
	ordered := slices.Clone(pets)
	slices.SortFunc(ordered, func(a, b OwnedPet) int {
		if c := cmp.Compare(a.OwnedAt, b.OwnedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	n := len(ordered)
	if n == 0 {
		return []string{}
	}
	if n <= smallCollection {
		ids := make([]string, n)
		for i, p := range ordered {
			ids[i] = p.ID
		}
		return ids
	}

	want := (n + 2) / 3
	start := *pointer % n
	if start < 0 {
		start += n
	}

	pick := func(skipPrev bool) ([]string, int) {
		var chosen []string
		last := start - 1
		for i := 0; i < n && len(chosen) < want; i++ {
			idx := (start + i) % n
			if skipPrev && prev.IsSad(ordered[idx].ID) {
				continue
			}
			chosen = append(chosen, ordered[idx].ID)
			last = start + i
		}
		return chosen, last
	}

	chosen, last := pick(true)
	if len(chosen) == 0 {
		// Only reachable when pets were removed since the previous period.
		chosen, last = pick(false)
	}
	*pointer = (last + 1) % n
	return chosen
}
