package engine

import (
	"context"

	"github.com/dukerupert/petpals/internal/ledger"
	"github.com/dukerupert/petpals/internal/model"
	"github.com/dukerupert/petpals/internal/mood"
	"github.com/dukerupert/petpals/internal/quest"
	"github.com/dukerupert/petpals/internal/sleep"
	"github.com/dukerupert/petpals/internal/streak"
)

// PetView is everything the UI shows for one pet.
type PetView struct {
	model.Pet
	Progress model.PetProgress    `json:"progress"`
	Level    ledger.LevelProgress `json:"level"`
	Mood     mood.Status          `json:"mood"`
	Quest    quest.Display        `json:"quest"`
	Sleep    sleep.State          `json:"sleep"`
}

func (e *Engine) petView(st *state, rec *model.PetRecord, now int64) PetView {
	return PetView{
		Pet:      rec.Pet,
		Progress: rec.PetProgress,
		Level:    ledger.ProgressFor(rec.TotalCoinsEarned),
		Mood:     mood.StatusOf(st.period, rec.ID, rec.TotalCoinsEarned, rec.Sleep.LastSleptAt),
		Quest:    quest.DisplayOf(rec.Quest, now),
		Sleep:    sleep.StateOf(rec.Sleep, now),
	}
}

// UserView is the user-level summary.
type UserView struct {
	UserID    string               `json:"user_id"`
	Level     ledger.LevelProgress `json:"level"`
	Balance   int64                `json:"balance"`
	Inventory map[string]int64     `json:"inventory"`
	PetCount  int                  `json:"pet_count"`
	Period    *model.MoodPeriod    `json:"period,omitempty"`
	Streak    streak.Summary       `json:"streak"`
}

// view loads state, applies due transitions and hands it to fn.
func (e *Engine) view(ctx context.Context, fn func(st *state, now int64) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now, _ := e.now()
	st, err := e.begin(ctx, now)
	if err != nil {
		return err
	}
	return fn(st, now)
}

func (e *Engine) Pet(ctx context.Context, petID string) (PetView, error) {
	var out PetView
	err := e.view(ctx, func(st *state, now int64) error {
		rec, err := st.pet(petID)
		if err != nil {
			return err
		}
		out = e.petView(st, rec, now)
		return nil
	})
	return out, err
}

// Pets lists the user's pets by adoption time.
func (e *Engine) Pets(ctx context.Context) ([]PetView, error) {
	var out []PetView
	err := e.view(ctx, func(st *state, now int64) error {
		out = make([]PetView, 0, len(st.pets))
		for _, rec := range st.ordered() {
			out = append(out, e.petView(st, rec, now))
		}
		return nil
	})
	return out, err
}

func (e *Engine) Mood(ctx context.Context, petID string) (mood.Status, error) {
	pv, err := e.Pet(ctx, petID)
	return pv.Mood, err
}

func (e *Engine) QuestDisplay(ctx context.Context, petID string) (quest.Display, error) {
	pv, err := e.Pet(ctx, petID)
	return pv.Quest, err
}

func (e *Engine) SleepState(ctx context.Context, petID string) (sleep.State, error) {
	pv, err := e.Pet(ctx, petID)
	return pv.Sleep, err
}

func (e *Engine) PetLevel(ctx context.Context, petID string) (ledger.LevelProgress, error) {
	pv, err := e.Pet(ctx, petID)
	return pv.Level, err
}

func (e *Engine) UserLevel(ctx context.Context) (ledger.LevelProgress, error) {
	u, err := e.User(ctx)
	return u.Level, err
}

func (e *Engine) User(ctx context.Context) (UserView, error) {
	var out UserView
	err := e.view(ctx, func(st *state, now int64) error {
		_, today := e.now()
		out = UserView{
			UserID:    e.userID,
			Level:     ledger.ProgressFor(st.user.CumulativeCoinsEarned),
			Balance:   st.user.SpendableBalance,
			Inventory: st.user.Inventory,
			PetCount:  len(st.pets),
			Period:    st.period,
			Streak:    streak.SummaryOf(st.streak, today),
		}
		return nil
	})
	return out, err
}

// Period returns the active mood period, or nil before the first adoption.
func (e *Engine) Period(ctx context.Context) (*model.MoodPeriod, error) {
	var out *model.MoodPeriod
	err := e.view(ctx, func(st *state, _ int64) error {
		out = st.period
		return nil
	})
	return out, err
}

func (e *Engine) Streak(ctx context.Context) (streak.Summary, error) {
	u, err := e.User(ctx)
	return u.Streak, err
}

// WeeklyHearts returns the heart grid for weekKey, or for the current week
// when weekKey is empty.
func (e *Engine) WeeklyHearts(ctx context.Context, weekKey string) (streak.WeekGrid, error) {
	var out streak.WeekGrid
	err := e.view(ctx, func(st *state, _ int64) error {
		if weekKey == "" {
			_, today := e.now()
			weekKey = streak.WeekKey(today)
		}
		grid, err := streak.Week(st.streak, weekKey, e.loc)
		out = grid
		return err
	})
	return out, err
}
