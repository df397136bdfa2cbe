package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/petpals/internal/docstore"
	"github.com/dukerupert/petpals/internal/ledger"
	"github.com/dukerupert/petpals/internal/model"
	"github.com/dukerupert/petpals/internal/mood"
	"github.com/dukerupert/petpals/internal/quest"
	"github.com/dukerupert/petpals/internal/sleep"
	"github.com/dukerupert/petpals/internal/streak"
)

// AdoptPet creates a pet for the user and charges cost against the
// spendable balance. The first adoption starts the user's first mood period.
func (e *Engine) AdoptPet(ctx context.Context, species, name string, cost int64) (PetView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now, _ := e.now()
	st, err := e.begin(ctx, now)
	if err != nil {
		return PetView{}, err
	}
	if err := ledger.Spend(&st.user, cost); err != nil {
		return PetView{}, fmt.Errorf("adopt %s: %w", species, err)
	}

	rec := &model.PetRecord{
		Pet: model.Pet{
			ID:          uuid.NewString(),
			Species:     species,
			OwnerID:     e.userID,
			DisplayName: name,
			OwnedAt:     now,
		},
		Quest: e.quests.Start(),
	}
	sleep.EnsureHeartDeadline(&rec.PetProgress, now)

	petPatch := docstore.NewPatch()
	if err := petPatch.SetAll(rec); err != nil {
		return PetView{}, err
	}
	if err := e.write(ctx, e.petKey(rec.ID), petPatch); err != nil {
		return PetView{}, err
	}

	userPatch := docstore.NewPatch().
		SetField("userId", e.userID).
		SetField(petFieldPrefix+rec.ID, now)
	if cost > 0 {
		userPatch.Increment("spendableBalance", -cost).Floor("spendableBalance", 0)
	}
	if err := e.write(ctx, e.userKey(), userPatch); err != nil {
		return PetView{}, err
	}
	st.pets[rec.ID] = rec
	st.user.Pets[rec.ID] = now

	e.logger.Info("pet adopted", "pet_id", rec.ID, "species", species, "cost", cost)
	e.publish(EventPetAdopted, rec.ID, map[string]any{"species": species, "name": name})

	if st.period == nil {
		pointer := st.user.RotationPointer
		p, _ := e.periods.EnsureCurrent(nil, st.owned(), &pointer, now)
		if err := e.savePeriod(ctx, st, p, pointer); err != nil {
			return PetView{}, err
		}
	}
	return e.petView(st, rec, now), nil
}

// RenamePet changes the only mutable field of a pet.
func (e *Engine) RenamePet(ctx context.Context, petID, name string) (PetView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now, _ := e.now()
	st, err := e.begin(ctx, now)
	if err != nil {
		return PetView{}, err
	}
	rec, err := st.pet(petID)
	if err != nil {
		return PetView{}, err
	}
	rec.DisplayName = name
	if err := e.write(ctx, e.petKey(petID), docstore.NewPatch().SetField("displayName", name)); err != nil {
		return PetView{}, err
	}
	return e.petView(st, rec, now), nil
}

// Feed counts a feeding toward the pet's hearts. Sleeping pets cannot be fed.
func (e *Engine) Feed(ctx context.Context, petID string) (PetView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now, _ := e.now()
	st, err := e.begin(ctx, now)
	if err != nil {
		return PetView{}, err
	}
	rec, err := st.pet(petID)
	if err != nil {
		return PetView{}, err
	}
	if rec.Sleep.Asleep() {
		return PetView{}, fmt.Errorf("feed %q: %w", petID, ErrPetAsleep)
	}

	rec.FeedingCount++
	patch := docstore.NewPatch().Increment("feedingCount", 1)
	if sleep.EnsureHeartDeadline(&rec.PetProgress, now) {
		patch.SetField("nextHeartResetAt", rec.NextHeartResetAt)
	}
	if err := e.write(ctx, e.petKey(petID), patch); err != nil {
		return PetView{}, err
	}
	return e.petView(st, rec, now), nil
}

// EarnResult reports an applied coin earning.
type EarnResult struct {
	PetID          string               `json:"pet_id"`
	Amount         int64                `json:"amount"`
	Activity       model.Activity       `json:"activity"`
	PetLevel       ledger.LevelProgress `json:"pet_level"`
	UserLevel      ledger.LevelProgress `json:"user_level"`
	PetLeveledUp   bool                 `json:"pet_leveled_up"`
	UserLeveledUp  bool                 `json:"user_leveled_up"`
	QuestProgress  bool                 `json:"quest_progress"`
	QuestCompleted bool                 `json:"quest_completed"`
	Mood           mood.Mood            `json:"mood"`
	Balance        int64                `json:"balance"`
}

// EarnAdventureCoins credits coins to a pet and its owner and counts one
// unit of progress toward the pet's quest when activity matches it and at
// least one coin was earned. An
// activity outside the canonical set is logged and the whole call ignored.
func (e *Engine) EarnAdventureCoins(ctx context.Context, petID string, amount int64, activity model.Activity) (EarnResult, error) {
	if !quest.Valid(activity) {
		err := fmt.Errorf("earn coins with %q: %w", activity, quest.ErrInvalidActivity)
		e.logger.Warn("ignored earning", "pet_id", petID, "error", err)
		return EarnResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now, _ := e.now()
	st, err := e.begin(ctx, now)
	if err != nil {
		return EarnResult{}, err
	}
	rec, err := st.pet(petID)
	if err != nil {
		return EarnResult{}, err
	}

	earning, err := ledger.Earn(&st.user, petID, &rec.PetProgress, amount, activity)
	if err != nil {
		return EarnResult{}, err
	}
	var qr quest.Result
	if amount > 0 {
		qr, err = e.quests.RecordProgress(&rec.Quest, activity, 1, now)
		if err != nil {
			return EarnResult{}, err
		}
	}

	petPatch := docstore.NewPatch().
		Increment("totalCoinsEarned", amount).
		Increment("adventureCoinsToday", amount)
	if qr.Applied {
		petPatch.SetField("quest", rec.Quest)
	}
	if sleep.EnsureHeartDeadline(&rec.PetProgress, now) {
		petPatch.SetField("nextHeartResetAt", rec.NextHeartResetAt)
	}
	if err := e.write(ctx, e.petKey(petID), petPatch); err != nil {
		return EarnResult{}, err
	}

	userPatch := docstore.NewPatch().
		Increment("cumulativeCoinsEarned", amount).
		Increment("spendableBalance", amount)
	if err := e.write(ctx, e.userKey(), userPatch); err != nil {
		return EarnResult{}, err
	}

	e.publish(EventCoinsEarned, petID, map[string]any{"amount": amount, "activity": activity})
	if earning.PetLeveledUp() {
		e.logger.Info("pet leveled up", "pet_id", petID, "level", earning.PetLevelAfter)
		e.publish(EventPetLevelUp, petID, map[string]any{"level": earning.PetLevelAfter})
	}
	if earning.UserLeveledUp() {
		e.logger.Info("user leveled up", "level", earning.UserLevelAfter)
		e.publish(EventUserLevelUp, "", map[string]any{"level": earning.UserLevelAfter})
	}
	if qr.Completed {
		e.logger.Info("quest completed", "pet_id", petID, "activity", activity)
		e.publish(EventQuestCompleted, petID, map[string]any{
			"activity":       activity,
			"cooldown_until": rec.Quest.CooldownUntil,
		})
	}

	return EarnResult{
		PetID:          petID,
		Amount:         amount,
		Activity:       activity,
		PetLevel:       ledger.ProgressFor(rec.TotalCoinsEarned),
		UserLevel:      ledger.ProgressFor(st.user.CumulativeCoinsEarned),
		PetLeveledUp:   earning.PetLeveledUp(),
		UserLeveledUp:  earning.UserLeveledUp(),
		QuestProgress:  qr.Applied,
		QuestCompleted: qr.Completed,
		Mood:           mood.Derive(st.period, petID, rec.TotalCoinsEarned, rec.Sleep.LastSleptAt),
		Balance:        st.user.SpendableBalance,
	}, nil
}

// SleepResult reports one sleep interaction.
type SleepResult struct {
	PetID   string        `json:"pet_id"`
	Outcome sleep.Outcome `json:"outcome"`
	Sleep   sleep.State   `json:"sleep"`
	Mood    mood.Mood     `json:"mood"`
	Streak  int           `json:"streak"`
}

// InteractSleep counts one sleep interaction for a pet. Pets that started
// the period sad are gated until they finish their period quest. The third
// interaction puts the pet to sleep, re-anchors the mood period and, when
// any pet has done its quest today, registers a streak day.
func (e *Engine) InteractSleep(ctx context.Context, petID string) (SleepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now, today := e.now()
	st, err := e.begin(ctx, now)
	if err != nil {
		return SleepResult{}, err
	}
	rec, err := st.pet(petID)
	if err != nil {
		return SleepResult{}, err
	}

	allowed := sleep.Allowed(
		mood.SadAtPeriodStart(st.period, petID),
		mood.QuestDone(st.period, petID, rec.TotalCoinsEarned),
	)
	outcome := sleep.Interact(&rec.Sleep, &rec.PetProgress, allowed, now)

	switch outcome {
	case sleep.OutcomeAccepted:
		if err := e.write(ctx, e.petKey(petID), docstore.NewPatch().SetField("sleep", rec.Sleep)); err != nil {
			return SleepResult{}, err
		}
	case sleep.OutcomeFellAsleep:
		if err := e.fallAsleep(ctx, st, rec, now, today); err != nil {
			return SleepResult{}, err
		}
	case sleep.OutcomeGated:
		e.logger.Debug("sleep interaction gated", "pet_id", petID)
	}

	return SleepResult{
		PetID:   petID,
		Outcome: outcome,
		Sleep:   sleep.StateOf(rec.Sleep, now),
		Mood:    mood.Derive(st.period, petID, rec.TotalCoinsEarned, rec.Sleep.LastSleptAt),
		Streak:  streak.Current(st.streak, today),
	}, nil
}

func (e *Engine) fallAsleep(ctx context.Context, st *state, rec *model.PetRecord, now int64, today time.Time) error {
	// Qualification is judged against the period the pet slept in.
	qualifies := e.questDoneToday(st, now)

	patch := docstore.NewPatch().
		SetField("sleep", rec.Sleep).
		SetField("sleepCompletedToday", rec.SleepCompletedToday).
		SetField("nextHeartResetAt", rec.NextHeartResetAt)
	if err := e.write(ctx, e.petKey(rec.ID), patch); err != nil {
		return err
	}
	e.logger.Info("pet fell asleep", "pet_id", rec.ID, "until", rec.Sleep.Until)
	e.publish(EventFellAsleep, rec.ID, map[string]any{"until": rec.Sleep.Until})

	pointer := st.user.RotationPointer
	p := e.periods.AnchorOnSleep(st.period, st.owned(), &pointer, now)
	if err := e.savePeriod(ctx, st, p, pointer); err != nil {
		return err
	}

	if !qualifies || !streak.RegisterQualifyingDay(&st.streak, today) {
		return nil
	}
	if err := e.write(ctx, e.streakKey(), docstore.NewPatch().SetField("record", st.streak)); err != nil {
		return err
	}
	e.logger.Info("streak day registered", "streak", st.streak.Streak, "date", st.streak.LastFeedDate)
	e.publish(EventStreak, "", map[string]any{"streak": st.streak.Streak, "longest": st.streak.Longest})
	return nil
}

func (e *Engine) questDoneToday(st *state, now int64) bool {
	for _, rec := range st.pets {
		if mood.QuestDone(st.period, rec.ID, rec.TotalCoinsEarned) || quest.CompletedOn(rec.Quest, now, e.loc) {
			return true
		}
	}
	return false
}

// PurchaseResult reports a purchase.
type PurchaseResult struct {
	ItemID  string `json:"item_id"`
	Count   int64  `json:"count"`
	Balance int64  `json:"balance"`
}

// Purchase spends cost from the balance and adds one itemID to the
// inventory. Nothing is written when the balance is short.
func (e *Engine) Purchase(ctx context.Context, itemID string, cost int64) (PurchaseResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now, _ := e.now()
	st, err := e.begin(ctx, now)
	if err != nil {
		return PurchaseResult{}, err
	}
	if err := ledger.Spend(&st.user, cost); err != nil {
		return PurchaseResult{}, fmt.Errorf("purchase %q: %w", itemID, err)
	}

	patch := docstore.NewPatch().
		Increment("spendableBalance", -cost).
		Floor("spendableBalance", 0).
		Increment(itemFieldPrefix+itemID, 1)
	if err := e.write(ctx, e.userKey(), patch); err != nil {
		return PurchaseResult{}, err
	}
	st.user.Inventory[itemID]++

	e.logger.Info("item purchased", "item_id", itemID, "cost", cost, "balance", st.user.SpendableBalance)
	e.publish(EventPurchase, "", map[string]any{"item_id": itemID, "cost": cost})
	return PurchaseResult{
		ItemID:  itemID,
		Count:   st.user.Inventory[itemID],
		Balance: st.user.SpendableBalance,
	}, nil
}
