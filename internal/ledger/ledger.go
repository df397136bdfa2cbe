package ledger

import (
	"errors"
	"fmt"

	"github.com/dukerupert/petpals/internal/model"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNegativeAmount      = errors.New("amount must not be negative")
)

// Earning describes one applied coin increment.
type Earning struct {
	PetID           string
	Amount          int64
	Activity        model.Activity
	PetLevelBefore  int
	PetLevelAfter   int
	UserLevelBefore int
	UserLevelAfter  int
}

func (e Earning) PetLeveledUp() bool  { return e.PetLevelAfter > e.PetLevelBefore }
func (e Earning) UserLeveledUp() bool { return e.UserLevelAfter > e.UserLevelBefore }

// Earn credits amount to the pet's monotonic total, the pet's heart counter,
// the user's cumulative total and the user's spendable balance.
func Earn(user *model.UserRecord, petID string, progress *model.PetProgress, amount int64, activity model.Activity) (Earning, error) {
	if amount < 0 {
		return Earning{}, fmt.Errorf("earn %d coins: %w", amount, ErrNegativeAmount)
	}

	e := Earning{
		PetID:           petID,
		Amount:          amount,
		Activity:        activity,
		PetLevelBefore:  LevelFor(progress.TotalCoinsEarned),
		UserLevelBefore: LevelFor(user.CumulativeCoinsEarned),
	}

	progress.TotalCoinsEarned += amount
	progress.AdventureCoinsToday += amount
	user.CumulativeCoinsEarned += amount
	user.SpendableBalance += amount

	e.PetLevelAfter = LevelFor(progress.TotalCoinsEarned)
	e.UserLevelAfter = LevelFor(user.CumulativeCoinsEarned)
	return e, nil
}

// Spend debits the spendable balance. The earned counters are untouched.
func Spend(user *model.UserRecord, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("spend %d coins: %w", amount, ErrNegativeAmount)
	}
	if amount > user.SpendableBalance {
		return fmt.Errorf("spend %d of %d coins: %w", amount, user.SpendableBalance, ErrInsufficientBalance)
	}
	user.SpendableBalance -= amount
	return nil
}
