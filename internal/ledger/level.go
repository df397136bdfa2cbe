package ledger

const (
	levelStep     = 150
	levelFourAt   = 200
	levelThreeAt  = 120
	levelTwoAt    = 50
	maxFixedLevel = 4
)

// LevelFor returns the level reached with totalCoins earned: 1 at 0, 2 at 50,
// 3 at 120, 4 at 200 and every 150 coins after that.
func LevelFor(totalCoins int64) int {
	switch {
	case totalCoins < levelTwoAt:
		return 1
	case totalCoins < levelThreeAt:
		return 2
	case totalCoins < levelFourAt:
		return 3
	}
	return maxFixedLevel + int((totalCoins-levelFourAt)/levelStep)
}

// ThresholdFor returns the coin total at which level starts.
func ThresholdFor(level int) int64 {
	switch {
	case level <= 1:
		return 0
	case level == 2:
		return levelTwoAt
	case level == 3:
		return levelThreeAt
	}
	return levelFourAt + levelStep*int64(level-maxFixedLevel)
}

type LevelProgress struct {
	Level       int   `json:"level"`
	Coins       int64 `json:"coins"`
	NextLevelAt int64 `json:"next_level_at"`
	CoinsToNext int64 `json:"coins_to_next"`
}

func ProgressFor(totalCoins int64) LevelProgress {
	lvl := LevelFor(totalCoins)
	next := ThresholdFor(lvl + 1)
	toNext := next - totalCoins
	if totalCoins < 0 {
		toNext = next
	}
	return LevelProgress{
		Level:       lvl,
		Coins:       totalCoins,
		NextLevelAt: next,
		CoinsToNext: toNext,
	}
}
