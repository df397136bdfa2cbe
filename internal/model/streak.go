package model

// StreakRecord is the per-user weekday streak. Dates are local calendar dates
// in 2006-01-02 form; week keys are ISO weeks such as 2026-W42.
type StreakRecord struct {
	Streak       int                        `json:"streak"`
	Longest      int                        `json:"longest"`
	LastFeedDate string                     `json:"lastFeedDate,omitempty"`
	RecentDates  []string                   `json:"recentDates"`
	WeeklyHearts map[string]map[string]bool `json:"weeklyHearts"`
}
