package streak

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/petpals/internal/model"
)

const (
	dateLayout = "2006-01-02"
	recentCap  = 30
)

var ErrInvalidWeekKey = errors.New("invalid week key")

// DateKey formats t as a local calendar date.
func DateKey(t time.Time) string { return t.Format(dateLayout) }

// WeekKey formats the ISO week containing t, e.g. 2026-W42.
func WeekKey(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

func isWeekend(t time.Time) bool {
	d := t.Weekday()
	return d == time.Saturday || d == time.Sunday
}

// PreviousWeekday returns the closest Monday–Friday date before t.
func PreviousWeekday(t time.Time) time.Time {
	d := t.AddDate(0, 0, -1)
	for isWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// RegisterQualifyingDay records a qualifying sleep completion for today.
// Only the first call on a given weekday has any effect; weekends never
// count. It reports whether r changed.
func RegisterQualifyingDay(r *model.StreakRecord, today time.Time) bool {
	key := DateKey(today)
	if r.LastFeedDate == key || isWeekend(today) {
		return false
	}

	if r.LastFeedDate != "" && r.LastFeedDate == DateKey(PreviousWeekday(today)) {
		r.Streak++
	} else {
		r.Streak = 1
	}
	if r.Streak > r.Longest {
		r.Longest = r.Streak
	}
	r.LastFeedDate = key

	r.RecentDates = append(r.RecentDates, key)
	if len(r.RecentDates) > recentCap {
		r.RecentDates = r.RecentDates[len(r.RecentDates)-recentCap:]
	}

	if r.WeeklyHearts == nil {
		r.WeeklyHearts = make(map[string]map[string]bool)
	}
	wk := WeekKey(today)
	if r.WeeklyHearts[wk] == nil {
		r.WeeklyHearts[wk] = make(map[string]bool)
	}
	r.WeeklyHearts[wk][key] = true
	return true
}

// Current is the streak as it should be shown today: the stored count while
// the last qualifying day is today or the previous weekday, otherwise zero.
func Current(r model.StreakRecord, today time.Time) int {
	if r.LastFeedDate == "" {
		return 0
	}
	if r.LastFeedDate == DateKey(today) || r.LastFeedDate == DateKey(PreviousWeekday(today)) {
		return r.Streak
	}
	return 0
}

// WeeklyHeartCount counts filled cells in the given ISO week.
func WeeklyHeartCount(r model.StreakRecord, weekKey string) int {
	n := 0
	for _, filled := range r.WeeklyHearts[weekKey] {
		if filled {
			n++
		}
	}
	return n
}

// Summary is the UI-facing streak view.
type Summary struct {
	Streak       int      `json:"streak"`
	Longest      int      `json:"longest"`
	LastFeedDate string   `json:"last_feed_date,omitempty"`
	RecentDates  []string `json:"recent_dates"`
}

func SummaryOf(r model.StreakRecord, today time.Time) Summary {
	recent := r.RecentDates
	if recent == nil {
		recent = []string{}
	}
	return Summary{
		Streak:       Current(r, today),
		Longest:      r.Longest,
		LastFeedDate: r.LastFeedDate,
		RecentDates:  recent,
	}
}
