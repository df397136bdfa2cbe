package streak

import (
	"fmt"
	"time"

	"github.com/dukerupert/petpals/internal/model"
)

type HeartCell struct {
	Date   string `json:"date"`
	Filled bool   `json:"filled"`
}

// WeekGrid is the Monday–Friday heart row for one ISO week.
type WeekGrid struct {
	WeekKey string      `json:"week_key"`
	Cells   []HeartCell `json:"cells"`
	Count   int         `json:"count"`
}

// ParseWeekKey returns the Monday that starts the ISO week, in loc.
func ParseWeekKey(weekKey string, loc *time.Location) (time.Time, error) {
	var year, week int
	if _, err := fmt.Sscanf(weekKey, "%d-W%d", &year, &week); err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", weekKey, ErrInvalidWeekKey)
	}
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("week %d out of range: %w", week, ErrInvalidWeekKey)
	}
	if loc == nil {
		loc = time.UTC
	}

	// January 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset+(week-1)*7)

	if WeekKey(monday) != fmt.Sprintf("%d-W%02d", year, week) {
		return time.Time{}, fmt.Errorf("%q does not exist: %w", weekKey, ErrInvalidWeekKey)
	}
	return monday, nil
}

// Week builds the heart grid for weekKey.
func Week(r model.StreakRecord, weekKey string, loc *time.Location) (WeekGrid, error) {
	monday, err := ParseWeekKey(weekKey, loc)
	if err != nil {
		return WeekGrid{}, err
	}
	cells := r.WeeklyHearts[weekKey]
	grid := WeekGrid{WeekKey: weekKey, Cells: make([]HeartCell, 0, 5)}
	for i := 0; i < 5; i++ {
		key := DateKey(monday.AddDate(0, 0, i))
		filled := cells[key]
		grid.Cells = append(grid.Cells, HeartCell{Date: key, Filled: filled})
		if filled {
			grid.Count++
		}
	}
	return grid, nil
}
