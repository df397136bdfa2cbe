package model

import "slices"

type AssignmentReason string

const (
	ReasonInit           AssignmentReason = "init"
	ReasonRollover       AssignmentReason = "rollover"
	ReasonSleepAnchor    AssignmentReason = "sleep_anchor"
	ReasonElapsedNoSleep AssignmentReason = "elapsed_no_sleep"
)

// MoodPeriod is the active engagement window for a user. SadPetIDs and
// EngagementBaseline are fixed once the period is created.
type MoodPeriod struct {
	PeriodID           string           `json:"periodId"`
	AnchorAt           int64            `json:"anchorAt"`
	NextResetAt        int64            `json:"nextResetAt"`
	SadPetIDs          []string         `json:"sadPetIds"`
	EngagementBaseline map[string]int64 `json:"engagementBaseline"`
	AssignmentReason   AssignmentReason `json:"assignmentReason"`
}

func (p *MoodPeriod) IsSad(petID string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.SadPetIDs, petID)
}

// Baseline returns the coins the pet had at the anchor. Pets adopted after the
// anchor have no baseline and are measured from zero.
func (p *MoodPeriod) Baseline(petID string) int64 {
	if p == nil || p.EngagementBaseline == nil {
		return 0
	}
	return p.EngagementBaseline[petID]
}
