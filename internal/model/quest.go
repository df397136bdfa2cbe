package model

type Activity string

// QuestState tracks the activity a pet is working toward. A zero
// CooldownUntil means the quest is in progress.
type QuestState struct {
	Activity              Activity `json:"activity"`
	Progress              int      `json:"progress"`
	Target                int      `json:"target"`
	CompletedAt           int64    `json:"completedAt,omitempty"`
	CooldownUntil         int64    `json:"cooldownUntil,omitempty"`
	LastCompletedActivity Activity `json:"lastCompletedActivity,omitempty"`
}
