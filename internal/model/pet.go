package model

// Pet is a companion owned by a single user. Only DisplayName changes after
// creation.
type Pet struct {
	ID          string `json:"id"`
	Species     string `json:"species"`
	OwnerID     string `json:"ownerId"`
	DisplayName string `json:"displayName"`
	OwnedAt     int64  `json:"ownedAt"`
}

// PetProgress holds the per-pet engagement counters. TotalCoinsEarned never
// decreases; the heart counters are reset after each sleep window.
type PetProgress struct {
	FeedingCount        int   `json:"feedingCount"`
	AdventureCoinsToday int64 `json:"adventureCoinsToday"`
	SleepCompletedToday bool  `json:"sleepCompletedToday"`
	NextHeartResetAt    int64 `json:"nextHeartResetAt"`
	TotalCoinsEarned    int64 `json:"totalCoinsEarned"`
}

// SleepState is Awake(Clicks) while Until is zero, Asleep(Since, Until)
// otherwise. LastSleptAt survives waking up.
type SleepState struct {
	Clicks      int   `json:"clicks"`
	Since       int64 `json:"since,omitempty"`
	Until       int64 `json:"until,omitempty"`
	LastSleptAt int64 `json:"lastSleptAt,omitempty"`
}

func (s SleepState) Asleep() bool { return s.Until != 0 }

// PetRecord is everything stored in a pet document.
type PetRecord struct {
	Pet
	PetProgress
	Quest QuestState `json:"quest"`
	Sleep SleepState `json:"sleep"`
}
