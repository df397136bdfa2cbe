package engine

type EventType string

const (
	EventPetAdopted     EventType = "pet_adopted"
	EventCoinsEarned    EventType = "coins_earned"
	EventPetLevelUp     EventType = "pet_level_up"
	EventUserLevelUp    EventType = "user_level_up"
	EventQuestCompleted EventType = "quest_completed"
	EventFellAsleep     EventType = "fell_asleep"
	EventWokeUp         EventType = "woke_up"
	EventPeriodChanged  EventType = "period_changed"
	EventStreak         EventType = "streak"
	EventPurchase       EventType = "purchase"
)

// Event is published after a state change has been written locally.
type Event struct {
	Type   EventType      `json:"type"`
	UserID string         `json:"user_id"`
	PetID  string         `json:"pet_id,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Notifier receives engine events. Implementations must not block.
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

func (e *Engine) publish(typ EventType, petID string, data map[string]any) {
	e.notifier.Notify(Event{Type: typ, UserID: e.userID, PetID: petID, Data: data})
}
