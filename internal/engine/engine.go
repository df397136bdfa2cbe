package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukerupert/petpals/internal/clock"
	"github.com/dukerupert/petpals/internal/docstore"
	"github.com/dukerupert/petpals/internal/model"
	"github.com/dukerupert/petpals/internal/mood"
	"github.com/dukerupert/petpals/internal/quest"
	"github.com/dukerupert/petpals/internal/sleep"
	"github.com/dukerupert/petpals/internal/syncer"
)

var (
	ErrPetNotFound = errors.New("pet not found")
	ErrPetAsleep   = errors.New("pet is asleep")
)

const (
	petFieldPrefix  = "pet:"
	itemFieldPrefix = "item:"
)

// Config holds the tunables of the engine.
type Config struct {
	Location      *time.Location
	QuestCooldown time.Duration
	QuestTarget   int
}

func DefaultConfig() Config {
	return Config{
		Location:      time.UTC,
		QuestCooldown: time.Hour,
		QuestTarget:   quest.DefaultTarget,
	}
}

// Engine owns the progression state of one user. Every call loads the
// user's documents through the sync layer, applies any transitions whose
// deadline has passed and then runs the command or query. Calls are
// serialized.
type Engine struct {
	userID   string
	sync     *syncer.Layer
	clock    clock.Clock
	loc      *time.Location
	periods  *mood.Manager
	quests   *quest.Tracker
	notifier Notifier
	logger   *slog.Logger

	mu sync.Mutex
}

func New(userID string, layer *syncer.Layer, clk clock.Clock, cfg Config, notifier Notifier, logger *slog.Logger) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Engine{
		userID:   userID,
		sync:     layer,
		clock:    clk,
		loc:      cfg.Location,
		periods:  mood.NewManager(),
		quests:   quest.NewTracker(cfg.QuestCooldown, cfg.QuestTarget),
		notifier: notifier,
		logger:   logger.With("component", "engine", "user_id", userID),
	}
}

func (e *Engine) UserID() string { return e.userID }

// UserKey is the root document key of a user; all of their documents live
// under it.
func UserKey(userID string) string { return "users/" + userID }

func (e *Engine) userKey() string   { return UserKey(e.userID) }
func (e *Engine) periodKey() string { return e.userKey() + "/period" }
func (e *Engine) streakKey() string { return e.userKey() + "/streak" }

func (e *Engine) petKey(petID string) string { return e.userKey() + "/pets/" + petID }

// state is one user's documents decoded for a single call.
type state struct {
	user   model.UserRecord
	period *model.MoodPeriod
	streak model.StreakRecord
	pets   map[string]*model.PetRecord
}

type periodFields struct {
	Current *model.MoodPeriod `json:"current"`
}

type streakFields struct {
	Record model.StreakRecord `json:"record"`
}

func (st *state) pet(petID string) (*model.PetRecord, error) {
	rec, ok := st.pets[petID]
	if !ok {
		return nil, fmt.Errorf("pet %q: %w", petID, ErrPetNotFound)
	}
	return rec, nil
}

// ordered returns the pets by adoption time.
func (st *state) ordered() []*model.PetRecord {
	recs := make([]*model.PetRecord, 0, len(st.pets))
	for _, rec := range st.pets {
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b *model.PetRecord) int {
		if c := cmp.Compare(a.OwnedAt, b.OwnedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return recs
}

func (st *state) owned() []mood.OwnedPet {
	out := make([]mood.OwnedPet, 0, len(st.pets))
	for _, rec := range st.ordered() {
		out = append(out, mood.OwnedPet{
			ID:          rec.ID,
			OwnedAt:     rec.OwnedAt,
			TotalCoins:  rec.TotalCoinsEarned,
			LastSleptAt: rec.Sleep.LastSleptAt,
		})
	}
	return out
}

func (e *Engine) load(ctx context.Context) (*state, error) {
	st := &state{pets: make(map[string]*model.PetRecord)}

	userDoc, err := e.sync.Read(ctx, e.userKey())
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := userDoc.Decode(&st.user); err != nil {
		return nil, err
	}
	st.user.UserID = e.userID
	st.user.Pets = userDoc.IntsWithPrefix(petFieldPrefix)
	st.user.Inventory = userDoc.IntsWithPrefix(itemFieldPrefix)

	periodDoc, err := e.sync.Read(ctx, e.periodKey())
	if err != nil {
		return nil, fmt.Errorf("load period: %w", err)
	}
	var pf periodFields
	if err := periodDoc.Decode(&pf); err != nil {
		return nil, err
	}
	st.period = pf.Current

	streakDoc, err := e.sync.Read(ctx, e.streakKey())
	if err != nil {
		return nil, fmt.Errorf("load streak: %w", err)
	}
	var sf streakFields
	if err := streakDoc.Decode(&sf); err != nil {
		return nil, err
	}
	st.streak = sf.Record

	for petID := range st.user.Pets {
		doc, err := e.sync.Read(ctx, e.petKey(petID))
		if err != nil {
			return nil, fmt.Errorf("load pet %q: %w", petID, err)
		}
		if len(doc.Fields) == 0 {
			e.logger.Warn("owned pet has no document", "pet_id", petID)
			continue
		}
		var rec model.PetRecord
		if err := doc.Decode(&rec); err != nil {
			return nil, err
		}
		rec.ID = petID
		st.pets[petID] = &rec
	}
	return st, nil
}

// begin loads state and performs every transition that is due at now.
func (e *Engine) begin(ctx context.Context, now int64) (*state, error) {
	st, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.refresh(ctx, st, now); err != nil {
		return nil, err
	}
	return st, nil
}

func (e *Engine) refresh(ctx context.Context, st *state, now int64) error {
	for _, rec := range st.ordered() {
		patch := docstore.NewPatch()

		tick := sleep.Tick(&rec.Sleep, &rec.PetProgress, now)
		if tick.Changed() {
			patch.SetField("sleep", rec.Sleep)
			setHearts(patch, rec.PetProgress)
		}
		if e.quests.Advance(&rec.Quest, now) {
			patch.SetField("quest", rec.Quest)
		}
		if patch.Empty() {
			continue
		}
		if err := e.write(ctx, e.petKey(rec.ID), patch); err != nil {
			return err
		}

		switch {
		case tick.Woke:
			e.logger.Debug("pet woke up", "pet_id", rec.ID)
			e.publish(EventWokeUp, rec.ID, nil)
		case tick.HeartReset:
			e.logger.Debug("hearts reset without sleep", "pet_id", rec.ID)
		}
	}

	if len(st.pets) == 0 {
		return nil
	}
	pointer := st.user.RotationPointer
	p, created := e.periods.EnsureCurrent(st.period, st.owned(), &pointer, now)
	if !created {
		return nil
	}
	return e.savePeriod(ctx, st, p, pointer)
}

func (e *Engine) savePeriod(ctx context.Context, st *state, p *model.MoodPeriod, pointer int) error {
	if err := e.write(ctx, e.periodKey(), docstore.NewPatch().SetField("current", p)); err != nil {
		return err
	}
	if pointer != st.user.RotationPointer {
		if err := e.write(ctx, e.userKey(), docstore.NewPatch().SetField("rotationPointer", pointer)); err != nil {
			return err
		}
		st.user.RotationPointer = pointer
	}
	st.period = p

	e.logger.Info("mood period started", "period_id", p.PeriodID, "reason", p.AssignmentReason, "sad", len(p.SadPetIDs))
	e.publish(EventPeriodChanged, "", map[string]any{
		"period_id":     p.PeriodID,
		"reason":        p.AssignmentReason,
		"next_reset_at": p.NextResetAt,
	})
	return nil
}

func setHearts(patch *docstore.Patch, progress model.PetProgress) {
	patch.SetField("feedingCount", progress.FeedingCount)
	patch.SetField("adventureCoinsToday", progress.AdventureCoinsToday)
	patch.SetField("sleepCompletedToday", progress.SleepCompletedToday)
	patch.SetField("nextHeartResetAt", progress.NextHeartResetAt)
}

func (e *Engine) write(ctx context.Context, key string, patch *docstore.Patch) error {
	if _, err := e.sync.Write(ctx, key, patch); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

func (e *Engine) now() (int64, time.Time) {
	t := e.clock.Now().In(e.loc)
	return clock.Millis(t), t
}
