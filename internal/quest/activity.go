package quest

import (
	"errors"
	"slices"

	"github.com/dukerupert/petpals/internal/model"
)

const (
	House                model.Activity = "house"
	Friend               model.Activity = "friend"
	DressingCompetition  model.Activity = "dressing-competition"
	WhoMadeThePetsSick   model.Activity = "who-made-the-pets-sick"
	Travel               model.Activity = "travel"
	Food                 model.Activity = "food"
	PlantDreams          model.Activity = "plant-dreams"
	PetSchool            model.Activity = "pet-school"
	PetThemePark         model.Activity = "pet-theme-park"
	PetMall              model.Activity = "pet-mall"
	PetCare              model.Activity = "pet-care"

	// Story is always available and never part of the rotation.
	Story model.Activity = "story"
)

// Sequence is the fixed order every pet cycles through.
var Sequence = []model.Activity{
	House,
	Friend,
	DressingCompetition,
	WhoMadeThePetsSick,
	Travel,
	Food,
	PlantDreams,
	PetSchool,
	PetThemePark,
	PetMall,
	PetCare,
}

var ErrInvalidActivity = errors.New("invalid activity")

// Valid reports whether a is a sequenced activity or Story.
func Valid(a model.Activity) bool {
	return a == Story || slices.Contains(Sequence, a)
}

// Next returns the activity after a in the sequence, wrapping around.
// Unknown activities restart the sequence.
func Next(a model.Activity) model.Activity {
	i := slices.Index(Sequence, a)
	if i < 0 {
		return Sequence[0]
	}
	return Sequence[(i+1)%len(Sequence)]
}
