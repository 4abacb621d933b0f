package workout

import "github.com/google/uuid"

// ExerciseSet is one logged set. Order is the 0-based position within the
// completed exercise, which doubles as the round index inside a superset.
// A negative RestSeconds marks the set as part of a drop-set cluster.
type ExerciseSet struct {
	ID                  uuid.UUID `json:"id"`
	CompletedExerciseID uuid.UUID `json:"completedExerciseId"`
	Order               int       `json:"order"`
	Weight              float64   `json:"weight"`
	Reps                int       `json:"reps"`
	IsCompleted         bool      `json:"isCompleted"`
	IsBodyweight        bool      `json:"isBodyweight"`
	ExtraWeight         float64   `json:"extraWeight"`
	RestSeconds         int       `json:"restSeconds"`
}

func NewEmptySet(completedExerciseID uuid.UUID, order int) ExerciseSet {
	return ExerciseSet{
		ID:                  uuid.New(),
		CompletedExerciseID: completedExerciseID,
		Order:               order,
	}
}

func (s ExerciseSet) HasValidWeight() bool {
	if s.IsBodyweight {
		return s.ExtraWeight >= 0
	}
	return s.Weight > 0
}

// Completed derives the completion flag from the current field values.
func (s ExerciseSet) Completed() bool {
	return s.HasValidWeight() && s.Reps > 0
}

// Refresh recomputes IsCompleted and reports whether the stored value changed.
func (s *ExerciseSet) Refresh() bool {
	completed := s.Completed()
	if completed == s.IsCompleted {
		return false
	}
	s.IsCompleted = completed
	return true
}

// SetBodyweight toggles bodyweight mode. Both weight fields are cleared on a
// real toggle, so switching back never resurrects a stale load.
func (s *ExerciseSet) SetBodyweight(on bool) {
	if s.IsBodyweight == on {
		return
	}
	s.IsBodyweight = on
	s.Weight = 0
	s.ExtraWeight = 0
}

func (s ExerciseSet) EffectiveWeight(userBodyweight float64) float64 {
	if s.IsBodyweight {
		return userBodyweight + s.ExtraWeight
	}
	return s.Weight
}

func (s ExerciseSet) IsDropSet() bool {
	return s.RestSeconds < 0
}

// IsEmpty is true for a set nothing has been entered into yet.
func (s ExerciseSet) IsEmpty() bool {
	return !s.IsCompleted && s.Weight == 0 && s.Reps == 0 && s.ExtraWeight == 0
}
