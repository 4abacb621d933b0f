package repo

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/2beens/gymsession/internal/gymstats/workout"

	"github.com/google/uuid"
)

var _ workout.Store = (*MemRepo)(nil)

// MemRepo is an in-process workout.Store. It replicates the cascade rules of
// the SQL schemas and applies a ChangeSet all-or-nothing.
type MemRepo struct {
	mutex sync.RWMutex

	programs           map[uuid.UUID]workout.Program
	dayTemplates       map[uuid.UUID]workout.DayTemplate
	exerciseTemplates  map[uuid.UUID]workout.ExerciseTemplate
	sessions           map[uuid.UUID]workout.Session
	completedExercises map[uuid.UUID]workout.CompletedExercise
	sets               map[uuid.UUID]workout.ExerciseSet

	commits int
}

func NewMemRepo() *MemRepo {
	return &MemRepo{
		programs:           make(map[uuid.UUID]workout.Program),
		dayTemplates:       make(map[uuid.UUID]workout.DayTemplate),
		exerciseTemplates:  make(map[uuid.UUID]workout.ExerciseTemplate),
		sessions:           make(map[uuid.UUID]workout.Session),
		completedExercises: make(map[uuid.UUID]workout.CompletedExercise),
		sets:               make(map[uuid.UUID]workout.ExerciseSet),
	}
}

// Commits returns the number of non-empty change sets applied so far.
func (r *MemRepo) Commits() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.commits
}

func (r *MemRepo) GetDayTemplate(_ context.Context, id uuid.UUID) (*workout.DayTemplate, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	dt, ok := r.dayTemplates[id]
	if !ok {
		return nil, fmt.Errorf("day template %s: %w", id, workout.ErrNotFound)
	}
	return &dt, nil
}

func (r *MemRepo) ListExerciseTemplates(_ context.Context, dayTemplateID uuid.UUID) ([]workout.ExerciseTemplate, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	templates := make([]workout.ExerciseTemplate, 0)
	for _, et := range r.exerciseTemplates {
		if et.DayTemplateID == dayTemplateID {
			templates = append(templates, et)
		}
	}
	slices.SortFunc(templates, func(a, b workout.ExerciseTemplate) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return compareIDs(a.ID, b.ID)
	})
	return templates, nil
}

func (r *MemRepo) GetSession(_ context.Context, id uuid.UUID) (*workout.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, workout.ErrNotFound)
	}
	return copySession(s), nil
}

func (r *MemRepo) ListInProgressSessions(_ context.Context) ([]workout.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	sessions := make([]workout.Session, 0)
	for _, s := range r.sessions {
		if s.IsInProgress() {
			sessions = append(sessions, *copySession(s))
		}
	}
	slices.SortFunc(sessions, func(a, b workout.Session) int {
		return a.StartTime.Compare(*b.StartTime)
	})
	return sessions, nil
}

func (r *MemRepo) LatestBodyweight(_ context.Context) (float64, bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var latest *workout.Session
	for _, s := range r.sessions {
		if s.UserBodyweight <= 0 {
			continue
		}
		if latest == nil || sessionAfter(s, *latest) {
			latest = &s
		}
	}
	if latest == nil {
		return 0, false, nil
	}
	return latest.UserBodyweight, true, nil
}

func (r *MemRepo) ListCompletedExercises(_ context.Context, sessionID uuid.UUID) ([]workout.CompletedExercise, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	completed := make([]workout.CompletedExercise, 0)
	for _, ce := range r.completedExercises {
		if ce.SessionID == sessionID {
			completed = append(completed, ce)
		}
	}
	slices.SortFunc(completed, func(a, b workout.CompletedExercise) int {
		return compareIDs(a.ID, b.ID)
	})
	return completed, nil
}

func (r *MemRepo) ListSets(_ context.Context, completedExerciseID uuid.UUID) ([]workout.ExerciseSet, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	sets := make([]workout.ExerciseSet, 0)
	for _, s := range r.sets {
		if s.CompletedExerciseID == completedExerciseID {
			sets = append(sets, s)
		}
	}
	slices.SortFunc(sets, func(a, b workout.ExerciseSet) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return compareIDs(a.ID, b.ID)
	})
	return sets, nil
}

// Commit validates all foreign keys against the post-deletion state before
// touching anything, so a rejected change set leaves the repo unchanged.
func (r *MemRepo) Commit(_ context.Context, changes *workout.ChangeSet) error {
	if changes.IsEmpty() {
		return nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkReferences(changes); err != nil {
		return fmt.Errorf("commit changes: %w: %w", workout.ErrConstraint, err)
	}

	for _, id := range changes.DeletedSets {
		delete(r.sets, id)
	}
	for _, id := range changes.DeletedCompletedExercises {
		r.deleteCompletedExercise(id)
	}
	for _, id := range changes.DeletedExerciseTemplates {
		delete(r.exerciseTemplates, id)
		for ceID, ce := range r.completedExercises {
			if ce.ExerciseTemplateID == id {
				r.deleteCompletedExercise(ceID)
			}
		}
	}

	for _, p := range changes.Programs {
		r.programs[p.ID] = p
	}
	for _, dt := range changes.DayTemplates {
		r.dayTemplates[dt.ID] = dt
	}
	for _, et := range changes.ExerciseTemplates {
		r.exerciseTemplates[et.ID] = et
	}
	for _, s := range changes.Sessions {
		r.sessions[s.ID] = *copySession(s)
	}
	for _, ce := range changes.CompletedExercises {
		r.completedExercises[ce.ID] = ce
	}
	for _, s := range changes.Sets {
		r.sets[s.ID] = s
	}

	r.commits++
	return nil
}

func (r *MemRepo) deleteCompletedExercise(id uuid.UUID) {
	delete(r.completedExercises, id)
	for setID, s := range r.sets {
		if s.CompletedExerciseID == id {
			delete(r.sets, setID)
		}
	}
}

func (r *MemRepo) checkReferences(changes *workout.ChangeSet) error {
	deletedTemplates := toSet(changes.DeletedExerciseTemplates)
	deletedCompleted := toSet(changes.DeletedCompletedExercises)
	for _, ce := range r.completedExercises {
		if deletedTemplates[ce.ExerciseTemplateID] {
			deletedCompleted[ce.ID] = true
		}
	}

	programExists := func(id uuid.UUID) bool {
		_, ok := r.programs[id]
		return ok || slices.ContainsFunc(changes.Programs, func(p workout.Program) bool { return p.ID == id })
	}
	dayTemplateExists := func(id uuid.UUID) bool {
		_, ok := r.dayTemplates[id]
		return ok || slices.ContainsFunc(changes.DayTemplates, func(dt workout.DayTemplate) bool { return dt.ID == id })
	}
	templateExists := func(id uuid.UUID) bool {
		if deletedTemplates[id] {
			return false
		}
		_, ok := r.exerciseTemplates[id]
		return ok || slices.ContainsFunc(changes.ExerciseTemplates, func(et workout.ExerciseTemplate) bool { return et.ID == id })
	}
	sessionExists := func(id uuid.UUID) bool {
		_, ok := r.sessions[id]
		return ok || slices.ContainsFunc(changes.Sessions, func(s workout.Session) bool { return s.ID == id })
	}
	completedExists := func(id uuid.UUID) bool {
		if deletedCompleted[id] {
			return false
		}
		_, ok := r.completedExercises[id]
		return ok || slices.ContainsFunc(changes.CompletedExercises, func(ce workout.CompletedExercise) bool { return ce.ID == id })
	}

	for _, dt := range changes.DayTemplates {
		if !programExists(dt.ProgramID) {
			return fmt.Errorf("day template %s references missing program %s", dt.ID, dt.ProgramID)
		}
	}
	for _, et := range changes.ExerciseTemplates {
		if !dayTemplateExists(et.DayTemplateID) {
			return fmt.Errorf("exercise template %s references missing day template %s", et.ID, et.DayTemplateID)
		}
	}
	for _, s := range changes.Sessions {
		if !dayTemplateExists(s.DayTemplateID) {
			return fmt.Errorf("session %s references missing day template %s", s.ID, s.DayTemplateID)
		}
	}
	for _, ce := range changes.CompletedExercises {
		if !sessionExists(ce.SessionID) {
			return fmt.Errorf("completed exercise %s references missing session %s", ce.ID, ce.SessionID)
		}
		if !templateExists(ce.ExerciseTemplateID) {
			return fmt.Errorf("completed exercise %s references missing exercise template %s", ce.ID, ce.ExerciseTemplateID)
		}
		for _, existing := range r.completedExercises {
			if existing.ID != ce.ID && !deletedCompleted[existing.ID] &&
				existing.SessionID == ce.SessionID && existing.ExerciseTemplateID == ce.ExerciseTemplateID {
				return fmt.Errorf("completed exercise for session %s and template %s already exists", ce.SessionID, ce.ExerciseTemplateID)
			}
		}
	}
	for _, s := range changes.Sets {
		if !completedExists(s.CompletedExerciseID) {
			return fmt.Errorf("set %s references missing completed exercise %s", s.ID, s.CompletedExerciseID)
		}
	}
	return nil
}

func toSet(ids []uuid.UUID) map[uuid.UUID]bool {
	m := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func copySession(s workout.Session) *workout.Session {
	c := s
	if s.StartTime != nil {
		t := *s.StartTime
		c.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return &c
}

func sessionAfter(a, b workout.Session) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	if a.StartTime == nil || b.StartTime == nil {
		return a.StartTime != nil
	}
	return a.StartTime.After(*b.StartTime)
}

func compareIDs(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
