// Package programs imports workout programs described in YAML into a
// workout.Store.
package programs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/grouping"
	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

var ErrInvalidProgram = errors.New("invalid program")

// File is the YAML layout of a program:
//
//	name: Upper / Lower
//	days:
//	  - name: Upper A
//	    exercises:
//	      - name: Bench Press
//	        muscle_group: chest
//	        target_sets: 3
//	      - name: Row
//	        target_sets: 3
//	        superset: 1
//	      - name: Curl
//	        target_sets: 3
//	        superset: 1
type File struct {
	Name  string `yaml:"name"`
	Notes string `yaml:"notes"`
	Days  []Day  `yaml:"days"`
}

type Day struct {
	Name      string     `yaml:"name"`
	Notes     string     `yaml:"notes"`
	Exercises []Exercise `yaml:"exercises"`
}

type Exercise struct {
	Name        string `yaml:"name"`
	MuscleGroup string `yaml:"muscle_group"`
	Notes       string `yaml:"notes"`
	TargetSets  int    `yaml:"target_sets"`
	Superset    int    `yaml:"superset"`
}

func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalidProgram)
		}
		return nil, fmt.Errorf("%w: parse yaml: %w", ErrInvalidProgram, err)
	}
	return &f, nil
}

// Build validates the file and turns it into a single change set with fresh
// identities. Exercise order follows the file.
func Build(f *File, createdAt time.Time) (*workout.ChangeSet, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: program name empty", ErrInvalidProgram)
	}
	if len(f.Days) == 0 {
		return nil, fmt.Errorf("%w: program [%s] has no days", ErrInvalidProgram, name)
	}

	program := workout.Program{
		ID:        uuid.New(),
		Name:      name,
		Notes:     strings.TrimSpace(f.Notes),
		CreatedAt: createdAt,
	}
	changes := &workout.ChangeSet{Programs: []workout.Program{program}}

	for di, d := range f.Days {
		dayName := strings.TrimSpace(d.Name)
		if dayName == "" {
			return nil, fmt.Errorf("%w: day %d name empty", ErrInvalidProgram, di+1)
		}
		day := workout.DayTemplate{
			ID:        uuid.New(),
			ProgramID: program.ID,
			Name:      dayName,
			Notes:     strings.TrimSpace(d.Notes),
			Order:     di,
		}

		templates := make([]workout.ExerciseTemplate, 0, len(d.Exercises))
		for ei, e := range d.Exercises {
			exName := strings.TrimSpace(e.Name)
			if exName == "" {
				return nil, fmt.Errorf("%w: day [%s] exercise %d name empty", ErrInvalidProgram, dayName, ei+1)
			}
			if e.TargetSets < 1 {
				return nil, fmt.Errorf("%w: day [%s] exercise [%s] needs at least one set", ErrInvalidProgram, dayName, exName)
			}
			templates = append(templates, workout.ExerciseTemplate{
				ID:            uuid.New(),
				DayTemplateID: day.ID,
				Name:          exName,
				MuscleGroup:   strings.TrimSpace(e.MuscleGroup),
				Notes:         strings.TrimSpace(e.Notes),
				Order:         ei,
				TargetSets:    e.TargetSets,
				SupersetGroup: e.Superset,
			})
		}
		if err := grouping.Validate(templates); err != nil {
			return nil, fmt.Errorf("%w: day [%s]: %w", ErrInvalidProgram, dayName, err)
		}

		changes.DayTemplates = append(changes.DayTemplates, day)
		changes.ExerciseTemplates = append(changes.ExerciseTemplates, templates...)
	}
	return changes, nil
}

// Import parses, validates and commits a program in one change set, returning
// what was committed.
func Import(ctx context.Context, store workout.Store, r io.Reader, now time.Time) (_ *workout.ChangeSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "programs.import")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	f, err := Parse(r)
	if err != nil {
		return nil, err
	}
	changes, err := Build(f, now)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("program", f.Name),
		attribute.Int("days", len(changes.DayTemplates)),
	)

	if err := store.Commit(ctx, changes); err != nil {
		return nil, fmt.Errorf("commit program: %w", err)
	}

	log.Infof("program [%s] imported: %d days, %d exercises", changes.Programs[0].Name, len(changes.DayTemplates), len(changes.ExerciseTemplates))
	return changes, nil
}
