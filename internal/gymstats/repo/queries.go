package repo

import "regexp"

// Queries are written with Postgres placeholders; the SQLite repo rebinds
// them to numbered question marks.
const (
	queryGetDayTemplate = `
		SELECT id, program_id, name, notes, sort_order
		FROM workout_day_template
		WHERE id = $1`

	queryListExerciseTemplates = `
		SELECT id, day_template_id, name, muscle_group, notes, sort_order, target_sets, superset_group
		FROM workout_exercise_template
		WHERE day_template_id = $1
		ORDER BY sort_order, id`

	querySessionColumns = `
		SELECT id, day_template_id, date, start_time, end_time, sleep_hours, protein_grams, user_bodyweight, notes
		FROM workout_session`

	queryGetSession = querySessionColumns + `
		WHERE id = $1`

	queryListInProgressSessions = querySessionColumns + `
		WHERE start_time IS NOT NULL AND end_time IS NULL
		ORDER BY start_time`

	queryLatestBodyweight = `
		SELECT user_bodyweight
		FROM workout_session
		WHERE user_bodyweight > 0
		ORDER BY date DESC, start_time DESC
		LIMIT 1`

	queryListCompletedExercises = `
		SELECT id, session_id, exercise_template_id
		FROM workout_completed_exercise
		WHERE session_id = $1
		ORDER BY id`

	queryListSets = `
		SELECT id, completed_exercise_id, sort_order, weight, reps, is_completed, is_bodyweight, extra_weight, rest_seconds
		FROM workout_exercise_set
		WHERE completed_exercise_id = $1
		ORDER BY sort_order, id`

	queryDeleteSet               = `DELETE FROM workout_exercise_set WHERE id = $1`
	queryDeleteCompletedExercise = `DELETE FROM workout_completed_exercise WHERE id = $1`
	queryDeleteExerciseTemplate  = `DELETE FROM workout_exercise_template WHERE id = $1`

	queryUpsertProgram = `
		INSERT INTO workout_program (id, name, notes, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			notes = excluded.notes`

	queryUpsertDayTemplate = `
		INSERT INTO workout_day_template (id, program_id, name, notes, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			notes = excluded.notes,
			sort_order = excluded.sort_order`

	queryUpsertExerciseTemplate = `
		INSERT INTO workout_exercise_template (id, day_template_id, name, muscle_group, notes, sort_order, target_sets, superset_group)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			muscle_group = excluded.muscle_group,
			notes = excluded.notes,
			sort_order = excluded.sort_order,
			target_sets = excluded.target_sets,
			superset_group = excluded.superset_group`

	queryUpsertSession = `
		INSERT INTO workout_session (id, day_template_id, date, start_time, end_time, sleep_hours, protein_grams, user_bodyweight, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			sleep_hours = excluded.sleep_hours,
			protein_grams = excluded.protein_grams,
			user_bodyweight = excluded.user_bodyweight,
			notes = excluded.notes`

	queryUpsertCompletedExercise = `
		INSERT INTO workout_completed_exercise (id, session_id, exercise_template_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`

	queryUpsertSet = `
		INSERT INTO workout_exercise_set (id, completed_exercise_id, sort_order, weight, reps, is_completed, is_bodyweight, extra_weight, rest_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			sort_order = excluded.sort_order,
			weight = excluded.weight,
			reps = excluded.reps,
			is_completed = excluded.is_completed,
			is_bodyweight = excluded.is_bodyweight,
			extra_weight = excluded.extra_weight,
			rest_seconds = excluded.rest_seconds`
)

var postgresPlaceholder = regexp.MustCompile(`\$(\d+)`)

func rebindNumbered(query string) string {
	return postgresPlaceholder.ReplaceAllString(query, "?$1")
}
