package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/units"
	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/telemetry/tracing"
	"github.com/2beens/gymsession/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type StartSessionRequest struct {
	DayTemplateID uuid.UUID `json:"dayTemplateId"`
}

// SetInputRequest is a set edit with weights in Unit (kilograms by default).
type SetInputRequest struct {
	Weight       *float64 `json:"weight,omitempty"`
	Reps         *int     `json:"reps,omitempty"`
	IsBodyweight *bool    `json:"isBodyweight,omitempty"`
	ExtraWeight  *float64 `json:"extraWeight,omitempty"`
	Unit         string   `json:"unit,omitempty"`
}

type RestRequest struct {
	Seconds int `json:"seconds"`
}

type SetInputResponse struct {
	Result InputResult `json:"result"`
	View   SessionView `json:"view"`
}

type Handler struct {
	manager *Manager
	starter *Starter
}

func NewHandler(manager *Manager, starter *Starter) *Handler {
	return &Handler{
		manager: manager,
		starter: starter,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	workoutRouter := r.PathPrefix("/workout").Subrouter()
	workoutRouter.HandleFunc("/sessions", handler.HandleStart).Methods("POST", "OPTIONS").Name("start-session")
	workoutRouter.HandleFunc("/sessions/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-session")
	workoutRouter.HandleFunc("/sessions/{id}/sets/{setId}", handler.HandleSetInput).Methods("POST", "OPTIONS").Name("set-input")
	workoutRouter.HandleFunc("/sessions/{id}/next", handler.HandleNext).Methods("POST", "OPTIONS").Name("next-group")
	workoutRouter.HandleFunc("/sessions/{id}/previous", handler.HandlePrevious).Methods("POST", "OPTIONS").Name("previous-group")
	workoutRouter.HandleFunc("/sessions/{id}/exercises", handler.HandleAddExercise).Methods("POST", "OPTIONS").Name("add-exercise")
	workoutRouter.HandleFunc("/sessions/{id}/exercises/current", handler.HandleDeleteCurrent).Methods("DELETE", "OPTIONS").Name("delete-exercise")
	workoutRouter.HandleFunc("/sessions/{id}/exercises/{templateId}/sets", handler.HandleAddSet).Methods("POST", "OPTIONS").Name("add-set")
	workoutRouter.HandleFunc("/sessions/{id}/exercises/{templateId}/sets", handler.HandleRemoveSet).Methods("DELETE", "OPTIONS").Name("remove-set")
	workoutRouter.HandleFunc("/sessions/{id}/groups/{group}/rounds", handler.HandleAddRound).Methods("POST", "OPTIONS").Name("add-round")
	workoutRouter.HandleFunc("/sessions/{id}/groups/{group}/rounds", handler.HandleRemoveRound).Methods("DELETE", "OPTIONS").Name("remove-round")
	workoutRouter.HandleFunc("/sessions/{id}/rest/{action}", handler.HandleRest).Methods("POST", "OPTIONS").Name("rest")
	workoutRouter.HandleFunc("/sessions/{id}/lifecycle/{state}", handler.HandleLifecycle).Methods("POST", "OPTIONS").Name("lifecycle")
	workoutRouter.HandleFunc("/sessions/{id}/finish", handler.HandleFinish).Methods("POST", "OPTIONS").Name("finish-session")
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.start")
	defer span.End()

	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("start session, unmarshal json params: %s", err)
		http.Error(w, "start session failed", http.StatusBadRequest)
		return
	}
	if req.DayTemplateID == uuid.Nil {
		http.Error(w, "error, day template id empty", http.StatusBadRequest)
		return
	}

	session, err := handler.starter.Start(ctx, req.DayTemplateID)
	if err != nil {
		if errors.Is(err, workout.ErrNotFound) {
			http.Error(w, "day template not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to start session for day %s: %s", req.DayTemplateID, err)
		http.Error(w, "error, failed to start session", http.StatusInternalServerError)
		return
	}

	c, err := handler.manager.Attach(ctx, session.ID)
	if err != nil {
		log.Errorf("failed to attach new session %s: %s", session.ID, err)
		http.Error(w, "error, failed to start session", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.get")
	defer span.End()

	c, ok := handler.controller(w, r)
	if !ok {
		return
	}
	if _, err := c.Tick(ctx); err != nil {
		log.Errorf("session %s: tick: %s", c.SessionID(), err)
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusOK)
}

func (handler *Handler) HandleSetInput(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.set")
	defer span.End()

	setID, err := uuid.Parse(mux.Vars(r)["setId"])
	if err != nil {
		http.Error(w, "error, invalid set id", http.StatusBadRequest)
		return
	}
	var req SetInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("set input, unmarshal json params: %s", err)
		http.Error(w, "set input failed", http.StatusBadRequest)
		return
	}
	unit := requestUnit(r, req.Unit)

	c, ok := handler.controller(w, r)
	if !ok {
		return
	}

	in := SetInput{
		Reps:         req.Reps,
		IsBodyweight: req.IsBodyweight,
	}
	if req.Weight != nil {
		kg := units.ToStorage(*req.Weight, unit)
		in.Weight = &kg
	}
	if req.ExtraWeight != nil {
		kg := units.ToStorage(*req.ExtraWeight, unit)
		in.ExtraWeight = &kg
	}

	result, err := c.RecordSetInput(ctx, setID, in)
	if err != nil {
		if !errors.Is(err, ErrRestTimer) {
			handler.writeControllerError(w, err)
			return
		}
		// the input was applied, only the rest timer failed
		log.Errorf("session %s: set %s: %s", c.SessionID(), setID, err)
	}
	pkg.WriteJSON(w, SetInputResponse{Result: result, View: c.View(unit)}, http.StatusOK)
}

func (handler *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.next")
	defer span.End()

	c, ok := handler.controller(w, r)
	if !ok {
		return
	}
	if _, err := c.GoToNext(ctx); err != nil {
		log.Errorf("session %s: go to next: %s", c.SessionID(), err)
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusOK)
}

func (handler *Handler) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.previous")
	defer span.End()

	c, ok := handler.controller(w, r)
	if !ok {
		return
	}
	if _, err := c.GoToPrevious(ctx); err != nil {
		log.Errorf("session %s: go to previous: %s", c.SessionID(), err)
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusOK)
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.exercise.add")
	defer span.End()

	var ne NewExercise
	if err := json.NewDecoder(r.Body).Decode(&ne); err != nil {
		log.Errorf("add exercise, unmarshal json params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}

	c, ok := handler.controller(w, r)
	if !ok {
		return
	}
	if _, err := c.AddExercise(ctx, ne); err != nil {
		handler.writeControllerError(w, err)
		return
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusCreated)
}

func (handler *Handler) HandleDeleteCurrent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.exercise.delete")
	defer span.End()

	c, ok := handler.controller(w, r)
	if !ok {
		return
	}
	deleted, err := c.DeleteCurrentExercise(ctx)
	if err != nil {
		handler.writeControllerError(w, err)
		return
	}
	if !deleted {
		http.Error(w, "current exercise cannot be deleted", http.StatusConflict)
		return
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusOK)
}

func (handler *Handler) HandleAddSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.set.add")
	defer span.End()

	templateID, err := uuid.Parse(mux.Vars(r)["templateId"])
	if err != nil {
		http.Error(w, "error, invalid exercise id", http.StatusBadRequest)
		return
	}
	c, ok := handler.controller(w, r)
	if !ok {
		return
	}
	if _, err := c.AddSet(ctx, templateID); err != nil {
		handler.writeControllerError(w, err)
		return
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusCreated)
}

func (handler *Handler) HandleRemoveSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.set.remove")
	defer span.End()

	templateID, err := uuid.Parse(mux.Vars(r)["templateId"])
	if err != nil {
		http.Error(w, "error, invalid exercise id", http.StatusBadRequest)
		return
	}
	c, ok := handler.controller(w, r)
	if !ok {
		return
	}
	removed, err := c.RemoveSet(ctx, templateID)
	if err != nil {
		handler.writeControllerError(w, err)
		return
	}
	if !removed {
		http.Error(w, "last set cannot be removed", http.StatusConflict)
		return
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusOK)
}

func (handler *Handler) HandleAddRound(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.round.add")
	defer span.End()

	groupIdx, err := strconv.Atoi(mux.Vars(r)["group"])
	if err != nil {
		http.Error(w, "error, group NaN", http.StatusBadRequest)
		return
	}
	c, ok := handler.controller(w, r)
	if !ok {
		return
	}
	if err := c.AddRound(ctx, groupIdx); err != nil {
		handler.writeControllerError(w, err)
		return
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusCreated)
}

func (handler *Handler) HandleRemoveRound(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.round.remove")
	defer span.End()

	groupIdx, err := strconv.Atoi(mux.Vars(r)["group"])
	if err != nil {
		http.Error(w, "error, group NaN", http.StatusBadRequest)
		return
	}
	c, ok := handler.controller(w, r)
	if !ok {
		return
	}
	removed, err := c.RemoveRound(ctx, groupIdx)
	if err != nil {
		handler.writeControllerError(w, err)
		return
	}
	if !removed {
		http.Error(w, "last round cannot be removed", http.StatusConflict)
		return
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusOK)
}

func (handler *Handler) HandleRest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.rest")
	defer span.End()

	var req RestRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Errorf("rest, unmarshal json params: %s", err)
			http.Error(w, "rest action failed", http.StatusBadRequest)
			return
		}
	}
	if req.Seconds < 0 {
		http.Error(w, "error, negative rest duration", http.StatusBadRequest)
		return
	}
	d := time.Duration(req.Seconds) * time.Second

	c, ok := handler.controller(w, r)
	if !ok {
		return
	}

	var err error
	switch action := mux.Vars(r)["action"]; action {
	case "start":
		err = c.StartRest(ctx, d)
	case "reset":
		err = c.ResetRest(ctx, d)
	case "pause":
		err = c.PauseRest(ctx)
	case "resume":
		err = c.ResumeRest(ctx)
	case "skip":
		err = c.SkipRest(ctx)
	default:
		http.Error(w, "error, unknown rest action", http.StatusBadRequest)
		return
	}
	if err != nil {
		handler.writeControllerError(w, err)
		return
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusOK)
}

func (handler *Handler) HandleLifecycle(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.lifecycle")
	defer span.End()

	c, ok := handler.controller(w, r)
	if !ok {
		return
	}

	var err error
	switch state := mux.Vars(r)["state"]; state {
	case "background":
		err = c.EnterBackground(ctx)
	case "foreground":
		err = c.EnterForeground(ctx)
	default:
		http.Error(w, "error, unknown lifecycle state", http.StatusBadRequest)
		return
	}
	if err != nil {
		handler.writeControllerError(w, err)
		return
	}
	pkg.WriteJSON(w, c.View(requestUnit(r, "")), http.StatusOK)
}

func (handler *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.finish")
	defer span.End()

	c, ok := handler.controller(w, r)
	if !ok {
		return
	}
	if err := c.Finish(ctx); err != nil {
		handler.writeControllerError(w, err)
		return
	}
	view := c.View(requestUnit(r, ""))
	if err := handler.manager.Detach(ctx, c.SessionID()); err != nil {
		log.Errorf("detach finished session %s: %s", c.SessionID(), err)
	}
	pkg.WriteJSON(w, view, http.StatusOK)
}

// controller resolves the session of the request, writing the error response
// when it cannot.
func (handler *Handler) controller(w http.ResponseWriter, r *http.Request) (*Controller, bool) {
	sessionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, invalid session id", http.StatusBadRequest)
		return nil, false
	}
	c, err := handler.manager.Attach(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, workout.ErrNotFound):
			http.Error(w, "session not found", http.StatusNotFound)
		case errors.Is(err, ErrNotInProgress):
			http.Error(w, "session is not in progress", http.StatusConflict)
		default:
			log.Errorf("failed to attach session %s: %s", sessionID, err)
			http.Error(w, "error, failed to load session", http.StatusInternalServerError)
		}
		return nil, false
	}
	return c, true
}

func (handler *Handler) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidTarget):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrSessionFinished):
		http.Error(w, "session is finished", http.StatusConflict)
	case errors.Is(err, workout.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		log.Errorf("workout request failed: %s", err)
		http.Error(w, "error, workout request failed", http.StatusInternalServerError)
	}
}

func requestUnit(r *http.Request, bodyUnit string) units.Unit {
	raw := bodyUnit
	if raw == "" {
		raw = r.URL.Query().Get("unit")
	}
	if raw == "" {
		return units.Kilograms
	}
	unit, err := units.ParseUnit(raw)
	if err != nil {
		return units.Kilograms
	}
	return unit
}
