package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sentinelapp/sentinel/internal/auth"
	"github.com/sentinelapp/sentinel/internal/gcal"
	"github.com/sentinelapp/sentinel/internal/model"
	"github.com/sentinelapp/sentinel/internal/store"
	"github.com/sentinelapp/sentinel/internal/sync"
)

type EventHandler struct {
	events *store.EventStore
	users  *store.UserStore
	engine *sync.Engine
}

func NewEventHandler(events *store.EventStore, users *store.UserStore, engine *sync.Engine) *EventHandler {
	return &EventHandler{events: events, users: users, engine: engine}
}

// List returns the user's events, optionally filtered by courseId.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var (
		events []model.Event
		err    error
	)
	if raw := r.URL.Query().Get("courseId"); raw != "" {
		courseID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || courseID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid courseId")
			return
		}
		events, err = h.events.ListByCourse(courseID, userID)
	} else {
		events, err = h.events.ListByUser(userID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

type eventUpdateRequest struct {
	Completed *bool `json:"completed"`
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID := auth.UserID(r.Context())

	var req eventUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Completed == nil {
		writeError(w, http.StatusBadRequest, "completed is required")
		return
	}

	existing, err := h.events.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	event, err := h.events.SetCompleted(id, userID, *req.Completed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Delete removes an event, including its remote calendar copy when one was
// pushed and the user still has a Google credential.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID := auth.UserID(r.Context())

	event, err := h.events.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	cred := gcal.Credential{}
	if event.Synced {
		user, err := h.users.GetByID(userID)
		if err == nil && user != nil {
			cred.RefreshToken = user.RefreshToken
		}
	}

	if event.Synced && cred.RefreshToken != "" {
		if err := h.engine.RemoveEvent(r.Context(), cred, id, userID); err != nil {
			writeError(w, http.StatusBadGateway, "failed to remove event from calendar")
			return
		}
	} else if err := h.events.Delete(id, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
