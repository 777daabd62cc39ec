package handler

import (
	"errors"
	"net/http"

	"github.com/sentinelapp/sentinel/internal/auth"
	"github.com/sentinelapp/sentinel/internal/gcal"
	"github.com/sentinelapp/sentinel/internal/store"
	"github.com/sentinelapp/sentinel/internal/sync"
)

// CalendarHandler drives the course-to-calendar binding lifecycle.
type CalendarHandler struct {
	engine *sync.Engine
	users  *store.UserStore
}

func NewCalendarHandler(engine *sync.Engine, users *store.UserStore) *CalendarHandler {
	return &CalendarHandler{engine: engine, users: users}
}

// Bind creates a dedicated calendar for the course and pushes its events.
func (h *CalendarHandler) Bind(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID := auth.UserID(r.Context())
	cred, ok := h.credential(w, userID)
	if !ok {
		return
	}

	summary, err := h.engine.Bind(r.Context(), cred, id, userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

// Unbind deletes the course's calendar and clears local sync state.
func (h *CalendarHandler) Unbind(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID := auth.UserID(r.Context())
	cred, ok := h.credential(w, userID)
	if !ok {
		return
	}

	if err := h.engine.Unbind(r.Context(), cred, id, userID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync pushes pending events onto the bound calendar.
func (h *CalendarHandler) Sync(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID := auth.UserID(r.Context())
	cred, ok := h.credential(w, userID)
	if !ok {
		return
	}

	summary, err := h.engine.Push(r.Context(), cred, id, userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Retract removes pushed events from the calendar without unbinding it.
func (h *CalendarHandler) Retract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID := auth.UserID(r.Context())
	cred, ok := h.credential(w, userID)
	if !ok {
		return
	}

	summary, err := h.engine.Retract(r.Context(), cred, id, userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *CalendarHandler) credential(w http.ResponseWriter, userID int64) (gcal.Credential, bool) {
	user, err := h.users.GetByID(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return gcal.Credential{}, false
	}
	if user == nil || user.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Google account not connected")
		return gcal.Credential{}, false
	}
	return gcal.Credential{RefreshToken: user.RefreshToken}, true
}

func (h *CalendarHandler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sync.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, "course not found")
	case errors.Is(err, sync.ErrAlreadyBound):
		writeError(w, http.StatusConflict, "course already has a calendar")
	case errors.Is(err, sync.ErrNotBound):
		writeError(w, http.StatusConflict, "course has no calendar")
	default:
		writeError(w, http.StatusBadGateway, "calendar operation failed")
	}
}
