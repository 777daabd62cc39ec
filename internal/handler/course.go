package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sentinelapp/sentinel/internal/auth"
	"github.com/sentinelapp/sentinel/internal/gcal"
	"github.com/sentinelapp/sentinel/internal/model"
	"github.com/sentinelapp/sentinel/internal/store"
	"github.com/sentinelapp/sentinel/internal/sync"
)

type CourseHandler struct {
	courses *store.CourseStore
	users   *store.UserStore
	engine  *sync.Engine
	logger  *slog.Logger
}

func NewCourseHandler(courses *store.CourseStore, users *store.UserStore, engine *sync.Engine, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{courses: courses, users: users, engine: engine, logger: logger}
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list courses")
		return
	}
	if courses == nil {
		courses = []model.Course{}
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	course, err := h.courses.GetByID(id, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get course")
		return
	}
	if course == nil {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	writeJSON(w, http.StatusOK, course)
}

type courseUpdateRequest struct {
	Color *string `json:"color"`
}

// Update changes course display settings. A color change propagates to the
// remote calendar when one is bound; that remote call is best-effort.
func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID := auth.UserID(r.Context())

	var req courseUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Color == nil {
		writeError(w, http.StatusBadRequest, "color is required")
		return
	}
	if !model.ValidColor(*req.Color) {
		writeError(w, http.StatusBadRequest, "unknown color")
		return
	}

	existing, err := h.courses.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get course")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}

	course, err := h.courses.UpdateColor(id, userID, *req.Color)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update course")
		return
	}

	if course.Bound() {
		if cred, ok := h.credential(userID); ok {
			if err := h.engine.UpdateColor(r.Context(), cred, course); err != nil {
				h.logger.Warn("failed to update remote calendar color", "course_id", course.ID, "error", err)
			}
		}
	}
	writeJSON(w, http.StatusOK, course)
}

// Delete removes a course and its events. A bound remote calendar is torn
// down first when the user still has a credential; a remote failure does
// not block the local delete.
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID := auth.UserID(r.Context())

	course, err := h.courses.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get course")
		return
	}
	if course == nil {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}

	if course.Bound() {
		if cred, ok := h.credential(userID); ok {
			if err := h.engine.Unbind(r.Context(), cred, course.ID, userID); err != nil {
				h.logger.Warn("failed to remove calendar before course delete", "course_id", course.ID, "error", err)
			}
		}
	}

	if err := h.courses.Delete(id, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete course")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CourseHandler) credential(userID int64) (gcal.Credential, bool) {
	user, err := h.users.GetByID(userID)
	if err != nil || user == nil || user.RefreshToken == "" {
		return gcal.Credential{}, false
	}
	return gcal.Credential{RefreshToken: user.RefreshToken}, true
}
