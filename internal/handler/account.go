package handler

import (
	"net/http"

	"github.com/sentinelapp/sentinel/internal/auth"
	"github.com/sentinelapp/sentinel/internal/store"
	"github.com/sentinelapp/sentinel/internal/sync"
)

type AccountHandler struct {
	users  *store.UserStore
	engine *sync.Engine
}

func NewAccountHandler(users *store.UserStore, engine *sync.Engine) *AccountHandler {
	return &AccountHandler{users: users, engine: engine}
}

// DisconnectGoogle drops the stored Google credential and clears every
// calendar binding locally. No remote cleanup happens: without the
// credential the remote calendars are unreachable, and they remain in the
// user's own Google account.
func (h *AccountHandler) DisconnectGoogle(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if err := h.users.ClearGoogleToken(userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to disconnect account")
		return
	}
	if err := h.engine.RevokeAccount(userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear calendar bindings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"disconnected": true})
}
