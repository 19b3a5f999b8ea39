package portal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"feedback-portal/internal/contextutil"
	"feedback-portal/internal/session"
	myErr "feedback-portal/internal/types/errors"
	"feedback-portal/internal/types/user"
)

const heartbeatInterval = 25 * time.Second

// State - состояние сессии, которое видит браузер.
// Username передается всегда: скрипт страницы сравнивает его со своим
type State struct {
	State    string    `json:"state"`
	Username string    `json:"username"`
	Role     user.Role `json:"role,omitempty"`
}

func stateOf(sess session.Session) State {
	st := State{State: sess.Access().String()}
	if sess.Authenticated() {
		st.Username = sess.Username
		st.Role = sess.Role
	}
	return st
}

// SessionInfo - текущая личность в JSON
func (h *PortalHandler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stateOf(contextutil.GetSession(r.Context()))); err != nil {
		h.Logger.Error(err)
	}
}

// Events - поток Server-Sent Events с состоянием сессии. Открытые вкладки
// перезагружаются, когда в другой вкладке выполнен вход или выход
func (h *PortalHandler) Events(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := contextutil.GetSessionIDFromContext(r.Context())
	if !ok {
		myErr.SendErrorTo(w, myErr.ErrSessionNotFound, http.StatusUnauthorized, h.Logger)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	states, err := h.Store.Watch(r.Context(), sessionID)
	if err != nil {
		h.Logger.Errorw("Failed to watch session", "sessionID", sessionID, "error", err)
		myErr.SendErrorTo(w, err, http.StatusInternalServerError, h.Logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// начальное состояние: вкладка сравнит его с тем, что уже нарисовала
	if cur, err := h.Store.Current(r.Context(), sessionID); err == nil {
		if err := writeState(w, cur); err != nil {
			return
		}
		flusher.Flush()
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case sess, ok := <-states:
			if !ok {
				return
			}
			if err := writeState(w, sess); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeState(w http.ResponseWriter, sess session.Session) error {
	data, err := json.Marshal(stateOf(sess))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: session\ndata: %s\n\n", data)
	return err
}
