package portal

import (
	"errors"
	"net/http"

	"feedback-portal/internal/contextutil"
	"feedback-portal/internal/feedback"
	"feedback-portal/internal/gate"
	myErr "feedback-portal/internal/types/errors"
	"feedback-portal/internal/views"
)

func (h *PortalHandler) Home(w http.ResponseWriter, r *http.Request) {
	p := h.page(r, "Home")
	h.withSnapshot(r, &p)
	h.Views.Render(w, http.StatusOK, views.PageHome, p)
}

func (h *PortalHandler) FeedbackPage(w http.ResponseWriter, r *http.Request) {
	p := h.page(r, "Feedback")
	h.withSnapshot(r, &p)
	h.Views.Render(w, http.StatusOK, views.PageFeedback, p)
}

func (h *PortalHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := contextutil.GetSessionIDFromContext(r.Context())

	err := h.Store.SubmitFeedback(r.Context(), sessionID, r.PostFormValue("feedback"))
	if err != nil {
		switch {
		case errors.Is(err, myErr.ErrNoAuth):
			http.Redirect(w, r, gate.PathLogin, http.StatusSeeOther)
			return
		case errors.Is(err, myErr.ErrEmptyFeedback):
			h.renderFeedbackError(w, r, http.StatusBadRequest, msgEmptyFeedback)
			return
		}

		h.renderFeedbackError(w, r, http.StatusBadGateway, msgSubmitFailed)
		return
	}

	username, _ := contextutil.GetUsernameFromContext(r.Context())
	h.Logger.Infow("Feedback submitted", "username", username)

	http.Redirect(w, r, gate.PathFeedback, http.StatusSeeOther)
}

func (h *PortalHandler) renderFeedbackError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	p := h.page(r, "Feedback")
	h.withSnapshot(r, &p)
	p.Error = msg
	h.Views.Render(w, status, views.PageFeedback, p)
}

func (h *PortalHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	p := h.page(r, "Analytics")
	h.withSnapshot(r, &p)
	h.Views.Render(w, http.StatusOK, views.PageAnalytics, p)
}

// withSnapshot подставляет кэш данных сессии, отзывы фильтруются по роли.
// Аналитику видит только администратор
func (h *PortalHandler) withSnapshot(r *http.Request, p *views.Page) {
	sess := contextutil.GetSession(r.Context())
	if !sess.Authenticated() {
		return
	}

	snap, err := h.Store.Snapshot(r.Context(), sess.ID)
	if err != nil {
		h.Logger.Errorw("Failed to load snapshot", "sessionID", sess.ID, "error", err)
		p.Error = msgLoadFailed
		return
	}
	if snap == nil {
		return
	}

	p.Loaded = true
	p.LoadedAt = snap.LoadedAt
	p.Feedback = feedback.FilterCollection(sess.Role, sess.Username, snap.Feedback)
	if sess.Role.IsAdmin() {
		p.Analytics = snap.Analytics
	}
}
