package portal

import (
	"net/http"
	"strings"

	"feedback-portal/internal/contextutil"
	"feedback-portal/internal/gate"
	"feedback-portal/internal/session"
	myErr "feedback-portal/internal/types/errors"
	"feedback-portal/internal/views"
	"feedback-portal/internal/wrappers/backend"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	msgInvalidLogin       = "Invalid username or password"
	msgUsernameExists     = "Username already exists"
	msgRegistrationFailed = "Registration failed. Please try again."
	msgRegistered         = "Registration successful. Please log in."
	msgEmptyFeedback      = "Feedback cannot be empty"
	msgSubmitFailed       = "Failed to submit feedback. Please try again."
	msgLoadFailed         = "Failed to load data. Showing the last loaded data."
)

type PortalHandler struct {
	Logger  *zap.SugaredLogger
	Store   session.Manager
	Backend backend.Backend
	Views   *views.Renderer
}

func NewPortalHandler(
	l *zap.SugaredLogger,
	store session.Manager,
	b backend.Backend,
	v *views.Renderer,
) *PortalHandler {
	return &PortalHandler{
		Logger:  l,
		Store:   store,
		Backend: b,
		Views:   v,
	}
}

// Routes регистрирует страницы портала. Доступ проверяет middleware.Gate
func (h *PortalHandler) Routes(r *mux.Router) {
	r.HandleFunc(gate.PathRoot, h.Root).Methods(http.MethodGet)
	r.HandleFunc(gate.PathLogin, h.LoginPage).Methods(http.MethodGet)
	r.HandleFunc(gate.PathLogin, h.Login).Methods(http.MethodPost)
	r.HandleFunc(gate.PathRegister, h.RegisterPage).Methods(http.MethodGet)
	r.HandleFunc(gate.PathRegister, h.Register).Methods(http.MethodPost)
	r.HandleFunc(gate.PathHome, h.Home).Methods(http.MethodGet)
	r.HandleFunc(gate.PathFeedback, h.FeedbackPage).Methods(http.MethodGet)
	r.HandleFunc(gate.PathFeedback, h.SubmitFeedback).Methods(http.MethodPost)
	r.HandleFunc(gate.PathAnalytics, h.Analytics).Methods(http.MethodGet)
	r.HandleFunc(gate.PathLogout, h.Logout).Methods(http.MethodPost)
	r.HandleFunc(gate.PathEvents, h.Events).Methods(http.MethodGet)
	r.HandleFunc(gate.PathSession, h.SessionInfo).Methods(http.MethodGet)
}

// Deny отвечает на запрос, которому отказал gate
func (h *PortalHandler) Deny(w http.ResponseWriter, r *http.Request, status int) {
	if isAPI(r) {
		err := myErr.ErrNoAuth
		if status == http.StatusForbidden {
			err = myErr.ErrForbidden
		}
		myErr.SendErrorTo(w, err, status, h.Logger)
		return
	}

	if status == http.StatusForbidden {
		h.Views.Render(w, status, views.PageForbidden, h.page(r, "Access denied"))
		return
	}

	http.Error(w, http.StatusText(status), status)
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == gate.PathEvents
}

func (h *PortalHandler) page(r *http.Request, title string) views.Page {
	sess := contextutil.GetSession(r.Context())

	return views.Page{
		Title:         title,
		Authenticated: sess.Authenticated(),
		Username:      sess.Username,
		Admin:         sess.Authenticated() && sess.Role.IsAdmin(),
		CSRFField:     csrf.TemplateField(r),
	}
}

func (h *PortalHandler) Root(w http.ResponseWriter, r *http.Request) {
	if contextutil.GetAccessFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, gate.PathHome, http.StatusFound)
		return
	}
	http.Redirect(w, r, gate.PathLogin, http.StatusFound)
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`)) // nolint:errcheck
}
