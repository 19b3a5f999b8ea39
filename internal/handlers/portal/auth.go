package portal

import (
	"errors"
	"net/http"
	"strings"

	"feedback-portal/internal/contextutil"
	"feedback-portal/internal/gate"
	myErr "feedback-portal/internal/types/errors"
	"feedback-portal/internal/types/user"
	"feedback-portal/internal/views"
	"feedback-portal/internal/wrappers/backend"
)

func (h *PortalHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	p := h.page(r, "Login")
	if r.URL.Query().Get("registered") != "" {
		p.Notice = msgRegistered
	}
	h.Views.Render(w, http.StatusOK, views.PageLogin, p)
}

func (h *PortalHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds := user.Credentials{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}

	fail := func(status int) {
		p := h.page(r, "Login")
		p.Error = msgInvalidLogin
		h.Views.Render(w, status, views.PageLogin, p)
	}

	if creds.Username == "" || creds.Password == "" {
		fail(http.StatusBadRequest)
		return
	}

	sessionID, ok := contextutil.GetSessionIDFromContext(r.Context())
	if !ok {
		h.Logger.Errorw("Login without a portal session cookie")
		fail(http.StatusBadRequest)
		return
	}

	token, err := h.Backend.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, myErr.ErrInvalidCredentials) {
			fail(http.StatusUnauthorized)
			return
		}
		h.Logger.Errorw("Login request failed", "username", creds.Username, "error", err)
		fail(http.StatusBadGateway)
		return
	}

	sess, err := h.Store.Login(r.Context(), sessionID, token.AccessToken)
	if err != nil || !sess.Authenticated() {
		h.Logger.Warnw("Token was not accepted", "username", creds.Username, "error", err)
		fail(http.StatusUnauthorized)
		return
	}

	h.Logger.Infof("user %s logged in, session %s", sess.Username, sessionID)
	http.Redirect(w, r, gate.PathHome, http.StatusSeeOther)
}

func (h *PortalHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.Views.Render(w, http.StatusOK, views.PageRegister, h.page(r, "Register"))
}

func (h *PortalHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := backend.RegisterForm{
		Credentials: user.Credentials{
			Username: strings.TrimSpace(r.PostFormValue("username")),
			Password: r.PostFormValue("password"),
		},
		AdminKey: strings.TrimSpace(r.PostFormValue("admin_key")),
	}

	fail := func(status int, msg string) {
		p := h.page(r, "Register")
		p.Error = msg
		h.Views.Render(w, status, views.PageRegister, p)
	}

	if form.Username == "" || form.Password == "" {
		fail(http.StatusBadRequest, msgRegistrationFailed)
		return
	}

	if err := h.Backend.Register(r.Context(), form); err != nil {
		if errors.Is(err, myErr.ErrUsernameExists) {
			fail(http.StatusConflict, msgUsernameExists)
			return
		}
		h.Logger.Errorw("Registration failed", "username", form.Username, "error", err)
		fail(http.StatusBadGateway, msgRegistrationFailed)
		return
	}

	h.Logger.Infof("registered user %s", form.Username)
	http.Redirect(w, r, gate.PathLogin+"?registered=1", http.StatusSeeOther)
}

func (h *PortalHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := contextutil.GetSessionIDFromContext(r.Context())
	if ok {
		username, _ := contextutil.GetUsernameFromContext(r.Context())
		if err := h.Store.Logout(r.Context(), sessionID); err != nil {
			myErr.SendErrorTo(w, err, http.StatusInternalServerError, h.Logger)
			return
		}
		h.Logger.Infow("User logged out", "username", username)
	}

	http.Redirect(w, r, gate.PathLogin, http.StatusSeeOther)
}
