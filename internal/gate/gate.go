package gate

import (
	"net/http"
	"path"
)

// State - состояние сессии с точки зрения доступа к страницам
type State int

const (
	Unauthenticated State = iota
	AuthenticatedUser
	AuthenticatedAdmin
)

func (s State) String() string {
	switch s {
	case AuthenticatedUser:
		return "authenticated-user"
	case AuthenticatedAdmin:
		return "authenticated-admin"
	}
	return "unauthenticated"
}

func (s State) Authenticated() bool {
	return s == AuthenticatedUser || s == AuthenticatedAdmin
}

// Requirement - что нужно сессии, чтобы увидеть страницу
type Requirement int

const (
	Public Requirement = iota
	Authenticated
	Admin
	// AuthenticatedAPI - как Authenticated, но вместо редиректа отвечаем 401
	AuthenticatedAPI
	root
)

const (
	PathRoot      = "/"
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathHome      = "/home"
	PathFeedback  = "/feedback"
	PathAnalytics = "/analytics"
	PathLogout    = "/logout"
	PathEvents    = "/events"
	PathSession   = "/api/session"
)

var requirements = map[string]Requirement{
	PathRoot:      root,
	PathLogin:     Public,
	PathRegister:  Public,
	PathHome:      Authenticated,
	PathFeedback:  Authenticated,
	PathAnalytics: Admin,
	PathLogout:    Authenticated,
	PathEvents:    Public,
	PathSession:   AuthenticatedAPI,
}

// RequirementFor - требование для пути; неизвестные пути публичные
func RequirementFor(p string) Requirement {
	if req, ok := requirements[clean(p)]; ok {
		return req
	}
	return Public
}

// NeedsIdentity - нужно ли подтверждать личность у бэкенда перед показом страницы
func NeedsIdentity(p string) bool {
	switch RequirementFor(p) {
	case Authenticated, Admin, AuthenticatedAPI:
		return true
	}
	return false
}

type Action int

const (
	Allow Action = iota
	Redirect
	Deny
)

// Decision - итог проверки доступа
type Decision struct {
	Action   Action
	Location string
	Status   int
}

// Decide - чистая функция пути и состояния сессии
func Decide(p string, st State) Decision {
	switch RequirementFor(p) {
	case root:
		if st.Authenticated() {
			return redirect(PathHome)
		}
		return redirect(PathLogin)
	case Authenticated:
		if !st.Authenticated() {
			return redirect(PathLogin)
		}
	case Admin:
		if !st.Authenticated() {
			return redirect(PathLogin)
		}
		if st != AuthenticatedAdmin {
			return Decision{Action: Deny, Status: http.StatusForbidden}
		}
	case AuthenticatedAPI:
		if !st.Authenticated() {
			return Decision{Action: Deny, Status: http.StatusUnauthorized}
		}
	}

	return Decision{Action: Allow}
}

func redirect(location string) Decision {
	return Decision{Action: Redirect, Location: location, Status: http.StatusFound}
}

func clean(p string) string {
	if p == "" {
		return PathRoot
	}
	return path.Clean("/" + p)
}
