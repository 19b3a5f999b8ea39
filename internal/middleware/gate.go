package middleware

import (
	"context"
	"errors"
	"net/http"

	"feedback-portal/internal/gate"
	"feedback-portal/internal/session"
	myErr "feedback-portal/internal/types/errors"

	"go.uber.org/zap"
)

type SessKey string

var sessKey SessKey = "sessionKey"

// DenyFunc отвечает на запрос, которому gate отказал в доступе
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int)

// Gate решает, можно ли показать страницу. Для закрытых страниц личность
// перепроверяется у бэкенда, для открытых достаточно сохраненной сессии
func Gate(store session.Manager, cookieName string, logger *zap.SugaredLogger, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if c, err := r.Cookie(cookieName); err == nil {
				sessionID = c.Value
			}

			sess := session.Session{ID: sessionID}
			if sessionID != "" {
				var err error
				if gate.NeedsIdentity(r.URL.Path) {
					sess, err = store.Refresh(r.Context(), sessionID)
				} else {
					sess, err = store.Current(r.Context(), sessionID)
				}
				if err != nil {
					logSessionError(logger, sessionID, err)
					sess = session.Session{ID: sessionID}
				}
			}

			r = r.WithContext(ContextWithSession(r.Context(), sess))

			decision := gate.Decide(r.URL.Path, sess.Access())
			switch decision.Action {
			case gate.Redirect:
				http.Redirect(w, r, decision.Location, decision.Status)
				return
			case gate.Deny:
				deny(w, r, decision.Status)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func logSessionError(logger *zap.SugaredLogger, sessionID string, err error) {
	if errors.Is(err, myErr.ErrNoAuth) || errors.Is(err, myErr.ErrTokenExpired) {
		logger.Infow("Session is no longer authenticated", "sessionID", sessionID, zap.Error(err))
		return
	}
	logger.Errorw("Failed to load session", "sessionID", sessionID, zap.Error(err))
}

func ContextWithSession(ctx context.Context, s session.Session) context.Context {
	// создаем новый контекст с нашим ключом и сессией
	return context.WithValue(ctx, sessKey, s)
}

func GetSessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessKey).(session.Session)
	return sess, ok
}
