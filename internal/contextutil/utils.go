package contextutil

import (
	"context"

	"feedback-portal/internal/gate"
	"feedback-portal/internal/middleware"
	"feedback-portal/internal/session"
)

// GetSessionIDFromContext извлекает id сессии портала из контекста
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sess, ok := middleware.GetSessionFromContext(ctx)
	if !ok || sess.ID == "" {
		return "", false
	}
	return sess.ID, true
}

// GetUsernameFromContext - имя только для аутентифицированной сессии
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	sess, ok := middleware.GetSessionFromContext(ctx)
	if !ok || !sess.Authenticated() {
		return "", false
	}
	return sess.Username, true
}

func GetAccessFromContext(ctx context.Context) gate.State {
	sess, ok := middleware.GetSessionFromContext(ctx)
	if !ok {
		return gate.Unauthenticated
	}
	return sess.Access()
}

func GetSession(ctx context.Context) session.Session {
	sess, _ := middleware.GetSessionFromContext(ctx)
	return sess
}
