package session

import (
	"encoding/json"
	"time"

	myErr "feedback-portal/internal/types/errors"

	jwt "github.com/dgrijalva/jwt-go"
)

// tokenExpiry достает exp из JWT без проверки подписи: секрет есть только у бэкенда.
// Для непрозрачных токенов возвращает false
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), true
	case json.Number:
		v, err := exp.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(v, 0), true
	}

	return time.Time{}, false
}

// sessionTTL время жизни сессии: base, но не дольше срока токена
func sessionTTL(token string, base time.Duration, now time.Time) (time.Duration, error) {
	exp, ok := tokenExpiry(token)
	if !ok {
		return base, nil
	}

	left := exp.Sub(now)
	if left <= 0 {
		return 0, myErr.ErrTokenExpired
	}
	if left < base {
		return left, nil
	}

	return base, nil
}
