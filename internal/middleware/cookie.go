package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

// EnsureSessionCookie выдает браузеру id сессии портала, если его еще нет.
// Id нужен и гостю: по нему вкладка узнает о входе в соседней вкладке
func EnsureSessionCookie(cfg CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(cfg.Name); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			c := &http.Cookie{
				Name:     cfg.Name,
				Value:    uuid.New().String(),
				Path:     "/",
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			}
			http.SetCookie(w, c)

			// следующие обработчики должны видеть новый id в этом же запросе
			others := r.Cookies()
			r = r.Clone(r.Context())
			r.Header.Del("Cookie")
			for _, other := range others {
				if other.Name != cfg.Name {
					r.AddCookie(other)
				}
			}
			r.AddCookie(c)

			next.ServeHTTP(w, r)
		})
	}
}
