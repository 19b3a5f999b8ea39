package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEnsureSessionCookie(t *testing.T) {
	var seen string
	h := EnsureSessionCookie(CookieConfig{Name: cookieName})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(cookieName)
		assert.NoError(t, err)
		seen = c.Value
		_, err = r.Cookie("theme")
		assert.NoError(t, err)
	}))

	t.Run("новый id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		cookies := w.Result().Cookies()
		if assert.Len(t, cookies, 1) {
			assert.Equal(t, cookieName, cookies[0].Name)
			assert.True(t, cookies[0].HttpOnly)
			assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
			assert.Equal(t, cookies[0].Value, seen)
		}
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})

	t.Run("существующий id не меняется", func(t *testing.T) {
		id := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: id})
		req.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Empty(t, w.Result().Cookies())
		assert.Equal(t, id, seen)
	})

	t.Run("поддельный id заменяется", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "portal:session:x"})
		req.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.NotEqual(t, "portal:session:x", seen)
		assert.Len(t, w.Result().Cookies(), 1)
	})
}
