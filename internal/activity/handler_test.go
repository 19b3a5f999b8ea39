package activity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedback-portal/internal/kafka"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeService нужен для «подмены» ActivityService в тестах хендлера.
type fakeService struct {
	lastUsername string
	lastLimit    int

	counters     []Counter
	contributors []Contributor
	returnErr    error
}

func (f *fakeService) ProcessEvent(ctx context.Context, event kafka.Event) error {
	return nil
}

func (f *fakeService) GetActivity(ctx context.Context, username string) ([]Counter, error) {
	f.lastUsername = username
	return f.counters, f.returnErr
}

func (f *fakeService) TopContributors(ctx context.Context, limit int) ([]Contributor, error) {
	f.lastLimit = limit
	return f.contributors, f.returnErr
}

func newRouter(svc ActivityService) *mux.Router {
	h := NewHandler(svc, zap.NewNop().Sugar())
	r := mux.NewRouter()
	r.HandleFunc("/users/{username}/activity", h.GetUserActivity).Methods(http.MethodGet)
	r.HandleFunc("/contributors", h.GetTopContributors).Methods(http.MethodGet)
	return r
}

func TestHandler_GetUserActivity(t *testing.T) {
	t.Run("успех", func(t *testing.T) {
		svc := &fakeService{counters: []Counter{{Type: kafka.EventTypeLogout, Count: 2}}}
		rr := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/alice/activity", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "alice", svc.lastUsername)

		var got []Counter
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Len(t, got, 1)
		assert.Equal(t, int64(2), got[0].Count)
	})

	t.Run("пусто", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newRouter(&fakeService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/ghost/activity", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})

	t.Run("ошибка сервиса", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newRouter(&fakeService{returnErr: errors.New("db down")}).
			ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/alice/activity", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestHandler_GetTopContributors(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantLimit int
	}{
		{"по умолчанию", "/contributors", defaultTop},
		{"явный лимит", "/contributors?top=5", 5},
		{"некорректный лимит", "/contributors?top=abc", defaultTop},
		{"слишком большой лимит", "/contributors?top=100000", maxTop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{contributors: []Contributor{{Username: "alice", Count: 3}}}
			rr := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.wantLimit, svc.lastLimit)
			assert.JSONEq(t, `[{"username":"alice","count":3}]`, rr.Body.String())
		})
	}
}
