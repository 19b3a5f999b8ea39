package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"feedback-portal/internal/gate"
	"feedback-portal/internal/mocks"
	"feedback-portal/internal/types/analytics"
	myErr "feedback-portal/internal/types/errors"
	"feedback-portal/internal/types/feedback"
	"feedback-portal/internal/types/user"
	"feedback-portal/internal/wrappers/backend"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

var (
	aliceFeedback = feedback.Collection{
		Current:    []feedback.Item{{Feedback: "fast delivery", Timestamp: "2024-05-01T10:00:00", Username: "alice"}},
		Historical: []feedback.Item{{Feedback: "slow app", Timestamp: "2024-04-01T10:00:00", Username: "bob"}},
	}
	adminAnalytics = analytics.Analytics{
		Topics:    []string{"Delivery"},
		Sentiment: "Positive",
		Trends:    []string{"Mobile"},
	}
)

type eventRecorder struct {
	mu     sync.Mutex
	events []EventType
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev.Type)
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EventType{}, r.events...)
}

func setupStore(t *testing.T) (*Store, *mocks.MockBackend, *SessionRepository, *miniredis.Miniredis, *eventRecorder) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo, mr := setupTestRepo(t)
	b := mocks.NewMockBackend(ctrl)
	store := NewStore(repo, b, zaptest.NewLogger(t).Sugar(), 30*time.Minute)

	rec := &eventRecorder{}
	store.OnChange(rec.record)

	return store, b, repo, mr, rec
}

func TestStore_Login_User(t *testing.T) {
	store, b, _, _, rec := setupStore(t)
	ctx := context.Background()

	gomock.InOrder(
		b.EXPECT().WhoAmI(gomock.Any(), "abc").
			Return(user.Identity{Username: "alice", Role: user.RoleUser}, nil),
		b.EXPECT().Dashboard(gomock.Any(), "abc", false).
			Return(backend.Dashboard{Feedback: aliceFeedback}, nil),
	)

	sess, err := store.Login(ctx, "s1", "abc")
	assert.NoError(t, err)
	assert.Equal(t, gate.AuthenticatedUser, sess.Access())
	assert.Equal(t, "alice", sess.Username)

	id, ok, err := store.Identity(ctx, "s1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, user.Identity{Username: "alice", Role: user.RoleUser}, id)

	snap, err := store.Snapshot(ctx, "s1")
	assert.NoError(t, err)
	if assert.NotNil(t, snap) {
		assert.Nil(t, snap.Analytics)
		assert.Equal(t, aliceFeedback, snap.Feedback)
	}

	assert.Equal(t, []EventType{EventLogin, EventIdentity, EventDataLoaded}, rec.types())
}

func TestStore_Login_IdentityFails(t *testing.T) {
	store, b, _, mr, rec := setupStore(t)
	ctx := context.Background()

	b.EXPECT().WhoAmI(gomock.Any(), "abc").
		Return(user.Identity{}, myErr.ErrUnauthorized)

	sess, err := store.Login(ctx, "s1", "abc")
	assert.ErrorIs(t, err, myErr.ErrNoAuth)
	assert.ErrorIs(t, err, myErr.ErrUnauthorized)
	assert.Equal(t, gate.Unauthenticated, sess.Access())

	current, err := store.Current(ctx, "s1")
	assert.NoError(t, err)
	assert.Empty(t, current.Token)
	assert.Empty(t, current.Username)
	assert.Empty(t, current.Role)
	assert.Empty(t, mr.HGet(sessionKey("s1"), fieldToken))

	_, ok, err := store.Identity(ctx, "s1")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []EventType{EventLogin, EventForcedLogout}, rec.types())
}

func TestStore_Login_ExpiredToken(t *testing.T) {
	store, _, _, _, _ := setupStore(t)

	// ни одного вызова бэкенда не ожидается
	_, err := store.Login(context.Background(), "s1", generateJWT(t, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, myErr.ErrTokenExpired)
}

func TestStore_Login_Empty(t *testing.T) {
	store, _, _, _, _ := setupStore(t)

	_, err := store.Login(context.Background(), "s1", "")
	assert.ErrorIs(t, err, myErr.ErrNoAuth)
}

func loginAs(t *testing.T, repo *SessionRepository, sid, token string, id user.Identity) int64 {
	t.Helper()
	ctx := context.Background()
	gen, err := repo.SaveToken(ctx, sid, token, 0)
	assert.NoError(t, err)
	assert.NoError(t, repo.SaveIdentity(ctx, sid, gen, id))
	return gen
}

func TestStore_Refresh_Admin(t *testing.T) {
	store, b, repo, _, _ := setupStore(t)
	ctx := context.Background()
	loginAs(t, repo, "s1", "abc", user.Identity{Username: "root", Role: user.RoleAdmin})

	b.EXPECT().WhoAmI(gomock.Any(), "abc").
		Return(user.Identity{Username: "root", Role: user.RoleAdmin}, nil)
	b.EXPECT().Dashboard(gomock.Any(), "abc", true).
		Return(backend.Dashboard{Analytics: &adminAnalytics, Feedback: aliceFeedback}, nil)

	sess, err := store.Refresh(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, gate.AuthenticatedAdmin, sess.Access())

	snap, err := store.Snapshot(ctx, "s1")
	assert.NoError(t, err)
	if assert.NotNil(t, snap) && assert.NotNil(t, snap.Analytics) {
		assert.Equal(t, adminAnalytics, *snap.Analytics)
	}
}

func TestStore_Refresh_NoToken(t *testing.T) {
	store, _, _, _, _ := setupStore(t)

	sess, err := store.Refresh(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, gate.Unauthenticated, sess.Access())
}

func TestStore_Refresh_DataFailureKeepsSnapshot(t *testing.T) {
	store, b, repo, _, _ := setupStore(t)
	ctx := context.Background()
	gen := loginAs(t, repo, "s1", "abc", user.Identity{Username: "root", Role: user.RoleAdmin})

	old := Snapshot{Analytics: &adminAnalytics, Feedback: aliceFeedback, LoadedAt: time.Now().UTC()}
	assert.NoError(t, repo.SaveSnapshot(ctx, "s1", gen, old))

	b.EXPECT().WhoAmI(gomock.Any(), "abc").
		Return(user.Identity{Username: "root", Role: user.RoleAdmin}, nil)
	b.EXPECT().Dashboard(gomock.Any(), "abc", true).
		Return(backend.Dashboard{}, myErr.ErrFetchFailed)

	sess, err := store.Refresh(ctx, "s1")
	assert.NoError(t, err)
	assert.True(t, sess.Authenticated())

	snap, err := store.Snapshot(ctx, "s1")
	assert.NoError(t, err)
	if assert.NotNil(t, snap) {
		assert.Equal(t, old.Analytics, snap.Analytics)
		assert.Equal(t, old.Feedback, snap.Feedback)
	}
}

func TestStore_Refresh_IdentityFailsAfterData(t *testing.T) {
	store, b, repo, mr, _ := setupStore(t)
	ctx := context.Background()
	loginAs(t, repo, "s1", "abc", user.Identity{Username: "alice", Role: user.RoleUser})

	b.EXPECT().WhoAmI(gomock.Any(), "abc").
		Return(user.Identity{}, errors.New("connection refused"))
	b.EXPECT().Dashboard(gomock.Any(), "abc", false).
		Return(backend.Dashboard{Feedback: aliceFeedback}, nil).AnyTimes()

	sess, err := store.Refresh(ctx, "s1")
	assert.ErrorIs(t, err, myErr.ErrNoAuth)
	assert.False(t, sess.Authenticated())
	assert.False(t, mr.Exists(snapshotKey("s1")))
}

func TestStore_LateResponseAfterLogout(t *testing.T) {
	store, b, repo, _, _ := setupStore(t)
	ctx := context.Background()
	loginAs(t, repo, "s1", "abc", user.Identity{Username: "alice", Role: user.RoleUser})

	// пока запросы в полете, пользователь выходит в другой вкладке
	b.EXPECT().WhoAmI(gomock.Any(), "abc").
		DoAndReturn(func(ctx context.Context, token string) (user.Identity, error) {
			assert.NoError(t, store.Logout(ctx, "s1"))
			return user.Identity{Username: "alice", Role: user.RoleUser}, nil
		})
	b.EXPECT().Dashboard(gomock.Any(), "abc", false).
		Return(backend.Dashboard{Feedback: aliceFeedback}, nil)

	sess, err := store.Refresh(ctx, "s1")
	assert.NoError(t, err)
	assert.False(t, sess.Authenticated())

	current, err := store.Current(ctx, "s1")
	assert.NoError(t, err)
	assert.Empty(t, current.Username)
	assert.Empty(t, current.Token)

	snap, err := store.Snapshot(ctx, "s1")
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestStore_Logout(t *testing.T) {
	store, _, repo, mr, rec := setupStore(t)
	ctx := context.Background()
	gen := loginAs(t, repo, "s1", "abc", user.Identity{Username: "alice", Role: user.RoleUser})
	assert.NoError(t, repo.SaveSnapshot(ctx, "s1", gen, Snapshot{Feedback: aliceFeedback}))

	assert.NoError(t, store.Logout(ctx, "s1"))

	sess, err := store.Current(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, gate.Unauthenticated, sess.Access())
	assert.Empty(t, sess.Username)
	assert.False(t, mr.Exists(snapshotKey("s1")))
	assert.Equal(t, []EventType{EventLogout}, rec.types())
}

func TestStore_SubmitFeedback_Unauthenticated(t *testing.T) {
	store, _, _, _, rec := setupStore(t)

	// gomock упадет на любом вызове бэкенда
	err := store.SubmitFeedback(context.Background(), "s1", "hello")
	assert.ErrorIs(t, err, myErr.ErrNoAuth)
	assert.Empty(t, rec.types())
}

func TestStore_SubmitFeedback_Empty(t *testing.T) {
	store, _, repo, _, _ := setupStore(t)
	loginAs(t, repo, "s1", "abc", user.Identity{Username: "alice", Role: user.RoleUser})

	err := store.SubmitFeedback(context.Background(), "s1", "   ")
	assert.ErrorIs(t, err, myErr.ErrEmptyFeedback)
}

func TestStore_SubmitFeedback(t *testing.T) {
	store, b, repo, _, rec := setupStore(t)
	ctx := context.Background()
	gen := loginAs(t, repo, "s1", "abc", user.Identity{Username: "alice", Role: user.RoleUser})
	assert.NoError(t, repo.SaveSnapshot(ctx, "s1", gen, Snapshot{}))

	updated := feedback.Collection{
		Current: []feedback.Item{{Feedback: "great service", Timestamp: "2024-05-01T11:00:00", Username: "alice"}},
	}

	gomock.InOrder(
		b.EXPECT().SubmitFeedback(gomock.Any(), "abc", feedback.Submission{Feedback: "great service", Username: "alice"}).
			Return(nil),
		b.EXPECT().Dashboard(gomock.Any(), "abc", false).
			Return(backend.Dashboard{Feedback: updated}, nil),
	)

	assert.NoError(t, store.SubmitFeedback(ctx, "s1", " great service "))

	snap, err := store.Snapshot(ctx, "s1")
	assert.NoError(t, err)
	if assert.NotNil(t, snap) {
		assert.Equal(t, updated, snap.Feedback)
	}
	assert.Equal(t, []EventType{EventFeedbackSubmitted, EventDataLoaded}, rec.types())
}

func TestStore_SubmitFeedback_BackendError(t *testing.T) {
	store, b, repo, _, _ := setupStore(t)
	ctx := context.Background()
	gen := loginAs(t, repo, "s1", "abc", user.Identity{Username: "alice", Role: user.RoleUser})
	old := Snapshot{Feedback: aliceFeedback}
	assert.NoError(t, repo.SaveSnapshot(ctx, "s1", gen, old))

	b.EXPECT().SubmitFeedback(gomock.Any(), "abc", gomock.Any()).
		Return(myErr.ErrBackendStatus)

	err := store.SubmitFeedback(ctx, "s1", "hello")
	assert.ErrorIs(t, err, myErr.ErrBackendStatus)

	snap, err := store.Snapshot(ctx, "s1")
	assert.NoError(t, err)
	if assert.NotNil(t, snap) {
		assert.Equal(t, old.Feedback, snap.Feedback)
	}
}

func TestStore_ReloadData(t *testing.T) {
	t.Run("без входа бэкенд не вызывается", func(t *testing.T) {
		store, _, _, _, _ := setupStore(t)
		assert.ErrorIs(t, store.ReloadData(context.Background(), "s1"), myErr.ErrNoAuth)
	})

	t.Run("администратор получает аналитику", func(t *testing.T) {
		store, b, repo, _, rec := setupStore(t)
		ctx := context.Background()
		loginAs(t, repo, "s1", "abc", user.Identity{Username: "root", Role: user.RoleAdmin})

		b.EXPECT().Dashboard(gomock.Any(), "abc", true).
			Return(backend.Dashboard{Analytics: &adminAnalytics, Feedback: aliceFeedback}, nil)

		assert.NoError(t, store.ReloadData(ctx, "s1"))

		snap, err := store.Snapshot(ctx, "s1")
		assert.NoError(t, err)
		if assert.NotNil(t, snap) {
			assert.Equal(t, &adminAnalytics, snap.Analytics)
			assert.Equal(t, aliceFeedback, snap.Feedback)
		}
		assert.Equal(t, []EventType{EventDataLoaded}, rec.types())
	})
}

func TestStore_Watch(t *testing.T) {
	store, _, repo, _, _ := setupStore(t)
	loginAs(t, repo, "s1", "abc", user.Identity{Username: "alice", Role: user.RoleUser})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	states, err := store.Watch(ctx, "s1")
	assert.NoError(t, err)

	// выход в другой вкладке
	assert.NoError(t, store.Logout(context.Background(), "s1"))

	select {
	case sess := <-states:
		assert.Equal(t, gate.Unauthenticated, sess.Access())
	case <-ctx.Done():
		t.Fatal("session change was not observed")
	}

	cancel()
	for range states {
	}
}
