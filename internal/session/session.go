package session

import (
	"context"
	"time"

	"feedback-portal/internal/gate"
	"feedback-portal/internal/types/analytics"
	"feedback-portal/internal/types/feedback"
	"feedback-portal/internal/types/user"

	"github.com/go-redis/redis/v8"
)

// Session - состояние одной сессии портала (одного браузера).
// Пустой Token - пользователь не вошел
type Session struct {
	ID         string
	Token      string
	Username   string
	Role       user.Role
	Generation int64
}

// Authenticated - есть токен и подтвержденная бэкендом личность
func (s Session) Authenticated() bool {
	return s.Token != "" && s.Username != "" && s.Role != ""
}

// Access - состояние сессии с точки зрения роутера страниц
func (s Session) Access() gate.State {
	if !s.Authenticated() {
		return gate.Unauthenticated
	}
	if s.Role.IsAdmin() {
		return gate.AuthenticatedAdmin
	}
	return gate.AuthenticatedUser
}

func (s Session) Identity() user.Identity {
	return user.Identity{Username: s.Username, Role: s.Role}
}

// Snapshot - последние загруженные аналитика и отзывы
type Snapshot struct {
	Analytics *analytics.Analytics `json:"analytics,omitempty"`
	Feedback  feedback.Collection  `json:"feedback"`
	LoadedAt  time.Time            `json:"loaded_at"`
}

type EventType string

const (
	EventLogin             EventType = "login"
	EventLogout            EventType = "logout"
	EventForcedLogout      EventType = "forced_logout"
	EventIdentity          EventType = "identity"
	EventDataLoaded        EventType = "data_loaded"
	EventFeedbackSubmitted EventType = "feedback_submitted"
)

// Event - уведомление об изменении сессии
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Username  string    `json:"username,omitempty"`
	At        time.Time `json:"at"`
}

// SessionRepo - постоянное хранилище сессий
type SessionRepo interface {
	// Load - читает сессию, отсутствующая сессия возвращается пустой
	Load(ctx context.Context, sessionID string) (Session, error)
	// SaveToken - сохраняет токен, сбрасывает личность и данные, увеличивает поколение
	SaveToken(ctx context.Context, sessionID, token string, ttl time.Duration) (int64, error)
	// SaveIdentity - сохраняет личность, если поколение не изменилось
	SaveIdentity(ctx context.Context, sessionID string, gen int64, id user.Identity) error
	// SaveSnapshot - сохраняет данные, если поколение не изменилось
	SaveSnapshot(ctx context.Context, sessionID string, gen int64, snap Snapshot) error
	// DropSnapshot - удаляет данные, если поколение не изменилось
	DropSnapshot(ctx context.Context, sessionID string, gen int64) error
	// LoadSnapshot - читает данные, nil если их нет
	LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error)
	// Clear - удаляет токен, личность и данные
	Clear(ctx context.Context, sessionID string) error
	// ClearGeneration - как Clear, но только если поколение не изменилось
	ClearGeneration(ctx context.Context, sessionID string, gen int64) error
	// Publish - рассылает событие всем подписчикам сессии
	Publish(ctx context.Context, ev Event) error
	// Subscribe - подписка на события сессии
	Subscribe(ctx context.Context, sessionID string) *redis.PubSub
}

// Manager - сессионное хранилище, которым пользуются роутер и страницы
type Manager interface {
	// Login - сохраняет токен и загружает личность и данные
	Login(ctx context.Context, sessionID, token string) (Session, error)
	// Logout - очищает сессию и кэш данных
	Logout(ctx context.Context, sessionID string) error
	// Current - сессия из хранилища без запросов к бэкенду
	Current(ctx context.Context, sessionID string) (Session, error)
	// Refresh - перезапрашивает личность и данные, при ошибке личности разлогинивает
	Refresh(ctx context.Context, sessionID string) (Session, error)
	// Snapshot - кэш аналитики и отзывов
	Snapshot(ctx context.Context, sessionID string) (*Snapshot, error)
	// SubmitFeedback - отправляет отзыв и перезагружает данные
	SubmitFeedback(ctx context.Context, sessionID, text string) error
	// Watch - поток состояний сессии, перечитанных из хранилища после каждого события
	Watch(ctx context.Context, sessionID string) (<-chan Session, error)
}
