package activity

import (
	"context"
	"time"

	"feedback-portal/internal/kafka"
)

// Counter - сколько раз пользователь совершил действие
type Counter struct {
	Type     kafka.EventType `json:"type"`
	Count    int64           `json:"count"`
	LastSeen time.Time       `json:"last_seen"`
}

// Contributor - автор отзывов и число отправленных отзывов
type Contributor struct {
	Username string `json:"username"`
	Count    int64  `json:"count"`
}

// ActivityRepo - хранилище счетчиков активности пользователей.
type ActivityRepo interface {
	Record(ctx context.Context, username string, typ kafka.EventType, at time.Time) error
	GetActivity(ctx context.Context, username string) ([]Counter, error)
	TopContributors(ctx context.Context, limit int) ([]Contributor, error)
}

// ActivityService - интерфейс сервиса активности.
type ActivityService interface {
	ProcessEvent(ctx context.Context, event kafka.Event) error
	GetActivity(ctx context.Context, username string) ([]Counter, error)
	TopContributors(ctx context.Context, limit int) ([]Contributor, error)
}
