package backend

import (
	"context"

	"feedback-portal/internal/types/analytics"
	"feedback-portal/internal/types/feedback"
	"feedback-portal/internal/types/user"
)

// Token ответ POST /token
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterForm тело POST /register. AdminKey уходит заголовком X-Admin-Key
type RegisterForm struct {
	user.Credentials
	AdminKey string `json:"-"`
}

// Dashboard данные для страниц отзывов и аналитики.
// Analytics == nil, если аналитика не запрашивалась
type Dashboard struct {
	Analytics *analytics.Analytics
	Feedback  feedback.Collection
}

// Backend обертка над REST API сервиса отзывов
//
//go:generate mockgen -source=backend.go -destination=../../mocks/mock_backend.go -package=mocks
type Backend interface {
	// Register регистрирует пользователя
	Register(ctx context.Context, form RegisterForm) error
	// Login обменивает логин и пароль на bearer токен
	Login(ctx context.Context, creds user.Credentials) (Token, error)
	// WhoAmI возвращает имя и роль владельца токена
	WhoAmI(ctx context.Context, token string) (user.Identity, error)
	// Analytics возвращает аналитику (только для администраторов)
	Analytics(ctx context.Context, token string) (analytics.Analytics, error)
	// Feedback возвращает текущие и исторические отзывы
	Feedback(ctx context.Context, token string) (feedback.Collection, error)
	// SubmitFeedback отправляет новый отзыв
	SubmitFeedback(ctx context.Context, token string, s feedback.Submission) error
	// Dashboard параллельно запрашивает отзывы и, если withAnalytics, аналитику.
	// Ошибка любого из запросов - ошибка всего вызова, частичных данных нет
	Dashboard(ctx context.Context, token string, withAnalytics bool) (Dashboard, error)
}
