package activity

import (
	"context"
	"time"

	"feedback-portal/internal/kafka"

	"go.uber.org/zap"
)

type Service struct {
	repo   ActivityRepo
	logger *zap.SugaredLogger
}

func NewService(repo ActivityRepo, logger *zap.SugaredLogger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) ProcessEvent(ctx context.Context, event kafka.Event) error {
	if event.Username == "" {
		return nil // Игнорируем события без пользователя
	}

	switch event.Type {
	case kafka.EventTypeAuthenticated,
		kafka.EventTypeLogout,
		kafka.EventTypeForcedLogout,
		kafka.EventTypeFeedbackSubmitted:
	default:
		s.logger.Debugw("Skipping unknown activity event", "type", event.Type)
		return nil
	}

	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	return s.repo.Record(ctx, event.Username, event.Type, at.UTC())
}

func (s *Service) GetActivity(ctx context.Context, username string) ([]Counter, error) {
	return s.repo.GetActivity(ctx, username)
}

func (s *Service) TopContributors(ctx context.Context, limit int) ([]Contributor, error) {
	return s.repo.TopContributors(ctx, limit)
}
