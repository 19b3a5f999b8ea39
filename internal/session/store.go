package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	myErr "feedback-portal/internal/types/errors"
	"feedback-portal/internal/types/feedback"
	"feedback-portal/internal/types/user"
	"feedback-portal/internal/wrappers/backend"

	"go.uber.org/zap"
)

// Store - наблюдаемое хранилище сессий портала.
// Все изменения сессии идут через него и рассылаются подписчикам
type Store struct {
	repo    SessionRepo
	backend backend.Backend
	logger  *zap.SugaredLogger
	ttl     time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	listeners []func(Event)
}

func NewStore(repo SessionRepo, b backend.Backend, logger *zap.SugaredLogger, ttl time.Duration) *Store {
	return &Store{
		repo:    repo,
		backend: b,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
	}
}

// OnChange регистрирует обработчик событий сессий внутри процесса
func (s *Store) OnChange(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) Login(ctx context.Context, sessionID, token string) (Session, error) {
	if sessionID == "" || token == "" {
		return Session{}, myErr.ErrNoAuth
	}

	ttl, err := sessionTTL(token, s.ttl, s.now())
	if err != nil {
		return Session{}, err
	}

	gen, err := s.repo.SaveToken(ctx, sessionID, token, ttl)
	if err != nil {
		return Session{}, err
	}
	s.notify(ctx, EventLogin, sessionID, "")

	sess, err := s.refresh(ctx, Session{ID: sessionID, Token: token, Generation: gen})
	if err != nil {
		return Session{}, err
	}

	return sess, nil
}

func (s *Store) Logout(ctx context.Context, sessionID string) error {
	// имя нужно только для события, поэтому ошибку чтения не считаем фатальной
	sess, err := s.Current(ctx, sessionID)
	if err != nil {
		s.logger.Warnw("Failed to read session before logout", "sessionID", sessionID, zap.Error(err))
	}

	if err := s.repo.Clear(ctx, sessionID); err != nil {
		return err
	}
	s.notify(ctx, EventLogout, sessionID, sess.Username)

	return nil
}

func (s *Store) Current(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, nil
	}
	return s.repo.Load(ctx, sessionID)
}

// Identity - имя и роль, false если сессия не аутентифицирована
func (s *Store) Identity(ctx context.Context, sessionID string) (user.Identity, bool, error) {
	sess, err := s.Current(ctx, sessionID)
	if err != nil {
		return user.Identity{}, false, err
	}
	if !sess.Authenticated() {
		return user.Identity{}, false, nil
	}

	return sess.Identity(), true, nil
}

func (s *Store) Refresh(ctx context.Context, sessionID string) (Session, error) {
	sess, err := s.Current(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.Token == "" {
		return sess, nil
	}

	return s.refresh(ctx, sess)
}

// refresh запрашивает личность и данные. Если роль уже известна, запросы идут параллельно;
// сразу после входа данные грузятся после личности, потому что состав данных зависит от роли
func (s *Store) refresh(ctx context.Context, sess Session) (Session, error) {
	if exp, ok := tokenExpiry(sess.Token); ok && !exp.After(s.now()) {
		s.forceLogout(ctx, sess, myErr.ErrTokenExpired)
		return Session{ID: sess.ID}, myErr.ErrTokenExpired
	}

	var (
		id    user.Identity
		idErr error
		wg    sync.WaitGroup
	)

	knownRole := sess.Role
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, idErr = s.backend.WhoAmI(ctx, sess.Token)
	}()
	if knownRole != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.loadData(ctx, sess.ID, sess.Generation, sess.Token, knownRole) // nolint:errcheck
		}()
	}
	wg.Wait()

	if idErr != nil {
		s.forceLogout(ctx, sess, idErr)
		return Session{ID: sess.ID}, fmt.Errorf("%w: %w", myErr.ErrNoAuth, idErr)
	}

	if err := s.repo.SaveIdentity(ctx, sess.ID, sess.Generation, id); err != nil {
		if errors.Is(err, myErr.ErrStaleSession) {
			s.logger.Infow("Discarding identity for a changed session", "sessionID", sess.ID)
			return s.repo.Load(ctx, sess.ID)
		}
		return Session{}, err
	}

	if sess.Username != id.Username || sess.Role != id.Role {
		s.notify(ctx, EventIdentity, sess.ID, id.Username)
	}
	sess.Username = id.Username
	sess.Role = id.Role

	if knownRole == "" {
		_ = s.loadData(ctx, sess.ID, sess.Generation, sess.Token, id.Role) // nolint:errcheck
	}

	return sess, nil
}

// forceLogout - то же, что Logout, но только для того поколения, чей токен отвергнут
func (s *Store) forceLogout(ctx context.Context, sess Session, cause error) {
	s.logger.Warnw("Identity check failed, logging out",
		"sessionID", sess.ID,
		zap.Error(cause),
	)

	err := s.repo.ClearGeneration(ctx, sess.ID, sess.Generation)
	if err != nil {
		if !errors.Is(err, myErr.ErrStaleSession) {
			s.logger.Errorw("Failed to clear session", "sessionID", sess.ID, zap.Error(err))
		}
		return
	}

	s.notify(ctx, EventForcedLogout, sess.ID, sess.Username)
}

// ReloadData перезагружает аналитику и отзывы текущей сессии
func (s *Store) ReloadData(ctx context.Context, sessionID string) error {
	sess, err := s.Current(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Authenticated() {
		return myErr.ErrNoAuth
	}

	return s.loadData(ctx, sess.ID, sess.Generation, sess.Token, sess.Role)
}

// loadData - все или ничего: при любой ошибке старые данные остаются нетронутыми
func (s *Store) loadData(ctx context.Context, sessionID string, gen int64, token string, role user.Role) error {
	// аналитику запрашивают только администраторы: для остальных бэкенд ответит 403,
	// и весь Dashboard провалился бы вместе с отзывами
	dash, err := s.backend.Dashboard(ctx, token, role.IsAdmin())
	if err != nil {
		s.logger.Errorw("Failed to load dashboard", "sessionID", sessionID, zap.Error(err))
		return err
	}

	snap := Snapshot{
		Analytics: dash.Analytics,
		Feedback:  dash.Feedback,
		LoadedAt:  s.now(),
	}
	if err := s.repo.SaveSnapshot(ctx, sessionID, gen, snap); err != nil {
		if errors.Is(err, myErr.ErrStaleSession) {
			s.logger.Infow("Discarding data for a changed session", "sessionID", sessionID)
		}
		return err
	}
	s.notify(ctx, EventDataLoaded, sessionID, "")

	return nil
}

func (s *Store) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	if sessionID == "" {
		return nil, nil
	}
	return s.repo.LoadSnapshot(ctx, sessionID)
}

// SubmitFeedback без аутентификации ничего не отправляет.
// После успешной отправки кэш сбрасывается и данные загружаются заново
func (s *Store) SubmitFeedback(ctx context.Context, sessionID, text string) error {
	sess, err := s.Current(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Token == "" || sess.Username == "" {
		return myErr.ErrNoAuth
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return myErr.ErrEmptyFeedback
	}

	err = s.backend.SubmitFeedback(ctx, sess.Token, feedback.Submission{
		Feedback: text,
		Username: sess.Username,
	})
	if err != nil {
		s.logger.Errorw("Failed to submit feedback", "sessionID", sessionID, zap.Error(err))
		return err
	}
	s.notify(ctx, EventFeedbackSubmitted, sessionID, sess.Username)

	s.invalidate(ctx, sess)

	return nil
}

func (s *Store) invalidate(ctx context.Context, sess Session) {
	if err := s.repo.DropSnapshot(ctx, sess.ID, sess.Generation); err != nil {
		return
	}
	// ошибка перезагрузки уже залогирована, отзыв при этом отправлен
	_ = s.ReloadData(ctx, sess.ID) // nolint:errcheck
}

func (s *Store) Watch(ctx context.Context, sessionID string) (<-chan Session, error) {
	pubsub := s.repo.Subscribe(ctx, sessionID)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close() // nolint:errcheck
		return nil, err
	}

	out := make(chan Session, 1)
	go func() {
		defer close(out)
		defer pubsub.Close() // nolint:errcheck

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					s.logger.Warnw("Bad session event", "sessionID", sessionID, zap.Error(err))
				} else {
					s.logger.Debugw("Session event", "sessionID", sessionID, "type", ev.Type)
				}

				// состояние всегда перечитывается из хранилища, событие только повод
				sess, err := s.Current(ctx, sessionID)
				if err != nil {
					s.logger.Errorw("Failed to reload session", "sessionID", sessionID, zap.Error(err))
					continue
				}

				select {
				case out <- sess:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *Store) notify(ctx context.Context, typ EventType, sessionID, username string) {
	ev := Event{
		Type:      typ,
		SessionID: sessionID,
		Username:  username,
		At:        s.now(),
	}

	// ошибка публикации уже залогирована в репозитории
	_ = s.repo.Publish(ctx, ev) // nolint:errcheck

	s.mu.RLock()
	listeners := append([]func(Event){}, s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
