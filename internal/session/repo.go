package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	myErr "feedback-portal/internal/types/errors"
	"feedback-portal/internal/types/user"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	keyPrefix = "portal:session:"

	fieldToken    = "token"
	fieldUsername = "username"
	fieldRole     = "role"
	fieldGen      = "gen"
)

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

func snapshotKey(sessionID string) string {
	return keyPrefix + sessionID + ":data"
}

func eventsChannel(sessionID string) string {
	return keyPrefix + sessionID + ":events"
}

type SessionRepository struct {
	RedisClient  *redis.Client
	Logger       *zap.SugaredLogger
	baseDuration time.Duration
}

func NewSessionRepository(
	redisClient *redis.Client,
	logger *zap.SugaredLogger,
	baseDuration time.Duration,
) *SessionRepository {
	return &SessionRepository{
		RedisClient:  redisClient,
		Logger:       logger,
		baseDuration: baseDuration,
	}
}

func (sessionRepository *SessionRepository) Load(ctx context.Context, sessionID string) (Session, error) {
	values, err := sessionRepository.RedisClient.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		sessionRepository.Logger.Error(
			"Failed get session from Redis",
			zap.Error(err),
			zap.String("sessionID", sessionID),
		)

		return Session{}, err
	}

	sess := Session{
		ID:       sessionID,
		Token:    values[fieldToken],
		Username: values[fieldUsername],
	}

	if raw := values[fieldRole]; raw != "" {
		role, err := user.ParseRole(raw)
		if err != nil {
			// роль в хранилище повреждена - считаем личность неподтвержденной
			sessionRepository.Logger.Warnw("Stored role is invalid", "sessionID", sessionID, "role", raw)
			sess.Username = ""
		} else {
			sess.Role = role
		}
	}

	if raw := values[fieldGen]; raw != "" {
		gen, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Session{}, fmt.Errorf("bad generation %q: %w", raw, err)
		}
		sess.Generation = gen
	}

	return sess, nil
}

func (sessionRepository *SessionRepository) SaveToken(
	ctx context.Context,
	sessionID, token string,
	ttl time.Duration,
) (int64, error) {
	if ttl <= 0 {
		ttl = sessionRepository.baseDuration
	}
	key := sessionKey(sessionID)

	var gen *redis.IntCmd
	_, err := sessionRepository.RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldToken, token)
		pipe.HDel(ctx, key, fieldUsername, fieldRole)
		gen = pipe.HIncrBy(ctx, key, fieldGen, 1)
		pipe.Expire(ctx, key, ttl)
		pipe.Del(ctx, snapshotKey(sessionID))
		return nil
	})
	if err != nil {
		sessionRepository.Logger.Error(
			"Failed save session to Redis",
			zap.Error(err),
			zap.String("sessionID", sessionID),
		)

		return 0, err
	}

	sessionRepository.Logger.Info(
		fmt.Sprintf("Session %s saved to Redis successfully", sessionID),
	)

	return gen.Val(), nil
}

func (sessionRepository *SessionRepository) SaveIdentity(
	ctx context.Context,
	sessionID string,
	gen int64,
	id user.Identity,
) error {
	key := sessionKey(sessionID)

	return sessionRepository.guarded(ctx, sessionID, gen, func(tx *redis.Tx, pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldUsername, id.Username, fieldRole, string(id.Role))
		return nil
	})
}

func (sessionRepository *SessionRepository) SaveSnapshot(
	ctx context.Context,
	sessionID string,
	gen int64,
	snap Snapshot,
) error {
	data, err := json.Marshal(snap)
	if err != nil {
		sessionRepository.Logger.Error(
			"Failed encode snapshot to JSON",
			zap.Error(err),
			zap.String("sessionID", sessionID),
		)

		return err
	}

	return sessionRepository.guarded(ctx, sessionID, gen, func(tx *redis.Tx, pipe redis.Pipeliner) error {
		// данные живут не дольше самой сессии
		ttl, err := tx.PTTL(ctx, sessionKey(sessionID)).Result()
		if err != nil {
			return err
		}
		if ttl <= 0 {
			ttl = sessionRepository.baseDuration
		}

		pipe.Set(ctx, snapshotKey(sessionID), data, ttl)
		return nil
	})
}

func (sessionRepository *SessionRepository) DropSnapshot(ctx context.Context, sessionID string, gen int64) error {
	return sessionRepository.guarded(ctx, sessionID, gen, func(tx *redis.Tx, pipe redis.Pipeliner) error {
		pipe.Del(ctx, snapshotKey(sessionID))
		return nil
	})
}

func (sessionRepository *SessionRepository) LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	data, err := sessionRepository.RedisClient.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		sessionRepository.Logger.Error(
			"Failed get snapshot from Redis",
			zap.Error(err),
			zap.String("sessionID", sessionID),
		)

		return nil, err
	}

	var snap Snapshot
	if err = json.Unmarshal(data, &snap); err != nil {
		sessionRepository.Logger.Error(
			"Failed decode snapshot from JSON",
			zap.Error(err),
			zap.String("sessionID", sessionID),
		)

		return nil, err
	}

	return &snap, nil
}

func (sessionRepository *SessionRepository) Clear(ctx context.Context, sessionID string) error {
	_, err := sessionRepository.RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		sessionRepository.clear(ctx, pipe, sessionID)
		return nil
	})
	if err != nil {
		sessionRepository.Logger.Error(
			"Failed clear session in Redis",
			zap.Error(err),
			zap.String("sessionID", sessionID),
		)

		return err
	}

	return nil
}

func (sessionRepository *SessionRepository) ClearGeneration(ctx context.Context, sessionID string, gen int64) error {
	return sessionRepository.guarded(ctx, sessionID, gen, func(tx *redis.Tx, pipe redis.Pipeliner) error {
		sessionRepository.clear(ctx, pipe, sessionID)
		return nil
	})
}

// clear оставляет в хэше только поколение, чтобы запоздавшие ответы не прошли проверку
func (sessionRepository *SessionRepository) clear(ctx context.Context, pipe redis.Pipeliner, sessionID string) {
	key := sessionKey(sessionID)
	pipe.HDel(ctx, key, fieldToken, fieldUsername, fieldRole)
	pipe.HIncrBy(ctx, key, fieldGen, 1)
	pipe.Expire(ctx, key, sessionRepository.baseDuration)
	pipe.Del(ctx, snapshotKey(sessionID))
}

func (sessionRepository *SessionRepository) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	if err := sessionRepository.RedisClient.Publish(ctx, eventsChannel(ev.SessionID), payload).Err(); err != nil {
		sessionRepository.Logger.Error(
			"Failed publish session event",
			zap.Error(err),
			zap.String("sessionID", ev.SessionID),
		)

		return err
	}

	return nil
}

func (sessionRepository *SessionRepository) Subscribe(ctx context.Context, sessionID string) *redis.PubSub {
	return sessionRepository.RedisClient.Subscribe(ctx, eventsChannel(sessionID))
}

// guarded выполняет запись в MULTI, только если поколение сессии равно gen.
// Иначе возвращает ErrStaleSession
func (sessionRepository *SessionRepository) guarded(
	ctx context.Context,
	sessionID string,
	gen int64,
	fn func(tx *redis.Tx, pipe redis.Pipeliner) error,
) error {
	key := sessionKey(sessionID)

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldGen).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return myErr.ErrStaleSession
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return fn(tx, pipe)
		})
		return err
	}

	err := sessionRepository.RedisClient.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return myErr.ErrStaleSession
	}
	if err != nil && !errors.Is(err, myErr.ErrStaleSession) {
		sessionRepository.Logger.Error(
			"Failed guarded write to Redis",
			zap.Error(err),
			zap.String("sessionID", sessionID),
		)
	}

	return err
}
