package activity

import (
	"context"
	"database/sql"
	"time"

	"feedback-portal/internal/kafka"

	"go.uber.org/zap"
)

const schema = `
	CREATE TABLE IF NOT EXISTS user_activity (
		username   TEXT        NOT NULL,
		event_type TEXT        NOT NULL,
		count      BIGINT      NOT NULL DEFAULT 0,
		last_seen  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (username, event_type)
	)
`

type Repository struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

func NewRepository(db *sql.DB, logger *zap.SugaredLogger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repository) Record(ctx context.Context, username string, typ kafka.EventType, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_activity (username, event_type, count, last_seen)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (username, event_type)
		DO UPDATE SET count = user_activity.count + 1,
			last_seen = GREATEST(user_activity.last_seen, EXCLUDED.last_seen)
	`, username, string(typ), at)
	if err != nil {
		r.logger.Warnf("Ошибка при записи активности %s: %v", username, err)
		return err
	}

	return nil
}

func (r *Repository) GetActivity(ctx context.Context, username string) ([]Counter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_type, count, last_seen
		FROM user_activity
		WHERE username = $1
		ORDER BY event_type
	`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counters []Counter
	for rows.Next() {
		var (
			c   Counter
			typ string
		)
		if err := rows.Scan(&typ, &c.Count, &c.LastSeen); err != nil {
			return nil, err
		}
		c.Type = kafka.EventType(typ)
		counters = append(counters, c)
	}

	return counters, rows.Err()
}

func (r *Repository) TopContributors(ctx context.Context, limit int) ([]Contributor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT username, count
		FROM user_activity
		WHERE event_type = $1
		ORDER BY count DESC, username
		LIMIT $2
	`, string(kafka.EventTypeFeedbackSubmitted), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributors []Contributor
	for rows.Next() {
		var c Contributor
		if err := rows.Scan(&c.Username, &c.Count); err != nil {
			return nil, err
		}
		contributors = append(contributors, c)
	}

	return contributors, rows.Err()
}
