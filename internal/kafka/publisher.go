package kafka

import (
	"context"
	"time"

	"feedback-portal/internal/session"

	"go.uber.org/zap"
)

const sendTimeout = 5 * time.Second

// ActivityPublisher переводит события сессий в события активности и отправляет их в фоне,
// чтобы запрос пользователя не ждал Kafka
type ActivityPublisher struct {
	producer EventProducer
	events   chan Event
	done     chan struct{}
	logger   *zap.SugaredLogger
}

func NewActivityPublisher(producer EventProducer, buffer int, logger *zap.SugaredLogger) *ActivityPublisher {
	return &ActivityPublisher{
		producer: producer,
		events:   make(chan Event, buffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Listen - обработчик для Store.OnChange. Не блокируется: при полной очереди событие теряется
func (a *ActivityPublisher) Listen(ev session.Event) {
	event, ok := activityEvent(ev)
	if !ok {
		return
	}

	select {
	case a.events <- event:
	default:
		a.logger.Warnw("Activity queue is full, dropping event",
			"type", event.Type,
			"sessionID", event.SessionID,
		)
	}
}

// Run отправляет события, пока не отменен ctx; оставшиеся в очереди события дописываются.
// Вызывается один раз
func (a *ActivityPublisher) Run(ctx context.Context) {
	defer close(a.done)

	for {
		select {
		case ev := <-a.events:
			a.send(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-a.events:
					a.send(ev)
				default:
					return
				}
			}
		}
	}
}

// Wait ждет, пока Run допишет очередь. Продюсер можно закрывать только после этого
func (a *ActivityPublisher) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *ActivityPublisher) send(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	// ошибка уже залогирована продюсером
	_ = a.producer.SendEvent(ctx, ev) // nolint:errcheck
}

func activityEvent(ev session.Event) (Event, bool) {
	var typ EventType
	switch ev.Type {
	case session.EventIdentity:
		typ = EventTypeAuthenticated
	case session.EventLogout:
		typ = EventTypeLogout
	case session.EventForcedLogout:
		typ = EventTypeForcedLogout
	case session.EventFeedbackSubmitted:
		typ = EventTypeFeedbackSubmitted
	default:
		return Event{}, false
	}

	return Event{
		SessionID: ev.SessionID,
		Username:  ev.Username,
		Type:      typ,
		Timestamp: ev.At,
	}, true
}
