package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/segmentio/kafka-go"
)

// fakeReader реализует ReaderInterface и отдаёт заранее подготовленные сообщения и ошибки.
type fakeReader struct {
	// messages - список сообщений, которые нужно отдать в порядке индексов.
	messages []kafka.Message
	// errors - ошибки, которые нужно возвращать после того, как закончатся messages.
	errors []error
	// idx указывает, сколько раз уже вызывался ReadMessage.
	idx int
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if f.idx < len(f.messages) {
		msg := f.messages[f.idx]
		f.idx++
		return msg, nil
	}
	errIdx := f.idx - len(f.messages)
	if errIdx < len(f.errors) {
		err := f.errors[errIdx]
		f.idx++
		return kafka.Message{}, err
	}
	// Иначе - возвращаем context.Canceled, чтобы Consumer.Consume вышел
	return kafka.Message{}, context.Canceled
}

func (f *fakeReader) Close() error {
	return nil
}

func TestConsumer_Consume_ValidEvent(t *testing.T) {
	evt := Event{
		SessionID: "sess-1",
		Username:  "alice",
		Type:      EventTypeAuthenticated,
		Timestamp: time.Now().UTC(),
	}
	payload, _ := json.Marshal(evt) // nolint:errcheck

	fr := &fakeReader{
		messages: []kafka.Message{{Value: payload}},
		errors:   []error{context.Canceled},
	}
	consumer := &Consumer{
		Reader: fr,
		Logger: zapTestLogger(t),
	}

	var received []Event
	consumer.Consume(context.Background(), func(ctx context.Context, e Event) error {
		received = append(received, e)
		return nil
	})

	if len(received) != 1 {
		t.Fatalf("ожидали 1 событие, получили %d", len(received))
	}
	if received[0].Username != evt.Username || received[0].Type != evt.Type {
		t.Errorf("ожидали %+v, получили %+v", evt, received[0])
	}
}

func TestConsumer_Consume_SkipsReadErrors(t *testing.T) {
	evt := Event{Username: "bob", Type: EventTypeLogout}
	payload, _ := json.Marshal(evt) // nolint:errcheck

	// временная ошибка чтения не останавливает цикл
	fr := &fakeReader{
		messages: []kafka.Message{{Value: payload}},
		errors:   []error{errors.New("broker unavailable"), context.Canceled},
	}
	consumer := &Consumer{Reader: fr, Logger: zapTestLogger(t)}

	calls := 0
	consumer.Consume(context.Background(), func(ctx context.Context, e Event) error {
		calls++
		return nil
	})

	if calls != 1 {
		t.Errorf("ожидали 1 вызов handler, получили %d", calls)
	}
	if fr.idx != 3 {
		t.Errorf("ожидали 3 чтения, получили %d", fr.idx)
	}
}

func TestConsumer_Consume_InvalidJSON(t *testing.T) {
	badMsg := kafka.Message{Value: []byte(`{"username": 123, bad json`)}
	fr := &fakeReader{
		messages: []kafka.Message{badMsg},
		errors:   []error{context.Canceled},
	}
	consumer := &Consumer{Reader: fr, Logger: zapTestLogger(t)}

	called := false
	consumer.Consume(context.Background(), func(ctx context.Context, e Event) error {
		called = true
		return nil
	})

	// При некорректном JSON handler НЕ должен вызываться
	if called {
		t.Error("ожидали, что handler НЕ будет вызван при некорректном JSON")
	}
}

func TestConsumer_Consume_HandlerError(t *testing.T) {
	payload, _ := json.Marshal(Event{Username: "carol", Type: EventTypeFeedbackSubmitted}) // nolint:errcheck
	fr := &fakeReader{
		messages: []kafka.Message{{Value: payload}},
		errors:   []error{context.Canceled},
	}
	consumer := &Consumer{Reader: fr, Logger: zapTestLogger(t)}

	var called bool
	consumer.Consume(context.Background(), func(ctx context.Context, e Event) error {
		called = true
		return errors.New("simulated handler failure")
	})

	if !called {
		t.Error("ожидали, что handler всё же будет вызван, даже если он вернул ошибку")
	}
}

func TestConsumer_Close(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reader := NewMockReaderInterface(ctrl)
	reader.EXPECT().Close().Return(nil)

	consumer := &Consumer{Reader: reader, Logger: zapTestLogger(t)}
	if err := consumer.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
