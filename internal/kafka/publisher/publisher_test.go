package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	kafkapublisher "github.com/example/recipient-mailer/internal/kafka/publisher"
	"github.com/example/recipient-mailer/internal/models"
)

type fakeSyncProducer struct {
	err     error
	calls   int
	topic   string
	key     []byte
	headers map[string][]byte
	payload []byte
}

func (f *fakeSyncProducer) PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error {
	f.calls++
	f.topic = topic
	f.key = append([]byte(nil), key...)
	f.headers = headers
	f.payload = append([]byte(nil), payload...)
	return f.err
}

func TestStatusPublisherPublishesEvent(t *testing.T) {
	prod := &fakeSyncProducer{}
	pub := kafkapublisher.NewStatusPublisher(prod, "mailer.status", zerolog.Nop())
	if pub == nil {
		t.Fatalf("expected publisher instance")
	}

	event := models.StatusEvent{
		RunID:       "run-1",
		MessageID:   "message-1",
		Index:       2,
		Recipient:   "user@example.com",
		EventType:   models.StatusEventFailed,
		FailureKind: "send",
		Code:        550,
		Status:      "rejected",
		Error:       "mailbox unavailable",
		Timestamp:   time.Unix(123, 0).UTC(),
	}

	if err := pub.PublishStatus(context.Background(), event); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	if prod.topic != "mailer.status" {
		t.Fatalf("expected topic mailer.status, got %s", prod.topic)
	}
	if string(prod.key) != "message-1" {
		t.Fatalf("expected key message-1, got %s", string(prod.key))
	}
	if ct := prod.headers["content-type"]; string(ct) != "application/json" {
		t.Fatalf("expected content-type header, got %s", string(ct))
	}

	var payload models.StatusEvent
	if err := json.Unmarshal(prod.payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload != event {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestStatusPublisherPropagatesProducerError(t *testing.T) {
	expectedErr := errors.New("broker down")
	prod := &fakeSyncProducer{err: expectedErr}

	pub := kafkapublisher.NewStatusPublisher(prod, "mailer.status", zerolog.Nop())
	err := pub.PublishStatus(context.Background(), models.StatusEvent{MessageID: "id"})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected producer error, got %v", err)
	}
}

func TestStatusPublisherHonoursCancelledContext(t *testing.T) {
	prod := &fakeSyncProducer{}
	pub := kafkapublisher.NewStatusPublisher(prod, "mailer.status", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := pub.PublishStatus(ctx, models.StatusEvent{MessageID: "id"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if prod.calls != 0 {
		t.Fatalf("expected no produce call, got %d", prod.calls)
	}
}

func TestStatusPublisherHandlesNilInstance(t *testing.T) {
	if pub := kafkapublisher.NewStatusPublisher(nil, "mailer.status", zerolog.Nop()); pub != nil {
		t.Fatalf("expected nil publisher without a producer")
	}

	var pub *kafkapublisher.StatusPublisher
	if err := pub.PublishStatus(context.Background(), models.StatusEvent{}); !errors.Is(err, kafkapublisher.ErrProducerNotInitialised()) {
		t.Fatalf("expected not initialised error, got %v", err)
	}
}
