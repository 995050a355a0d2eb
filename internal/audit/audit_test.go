package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"rollcall/internal/queue"
)

type failingQueue struct{}

func (failingQueue) Publish(context.Context, queue.Message) error {
	return errors.New("queue down")
}

func (failingQueue) Consume(context.Context) (<-chan queue.Message, error) {
	return nil, errors.New("queue down")
}

func TestRecordPublishes(t *testing.T) {
	q := queue.NewInMemory(4)
	rec := NewRecorder(q, zap.NewNop())

	rec.Record(context.Background(), "u1", "USER_LOGIN", "User", "u1", "logged in", "10.0.0.1")

	msgs, err := q.Consume(context.Background())
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	msg := <-msgs
	if msg.Type != MessageType {
		t.Fatalf("message type = %q", msg.Type)
	}

	var e Entry
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Action != "USER_LOGIN" || e.UserID == nil || *e.UserID != "u1" {
		t.Fatalf("entry = %+v", e)
	}
	if e.ID == "" || e.At.IsZero() {
		t.Fatalf("entry missing id or timestamp: %+v", e)
	}
}

func TestRecordSwallowsPublishFailure(t *testing.T) {
	rec := NewRecorder(failingQueue{}, zap.NewNop())

	// Must not panic or propagate the queue error.
	rec.Record(context.Background(), "", "COURSE_CREATED", "Course", "c1", "", "")
}

func TestRecordAnonymousActor(t *testing.T) {
	q := queue.NewInMemory(1)
	rec := NewRecorder(q, zap.NewNop())

	rec.Record(context.Background(), "", "LOGIN_FAILED", "User", "", "bad password", "")

	msgs, _ := q.Consume(context.Background())
	var e Entry
	if err := json.Unmarshal((<-msgs).Body, &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.UserID != nil {
		t.Fatalf("anonymous entry has user id %q", *e.UserID)
	}
}
