// Package audit records security-relevant actions. Recording is best-effort:
// a single attempt, failures logged and swallowed, never surfaced to the
// operation being audited.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rollcall/internal/queue"
)

// MessageType tags audit entries on the queue.
const MessageType = "audit"

// Entry is one append-only audit record.
type Entry struct {
	ID         string    `json:"id"`
	At         time.Time `json:"at"`
	UserID     *string   `json:"user_id,omitempty"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
}

// Recorder publishes audit entries onto a queue for out-of-band persistence.
type Recorder struct {
	q   queue.Queue
	log *zap.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(q queue.Queue, log *zap.Logger) *Recorder {
	return &Recorder{q: q, log: log}
}

// Record publishes an audit entry. Never returns an error; a failed publish
// is logged and dropped so the primary operation is never blocked.
func (r *Recorder) Record(ctx context.Context, actorID, action, entityType, entityID, details, ip string) {
	if r == nil || r.q == nil {
		return
	}
	entry := Entry{
		ID:         uuid.NewString(),
		At:         time.Now().UTC(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		IPAddress:  ip,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}

	body, err := json.Marshal(entry)
	if err != nil {
		r.log.Warn("audit entry marshal failed", zap.String("action", action), zap.Error(err))
		return
	}
	if err := r.q.Publish(ctx, queue.Message{Type: MessageType, Body: body}); err != nil {
		r.log.Warn("audit publish failed", zap.String("action", action), zap.Error(err))
	}
}
