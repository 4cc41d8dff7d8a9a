package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"activities/internal/repo"
)

// Audit event types, one per completed journey.
const (
	ActivityCreated          = "activity.created"
	ActivityUpdated          = "activity.updated"
	AllocationCreated        = "allocation.created"
	AllocationUpdated        = "allocation.updated"
	AllocationsEnded         = "allocation.ended"
	WaitlistApplicationAdded = "waitlist_application.created"
	AppointmentSeriesCreated = "appointment_series.created"
	AppointmentUpdated       = "appointment.updated"
	AppointmentCancelled     = "appointment.cancelled"
	AppointmentDeleted       = "appointment.deleted"
	AppointmentUncancelled   = "appointment.uncancelled"
)

type Writer struct {
	DB  repo.Execer
	Now func() time.Time
}

type EventPayload map[string]any

// Entry is what a handler knows about the change it just made.
type Entry struct {
	Type       string
	PrisonCode string
	EntityKind string
	EntityID   string
	ActorID    string
	RequestID  string
	Payload    EventPayload
}

// Append records e through ex, or through the writer's DB when ex is nil.
func (w Writer) Append(ctx context.Context, ex repo.Execer, e Entry) error {
	if ex == nil {
		ex = w.DB
	}
	if ex == nil {
		return fmt.Errorf("append %s event: no database", e.Type)
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	payload := e.Payload
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = ex.ExecContext(ctx, `INSERT INTO events(ts,type,prison_code,entity_kind,entity_id,actor_id,request_id,payload_json) VALUES (?,?,?,?,?,?,?,?)`,
		ts, e.Type, e.PrisonCode, e.EntityKind, nullable(e.EntityID), e.ActorID, nullable(e.RequestID), string(data))
	if err != nil {
		return fmt.Errorf("append %s event: %w", e.Type, err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
