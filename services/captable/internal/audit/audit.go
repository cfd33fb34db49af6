package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AfshinJalili/captable/libs/kafka"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/google/uuid"
)

type Action string

const (
	ActionLogin              Action = "login"
	ActionShareIssuance      Action = "share_issuance"
	ActionShareholderCreated Action = "shareholder_created"
	ActionShareholderUpdated Action = "shareholder_updated"
)

type Event struct {
	ID        uuid.UUID
	ActorID   uuid.UUID
	Action    Action
	Details   string
	IP        string
	UserAgent string
	At        time.Time
}

type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

type Store interface {
	InsertAudit(ctx context.Context, event storage.AuditEvent) error
}

// StoreRecorder appends events to the audit_events table.
type StoreRecorder struct {
	store Store
}

func NewStoreRecorder(store Store) *StoreRecorder {
	return &StoreRecorder{store: store}
}

func (r *StoreRecorder) Record(ctx context.Context, ev Event) error {
	return r.store.InsertAudit(ctx, storage.AuditEvent{
		ID:        ev.ID,
		UserID:    ev.ActorID,
		Action:    string(ev.Action),
		Details:   ev.Details,
		IPAddress: ev.IP,
		UserAgent: ev.UserAgent,
		CreatedAt: ev.At,
	})
}

const eventVersion = 1

type message struct {
	kafka.Envelope
	ActorID   string `json:"actor_id"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	IP        string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// KafkaRecorder publishes events for downstream consumers, keyed by actor.
type KafkaRecorder struct {
	publisher kafka.Publisher
	topic     string
}

func NewKafkaRecorder(publisher kafka.Publisher, topic string) *KafkaRecorder {
	return &KafkaRecorder{publisher: publisher, topic: topic}
}

func (r *KafkaRecorder) Record(ctx context.Context, ev Event) error {
	env, err := kafka.NewEnvelope(ev.ID.String(), "captable.audit."+string(ev.Action), eventVersion, ev.At, "")
	if err != nil {
		return fmt.Errorf("audit envelope: %w", err)
	}
	msg := message{
		Envelope:  env,
		ActorID:   ev.ActorID.String(),
		Action:    string(ev.Action),
		Details:   ev.Details,
		IP:        ev.IP,
		UserAgent: ev.UserAgent,
	}
	if _, _, err := r.publisher.PublishJSON(ctx, r.topic, ev.ActorID.String(), msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

// Multi records to every sink and joins their failures.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
