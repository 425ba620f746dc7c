package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/classloop/classloop-api/internal/middleware"
)

// Event subjects published by the domain services.
const (
	SubjectGroupApproved = "classloop.events.group.approved"
	SubjectGroupRejected = "classloop.events.group.rejected"
	SubjectAnswerGraded  = "classloop.events.grading.answer"
	SubjectQuizAnswered  = "classloop.events.grading.quiz"
	SubjectReactionMoved = "classloop.events.reaction"
	SubjectMemberCheckIn = "classloop.events.attendance.checkin"
)

// EventPublisher emits domain events for downstream consumers (notification
// fan-out, activity feeds). Publishing is best effort: a failed publish is
// logged, never surfaced to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload interface{})
}

type natsPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewEventPublisher wraps a NATS connection. A nil connection yields a
// publisher that drops every event, so callers never need a nil check.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) EventPublisher {
	return &natsPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

type eventEnvelope struct {
	CorrelationID string      `json:"correlation_id,omitempty"`
	SentAt        time.Time   `json:"sent_at"`
	Payload       interface{} `json:"payload"`
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, payload interface{}) {
	if p.conn == nil {
		return
	}

	envelope := eventEnvelope{
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		SentAt:        time.Now().UTC(),
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("failed to encode event")
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
