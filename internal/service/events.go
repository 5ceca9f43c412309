package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event types published after successful writes.
const (
	EventAssignmentsCreated = "assignments.created"
	EventCompletionUpdated  = "completion.updated"
	EventUserRoleChanged    = "user.role_changed"
)

// DomainEvent is the envelope published to Redis and NATS.
type DomainEvent struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Source  string                 `json:"source"`
	SentAt  time.Time              `json:"sent_at"`
	Payload map[string]interface{} `json:"payload"`
}

// EventPublisher announces domain events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]interface{})
}

type brokerPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewEventPublisher publishes to the Redis channel "<channelBase>:events" and the NATS
// subject "<channelBase with dots>.events". Either transport may be nil.
func NewEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) EventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &brokerPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish is best effort: broker failures are logged and never fail the caller.
func (p *brokerPublisher) Publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	event := DomainEvent{
		ID:      uuid.NewString(),
		Type:    eventType,
		Source:  p.nodeID,
		SentAt:  time.Now().UTC(),
		Payload: payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to encode event")
		return
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, data).Err(); err != nil {
			p.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event to redis")
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject+"."+eventType, data); err != nil {
			p.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event to nats")
		}
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, map[string]interface{}) {}
