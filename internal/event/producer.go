package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thevrus/sellflow/internal/machine"
	pkgkafka "github.com/thevrus/sellflow/pkg/kafka"
)

// Kafka topic constants for cart session events.
const (
	TopicStateChanged  = "sellflow.cart.state_changed"
	TopicCartCompleted = "sellflow.cart.completed"
)

// Aggregate type constant.
const AggregateTypeCartSession = "cart_session"

// Source identifier for events originating from this service.
const SourceCartSessionService = "cartsession-service"

// StateChangedData is the payload for a cart.state_changed event.
type StateChangedData struct {
	SessionID  string `json:"session_id"`
	FromState  string `json:"from_state"`
	EventType  string `json:"event_type"`
	ToState    string `json:"to_state"`
	CartID     string `json:"cart_id,omitempty"`
	ErrorCount int    `json:"error_count"`
}

// CartCompletedData is the payload for a cart.completed event.
type CartCompletedData struct {
	SessionID string `json:"session_id"`
	CartID    string `json:"cart_id,omitempty"`
}

// Producer publishes cart session events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the cart session service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishStateChanged publishes a cart.state_changed event for one applied
// transition.
func (p *Producer) PublishStateChanged(ctx context.Context, sessionID string, from machine.State, ev machine.EventType, to machine.State, cartID string, errorCount int) error {
	data := StateChangedData{
		SessionID:  sessionID,
		FromState:  string(from),
		EventType:  string(ev),
		ToState:    string(to),
		CartID:     cartID,
		ErrorCount: errorCount,
	}

	event, err := pkgkafka.NewEvent(TopicStateChanged, sessionID, AggregateTypeCartSession, SourceCartSessionService, data)
	if err != nil {
		return fmt.Errorf("create cart.state_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicStateChanged, event); err != nil {
		return fmt.Errorf("publish cart.state_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.state_changed event",
		slog.String("session_id", sessionID),
		slog.String("to_state", string(to)),
	)

	return nil
}

// PublishCartCompleted publishes a cart.completed event when the aggregate's
// lifetime ends.
func (p *Producer) PublishCartCompleted(ctx context.Context, sessionID, cartID string) error {
	data := CartCompletedData{SessionID: sessionID, CartID: cartID}

	event, err := pkgkafka.NewEvent(TopicCartCompleted, sessionID, AggregateTypeCartSession, SourceCartSessionService, data)
	if err != nil {
		return fmt.Errorf("create cart.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCompleted, event); err != nil {
		return fmt.Errorf("publish cart.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.completed event",
		slog.String("session_id", sessionID),
	)

	return nil
}
