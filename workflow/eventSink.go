package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/orders_backend/config"
	"github.com/mmdatafocus/orders_backend/utils"
)

// ErrSinkNotConnected is returned when a sink is used before its
// Connect lifecycle ran. Startup must treat this as a configuration
// error, never as a condition to paper over.
var ErrSinkNotConnected = errors.New("event sink is not connected")

// EventSink fans an entity change event out to connected observers.
// The fulfillment service receives one at construction time instead of
// reaching for a global channel handle.
type EventSink interface {
	Broadcast(ctx context.Context, eventType string, entity interface{}) error
}

// PubSubEventSink publishes broadcast events through the shared
// Pub/Sub client. Connect must run before first use.
type PubSubEventSink struct {
	connected bool
}

func NewPubSubEventSink() *PubSubEventSink {
	return &PubSubEventSink{}
}

// Connect establishes the Pub/Sub client and ensures the broadcast and
// push topics exist.
func (s *PubSubEventSink) Connect(ctx context.Context) error {
	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		return err
	}
	for _, topicEnv := range []string{"PUBSUB_BROADCAST_TOPIC", "PUBSUB_PUSH_TOPIC"} {
		topic := os.Getenv(topicEnv)
		if topic == "" {
			return errors.New(topicEnv + " is required")
		}
		if _, err := config.CreateTopicIfNotExists(client, topic); err != nil {
			return err
		}
	}
	s.connected = true
	return nil
}

func (s *PubSubEventSink) Broadcast(ctx context.Context, eventType string, entity interface{}) error {
	if s == nil || !s.connected {
		return ErrSinkNotConnected
	}

	payload, err := json.Marshal(entity)
	if err != nil {
		return err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)
	role, _ := utils.GetUserRoleFromContext(ctx)
	correlationId, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || correlationId == "" {
		correlationId = uuid.NewString()
	}

	return config.PublishBroadcastEvent(config.BroadcastEvent{
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		ActorId:       userId,
		ActorName:     userName,
		ActorRole:     role,
		Entity:        payload,
		CorrelationId: correlationId,
	})
}
