package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/orders_backend/config"
	"github.com/mmdatafocus/orders_backend/utils"
)

// broadcastEntity publishes an entity change event to connected
// observers. Broadcast is best-effort: failures are logged and never
// surfaced to the caller, the persisted mutation stands regardless.
func broadcastEntity(ctx context.Context, eventType string, entity interface{}) {
	payload, err := json.Marshal(entity)
	if err != nil {
		config.LogError(config.GetLogger(), "broadcast.go", "broadcastEntity", "marshal entity", eventType, err)
		return
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)
	role, _ := utils.GetUserRoleFromContext(ctx)
	correlationId, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || correlationId == "" {
		correlationId = uuid.NewString()
	}

	event := config.BroadcastEvent{
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		ActorId:       userId,
		ActorName:     userName,
		ActorRole:     role,
		Entity:        payload,
		CorrelationId: correlationId,
	}

	if err := config.PublishBroadcastEvent(event); err != nil {
		config.LogError(config.GetLogger(), "broadcast.go", "broadcastEntity", "publish broadcast event", eventType, err)
	}
}
