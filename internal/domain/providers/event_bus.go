package providers

import (
	"context"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to change
// events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event types
const (
	// EventChannelRuleUpdates is the channel for coverage rule writes
	EventChannelRuleUpdates = "coverage:updates"

	// EventChannelClaimUpdates is the channel for claim writes
	EventChannelClaimUpdates = "claims:updates"

	// EventChannelPlanPrefix is the prefix for plan-specific channels
	EventChannelPlanPrefix = "plan:"
)

// GetPlanChannel returns the channel name for a specific plan
func GetPlanChannel(planID string) string {
	return EventChannelPlanPrefix + planID
}
