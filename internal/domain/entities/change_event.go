package entities

import (
	"time"

	"github.com/google/uuid"
)

// ChangeEventType represents the kind of write a change event describes
type ChangeEventType string

const (
	ChangeEventCategoryDefaultUpdated ChangeEventType = "category_default_updated"
	ChangeEventExceptionUpserted      ChangeEventType = "exception_upserted"
	ChangeEventExceptionsImported     ChangeEventType = "exceptions_imported"
	ChangeEventClaimCreated           ChangeEventType = "claim_created"
	ChangeEventClaimTransitioned      ChangeEventType = "claim_transitioned"
)

// ChangeEvent is published on every RuleStore or claim write. The cache
// invalidation service consumes these to drop dependent cache keys before
// stale decisions can be served.
type ChangeEvent struct {
	ID              string           `json:"id"`
	EventType       ChangeEventType  `json:"event_type"`
	InsurancePlanID string           `json:"insurance_plan_id,omitempty"`
	Category        CoverageCategory `json:"category,omitempty"`
	ItemCode        string           `json:"item_code,omitempty"`
	ClaimID         string           `json:"claim_id,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// NewRuleChangeEvent creates a change event for a coverage rule write
func NewRuleChangeEvent(eventType ChangeEventType, planID string, category CoverageCategory, itemCode string) *ChangeEvent {
	return &ChangeEvent{
		ID:              uuid.NewString(),
		EventType:       eventType,
		InsurancePlanID: planID,
		Category:        category,
		ItemCode:        itemCode,
		Timestamp:       time.Now(),
	}
}

// NewClaimChangeEvent creates a change event for a claim write
func NewClaimChangeEvent(eventType ChangeEventType, claimID string) *ChangeEvent {
	return &ChangeEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		ClaimID:   claimID,
		Timestamp: time.Now(),
	}
}
