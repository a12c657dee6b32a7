package repositories

import (
	"context"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
)

// PlanFilter holds filtering options for listing plans
type PlanFilter struct {
	ProviderID string
	IsActive   *bool
	Limit      int
	Offset     int
}

// PlanRepository defines the interface for insurance plan persistence
type PlanRepository interface {
	// GetByID retrieves a plan by ID
	GetByID(ctx context.Context, id string) (*entities.InsurancePlan, error)

	// List retrieves plans matching the filter
	List(ctx context.Context, filter PlanFilter) ([]*entities.InsurancePlan, error)

	// Update updates a plan's editable fields
	Update(ctx context.Context, plan *entities.InsurancePlan) error

	// Deactivate soft-deletes a plan; plans are never hard-deleted
	Deactivate(ctx context.Context, id string) error

	// GetProvider retrieves an insurance provider by ID
	GetProvider(ctx context.Context, id string) (*entities.InsuranceProvider, error)

	// ListProviders retrieves all insurance providers
	ListProviders(ctx context.Context) ([]*entities.InsuranceProvider, error)
}
