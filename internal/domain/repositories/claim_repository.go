package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
)

// ClaimFilter holds filtering options for claim queries. Nil date bounds are
// open-ended.
type ClaimFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	ProviderID string
	Statuses   []entities.ClaimStatus
	Limit      int
	Offset     int
}

// ClaimRepository defines the interface for claim persistence. Claims are
// append-only: Create inserts, TransitionStatus mutates through a
// compare-and-set on the current status, nothing deletes.
type ClaimRepository interface {
	// Create persists a new claim together with its line items
	Create(ctx context.Context, claim *entities.Claim) error

	// GetByID retrieves a claim with its line items
	GetByID(ctx context.Context, id string) (*entities.Claim, error)

	// List retrieves claims matching the filter, without line items
	List(ctx context.Context, filter ClaimFilter) ([]*entities.Claim, error)

	// TransitionStatus persists the claim's new status, amounts and
	// actor/timestamp stamps, guarded by the expected current status.
	// Returns StateConflict when the stored status no longer equals
	// fromStatus.
	TransitionStatus(ctx context.Context, claim *entities.Claim, fromStatus entities.ClaimStatus) error

	// CountInWindow counts claims created in [from, to) for the optional
	// provider and statuses
	CountInWindow(ctx context.Context, from, to time.Time, providerID string, statuses []entities.ClaimStatus) (int, error)

	// SumPaidInWindow sums paid_amount over claims settled in [from, to)
	SumPaidInWindow(ctx context.Context, from, to time.Time) (float64, error)
}

// PaymentRepository defines the interface for non-insurance payment records
type PaymentRepository interface {
	// Create persists a settled cash payment
	Create(ctx context.Context, payment *entities.CashPayment) error

	// SumCashInWindow sums cash payments settled in [from, to)
	SumCashInWindow(ctx context.Context, from, to time.Time) (float64, error)
}
