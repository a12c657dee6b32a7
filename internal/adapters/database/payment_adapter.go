package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/errors"
)

// PaymentAdapter implements PaymentRepository on PostgreSQL
type PaymentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPaymentAdapter creates a new payment adapter
func NewPaymentAdapter(client *postgres.Client) repositories.PaymentRepository {
	return &PaymentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create persists a settled cash payment
func (a *PaymentAdapter) Create(ctx context.Context, payment *entities.CashPayment) error {
	query, args, err := a.db.Insert("cash_payments").Rows(goqu.Record{
		"id":          payment.ID,
		"patient_ref": payment.PatientRef,
		"amount":      payment.Amount,
		"paid_at":     payment.PaidAt,
		"created_at":  payment.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create cash payment", err)
	}

	return nil
}

// SumCashInWindow sums cash payments settled in [from, to)
func (a *PaymentAdapter) SumCashInWindow(ctx context.Context, from, to time.Time) (float64, error) {
	query, args, err := a.db.Select(goqu.COALESCE(goqu.SUM("amount"), 0)).
		From("cash_payments").
		Where(goqu.I("paid_at").Gte(from)).
		Where(goqu.I("paid_at").Lt(to)).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build sum query", err)
	}

	var sum float64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, apperrors.NewInternalError("failed to sum cash payments", err)
	}

	return sum, nil
}
