package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// Append inserts a line item. A duplicate (visit, entry,
	// consultation) triple is rejected with a conflict error.
	Append(ctx context.Context, li *LineItem) error
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*LineItem, error)
	TotalCharges(ctx context.Context, visitID uuid.UUID) (decimal.Decimal, error)

	CreatePayment(ctx context.Context, p *Payment) error
	TotalPayments(ctx context.Context, visitID uuid.UUID) (decimal.Decimal, error)
}
