package order

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Record, error)
}
