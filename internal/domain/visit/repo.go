package visit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateVisit(ctx context.Context, v *Visit) error
	GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error)
	ListVisits(ctx context.Context, limit, offset int) ([]*Visit, int, error)
	UpdateVisit(ctx context.Context, v *Visit) error

	CreateConsultation(ctx context.Context, c *Consultation) error
	GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error)
	// CurrentConsultation returns the visit's single non-CLOSED
	// consultation, or nil when there is none.
	CurrentConsultation(ctx context.Context, visitID uuid.UUID) (*Consultation, error)
	UpdateConsultation(ctx context.Context, c *Consultation) error
	ListConsultations(ctx context.Context, visitID uuid.UUID) ([]*Consultation, error)
}
