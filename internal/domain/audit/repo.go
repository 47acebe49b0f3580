package audit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Record(ctx context.Context, e *Entry) error
	ListByVisit(ctx context.Context, visitID uuid.UUID, limit, offset int) ([]*Entry, int, error)
}
