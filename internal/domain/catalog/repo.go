package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetByCode(ctx context.Context, code string) (*Entry, error)
	Update(ctx context.Context, e *Entry) error
	List(ctx context.Context, department string, limit, offset int) ([]*Entry, int, error)

	// HasBillingReference reports whether any billing line item ever
	// referenced the entry. Entries with billing history keep their
	// workflow type forever.
	HasBillingReference(ctx context.Context, id uuid.UUID) (bool, error)
}
