package audit

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an entry. Callers must not swallow the error: a
// governed operation whose audit write fails is itself a failure.
func (s *Service) Record(ctx context.Context, e *Entry) error {
	return s.repo.Record(ctx, e)
}

func (s *Service) ListByVisit(ctx context.Context, visitID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListByVisit(ctx, visitID, limit, offset)
}
