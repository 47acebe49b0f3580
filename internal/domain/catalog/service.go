package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicore/clinicore/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Lookup resolves an orderable entry by code. Unknown and deactivated
// codes are both reported as not found; the read path has no side
// effects.
func (s *Service) Lookup(ctx context.Context, code string) (*Entry, error) {
	e, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !e.Active {
		return nil, apperr.NotFound("catalog entry %s is inactive", code)
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, code string) (*Entry, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *Service) List(ctx context.Context, department string, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, department, limit, offset)
}

func (s *Service) Create(ctx context.Context, e *Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	e.Active = true
	return s.repo.Create(ctx, e)
}

// EntryPatch is a partial update of an entry. Nil fields are left
// untouched, so zero values such as a free (0) price or clearing a
// department stay expressible.
type EntryPatch struct {
	DisplayName          *string          `json:"display_name"`
	Price                *decimal.Decimal `json:"price"`
	Department           *string          `json:"department"`
	Category             *string          `json:"category"`
	WorkflowType         *WorkflowType    `json:"workflow_type"`
	RequiresVisit        *bool            `json:"requires_visit"`
	RequiresConsultation *bool            `json:"requires_consultation"`
	AllowedRoles         *[]string        `json:"allowed_roles"`
	BillingTiming        *BillingTiming   `json:"billing_timing"`
	// DrugName set to the empty string clears the drug association.
	DrugName *string `json:"drug_name"`
}

// Update applies a patch to an entry. The workflow type is immutable
// once billing history references the entry: historical line items must
// keep meaning what they meant when they were written.
func (s *Service) Update(ctx context.Context, code string, patch *EntryPatch) (*Entry, error) {
	existing, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if patch.WorkflowType != nil && *patch.WorkflowType != existing.WorkflowType {
		billed, err := s.repo.HasBillingReference(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		if billed {
			return nil, apperr.Conflict(
				"workflow type of %s cannot change: entry has billing history", code)
		}
		existing.WorkflowType = *patch.WorkflowType
	}

	if patch.DisplayName != nil {
		existing.DisplayName = *patch.DisplayName
	}
	if patch.Price != nil {
		existing.Price = *patch.Price
	}
	if patch.Department != nil {
		existing.Department = *patch.Department
	}
	if patch.Category != nil {
		existing.Category = *patch.Category
	}
	if patch.RequiresVisit != nil {
		existing.RequiresVisit = *patch.RequiresVisit
	}
	if patch.RequiresConsultation != nil {
		existing.RequiresConsultation = *patch.RequiresConsultation
	}
	if patch.AllowedRoles != nil {
		existing.AllowedRoles = *patch.AllowedRoles
	}
	if patch.BillingTiming != nil {
		existing.BillingTiming = *patch.BillingTiming
	}
	if patch.DrugName != nil {
		if *patch.DrugName == "" {
			existing.DrugName = nil
		} else {
			existing.DrugName = patch.DrugName
		}
	}

	if err := validateEntry(existing); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Deactivate retires an entry. Entries are never deleted.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	e, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if !e.Active {
		return nil
	}
	e.Active = false
	return s.repo.Update(ctx, e)
}

// HasBillingReference is exposed for the admin surface.
func (s *Service) HasBillingReference(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.HasBillingReference(ctx, id)
}

func validateEntry(e *Entry) error {
	if e.Code == "" {
		return apperr.Validation("code is required")
	}
	if e.DisplayName == "" {
		return apperr.Validation("display_name is required")
	}
	if !e.WorkflowType.Valid() {
		return apperr.Validation("invalid workflow_type: %s", e.WorkflowType)
	}
	if e.BillingTiming == "" {
		e.BillingTiming = BillingAfter
	}
	if !e.BillingTiming.Valid() {
		return apperr.Validation("invalid billing_timing: %s", e.BillingTiming)
	}
	if e.Price.LessThan(decimal.Zero) {
		return apperr.Validation("price must not be negative")
	}
	return nil
}
