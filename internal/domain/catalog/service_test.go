package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicore/clinicore/internal/platform/apperr"
)

// -- Mock Repository --

type mockRepo struct {
	entries map[string]*Entry
	billed  map[uuid.UUID]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		entries: make(map[string]*Entry),
		billed:  make(map[uuid.UUID]bool),
	}
}

func (m *mockRepo) Create(_ context.Context, e *Entry) error {
	if _, ok := m.entries[e.Code]; ok {
		return apperr.Conflict("catalog entry %s already exists", e.Code)
	}
	e.ID = uuid.New()
	m.entries[e.Code] = e
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, apperr.NotFound("catalog entry not found")
}

func (m *mockRepo) GetByCode(_ context.Context, code string) (*Entry, error) {
	e, ok := m.entries[code]
	if !ok {
		return nil, apperr.NotFound("catalog entry not found")
	}
	return e, nil
}

func (m *mockRepo) Update(_ context.Context, e *Entry) error {
	m.entries[e.Code] = e
	return nil
}

func (m *mockRepo) List(_ context.Context, department string, limit, offset int) ([]*Entry, int, error) {
	var result []*Entry
	for _, e := range m.entries {
		if department == "" || e.Department == department {
			result = append(result, e)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) HasBillingReference(_ context.Context, id uuid.UUID) (bool, error) {
	return m.billed[id], nil
}

func validEntry() *Entry {
	return &Entry{
		Code:          "LAB-CBC",
		DisplayName:   "Complete Blood Count",
		Price:         decimal.NewFromInt(25),
		Department:    "laboratory",
		WorkflowType:  WorkflowLabOrder,
		Category:      CategoryLaboratory,
		RequiresVisit: true,
		BillingTiming: BillingBefore,
	}
}

func TestCreate_Valid(t *testing.T) {
	svc := NewService(newMockRepo())
	e := validEntry()
	if err := svc.Create(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Active {
		t.Error("new entries should be active")
	}
}

func TestCreate_InvalidWorkflowType(t *testing.T) {
	svc := NewService(newMockRepo())
	e := validEntry()
	e.WorkflowType = "TELEPORTATION"
	err := svc.Create(context.Background(), e)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLookup_InactiveIsNotFound(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	e := validEntry()
	if err := svc.Create(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if err := svc.Deactivate(context.Background(), e.Code); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Lookup(context.Background(), e.Code)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for inactive entry, got %v", err)
	}
}

func TestLookup_Unknown(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Lookup(context.Background(), "NOPE")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdate_WorkflowTypeLockedAfterBilling(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	e := validEntry()
	if err := svc.Create(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	repo.billed[e.ID] = true

	wt := WorkflowProcedure
	_, err := svc.Update(context.Background(), e.Code, &EntryPatch{WorkflowType: &wt})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdate_WorkflowTypeChangeableBeforeBilling(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	e := validEntry()
	if err := svc.Create(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	wt := WorkflowProcedure
	updated, err := svc.Update(context.Background(), e.Code, &EntryPatch{WorkflowType: &wt})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.WorkflowType != WorkflowProcedure {
		t.Errorf("expected workflow type updated, got %s", updated.WorkflowType)
	}
	if !updated.RequiresVisit {
		t.Error("fields absent from the patch must stay untouched")
	}
}

func TestUpdate_ZeroPriceIsSettable(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	e := validEntry()
	if err := svc.Create(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	free := decimal.Zero
	updated, err := svc.Update(context.Background(), e.Code, &EntryPatch{Price: &free})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.Price.IsZero() {
		t.Errorf("expected price 0, got %s", updated.Price)
	}
	if updated.DisplayName != "Complete Blood Count" {
		t.Error("patch must not clobber unrelated fields")
	}
}

func TestUpdate_ClearsDrugName(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	e := validEntry()
	drug := "Amoxicillin 500mg"
	e.DrugName = &drug
	if err := svc.Create(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	empty := ""
	updated, err := svc.Update(context.Background(), e.Code, &EntryPatch{DrugName: &empty})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.DrugName != nil {
		t.Errorf("expected drug name cleared, got %v", *updated.DrugName)
	}
}

func TestAllowsRole(t *testing.T) {
	e := validEntry()
	e.AllowedRoles = []string{"physician"}

	if !e.AllowsRole("physician") {
		t.Error("physician should be allowed")
	}
	if e.AllowsRole("nurse") {
		t.Error("nurse should not be allowed")
	}
	if e.AllowsRole(FrontDeskRole) {
		t.Error("frontdesk has no override on laboratory entries")
	}

	e.Category = CategoryConsultation
	if !e.AllowsRole(FrontDeskRole) {
		t.Error("frontdesk may order consultation-class entries regardless of allowed roles")
	}
}

func TestAllowsRole_EmptySetAllowsAll(t *testing.T) {
	e := validEntry()
	e.AllowedRoles = nil
	if !e.AllowsRole("nurse") {
		t.Error("empty allowed-roles set should admit any role")
	}
}
