package visit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/audit"
	"github.com/clinicore/clinicore/internal/platform/apperr"
)

// -- Mocks --

type mockRepo struct {
	visits        map[uuid.UUID]*Visit
	consultations map[uuid.UUID]*Consultation
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		visits:        make(map[uuid.UUID]*Visit),
		consultations: make(map[uuid.UUID]*Consultation),
	}
}

func (m *mockRepo) CreateVisit(_ context.Context, v *Visit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = VisitOpen
	}
	if v.PaymentStatus == "" {
		v.PaymentStatus = PaymentUnpaid
	}
	v.CreatedAt = time.Now()
	m.visits[v.ID] = v
	return nil
}

func (m *mockRepo) GetVisit(_ context.Context, id uuid.UUID) (*Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, apperr.NotFound("visit not found")
	}
	return v, nil
}

func (m *mockRepo) ListVisits(_ context.Context, limit, offset int) ([]*Visit, int, error) {
	var result []*Visit
	for _, v := range m.visits {
		result = append(result, v)
	}
	return result, len(result), nil
}

func (m *mockRepo) UpdateVisit(_ context.Context, v *Visit) error {
	m.visits[v.ID] = v
	return nil
}

func (m *mockRepo) CreateConsultation(_ context.Context, c *Consultation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	m.consultations[c.ID] = c
	return nil
}

func (m *mockRepo) GetConsultation(_ context.Context, id uuid.UUID) (*Consultation, error) {
	c, ok := m.consultations[id]
	if !ok {
		return nil, apperr.NotFound("consultation not found")
	}
	return c, nil
}

func (m *mockRepo) CurrentConsultation(_ context.Context, visitID uuid.UUID) (*Consultation, error) {
	for _, c := range m.consultations {
		if c.VisitID == visitID && c.Status != ConsultationClosed {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) UpdateConsultation(_ context.Context, c *Consultation) error {
	m.consultations[c.ID] = c
	return nil
}

func (m *mockRepo) ListConsultations(_ context.Context, visitID uuid.UUID) ([]*Consultation, error) {
	var result []*Consultation
	for _, c := range m.consultations {
		if c.VisitID == visitID {
			result = append(result, c)
		}
	}
	return result, nil
}

type mockAudits struct {
	entries []*audit.Entry
	fail    bool
}

func (m *mockAudits) Record(_ context.Context, e *audit.Entry) error {
	if m.fail {
		return apperr.Internal("audit store unavailable")
	}
	m.entries = append(m.entries, e)
	return nil
}

// passTx runs the function directly; transactional behavior is covered
// by the pg layer.
type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo, *mockAudits) {
	repo := newMockRepo()
	audits := &mockAudits{}
	return NewService(repo, audits, passTx{}, zerolog.Nop()), repo, audits
}

func openVisit(t *testing.T, repo *mockRepo) *Visit {
	t.Helper()
	v := &Visit{PatientID: uuid.New()}
	if err := repo.CreateVisit(context.Background(), v); err != nil {
		t.Fatal(err)
	}
	return v
}

// -- Visit lifecycle --

func TestOpenVisit(t *testing.T) {
	svc, repo, audits := newTestService()

	v, err := svc.OpenVisit(context.Background(), uuid.New(), "u1", []string{"frontdesk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != VisitOpen || v.PaymentStatus != PaymentUnpaid {
		t.Errorf("new visit state = %s/%s, want OPEN/UNPAID", v.Status, v.PaymentStatus)
	}
	if _, ok := repo.visits[v.ID]; !ok {
		t.Error("visit not persisted")
	}
	if len(audits.entries) != 1 || audits.entries[0].Action != audit.ActionOpenVisit {
		t.Errorf("expected one OPEN_VISIT audit entry, got %+v", audits.entries)
	}
}

func TestCloseVisit(t *testing.T) {
	svc, repo, audits := newTestService()
	v := openVisit(t, repo)

	closed, err := svc.CloseVisit(context.Background(), v.ID, "u1", []string{"frontdesk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed.Status != VisitClosed || closed.ClosedAt == nil {
		t.Errorf("expected closed visit, got %+v", closed)
	}
	if len(audits.entries) != 1 || audits.entries[0].Action != audit.ActionCloseVisit {
		t.Errorf("expected one close-visit audit entry, got %+v", audits.entries)
	}
}

func TestCloseVisit_AlreadyClosed(t *testing.T) {
	svc, repo, audits := newTestService()
	v := openVisit(t, repo)

	if _, err := svc.CloseVisit(context.Background(), v.ID, "u1", nil); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CloseVisit(context.Background(), v.ID, "u1", nil)
	if !apperr.IsKind(err, apperr.KindImmutability) {
		t.Fatalf("expected immutability error, got %v", err)
	}

	// The blocked attempt is part of the trail too.
	if len(audits.entries) != 2 {
		t.Fatalf("expected permitted and blocked entries, got %d", len(audits.entries))
	}
	blocked := audits.entries[1]
	if blocked.Action != audit.ActionCloseVisit || blocked.Outcome != audit.OutcomeBlocked {
		t.Errorf("expected blocked CLOSE_VISIT entry, got %s/%s", blocked.Action, blocked.Outcome)
	}
	if blocked.Detail == "" {
		t.Error("blocked entry should carry the refusal detail")
	}
}

func TestCloseVisit_AuditFailureFailsOperation(t *testing.T) {
	svc, repo, audits := newTestService()
	audits.fail = true
	v := openVisit(t, repo)

	if _, err := svc.CloseVisit(context.Background(), v.ID, "u1", nil); err == nil {
		t.Fatal("expected failure when audit write fails")
	}
}

// -- Consultation lifecycle --

func TestStartConsultation(t *testing.T) {
	svc, repo, _ := newTestService()
	v := openVisit(t, repo)

	c, err := svc.StartConsultation(context.Background(), v.ID, uuid.New(), "u1", []string{"physician"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != ConsultationPending {
		t.Errorf("expected PENDING, got %s", c.Status)
	}
}

func TestStartConsultation_OnlyOneOpen(t *testing.T) {
	svc, repo, _ := newTestService()
	v := openVisit(t, repo)

	if _, err := svc.StartConsultation(context.Background(), v.ID, uuid.New(), "u1", nil); err != nil {
		t.Fatal(err)
	}
	_, err := svc.StartConsultation(context.Background(), v.ID, uuid.New(), "u1", nil)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for second open consultation, got %v", err)
	}
}

func TestStartConsultation_ClosedVisit(t *testing.T) {
	svc, repo, _ := newTestService()
	v := openVisit(t, repo)
	if _, err := svc.CloseVisit(context.Background(), v.ID, "u1", nil); err != nil {
		t.Fatal(err)
	}

	_, err := svc.StartConsultation(context.Background(), v.ID, uuid.New(), "u1", nil)
	if !apperr.IsKind(err, apperr.KindImmutability) {
		t.Fatalf("expected immutability error, got %v", err)
	}
}

func TestActivateConsultation(t *testing.T) {
	svc, repo, _ := newTestService()
	v := openVisit(t, repo)
	c, err := svc.StartConsultation(context.Background(), v.ID, uuid.New(), "u1", nil)
	if err != nil {
		t.Fatal(err)
	}

	activated, err := svc.ActivateConsultation(context.Background(), c.ID, "u1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activated.Status != ConsultationActive || activated.ActivatedAt == nil {
		t.Errorf("expected ACTIVE, got %+v", activated)
	}

	// Re-activation is a harmless no-op.
	if _, err := svc.ActivateConsultation(context.Background(), c.ID, "u1", nil); err != nil {
		t.Errorf("re-activation should not fail: %v", err)
	}
}

func TestCloseConsultation_Terminal(t *testing.T) {
	svc, repo, _ := newTestService()
	v := openVisit(t, repo)
	c, err := svc.StartConsultation(context.Background(), v.ID, uuid.New(), "u1", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CloseConsultation(context.Background(), c.ID, "u1", nil); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ActivateConsultation(context.Background(), c.ID, "u1", nil); !apperr.IsKind(err, apperr.KindImmutability) {
		t.Errorf("expected immutability on activate-after-close, got %v", err)
	}
	if _, err := svc.CloseConsultation(context.Background(), c.ID, "u1", nil); !apperr.IsKind(err, apperr.KindImmutability) {
		t.Errorf("expected immutability on double close, got %v", err)
	}
}

func TestActivateConsultation_BlockedAttemptAudited(t *testing.T) {
	svc, repo, audits := newTestService()
	v := openVisit(t, repo)
	c, err := svc.StartConsultation(context.Background(), v.ID, uuid.New(), "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CloseConsultation(context.Background(), c.ID, "u1", nil); err != nil {
		t.Fatal(err)
	}

	audits.entries = nil
	if _, err := svc.ActivateConsultation(context.Background(), c.ID, "u2", []string{"physician"}); !apperr.IsKind(err, apperr.KindImmutability) {
		t.Fatalf("expected immutability error, got %v", err)
	}

	if len(audits.entries) != 1 {
		t.Fatalf("expected one blocked entry, got %d", len(audits.entries))
	}
	e := audits.entries[0]
	if e.Action != audit.ActionActivateConsult || e.Outcome != audit.OutcomeBlocked {
		t.Errorf("expected blocked ACTIVATE_CONSULTATION entry, got %s/%s", e.Action, e.Outcome)
	}
	if e.ConsultationID == nil || *e.ConsultationID != c.ID {
		t.Errorf("blocked entry should reference consultation %s, got %v", c.ID, e.ConsultationID)
	}
}

func TestStartConsultation_ClosedVisitAudited(t *testing.T) {
	svc, repo, audits := newTestService()
	v := openVisit(t, repo)
	if _, err := svc.CloseVisit(context.Background(), v.ID, "u1", nil); err != nil {
		t.Fatal(err)
	}

	audits.entries = nil
	if _, err := svc.StartConsultation(context.Background(), v.ID, uuid.New(), "u1", nil); err == nil {
		t.Fatal("expected error on closed visit")
	}

	if len(audits.entries) != 1 {
		t.Fatalf("expected one blocked entry, got %d", len(audits.entries))
	}
	e := audits.entries[0]
	if e.Action != audit.ActionStartConsultation || e.Outcome != audit.OutcomeBlocked {
		t.Errorf("expected blocked START_CONSULTATION entry, got %s/%s", e.Action, e.Outcome)
	}
}

// -- Payment status --

func TestPaymentStatus_Cleared(t *testing.T) {
	cases := []struct {
		status PaymentStatus
		want   bool
	}{
		{PaymentUnpaid, false},
		{PaymentPartiallyPaid, true},
		{PaymentPaid, true},
		{PaymentSettled, true},
	}
	for _, tc := range cases {
		if got := tc.status.Cleared(); got != tc.want {
			t.Errorf("%s.Cleared() = %v, want %v", tc.status, got, tc.want)
		}
	}
}
