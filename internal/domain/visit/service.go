package visit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/audit"
	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/db"
)

// AuditRecorder persists audit entries. Every state transition is a
// governed action: the transition and its audit entry commit together,
// so a failed audit write fails the transition. Blocked attempts are
// recorded too, outside the aborted transaction.
type AuditRecorder interface {
	Record(ctx context.Context, e *audit.Entry) error
}

type Service struct {
	repo   Repository
	audits AuditRecorder
	tx     db.TxRunner
	logger zerolog.Logger
}

func NewService(repo Repository, audits AuditRecorder, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, audits: audits, tx: tx, logger: logger}
}

// auditFailure records a blocked or failed transition on the caller's
// context so the entry survives the rollback. Failures here are logged
// and swallowed; the original error is what the caller needs to see.
func (s *Service) auditFailure(ctx context.Context, action, actorID string, actorRoles []string, visitID, consultationID *uuid.UUID, cause error) {
	if err := s.audits.Record(ctx, &audit.Entry{
		ActorID:        actorID,
		ActorRoles:     actorRoles,
		Action:         action,
		Outcome:        audit.OutcomeForError(cause),
		VisitID:        visitID,
		ConsultationID: consultationID,
		Detail:         cause.Error(),
	}); err != nil {
		s.logger.Error().Err(err).
			Str("action", action).
			Msg("failed to audit blocked transition")
	}
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetVisit(ctx, id)
}

func (s *Service) ListVisits(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListVisits(ctx, limit, offset)
}

func (s *Service) ListConsultations(ctx context.Context, visitID uuid.UUID) ([]*Consultation, error) {
	return s.repo.ListConsultations(ctx, visitID)
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.GetConsultation(ctx, id)
}

// OpenVisit starts a new episode of care for a patient. Visits begin
// OPEN and UNPAID.
func (s *Service) OpenVisit(ctx context.Context, patientID uuid.UUID, actorID string, actorRoles []string) (*Visit, error) {
	var created *Visit
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v := &Visit{
			PatientID:     patientID,
			Status:        VisitOpen,
			PaymentStatus: PaymentUnpaid,
		}
		if err := s.repo.CreateVisit(ctx, v); err != nil {
			return err
		}
		if err := s.audits.Record(ctx, &audit.Entry{
			ActorID:    actorID,
			ActorRoles: actorRoles,
			Action:     audit.ActionOpenVisit,
			Outcome:    audit.OutcomePermitted,
			VisitID:    &v.ID,
		}); err != nil {
			return apperr.Internal("audit write failed").WithCause(err)
		}
		created = v
		return nil
	})
	if err != nil {
		s.auditFailure(ctx, audit.ActionOpenVisit, actorID, actorRoles, nil, nil, err)
		return nil, err
	}
	return created, nil
}

// CloseVisit closes a visit. Terminal: no workflow records or billing
// line items may be attached afterwards.
func (s *Service) CloseVisit(ctx context.Context, id uuid.UUID, actorID string, actorRoles []string) (*Visit, error) {
	var closed *Visit
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.repo.GetVisit(ctx, id)
		if err != nil {
			return err
		}
		if err := v.Close(time.Now().UTC()); err != nil {
			return err
		}
		if err := s.repo.UpdateVisit(ctx, v); err != nil {
			return err
		}
		if err := s.audits.Record(ctx, &audit.Entry{
			ActorID:    actorID,
			ActorRoles: actorRoles,
			Action:     audit.ActionCloseVisit,
			Outcome:    audit.OutcomePermitted,
			VisitID:    &v.ID,
		}); err != nil {
			return apperr.Internal("audit write failed").WithCause(err)
		}
		closed = v
		return nil
	})
	if err != nil {
		s.auditFailure(ctx, audit.ActionCloseVisit, actorID, actorRoles, &id, nil, err)
		return nil, err
	}
	return closed, nil
}

// StartConsultation begins a clinical encounter in PENDING state. A
// visit has at most one non-CLOSED consultation at a time.
func (s *Service) StartConsultation(ctx context.Context, visitID, clinicianID uuid.UUID, actorID string, actorRoles []string) (*Consultation, error) {
	var created *Consultation
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.repo.GetVisit(ctx, visitID)
		if err != nil {
			return err
		}
		if v.Status == VisitClosed {
			return apperr.Immutability("visit %s is closed", v.ID)
		}

		if current, err := s.repo.CurrentConsultation(ctx, visitID); err != nil {
			return err
		} else if current != nil {
			return apperr.Conflict("visit %s already has an open consultation", visitID)
		}

		c := &Consultation{
			VisitID:     visitID,
			Status:      ConsultationPending,
			ClinicianID: clinicianID,
		}
		if err := s.repo.CreateConsultation(ctx, c); err != nil {
			return err
		}
		if err := s.audits.Record(ctx, &audit.Entry{
			ActorID:        actorID,
			ActorRoles:     actorRoles,
			Action:         audit.ActionStartConsultation,
			Outcome:        audit.OutcomePermitted,
			VisitID:        &visitID,
			ConsultationID: &c.ID,
		}); err != nil {
			return apperr.Internal("audit write failed").WithCause(err)
		}
		created = c
		return nil
	})
	if err != nil {
		s.auditFailure(ctx, audit.ActionStartConsultation, actorID, actorRoles, &visitID, nil, err)
		return nil, err
	}
	return created, nil
}

// ActivateConsultation is the explicit PENDING to ACTIVE transition. The
// workflow router performs the same transition implicitly on the first
// successful order.
func (s *Service) ActivateConsultation(ctx context.Context, id uuid.UUID, actorID string, actorRoles []string) (*Consultation, error) {
	return s.transitionConsultation(ctx, id, actorID, actorRoles, audit.ActionActivateConsult,
		func(c *Consultation, now time.Time) error { return c.Activate(now) })
}

// CloseConsultation ends the encounter; the record becomes read-only.
func (s *Service) CloseConsultation(ctx context.Context, id uuid.UUID, actorID string, actorRoles []string) (*Consultation, error) {
	return s.transitionConsultation(ctx, id, actorID, actorRoles, audit.ActionCloseConsultation,
		func(c *Consultation, now time.Time) error { return c.Close(now) })
}

func (s *Service) transitionConsultation(
	ctx context.Context,
	id uuid.UUID,
	actorID string,
	actorRoles []string,
	action string,
	transition func(*Consultation, time.Time) error,
) (*Consultation, error) {
	var result *Consultation
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetConsultation(ctx, id)
		if err != nil {
			return err
		}
		if err := transition(c, time.Now().UTC()); err != nil {
			return err
		}
		if err := s.repo.UpdateConsultation(ctx, c); err != nil {
			return err
		}
		if err := s.audits.Record(ctx, &audit.Entry{
			ActorID:        actorID,
			ActorRoles:     actorRoles,
			Action:         action,
			Outcome:        audit.OutcomePermitted,
			VisitID:        &c.VisitID,
			ConsultationID: &c.ID,
		}); err != nil {
			return apperr.Internal("audit write failed").WithCause(err)
		}
		result = c
		return nil
	})
	if err != nil {
		s.auditFailure(ctx, action, actorID, actorRoles, nil, &id, err)
		return nil, err
	}
	return result, nil
}
