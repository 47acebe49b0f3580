package order

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/audit"
	"github.com/clinicore/clinicore/internal/domain/billing"
	"github.com/clinicore/clinicore/internal/domain/catalog"
	"github.com/clinicore/clinicore/internal/domain/visit"
	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/platform/notification"
)

// CatalogReader resolves orderable entries.
type CatalogReader interface {
	Lookup(ctx context.Context, code string) (*catalog.Entry, error)
}

// VisitStore is the slice of the visit repository the router needs.
type VisitStore interface {
	GetVisit(ctx context.Context, id uuid.UUID) (*visit.Visit, error)
	GetConsultation(ctx context.Context, id uuid.UUID) (*visit.Consultation, error)
	CurrentConsultation(ctx context.Context, visitID uuid.UUID) (*visit.Consultation, error)
	UpdateConsultation(ctx context.Context, c *visit.Consultation) error
}

// Ledger appends billing line items on the ambient transaction.
type Ledger interface {
	Append(ctx context.Context, li *billing.LineItem) error
}

type AuditRecorder interface {
	Record(ctx context.Context, e *audit.Entry) error
}

// Service is the workflow router. Order is its one write operation: the
// lock decision, the workflow record, the billing line item and the
// audit entry land in a single transaction or not at all.
type Service struct {
	records  Repository
	catalog  CatalogReader
	visits   VisitStore
	ledger   Ledger
	audits   AuditRecorder
	tx       db.TxRunner
	notifier notification.Notifier
	guard    visitGuard
	logger   zerolog.Logger
}

func NewService(records Repository, catalogs CatalogReader, visits VisitStore, ledger Ledger, audits AuditRecorder, tx db.TxRunner, notifier notification.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		records:  records,
		catalog:  catalogs,
		visits:   visits,
		ledger:   ledger,
		audits:   audits,
		tx:       tx,
		notifier: notifier,
		logger:   logger,
	}
}

// OrderInput is one order request against a catalog entry.
type OrderInput struct {
	VisitID        uuid.UUID
	Code           string
	ConsultationID *uuid.UUID
	Extra          map[string]interface{}
	ActorID        string
	ActorRoles     []string
	ClientIP       string
}

// OrderResult is what a committed order produced.
type OrderResult struct {
	Record   *Record           `json:"workflow_record"`
	LineItem *billing.LineItem `json:"line_item"`
}

// Order routes one service order: resolve the entry, re-evaluate the
// lock against current state inside the transaction, activate a pending
// consultation if this is its first order, create the workflow record
// and the billing line item, and audit the outcome. Blocked attempts
// are audited too, outside the aborted transaction.
func (s *Service) Order(ctx context.Context, in OrderInput) (*OrderResult, error) {
	entry, err := s.catalog.Lookup(ctx, in.Code)
	if err != nil {
		return nil, err
	}

	unlock := s.guard.lock(in.VisitID)
	defer unlock()

	var result OrderResult
	var consultationID *uuid.UUID
	var activated bool

	txErr := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.visits.GetVisit(ctx, in.VisitID)
		if err != nil {
			return err
		}

		cons, err := s.resolveConsultation(ctx, v.ID, in.ConsultationID)
		if err != nil {
			return err
		}
		if cons != nil {
			consultationID = &cons.ID
		}

		dec := Evaluate(EvalInput{
			Action:       ActionOrderService,
			Visit:        v,
			Consultation: cons,
			Entry:        entry,
			Roles:        in.ActorRoles,
		})
		if !dec.Permitted {
			return decisionError(dec)
		}

		if cons != nil && cons.Status == visit.ConsultationPending && entry.RequiresConsultation {
			if err := cons.Activate(time.Now().UTC()); err != nil {
				return err
			}
			if err := s.visits.UpdateConsultation(ctx, cons); err != nil {
				return err
			}
			activated = true
		}

		rec, err := buildRecord(entry, v.ID, consultationID, in.ActorID, in.Extra)
		if err != nil {
			return err
		}
		if err := s.records.Create(ctx, rec); err != nil {
			return err
		}

		li := &billing.LineItem{
			VisitID:        v.ID,
			CatalogEntryID: entry.ID,
			Amount:         entry.Price,
			CreatedBy:      in.ActorID,
		}
		if entry.WorkflowType == catalog.WorkflowConsultation {
			li.ConsultationID = consultationID
		}
		if err := s.ledger.Append(ctx, li); err != nil {
			return err
		}

		if err := s.audits.Record(ctx, &audit.Entry{
			ActorID:          in.ActorID,
			ActorRoles:       in.ActorRoles,
			Action:           audit.ActionOrderService,
			Outcome:          audit.OutcomePermitted,
			VisitID:          &v.ID,
			ConsultationID:   consultationID,
			WorkflowRecordID: &rec.ID,
			Detail:           entry.Code,
			ClientIP:         in.ClientIP,
		}); err != nil {
			return apperr.Internal("audit write failed").WithCause(err)
		}

		result.Record = rec
		result.LineItem = li
		return nil
	})
	if txErr != nil {
		s.auditFailure(ctx, in, consultationID, txErr)
		return nil, txErr
	}

	s.notify(ctx, notification.Event{
		Type:             notification.EventOrderCreated,
		RecipientRole:    recipientRole(entry.WorkflowType),
		VisitID:          in.VisitID,
		WorkflowRecordID: result.Record.ID,
	})
	if activated {
		s.notify(ctx, notification.Event{
			Type:    notification.EventConsultationActive,
			VisitID: in.VisitID,
		})
	}

	return &result, nil
}

// LockQuery asks whether an action would currently be permitted.
type LockQuery struct {
	Action         ActionType
	VisitID        uuid.UUID
	ConsultationID *uuid.UUID
	Code           string
	Roles          []string
}

// EvaluateLock answers a lock query without side effects. The answer is
// advisory: state may change before the caller acts on it, which is why
// Order evaluates again inside its transaction.
func (s *Service) EvaluateLock(ctx context.Context, q LockQuery) (*Decision, error) {
	if !q.Action.Valid() {
		return nil, apperr.Validation("unknown action %q", q.Action)
	}

	v, err := s.visits.GetVisit(ctx, q.VisitID)
	if err != nil {
		return nil, err
	}

	cons, err := s.resolveConsultation(ctx, v.ID, q.ConsultationID)
	if err != nil {
		return nil, err
	}

	var entry *catalog.Entry
	if q.Code != "" {
		entry, err = s.catalog.Lookup(ctx, q.Code)
		if err != nil {
			return nil, err
		}
	}

	dec := Evaluate(EvalInput{
		Action:       q.Action,
		Visit:        v,
		Consultation: cons,
		Entry:        entry,
		Roles:        q.Roles,
	})
	return &dec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Record, error) {
	return s.records.ListByVisit(ctx, visitID)
}

// resolveConsultation picks the explicit consultation when the caller
// named one, checking it belongs to the visit, and falls back to the
// visit's current non-closed consultation.
func (s *Service) resolveConsultation(ctx context.Context, visitID uuid.UUID, explicit *uuid.UUID) (*visit.Consultation, error) {
	if explicit != nil {
		cons, err := s.visits.GetConsultation(ctx, *explicit)
		if err != nil {
			return nil, err
		}
		if cons.VisitID != visitID {
			return nil, apperr.Validation("consultation %s does not belong to visit %s", cons.ID, visitID)
		}
		return cons, nil
	}
	return s.visits.CurrentConsultation(ctx, visitID)
}

// decisionError maps a blocking decision onto the error taxonomy. A
// closed visit dominates as immutability; a pure role deny is a
// permission error; every other mix is a remediable precondition.
func decisionError(dec Decision) error {
	msg := "order blocked: " + strings.Join(dec.Reasons, ", ")
	switch {
	case dec.HasReason(ReasonVisitClosed):
		return apperr.Immutability(msg).
			WithReasons(dec.Reasons...).WithRemediation(dec.Remediation...)
	case len(dec.Reasons) == 1 && dec.Reasons[0] == ReasonRoleNotPermitted:
		return apperr.Permission(msg).WithReasons(dec.Reasons...)
	default:
		return apperr.Precondition(msg).
			WithReasons(dec.Reasons...).WithRemediation(dec.Remediation...)
	}
}

// auditFailure records a blocked or failed attempt. It runs on the
// caller's context, not the aborted transaction, so the audit entry
// survives the rollback. A failure here is logged and swallowed; the
// original error is what the caller needs to see.
func (s *Service) auditFailure(ctx context.Context, in OrderInput, consultationID *uuid.UUID, cause error) {
	if err := s.audits.Record(ctx, &audit.Entry{
		ActorID:        in.ActorID,
		ActorRoles:     in.ActorRoles,
		Action:         audit.ActionOrderService,
		Outcome:        audit.OutcomeForError(cause),
		VisitID:        &in.VisitID,
		ConsultationID: consultationID,
		Detail:         cause.Error(),
		ClientIP:       in.ClientIP,
	}); err != nil {
		s.logger.Error().Err(err).
			Str("visit_id", in.VisitID.String()).
			Msg("failed to audit blocked order")
	}
}

func (s *Service) notify(ctx context.Context, evt notification.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, evt); err != nil {
		s.logger.Error().Err(err).
			Str("event", string(evt.Type)).
			Msg("notification dispatch failed")
	}
}

// recipientRole maps a workflow type to the department role that picks
// up the resulting work item.
func recipientRole(t catalog.WorkflowType) string {
	switch t {
	case catalog.WorkflowDrugDispense:
		return "pharmacist"
	case catalog.WorkflowLabOrder:
		return "lab_tech"
	case catalog.WorkflowRadiologyStudy:
		return "radiologist"
	case catalog.WorkflowProcedure:
		return "nurse"
	case catalog.WorkflowConsultation:
		return "physician"
	}
	return ""
}
