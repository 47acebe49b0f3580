package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinicore/clinicore/internal/domain/audit"
	"github.com/clinicore/clinicore/internal/domain/visit"
	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/db"
)

// VisitStore is the slice of the visit repository the ledger needs to
// keep the derived payer state current.
type VisitStore interface {
	GetVisit(ctx context.Context, id uuid.UUID) (*visit.Visit, error)
	UpdateVisit(ctx context.Context, v *visit.Visit) error
}

type AuditRecorder interface {
	Record(ctx context.Context, e *audit.Entry) error
}

type Service struct {
	repo   Repository
	visits VisitStore
	audits AuditRecorder
	tx     db.TxRunner
	logger zerolog.Logger
}

func NewService(repo Repository, visits VisitStore, audits AuditRecorder, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, visits: visits, audits: audits, tx: tx, logger: logger}
}

// Append adds a line item to the ledger and re-derives the visit payer
// state, so a charge after full payment drops the visit back to
// PARTIALLY_PAID. It runs on the caller's ambient transaction: the
// workflow router appends inside its atomic order unit.
func (s *Service) Append(ctx context.Context, li *LineItem) error {
	if li.Amount.LessThan(decimal.Zero) {
		return apperr.Validation("line item amount must not be negative")
	}
	if err := s.repo.Append(ctx, li); err != nil {
		return err
	}
	return s.refreshPaymentStatus(ctx, li.VisitID)
}

// refreshPaymentStatus recomputes the visit payer state from the
// ledger. SETTLED is sticky: it reflects an external settlement fact
// and only the payment collaborator moves a visit out of it.
func (s *Service) refreshPaymentStatus(ctx context.Context, visitID uuid.UUID) error {
	v, err := s.visits.GetVisit(ctx, visitID)
	if err != nil {
		return err
	}
	if v.PaymentStatus == visit.PaymentSettled {
		return nil
	}
	charges, err := s.repo.TotalCharges(ctx, visitID)
	if err != nil {
		return err
	}
	payments, err := s.repo.TotalPayments(ctx, visitID)
	if err != nil {
		return err
	}
	status := derivePaymentStatus(charges, payments, false)
	if status == v.PaymentStatus {
		return nil
	}
	v.PaymentStatus = status
	return s.visits.UpdateVisit(ctx, v)
}

func (s *Service) TotalCharges(ctx context.Context, visitID uuid.UUID) (decimal.Decimal, error) {
	return s.repo.TotalCharges(ctx, visitID)
}

func (s *Service) OutstandingBalance(ctx context.Context, visitID uuid.UUID) (decimal.Decimal, error) {
	charges, err := s.repo.TotalCharges(ctx, visitID)
	if err != nil {
		return decimal.Zero, err
	}
	payments, err := s.repo.TotalPayments(ctx, visitID)
	if err != nil {
		return decimal.Zero, err
	}
	return charges.Sub(payments), nil
}

func (s *Service) Summary(ctx context.Context, visitID uuid.UUID) (*Summary, error) {
	items, err := s.repo.ListByVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	charges, err := s.repo.TotalCharges(ctx, visitID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.TotalPayments(ctx, visitID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		VisitID:            visitID,
		TotalCharges:       charges,
		TotalPayments:      payments,
		OutstandingBalance: charges.Sub(payments),
		LineItems:          items,
	}, nil
}

// RecordPayment stores an externally cleared payment fact and rolls the
// visit's payer state forward. Payments are accepted on closed visits:
// closure stops new charges, not settlement of existing ones.
func (s *Service) RecordPayment(ctx context.Context, visitID uuid.UUID, amount decimal.Decimal, method string, settled bool, actorID string, actorRoles []string) (*Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validation("payment amount must be positive")
	}

	var payment *Payment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.visits.GetVisit(ctx, visitID)
		if err != nil {
			return err
		}

		p := &Payment{
			VisitID:    visitID,
			Amount:     amount,
			Method:     method,
			RecordedBy: actorID,
		}
		if err := s.repo.CreatePayment(ctx, p); err != nil {
			return err
		}

		charges, err := s.repo.TotalCharges(ctx, visitID)
		if err != nil {
			return err
		}
		payments, err := s.repo.TotalPayments(ctx, visitID)
		if err != nil {
			return err
		}

		v.PaymentStatus = derivePaymentStatus(charges, payments, settled)
		if err := s.visits.UpdateVisit(ctx, v); err != nil {
			return err
		}

		if err := s.audits.Record(ctx, &audit.Entry{
			ActorID:    actorID,
			ActorRoles: actorRoles,
			Action:     audit.ActionRecordPayment,
			Outcome:    audit.OutcomePermitted,
			VisitID:    &visitID,
		}); err != nil {
			return apperr.Internal("audit write failed").WithCause(err)
		}

		payment = p
		return nil
	})
	if err != nil {
		// Recorded on the caller's context so the entry survives the
		// rollback. A failure here is logged and swallowed.
		if auditErr := s.audits.Record(ctx, &audit.Entry{
			ActorID:    actorID,
			ActorRoles: actorRoles,
			Action:     audit.ActionRecordPayment,
			Outcome:    audit.OutcomeForError(err),
			VisitID:    &visitID,
			Detail:     err.Error(),
		}); auditErr != nil {
			s.logger.Error().Err(auditErr).
				Str("visit_id", visitID.String()).
				Msg("failed to audit blocked payment")
		}
		return nil, err
	}
	return payment, nil
}

// derivePaymentStatus maps recorded facts to the visit payer state.
// SETTLED is only entered on an explicit settlement fact from the
// payment collaborator.
func derivePaymentStatus(charges, payments decimal.Decimal, settled bool) visit.PaymentStatus {
	if settled {
		return visit.PaymentSettled
	}
	switch {
	case payments.LessThanOrEqual(decimal.Zero):
		return visit.PaymentUnpaid
	case payments.GreaterThanOrEqual(charges):
		return visit.PaymentPaid
	default:
		return visit.PaymentPartiallyPaid
	}
}
