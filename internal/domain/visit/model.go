// Package visit governs the visit and consultation lifecycles. A visit
// is one episode of care and the top-level scope for every clinical and
// billing action; consultations are clinical encounters nested inside
// it. Both lifecycles are one-way: CLOSED is terminal.
package visit

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/apperr"
)

type Status string

const (
	VisitOpen   Status = "OPEN"
	VisitClosed Status = "CLOSED"
)

type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "UNPAID"
	PaymentPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentPaid          PaymentStatus = "PAID"
	PaymentSettled       PaymentStatus = "SETTLED"
)

// Cleared reports whether the payer state unblocks BEFORE-timed
// services. Partial payment counts as sufficient.
func (p PaymentStatus) Cleared() bool {
	return p == PaymentPartiallyPaid || p == PaymentPaid || p == PaymentSettled
}

// Visit maps to the visit table.
type Visit struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	Status        Status        `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	ClosedAt      *time.Time    `db:"closed_at" json:"closed_at,omitempty"`
}

// Close transitions the visit to CLOSED. Closure is terminal: a second
// close attempt is rejected, never silently ignored.
func (v *Visit) Close(now time.Time) error {
	if v.Status == VisitClosed {
		return apperr.Immutability("visit %s is closed", v.ID)
	}
	v.Status = VisitClosed
	v.ClosedAt = &now
	return nil
}

type ConsultationStatus string

const (
	ConsultationPending ConsultationStatus = "PENDING"
	ConsultationActive  ConsultationStatus = "ACTIVE"
	ConsultationClosed  ConsultationStatus = "CLOSED"
)

// Consultation maps to the consultation table.
type Consultation struct {
	ID          uuid.UUID          `db:"id" json:"id"`
	VisitID     uuid.UUID          `db:"visit_id" json:"visit_id"`
	Status      ConsultationStatus `db:"status" json:"status"`
	ClinicianID uuid.UUID          `db:"clinician_id" json:"clinician_id"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	ActivatedAt *time.Time         `db:"activated_at" json:"activated_at,omitempty"`
	ClosedAt    *time.Time         `db:"closed_at" json:"closed_at,omitempty"`
}

// Activate promotes a PENDING consultation to ACTIVE. The first
// successful order against a pending consultation performs this
// transition; activating an already-active consultation is a no-op.
func (c *Consultation) Activate(now time.Time) error {
	switch c.Status {
	case ConsultationClosed:
		return apperr.Immutability("consultation %s is closed", c.ID)
	case ConsultationActive:
		return nil
	}
	c.Status = ConsultationActive
	c.ActivatedAt = &now
	return nil
}

// Close transitions the consultation to CLOSED, after which it is
// read-only.
func (c *Consultation) Close(now time.Time) error {
	if c.Status == ConsultationClosed {
		return apperr.Immutability("consultation %s is closed", c.ID)
	}
	c.Status = ConsultationClosed
	c.ClosedAt = &now
	return nil
}
