// Package order is the governance core: the explainable lock evaluator
// that decides whether a requested clinical action is permitted, and the
// workflow router that turns a catalog entry into exactly one domain
// workflow record plus one billing line item, atomically.
package order

import (
	"github.com/clinicore/clinicore/internal/domain/catalog"
	"github.com/clinicore/clinicore/internal/domain/visit"
)

// ActionType names the governed action being evaluated.
type ActionType string

const (
	ActionOrderService ActionType = "ORDER_SERVICE"
	ActionCloseVisit   ActionType = "CLOSE_VISIT"
)

func (a ActionType) Valid() bool {
	return a == ActionOrderService || a == ActionCloseVisit
}

// Reason codes. All applicable reasons are returned, not just the first.
const (
	ReasonVisitRequired        = "VISIT_REQUIRED"
	ReasonVisitClosed          = "VISIT_CLOSED"
	ReasonPaymentRequired      = "PAYMENT_REQUIRED"
	ReasonConsultationRequired = "CONSULTATION_REQUIRED"
	ReasonConsultationClosed   = "CONSULTATION_CLOSED"
	ReasonRoleNotPermitted     = "ROLE_NOT_PERMITTED"
	ReasonEntryInactive        = "ENTRY_INACTIVE"
)

// Remediation hints.
const (
	RemedyClearPayment      = "CLEAR_PAYMENT"
	RemedyStartConsultation = "START_CONSULTATION"
	RemedyOpenVisit         = "OPEN_VISIT"
)

// Decision is the explainable permit/deny result. It is computed fresh
// on every request and never persisted.
type Decision struct {
	Permitted   bool     `json:"permitted"`
	Reasons     []string `json:"reasons,omitempty"`
	Remediation []string `json:"remediation,omitempty"`
}

func (d *Decision) block(reason string, remedies ...string) {
	d.Permitted = false
	d.Reasons = append(d.Reasons, reason)
	for _, r := range remedies {
		for _, existing := range d.Remediation {
			if existing == r {
				r = ""
				break
			}
		}
		if r != "" {
			d.Remediation = append(d.Remediation, r)
		}
	}
}

// EvalInput carries the full state the evaluator considers. Entry and
// Consultation are optional; Visit is optional only for entries that do
// not require one.
type EvalInput struct {
	Action       ActionType
	Visit        *visit.Visit
	Consultation *visit.Consultation
	Entry        *catalog.Entry
	Roles        []string
}

// Evaluate is the lock evaluator: a pure function from state to an
// explainable decision. Identical inputs always yield identical output;
// callers may run it concurrently and use it to pre-check permission
// without side effects. The router calls it again inside the order
// transaction because it never trusts a stale check.
func Evaluate(in EvalInput) Decision {
	dec := Decision{Permitted: true}

	requiresVisit := in.Entry == nil || in.Entry.RequiresVisit
	if in.Visit == nil {
		if requiresVisit {
			dec.block(ReasonVisitRequired, RemedyOpenVisit)
		}
	} else if in.Visit.Status == visit.VisitClosed {
		// Closure is terminal, so no remediation is offered.
		dec.block(ReasonVisitClosed)
	}

	if in.Entry != nil {
		if !in.Entry.Active {
			dec.block(ReasonEntryInactive)
		}

		if in.Entry.BillingTiming == catalog.BillingBefore &&
			in.Visit != nil && !in.Visit.PaymentStatus.Cleared() {
			dec.block(ReasonPaymentRequired, RemedyClearPayment)
		}

		if in.Entry.RequiresConsultation {
			switch {
			case in.Consultation == nil:
				dec.block(ReasonConsultationRequired, RemedyStartConsultation)
			case in.Consultation.Status == visit.ConsultationClosed:
				dec.block(ReasonConsultationClosed, RemedyStartConsultation)
			}
		}

		if !in.Entry.AllowsAnyRole(in.Roles) {
			dec.block(ReasonRoleNotPermitted)
		}
	}

	return dec
}

// HasReason reports whether the decision carries the given reason code.
func (d Decision) HasReason(reason string) bool {
	for _, r := range d.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}
