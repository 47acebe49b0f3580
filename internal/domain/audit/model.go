// Package audit is the append-only record of every governed action:
// who, what, when, and the outcome. The governed components write it as
// a side effect and never read it; the only read path is the reporting
// API.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/apperr"
)

// Outcome of a governed action.
const (
	OutcomePermitted = "permitted"
	OutcomeBlocked   = "blocked"
	OutcomeError     = "error"
)

// OutcomeForError classifies a failed governed action: a taxonomy kind
// the caller could have foreseen is a blocked attempt, anything else is
// an infrastructure error.
func OutcomeForError(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindPermission,
		apperr.KindPrecondition, apperr.KindImmutability, apperr.KindConflict:
		return OutcomeBlocked
	}
	return OutcomeError
}

// Action types recorded by the governed operations.
const (
	ActionOrderService      = "ORDER_SERVICE"
	ActionOpenVisit         = "OPEN_VISIT"
	ActionCloseVisit        = "CLOSE_VISIT"
	ActionStartConsultation = "START_CONSULTATION"
	ActionActivateConsult   = "ACTIVATE_CONSULTATION"
	ActionCloseConsultation = "CLOSE_CONSULTATION"
	ActionRecordPayment     = "RECORD_PAYMENT"
)

// Entry maps to the audit_entry table. Entries are never mutated.
type Entry struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	ActorID          string     `db:"actor_id" json:"actor_id"`
	ActorRoles       []string   `db:"actor_roles" json:"actor_roles"`
	Action           string     `db:"action" json:"action"`
	Outcome          string     `db:"outcome" json:"outcome"`
	VisitID          *uuid.UUID `db:"visit_id" json:"visit_id,omitempty"`
	ConsultationID   *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	WorkflowRecordID *uuid.UUID `db:"workflow_record_id" json:"workflow_record_id,omitempty"`
	Detail           string     `db:"detail" json:"detail,omitempty"`
	ClientIP         string     `db:"client_ip" json:"client_ip,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}
