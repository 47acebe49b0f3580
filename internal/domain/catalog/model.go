// Package catalog holds the registry of orderable service definitions.
// Entries are read-mostly: catalog administration creates and edits them,
// the lock evaluator and workflow router only read them.
package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkflowType determines which domain record an entry produces when
// ordered. The router switches exhaustively over these values.
type WorkflowType string

const (
	WorkflowDrugDispense    WorkflowType = "DRUG_DISPENSE"
	WorkflowLabOrder        WorkflowType = "LAB_ORDER"
	WorkflowRadiologyStudy  WorkflowType = "RADIOLOGY_STUDY"
	WorkflowProcedure       WorkflowType = "PROCEDURE"
	WorkflowConsultation    WorkflowType = "CONSULTATION"
)

var validWorkflowTypes = map[WorkflowType]bool{
	WorkflowDrugDispense:   true,
	WorkflowLabOrder:       true,
	WorkflowRadiologyStudy: true,
	WorkflowProcedure:      true,
	WorkflowConsultation:   true,
}

func (w WorkflowType) Valid() bool { return validWorkflowTypes[w] }

// BillingTiming states whether payment must clear before the service is
// delivered or may follow it.
type BillingTiming string

const (
	BillingBefore BillingTiming = "BEFORE"
	BillingAfter  BillingTiming = "AFTER"
)

func (b BillingTiming) Valid() bool {
	return b == BillingBefore || b == BillingAfter
}

// Entry categories. Registration and consultation-class entries are
// orderable by the front desk regardless of the declared allowed roles.
const (
	CategoryRegistration = "registration"
	CategoryConsultation = "consultation"
	CategoryPharmacy     = "pharmacy"
	CategoryLaboratory   = "laboratory"
	CategoryRadiology    = "radiology"
	CategoryProcedure    = "procedure"
)

// FrontDeskRole is the designated role with the category override.
const FrontDeskRole = "frontdesk"

// Entry maps to the catalog_entry table.
type Entry struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	Code                 string          `db:"code" json:"code"`
	DisplayName          string          `db:"display_name" json:"display_name"`
	Price                decimal.Decimal `db:"price" json:"price"`
	Department           string          `db:"department" json:"department"`
	WorkflowType         WorkflowType    `db:"workflow_type" json:"workflow_type"`
	Category             string          `db:"category" json:"category"`
	RequiresVisit        bool            `db:"requires_visit" json:"requires_visit"`
	RequiresConsultation bool            `db:"requires_consultation" json:"requires_consultation"`
	AllowedRoles         []string        `db:"allowed_roles" json:"allowed_roles"`
	BillingTiming        BillingTiming   `db:"billing_timing" json:"billing_timing"`
	// DrugName is set when the entry encodes one specific drug, which
	// lets the router default dispense instructions.
	DrugName  *string   `db:"drug_name" json:"drug_name,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AllowsRole reports whether the given role may order this entry. An
// empty allowed-roles set means every authenticated role may order it.
// The front desk may always order registration and consultation-class
// entries; this is a deliberate business exception, not a fallback.
func (e *Entry) AllowsRole(role string) bool {
	if role == FrontDeskRole && e.FrontDeskOrderable() {
		return true
	}
	if len(e.AllowedRoles) == 0 {
		return true
	}
	for _, r := range e.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// AllowsAnyRole reports whether any of the roles is permitted.
func (e *Entry) AllowsAnyRole(roles []string) bool {
	for _, r := range roles {
		if e.AllowsRole(r) {
			return true
		}
	}
	return false
}

// FrontDeskOrderable reports whether the entry belongs to a category the
// front desk may always order.
func (e *Entry) FrontDeskOrderable() bool {
	return e.Category == CategoryRegistration || e.Category == CategoryConsultation
}
