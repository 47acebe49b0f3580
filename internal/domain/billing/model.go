// Package billing is the append-only ledger of charges per visit. Line
// items are never edited or deleted; totals are always computed by
// aggregation so historical correctness survives catalog changes.
package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem maps to the billing_line_item table.
//
// ConsultationID is populated only when the ordered entry's workflow
// type is CONSULTATION; every other workflow type links its own domain
// record to the consultation instead. The asymmetry is inherited from
// the billing rules this service implements and is preserved as-is
// pending product clarification.
type LineItem struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	VisitID        uuid.UUID       `db:"visit_id" json:"visit_id"`
	CatalogEntryID uuid.UUID       `db:"catalog_entry_id" json:"catalog_entry_id"`
	ConsultationID *uuid.UUID      `db:"consultation_id" json:"consultation_id,omitempty"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	CreatedBy      string          `db:"created_by" json:"created_by"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Payment records an externally cleared payment fact. Settlement
// mechanics live in the payment gateway; the core only keeps the facts
// it needs to derive the visit's payer state.
type Payment struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	VisitID    uuid.UUID       `db:"visit_id" json:"visit_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Method     string          `db:"method" json:"method"`
	RecordedBy string          `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Summary is the billing view of one visit.
type Summary struct {
	VisitID            uuid.UUID       `json:"visit_id"`
	TotalCharges       decimal.Decimal `json:"total_charges"`
	TotalPayments      decimal.Decimal `json:"total_payments"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	LineItems          []*LineItem     `json:"line_items"`
}
