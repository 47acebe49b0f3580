package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/catalog"
	"github.com/clinicore/clinicore/internal/platform/apperr"
)

// Initial workflow record statuses, one per workflow type. Downstream
// departments advance them through their own flows.
const (
	StatusAwaitingDispense = "AWAITING_DISPENSE"
	StatusAwaitingSample   = "AWAITING_SAMPLE"
	StatusAwaitingStudy    = "AWAITING_STUDY"
	StatusScheduled        = "SCHEDULED"
	StatusOpen             = "OPEN"
)

// Record is the single downstream work item an order produces. Exactly
// one of the detail pointers is set, matching Type. ConsultationID links
// the record to the consultation it was ordered under and is nil for
// CONSULTATION records, which have no parent consultation.
type Record struct {
	ID             uuid.UUID            `db:"id" json:"id"`
	Type           catalog.WorkflowType `db:"type" json:"type"`
	VisitID        uuid.UUID            `db:"visit_id" json:"visit_id"`
	ConsultationID *uuid.UUID           `db:"consultation_id" json:"consultation_id,omitempty"`
	CatalogEntryID uuid.UUID            `db:"catalog_entry_id" json:"catalog_entry_id"`
	Status         string               `db:"status" json:"status"`
	OrderedBy      string               `db:"ordered_by" json:"ordered_by"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`

	Drug      *DrugDetails      `json:"drug,omitempty"`
	Lab       *LabDetails       `json:"lab,omitempty"`
	Imaging   *ImagingDetails   `json:"imaging,omitempty"`
	Procedure *ProcedureDetails `json:"procedure,omitempty"`
	Note      *NoteDetails      `json:"note,omitempty"`
}

type DrugDetails struct {
	Drug      string `json:"drug"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

type LabDetails struct {
	Tests      []string `json:"tests"`
	Indication string   `json:"indication,omitempty"`
}

type ImagingDetails struct {
	StudyType    string `json:"study_type"`
	Indication   string `json:"indication,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type ProcedureDetails struct {
	Notes string `json:"notes,omitempty"`
}

type NoteDetails struct {
	Notes string `json:"notes,omitempty"`
}

// Dispense instruction defaults applied when the catalog entry names a
// specific drug and the order omits them.
const (
	defaultDosage    = "per package instructions"
	defaultFrequency = "as directed"
	defaultDuration  = "as prescribed"
)

func stringField(extra map[string]interface{}, key string) string {
	if extra == nil {
		return ""
	}
	s, _ := extra[key].(string)
	return s
}

func stringListField(extra map[string]interface{}, key string) []string {
	if extra == nil {
		return nil
	}
	raw, ok := extra[key].([]interface{})
	if !ok {
		if typed, ok := extra[key].([]string); ok {
			return typed
		}
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// buildRecord constructs the workflow record for the entry's type,
// validating the type-specific fields carried in extra. Validation
// failures name the missing field so the caller can correct the order.
func buildRecord(entry *catalog.Entry, visitID uuid.UUID, consultationID *uuid.UUID, orderedBy string, extra map[string]interface{}) (*Record, error) {
	rec := &Record{
		Type:           entry.WorkflowType,
		VisitID:        visitID,
		CatalogEntryID: entry.ID,
		OrderedBy:      orderedBy,
		ConsultationID: consultationID,
	}

	switch entry.WorkflowType {
	case catalog.WorkflowDrugDispense:
		d := &DrugDetails{
			Dosage:    stringField(extra, "dosage"),
			Frequency: stringField(extra, "frequency"),
			Duration:  stringField(extra, "duration"),
		}
		if entry.DrugName != nil {
			d.Drug = *entry.DrugName
			if d.Dosage == "" {
				d.Dosage = defaultDosage
			}
			if d.Frequency == "" {
				d.Frequency = defaultFrequency
			}
			if d.Duration == "" {
				d.Duration = defaultDuration
			}
		} else {
			d.Drug = stringField(extra, "drug")
			required := []struct{ field, value string }{
				{"drug", d.Drug},
				{"dosage", d.Dosage},
				{"frequency", d.Frequency},
				{"duration", d.Duration},
			}
			for _, r := range required {
				if r.value == "" {
					return nil, apperr.Validation("drug order is missing required field %q", r.field)
				}
			}
		}
		rec.Drug = d
		rec.Status = StatusAwaitingDispense

	case catalog.WorkflowLabOrder:
		tests := stringListField(extra, "tests")
		if len(tests) == 0 {
			return nil, apperr.Validation("lab order is missing required field %q", "tests")
		}
		rec.Lab = &LabDetails{Tests: tests, Indication: stringField(extra, "indication")}
		rec.Status = StatusAwaitingSample

	case catalog.WorkflowRadiologyStudy:
		study := stringField(extra, "study_type")
		if study == "" {
			study = entry.DisplayName
		}
		rec.Imaging = &ImagingDetails{
			StudyType:    study,
			Indication:   stringField(extra, "indication"),
			Instructions: stringField(extra, "instructions"),
		}
		rec.Status = StatusAwaitingStudy

	case catalog.WorkflowProcedure:
		rec.Procedure = &ProcedureDetails{Notes: stringField(extra, "notes")}
		rec.Status = StatusScheduled

	case catalog.WorkflowConsultation:
		rec.Note = &NoteDetails{Notes: stringField(extra, "notes")}
		rec.Status = StatusOpen
		// A consultation record stands on its own rather than hanging off
		// the consultation it opens.
		rec.ConsultationID = nil

	default:
		return nil, apperr.Internal("unknown workflow type %q", entry.WorkflowType)
	}

	return rec, nil
}
