package order

import (
	"testing"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/catalog"
	"github.com/clinicore/clinicore/internal/platform/apperr"
)

func entryOfType(t catalog.WorkflowType) *catalog.Entry {
	return &catalog.Entry{
		ID:           uuid.New(),
		Code:         "E-" + string(t),
		DisplayName:  "Entry " + string(t),
		WorkflowType: t,
		Active:       true,
	}
}

func TestBuildRecord_DrugDefaultsFromEntry(t *testing.T) {
	entry := entryOfType(catalog.WorkflowDrugDispense)
	drug := "Amoxicillin 500mg"
	entry.DrugName = &drug

	rec, err := buildRecord(entry, uuid.New(), nil, "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != StatusAwaitingDispense {
		t.Errorf("status = %s, want %s", rec.Status, StatusAwaitingDispense)
	}
	if rec.Drug == nil {
		t.Fatal("expected drug details")
	}
	if rec.Drug.Drug != drug {
		t.Errorf("drug = %q, want %q", rec.Drug.Drug, drug)
	}
	if rec.Drug.Dosage == "" || rec.Drug.Frequency == "" || rec.Drug.Duration == "" {
		t.Errorf("expected defaulted instructions, got %+v", rec.Drug)
	}
}

func TestBuildRecord_DrugExplicitFieldsWin(t *testing.T) {
	entry := entryOfType(catalog.WorkflowDrugDispense)
	drug := "Amoxicillin 500mg"
	entry.DrugName = &drug

	rec, err := buildRecord(entry, uuid.New(), nil, "u1", map[string]interface{}{
		"dosage": "500mg", "frequency": "3x daily", "duration": "7 days",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Drug.Dosage != "500mg" || rec.Drug.Frequency != "3x daily" || rec.Drug.Duration != "7 days" {
		t.Errorf("explicit fields overridden: %+v", rec.Drug)
	}
}

func TestBuildRecord_DrugWithoutEntryDrugRequiresFields(t *testing.T) {
	entry := entryOfType(catalog.WorkflowDrugDispense)

	_, err := buildRecord(entry, uuid.New(), nil, "u1", map[string]interface{}{
		"drug": "Ibuprofen", "dosage": "200mg", "frequency": "2x daily",
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	ae, _ := apperr.As(err)
	if ae == nil || ae.Message == "" {
		t.Fatal("expected a message naming the missing field")
	}
}

func TestBuildRecord_LabRequiresTests(t *testing.T) {
	entry := entryOfType(catalog.WorkflowLabOrder)

	_, err := buildRecord(entry, uuid.New(), nil, "u1", nil)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	rec, err := buildRecord(entry, uuid.New(), nil, "u1", map[string]interface{}{
		"tests": []interface{}{"CBC", "CRP"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != StatusAwaitingSample {
		t.Errorf("status = %s, want %s", rec.Status, StatusAwaitingSample)
	}
	if len(rec.Lab.Tests) != 2 {
		t.Errorf("tests = %v", rec.Lab.Tests)
	}
}

func TestBuildRecord_ImagingDefaultsStudyType(t *testing.T) {
	entry := entryOfType(catalog.WorkflowRadiologyStudy)
	entry.DisplayName = "Chest X-Ray"

	rec, err := buildRecord(entry, uuid.New(), nil, "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != StatusAwaitingStudy {
		t.Errorf("status = %s, want %s", rec.Status, StatusAwaitingStudy)
	}
	if rec.Imaging.StudyType != "Chest X-Ray" {
		t.Errorf("study type = %q, want display name", rec.Imaging.StudyType)
	}
}

func TestBuildRecord_ProcedureAndConsultation(t *testing.T) {
	consultationID := uuid.New()

	rec, err := buildRecord(entryOfType(catalog.WorkflowProcedure), uuid.New(), &consultationID, "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != StatusScheduled {
		t.Errorf("procedure status = %s, want %s", rec.Status, StatusScheduled)
	}
	if rec.ConsultationID == nil || *rec.ConsultationID != consultationID {
		t.Error("procedure record should link its consultation")
	}

	rec, err = buildRecord(entryOfType(catalog.WorkflowConsultation), uuid.New(), &consultationID, "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != StatusOpen {
		t.Errorf("consultation status = %s, want %s", rec.Status, StatusOpen)
	}
	if rec.ConsultationID != nil {
		t.Error("consultation record must not link a parent consultation")
	}
}
