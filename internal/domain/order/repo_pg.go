package order

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/domain/catalog"
	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// details marshals the active detail variant for the JSONB column.
func details(rec *Record) (interface{}, error) {
	var v interface{}
	switch rec.Type {
	case catalog.WorkflowDrugDispense:
		v = rec.Drug
	case catalog.WorkflowLabOrder:
		v = rec.Lab
	case catalog.WorkflowRadiologyStudy:
		v = rec.Imaging
	case catalog.WorkflowProcedure:
		v = rec.Procedure
	case catalog.WorkflowConsultation:
		v = rec.Note
	}
	return json.Marshal(v)
}

func scanDetails(rec *Record, raw []byte) error {
	var target interface{}
	switch rec.Type {
	case catalog.WorkflowDrugDispense:
		rec.Drug = &DrugDetails{}
		target = rec.Drug
	case catalog.WorkflowLabOrder:
		rec.Lab = &LabDetails{}
		target = rec.Lab
	case catalog.WorkflowRadiologyStudy:
		rec.Imaging = &ImagingDetails{}
		target = rec.Imaging
	case catalog.WorkflowProcedure:
		rec.Procedure = &ProcedureDetails{}
		target = rec.Procedure
	case catalog.WorkflowConsultation:
		rec.Note = &NoteDetails{}
		target = rec.Note
	default:
		return apperr.Internal("unknown workflow type %q in workflow_record", rec.Type)
	}
	return json.Unmarshal(raw, target)
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	d, err := details(rec)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO workflow_record (id, type, visit_id, consultation_id, catalog_entry_id, status, ordered_by, details)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.Type, rec.VisitID, rec.ConsultationID, rec.CatalogEntryID, rec.Status, rec.OrderedBy, d,
	)
	return err
}

const recordCols = `id, type, visit_id, consultation_id, catalog_entry_id, status, ordered_by, details, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	rec := &Record{}
	var raw []byte
	err := row.Scan(&rec.ID, &rec.Type, &rec.VisitID, &rec.ConsultationID,
		&rec.CatalogEntryID, &rec.Status, &rec.OrderedBy, &raw, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("workflow record not found")
		}
		return nil, err
	}
	if len(raw) > 0 {
		if err := scanDetails(rec, raw); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM workflow_record WHERE id = $1`, id)
	return scanRecord(row)
}

func (r *repoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM workflow_record WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
