package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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

const entryCols = `id, code, display_name, price, department, workflow_type, category,
	requires_visit, requires_consultation, allowed_roles, billing_timing,
	drug_name, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO catalog_entry (
			id, code, display_name, price, department, workflow_type, category,
			requires_visit, requires_consultation, allowed_roles, billing_timing,
			drug_name, active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.ID, e.Code, e.DisplayName, e.Price, e.Department, e.WorkflowType, e.Category,
		e.RequiresVisit, e.RequiresConsultation, e.AllowedRoles, e.BillingTiming,
		e.DrugName, e.Active,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("catalog entry %s already exists", e.Code).WithCause(err)
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM catalog_entry WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM catalog_entry WHERE code = $1`, code))
}

func (r *repoPG) Update(ctx context.Context, e *Entry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE catalog_entry SET
			display_name=$2, price=$3, department=$4, workflow_type=$5, category=$6,
			requires_visit=$7, requires_consultation=$8, allowed_roles=$9,
			billing_timing=$10, drug_name=$11, active=$12, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.DisplayName, e.Price, e.Department, e.WorkflowType, e.Category,
		e.RequiresVisit, e.RequiresConsultation, e.AllowedRoles,
		e.BillingTiming, e.DrugName, e.Active,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, department string, limit, offset int) ([]*Entry, int, error) {
	q := r.conn(ctx)

	where := ``
	args := []interface{}{limit, offset}
	if department != "" {
		where = ` WHERE department = $3`
		args = append(args, department)
	}

	var total int
	countArgs := args[2:]
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM catalog_entry`+whereForCount(where), countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx,
		`SELECT `+entryCols+` FROM catalog_entry`+where+` ORDER BY code LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// whereForCount rewrites the list where-clause for the count query,
// whose only placeholder is the department.
func whereForCount(where string) string {
	if where == "" {
		return ""
	}
	return ` WHERE department = $1`
}

func (r *repoPG) HasBillingReference(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM billing_line_item WHERE catalog_entry_id = $1)`, id,
	).Scan(&exists)
	return exists, err
}

func scanEntry(row pgx.Row) (*Entry, error) {
	e := &Entry{}
	err := row.Scan(
		&e.ID, &e.Code, &e.DisplayName, &e.Price, &e.Department, &e.WorkflowType, &e.Category,
		&e.RequiresVisit, &e.RequiresConsultation, &e.AllowedRoles, &e.BillingTiming,
		&e.DrugName, &e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("catalog entry not found")
		}
		return nil, err
	}
	return e, nil
}

func scanEntryRow(rows pgx.Rows) (*Entry, error) {
	e := &Entry{}
	err := rows.Scan(
		&e.ID, &e.Code, &e.DisplayName, &e.Price, &e.Department, &e.WorkflowType, &e.Category,
		&e.RequiresVisit, &e.RequiresConsultation, &e.AllowedRoles, &e.BillingTiming,
		&e.DrugName, &e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}
