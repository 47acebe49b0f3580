package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

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

func (r *repoPG) Append(ctx context.Context, li *LineItem) error {
	li.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billing_line_item (id, visit_id, catalog_entry_id, consultation_id, amount, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		li.ID, li.VisitID, li.CatalogEntryID, li.ConsultationID, li.Amount, li.CreatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("duplicate billing line item for this visit, entry and consultation").WithCause(err)
		}
		return err
	}
	return nil
}

func (r *repoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*LineItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, visit_id, catalog_entry_id, consultation_id, amount, created_by, created_at
		FROM billing_line_item WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LineItem
	for rows.Next() {
		li := &LineItem{}
		if err := rows.Scan(&li.ID, &li.VisitID, &li.CatalogEntryID, &li.ConsultationID,
			&li.Amount, &li.CreatedBy, &li.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (r *repoPG) TotalCharges(ctx context.Context, visitID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM billing_line_item WHERE visit_id = $1`, visitID,
	).Scan(&total)
	return total, err
}

func (r *repoPG) CreatePayment(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (id, visit_id, amount, method, recorded_by)
		VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.VisitID, p.Amount, p.Method, p.RecordedBy,
	)
	return err
}

func (r *repoPG) TotalPayments(ctx context.Context, visitID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payment WHERE visit_id = $1`, visitID,
	).Scan(&total)
	return total, err
}
