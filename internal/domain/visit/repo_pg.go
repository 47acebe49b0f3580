package visit

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

const visitCols = `id, patient_id, status, payment_status, created_at, closed_at`

func (r *repoPG) CreateVisit(ctx context.Context, v *Visit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = VisitOpen
	}
	if v.PaymentStatus == "" {
		v.PaymentStatus = PaymentUnpaid
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visit (id, patient_id, status, payment_status)
		VALUES ($1,$2,$3,$4)`,
		v.ID, v.PatientID, v.Status, v.PaymentStatus,
	)
	return err
}

func (r *repoPG) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v := &Visit{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM visit WHERE id = $1`, id,
	).Scan(&v.ID, &v.PatientID, &v.Status, &v.PaymentStatus, &v.CreatedAt, &v.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("visit not found")
		}
		return nil, err
	}
	return v, nil
}

func (r *repoPG) ListVisits(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	q := r.conn(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM visit`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx,
		`SELECT `+visitCols+` FROM visit ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var visits []*Visit
	for rows.Next() {
		v := &Visit{}
		if err := rows.Scan(&v.ID, &v.PatientID, &v.Status, &v.PaymentStatus, &v.CreatedAt, &v.ClosedAt); err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

func (r *repoPG) UpdateVisit(ctx context.Context, v *Visit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit SET status=$2, payment_status=$3, closed_at=$4 WHERE id = $1`,
		v.ID, v.Status, v.PaymentStatus, v.ClosedAt,
	)
	return err
}

const consultationCols = `id, visit_id, status, clinician_id, created_at, activated_at, closed_at`

func (r *repoPG) CreateConsultation(ctx context.Context, c *Consultation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ConsultationPending
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consultation (id, visit_id, status, clinician_id)
		VALUES ($1,$2,$3,$4)`,
		c.ID, c.VisitID, c.Status, c.ClinicianID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("visit %s already has an open consultation", c.VisitID).WithCause(err)
		}
		return err
	}
	return nil
}

func (r *repoPG) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return scanConsultation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+consultationCols+` FROM consultation WHERE id = $1`, id))
}

func (r *repoPG) CurrentConsultation(ctx context.Context, visitID uuid.UUID) (*Consultation, error) {
	c, err := scanConsultation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+consultationCols+` FROM consultation
		 WHERE visit_id = $1 AND status <> 'CLOSED'`, visitID))
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	return c, err
}

func (r *repoPG) UpdateConsultation(ctx context.Context, c *Consultation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE consultation SET status=$2, activated_at=$3, closed_at=$4 WHERE id = $1`,
		c.ID, c.Status, c.ActivatedAt, c.ClosedAt,
	)
	return err
}

func (r *repoPG) ListConsultations(ctx context.Context, visitID uuid.UUID) ([]*Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+consultationCols+` FROM consultation WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var consultations []*Consultation
	for rows.Next() {
		c := &Consultation{}
		if err := rows.Scan(&c.ID, &c.VisitID, &c.Status, &c.ClinicianID, &c.CreatedAt, &c.ActivatedAt, &c.ClosedAt); err != nil {
			return nil, err
		}
		consultations = append(consultations, c)
	}
	return consultations, rows.Err()
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	c := &Consultation{}
	err := row.Scan(&c.ID, &c.VisitID, &c.Status, &c.ClinicianID, &c.CreatedAt, &c.ActivatedAt, &c.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("consultation not found")
		}
		return nil, err
	}
	return c, nil
}
