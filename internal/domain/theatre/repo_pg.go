package theatre

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/otms/otms/internal/platform/db"
	"github.com/otms/otms/internal/platform/query"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// priorityOrderSQL sorts the urgency labels clinically rather than
// lexically: emergency, urgent, elective.
const priorityOrderSQL = `CASE priority WHEN 'emergency' THEN 0 WHEN 'urgent' THEN 1 WHEN 'elective' THEN 2 ELSE 3 END`

// activeStatusesSQL matches surgeries currently holding their theatre.
const activeStatusesSQL = `('pre_op','in_progress','post_op')`

// =========== Theatre Repository ===========

type theatreRepoPG struct{ pool *pgxpool.Pool }

func NewTheatreRepoPG(pool *pgxpool.Pool) TheatreRepository { return &theatreRepoPG{pool: pool} }

func (r *theatreRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const theatreCols = `id, code, name, theatre_type, status, capacity, has_imaging, has_robotics, has_laminar_flow, is_active, note, created_at, updated_at`

func (r *theatreRepoPG) scanTheatre(row pgx.Row) (*Theatre, error) {
	var t Theatre
	err := row.Scan(&t.ID, &t.Code, &t.Name, &t.TheatreType, &t.Status, &t.Capacity,
		&t.HasImaging, &t.HasRobotics, &t.HasLaminarFlow, &t.IsActive, &t.Note, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *theatreRepoPG) Create(ctx context.Context, t *Theatre) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO theatre (id, code, name, theatre_type, status, capacity, has_imaging, has_robotics, has_laminar_flow, is_active, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.ID, t.Code, t.Name, t.TheatreType, t.Status, t.Capacity,
		t.HasImaging, t.HasRobotics, t.HasLaminarFlow, t.IsActive, t.Note)
	return err
}

func (r *theatreRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Theatre, error) {
	return r.scanTheatre(r.conn(ctx).QueryRow(ctx, `SELECT `+theatreCols+` FROM theatre WHERE id = $1`, id))
}

func (r *theatreRepoPG) GetByCode(ctx context.Context, code string) (*Theatre, error) {
	return r.scanTheatre(r.conn(ctx).QueryRow(ctx, `SELECT `+theatreCols+` FROM theatre WHERE code = $1`, code))
}

func (r *theatreRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Theatre, error) {
	return r.scanTheatre(r.conn(ctx).QueryRow(ctx, `SELECT `+theatreCols+` FROM theatre WHERE id = $1 FOR UPDATE`, id))
}

func (r *theatreRepoPG) Update(ctx context.Context, t *Theatre) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE theatre SET name=$2, theatre_type=$3, status=$4, capacity=$5,
			has_imaging=$6, has_robotics=$7, has_laminar_flow=$8, is_active=$9, note=$10, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.TheatreType, t.Status, t.Capacity,
		t.HasImaging, t.HasRobotics, t.HasLaminarFlow, t.IsActive, t.Note)
	return err
}

func (r *theatreRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE theatre SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *theatreRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE theatre SET is_active=false, updated_at=NOW() WHERE id = $1`, id)
	return err
}

func (r *theatreRepoPG) List(ctx context.Context, limit, offset int) ([]*Theatre, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM theatre`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+theatreCols+` FROM theatre ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Theatre
	for rows.Next() {
		t, err := r.scanTheatre(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}

var theatreSearchParams = map[string]query.ParamConfig{
	"status":       {Type: query.ParamExact, Column: "status"},
	"theatre_type": {Type: query.ParamExact, Column: "theatre_type"},
	"is_active":    {Type: query.ParamBool, Column: "is_active"},
	"name":         {Type: query.ParamString, Column: "name"},
}

func (r *theatreRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Theatre, int, error) {
	qb := query.New("theatre", theatreCols)
	qb.ApplyParams(params, theatreSearchParams)
	qb.ApplySort(params["sort"], "code", theatreSearchParams)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Theatre
	for rows.Next() {
		t, err := r.scanTheatre(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}

// =========== Surgery Repository ===========

type surgeryRepoPG struct{ pool *pgxpool.Pool }

func NewSurgeryRepoPG(pool *pgxpool.Pool) SurgeryRepository { return &surgeryRepoPG{pool: pool} }

func (r *surgeryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const surgeryCols = `id, theatre_id, patient_id, admission_id, surgeon_id, anesthetist_id, procedure_name,
	priority, status, scheduled_date, scheduled_start, scheduled_end,
	actual_start, actual_end, duration_minutes, cancel_reason, cancelled_at,
	billing_status, note, created_at, updated_at`

func (r *surgeryRepoPG) scanSurgery(row pgx.Row) (*Surgery, error) {
	var s Surgery
	err := row.Scan(&s.ID, &s.TheatreID, &s.PatientID, &s.AdmissionID, &s.SurgeonID, &s.AnesthetistID, &s.ProcedureName,
		&s.Priority, &s.Status, &s.ScheduledDate, &s.ScheduledStart, &s.ScheduledEnd,
		&s.ActualStart, &s.ActualEnd, &s.DurationMinutes, &s.CancelReason, &s.CancelledAt,
		&s.BillingStatus, &s.Note, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *surgeryRepoPG) Create(ctx context.Context, s *Surgery) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO surgery (id, theatre_id, patient_id, admission_id, surgeon_id, anesthetist_id, procedure_name,
			priority, status, scheduled_date, scheduled_start, scheduled_end, billing_status, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		s.ID, s.TheatreID, s.PatientID, s.AdmissionID, s.SurgeonID, s.AnesthetistID, s.ProcedureName,
		s.Priority, s.Status, s.ScheduledDate, s.ScheduledStart, s.ScheduledEnd, s.BillingStatus, s.Note)
	return err
}

func (r *surgeryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Surgery, error) {
	return r.scanSurgery(r.conn(ctx).QueryRow(ctx, `SELECT `+surgeryCols+` FROM surgery WHERE id = $1`, id))
}

func (r *surgeryRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Surgery, error) {
	return r.scanSurgery(r.conn(ctx).QueryRow(ctx, `SELECT `+surgeryCols+` FROM surgery WHERE id = $1 FOR UPDATE`, id))
}

func (r *surgeryRepoPG) Update(ctx context.Context, s *Surgery) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE surgery SET theatre_id=$2, admission_id=$3, surgeon_id=$4, anesthetist_id=$5, procedure_name=$6,
			priority=$7, status=$8, scheduled_date=$9, scheduled_start=$10, scheduled_end=$11,
			actual_start=$12, actual_end=$13, duration_minutes=$14, cancel_reason=$15, cancelled_at=$16,
			note=$17, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.TheatreID, s.AdmissionID, s.SurgeonID, s.AnesthetistID, s.ProcedureName,
		s.Priority, s.Status, s.ScheduledDate, s.ScheduledStart, s.ScheduledEnd,
		s.ActualStart, s.ActualEnd, s.DurationMinutes, s.CancelReason, s.CancelledAt, s.Note)
	return err
}

func (r *surgeryRepoPG) List(ctx context.Context, limit, offset int) ([]*Surgery, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM surgery`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+surgeryCols+` FROM surgery ORDER BY scheduled_date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectSurgeries(rows, total, r.scanSurgery)
}

var surgerySearchParams = map[string]query.ParamConfig{
	"status":       {Type: query.ParamExact, Column: "status"},
	"priority":     {Type: query.ParamExact, Column: "priority"},
	"theatre_id":   {Type: query.ParamExact, Column: "theatre_id"},
	"patient_id":   {Type: query.ParamExact, Column: "patient_id"},
	"admission_id": {Type: query.ParamExact, Column: "admission_id"},
	"surgeon_id":   {Type: query.ParamExact, Column: "surgeon_id"},
	"date":         {Type: query.ParamDate, Column: "scheduled_date"},
	"procedure":    {Type: query.ParamString, Column: "procedure_name"},
}

func (r *surgeryRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Surgery, int, error) {
	qb := query.New("surgery", surgeryCols)
	qb.ApplyParams(params, surgerySearchParams)
	qb.ApplySort(params["sort"], "scheduled_date DESC, scheduled_start", surgerySearchParams)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectSurgeries(rows, total, r.scanSurgery)
}

func (r *surgeryRepoPG) Worklist(ctx context.Context, date *time.Time, theatreID *uuid.UUID, limit, offset int) ([]*Surgery, int, error) {
	qb := query.New("surgery", surgeryCols)
	qb.AddExact("status", "scheduled")
	if date != nil {
		qb.Add("scheduled_date = $"+strconv.Itoa(qb.Idx()), *date)
	}
	if theatreID != nil {
		qb.Add("theatre_id = $"+strconv.Itoa(qb.Idx()), *theatreID)
	}
	qb.OrderBy(priorityOrderSQL + `, scheduled_date, scheduled_start NULLS LAST, created_at`)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectSurgeries(rows, total, r.scanSurgery)
}

func (r *surgeryRepoPG) CountActive(ctx context.Context, theatreID, excludeID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM surgery
		WHERE theatre_id = $1 AND id <> $2 AND status IN `+activeStatusesSQL,
		theatreID, excludeID).Scan(&n)
	return n, err
}

func (r *surgeryRepoPG) CountOverlapping(ctx context.Context, theatreID uuid.UUID, date time.Time, start, end time.Time, excludeID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM surgery
		WHERE theatre_id = $1 AND id <> $2 AND scheduled_date = $3
		  AND status IN ('scheduled','pre_op','in_progress','post_op')
		  AND scheduled_start IS NOT NULL AND scheduled_end IS NOT NULL
		  AND scheduled_start < $5 AND scheduled_end > $4`,
		theatreID, excludeID, date, start, end).Scan(&n)
	return n, err
}

func (r *surgeryRepoPG) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'scheduled'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			AVG(duration_minutes) FILTER (WHERE duration_minutes IS NOT NULL)
		FROM surgery`).Scan(&st.Total, &st.Scheduled, &st.InProgress, &st.Completed, &st.Cancelled, &st.AvgDurationMinutes)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func collectSurgeries(rows pgx.Rows, total int, scan func(pgx.Row) (*Surgery, error)) ([]*Surgery, int, error) {
	var items []*Surgery
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

// =========== Checklist Repository ===========

type checklistRepoPG struct{ pool *pgxpool.Pool }

func NewChecklistRepoPG(pool *pgxpool.Pool) ChecklistRepository { return &checklistRepoPG{pool: pool} }

func (r *checklistRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const checklistCols = `id, surgery_id, sign_in_at, sign_in_by, time_out_at, time_out_by, sign_out_at, sign_out_by, status, note, created_at, updated_at`

func (r *checklistRepoPG) scanChecklist(row pgx.Row) (*ChecklistRecord, error) {
	var c ChecklistRecord
	err := row.Scan(&c.ID, &c.SurgeryID, &c.SignInAt, &c.SignInBy, &c.TimeOutAt, &c.TimeOutBy,
		&c.SignOutAt, &c.SignOutBy, &c.Status, &c.Note, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *checklistRepoPG) GetBySurgery(ctx context.Context, surgeryID uuid.UUID) (*ChecklistRecord, error) {
	return r.scanChecklist(r.conn(ctx).QueryRow(ctx, `SELECT `+checklistCols+` FROM surgery_checklist WHERE surgery_id = $1`, surgeryID))
}

func (r *checklistRepoPG) Create(ctx context.Context, c *ChecklistRecord) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO surgery_checklist (id, surgery_id, sign_in_at, sign_in_by, time_out_at, time_out_by, sign_out_at, sign_out_by, status, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.SurgeryID, c.SignInAt, c.SignInBy, c.TimeOutAt, c.TimeOutBy, c.SignOutAt, c.SignOutBy, c.Status, c.Note)
	return err
}

func (r *checklistRepoPG) Update(ctx context.Context, c *ChecklistRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE surgery_checklist SET sign_in_at=$2, sign_in_by=$3, time_out_at=$4, time_out_by=$5,
			sign_out_at=$6, sign_out_by=$7, status=$8, note=$9, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.SignInAt, c.SignInBy, c.TimeOutAt, c.TimeOutBy, c.SignOutAt, c.SignOutBy, c.Status, c.Note)
	return err
}

// =========== Anesthesia Repository ===========

type anesthesiaRepoPG struct{ pool *pgxpool.Pool }

func NewAnesthesiaRepoPG(pool *pgxpool.Pool) AnesthesiaRepository { return &anesthesiaRepoPG{pool: pool} }

func (r *anesthesiaRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const anesthesiaCols = `id, surgery_id, anesthetist_id, technique, status, agents_used, pre_op_assessment, started_at, ended_at, note, created_at, updated_at`

func (r *anesthesiaRepoPG) scanAnesthesia(row pgx.Row) (*AnesthesiaRecord, error) {
	var a AnesthesiaRecord
	err := row.Scan(&a.ID, &a.SurgeryID, &a.AnesthetistID, &a.Technique, &a.Status, &a.AgentsUsed,
		&a.PreOpAssessment, &a.StartedAt, &a.EndedAt, &a.Note, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *anesthesiaRepoPG) GetBySurgery(ctx context.Context, surgeryID uuid.UUID) (*AnesthesiaRecord, error) {
	return r.scanAnesthesia(r.conn(ctx).QueryRow(ctx, `SELECT `+anesthesiaCols+` FROM anesthesia_record WHERE surgery_id = $1`, surgeryID))
}

func (r *anesthesiaRepoPG) Create(ctx context.Context, a *AnesthesiaRecord) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO anesthesia_record (id, surgery_id, anesthetist_id, technique, status, agents_used, pre_op_assessment, started_at, ended_at, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.SurgeryID, a.AnesthetistID, a.Technique, a.Status, a.AgentsUsed,
		a.PreOpAssessment, a.StartedAt, a.EndedAt, a.Note)
	return err
}

func (r *anesthesiaRepoPG) Update(ctx context.Context, a *AnesthesiaRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE anesthesia_record SET anesthetist_id=$2, technique=$3, status=$4, agents_used=$5,
			pre_op_assessment=$6, started_at=$7, ended_at=$8, note=$9, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.AnesthetistID, a.Technique, a.Status, a.AgentsUsed,
		a.PreOpAssessment, a.StartedAt, a.EndedAt, a.Note)
	return err
}
