package dialysis

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

const priorityOrderSQL = `CASE priority WHEN 'emergency' THEN 0 WHEN 'urgent' THEN 1 WHEN 'elective' THEN 2 ELSE 3 END`

// =========== Machine Repository ===========

type machineRepoPG struct{ pool *pgxpool.Pool }

func NewMachineRepoPG(pool *pgxpool.Pool) MachineRepository { return &machineRepoPG{pool: pool} }

func (r *machineRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const machineCols = `id, code, station, status, is_active, note, created_at, updated_at`

func (r *machineRepoPG) scanMachine(row pgx.Row) (*Machine, error) {
	var m Machine
	err := row.Scan(&m.ID, &m.Code, &m.Station, &m.Status, &m.IsActive, &m.Note, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *machineRepoPG) Create(ctx context.Context, m *Machine) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dialysis_machine (id, code, station, status, is_active, note)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.Code, m.Station, m.Status, m.IsActive, m.Note)
	return err
}

func (r *machineRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Machine, error) {
	return r.scanMachine(r.conn(ctx).QueryRow(ctx, `SELECT `+machineCols+` FROM dialysis_machine WHERE id = $1`, id))
}

func (r *machineRepoPG) GetByCode(ctx context.Context, code string) (*Machine, error) {
	return r.scanMachine(r.conn(ctx).QueryRow(ctx, `SELECT `+machineCols+` FROM dialysis_machine WHERE code = $1`, code))
}

func (r *machineRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Machine, error) {
	return r.scanMachine(r.conn(ctx).QueryRow(ctx, `SELECT `+machineCols+` FROM dialysis_machine WHERE id = $1 FOR UPDATE`, id))
}

func (r *machineRepoPG) Update(ctx context.Context, m *Machine) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE dialysis_machine SET station=$2, status=$3, is_active=$4, note=$5, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Station, m.Status, m.IsActive, m.Note)
	return err
}

func (r *machineRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE dialysis_machine SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *machineRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE dialysis_machine SET is_active=false, updated_at=NOW() WHERE id = $1`, id)
	return err
}

var machineSearchParams = map[string]query.ParamConfig{
	"status":    {Type: query.ParamExact, Column: "status"},
	"station":   {Type: query.ParamString, Column: "station"},
	"is_active": {Type: query.ParamBool, Column: "is_active"},
}

func (r *machineRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Machine, int, error) {
	qb := query.New("dialysis_machine", machineCols)
	qb.ApplyParams(params, machineSearchParams)
	qb.ApplySort(params["sort"], "code", machineSearchParams)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Machine
	for rows.Next() {
		m, err := r.scanMachine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

// =========== Session Repository ===========

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository { return &sessionRepoPG{pool: pool} }

func (r *sessionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const sessionCols = `id, machine_id, patient_id, priority, status, scheduled_date, scheduled_start, scheduled_end,
	actual_start, actual_end, duration_minutes, cancel_reason, cancelled_at, billing_status, note, created_at, updated_at`

func (r *sessionRepoPG) scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.MachineID, &s.PatientID, &s.Priority, &s.Status,
		&s.ScheduledDate, &s.ScheduledStart, &s.ScheduledEnd,
		&s.ActualStart, &s.ActualEnd, &s.DurationMinutes, &s.CancelReason, &s.CancelledAt,
		&s.BillingStatus, &s.Note, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dialysis_session (id, machine_id, patient_id, priority, status, scheduled_date, scheduled_start, scheduled_end, billing_status, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		s.ID, s.MachineID, s.PatientID, s.Priority, s.Status, s.ScheduledDate, s.ScheduledStart, s.ScheduledEnd, s.BillingStatus, s.Note)
	return err
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return r.scanSession(r.conn(ctx).QueryRow(ctx, `SELECT `+sessionCols+` FROM dialysis_session WHERE id = $1`, id))
}

func (r *sessionRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Session, error) {
	return r.scanSession(r.conn(ctx).QueryRow(ctx, `SELECT `+sessionCols+` FROM dialysis_session WHERE id = $1 FOR UPDATE`, id))
}

func (r *sessionRepoPG) Update(ctx context.Context, s *Session) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE dialysis_session SET machine_id=$2, priority=$3, status=$4, scheduled_date=$5,
			scheduled_start=$6, scheduled_end=$7, actual_start=$8, actual_end=$9,
			duration_minutes=$10, cancel_reason=$11, cancelled_at=$12, note=$13, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.MachineID, s.Priority, s.Status, s.ScheduledDate,
		s.ScheduledStart, s.ScheduledEnd, s.ActualStart, s.ActualEnd,
		s.DurationMinutes, s.CancelReason, s.CancelledAt, s.Note)
	return err
}

var sessionSearchParams = map[string]query.ParamConfig{
	"status":     {Type: query.ParamExact, Column: "status"},
	"priority":   {Type: query.ParamExact, Column: "priority"},
	"machine_id": {Type: query.ParamExact, Column: "machine_id"},
	"patient_id": {Type: query.ParamExact, Column: "patient_id"},
	"date":       {Type: query.ParamDate, Column: "scheduled_date"},
}

func (r *sessionRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Session, int, error) {
	qb := query.New("dialysis_session", sessionCols)
	qb.ApplyParams(params, sessionSearchParams)
	qb.ApplySort(params["sort"], "scheduled_date DESC, scheduled_start", sessionSearchParams)
	return r.collect(ctx, qb, limit, offset)
}

func (r *sessionRepoPG) Worklist(ctx context.Context, date *time.Time, machineID *uuid.UUID, limit, offset int) ([]*Session, int, error) {
	qb := query.New("dialysis_session", sessionCols)
	qb.AddExact("status", "scheduled")
	if date != nil {
		qb.Add("scheduled_date = $"+strconv.Itoa(qb.Idx()), *date)
	}
	if machineID != nil {
		qb.Add("machine_id = $"+strconv.Itoa(qb.Idx()), *machineID)
	}
	qb.OrderBy(priorityOrderSQL + `, scheduled_date, scheduled_start NULLS LAST, created_at`)
	return r.collect(ctx, qb, limit, offset)
}

func (r *sessionRepoPG) collect(ctx context.Context, qb *query.Builder, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Session
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

func (r *sessionRepoPG) CountActive(ctx context.Context, machineID, excludeID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM dialysis_session
		WHERE machine_id = $1 AND id <> $2 AND status IN ('pre_op','in_progress','post_op')`,
		machineID, excludeID).Scan(&n)
	return n, err
}

func (r *sessionRepoPG) CountOverlapping(ctx context.Context, machineID uuid.UUID, date time.Time, start, end time.Time, excludeID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM dialysis_session
		WHERE machine_id = $1 AND id <> $2 AND scheduled_date = $3
		  AND status IN ('scheduled','pre_op','in_progress','post_op')
		  AND scheduled_start IS NOT NULL AND scheduled_end IS NOT NULL
		  AND scheduled_start < $5 AND scheduled_end > $4`,
		machineID, excludeID, date, start, end).Scan(&n)
	return n, err
}
