// Package dialysis applies the shared resource/session lifecycle to dialysis
// machines and sessions. It is the same engine as operating theatres with a
// leaner surface: no safety checklist or anesthesia tracking.
package dialysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/otms/otms/internal/domain/lifecycle"
)

// Machine maps to the dialysis_machine table.
type Machine struct {
	ID        uuid.UUID                `db:"id" json:"id"`
	Code      string                   `db:"code" json:"code"`
	Station   *string                  `db:"station" json:"station,omitempty"`
	Status    lifecycle.ResourceStatus `db:"status" json:"status"`
	IsActive  bool                     `db:"is_active" json:"is_active"`
	Note      *string                  `db:"note" json:"note,omitempty"`
	CreatedAt time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt time.Time                `db:"updated_at" json:"updated_at"`
}

// BillingNotBilled is the billing state every session is created with; the
// billing system owns later states.
const BillingNotBilled = "not_billed"

// Session maps to the dialysis_session table.
type Session struct {
	ID              uuid.UUID               `db:"id" json:"id"`
	MachineID       uuid.UUID               `db:"machine_id" json:"machine_id"`
	PatientID       uuid.UUID               `db:"patient_id" json:"patient_id"`
	Priority        lifecycle.Priority      `db:"priority" json:"priority"`
	Status          lifecycle.SessionStatus `db:"status" json:"status"`
	ScheduledDate   time.Time               `db:"scheduled_date" json:"scheduled_date"`
	ScheduledStart  *time.Time              `db:"scheduled_start" json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time              `db:"scheduled_end" json:"scheduled_end,omitempty"`
	ActualStart     *time.Time              `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd       *time.Time              `db:"actual_end" json:"actual_end,omitempty"`
	DurationMinutes *int                    `db:"duration_minutes" json:"duration_minutes,omitempty"`
	CancelReason    *string                 `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledAt     *time.Time              `db:"cancelled_at" json:"cancelled_at,omitempty"`
	BillingStatus   string                  `db:"billing_status" json:"billing_status"`
	Note            *string                 `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time               `db:"updated_at" json:"updated_at"`
}

// QueueKey returns the worklist ordering key for the session.
func (s *Session) QueueKey() lifecycle.QueueKey {
	return lifecycle.QueueKey{Priority: s.Priority, Date: s.ScheduledDate, Start: s.ScheduledStart}
}
