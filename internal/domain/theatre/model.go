// Package theatre implements operating theatre scheduling: the theatre
// registry, the surgery lifecycle, the safety checklist and anesthesia
// trackers, the priority worklist, and utilisation statistics.
package theatre

import (
	"time"

	"github.com/google/uuid"

	"github.com/otms/otms/internal/domain/lifecycle"
)

// Theatre maps to the theatre table.
type Theatre struct {
	ID             uuid.UUID                `db:"id" json:"id"`
	Code           string                   `db:"code" json:"code"`
	Name           string                   `db:"name" json:"name"`
	TheatreType    *string                  `db:"theatre_type" json:"theatre_type,omitempty"`
	Status         lifecycle.ResourceStatus `db:"status" json:"status"`
	Capacity       *int                     `db:"capacity" json:"capacity,omitempty"`
	HasImaging     bool                     `db:"has_imaging" json:"has_imaging"`
	HasRobotics    bool                     `db:"has_robotics" json:"has_robotics"`
	HasLaminarFlow bool                     `db:"has_laminar_flow" json:"has_laminar_flow"`
	IsActive       bool                     `db:"is_active" json:"is_active"`
	Note           *string                  `db:"note" json:"note,omitempty"`
	CreatedAt      time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time                `db:"updated_at" json:"updated_at"`
}

// BillingNotBilled is the billing state every surgery is created with. The
// scheduling core never advances it; the billing system owns later states.
const BillingNotBilled = "not_billed"

// Surgery maps to the surgery table. This is the main scheduled resource.
type Surgery struct {
	ID              uuid.UUID               `db:"id" json:"id"`
	TheatreID       uuid.UUID               `db:"theatre_id" json:"theatre_id"`
	PatientID       uuid.UUID               `db:"patient_id" json:"patient_id"`
	AdmissionID     *uuid.UUID              `db:"admission_id" json:"admission_id,omitempty"`
	SurgeonID       uuid.UUID               `db:"surgeon_id" json:"surgeon_id"`
	AnesthetistID   *uuid.UUID              `db:"anesthetist_id" json:"anesthetist_id,omitempty"`
	ProcedureName   string                  `db:"procedure_name" json:"procedure_name"`
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

// QueueKey returns the worklist ordering key for the surgery.
func (s *Surgery) QueueKey() lifecycle.QueueKey {
	return lifecycle.QueueKey{Priority: s.Priority, Date: s.ScheduledDate, Start: s.ScheduledStart}
}

// ChecklistRecord maps to the surgery_checklist table. One record per surgery
// tracks the three safety phases; status is derived from the stamped phases.
type ChecklistRecord struct {
	ID        uuid.UUID                 `db:"id" json:"id"`
	SurgeryID uuid.UUID                 `db:"surgery_id" json:"surgery_id"`
	SignInAt  *time.Time                `db:"sign_in_at" json:"sign_in_at,omitempty"`
	SignInBy  *uuid.UUID                `db:"sign_in_by" json:"sign_in_by,omitempty"`
	TimeOutAt *time.Time                `db:"time_out_at" json:"time_out_at,omitempty"`
	TimeOutBy *uuid.UUID                `db:"time_out_by" json:"time_out_by,omitempty"`
	SignOutAt *time.Time                `db:"sign_out_at" json:"sign_out_at,omitempty"`
	SignOutBy *uuid.UUID                `db:"sign_out_by" json:"sign_out_by,omitempty"`
	Status    lifecycle.ChecklistStatus `db:"status" json:"status"`
	Note      *string                   `db:"note" json:"note,omitempty"`
	CreatedAt time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt time.Time                 `db:"updated_at" json:"updated_at"`
}

// Phases reports which checklist phases carry a stamp.
func (r *ChecklistRecord) Phases() lifecycle.ChecklistPhases {
	return lifecycle.ChecklistPhases{
		SignIn:  r.SignInAt != nil,
		TimeOut: r.TimeOutAt != nil,
		SignOut: r.SignOutAt != nil,
	}
}

// Anesthesia record statuses are caller-set and independent of the surgery
// lifecycle.
const (
	AnesthesiaPlanned    = "planned"
	AnesthesiaInProgress = "in_progress"
	AnesthesiaCompleted  = "completed"
)

// AnesthesiaRecord maps to the anesthesia_record table.
type AnesthesiaRecord struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	SurgeryID       uuid.UUID  `db:"surgery_id" json:"surgery_id"`
	AnesthetistID   *uuid.UUID `db:"anesthetist_id" json:"anesthetist_id,omitempty"`
	Technique       *string    `db:"technique" json:"technique,omitempty"`
	Status          string     `db:"status" json:"status"`
	AgentsUsed      *string    `db:"agents_used" json:"agents_used,omitempty"`
	PreOpAssessment *string    `db:"pre_op_assessment" json:"pre_op_assessment,omitempty"`
	StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	Note            *string    `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Stats is the aggregate view over a tenant's surgeries.
type Stats struct {
	Total              int      `json:"total"`
	Scheduled          int      `json:"scheduled"`
	InProgress         int      `json:"in_progress"`
	Completed          int      `json:"completed"`
	Cancelled          int      `json:"cancelled"`
	AvgDurationMinutes *float64 `json:"avg_duration_minutes,omitempty"`
}
