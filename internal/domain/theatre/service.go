package theatre

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/otms/otms/internal/domain/lifecycle"
	"github.com/otms/otms/internal/platform/db"
)

// txRunner executes fn atomically. The production runner opens a database
// transaction and stashes it in the context so every repository call inside
// fn rides the same transaction; tests substitute a pass-through.
type txRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	theatres   TheatreRepository
	surgeries  SurgeryRepository
	checklists ChecklistRepository
	anesthesia AnesthesiaRepository
	runInTx    txRunner
}

func NewService(theatres TheatreRepository, surgeries SurgeryRepository,
	checklists ChecklistRepository, anesthesia AnesthesiaRepository, pool *pgxpool.Pool) *Service {
	return &Service{
		theatres:   theatres,
		surgeries:  surgeries,
		checklists: checklists,
		anesthesia: anesthesia,
		runInTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		},
	}
}

// asNotFound converts a no-rows error into the domain not-found sentinel.
func asNotFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return lifecycle.NotFoundf(format, args...)
	}
	return err
}

// -- Theatre --

var validTheatreTypes = map[string]bool{
	"major": true, "minor": true, "emergency": true, "day_care": true,
}

func (s *Service) CreateTheatre(ctx context.Context, t *Theatre) error {
	if t.Code == "" {
		return lifecycle.Invalidf("code is required")
	}
	if t.Name == "" {
		return lifecycle.Invalidf("name is required")
	}
	if t.TheatreType != nil && !validTheatreTypes[*t.TheatreType] {
		return lifecycle.Invalidf("invalid theatre_type: %s", *t.TheatreType)
	}
	if t.Status == "" {
		t.Status = lifecycle.ResourceAvailable
	}
	if !lifecycle.ValidResourceStatus(t.Status) {
		return lifecycle.Invalidf("invalid status: %s", t.Status)
	}
	if existing, err := s.theatres.GetByCode(ctx, t.Code); err == nil && existing != nil {
		return lifecycle.Conflictf("theatre code %s already exists", t.Code)
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	t.IsActive = true
	return s.theatres.Create(ctx, t)
}

func (s *Service) GetTheatre(ctx context.Context, id uuid.UUID) (*Theatre, error) {
	t, err := s.theatres.GetByID(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "theatre %s", id)
	}
	return t, nil
}

func (s *Service) UpdateTheatre(ctx context.Context, t *Theatre) error {
	if t.Status != "" && !lifecycle.ValidResourceStatus(t.Status) {
		return lifecycle.Invalidf("invalid status: %s", t.Status)
	}
	if t.TheatreType != nil && !validTheatreTypes[*t.TheatreType] {
		return lifecycle.Invalidf("invalid theatre_type: %s", *t.TheatreType)
	}
	if _, err := s.theatres.GetByID(ctx, t.ID); err != nil {
		return asNotFound(err, "theatre %s", t.ID)
	}
	return s.theatres.Update(ctx, t)
}

// SetTheatreStatus sets the availability directly, for maintenance and
// cleaning workflows outside the surgery lifecycle.
func (s *Service) SetTheatreStatus(ctx context.Context, id uuid.UUID, status lifecycle.ResourceStatus) error {
	if !lifecycle.ValidResourceStatus(status) {
		return lifecycle.Invalidf("invalid status: %s", status)
	}
	if _, err := s.theatres.GetByID(ctx, id); err != nil {
		return asNotFound(err, "theatre %s", id)
	}
	return s.theatres.SetStatus(ctx, id, string(status))
}

// DeactivateTheatre retires a theatre from scheduling without deleting its
// history.
func (s *Service) DeactivateTheatre(ctx context.Context, id uuid.UUID) error {
	if _, err := s.theatres.GetByID(ctx, id); err != nil {
		return asNotFound(err, "theatre %s", id)
	}
	return s.theatres.Deactivate(ctx, id)
}

func (s *Service) SearchTheatres(ctx context.Context, params map[string]string, limit, offset int) ([]*Theatre, int, error) {
	return s.theatres.Search(ctx, params, limit, offset)
}

// -- Surgery --

func (s *Service) ScheduleSurgery(ctx context.Context, sg *Surgery) error {
	if sg.TheatreID == uuid.Nil {
		return lifecycle.Invalidf("theatre_id is required")
	}
	if sg.PatientID == uuid.Nil {
		return lifecycle.Invalidf("patient_id is required")
	}
	if sg.SurgeonID == uuid.Nil {
		return lifecycle.Invalidf("surgeon_id is required")
	}
	if sg.ProcedureName == "" {
		return lifecycle.Invalidf("procedure_name is required")
	}
	if sg.ScheduledDate.IsZero() {
		return lifecycle.Invalidf("scheduled_date is required")
	}
	if sg.Priority == "" {
		sg.Priority = lifecycle.PriorityElective
	}
	if !lifecycle.ValidPriority(sg.Priority) {
		return lifecycle.Invalidf("invalid priority: %s", sg.Priority)
	}
	if sg.ScheduledStart != nil && sg.ScheduledEnd != nil && !sg.ScheduledEnd.After(*sg.ScheduledStart) {
		return lifecycle.Invalidf("scheduled_end must be after scheduled_start")
	}
	sg.Status = lifecycle.SessionScheduled
	sg.BillingStatus = BillingNotBilled

	return s.runInTx(ctx, func(ctx context.Context) error {
		th, err := s.theatres.GetForUpdate(ctx, sg.TheatreID)
		if err != nil {
			return asNotFound(err, "theatre %s", sg.TheatreID)
		}
		if !th.IsActive {
			return lifecycle.Invalidf("theatre %s is not active", th.Code)
		}
		if sg.ScheduledStart != nil && sg.ScheduledEnd != nil {
			n, err := s.surgeries.CountOverlapping(ctx, sg.TheatreID, sg.ScheduledDate,
				*sg.ScheduledStart, *sg.ScheduledEnd, uuid.Nil)
			if err != nil {
				return err
			}
			if n > 0 {
				return lifecycle.Conflictf("theatre %s is already booked for that window", th.Code)
			}
		}
		return s.surgeries.Create(ctx, sg)
	})
}

func (s *Service) GetSurgery(ctx context.Context, id uuid.UUID) (*Surgery, error) {
	sg, err := s.surgeries.GetByID(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "surgery %s", id)
	}
	return sg, nil
}

// UpdateSurgery merges editable scheduling fields. Lifecycle fields (status,
// actual times, cancellation) are owned by UpdateSurgeryStatus and ignored
// here.
func (s *Service) UpdateSurgery(ctx context.Context, id uuid.UUID, patch *Surgery) (*Surgery, error) {
	sg, err := s.surgeries.GetByID(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "surgery %s", id)
	}
	if patch.Priority != "" {
		if !lifecycle.ValidPriority(patch.Priority) {
			return nil, lifecycle.Invalidf("invalid priority: %s", patch.Priority)
		}
		sg.Priority = patch.Priority
	}
	if patch.ProcedureName != "" {
		sg.ProcedureName = patch.ProcedureName
	}
	if patch.SurgeonID != uuid.Nil {
		sg.SurgeonID = patch.SurgeonID
	}
	if patch.AnesthetistID != nil {
		sg.AnesthetistID = patch.AnesthetistID
	}
	if patch.AdmissionID != nil {
		sg.AdmissionID = patch.AdmissionID
	}
	if !patch.ScheduledDate.IsZero() {
		sg.ScheduledDate = patch.ScheduledDate
	}
	if patch.ScheduledStart != nil {
		sg.ScheduledStart = patch.ScheduledStart
	}
	if patch.ScheduledEnd != nil {
		sg.ScheduledEnd = patch.ScheduledEnd
	}
	if patch.Note != nil {
		sg.Note = patch.Note
	}
	if sg.ScheduledStart != nil && sg.ScheduledEnd != nil && !sg.ScheduledEnd.After(*sg.ScheduledStart) {
		return nil, lifecycle.Invalidf("scheduled_end must be after scheduled_start")
	}
	if err := s.surgeries.Update(ctx, sg); err != nil {
		return nil, err
	}
	return sg, nil
}

// UpdateSurgeryStatus drives the surgery through its lifecycle. The surgery
// and its theatre are updated in one transaction with the theatre row locked,
// so two clients cannot claim the same theatre concurrently.
func (s *Service) UpdateSurgeryStatus(ctx context.Context, id uuid.UUID, target lifecycle.SessionStatus, cancelReason *string) (*Surgery, error) {
	if !lifecycle.ValidSessionStatus(target) {
		return nil, lifecycle.Invalidf("invalid status: %s", target)
	}

	var out *Surgery
	err := s.runInTx(ctx, func(ctx context.Context) error {
		sg, err := s.surgeries.GetForUpdate(ctx, id)
		if err != nil {
			return asNotFound(err, "surgery %s", id)
		}

		// Cancelling an already-cancelled surgery is a no-op success; the
		// original cancellation stamp is preserved.
		if target == lifecycle.SessionCancelled && sg.Status == lifecycle.SessionCancelled {
			out = sg
			return nil
		}

		ev, err := lifecycle.EventFor(target)
		if err != nil {
			return err
		}
		tr, err := lifecycle.Apply(sg.Status, ev)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		switch ev {
		case lifecycle.EventBegin:
			if sg.ActualStart == nil {
				sg.ActualStart = &now
			}
		case lifecycle.EventFinish:
			if sg.ActualEnd == nil {
				sg.ActualEnd = &now
			}
			sg.DurationMinutes = lifecycle.Duration(sg.ActualStart, sg.ActualEnd)
		case lifecycle.EventCancel:
			reason := "cancelled"
			if cancelReason != nil && *cancelReason != "" {
				reason = *cancelReason
			}
			sg.CancelReason = &reason
			sg.CancelledAt = &now
		}

		// Only a surgery that holds the theatre, or is claiming it, may change
		// the theatre status. Cancelling or postponing a surgery that never
		// checked in leaves the theatre untouched.
		if tr.TouchResource && (sg.Status.Active() || tr.To.Active()) {
			th, err := s.theatres.GetForUpdate(ctx, sg.TheatreID)
			if err != nil {
				return asNotFound(err, "theatre %s", sg.TheatreID)
			}
			// Claiming the theatre requires it to be free of other active
			// surgeries; releasing it does not.
			if !sg.Status.Active() && tr.To.Active() {
				n, err := s.surgeries.CountActive(ctx, sg.TheatreID, sg.ID)
				if err != nil {
					return err
				}
				if n > 0 {
					return lifecycle.Conflictf("theatre %s has an active surgery", th.Code)
				}
			}
			if err := s.theatres.SetStatus(ctx, th.ID, string(tr.Resource)); err != nil {
				return err
			}
		}

		sg.Status = tr.To
		if err := s.surgeries.Update(ctx, sg); err != nil {
			return err
		}
		out = sg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelSurgery is the soft delete: the record stays for reporting with a
// cancellation stamp.
func (s *Service) CancelSurgery(ctx context.Context, id uuid.UUID, reason *string) (*Surgery, error) {
	return s.UpdateSurgeryStatus(ctx, id, lifecycle.SessionCancelled, reason)
}

func (s *Service) SearchSurgeries(ctx context.Context, params map[string]string, limit, offset int) ([]*Surgery, int, error) {
	return s.surgeries.Search(ctx, params, limit, offset)
}

// Worklist returns the pending queue: scheduled surgeries ordered emergency
// first, then urgent, then elective, with date and start time breaking ties.
func (s *Service) Worklist(ctx context.Context, date *time.Time, theatreID *uuid.UUID, limit, offset int) ([]*Surgery, int, error) {
	items, total, err := s.surgeries.Worklist(ctx, date, theatreID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].QueueKey().Less(items[j].QueueKey())
	})
	return items, total, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.surgeries.Stats(ctx)
}

// -- Safety checklist --

func (s *Service) GetChecklist(ctx context.Context, surgeryID uuid.UUID) (*ChecklistRecord, error) {
	if _, err := s.surgeries.GetByID(ctx, surgeryID); err != nil {
		return nil, asNotFound(err, "surgery %s", surgeryID)
	}
	rec, err := s.checklists.GetBySurgery(ctx, surgeryID)
	if errors.Is(err, pgx.ErrNoRows) {
		// No phases stamped yet: report an empty record rather than 404.
		return &ChecklistRecord{SurgeryID: surgeryID, Status: lifecycle.ChecklistNotStarted}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpsertChecklist merges the supplied phase stamps into the surgery's
// checklist. Phases are append-only and must complete in order: sign-in,
// time-out, sign-out.
func (s *Service) UpsertChecklist(ctx context.Context, surgeryID uuid.UUID, patch *ChecklistRecord) (*ChecklistRecord, error) {
	if _, err := s.surgeries.GetByID(ctx, surgeryID); err != nil {
		return nil, asNotFound(err, "surgery %s", surgeryID)
	}

	rec, err := s.checklists.GetBySurgery(ctx, surgeryID)
	create := false
	if errors.Is(err, pgx.ErrNoRows) {
		rec = &ChecklistRecord{SurgeryID: surgeryID}
		create = true
	} else if err != nil {
		return nil, err
	}

	if patch.SignInAt != nil {
		rec.SignInAt = patch.SignInAt
		rec.SignInBy = patch.SignInBy
	}
	if patch.TimeOutAt != nil {
		rec.TimeOutAt = patch.TimeOutAt
		rec.TimeOutBy = patch.TimeOutBy
	}
	if patch.SignOutAt != nil {
		rec.SignOutAt = patch.SignOutAt
		rec.SignOutBy = patch.SignOutBy
	}
	if patch.Note != nil {
		rec.Note = patch.Note
	}

	if err := lifecycle.ValidateChecklistOrder(rec.Phases()); err != nil {
		return nil, err
	}
	rec.Status = lifecycle.DeriveChecklistStatus(rec.Phases())

	if create {
		err = s.checklists.Create(ctx, rec)
	} else {
		err = s.checklists.Update(ctx, rec)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// -- Anesthesia record --

var validAnesthesiaStatuses = map[string]bool{
	AnesthesiaPlanned: true, AnesthesiaInProgress: true, AnesthesiaCompleted: true,
}

var validTechniques = map[string]bool{
	"general": true, "spinal": true, "epidural": true, "local": true, "sedation": true,
}

func (s *Service) GetAnesthesia(ctx context.Context, surgeryID uuid.UUID) (*AnesthesiaRecord, error) {
	if _, err := s.surgeries.GetByID(ctx, surgeryID); err != nil {
		return nil, asNotFound(err, "surgery %s", surgeryID)
	}
	rec, err := s.anesthesia.GetBySurgery(ctx, surgeryID)
	if err != nil {
		return nil, asNotFound(err, "anesthesia record for surgery %s", surgeryID)
	}
	return rec, nil
}

// UpsertAnesthesia creates or merges the anesthesia record. Its status is
// caller-set and intentionally not synchronized with the surgery status.
func (s *Service) UpsertAnesthesia(ctx context.Context, surgeryID uuid.UUID, patch *AnesthesiaRecord) (*AnesthesiaRecord, error) {
	if _, err := s.surgeries.GetByID(ctx, surgeryID); err != nil {
		return nil, asNotFound(err, "surgery %s", surgeryID)
	}
	if patch.Status != "" && !validAnesthesiaStatuses[patch.Status] {
		return nil, lifecycle.Invalidf("invalid anesthesia status: %s", patch.Status)
	}
	if patch.Technique != nil && !validTechniques[*patch.Technique] {
		return nil, lifecycle.Invalidf("invalid technique: %s", *patch.Technique)
	}

	rec, err := s.anesthesia.GetBySurgery(ctx, surgeryID)
	create := false
	if errors.Is(err, pgx.ErrNoRows) {
		rec = &AnesthesiaRecord{SurgeryID: surgeryID, Status: AnesthesiaPlanned}
		create = true
	} else if err != nil {
		return nil, err
	}

	if patch.Status != "" {
		rec.Status = patch.Status
	}
	if patch.AnesthetistID != nil {
		rec.AnesthetistID = patch.AnesthetistID
	}
	if patch.Technique != nil {
		rec.Technique = patch.Technique
	}
	if patch.AgentsUsed != nil {
		rec.AgentsUsed = patch.AgentsUsed
	}
	if patch.PreOpAssessment != nil {
		rec.PreOpAssessment = patch.PreOpAssessment
	}
	if patch.StartedAt != nil {
		rec.StartedAt = patch.StartedAt
	}
	if patch.EndedAt != nil {
		rec.EndedAt = patch.EndedAt
	}
	if patch.Note != nil {
		rec.Note = patch.Note
	}

	if create {
		err = s.anesthesia.Create(ctx, rec)
	} else {
		err = s.anesthesia.Update(ctx, rec)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
