package dialysis

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

type txRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	machines MachineRepository
	sessions SessionRepository
	runInTx  txRunner
}

func NewService(machines MachineRepository, sessions SessionRepository, pool *pgxpool.Pool) *Service {
	return &Service{
		machines: machines,
		sessions: sessions,
		runInTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		},
	}
}

func asNotFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return lifecycle.NotFoundf(format, args...)
	}
	return err
}

// -- Machine --

func (s *Service) CreateMachine(ctx context.Context, m *Machine) error {
	if m.Code == "" {
		return lifecycle.Invalidf("code is required")
	}
	if m.Status == "" {
		m.Status = lifecycle.ResourceAvailable
	}
	if !lifecycle.ValidResourceStatus(m.Status) {
		return lifecycle.Invalidf("invalid status: %s", m.Status)
	}
	if existing, err := s.machines.GetByCode(ctx, m.Code); err == nil && existing != nil {
		return lifecycle.Conflictf("machine code %s already exists", m.Code)
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	m.IsActive = true
	return s.machines.Create(ctx, m)
}

func (s *Service) GetMachine(ctx context.Context, id uuid.UUID) (*Machine, error) {
	m, err := s.machines.GetByID(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "machine %s", id)
	}
	return m, nil
}

func (s *Service) UpdateMachine(ctx context.Context, m *Machine) error {
	if m.Status != "" && !lifecycle.ValidResourceStatus(m.Status) {
		return lifecycle.Invalidf("invalid status: %s", m.Status)
	}
	if _, err := s.machines.GetByID(ctx, m.ID); err != nil {
		return asNotFound(err, "machine %s", m.ID)
	}
	return s.machines.Update(ctx, m)
}

func (s *Service) SetMachineStatus(ctx context.Context, id uuid.UUID, status lifecycle.ResourceStatus) error {
	if !lifecycle.ValidResourceStatus(status) {
		return lifecycle.Invalidf("invalid status: %s", status)
	}
	if _, err := s.machines.GetByID(ctx, id); err != nil {
		return asNotFound(err, "machine %s", id)
	}
	return s.machines.SetStatus(ctx, id, string(status))
}

func (s *Service) DeactivateMachine(ctx context.Context, id uuid.UUID) error {
	if _, err := s.machines.GetByID(ctx, id); err != nil {
		return asNotFound(err, "machine %s", id)
	}
	return s.machines.Deactivate(ctx, id)
}

func (s *Service) SearchMachines(ctx context.Context, params map[string]string, limit, offset int) ([]*Machine, int, error) {
	return s.machines.Search(ctx, params, limit, offset)
}

// -- Session --

func (s *Service) ScheduleSession(ctx context.Context, sess *Session) error {
	if sess.MachineID == uuid.Nil {
		return lifecycle.Invalidf("machine_id is required")
	}
	if sess.PatientID == uuid.Nil {
		return lifecycle.Invalidf("patient_id is required")
	}
	if sess.ScheduledDate.IsZero() {
		return lifecycle.Invalidf("scheduled_date is required")
	}
	if sess.Priority == "" {
		sess.Priority = lifecycle.PriorityElective
	}
	if !lifecycle.ValidPriority(sess.Priority) {
		return lifecycle.Invalidf("invalid priority: %s", sess.Priority)
	}
	if sess.ScheduledStart != nil && sess.ScheduledEnd != nil && !sess.ScheduledEnd.After(*sess.ScheduledStart) {
		return lifecycle.Invalidf("scheduled_end must be after scheduled_start")
	}
	sess.Status = lifecycle.SessionScheduled
	sess.BillingStatus = BillingNotBilled

	return s.runInTx(ctx, func(ctx context.Context) error {
		m, err := s.machines.GetForUpdate(ctx, sess.MachineID)
		if err != nil {
			return asNotFound(err, "machine %s", sess.MachineID)
		}
		if !m.IsActive {
			return lifecycle.Invalidf("machine %s is not active", m.Code)
		}
		if sess.ScheduledStart != nil && sess.ScheduledEnd != nil {
			n, err := s.sessions.CountOverlapping(ctx, sess.MachineID, sess.ScheduledDate,
				*sess.ScheduledStart, *sess.ScheduledEnd, uuid.Nil)
			if err != nil {
				return err
			}
			if n > 0 {
				return lifecycle.Conflictf("machine %s is already booked for that window", m.Code)
			}
		}
		return s.sessions.Create(ctx, sess)
	})
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "session %s", id)
	}
	return sess, nil
}

// UpdateSessionStatus drives the session lifecycle. The session and its
// machine are updated in one transaction with the machine row locked.
func (s *Service) UpdateSessionStatus(ctx context.Context, id uuid.UUID, target lifecycle.SessionStatus, cancelReason *string) (*Session, error) {
	if !lifecycle.ValidSessionStatus(target) {
		return nil, lifecycle.Invalidf("invalid status: %s", target)
	}

	var out *Session
	err := s.runInTx(ctx, func(ctx context.Context) error {
		sess, err := s.sessions.GetForUpdate(ctx, id)
		if err != nil {
			return asNotFound(err, "session %s", id)
		}

		if target == lifecycle.SessionCancelled && sess.Status == lifecycle.SessionCancelled {
			out = sess
			return nil
		}

		ev, err := lifecycle.EventFor(target)
		if err != nil {
			return err
		}
		tr, err := lifecycle.Apply(sess.Status, ev)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		switch ev {
		case lifecycle.EventBegin:
			if sess.ActualStart == nil {
				sess.ActualStart = &now
			}
		case lifecycle.EventFinish:
			if sess.ActualEnd == nil {
				sess.ActualEnd = &now
			}
			sess.DurationMinutes = lifecycle.Duration(sess.ActualStart, sess.ActualEnd)
		case lifecycle.EventCancel:
			reason := "cancelled"
			if cancelReason != nil && *cancelReason != "" {
				reason = *cancelReason
			}
			sess.CancelReason = &reason
			sess.CancelledAt = &now
		}

		// Only a session that holds the machine, or is claiming it, may change
		// the machine status; cancelling a merely-scheduled session must not.
		if tr.TouchResource && (sess.Status.Active() || tr.To.Active()) {
			m, err := s.machines.GetForUpdate(ctx, sess.MachineID)
			if err != nil {
				return asNotFound(err, "machine %s", sess.MachineID)
			}
			if !sess.Status.Active() && tr.To.Active() {
				n, err := s.sessions.CountActive(ctx, sess.MachineID, sess.ID)
				if err != nil {
					return err
				}
				if n > 0 {
					return lifecycle.Conflictf("machine %s has an active session", m.Code)
				}
			}
			if err := s.machines.SetStatus(ctx, m.ID, string(tr.Resource)); err != nil {
				return err
			}
		}

		sess.Status = tr.To
		if err := s.sessions.Update(ctx, sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CancelSession(ctx context.Context, id uuid.UUID, reason *string) (*Session, error) {
	return s.UpdateSessionStatus(ctx, id, lifecycle.SessionCancelled, reason)
}

func (s *Service) SearchSessions(ctx context.Context, params map[string]string, limit, offset int) ([]*Session, int, error) {
	return s.sessions.Search(ctx, params, limit, offset)
}

func (s *Service) Worklist(ctx context.Context, date *time.Time, machineID *uuid.UUID, limit, offset int) ([]*Session, int, error) {
	items, total, err := s.sessions.Worklist(ctx, date, machineID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].QueueKey().Less(items[j].QueueKey())
	})
	return items, total, nil
}
