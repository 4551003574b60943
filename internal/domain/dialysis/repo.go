package dialysis

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MachineRepository interface {
	Create(ctx context.Context, m *Machine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Machine, error)
	GetByCode(ctx context.Context, code string) (*Machine, error)
	// GetForUpdate locks the machine row for the remainder of the current
	// transaction. Callers must be inside db.RunInTx.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Machine, error)
	Update(ctx context.Context, m *Machine) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Machine, int, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Session, int, error)
	// Worklist returns scheduled sessions, optionally filtered by day and
	// machine, ordered by priority weight, then date, then start time.
	Worklist(ctx context.Context, date *time.Time, machineID *uuid.UUID, limit, offset int) ([]*Session, int, error)
	// CountActive counts sessions currently holding the machine
	// (pre_op/in_progress/post_op), excluding excludeID.
	CountActive(ctx context.Context, machineID, excludeID uuid.UUID) (int, error)
	// CountOverlapping counts scheduled or active sessions on the machine on
	// the given day whose scheduled window intersects [start, end).
	CountOverlapping(ctx context.Context, machineID uuid.UUID, date time.Time, start, end time.Time, excludeID uuid.UUID) (int, error)
}
