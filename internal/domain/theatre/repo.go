package theatre

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TheatreRepository interface {
	Create(ctx context.Context, t *Theatre) error
	GetByID(ctx context.Context, id uuid.UUID) (*Theatre, error)
	GetByCode(ctx context.Context, code string) (*Theatre, error)
	// GetForUpdate locks the theatre row for the remainder of the current
	// transaction. Callers must be inside db.RunInTx.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Theatre, error)
	Update(ctx context.Context, t *Theatre) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Theatre, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Theatre, int, error)
}

type SurgeryRepository interface {
	Create(ctx context.Context, s *Surgery) error
	GetByID(ctx context.Context, id uuid.UUID) (*Surgery, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Surgery, error)
	Update(ctx context.Context, s *Surgery) error
	List(ctx context.Context, limit, offset int) ([]*Surgery, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Surgery, int, error)
	// Worklist returns scheduled surgeries, optionally filtered by day and
	// theatre, ordered by priority weight, then date, then start time.
	Worklist(ctx context.Context, date *time.Time, theatreID *uuid.UUID, limit, offset int) ([]*Surgery, int, error)
	// CountActive counts surgeries currently holding the theatre
	// (pre_op/in_progress/post_op), excluding excludeID.
	CountActive(ctx context.Context, theatreID, excludeID uuid.UUID) (int, error)
	// CountOverlapping counts scheduled or active surgeries in the theatre on
	// the given day whose scheduled window intersects [start, end).
	CountOverlapping(ctx context.Context, theatreID uuid.UUID, date time.Time, start, end time.Time, excludeID uuid.UUID) (int, error)
	Stats(ctx context.Context) (*Stats, error)
}

type ChecklistRepository interface {
	GetBySurgery(ctx context.Context, surgeryID uuid.UUID) (*ChecklistRecord, error)
	Create(ctx context.Context, r *ChecklistRecord) error
	Update(ctx context.Context, r *ChecklistRecord) error
}

type AnesthesiaRepository interface {
	GetBySurgery(ctx context.Context, surgeryID uuid.UUID) (*AnesthesiaRecord, error)
	Create(ctx context.Context, r *AnesthesiaRecord) error
	Update(ctx context.Context, r *AnesthesiaRecord) error
}
