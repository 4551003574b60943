package lifecycle

import "time"

// QueueKey is the ordering key for a scheduled-work queue entry. Entries sort
// by priority weight, then scheduled date, then scheduled start time; a stable
// sort preserves insertion order within full ties.
type QueueKey struct {
	Priority Priority
	Date     time.Time
	Start    *time.Time
}

// Less reports whether a orders strictly before b. Entries without a start
// time sort after those with one on the same date and priority.
func (a QueueKey) Less(b QueueKey) bool {
	if aw, bw := a.Priority.Weight(), b.Priority.Weight(); aw != bw {
		return aw < bw
	}
	if ad, bd := dateOnly(a.Date), dateOnly(b.Date); !ad.Equal(bd) {
		return ad.Before(bd)
	}
	switch {
	case a.Start == nil && b.Start == nil:
		return false
	case a.Start == nil:
		return false
	case b.Start == nil:
		return true
	default:
		return a.Start.Before(*b.Start)
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
