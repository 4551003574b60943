package lifecycle

import (
	"sort"
	"testing"
	"time"
)

func ts(h, m int) *time.Time {
	t := time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
	return &t
}

func TestQueueKeyOrdering(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// Mixed-priority day list: two electives at 08:00 and 09:00, an urgent at
	// 10:00 and an emergency with no start time. Expected order: emergency
	// first, then urgent, then electives by start time.
	entries := []struct {
		label string
		key   QueueKey
	}{
		{"elective-0800", QueueKey{Priority: PriorityElective, Date: day, Start: ts(8, 0)}},
		{"elective-0900", QueueKey{Priority: PriorityElective, Date: day, Start: ts(9, 0)}},
		{"urgent-1000", QueueKey{Priority: PriorityUrgent, Date: day, Start: ts(10, 0)}},
		{"emergency-nostart", QueueKey{Priority: PriorityEmergency, Date: day}},
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key.Less(entries[j].key)
	})

	want := []string{"emergency-nostart", "urgent-1000", "elective-0800", "elective-0900"}
	for i, w := range want {
		if entries[i].label != w {
			t.Fatalf("position %d = %s, want %s", i, entries[i].label, w)
		}
	}
}

func TestQueueKeyTieBreaks(t *testing.T) {
	d1 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b QueueKey
		want bool
	}{
		{"earlier date wins within priority",
			QueueKey{Priority: PriorityUrgent, Date: d1, Start: ts(12, 0)},
			QueueKey{Priority: PriorityUrgent, Date: d2, Start: ts(8, 0)}, true},
		{"earlier start wins within date",
			QueueKey{Priority: PriorityElective, Date: d1, Start: ts(8, 0)},
			QueueKey{Priority: PriorityElective, Date: d1, Start: ts(8, 30)}, true},
		{"missing start sorts after a set start",
			QueueKey{Priority: PriorityElective, Date: d1},
			QueueKey{Priority: PriorityElective, Date: d1, Start: ts(23, 59)}, false},
		{"full tie is not strictly less",
			QueueKey{Priority: PriorityElective, Date: d1, Start: ts(8, 0)},
			QueueKey{Priority: PriorityElective, Date: d1, Start: ts(8, 0)}, false},
		{"priority beats date",
			QueueKey{Priority: PriorityEmergency, Date: d2},
			QueueKey{Priority: PriorityElective, Date: d1, Start: ts(7, 0)}, true},
		{"unknown label sorts last",
			QueueKey{Priority: PriorityElective, Date: d1},
			QueueKey{Priority: Priority("triage"), Date: d1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.want {
				t.Errorf("Less = %v, want %v", got, tt.want)
			}
		})
	}
}
