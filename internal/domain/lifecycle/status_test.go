package lifecycle

import (
	"testing"
	"time"
)

func TestSessionStatusPredicates(t *testing.T) {
	active := map[SessionStatus]bool{
		SessionScheduled: false, SessionPreOp: true, SessionInProgress: true,
		SessionPostOp: true, SessionCompleted: false, SessionCancelled: false,
		SessionPostponed: false,
	}
	terminal := map[SessionStatus]bool{
		SessionCompleted: true, SessionCancelled: true,
		SessionScheduled: false, SessionPreOp: false, SessionInProgress: false,
		SessionPostOp: false, SessionPostponed: false,
	}
	for s, want := range active {
		if s.Active() != want {
			t.Errorf("%s.Active() = %v, want %v", s, s.Active(), want)
		}
	}
	for s, want := range terminal {
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, s.Terminal(), want)
		}
	}
}

func TestPriorityWeights(t *testing.T) {
	if !(PriorityEmergency.Weight() < PriorityUrgent.Weight() &&
		PriorityUrgent.Weight() < PriorityElective.Weight()) {
		t.Fatal("priority weights must order emergency < urgent < elective")
	}
	if Priority("routine").Weight() <= PriorityElective.Weight() {
		t.Error("unknown priority must sort after elective")
	}
	if ValidPriority("routine") {
		t.Error("ValidPriority accepted an unknown label")
	}
}

func TestDuration(t *testing.T) {
	at := func(h, m, s int) *time.Time {
		ts := time.Date(2026, 3, 10, h, m, s, 0, time.UTC)
		return &ts
	}

	tests := []struct {
		name       string
		start, end *time.Time
		want       *int
	}{
		{"whole minutes", at(9, 0, 0), at(10, 30, 0), intp(90)},
		{"rounds down below half", at(9, 0, 0), at(9, 10, 20), intp(10)},
		{"rounds up at half", at(9, 0, 0), at(9, 10, 30), intp(11)},
		{"zero length", at(9, 0, 0), at(9, 0, 0), intp(0)},
		{"missing start", nil, at(9, 0, 0), nil},
		{"missing end", at(9, 0, 0), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Duration(tt.start, tt.end)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("Duration = %v, want %v", got, tt.want)
			case *got != *tt.want:
				t.Errorf("Duration = %d, want %d", *got, *tt.want)
			}
		})
	}
}

func intp(v int) *int { return &v }
