package lifecycle

import (
	"errors"
	"testing"
)

func TestDeriveChecklistStatus(t *testing.T) {
	tests := []struct {
		name   string
		phases ChecklistPhases
		want   ChecklistStatus
	}{
		{"nothing stamped", ChecklistPhases{}, ChecklistNotStarted},
		{"sign-in only", ChecklistPhases{SignIn: true}, ChecklistSignInDone},
		{"through time-out", ChecklistPhases{SignIn: true, TimeOut: true}, ChecklistTimeOutDone},
		{"all three", ChecklistPhases{SignIn: true, TimeOut: true, SignOut: true}, ChecklistCompleted},
		{"sign-out alone still reads completed", ChecklistPhases{SignOut: true}, ChecklistCompleted},
		{"time-out alone reads time_out_done", ChecklistPhases{TimeOut: true}, ChecklistTimeOutDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveChecklistStatus(tt.phases); got != tt.want {
				t.Errorf("DeriveChecklistStatus(%+v) = %s, want %s", tt.phases, got, tt.want)
			}
		})
	}
}

func TestValidateChecklistOrder(t *testing.T) {
	valid := []ChecklistPhases{
		{},
		{SignIn: true},
		{SignIn: true, TimeOut: true},
		{SignIn: true, TimeOut: true, SignOut: true},
	}
	for _, p := range valid {
		if err := ValidateChecklistOrder(p); err != nil {
			t.Errorf("ValidateChecklistOrder(%+v) = %v, want nil", p, err)
		}
	}

	invalid := []ChecklistPhases{
		{TimeOut: true},
		{SignOut: true},
		{SignIn: true, SignOut: true},
		{TimeOut: true, SignOut: true},
	}
	for _, p := range invalid {
		if err := ValidateChecklistOrder(p); !errors.Is(err, ErrValidation) {
			t.Errorf("ValidateChecklistOrder(%+v) = %v, want ErrValidation", p, err)
		}
	}
}
