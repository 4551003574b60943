package lifecycle

// ChecklistStatus is the derived progress of a three-phase safety checklist.
type ChecklistStatus string

const (
	ChecklistNotStarted  ChecklistStatus = "not_started"
	ChecklistSignInDone  ChecklistStatus = "sign_in_done"
	ChecklistTimeOutDone ChecklistStatus = "time_out_done"
	ChecklistCompleted   ChecklistStatus = "completed"
)

// ChecklistPhases reports which of the three checklist phases carry a
// completion stamp. Phase order is sign-in, time-out, sign-out.
type ChecklistPhases struct {
	SignIn  bool
	TimeOut bool
	SignOut bool
}

// DeriveChecklistStatus returns the status implied by the highest stamped
// phase, regardless of whether earlier phases are stamped. This is the
// permissive derivation; ValidateChecklistOrder is the gate that keeps the
// phases sequential.
func DeriveChecklistStatus(p ChecklistPhases) ChecklistStatus {
	switch {
	case p.SignOut:
		return ChecklistCompleted
	case p.TimeOut:
		return ChecklistTimeOutDone
	case p.SignIn:
		return ChecklistSignInDone
	default:
		return ChecklistNotStarted
	}
}

// ValidateChecklistOrder rejects a phase combination where a later phase is
// stamped while an earlier one is not. Sign-out before time-out (or time-out
// before sign-in) means the team skipped a safety step.
func ValidateChecklistOrder(p ChecklistPhases) error {
	if p.TimeOut && !p.SignIn {
		return Invalidf("time-out recorded before sign-in")
	}
	if p.SignOut && (!p.SignIn || !p.TimeOut) {
		return Invalidf("sign-out recorded before earlier checklist phases")
	}
	return nil
}
